package repo

import (
	"context"

	"suivi/internal/client"
	"suivi/internal/domain"
	"suivi/internal/mapper"
)

// HTTPReports implements ReportRepository over the reporting API.
type HTTPReports struct {
	Client *client.Client
}

func (r HTTPReports) GetAll(ctx context.Context) ([]domain.Report, error) {
	var resp []mapper.ReportDTO
	if err := r.Client.Get(ctx, "reports", &resp); err != nil {
		return nil, err
	}
	return mapper.ReportsToDomain(resp)
}

func (r HTTPReports) GetByID(ctx context.Context, id string) (domain.Report, error) {
	var resp mapper.ReportDTO
	if err := r.Client.Get(ctx, client.Path("reports", id), &resp); err != nil {
		return domain.Report{}, err
	}
	return mapper.ReportToDomain(resp)
}

func (r HTTPReports) GetByOwner(ctx context.Context, subjectID string) ([]domain.Report, error) {
	var resp []mapper.ReportDTO
	if err := r.Client.Get(ctx, client.Path("disciples", subjectID, "reports"), &resp); err != nil {
		return nil, err
	}
	return mapper.ReportsToDomain(resp)
}

func (r HTTPReports) Create(ctx context.Context, req domain.ReportRequest) (domain.Report, error) {
	return r.post(ctx, "reports", mapper.ReportRequestToWire(req))
}

func (r HTTPReports) Update(ctx context.Context, id string, req domain.ReportRequest) (domain.Report, error) {
	var resp mapper.ReportDTO
	if err := r.Client.Patch(ctx, client.Path("reports", id), mapper.ReportRequestToWire(req), &resp); err != nil {
		return domain.Report{}, err
	}
	return mapper.ReportToDomain(resp)
}

func (r HTTPReports) Delete(ctx context.Context, id string) error {
	return r.Client.Delete(ctx, client.Path("reports", id))
}

func (r HTTPReports) Submit(ctx context.Context, id string) (domain.Report, error) {
	return r.post(ctx, client.Path("reports", id, "submit"), struct{}{})
}

func (r HTTPReports) Validate(ctx context.Context, id string) (domain.Report, error) {
	return r.post(ctx, client.Path("reports", id, "validate"), struct{}{})
}

func (r HTTPReports) MarkReviewed(ctx context.Context, id string) (domain.Report, error) {
	return r.post(ctx, client.Path("reports", id, "review"), struct{}{})
}

func (r HTTPReports) Comment(ctx context.Context, id, comment string) (domain.Report, error) {
	return r.post(ctx, client.Path("reports", id, "comment"), mapper.CommentDTO{Comment: comment})
}

func (r HTTPReports) post(ctx context.Context, endpoint string, body any) (domain.Report, error) {
	var resp mapper.ReportDTO
	if err := r.Client.Post(ctx, endpoint, body, &resp); err != nil {
		return domain.Report{}, err
	}
	return mapper.ReportToDomain(resp)
}

// HTTPSubjects implements SubjectRepository over the reporting API.
type HTTPSubjects struct {
	Client *client.Client
}

func (r HTTPSubjects) GetAll(ctx context.Context) ([]domain.Subject, error) {
	var resp []mapper.SubjectDTO
	if err := r.Client.Get(ctx, "disciples", &resp); err != nil {
		return nil, err
	}
	return mapper.SubjectsToDomain(resp), nil
}

func (r HTTPSubjects) GetByID(ctx context.Context, id string) (domain.Subject, error) {
	var resp mapper.SubjectDTO
	if err := r.Client.Get(ctx, client.Path("disciples", id), &resp); err != nil {
		return domain.Subject{}, err
	}
	return mapper.SubjectToDomain(resp), nil
}

func (r HTTPSubjects) GetByOwner(ctx context.Context, supervisorID string) ([]domain.Subject, error) {
	var resp []mapper.SubjectDTO
	if err := r.Client.Get(ctx, client.Path("disciples", supervisorID, "disciples"), &resp); err != nil {
		return nil, err
	}
	return mapper.SubjectsToDomain(resp), nil
}

func (r HTTPSubjects) Create(ctx context.Context, req domain.SubjectRequest) (domain.Subject, error) {
	var resp mapper.SubjectDTO
	if err := r.Client.Post(ctx, "disciples", mapper.SubjectRequestToWire(req), &resp); err != nil {
		return domain.Subject{}, err
	}
	return mapper.SubjectToDomain(resp), nil
}

func (r HTTPSubjects) Update(ctx context.Context, id string, req domain.SubjectRequest) (domain.Subject, error) {
	var resp mapper.SubjectDTO
	if err := r.Client.Patch(ctx, client.Path("disciples", id), mapper.SubjectRequestToWire(req), &resp); err != nil {
		return domain.Subject{}, err
	}
	return mapper.SubjectToDomain(resp), nil
}

func (r HTTPSubjects) Delete(ctx context.Context, id string) error {
	return r.Client.Delete(ctx, client.Path("disciples", id))
}

// HTTPOrgUnits implements OrgUnitRepository over the reporting API.
type HTTPOrgUnits struct {
	Client *client.Client
}

func (r HTTPOrgUnits) GetAll(ctx context.Context, level domain.UnitLevel) ([]domain.OrgUnit, error) {
	var resp []mapper.OrgUnitDTO
	endpoint := client.WithQuery("units", map[string]string{"level": string(level)})
	if err := r.Client.Get(ctx, endpoint, &resp); err != nil {
		return nil, err
	}
	return mapper.OrgUnitsToDomain(resp)
}

func (r HTTPOrgUnits) GetByID(ctx context.Context, id string) (domain.OrgUnit, error) {
	var resp mapper.OrgUnitDTO
	if err := r.Client.Get(ctx, client.Path("units", id), &resp); err != nil {
		return domain.OrgUnit{}, err
	}
	return mapper.OrgUnitToDomain(resp)
}

func (r HTTPOrgUnits) GetByOwner(ctx context.Context, parentID string) ([]domain.OrgUnit, error) {
	var resp []mapper.OrgUnitDTO
	if err := r.Client.Get(ctx, client.Path("units", parentID, "children"), &resp); err != nil {
		return nil, err
	}
	return mapper.OrgUnitsToDomain(resp)
}

func (r HTTPOrgUnits) Create(ctx context.Context, level domain.UnitLevel, req domain.OrgUnitRequest) (domain.OrgUnit, error) {
	var resp mapper.OrgUnitDTO
	if err := r.Client.Post(ctx, "units", mapper.OrgUnitRequestToWire(level, req), &resp); err != nil {
		return domain.OrgUnit{}, err
	}
	return mapper.OrgUnitToDomain(resp)
}

func (r HTTPOrgUnits) Update(ctx context.Context, id string, req domain.OrgUnitRequest) (domain.OrgUnit, error) {
	var resp mapper.OrgUnitDTO
	if err := r.Client.Patch(ctx, client.Path("units", id), mapper.OrgUnitRequestToWire("", req), &resp); err != nil {
		return domain.OrgUnit{}, err
	}
	return mapper.OrgUnitToDomain(resp)
}

func (r HTTPOrgUnits) Delete(ctx context.Context, id string) error {
	return r.Client.Delete(ctx, client.Path("units", id))
}

// HTTPAccounts implements AccountRepository over the reporting API.
type HTTPAccounts struct {
	Client *client.Client
}

func (r HTTPAccounts) GetAll(ctx context.Context) ([]domain.Account, error) {
	var resp []mapper.AccountDTO
	if err := r.Client.Get(ctx, "accounts", &resp); err != nil {
		return nil, err
	}
	return mapper.AccountsToDomain(resp)
}

func (r HTTPAccounts) GetByID(ctx context.Context, id string) (domain.Account, error) {
	var resp mapper.AccountDTO
	if err := r.Client.Get(ctx, client.Path("accounts", id), &resp); err != nil {
		return domain.Account{}, err
	}
	return mapper.AccountToDomain(resp)
}

func (r HTTPAccounts) GetByOwner(ctx context.Context, subjectID string) ([]domain.Account, error) {
	var resp []mapper.AccountDTO
	if err := r.Client.Get(ctx, client.Path("disciples", subjectID, "accounts"), &resp); err != nil {
		return nil, err
	}
	return mapper.AccountsToDomain(resp)
}

func (r HTTPAccounts) Create(ctx context.Context, req domain.AccountRequest) (domain.Account, error) {
	var resp mapper.AccountDTO
	if err := r.Client.Post(ctx, "accounts", mapper.AccountRequestToWire(req), &resp); err != nil {
		return domain.Account{}, err
	}
	return mapper.AccountToDomain(resp)
}

func (r HTTPAccounts) Update(ctx context.Context, id string, req domain.AccountRequest) (domain.Account, error) {
	var resp mapper.AccountDTO
	if err := r.Client.Patch(ctx, client.Path("accounts", id), mapper.AccountRequestToWire(req), &resp); err != nil {
		return domain.Account{}, err
	}
	return mapper.AccountToDomain(resp)
}

func (r HTTPAccounts) Delete(ctx context.Context, id string) error {
	return r.Client.Delete(ctx, client.Path("accounts", id))
}
