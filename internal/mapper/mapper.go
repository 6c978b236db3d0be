package mapper

import (
	"fmt"
	"time"

	"suivi/internal/domain"
)

const DateLayout = "2006-01-02"

// ParseDate reads a YYYY-MM-DD calendar date as UTC midnight.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(DateLayout)
}

func parseTimestamp(field, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s %q: %w", field, s, err)
	}
	return t, nil
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func ReportToDomain(in ReportDTO) (domain.Report, error) {
	date, err := ParseDate(in.Date)
	if err != nil {
		return domain.Report{}, err
	}
	status := domain.ReportStatus(in.Status)
	if !status.Valid() {
		return domain.Report{}, fmt.Errorf("invalid report status %q", in.Status)
	}
	created, err := parseTimestamp("created_at", in.CreatedAt)
	if err != nil {
		return domain.Report{}, err
	}
	updated, err := parseTimestamp("updated_at", in.UpdatedAt)
	if err != nil {
		return domain.Report{}, err
	}
	activities := in.Activities
	if activities == nil {
		activities = map[string]any{}
	}
	return domain.Report{
		ID:         in.ID,
		SubjectID:  in.DiscipleID,
		Date:       date,
		Status:     status,
		Reviewed:   in.Reviewed,
		Comment:    in.Comment,
		Activities: activities,
		CreatedAt:  created,
		UpdatedAt:  updated,
	}, nil
}

func ReportsToDomain(in []ReportDTO) ([]domain.Report, error) {
	out := make([]domain.Report, 0, len(in))
	for _, dto := range in {
		r, err := ReportToDomain(dto)
		if err != nil {
			return nil, fmt.Errorf("report %s: %w", dto.ID, err)
		}
		out = append(out, r)
	}
	return out, nil
}

func ReportFromDomain(r domain.Report) ReportDTO {
	return ReportDTO{
		ID:         r.ID,
		DiscipleID: r.SubjectID,
		Date:       FormatDate(r.Date),
		Status:     string(r.Status),
		Reviewed:   r.Reviewed,
		Comment:    r.Comment,
		Activities: r.Activities,
		CreatedAt:  formatTimestamp(r.CreatedAt),
		UpdatedAt:  formatTimestamp(r.UpdatedAt),
	}
}

func ReportRequestToWire(req domain.ReportRequest) ReportWriteDTO {
	return ReportWriteDTO{
		Date:       FormatDate(req.Date),
		Activities: req.Activities,
	}
}

func ReportRequestFromWire(in ReportWriteDTO) (domain.ReportRequest, error) {
	req := domain.ReportRequest{Activities: in.Activities}
	if in.Date != "" {
		d, err := ParseDate(in.Date)
		if err != nil {
			return req, err
		}
		req.Date = d
	}
	return req, nil
}

func SubjectToDomain(in SubjectDTO) domain.Subject {
	return domain.Subject{
		ID:           in.ID,
		Name:         in.Name,
		Role:         domain.ParseRole(in.Role),
		SupervisorID: deref(in.SupervisorID),
		RegionID:     deref(in.RegionID),
		ZoneID:       deref(in.ZoneID),
		LocalUnitID:  deref(in.LocalUnitID),
		SubUnitID:    deref(in.SubUnitID),
	}
}

func SubjectsToDomain(in []SubjectDTO) []domain.Subject {
	out := make([]domain.Subject, 0, len(in))
	for _, dto := range in {
		out = append(out, SubjectToDomain(dto))
	}
	return out
}

func SubjectFromDomain(s domain.Subject) SubjectDTO {
	return SubjectDTO{
		ID:           s.ID,
		Name:         s.Name,
		Role:         s.Role.String(),
		SupervisorID: optional(s.SupervisorID),
		RegionID:     optional(s.RegionID),
		ZoneID:       optional(s.ZoneID),
		LocalUnitID:  optional(s.LocalUnitID),
		SubUnitID:    optional(s.SubUnitID),
	}
}

func SubjectRequestToWire(req domain.SubjectRequest) SubjectWriteDTO {
	return SubjectWriteDTO{
		Name:         req.Name,
		Role:         roleToWire(req.Role),
		SupervisorID: req.SupervisorID,
		RegionID:     req.RegionID,
		ZoneID:       req.ZoneID,
		LocalUnitID:  req.LocalUnitID,
		SubUnitID:    req.SubUnitID,
	}
}

func SubjectRequestFromWire(in SubjectWriteDTO) domain.SubjectRequest {
	return domain.SubjectRequest{
		Name:         in.Name,
		Role:         roleFromWire(in.Role),
		SupervisorID: in.SupervisorID,
		RegionID:     in.RegionID,
		ZoneID:       in.ZoneID,
		LocalUnitID:  in.LocalUnitID,
		SubUnitID:    in.SubUnitID,
	}
}

func OrgUnitToDomain(in OrgUnitDTO) (domain.OrgUnit, error) {
	level := domain.UnitLevel(in.Level)
	if !level.Valid() {
		return domain.OrgUnit{}, fmt.Errorf("invalid unit level %q", in.Level)
	}
	return domain.OrgUnit{
		ID:         in.ID,
		Level:      level,
		Name:       in.Name,
		ParentID:   deref(in.ParentID),
		ChildCount: in.ChildCount,
	}, nil
}

func OrgUnitsToDomain(in []OrgUnitDTO) ([]domain.OrgUnit, error) {
	out := make([]domain.OrgUnit, 0, len(in))
	for _, dto := range in {
		u, err := OrgUnitToDomain(dto)
		if err != nil {
			return nil, fmt.Errorf("unit %s: %w", dto.ID, err)
		}
		out = append(out, u)
	}
	return out, nil
}

func OrgUnitFromDomain(u domain.OrgUnit) OrgUnitDTO {
	return OrgUnitDTO{
		ID:         u.ID,
		Level:      string(u.Level),
		Name:       u.Name,
		ParentID:   optional(u.ParentID),
		ChildCount: u.ChildCount,
	}
}

func OrgUnitRequestToWire(level domain.UnitLevel, req domain.OrgUnitRequest) OrgUnitWriteDTO {
	return OrgUnitWriteDTO{Level: string(level), Name: req.Name, ParentID: req.ParentID}
}

func AccountToDomain(in AccountDTO) (domain.Account, error) {
	created, err := parseTimestamp("created_at", in.CreatedAt)
	if err != nil {
		return domain.Account{}, err
	}
	return domain.Account{
		ID:        in.ID,
		SubjectID: in.SubjectID,
		Email:     in.Email,
		Role:      domain.ParseRole(in.Role),
		Active:    in.Active,
		CreatedAt: created,
	}, nil
}

func AccountsToDomain(in []AccountDTO) ([]domain.Account, error) {
	out := make([]domain.Account, 0, len(in))
	for _, dto := range in {
		a, err := AccountToDomain(dto)
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", dto.ID, err)
		}
		out = append(out, a)
	}
	return out, nil
}

func AccountFromDomain(a domain.Account) AccountDTO {
	return AccountDTO{
		ID:        a.ID,
		SubjectID: a.SubjectID,
		Email:     a.Email,
		Role:      a.Role.String(),
		Active:    a.Active,
		CreatedAt: formatTimestamp(a.CreatedAt),
	}
}

func AccountRequestToWire(req domain.AccountRequest) AccountWriteDTO {
	return AccountWriteDTO{
		SubjectID: req.SubjectID,
		Email:     req.Email,
		Role:      roleToWire(req.Role),
		Active:    req.Active,
	}
}

func AccountRequestFromWire(in AccountWriteDTO) domain.AccountRequest {
	return domain.AccountRequest{
		SubjectID: in.SubjectID,
		Email:     in.Email,
		Role:      roleFromWire(in.Role),
		Active:    in.Active,
	}
}

func roleToWire(r *domain.Role) string {
	if r == nil {
		return ""
	}
	return r.String()
}

func roleFromWire(s string) *domain.Role {
	if s == "" {
		return nil
	}
	r := domain.ParseRole(s)
	return &r
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
