package repo

import (
	"context"
	"errors"
	"net/http"

	"suivi/internal/client"
	"suivi/internal/domain"
)

// ReportRepository is the remote store of activity reports. Transition calls
// return the server-confirmed report.
type ReportRepository interface {
	GetAll(ctx context.Context) ([]domain.Report, error)
	GetByID(ctx context.Context, id string) (domain.Report, error)
	GetByOwner(ctx context.Context, subjectID string) ([]domain.Report, error)
	Create(ctx context.Context, req domain.ReportRequest) (domain.Report, error)
	Update(ctx context.Context, id string, req domain.ReportRequest) (domain.Report, error)
	Delete(ctx context.Context, id string) error
	Submit(ctx context.Context, id string) (domain.Report, error)
	Validate(ctx context.Context, id string) (domain.Report, error)
	MarkReviewed(ctx context.Context, id string) (domain.Report, error)
	Comment(ctx context.Context, id, comment string) (domain.Report, error)
}

// SubjectRepository is the remote store of disciples. GetByOwner lists the
// subjects directly supervised by the given subject.
type SubjectRepository interface {
	GetAll(ctx context.Context) ([]domain.Subject, error)
	GetByID(ctx context.Context, id string) (domain.Subject, error)
	GetByOwner(ctx context.Context, supervisorID string) ([]domain.Subject, error)
	Create(ctx context.Context, req domain.SubjectRequest) (domain.Subject, error)
	Update(ctx context.Context, id string, req domain.SubjectRequest) (domain.Subject, error)
	Delete(ctx context.Context, id string) error
}

// OrgUnitRepository is the remote store of organizational units. GetByOwner
// lists the children of a parent unit.
type OrgUnitRepository interface {
	GetAll(ctx context.Context, level domain.UnitLevel) ([]domain.OrgUnit, error)
	GetByID(ctx context.Context, id string) (domain.OrgUnit, error)
	GetByOwner(ctx context.Context, parentID string) ([]domain.OrgUnit, error)
	Create(ctx context.Context, level domain.UnitLevel, req domain.OrgUnitRequest) (domain.OrgUnit, error)
	Update(ctx context.Context, id string, req domain.OrgUnitRequest) (domain.OrgUnit, error)
	Delete(ctx context.Context, id string) error
}

type AccountRepository interface {
	GetAll(ctx context.Context) ([]domain.Account, error)
	GetByID(ctx context.Context, id string) (domain.Account, error)
	GetByOwner(ctx context.Context, subjectID string) ([]domain.Account, error)
	Create(ctx context.Context, req domain.AccountRequest) (domain.Account, error)
	Update(ctx context.Context, id string, req domain.AccountRequest) (domain.Account, error)
	Delete(ctx context.Context, id string) error
}

// IsNotFound reports whether err is a 404 from the remote service.
func IsNotFound(err error) bool {
	return StatusOf(err) == http.StatusNotFound
}

// StatusOf returns the HTTP status carried by err, or 0 for non-API errors.
func StatusOf(err error) int {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
