package facade

import (
	"context"

	"suivi/internal/cache"
	"suivi/internal/domain"
	"suivi/internal/identity"
	"suivi/internal/lifecycle"
	"suivi/internal/repo"
	"suivi/internal/visibility"
)

const actionView = "view"

func reportKey(r domain.Report) string { return r.ID }

// Reports is the facade over activity reports. Every transition is checked
// against the lifecycle and the viewer's scope before the repository is called.
type Reports struct {
	*base[domain.Report]
	repo     repo.ReportRepository
	resolver visibility.Resolver
}

func NewReports(r repo.ReportRepository, id identity.Provider, resolver visibility.Resolver, opts ...Option) *Reports {
	return &Reports{
		base:     newBase("reports", reportKey, id, buildOptions(opts)),
		repo:     r,
		resolver: resolver,
	}
}

// Load fetches the viewer's own reports.
func (f *Reports) Load(ctx context.Context) error {
	v, err := f.viewer("load")
	if err != nil {
		return err
	}
	return f.load(ctx, "load", func(ctx context.Context) ([]domain.Report, error) {
		return f.repo.GetByOwner(ctx, v.ID)
	})
}

// LoadAll fetches every report. Restricted to roles that administer the hierarchy.
func (f *Reports) LoadAll(ctx context.Context) error {
	v, err := f.viewer("load_all")
	if err != nil {
		return err
	}
	if !visibility.CanAdminister(v.Role) {
		return f.reject("load_all", &visibility.ForbiddenError{Role: v.Role, Action: "view all reports"})
	}
	return f.load(ctx, "load_all", f.repo.GetAll)
}

// LoadFor fetches the reports of one subject the viewer can see.
func (f *Reports) LoadFor(ctx context.Context, subjectID string) error {
	v, err := f.viewer("load_for")
	if err != nil {
		return err
	}
	if !f.resolver.CanSee(v, subjectID) {
		return f.reject("load_for", &visibility.ForbiddenError{Role: v.Role, Action: actionView})
	}
	return f.load(ctx, "load_for", func(ctx context.Context) ([]domain.Report, error) {
		return f.repo.GetByOwner(ctx, subjectID)
	})
}

// LoadForMany fetches the reports of several subjects concurrently. An empty
// list empties the collection without a request.
func (f *Reports) LoadForMany(ctx context.Context, subjectIDs []string) error {
	if len(subjectIDs) == 0 {
		return f.loadMany(ctx, "load_for_many", nil, nil)
	}
	v, err := f.viewer("load_for_many")
	if err != nil {
		return err
	}
	for _, id := range subjectIDs {
		if !f.resolver.CanSee(v, id) {
			return f.reject("load_for_many", &visibility.ForbiddenError{Role: v.Role, Action: actionView})
		}
	}
	return f.loadMany(ctx, "load_for_many", subjectIDs, f.repo.GetByOwner)
}

// LoadTeam fetches the reports of every subject the viewer supervises.
func (f *Reports) LoadTeam(ctx context.Context) error {
	v, err := f.viewer("load_team")
	if err != nil {
		return err
	}
	if !visibility.CanViewOthers(v.Role) {
		return f.reject("load_team", &visibility.ForbiddenError{Role: v.Role, Action: actionView})
	}
	return f.LoadForMany(ctx, f.resolver.SupervisedSubjects(v.Role, v.ID))
}

// Create stores a new draft for the viewer and puts it first.
func (f *Reports) Create(ctx context.Context, req domain.ReportRequest) (domain.Report, error) {
	if _, err := f.viewer("create"); err != nil {
		return domain.Report{}, err
	}
	return f.mutate(ctx, "create", func(ctx context.Context) (domain.Report, error) {
		return f.repo.Create(ctx, req)
	}, f.state.Prepend)
}

func (f *Reports) Update(ctx context.Context, id string, req domain.ReportRequest) (domain.Report, error) {
	return f.transition(ctx, visibility.ActionEdit, id, func(ctx context.Context) (domain.Report, error) {
		return f.repo.Update(ctx, id, req)
	})
}

func (f *Reports) Delete(ctx context.Context, id string) error {
	if _, err := f.guard(ctx, visibility.ActionDelete, id); err != nil {
		return err
	}
	return f.remove(ctx, string(visibility.ActionDelete), id, func(ctx context.Context) error {
		return f.repo.Delete(ctx, id)
	})
}

func (f *Reports) Submit(ctx context.Context, id string) (domain.Report, error) {
	return f.transition(ctx, visibility.ActionSubmit, id, func(ctx context.Context) (domain.Report, error) {
		return f.repo.Submit(ctx, id)
	})
}

func (f *Reports) Validate(ctx context.Context, id string) (domain.Report, error) {
	return f.transition(ctx, visibility.ActionValidate, id, func(ctx context.Context) (domain.Report, error) {
		return f.repo.Validate(ctx, id)
	})
}

func (f *Reports) MarkReviewed(ctx context.Context, id string) (domain.Report, error) {
	return f.transition(ctx, visibility.ActionMarkReviewed, id, func(ctx context.Context) (domain.Report, error) {
		return f.repo.MarkReviewed(ctx, id)
	})
}

func (f *Reports) Comment(ctx context.Context, id, comment string) (domain.Report, error) {
	return f.transition(ctx, visibility.ActionComment, id, func(ctx context.Context) (domain.Report, error) {
		return f.repo.Comment(ctx, id, comment)
	})
}

// transition guards action on report id, calls the endpoint and replaces the
// cached report with the server's answer.
func (f *Reports) transition(ctx context.Context, action visibility.Action, id string, call func(context.Context) (domain.Report, error)) (domain.Report, error) {
	if _, err := f.guard(ctx, action, id); err != nil {
		return domain.Report{}, err
	}
	return f.mutate(ctx, string(action), call, f.state.Replace)
}

func (f *Reports) guard(ctx context.Context, action visibility.Action, id string) (domain.Report, error) {
	op := string(action)
	v, err := f.viewer(op)
	if err != nil {
		return domain.Report{}, err
	}
	if !visibility.Allowed(v.Role, action) {
		return domain.Report{}, f.reject(op, &visibility.ForbiddenError{Role: v.Role, Action: op})
	}
	report, err := f.lookup(ctx, op, id, reportKey, f.repo.GetByID)
	if err != nil {
		return domain.Report{}, err
	}
	if visibility.IsSupervisorAction(action) && !f.resolver.CanSee(v, report.SubjectID) {
		return domain.Report{}, f.reject(op, &visibility.ForbiddenError{Role: v.Role, Action: op})
	}
	if err := lifecycle.Check(action, v, report); err != nil {
		return domain.Report{}, f.reject(op, err)
	}
	return report, nil
}

// ByStatus returns the cached reports in status.
func (f *Reports) ByStatus(status domain.ReportStatus) []domain.Report {
	return cache.Filter(f.Items(), func(r domain.Report) bool { return r.Status == status })
}

// MostRecent returns the n latest reports by date, newest first.
func (f *Reports) MostRecent(n int) []domain.Report {
	return cache.TopN(f.Items(), n, func(a, b domain.Report) bool { return a.Date.Before(b.Date) })
}

func (f *Reports) Count(status domain.ReportStatus) int {
	return cache.Count(f.Items(), func(r domain.Report) bool { return r.Status == status })
}

// PendingReview returns submitted reports no supervisor has opened yet.
func (f *Reports) PendingReview() []domain.Report {
	return cache.Filter(f.Items(), func(r domain.Report) bool {
		return r.Status == domain.StatusSubmitted && !r.Reviewed
	})
}
