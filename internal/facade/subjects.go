package facade

import (
	"context"
	"errors"

	"suivi/internal/domain"
	"suivi/internal/identity"
	"suivi/internal/repo"
	"suivi/internal/visibility"
)

var ErrSupervisorCycle = errors.New("supervisor assignment would create a cycle")

func subjectKey(s domain.Subject) string { return s.ID }

// Subjects is the facade over disciples. Its loaded collection is the graph
// the visibility resolver walks.
type Subjects struct {
	*base[domain.Subject]
	repo repo.SubjectRepository
}

func NewSubjects(r repo.SubjectRepository, id identity.Provider, opts ...Option) *Subjects {
	return &Subjects{
		base: newBase("subjects", subjectKey, id, buildOptions(opts)),
		repo: r,
	}
}

// Subjects returns the loaded graph.
func (f *Subjects) Subjects() []domain.Subject { return f.Items() }

// Resolver returns a visibility resolver over this facade's graph.
func (f *Subjects) Resolver() visibility.Resolver { return visibility.New(f) }

func (f *Subjects) Load(ctx context.Context) error {
	return f.load(ctx, "load", f.repo.GetAll)
}

// LoadFor fetches the disciples directly supervised by supervisorID.
func (f *Subjects) LoadFor(ctx context.Context, supervisorID string) error {
	return f.load(ctx, "load_for", func(ctx context.Context) ([]domain.Subject, error) {
		return f.repo.GetByOwner(ctx, supervisorID)
	})
}

func (f *Subjects) LoadForMany(ctx context.Context, supervisorIDs []string) error {
	return f.loadMany(ctx, "load_for_many", supervisorIDs, f.repo.GetByOwner)
}

func (f *Subjects) Create(ctx context.Context, req domain.SubjectRequest) (domain.Subject, error) {
	if err := f.administer("create"); err != nil {
		return domain.Subject{}, err
	}
	return f.mutate(ctx, "create", func(ctx context.Context) (domain.Subject, error) {
		return f.repo.Create(ctx, req)
	}, f.state.Append)
}

func (f *Subjects) Update(ctx context.Context, id string, req domain.SubjectRequest) (domain.Subject, error) {
	if err := f.administer("update"); err != nil {
		return domain.Subject{}, err
	}
	return f.mutate(ctx, "update", func(ctx context.Context) (domain.Subject, error) {
		return f.repo.Update(ctx, id, req)
	}, f.state.Replace)
}

func (f *Subjects) Delete(ctx context.Context, id string) error {
	if err := f.administer("delete"); err != nil {
		return err
	}
	return f.remove(ctx, "delete", id, func(ctx context.Context) error {
		return f.repo.Delete(ctx, id)
	})
}

// AssignSupervisor re-links subjectID under supervisorID. An empty supervisorID
// detaches the subject. Links that would close a loop in the loaded graph are
// refused.
func (f *Subjects) AssignSupervisor(ctx context.Context, subjectID, supervisorID string) (domain.Subject, error) {
	if err := f.administer("assign_supervisor"); err != nil {
		return domain.Subject{}, err
	}
	if supervisorID != "" && f.reaches(supervisorID, subjectID) {
		return domain.Subject{}, f.reject("assign_supervisor", ErrSupervisorCycle)
	}
	req := domain.SubjectRequest{SupervisorID: &supervisorID}
	return f.mutate(ctx, "assign_supervisor", func(ctx context.Context) (domain.Subject, error) {
		return f.repo.Update(ctx, subjectID, req)
	}, f.state.Replace)
}

// reaches reports whether walking supervisor links up from id arrives at target.
func (f *Subjects) reaches(id, target string) bool {
	supervisor := make(map[string]string)
	for _, s := range f.Items() {
		supervisor[s.ID] = s.SupervisorID
	}
	seen := map[string]bool{}
	for cur := id; cur != "" && !seen[cur]; cur = supervisor[cur] {
		if cur == target {
			return true
		}
		seen[cur] = true
	}
	return false
}

func (f *Subjects) administer(op string) error {
	v, err := f.viewer(op)
	if err != nil {
		return err
	}
	if !visibility.CanAdminister(v.Role) {
		return f.reject(op, &visibility.ForbiddenError{Role: v.Role, Action: op + " disciples"})
	}
	return nil
}
