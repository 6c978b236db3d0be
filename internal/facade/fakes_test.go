package facade

import (
	"context"
	"fmt"
	"sync"
	"time"

	"suivi/internal/client"
	"suivi/internal/domain"
	"suivi/internal/lifecycle"
	"suivi/internal/visibility"
)

var errNotFound = &client.APIError{Status: 404, Code: "not_found", Message: "not found"}

// fakeReports is an in-memory ReportRepository that counts calls. Per-owner
// delays let tests control completion order of concurrent fetches.
type fakeReports struct {
	mu      sync.Mutex
	reports map[string]domain.Report
	order   []string
	calls   map[string]int
	delay   map[string]time.Duration
	fail    map[string]error
	seq     int
	owner   string
	now     time.Time
}

func newFakeReports(reports ...domain.Report) *fakeReports {
	f := &fakeReports{
		reports: map[string]domain.Report{},
		calls:   map[string]int{},
		delay:   map[string]time.Duration{},
		fail:    map[string]error{},
		now:     time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	for _, r := range reports {
		f.reports[r.ID] = r
		f.order = append(f.order, r.ID)
	}
	return f
}

func (f *fakeReports) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeReports) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeReports) enter(op, key string) (time.Duration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	return f.delay[key], f.fail[key]
}

func (f *fakeReports) GetAll(ctx context.Context) ([]domain.Report, error) {
	if _, err := f.enter("get_all", ""); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Report, 0, len(f.order))
	for _, id := range f.order {
		if r, ok := f.reports[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeReports) GetByID(ctx context.Context, id string) (domain.Report, error) {
	if _, err := f.enter("get_by_id", id); err != nil {
		return domain.Report{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reports[id]
	if !ok {
		return domain.Report{}, errNotFound
	}
	return r, nil
}

func (f *fakeReports) GetByOwner(ctx context.Context, owner string) ([]domain.Report, error) {
	delay, err := f.enter("get_by_owner", owner)
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Report
	for _, id := range f.order {
		if r, ok := f.reports[id]; ok && r.SubjectID == owner {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeReports) Create(ctx context.Context, req domain.ReportRequest) (domain.Report, error) {
	if _, err := f.enter("create", ""); err != nil {
		return domain.Report{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	r := lifecycle.New(f.owner, req, f.now)
	r.ID = fmt.Sprintf("new-%d", f.seq)
	f.reports[r.ID] = r
	f.order = append(f.order, r.ID)
	return r, nil
}

func (f *fakeReports) Update(ctx context.Context, id string, req domain.ReportRequest) (domain.Report, error) {
	return f.apply("update", visibility.ActionEdit, id, lifecycle.Change{Request: req})
}

func (f *fakeReports) Delete(ctx context.Context, id string) error {
	if _, err := f.enter("delete", id); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.reports[id]; !ok {
		return errNotFound
	}
	delete(f.reports, id)
	return nil
}

func (f *fakeReports) Submit(ctx context.Context, id string) (domain.Report, error) {
	return f.apply("submit", visibility.ActionSubmit, id, lifecycle.Change{})
}

func (f *fakeReports) Validate(ctx context.Context, id string) (domain.Report, error) {
	return f.apply("validate", visibility.ActionValidate, id, lifecycle.Change{})
}

func (f *fakeReports) MarkReviewed(ctx context.Context, id string) (domain.Report, error) {
	return f.apply("mark_reviewed", visibility.ActionMarkReviewed, id, lifecycle.Change{})
}

func (f *fakeReports) Comment(ctx context.Context, id, comment string) (domain.Report, error) {
	return f.apply("comment", visibility.ActionComment, id, lifecycle.Change{Comment: comment})
}

func (f *fakeReports) apply(op string, action visibility.Action, id string, change lifecycle.Change) (domain.Report, error) {
	if _, err := f.enter(op, id); err != nil {
		return domain.Report{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reports[id]
	if !ok {
		return domain.Report{}, errNotFound
	}
	next, err := lifecycle.Apply(action, r, change, f.now)
	if err != nil {
		return domain.Report{}, &client.APIError{Status: 409, Code: "conflict", Message: err.Error()}
	}
	f.reports[id] = next
	return next, nil
}

// fakeSubjects backs the subject and visibility tests.
type fakeSubjects struct {
	mu       sync.Mutex
	subjects []domain.Subject
	calls    int
}

func (f *fakeSubjects) hit() {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
}

func (f *fakeSubjects) GetAll(ctx context.Context) ([]domain.Subject, error) {
	f.hit()
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Subject(nil), f.subjects...), nil
}

func (f *fakeSubjects) GetByID(ctx context.Context, id string) (domain.Subject, error) {
	f.hit()
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.subjects {
		if s.ID == id {
			return s, nil
		}
	}
	return domain.Subject{}, errNotFound
}

func (f *fakeSubjects) GetByOwner(ctx context.Context, supervisorID string) ([]domain.Subject, error) {
	f.hit()
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Subject
	for _, s := range f.subjects {
		if s.SupervisorID == supervisorID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSubjects) Create(ctx context.Context, req domain.SubjectRequest) (domain.Subject, error) {
	f.hit()
	f.mu.Lock()
	defer f.mu.Unlock()
	s := domain.Subject{ID: fmt.Sprintf("s%d", len(f.subjects)+1), Name: req.Name}
	if req.Role != nil {
		s.Role = *req.Role
	}
	if req.SupervisorID != nil {
		s.SupervisorID = *req.SupervisorID
	}
	f.subjects = append(f.subjects, s)
	return s, nil
}

func (f *fakeSubjects) Update(ctx context.Context, id string, req domain.SubjectRequest) (domain.Subject, error) {
	f.hit()
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, s := range f.subjects {
		if s.ID != id {
			continue
		}
		if req.Name != "" {
			s.Name = req.Name
		}
		if req.SupervisorID != nil {
			s.SupervisorID = *req.SupervisorID
		}
		f.subjects[i] = s
		return s, nil
	}
	return domain.Subject{}, errNotFound
}

func (f *fakeSubjects) Delete(ctx context.Context, id string) error {
	f.hit()
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, s := range f.subjects {
		if s.ID == id {
			f.subjects = append(f.subjects[:i], f.subjects[i+1:]...)
			return nil
		}
	}
	return errNotFound
}

// fakeUnits keeps child counts consistent the way the server does.
type fakeUnits struct {
	mu    sync.Mutex
	units []domain.OrgUnit
	calls map[string]int
}

func newFakeUnits(units ...domain.OrgUnit) *fakeUnits {
	return &fakeUnits{units: units, calls: map[string]int{}}
}

func (f *fakeUnits) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeUnits) GetAll(ctx context.Context, level domain.UnitLevel) ([]domain.OrgUnit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["get_all"]++
	var out []domain.OrgUnit
	for _, u := range f.units {
		if u.Level == level {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeUnits) GetByID(ctx context.Context, id string) (domain.OrgUnit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["get_by_id"]++
	for _, u := range f.units {
		if u.ID == id {
			return u, nil
		}
	}
	return domain.OrgUnit{}, errNotFound
}

func (f *fakeUnits) GetByOwner(ctx context.Context, parentID string) ([]domain.OrgUnit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["get_by_owner"]++
	var out []domain.OrgUnit
	for _, u := range f.units {
		if u.ParentID == parentID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeUnits) Create(ctx context.Context, level domain.UnitLevel, req domain.OrgUnitRequest) (domain.OrgUnit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["create"]++
	u := domain.OrgUnit{ID: fmt.Sprintf("u%d", len(f.units)+1), Level: level, Name: req.Name, ParentID: req.ParentID}
	f.units = append(f.units, u)
	f.adjust(req.ParentID, 1)
	return u, nil
}

func (f *fakeUnits) Update(ctx context.Context, id string, req domain.OrgUnitRequest) (domain.OrgUnit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["update"]++
	for i, u := range f.units {
		if u.ID == id {
			u.Name = req.Name
			f.units[i] = u
			return u, nil
		}
	}
	return domain.OrgUnit{}, errNotFound
}

func (f *fakeUnits) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["delete"]++
	for i, u := range f.units {
		if u.ID == id {
			f.units = append(f.units[:i], f.units[i+1:]...)
			f.adjust(u.ParentID, -1)
			return nil
		}
	}
	return errNotFound
}

func (f *fakeUnits) adjust(id string, delta int) {
	for i := range f.units {
		if f.units[i].ID == id {
			f.units[i].ChildCount += delta
		}
	}
}

type fakeAccounts struct {
	mu       sync.Mutex
	accounts []domain.Account
	calls    int
}

func (f *fakeAccounts) hit() {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
}

func (f *fakeAccounts) GetAll(ctx context.Context) ([]domain.Account, error) {
	f.hit()
	return append([]domain.Account(nil), f.accounts...), nil
}

func (f *fakeAccounts) GetByID(ctx context.Context, id string) (domain.Account, error) {
	f.hit()
	for _, a := range f.accounts {
		if a.ID == id {
			return a, nil
		}
	}
	return domain.Account{}, errNotFound
}

func (f *fakeAccounts) GetByOwner(ctx context.Context, subjectID string) ([]domain.Account, error) {
	f.hit()
	var out []domain.Account
	for _, a := range f.accounts {
		if a.SubjectID == subjectID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAccounts) Create(ctx context.Context, req domain.AccountRequest) (domain.Account, error) {
	f.hit()
	a := domain.Account{ID: fmt.Sprintf("a%d", len(f.accounts)+1), SubjectID: req.SubjectID, Email: req.Email, Active: true}
	f.accounts = append(f.accounts, a)
	return a, nil
}

func (f *fakeAccounts) Update(ctx context.Context, id string, req domain.AccountRequest) (domain.Account, error) {
	f.hit()
	for i, a := range f.accounts {
		if a.ID == id {
			if req.Active != nil {
				a.Active = *req.Active
			}
			f.accounts[i] = a
			return a, nil
		}
	}
	return domain.Account{}, errNotFound
}

func (f *fakeAccounts) Delete(ctx context.Context, id string) error {
	f.hit()
	for i, a := range f.accounts {
		if a.ID == id {
			f.accounts = append(f.accounts[:i], f.accounts[i+1:]...)
			return nil
		}
	}
	return errNotFound
}

// staticSubjects is a SubjectSource over a fixed graph.
type staticSubjects []domain.Subject

func (s staticSubjects) Subjects() []domain.Subject { return s }

func day(d int) time.Time { return time.Date(2024, 4, d, 0, 0, 0, 0, time.UTC) }
