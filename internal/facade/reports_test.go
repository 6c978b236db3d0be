package facade

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"suivi/internal/domain"
	"suivi/internal/identity"
	"suivi/internal/lifecycle"
	"suivi/internal/store"
	"suivi/internal/visibility"
)

var graph = staticSubjects{
	{ID: "lead", Role: domain.RoleLeader},
	{ID: "fd1", Role: domain.RoleFD, SupervisorID: "lead"},
	{ID: "u1", Role: domain.RoleFidele, SupervisorID: "fd1"},
	{ID: "u2", Role: domain.RoleFidele, SupervisorID: "fd1"},
	{ID: "other", Role: domain.RoleFidele},
}

// ReportsSuite exercises the report facade against a counting fake repository.
type ReportsSuite struct {
	suite.Suite
	ctx  context.Context
	repo *fakeReports
}

func TestReportsSuite(t *testing.T) {
	suite.Run(t, new(ReportsSuite))
}

func (s *ReportsSuite) SetupTest() {
	s.ctx = context.Background()
	s.repo = newFakeReports(
		domain.Report{ID: "r1", SubjectID: "u1", Date: day(1), Status: domain.StatusSubmitted},
		domain.Report{ID: "r2", SubjectID: "u1", Date: day(2), Status: domain.StatusDraft},
		domain.Report{ID: "r3", SubjectID: "u2", Date: day(3), Status: domain.StatusSubmitted},
		domain.Report{ID: "r4", SubjectID: "fd1", Date: day(4), Status: domain.StatusDraft},
		domain.Report{ID: "r5", SubjectID: "other", Date: day(5), Status: domain.StatusSubmitted},
	)
}

func (s *ReportsSuite) as(viewerID string, role domain.Role) *Reports {
	return NewReports(s.repo, identity.Static{ID: viewerID, Role: role}, visibility.New(graph))
}

func (s *ReportsSuite) TestLoadForManyFlattensInIDOrder() {
	s.Run("u1 slower than u2", func() {
		s.repo.delay["u1"] = 30 * time.Millisecond
		f := s.as("fd1", domain.RoleFD)
		s.Require().NoError(f.LoadForMany(s.ctx, []string{"u1", "u2"}))
		s.Equal([]string{"r1", "r2", "r3"}, ids(f.Items()))
		s.False(f.Loading())
	})

	s.Run("u2 slower than u1", func() {
		s.repo.delay = map[string]time.Duration{"u2": 30 * time.Millisecond}
		f := s.as("fd1", domain.RoleFD)
		s.Require().NoError(f.LoadForMany(s.ctx, []string{"u1", "u2"}))
		s.Len(f.Items(), 3)
		s.Equal([]string{"r1", "r2", "r3"}, ids(f.Items()))
	})
}

func (s *ReportsSuite) TestLoadForManyEmptyIssuesNoRequest() {
	f := s.as("fd1", domain.RoleFD)
	s.Require().NoError(f.LoadFor(s.ctx, "u1"))
	before := s.repo.total()

	var states []store.State[domain.Report]
	cancel := f.Subscribe(func(st store.State[domain.Report]) { states = append(states, st) })
	defer cancel()

	s.Require().NoError(f.LoadForMany(s.ctx, nil))
	s.Require().NoError(f.LoadForMany(s.ctx, []string{}))
	s.Equal(before, s.repo.total())
	s.Empty(f.Items())
	for _, st := range states {
		s.False(st.Loading)
	}
}

func (s *ReportsSuite) TestLoadForManyFailFast() {
	boom := errors.New("u2 unavailable")
	s.repo.fail["u2"] = boom
	s.repo.delay["u1"] = 50 * time.Millisecond
	f := s.as("fd1", domain.RoleFD)
	s.Require().NoError(f.LoadFor(s.ctx, "u1"))

	err := f.LoadForMany(s.ctx, []string{"u1", "u2"})
	s.ErrorIs(err, boom)
	s.ErrorIs(f.Err(), boom)
	s.Equal([]string{"r1", "r2"}, ids(f.Items()), "previous contents survive a failed load")
	s.False(f.Loading())
}

func (s *ReportsSuite) TestLoadForOutsideScopeRejected() {
	f := s.as("fd1", domain.RoleFD)
	err := f.LoadFor(s.ctx, "other")
	var forbidden *visibility.ForbiddenError
	s.ErrorAs(err, &forbidden)
	s.Zero(s.repo.total())

	err = f.LoadForMany(s.ctx, []string{"u1", "other"})
	s.ErrorAs(err, &forbidden)
	s.Zero(s.repo.total())
}

func (s *ReportsSuite) TestLoadTeamUsesSupervisedSet() {
	f := s.as("lead", domain.RoleLeader)
	s.Require().NoError(f.LoadTeam(s.ctx))
	s.ElementsMatch([]string{"r1", "r2", "r3", "r4"}, ids(f.Items()))

	fidele := s.as("u1", domain.RoleFidele)
	s.Error(fidele.LoadTeam(s.ctx))
}

func (s *ReportsSuite) TestLeaderValidatesSubmittedReport() {
	f := s.as("lead", domain.RoleLeader)
	s.Require().NoError(f.LoadFor(s.ctx, "u1"))

	got, err := f.Validate(s.ctx, "r1")
	s.Require().NoError(err)
	s.Equal(domain.StatusValidated, got.Status)
	s.True(got.Reviewed)

	cached, ok := f.Get("r1")
	s.Require().True(ok)
	s.Equal(domain.StatusValidated, cached.Status)
	s.Equal([]string{"r1", "r2"}, ids(f.Items()), "transition keeps position")
}

func (s *ReportsSuite) TestFideleValidateRejectedWithoutRequest() {
	for _, role := range []domain.Role{domain.RoleFidele, domain.Role(42)} {
		s.Run(role.String(), func() {
			before := s.repo.total()
			f := s.as("u1", role)
			_, err := f.Validate(s.ctx, "r1")
			var forbidden *visibility.ForbiddenError
			s.ErrorAs(err, &forbidden)
			s.Equal(before, s.repo.total())
			s.Equal(err.Error(), f.ErrorMessage())
		})
	}
}

func (s *ReportsSuite) TestDraftCannotBeValidated() {
	f := s.as("fd1", domain.RoleFD)
	s.Require().NoError(f.LoadFor(s.ctx, "u1"))
	_, err := f.Validate(s.ctx, "r2")
	var te *lifecycle.TransitionError
	s.ErrorAs(err, &te)
	s.Zero(s.repo.count("validate"))
}

func (s *ReportsSuite) TestOwnerFlowDraftToSubmitted() {
	s.repo.owner = "u1"
	f := s.as("u1", domain.RoleFidele)
	s.Require().NoError(f.Load(s.ctx))

	created, err := f.Create(s.ctx, domain.ReportRequest{Date: day(9), Activities: map[string]any{"prayer_minutes": 30}})
	s.Require().NoError(err)
	s.Equal(created.ID, f.Items()[0].ID, "new report is listed first")
	s.Equal(domain.StatusDraft, created.Status)

	f.Select(&created)
	updated, err := f.Update(s.ctx, created.ID, domain.ReportRequest{Activities: map[string]any{"prayer_minutes": 45}})
	s.Require().NoError(err)
	s.Equal(45, f.Selected().Activities["prayer_minutes"], "selection follows the update")

	submitted, err := f.Submit(s.ctx, updated.ID)
	s.Require().NoError(err)
	s.Equal(domain.StatusSubmitted, submitted.Status)

	_, err = f.Update(s.ctx, created.ID, domain.ReportRequest{})
	var te *lifecycle.TransitionError
	s.ErrorAs(err, &te)
	s.Equal(1, s.repo.count("update"))
}

func (s *ReportsSuite) TestCannotEditSomeoneElsesDraft() {
	f := s.as("fd1", domain.RoleFD)
	s.Require().NoError(f.LoadFor(s.ctx, "u1"))
	_, err := f.Update(s.ctx, "r2", domain.ReportRequest{})
	var te *lifecycle.TransitionError
	s.ErrorAs(err, &te)
	s.Zero(s.repo.count("update"))
}

func (s *ReportsSuite) TestGuardFetchesUncachedReport() {
	f := s.as("u1", domain.RoleFidele)
	_, err := f.Submit(s.ctx, "r2")
	s.Require().NoError(err)
	s.Equal(1, s.repo.count("get_by_id"))
	s.False(f.Loading())

	_, err = f.Submit(s.ctx, "missing")
	s.Error(err)
	s.Equal(1, s.repo.count("submit"))
}

func (s *ReportsSuite) TestDeleteClearsSelectionAndIsIdempotentLocally() {
	f := s.as("u1", domain.RoleFidele)
	s.Require().NoError(f.Load(s.ctx))
	r2, _ := f.Get("r2")
	f.Select(&r2)

	s.Require().NoError(f.Delete(s.ctx, "r2"))
	s.Nil(f.Selected())
	s.Equal([]string{"r1"}, ids(f.Items()))

	err := f.Delete(s.ctx, "r2")
	s.Error(err, "server no longer has it")
	s.Equal([]string{"r1"}, ids(f.Items()))
}

func (s *ReportsSuite) TestMostRecentTopTen() {
	var reports []domain.Report
	for i := 1; i <= 15; i++ {
		reports = append(reports, domain.Report{ID: fmt.Sprintf("x%02d", i), SubjectID: "u1", Date: day(i), Status: domain.StatusDraft})
	}
	s.repo = newFakeReports(reports...)
	f := s.as("u1", domain.RoleFidele)
	s.Require().NoError(f.Load(s.ctx))

	top := f.MostRecent(10)
	s.Require().Len(top, 10)
	s.Equal("x15", top[0].ID)
	s.Equal("x06", top[9].ID)
	for i := 1; i < len(top); i++ {
		s.True(top[i-1].Date.After(top[i].Date))
	}
	s.Equal(top, f.MostRecent(10))
}

func (s *ReportsSuite) TestViews() {
	f := s.as("lead", domain.RoleLeader)
	s.Require().NoError(f.LoadForMany(s.ctx, []string{"u1", "u2", "fd1"}))
	s.Equal(2, f.Count(domain.StatusSubmitted))
	s.Equal([]string{"r2", "r4"}, ids(f.ByStatus(domain.StatusDraft)))
	s.Equal([]string{"r1", "r3"}, ids(f.PendingReview()))

	_, err := f.MarkReviewed(s.ctx, "r3")
	s.Require().NoError(err)
	s.Equal([]string{"r1"}, ids(f.PendingReview()))

	got, err := f.Comment(s.ctx, "r1", "well done")
	s.Require().NoError(err)
	s.Equal("well done", got.Comment)
}

func (s *ReportsSuite) TestServerErrorPublishedAndCleared() {
	s.repo.fail["u1"] = errors.New("503 service unavailable")
	f := s.as("u1", domain.RoleFidele)
	s.Error(f.Load(s.ctx))
	s.Equal("503 service unavailable", f.ErrorMessage())
	f.ClearError()
	s.Empty(f.ErrorMessage())
}

func (s *ReportsSuite) TestMissingSessionRejected() {
	f := NewReports(s.repo, identity.Static{}, visibility.New(graph))
	s.ErrorIs(f.Load(s.ctx), identity.ErrNoSession)
	_, err := f.Create(s.ctx, domain.ReportRequest{Date: day(9)})
	s.ErrorIs(err, identity.ErrNoSession)
	s.ErrorIs(f.Err(), identity.ErrNoSession)
	s.Zero(s.repo.total())
	s.Empty(f.Items())
}

func (s *ReportsSuite) TestClearResetsEverything() {
	f := s.as("u1", domain.RoleFidele)
	s.Require().NoError(f.Load(s.ctx))
	r1, _ := f.Get("r1")
	f.Select(&r1)
	_, _ = f.Validate(s.ctx, "r1")
	f.Clear()
	st := f.State()
	s.Empty(st.Items)
	s.Nil(st.Selected)
	s.NoError(st.Err)
	s.False(st.Loading)
}

func ids(reports []domain.Report) []string {
	out := make([]string, 0, len(reports))
	for _, r := range reports {
		out = append(out, r.ID)
	}
	return out
}
