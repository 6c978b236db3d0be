package lifecycle_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"suivi/internal/domain"
	"suivi/internal/lifecycle"
	"suivi/internal/visibility"
)

var now = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func draft(owner string) domain.Report {
	r := lifecycle.New(owner, domain.ReportRequest{
		Date:       time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC),
		Activities: map[string]any{"prayer_minutes": 30},
	}, now)
	r.ID = "r1"
	return r
}

func TestNewReportIsDraft(t *testing.T) {
	r := draft("u1")
	assert.Equal(t, domain.StatusDraft, r.Status)
	assert.False(t, r.Reviewed)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), r.Date)
}

func TestOwnerPath(t *testing.T) {
	owner := domain.Viewer{ID: "u1", Role: domain.RoleFidele}
	leader := domain.Viewer{ID: "l1", Role: domain.RoleLeader}
	r := draft("u1")

	require.NoError(t, lifecycle.Check(visibility.ActionEdit, owner, r))
	edited, err := lifecycle.Apply(visibility.ActionEdit, r, lifecycle.Change{Request: domain.ReportRequest{
		Activities: map[string]any{"prayer_minutes": 45},
	}}, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 45, edited.Activities["prayer_minutes"])
	assert.Equal(t, now.Add(time.Hour), edited.UpdatedAt)

	require.NoError(t, lifecycle.Check(visibility.ActionSubmit, owner, edited))
	submitted, err := lifecycle.Apply(visibility.ActionSubmit, edited, lifecycle.Change{}, now)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSubmitted, submitted.Status)

	require.Error(t, lifecycle.Check(visibility.ActionEdit, owner, submitted))
	require.Error(t, lifecycle.Check(visibility.ActionDelete, owner, submitted))

	require.NoError(t, lifecycle.Check(visibility.ActionValidate, leader, submitted))
	validated, err := lifecycle.Apply(visibility.ActionValidate, submitted, lifecycle.Change{}, now)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusValidated, validated.Status)
	assert.True(t, validated.Reviewed)
}

func TestDraftCannotBeValidatedDirectly(t *testing.T) {
	leader := domain.Viewer{ID: "l1", Role: domain.RoleLeader}
	r := draft("u1")

	err := lifecycle.Check(visibility.ActionValidate, leader, r)
	var te *lifecycle.TransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, domain.StatusDraft, te.Status)

	_, err = lifecycle.Apply(visibility.ActionValidate, r, lifecycle.Change{}, now)
	require.Error(t, err)
	assert.False(t, lifecycle.Reachable(domain.StatusDraft, domain.StatusValidated))
	assert.False(t, lifecycle.Reachable(domain.StatusValidated, domain.StatusSubmitted))
	assert.False(t, lifecycle.Reachable(domain.StatusSubmitted, domain.StatusDraft))
}

func TestValidateRequiresSupervisor(t *testing.T) {
	r := draft("u1")
	r.Status = domain.StatusSubmitted

	for _, role := range []domain.Role{domain.RoleFidele, domain.ParseRole("guest")} {
		err := lifecycle.Check(visibility.ActionValidate, domain.Viewer{ID: "x", Role: role}, r)
		var fe *visibility.ForbiddenError
		require.True(t, errors.As(err, &fe), "role %s", role)
	}
}

func TestNonOwnerCannotChangeDraft(t *testing.T) {
	r := draft("u1")
	other := domain.Viewer{ID: "u2", Role: domain.RoleAdmin}
	for _, action := range []visibility.Action{visibility.ActionEdit, visibility.ActionDelete, visibility.ActionSubmit} {
		require.Error(t, lifecycle.Check(action, other, r), "action %s", action)
	}
	require.Error(t, lifecycle.Check(visibility.ActionCreate, other, r))
}

func TestMarkReviewedKeepsStatus(t *testing.T) {
	fd := domain.Viewer{ID: "fd", Role: domain.RoleFD}
	for _, status := range []domain.ReportStatus{domain.StatusDraft, domain.StatusSubmitted, domain.StatusValidated} {
		r := draft("u1")
		r.Status = status
		require.NoError(t, lifecycle.Check(visibility.ActionMarkReviewed, fd, r))
		got, err := lifecycle.Apply(visibility.ActionMarkReviewed, r, lifecycle.Change{}, now)
		require.NoError(t, err)
		assert.True(t, got.Reviewed)
		assert.Equal(t, status, got.Status)
	}
	require.Error(t, lifecycle.Check(visibility.ActionMarkReviewed, domain.Viewer{ID: "u1"}, draft("u1")))
}

func TestComment(t *testing.T) {
	r := draft("u1")
	r.Status = domain.StatusSubmitted
	require.NoError(t, lifecycle.Check(visibility.ActionComment, domain.Viewer{ID: "p", Role: domain.RolePasteur}, r))
	got, err := lifecycle.Apply(visibility.ActionComment, r, lifecycle.Change{Comment: "keep going"}, now)
	require.NoError(t, err)
	assert.Equal(t, "keep going", got.Comment)
	assert.Equal(t, domain.StatusSubmitted, got.Status)
}
