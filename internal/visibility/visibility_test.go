package visibility

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"suivi/internal/domain"
)

type staticSource []domain.Subject

func (s staticSource) Subjects() []domain.Subject { return s }

func graph() staticSource {
	return staticSource{
		{ID: "pastor", Role: domain.RolePasteur},
		{ID: "leader", Role: domain.RoleLeader, SupervisorID: "pastor"},
		{ID: "fd", Role: domain.RoleFD, SupervisorID: "leader"},
		{ID: "u1", Role: domain.RoleFidele, SupervisorID: "fd"},
		{ID: "u2", Role: domain.RoleFidele, SupervisorID: "fd"},
		{ID: "u3", Role: domain.RoleFidele, SupervisorID: "leader"},
		{ID: "other", Role: domain.RoleFidele},
	}
}

func TestRolePredicates(t *testing.T) {
	cases := []struct {
		role       string
		viewOthers bool
		administer bool
	}{
		{"fidele", false, false},
		{"fd", true, false},
		{"leader", true, false},
		{"pasteur", true, true},
		{"admin", true, true},
		{"superuser", false, false},
		{"", false, false},
		{" FD ", true, false},
	}
	for _, tc := range cases {
		role := domain.ParseRole(tc.role)
		assert.Equal(t, tc.viewOthers, CanViewOthers(role), "viewOthers %q", tc.role)
		assert.Equal(t, tc.viewOthers, CanValidate(role), "validate %q", tc.role)
		assert.Equal(t, tc.viewOthers, CanComment(role), "comment %q", tc.role)
		assert.Equal(t, tc.administer, CanAdminister(role), "administer %q", tc.role)
	}
}

func TestUnknownRoleBehavesLikeFidele(t *testing.T) {
	r := New(graph())
	unknown := domain.ParseRole("archbishop")
	assert.Equal(t, domain.RoleFidele, unknown)
	assert.Equal(t, Transitions(domain.RoleFidele), Transitions(unknown))
	assert.Empty(t, r.SupervisedSubjects(unknown, "leader"))

	undeclared := domain.Role(42)
	assert.False(t, CanViewOthers(undeclared))
	assert.False(t, CanAdminister(undeclared))
	assert.Empty(t, r.SupervisedSubjects(undeclared, "leader"))
}

func TestSupervisedSubjectsTransitive(t *testing.T) {
	r := New(graph())

	assert.Equal(t, []string{"u1", "u2"}, r.SupervisedSubjects(domain.RoleFD, "fd"))
	assert.Equal(t, []string{"fd", "u1", "u2", "u3"}, r.SupervisedSubjects(domain.RoleLeader, "leader"))
	assert.Empty(t, r.SupervisedSubjects(domain.RoleFidele, "u1"))
}

func TestSupervisedSubjectsAllForPastorAndAdmin(t *testing.T) {
	r := New(graph())
	all := []string{"pastor", "leader", "fd", "u1", "u2", "u3", "other"}
	assert.Equal(t, all, r.SupervisedSubjects(domain.RolePasteur, "pastor"))
	assert.Equal(t, all, r.SupervisedSubjects(domain.RoleAdmin, "nobody"))
}

func TestSupervisedSubjectsUnloadedGraph(t *testing.T) {
	assert.Empty(t, Resolver{}.SupervisedSubjects(domain.RoleAdmin, "a"))
	assert.Empty(t, New(staticSource{}).SupervisedSubjects(domain.RoleLeader, "a"))
}

func TestSupervisedSubjectsCycle(t *testing.T) {
	r := New(staticSource{
		{ID: "a", SupervisorID: "b"},
		{ID: "b", SupervisorID: "a"},
		{ID: "c", SupervisorID: "b"},
	})
	got := r.SupervisedSubjects(domain.RoleFD, "a")
	require.ElementsMatch(t, []string{"b", "c"}, got)
}

func TestCanSee(t *testing.T) {
	r := New(graph())
	fd := domain.Viewer{ID: "fd", Role: domain.RoleFD}
	assert.True(t, r.CanSee(fd, "fd"))
	assert.True(t, r.CanSee(fd, "u1"))
	assert.False(t, r.CanSee(fd, "u3"))
	assert.False(t, r.CanSee(domain.Viewer{ID: "u1"}, "u2"))
}

func TestTransitions(t *testing.T) {
	assert.False(t, Allowed(domain.RoleFidele, ActionValidate))
	assert.True(t, Allowed(domain.RoleFidele, ActionSubmit))
	assert.True(t, Allowed(domain.RoleLeader, ActionValidate))
	assert.True(t, Allowed(domain.RoleLeader, ActionComment))
	assert.True(t, IsSupervisorAction(ActionMarkReviewed))
	assert.False(t, IsSupervisorAction(ActionEdit))
}
