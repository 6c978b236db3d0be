package visibility

import (
	"fmt"

	"suivi/internal/domain"
)

// ForbiddenError indicates the viewer's role does not allow an action.
type ForbiddenError struct {
	Role   domain.Role
	Action string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("role %s may not %s", e.Role, e.Action)
}

// Action names a report lifecycle transition.
type Action string

const (
	ActionCreate       Action = "create"
	ActionEdit         Action = "edit"
	ActionDelete       Action = "delete"
	ActionSubmit       Action = "submit"
	ActionValidate     Action = "validate"
	ActionMarkReviewed Action = "mark_reviewed"
	ActionComment      Action = "comment"
)

var ownerActions = []Action{ActionCreate, ActionEdit, ActionDelete, ActionSubmit}

var supervisorActions = []Action{ActionValidate, ActionMarkReviewed, ActionComment}

// SubjectSource exposes the currently loaded subject graph.
type SubjectSource interface {
	Subjects() []domain.Subject
}

// Resolver answers role and hierarchy questions over already-loaded subjects.
// A nil Source behaves as an unloaded graph.
type Resolver struct {
	Source SubjectSource
}

func New(source SubjectSource) Resolver {
	return Resolver{Source: source}
}

func CanViewOthers(role domain.Role) bool {
	return role.AtLeast(domain.RoleFD)
}

func CanValidate(role domain.Role) bool {
	return role.AtLeast(domain.RoleFD)
}

func CanComment(role domain.Role) bool {
	return role.AtLeast(domain.RoleFD)
}

// CanAdminister guards subject, org unit and account mutations.
func CanAdminister(role domain.Role) bool {
	return role.AtLeast(domain.RolePasteur)
}

// Transitions lists the lifecycle actions a role may trigger. Owner actions are
// available to every role; they still require ownership of the report.
func Transitions(role domain.Role) []Action {
	out := append([]Action(nil), ownerActions...)
	if CanValidate(role) {
		out = append(out, ActionValidate, ActionMarkReviewed)
	}
	if CanComment(role) {
		out = append(out, ActionComment)
	}
	return out
}

// Allowed reports whether role may trigger action.
func Allowed(role domain.Role, action Action) bool {
	for _, a := range Transitions(role) {
		if a == action {
			return true
		}
	}
	return false
}

// IsSupervisorAction reports whether action is reserved to supervisors.
func IsSupervisorAction(action Action) bool {
	for _, a := range supervisorActions {
		if a == action {
			return true
		}
	}
	return false
}

// SupervisedSubjects returns the ids of subjects whose records the viewer may read,
// in the order they appear in the loaded graph. An unloaded graph yields an empty
// result, which means nothing to show yet rather than no subordinates.
func (r Resolver) SupervisedSubjects(role domain.Role, viewerID string) []string {
	if !CanViewOthers(role) || r.Source == nil {
		return []string{}
	}
	subjects := r.Source.Subjects()
	if len(subjects) == 0 {
		return []string{}
	}
	if role.AtLeast(domain.RolePasteur) {
		ids := make([]string, 0, len(subjects))
		for _, s := range subjects {
			ids = append(ids, s.ID)
		}
		return ids
	}
	return descendants(subjects, viewerID)
}

// CanSee reports whether viewer may read subjectID's records.
func (r Resolver) CanSee(viewer domain.Viewer, subjectID string) bool {
	if subjectID == viewer.ID {
		return true
	}
	for _, id := range r.SupervisedSubjects(viewer.Role, viewer.ID) {
		if id == subjectID {
			return true
		}
	}
	return false
}

// descendants walks supervisor links breadth-first from root. Cycles are cut by
// the visited set and root is never reported as its own descendant.
func descendants(subjects []domain.Subject, root string) []string {
	children := make(map[string][]string, len(subjects))
	for _, s := range subjects {
		if s.SupervisorID != "" {
			children[s.SupervisorID] = append(children[s.SupervisorID], s.ID)
		}
	}
	visited := map[string]bool{root: true}
	reached := map[string]bool{}
	queue := []string{root}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, child := range children[cur] {
			if visited[child] {
				continue
			}
			visited[child] = true
			reached[child] = true
			queue = append(queue, child)
		}
	}
	ids := make([]string, 0, len(reached))
	for _, s := range subjects {
		if reached[s.ID] {
			ids = append(ids, s.ID)
			delete(reached, s.ID)
		}
	}
	return ids
}
