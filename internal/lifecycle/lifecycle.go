package lifecycle

import (
	"fmt"
	"time"

	"suivi/internal/domain"
	"suivi/internal/visibility"
)

// TransitionError reports a transition attempted outside its guard.
type TransitionError struct {
	Action visibility.Action
	Status domain.ReportStatus
	Reason string
}

func (e *TransitionError) Error() string {
	if e.Status == "" {
		return fmt.Sprintf("cannot %s report: %s", e.Action, e.Reason)
	}
	return fmt.Sprintf("cannot %s %s report: %s", e.Action, e.Status, e.Reason)
}

// Change carries the inputs some transitions apply.
type Change struct {
	Request domain.ReportRequest
	Comment string
}

// Check validates that actor may perform action on report. For ActionCreate the
// report is the one about to be created and only ownership is checked.
func Check(action visibility.Action, actor domain.Viewer, report domain.Report) error {
	if !visibility.Allowed(actor.Role, action) {
		return &visibility.ForbiddenError{Role: actor.Role, Action: string(action)}
	}
	switch action {
	case visibility.ActionCreate:
		if report.SubjectID != actor.ID {
			return &TransitionError{Action: action, Reason: "only the owner may create a report"}
		}
		return nil
	case visibility.ActionEdit, visibility.ActionDelete, visibility.ActionSubmit:
		if report.SubjectID != actor.ID {
			return &TransitionError{Action: action, Status: report.Status, Reason: "only the owner may change a report"}
		}
		if report.Status != domain.StatusDraft {
			return &TransitionError{Action: action, Status: report.Status, Reason: "report is no longer a draft"}
		}
		return nil
	case visibility.ActionValidate:
		if report.Status != domain.StatusSubmitted {
			return &TransitionError{Action: action, Status: report.Status, Reason: "only submitted reports can be validated"}
		}
		return nil
	case visibility.ActionMarkReviewed, visibility.ActionComment:
		return nil
	default:
		return &TransitionError{Action: action, Status: report.Status, Reason: "unknown transition"}
	}
}

// New returns a draft report for owner.
func New(owner string, req domain.ReportRequest, now time.Time) domain.Report {
	return domain.Report{
		SubjectID:  owner,
		Date:       domain.DateOnly(req.Date),
		Status:     domain.StatusDraft,
		Activities: copyActivities(req.Activities),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Apply returns the report after action. It does not check the actor; callers
// run Check first. Status never moves backwards.
func Apply(action visibility.Action, report domain.Report, change Change, now time.Time) (domain.Report, error) {
	next := report
	switch action {
	case visibility.ActionEdit:
		if report.Status != domain.StatusDraft {
			return report, &TransitionError{Action: action, Status: report.Status, Reason: "report is no longer a draft"}
		}
		if !change.Request.Date.IsZero() {
			next.Date = domain.DateOnly(change.Request.Date)
		}
		if change.Request.Activities != nil {
			next.Activities = copyActivities(change.Request.Activities)
		}
	case visibility.ActionSubmit:
		if report.Status != domain.StatusDraft {
			return report, &TransitionError{Action: action, Status: report.Status, Reason: "report is no longer a draft"}
		}
		next.Status = domain.StatusSubmitted
	case visibility.ActionValidate:
		if report.Status != domain.StatusSubmitted {
			return report, &TransitionError{Action: action, Status: report.Status, Reason: "only submitted reports can be validated"}
		}
		next.Status = domain.StatusValidated
		next.Reviewed = true
	case visibility.ActionMarkReviewed:
		next.Reviewed = true
	case visibility.ActionComment:
		next.Comment = change.Comment
	default:
		return report, &TransitionError{Action: action, Status: report.Status, Reason: "transition has no effect model"}
	}
	next.UpdatedAt = now
	return next, nil
}

// Reachable reports whether to can follow from in one step.
func Reachable(from, to domain.ReportStatus) bool {
	switch from {
	case domain.StatusDraft:
		return to == domain.StatusDraft || to == domain.StatusSubmitted
	case domain.StatusSubmitted:
		return to == domain.StatusSubmitted || to == domain.StatusValidated
	case domain.StatusValidated:
		return to == domain.StatusValidated
	}
	return false
}

func copyActivities(in map[string]any) map[string]any {
	if in == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
