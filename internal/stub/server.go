package stub

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"suivi/internal/domain"
	"suivi/internal/identity"
	"suivi/internal/lifecycle"
	"suivi/internal/mapper"
	"suivi/internal/visibility"
)

// Config for the stub HTTP API handler.
type Config struct {
	Store    *Store
	BasePath string
	Auth     AuthConfig
	// TokenTTL bounds dev login tokens. Zero means 12 hours.
	TokenTTL time.Duration
	// Registry receives request metrics and backs /metrics. Nil disables both.
	Registry *prometheus.Registry
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"forbidden"`
	Message string         `json:"message" example:"role fidele may not validate"`
	Details map[string]any `json:"details,omitempty"`
}

// apiError models the error envelope the client decodes.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler serving the reporting API from cfg.Store.
func New(cfg Config) (http.Handler, error) {
	if cfg.Store == nil {
		return nil, errors.New("stub store required")
	}
	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		return nil, errors.New("jwt secret required")
	}
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = 12 * time.Hour
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity {
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			reasons := make([]string, 0, len(errs))
			for _, e := range errs {
				reasons = append(reasons, e.Error())
			}
			details = map[string]any{"errors": reasons}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	if cfg.Registry != nil {
		router.Use(newMetricsMiddleware(cfg.Registry))
	}
	router.Use(newAuthMiddleware(basePath, cfg.Auth, cfg.Store))
	if cfg.Registry != nil {
		router.Handle("/metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))
	}
	hcfg := huma.DefaultConfig("Suivi stub API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = ""
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerHealth(group)
	registerDevAuth(group, cfg.Store, cfg.Auth.JWTSecret, cfg.TokenTTL)
	registerMe(group, cfg.Store)
	registerReports(group, cfg.Store)
	registerDisciples(group, cfg.Store)
	registerUnits(group, cfg.Store)
	registerAccounts(group, cfg.Store)
	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{status: status, Body: apiErrorBody{Code: code, Message: message, Details: details}}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var se huma.StatusError
	if errors.As(err, &se) {
		return se
	}
	var fe *visibility.ForbiddenError
	if errors.As(err, &fe) {
		return newAPIError(http.StatusForbidden, "forbidden", err.Error(), map[string]any{"action": fe.Action})
	}
	var te *lifecycle.TransitionError
	if errors.As(err, &te) {
		return newAPIError(http.StatusConflict, "invalid_transition", err.Error(), map[string]any{"status": string(te.Status)})
	}
	if errors.Is(err, ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	if errors.Is(err, ErrConflict) {
		return newAPIError(http.StatusConflict, "conflict", err.Error(), nil)
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	if strings.Contains(lowered, "invalid") || strings.Contains(lowered, "required") {
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	}
	return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func forbidden(v domain.Viewer, action string) huma.StatusError {
	return handleError(&visibility.ForbiddenError{Role: v.Role, Action: action})
}

// requireAdmin returns the caller when they may manage the hierarchy.
func requireAdmin(ctx context.Context, action string) (domain.Viewer, error) {
	v, authErr := principalFromContext(ctx)
	if authErr != nil {
		return v, authErr
	}
	if !visibility.CanAdminister(v.Role) {
		return v, forbidden(v, action)
	}
	return v, nil
}

func newMetricsMiddleware(reg prometheus.Registerer) func(http.Handler) http.Handler {
	requests := promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
		Name: "suivi_stub_http_requests_total",
		Help: "Stub API requests by method, route and status",
	}, []string{"method", "route", "status"})
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = "unmatched"
			}
			requests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

type idInput struct {
	ID string `path:"id"`
}

type reportOutput struct {
	Body mapper.ReportDTO `json:"body"`
}

type reportsOutput struct {
	Body []mapper.ReportDTO `json:"body"`
}

type subjectOutput struct {
	Body mapper.SubjectDTO `json:"body"`
}

type subjectsOutput struct {
	Body []mapper.SubjectDTO `json:"body"`
}

type unitOutput struct {
	Body mapper.OrgUnitDTO `json:"body"`
}

type unitsOutput struct {
	Body []mapper.OrgUnitDTO `json:"body"`
}

type accountOutput struct {
	Body mapper.AccountDTO `json:"body"`
}

type accountsOutput struct {
	Body []mapper.AccountDTO `json:"body"`
}

type DevLoginRequest struct {
	DiscipleID string `json:"disciple_id" minLength:"1"`
}

type DevLoginResponse struct {
	Token string `json:"token"`
}

type EventDTO struct {
	ID      int64          `json:"id"`
	TS      string         `json:"ts" format:"date-time"`
	Type    string         `json:"type"`
	ActorID string         `json:"actor_id"`
	Payload map[string]any `json:"payload"`
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerDevAuth(api huma.API, store *Store, secret string, ttl time.Duration) {
	huma.Register(api, huma.Operation{
		OperationID: "dev-login",
		Method:      http.MethodPost,
		Path:        "/auth/dev/login",
		Summary:     "DEV ONLY: mint a session token for a disciple",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body DevLoginRequest `json:"body"`
	}) (*struct {
		Body DevLoginResponse `json:"body"`
	}, error) {
		subject, err := store.GetDisciple(ctx, strings.TrimSpace(input.Body.DiscipleID))
		if err != nil {
			return nil, handleError(err)
		}
		token, err := identity.IssueToken(secret, subject, ttl, time.Now())
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body DevLoginResponse `json:"body"`
		}{Body: DevLoginResponse{Token: token}}, nil
	})
}

func registerMe(api huma.API, store *Store) {
	huma.Register(api, huma.Operation{
		OperationID: "me",
		Method:      http.MethodGet,
		Path:        "/me",
		Summary:     "Current disciple",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*subjectOutput, error) {
		v, authErr := principalFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		subject, err := store.GetDisciple(ctx, v.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &subjectOutput{Body: mapper.SubjectFromDomain(subject)}, nil
	})
}

func registerReports(api huma.API, store *Store) {
	huma.Register(api, huma.Operation{
		OperationID: "list-reports",
		Method:      http.MethodGet,
		Path:        "/reports",
		Summary:     "List every report",
		Errors:      []int{http.StatusForbidden},
	}, func(ctx context.Context, _ *struct{}) (*reportsOutput, error) {
		if _, err := requireAdmin(ctx, "view all reports"); err != nil {
			return nil, err
		}
		reports, err := store.ListReports(ctx, "")
		if err != nil {
			return nil, handleError(err)
		}
		return &reportsOutput{Body: reportsToWire(reports)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-disciple-reports",
		Method:      http.MethodGet,
		Path:        "/disciples/{id}/reports",
		Summary:     "List one disciple's reports",
		Errors:      []int{http.StatusForbidden},
	}, func(ctx context.Context, input *idInput) (*reportsOutput, error) {
		if err := requireVisible(ctx, store, input.ID); err != nil {
			return nil, err
		}
		reports, err := store.ListReports(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &reportsOutput{Body: reportsToWire(reports)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-report",
		Method:      http.MethodGet,
		Path:        "/reports/{id}",
		Summary:     "Get report",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *idInput) (*reportOutput, error) {
		report, err := store.GetReport(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		if err := requireVisible(ctx, store, report.SubjectID); err != nil {
			return nil, err
		}
		return &reportOutput{Body: mapper.ReportFromDomain(report)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-report",
		Method:        http.MethodPost,
		Path:          "/reports",
		Summary:       "Create a draft report for the caller",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Body mapper.ReportWriteDTO `json:"body"`
	}) (*reportOutput, error) {
		v, authErr := principalFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		req, err := mapper.ReportRequestFromWire(input.Body)
		if err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", err.Error(), map[string]any{"field": "date"})
		}
		report, err := store.CreateReport(ctx, v, req)
		if err != nil {
			return nil, handleError(err)
		}
		return &reportOutput{Body: mapper.ReportFromDomain(report)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-report",
		Method:      http.MethodPatch,
		Path:        "/reports/{id}",
		Summary:     "Edit a draft report",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ID   string                `path:"id"`
		Body mapper.ReportWriteDTO `json:"body"`
	}) (*reportOutput, error) {
		req, err := mapper.ReportRequestFromWire(input.Body)
		if err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", err.Error(), map[string]any{"field": "date"})
		}
		return transition(ctx, store, visibility.ActionEdit, input.ID, lifecycle.Change{Request: req})
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-report",
		Method:        http.MethodDelete,
		Path:          "/reports/{id}",
		Summary:       "Delete a draft report",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusForbidden, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *idInput) (*struct{}, error) {
		v, authErr := principalFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := store.DeleteReport(ctx, v, input.ID); err != nil {
			return nil, handleError(err)
		}
		return nil, nil
	})

	for _, t := range []struct {
		suffix string
		action visibility.Action
	}{
		{"submit", visibility.ActionSubmit},
		{"validate", visibility.ActionValidate},
		{"review", visibility.ActionMarkReviewed},
	} {
		huma.Register(api, huma.Operation{
			OperationID: t.suffix + "-report",
			Method:      http.MethodPost,
			Path:        "/reports/{id}/" + t.suffix,
			Summary:     fmt.Sprintf("Apply %s to a report", t.action),
			Errors:      []int{http.StatusForbidden, http.StatusNotFound, http.StatusConflict},
		}, func(ctx context.Context, input *idInput) (*reportOutput, error) {
			return transition(ctx, store, t.action, input.ID, lifecycle.Change{})
		})
	}

	huma.Register(api, huma.Operation{
		OperationID: "comment-report",
		Method:      http.MethodPost,
		Path:        "/reports/{id}/comment",
		Summary:     "Set the supervisor comment",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string            `path:"id"`
		Body mapper.CommentDTO `json:"body"`
	}) (*reportOutput, error) {
		return transition(ctx, store, visibility.ActionComment, input.ID, lifecycle.Change{Comment: input.Body.Comment})
	})

	huma.Register(api, huma.Operation{
		OperationID: "report-events",
		Method:      http.MethodGet,
		Path:        "/reports/{id}/events",
		Summary:     "Audit trail of a report",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *idInput) (*struct {
		Body []EventDTO `json:"body"`
	}, error) {
		report, err := store.GetReport(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		if err := requireVisible(ctx, store, report.SubjectID); err != nil {
			return nil, err
		}
		evts, err := store.Events.List(ctx, "report", input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		out := make([]EventDTO, 0, len(evts))
		for _, e := range evts {
			out = append(out, EventDTO{ID: e.ID, TS: e.TS.UTC().Format(time.RFC3339), Type: e.Type, ActorID: e.ActorID, Payload: e.Payload})
		}
		return &struct {
			Body []EventDTO `json:"body"`
		}{Body: out}, nil
	})
}

func transition(ctx context.Context, store *Store, action visibility.Action, id string, change lifecycle.Change) (*reportOutput, error) {
	v, authErr := principalFromContext(ctx)
	if authErr != nil {
		return nil, authErr
	}
	report, err := store.TransitionReport(ctx, v, action, id, change)
	if err != nil {
		return nil, handleError(err)
	}
	return &reportOutput{Body: mapper.ReportFromDomain(report)}, nil
}

// requireVisible allows the caller's own records and those of subjects they supervise.
func requireVisible(ctx context.Context, store *Store, subjectID string) error {
	v, authErr := principalFromContext(ctx)
	if authErr != nil {
		return authErr
	}
	if v.ID == subjectID {
		return nil
	}
	resolver, err := store.Resolver(ctx)
	if err != nil {
		return handleError(err)
	}
	if !resolver.CanSee(v, subjectID) {
		return forbidden(v, "view")
	}
	return nil
}

func reportsToWire(reports []domain.Report) []mapper.ReportDTO {
	out := make([]mapper.ReportDTO, 0, len(reports))
	for _, r := range reports {
		out = append(out, mapper.ReportFromDomain(r))
	}
	return out
}

func registerDisciples(api huma.API, store *Store) {
	huma.Register(api, huma.Operation{
		OperationID: "list-disciples",
		Method:      http.MethodGet,
		Path:        "/disciples",
		Summary:     "List disciples",
	}, func(ctx context.Context, _ *struct{}) (*subjectsOutput, error) {
		subjects, err := store.ListDisciples(ctx, "")
		if err != nil {
			return nil, handleError(err)
		}
		return &subjectsOutput{Body: subjectsToWire(subjects)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-disciple",
		Method:      http.MethodGet,
		Path:        "/disciples/{id}",
		Summary:     "Get disciple",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *idInput) (*subjectOutput, error) {
		subject, err := store.GetDisciple(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &subjectOutput{Body: mapper.SubjectFromDomain(subject)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-direct-disciples",
		Method:      http.MethodGet,
		Path:        "/disciples/{id}/disciples",
		Summary:     "List disciples directly supervised by a disciple",
	}, func(ctx context.Context, input *idInput) (*subjectsOutput, error) {
		subjects, err := store.ListDisciples(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &subjectsOutput{Body: subjectsToWire(subjects)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-disciple",
		Method:        http.MethodPost,
		Path:          "/disciples",
		Summary:       "Create disciple",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Body mapper.SubjectWriteDTO `json:"body"`
	}) (*subjectOutput, error) {
		v, err := requireAdmin(ctx, "create disciples")
		if err != nil {
			return nil, err
		}
		subject, err := store.CreateDisciple(ctx, v.ID, "", mapper.SubjectRequestFromWire(input.Body))
		if err != nil {
			return nil, handleError(err)
		}
		return &subjectOutput{Body: mapper.SubjectFromDomain(subject)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-disciple",
		Method:      http.MethodPatch,
		Path:        "/disciples/{id}",
		Summary:     "Update disciple",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string                 `path:"id"`
		Body mapper.SubjectWriteDTO `json:"body"`
	}) (*subjectOutput, error) {
		v, err := requireAdmin(ctx, "update disciples")
		if err != nil {
			return nil, err
		}
		subject, err := store.UpdateDisciple(ctx, v.ID, input.ID, mapper.SubjectRequestFromWire(input.Body))
		if err != nil {
			return nil, handleError(err)
		}
		return &subjectOutput{Body: mapper.SubjectFromDomain(subject)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-disciple",
		Method:        http.MethodDelete,
		Path:          "/disciples/{id}",
		Summary:       "Delete disciple",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *idInput) (*struct{}, error) {
		v, err := requireAdmin(ctx, "delete disciples")
		if err != nil {
			return nil, err
		}
		if err := store.DeleteDisciple(ctx, v.ID, input.ID); err != nil {
			return nil, handleError(err)
		}
		return nil, nil
	})
}

func subjectsToWire(subjects []domain.Subject) []mapper.SubjectDTO {
	out := make([]mapper.SubjectDTO, 0, len(subjects))
	for _, s := range subjects {
		out = append(out, mapper.SubjectFromDomain(s))
	}
	return out
}

func registerUnits(api huma.API, store *Store) {
	huma.Register(api, huma.Operation{
		OperationID: "list-units",
		Method:      http.MethodGet,
		Path:        "/units",
		Summary:     "List units of one level",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Level string `query:"level" enum:"region,zone,local,sub" required:"true"`
	}) (*unitsOutput, error) {
		units, err := store.ListUnits(ctx, domain.UnitLevel(input.Level))
		if err != nil {
			return nil, handleError(err)
		}
		return &unitsOutput{Body: unitsToWire(units)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-unit",
		Method:      http.MethodGet,
		Path:        "/units/{id}",
		Summary:     "Get unit",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *idInput) (*unitOutput, error) {
		unit, err := store.GetUnit(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &unitOutput{Body: mapper.OrgUnitFromDomain(unit)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-child-units",
		Method:      http.MethodGet,
		Path:        "/units/{id}/children",
		Summary:     "List the children of a unit",
	}, func(ctx context.Context, input *idInput) (*unitsOutput, error) {
		units, err := store.ListChildUnits(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &unitsOutput{Body: unitsToWire(units)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-unit",
		Method:        http.MethodPost,
		Path:          "/units",
		Summary:       "Create unit",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Body mapper.OrgUnitWriteDTO `json:"body"`
	}) (*unitOutput, error) {
		v, err := requireAdmin(ctx, "create units")
		if err != nil {
			return nil, err
		}
		req := domain.OrgUnitRequest{Name: input.Body.Name, ParentID: input.Body.ParentID}
		unit, err := store.CreateUnit(ctx, v.ID, "", domain.UnitLevel(input.Body.Level), req)
		if err != nil {
			return nil, handleError(err)
		}
		return &unitOutput{Body: mapper.OrgUnitFromDomain(unit)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-unit",
		Method:      http.MethodPatch,
		Path:        "/units/{id}",
		Summary:     "Rename unit",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string                 `path:"id"`
		Body mapper.OrgUnitWriteDTO `json:"body"`
	}) (*unitOutput, error) {
		v, err := requireAdmin(ctx, "update units")
		if err != nil {
			return nil, err
		}
		unit, err := store.UpdateUnit(ctx, v.ID, input.ID, domain.OrgUnitRequest{Name: input.Body.Name})
		if err != nil {
			return nil, handleError(err)
		}
		return &unitOutput{Body: mapper.OrgUnitFromDomain(unit)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-unit",
		Method:        http.MethodDelete,
		Path:          "/units/{id}",
		Summary:       "Delete unit and its descendants",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *idInput) (*struct{}, error) {
		v, err := requireAdmin(ctx, "delete units")
		if err != nil {
			return nil, err
		}
		if err := store.DeleteUnit(ctx, v.ID, input.ID); err != nil {
			return nil, handleError(err)
		}
		return nil, nil
	})
}

func unitsToWire(units []domain.OrgUnit) []mapper.OrgUnitDTO {
	out := make([]mapper.OrgUnitDTO, 0, len(units))
	for _, u := range units {
		out = append(out, mapper.OrgUnitFromDomain(u))
	}
	return out
}

func registerAccounts(api huma.API, store *Store) {
	huma.Register(api, huma.Operation{
		OperationID: "list-accounts",
		Method:      http.MethodGet,
		Path:        "/accounts",
		Summary:     "List accounts",
		Errors:      []int{http.StatusForbidden},
	}, func(ctx context.Context, _ *struct{}) (*accountsOutput, error) {
		if _, err := requireAdmin(ctx, "view accounts"); err != nil {
			return nil, err
		}
		accounts, err := store.ListAccounts(ctx, "")
		if err != nil {
			return nil, handleError(err)
		}
		return &accountsOutput{Body: accountsToWire(accounts)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-disciple-accounts",
		Method:      http.MethodGet,
		Path:        "/disciples/{id}/accounts",
		Summary:     "List one disciple's accounts",
		Errors:      []int{http.StatusForbidden},
	}, func(ctx context.Context, input *idInput) (*accountsOutput, error) {
		if err := requireSelfOrAdmin(ctx, input.ID); err != nil {
			return nil, err
		}
		accounts, err := store.ListAccounts(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &accountsOutput{Body: accountsToWire(accounts)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-account",
		Method:      http.MethodGet,
		Path:        "/accounts/{id}",
		Summary:     "Get account",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *idInput) (*accountOutput, error) {
		account, err := store.GetAccount(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		if err := requireSelfOrAdmin(ctx, account.SubjectID); err != nil {
			return nil, err
		}
		return &accountOutput{Body: mapper.AccountFromDomain(account)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-account",
		Method:        http.MethodPost,
		Path:          "/accounts",
		Summary:       "Create account",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Body mapper.AccountWriteDTO `json:"body"`
	}) (*accountOutput, error) {
		v, err := requireAdmin(ctx, "create accounts")
		if err != nil {
			return nil, err
		}
		account, err := store.CreateAccount(ctx, v.ID, mapper.AccountRequestFromWire(input.Body))
		if err != nil {
			return nil, handleError(err)
		}
		return &accountOutput{Body: mapper.AccountFromDomain(account)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-account",
		Method:      http.MethodPatch,
		Path:        "/accounts/{id}",
		Summary:     "Update account",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string                 `path:"id"`
		Body mapper.AccountWriteDTO `json:"body"`
	}) (*accountOutput, error) {
		v, err := requireAdmin(ctx, "update accounts")
		if err != nil {
			return nil, err
		}
		account, err := store.UpdateAccount(ctx, v.ID, input.ID, mapper.AccountRequestFromWire(input.Body))
		if err != nil {
			return nil, handleError(err)
		}
		return &accountOutput{Body: mapper.AccountFromDomain(account)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-account",
		Method:        http.MethodDelete,
		Path:          "/accounts/{id}",
		Summary:       "Delete account",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *idInput) (*struct{}, error) {
		v, err := requireAdmin(ctx, "delete accounts")
		if err != nil {
			return nil, err
		}
		if err := store.DeleteAccount(ctx, v.ID, input.ID); err != nil {
			return nil, handleError(err)
		}
		return nil, nil
	})
}

func requireSelfOrAdmin(ctx context.Context, subjectID string) error {
	v, authErr := principalFromContext(ctx)
	if authErr != nil {
		return authErr
	}
	if v.ID == subjectID || visibility.CanAdminister(v.Role) {
		return nil
	}
	return forbidden(v, "view accounts")
}

func accountsToWire(accounts []domain.Account) []mapper.AccountDTO {
	out := make([]mapper.AccountDTO, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, mapper.AccountFromDomain(a))
	}
	return out
}

// Token mints a session token for subjectID, for the CLI's stub token command.
func Token(ctx context.Context, store *Store, secret, subjectID string, ttl time.Duration) (string, error) {
	subject, err := store.GetDisciple(ctx, subjectID)
	if err != nil {
		return "", err
	}
	return identity.IssueToken(secret, subject, ttl, time.Now())
}
