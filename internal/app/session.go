package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"suivi/internal/client"
	"suivi/internal/config"
	"suivi/internal/domain"
	"suivi/internal/facade"
	"suivi/internal/identity"
	"suivi/internal/metrics"
	"suivi/internal/visibility"
)

// Session is one signed-in viewer with a facade set bound to the reporting API.
type Session struct {
	Config  *config.Config
	Viewer  domain.Viewer
	Facades *facade.Set
	Logger  *slog.Logger
}

// ParseLevel maps a config level name to a slog level.
func ParseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", level)
	}
	return l, nil
}

// NewLogger returns a text logger writing to w at level.
func NewLogger(w io.Writer, level string) (*slog.Logger, error) {
	l, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l})), nil
}

// Open resolves the viewer from the configured token and wires a facade set.
// A nil reg leaves the facades uninstrumented.
func Open(cfg *config.Config, logger *slog.Logger, reg prometheus.Registerer) (*Session, error) {
	if cfg == nil {
		return nil, errors.New("config required")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	provider := identity.Session{Token: cfg.Auth.Token, Secret: cfg.Auth.JWTSecret}
	viewer, err := provider.Viewer()
	if err != nil {
		if errors.Is(err, identity.ErrNoSession) {
			return nil, fmt.Errorf("%w; set auth.token or SUIVI_TOKEN (suivi stub token prints one)", err)
		}
		return nil, fmt.Errorf("read session token: %w", err)
	}
	c := client.New(cfg.API.BaseURL, cfg.Auth.Token)
	if cfg.API.Timeout > 0 {
		c.SetTimeout(cfg.API.Timeout)
	}
	opts := []facade.Option{facade.WithLogger(logger)}
	if reg != nil {
		opts = append(opts, facade.WithMetrics(metrics.New(reg)))
	}
	logger.Debug("session opened", "viewer", viewer.ID, "role", viewer.Role.String(), "api", cfg.API.BaseURL)
	return &Session{
		Config:  cfg,
		Viewer:  viewer,
		Facades: facade.NewSet(facade.HTTPRepositories(c), provider, opts...),
		Logger:  logger,
	}, nil
}

// Dashboard is the home screen summary of a viewer.
type Dashboard struct {
	Viewer  domain.Viewer
	Team    bool
	Recent  []domain.Report
	Pending []domain.Report
	Counts  map[domain.ReportStatus]int
}

// Dashboard loads the viewer's own reports, or those of their team when they
// supervise anyone, and summarizes the cache.
func (s *Session) Dashboard(ctx context.Context) (Dashboard, error) {
	d := Dashboard{Viewer: s.Viewer, Team: visibility.CanViewOthers(s.Viewer.Role)}
	reports := s.Facades.Reports
	if d.Team {
		if err := s.Facades.Subjects.Load(ctx); err != nil {
			return d, err
		}
		if err := reports.LoadTeam(ctx); err != nil {
			return d, err
		}
		d.Pending = reports.PendingReview()
	} else if err := reports.Load(ctx); err != nil {
		return d, err
	}
	limit := s.Config.Dashboard.RecentLimit
	if limit == 0 {
		limit = 10
	}
	d.Recent = reports.MostRecent(limit)
	d.Counts = map[domain.ReportStatus]int{}
	for _, st := range []domain.ReportStatus{domain.StatusDraft, domain.StatusSubmitted, domain.StatusValidated} {
		d.Counts[st] = reports.Count(st)
	}
	return d, nil
}
