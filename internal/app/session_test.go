package app

import (
	"bytes"
	"context"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"suivi/internal/config"
	"suivi/internal/db"
	"suivi/internal/domain"
	"suivi/internal/identity"
	"suivi/internal/migrate"
	"suivi/internal/stub"
)

const secret = "app-test-secret"

func startStub(t *testing.T) (*httptest.Server, *stub.Store) {
	t.Helper()
	conn, err := db.Open(db.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	_, err = migrate.Up(context.Background(), conn)
	require.NoError(t, err)
	store := stub.NewStore(conn)
	require.NoError(t, store.Seed(context.Background(), config.Default().Stub.Seed))
	handler, err := stub.New(stub.Config{Store: store, Auth: stub.AuthConfig{JWTSecret: secret}})
	require.NoError(t, err)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, store
}

func openAs(t *testing.T, url string, store *stub.Store, subjectID string) *Session {
	t.Helper()
	token, err := stub.Token(context.Background(), store, secret, subjectID, time.Hour)
	require.NoError(t, err)
	cfg := config.Default()
	cfg.API.BaseURL = url
	cfg.Auth.Token = token
	cfg.Auth.JWTSecret = secret
	cfg.Dashboard.RecentLimit = 2
	s, err := Open(cfg, nil, prometheus.NewRegistry())
	require.NoError(t, err)
	return s
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, l)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestNewLoggerFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, "warn")
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestOpenWithoutTokenIsNoSession(t *testing.T) {
	_, err := Open(config.Default(), nil, nil)
	assert.ErrorIs(t, err, identity.ErrNoSession)
}

func TestOwnerDashboard(t *testing.T) {
	srv, store := startStub(t)
	ctx := context.Background()
	s := openAs(t, srv.URL, store, "fid-1")
	assert.Equal(t, domain.RoleFidele, s.Viewer.Role)

	for day := 1; day <= 3; day++ {
		_, err := s.Facades.Reports.Create(ctx, domain.ReportRequest{Date: time.Date(2026, 9, day, 0, 0, 0, 0, time.UTC)})
		require.NoError(t, err)
	}

	d, err := s.Dashboard(ctx)
	require.NoError(t, err)
	assert.False(t, d.Team)
	require.Len(t, d.Recent, 2)
	assert.Equal(t, 3, d.Recent[0].Date.Day())
	assert.Equal(t, 3, d.Counts[domain.StatusDraft])
	assert.Empty(t, d.Pending)
}

func TestSupervisorDashboardShowsPending(t *testing.T) {
	srv, store := startStub(t)
	ctx := context.Background()

	owner := openAs(t, srv.URL, store, "fid-2")
	r, err := owner.Facades.Reports.Create(ctx, domain.ReportRequest{Date: time.Date(2026, 9, 5, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	_, err = owner.Facades.Reports.Submit(ctx, r.ID)
	require.NoError(t, err)

	fd := openAs(t, srv.URL, store, "fd-1")
	d, err := fd.Dashboard(ctx)
	require.NoError(t, err)
	assert.True(t, d.Team)
	require.Len(t, d.Pending, 1)
	assert.Equal(t, r.ID, d.Pending[0].ID)
	assert.Equal(t, 1, d.Counts[domain.StatusSubmitted])
}
