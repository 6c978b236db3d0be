package identity

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"suivi/internal/domain"
)

func TestSessionRoundTrip(t *testing.T) {
	token, err := IssueToken("s3cret", domain.Subject{ID: "u7", Name: "Ruth", Role: domain.RoleLeader}, time.Hour, time.Now())
	require.NoError(t, err)

	v, err := Session{Token: token, Secret: "s3cret"}.Viewer()
	require.NoError(t, err)
	assert.Equal(t, domain.Viewer{ID: "u7", Role: domain.RoleLeader}, v)

	v, err = Session{Token: token}.Viewer()
	require.NoError(t, err)
	assert.Equal(t, "u7", v.ID)

	_, err = Session{Token: token, Secret: "other"}.Viewer()
	assert.Error(t, err)
}

func TestExpiredTokenRejectedWhenVerified(t *testing.T) {
	token, err := IssueToken("k", domain.Subject{ID: "u1"}, time.Minute, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	_, err = Session{Token: token, Secret: "k"}.Viewer()
	assert.Error(t, err)
}

func TestUnknownRoleClaimFailsClosed(t *testing.T) {
	token, err := IssueToken("k", domain.Subject{ID: "u1", Role: domain.Role(99)}, time.Hour, time.Now())
	require.NoError(t, err)
	v, err := Session{Token: token, Secret: "k"}.Viewer()
	require.NoError(t, err)
	assert.Equal(t, domain.RoleFidele, v.Role)
}

func TestStatic(t *testing.T) {
	_, err := Static{}.Viewer()
	assert.True(t, errors.Is(err, ErrNoSession))
	v, err := Static{ID: "a", Role: domain.RoleAdmin}.Viewer()
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, v.Role)
	_, err = Session{}.Viewer()
	assert.ErrorIs(t, err, ErrNoSession)
}
