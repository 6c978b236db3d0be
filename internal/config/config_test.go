package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 10*time.Second, cfg.API.Timeout)
	assert.Equal(t, 10, cfg.Dashboard.RecentLimit)
	assert.Len(t, cfg.Stub.Seed.Disciples, 6)
}

func TestFromYAMLKeepsDefaultsForMissingFields(t *testing.T) {
	cfg, err := FromYAML([]byte("api:\n  base_url: https://api.example.org\n"))
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.org", cfg.API.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.API.Timeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Empty(t, cfg.Stub.Seed.Disciples)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"relative url":     "api: {base_url: /v0}\n",
		"bad level":        "logging: {level: loud}\n",
		"negative limit":   "dashboard: {recent_limit: -1}\n",
		"orphan zone":      "stub: {seed: {units: [{id: z, level: zone, name: Z, parent: nope}]}}\n",
		"zone under zone":  "stub: {seed: {units: [{id: r, level: region, name: R}, {id: z, level: zone, name: Z, parent: r}, {id: z2, level: zone, name: Z2, parent: z}]}}\n",
		"unknown level":    "stub: {seed: {units: [{id: x, level: planet, name: X}]}}\n",
		"unknown role":     "stub: {seed: {disciples: [{id: a, name: A, role: bishop}]}}\n",
		"late supervisor":  "stub: {seed: {disciples: [{id: a, name: A, supervisor: b}, {id: b, name: B}]}}\n",
		"duplicate person": "stub: {seed: {disciples: [{id: a, name: A}, {id: a, name: A}]}}\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := FromYAML([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(dir)
	assert.ErrorContains(t, err, "not found")

	cfg, err := LoadOptional(dir)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("dashboard: {recent_limit: 3}\n"), 0o644))
	cfg, err = Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Dashboard.RecentLimit)
}
