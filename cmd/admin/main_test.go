package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUserID(t *testing.T) {
	id, err := parseUserID("42")
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)

	for _, bad := range []string{"0", "-1", "abc", ""} {
		_, err := parseUserID(bad)
		assert.Error(t, err, bad)
	}
}

func TestConfigCommandOmitsSecrets(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("JWT_SECRET", "super-secret-value-that-must-not-leak")
	t.Setenv("DB_PASSWORD", "db-password-that-must-not-leak")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"config"})
	require.NoError(t, rootCmd.Execute())

	assert.Contains(t, out.String(), "port:")
	assert.NotContains(t, out.String(), "super-secret-value")
	assert.NotContains(t, out.String(), "db-password")
}

func TestToggleRequiresTwoArgs(t *testing.T) {
	rootCmd.SetArgs([]string{"toggle", "1"})
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	assert.Error(t, rootCmd.Execute())
}
