package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"ghl-oauth-manager/internal/crypto"
	"ghl-oauth-manager/internal/installations"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "installations.db")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("CLIENT_ID", "cli-client")
	t.Setenv("CLIENT_SECRET", "cli-secret")
	t.Setenv("REDIRECT_URI", "https://app.example.com/oauth/callback")
	t.Setenv("OAUTH_SCOPES", "contacts.readonly locations.readonly")
	t.Setenv("STORE_TYPE", "sqlite")
	t.Setenv("DATABASE_PATH", dbPath)
	t.Setenv("REDIS_ADDRESS", "")
	t.Setenv("EVENTS_BACKEND", "none")
	t.Setenv("CONFIG_ENCRYPTION_KEY", "")
	return dbPath
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand("test")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func seedSQLite(t *testing.T, path string, list ...*installations.Installation) {
	t.Helper()
	store, err := installations.OpenSQLite(path, crypto.PlainCipher{})
	require.NoError(t, err)
	defer store.Close()
	for _, inst := range list {
		_, err := store.Create(context.Background(), inst)
		require.NoError(t, err)
	}
}

func TestInstallURLCommand(t *testing.T) {
	setBaseEnv(t)

	out, err := run(t, "install-url", "--state", "s-123")
	require.NoError(t, err)
	assert.Contains(t, out, "/oauth/chooselocation")
	assert.Contains(t, out, "client_id=cli-client")
	assert.Contains(t, out, "state=s-123")
}

func TestInstallationsCommand(t *testing.T) {
	dbPath := setBaseEnv(t)
	now := time.Now().Truncate(time.Second)
	seedSQLite(t, dbPath,
		&installations.Installation{
			ID:           "install_cli_1",
			AccessToken:  "at-secret",
			RefreshToken: "rt-secret",
			ExpiresAt:    now.Add(24 * time.Hour),
			LocationID:   "loc-1",
			AuthClass:    installations.AuthClassCompany,
		},
		&installations.Installation{
			ID:          "install_cli_2",
			AccessToken: "at-old",
			ExpiresAt:   now.Add(-time.Hour),
			LocationID:  "loc-2",
			AuthClass:   installations.AuthClassLocation,
		},
	)

	t.Run("table", func(t *testing.T) {
		out, err := run(t, "installations")
		require.NoError(t, err)
		assert.Contains(t, out, "install_cli_1")
		assert.Contains(t, out, "install_cli_2")
		assert.NotContains(t, out, "at-secret")
	})

	t.Run("json expired", func(t *testing.T) {
		out, err := run(t, "installations", "--expired", "--json")
		require.NoError(t, err)

		var rows []installationRow
		require.NoError(t, json.Unmarshal([]byte(out), &rows))
		require.Len(t, rows, 1)
		assert.Equal(t, "install_cli_2", rows[0].ID)
		assert.Equal(t, installations.StatusExpired, rows[0].Status)
	})

	t.Run("conflicting filters", func(t *testing.T) {
		_, err := run(t, "installations", "--expired", "--expiring", "1h")
		assert.Error(t, err)
	})
}

func TestRefreshCommand_RequiresTarget(t *testing.T) {
	setBaseEnv(t)

	_, err := run(t, "refresh")
	assert.Error(t, err)
}

func TestRefreshCommand_UnknownInstallation(t *testing.T) {
	setBaseEnv(t)

	out, err := run(t, "refresh", "install_missing")
	assert.Error(t, err)
	assert.Contains(t, out, "install_missing")
	assert.Contains(t, out, "0 refreshed, 1 failed")
}
