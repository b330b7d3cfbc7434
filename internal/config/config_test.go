package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobuk/clistcal/internal/contest"
	"github.com/bobuk/clistcal/internal/logging"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestLoadFrom_Defaults(t *testing.T) {
	t.Setenv(EnvClistUsername, "alice")
	t.Setenv(EnvClistAPIKey, "secret")

	config, err := LoadFrom(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)

	assert.Equal(t, "Africa/Abidjan", config.Timezone)
	assert.Equal(t, "primary", config.CalendarID)
	assert.Equal(t, "google", config.Provider)
	assert.Equal(t, 1000, config.Clist.Limit)
	assert.Equal(t, 30*time.Second, config.Clist.Timeout.Duration)
	assert.Equal(t, logging.DefaultVerbosity, config.Verbosity())
	assert.Nil(t, config.Rules())
	assert.Equal(t, "alice", config.Clist.Username)
	assert.Equal(t, "secret", config.Clist.APIKey)
	assert.NoError(t, config.RequireClistCredentials())
}

func TestLoadFrom_File(t *testing.T) {
	path := writeConfig(t, `
client_id = "id"
client_secret = "shh"
verbosity_level = 0
timezone = "Europe/Berlin"
database = "tokens.db"

[clist]
limit = 50
timeout = "5s"

[[filter]]
resource = "codechef.com"
field = "event"
pattern = "^Starters"

[[filter]]
resource = "leetcode.com"
`)

	config, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "id", config.ClientID)
	assert.Equal(t, 0, config.Verbosity())
	assert.Equal(t, "Europe/Berlin", config.Location().String())
	assert.Equal(t, 50, config.Clist.Limit)
	assert.Equal(t, 5*time.Second, config.Clist.Timeout.Duration)
	assert.Equal(t, "https://clist.by/api/v4/contest/", config.Clist.Endpoint)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "tokens.db"), config.DatabasePath())
	assert.Equal(t, []contest.Rule{
		{Resource: "codechef.com", Field: "event", Pattern: "^Starters"},
		{Resource: "leetcode.com"},
	}, config.Rules())
}

func TestLoadFrom_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad timezone", `timezone = "Mars/Olympus"`},
		{"bad limit", "[clist]\nlimit = 0"},
		{"bad filter", "[[filter]]\nresource = \"x\"\nfield = \"href\"\npattern = \"(\""},
		{"bad provider", `provider = "outlook"`},
		{"caldav without server", `provider = "caldav"`},
		{"bad toml", `timezone = `},
		{"bad duration", "[clist]\ntimeout = \"soon\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFrom(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestRequireClistCredentials(t *testing.T) {
	config := Default()
	assert.ErrorIs(t, config.RequireClistCredentials(), ErrMissingCredentials)

	config.Clist.Username = "alice"
	assert.ErrorIs(t, config.RequireClistCredentials(), ErrMissingCredentials)

	config.Clist.APIKey = "key"
	assert.NoError(t, config.RequireClistCredentials())
}
