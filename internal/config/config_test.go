package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearAppEnv(t *testing.T) {
	t.Helper()
	for _, e := range os.Environ() {
		if len(e) > 4 && e[:4] == "APP_" {
			key := e[:indexOf(e, '=')]
			os.Unsetenv(key)
		}
	}
}

func indexOf(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return len(s)
}

func TestLoadAppliesDefaultsWithNoFileOrEnv(t *testing.T) {
	clearAppEnv(t)

	settings, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 8080, settings.App.Port)
	assert.Equal(t, "newsletter", settings.DB.Name)
	assert.True(t, settings.DB.RequireSSL)
	assert.Equal(t, "redis://127.0.0.1:6379", settings.RedisURI)
}

func TestLoadEnvOverridesNestedKeys(t *testing.T) {
	clearAppEnv(t)
	os.Setenv("APP__DB__HOST", "db.internal")
	os.Setenv("APP__DB__PORT", "6543")
	os.Setenv("APP__APP__BASE_URL", "https://newsletter.example.com")
	defer clearAppEnv(t)

	settings, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "db.internal", settings.DB.Host)
	assert.Equal(t, 6543, settings.DB.Port)
	assert.Equal(t, "https://newsletter.example.com", settings.App.BaseURL)
}

func TestDBConnectionStringRespectsRequireSSL(t *testing.T) {
	withSSL := DB{Username: "u", Password: "p", Host: "h", Port: 5432, Name: "n", RequireSSL: true}
	assert.Contains(t, withSSL.ConnectionString(), "sslmode=require")

	withoutSSL := withSSL
	withoutSSL.RequireSSL = false
	assert.Contains(t, withoutSSL.ConnectionString(), "sslmode=disable")
}
