package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("FORUMLY_JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "Forumly API", cfg.AppName)
	require.Equal(t, ":8080", cfg.HTTPAddress())
	require.Equal(t, 7*24*time.Hour, cfg.JWTTTL)
	require.Equal(t, 30*time.Second, cfg.SearchCacheTTL)
	require.Equal(t, 10, cfg.AuthRateLimit)
	require.Equal(t, 5, cfg.UploadMaxSizeMB)
	require.False(t, cfg.CloudinaryEnabled())
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("FORUMLY_JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsInvalidTTL(t *testing.T) {
	t.Setenv("FORUMLY_JWT_SECRET", "secret")
	t.Setenv("FORUMLY_JWT_TTL", "forever")

	_, err := Load()
	require.Error(t, err)
}

func TestHTTPAddressKeepsColonPrefix(t *testing.T) {
	cfg := Config{AppPort: ":9000"}
	require.Equal(t, ":9000", cfg.HTTPAddress())
}
