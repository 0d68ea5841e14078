package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.False(t, cfg.UsePostgres())
	assert.Equal(t, 200*time.Millisecond, cfg.AutosaveDelay)
	assert.Equal(t, []string{"localhost:5173", "localhost:3000"}, cfg.Origins())
	assert.Equal(t, slog.LevelInfo, cfg.Level())
}

func TestFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_URL", "postgres://eyedraw@localhost/eyedraw")
	t.Setenv("AUTOSAVE_DELAY", "1s")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("ALLOWED_ORIGINS", " clinic.example.org , ")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.True(t, cfg.UsePostgres())
	assert.Equal(t, time.Second, cfg.AutosaveDelay)
	assert.Equal(t, slog.LevelDebug, cfg.Level())
	assert.Equal(t, []string{"clinic.example.org"}, cfg.Origins())
}

func TestBadLevelFallsBackToInfo(t *testing.T) {
	cfg := &Config{LogLevel: "chatty"}
	assert.Equal(t, slog.LevelInfo, cfg.Level())
}
