package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/attendance")
	t.Setenv("TELEGRAM_TOKEN", "123:abc")
}

func TestFromEnv_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "migrations", cfg.MigrationsPath)
	assert.Equal(t, "data/files", cfg.StorageDir)
	assert.Equal(t, "/files", cfg.StorageBaseURL)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes())
	assert.Equal(t, 15*time.Minute, cfg.LateAfter)
	assert.Equal(t, 5*time.Second, cfg.NotifyPollInterval)
	assert.Equal(t, 50, cfg.NotifyBatchSize)
	assert.Empty(t, cfg.AdminTelegramIDs)
	assert.Empty(t, cfg.AllowedMIMETypes)
	assert.False(t, cfg.IsProduction())
}

func TestFromEnv_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("ENV", "production")
	t.Setenv("ADMIN_TELEGRAM_IDS", "11, 22,,33")
	t.Setenv("ALLOWED_MIME_TYPES", "image/png, application/pdf")
	t.Setenv("MAX_UPLOAD_MB", "2")
	t.Setenv("LATE_AFTER_MINUTES", "5")
	t.Setenv("NOTIFY_POLL_INTERVAL", "750ms")
	t.Setenv("NOTIFY_BATCH_SIZE", "10")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, []int64{11, 22, 33}, cfg.AdminTelegramIDs)
	assert.Equal(t, []string{"image/png", "application/pdf"}, cfg.AllowedMIMETypes)
	assert.Equal(t, int64(2<<20), cfg.MaxUploadBytes())
	assert.Equal(t, 5*time.Minute, cfg.LateAfter)
	assert.Equal(t, 750*time.Millisecond, cfg.NotifyPollInterval)
	assert.Equal(t, 10, cfg.NotifyBatchSize)
}

func TestFromEnv_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing dsn", map[string]string{"DB_DSN": ""}},
		{"missing token", map[string]string{"TELEGRAM_TOKEN": ""}},
		{"bad admin id", map[string]string{"ADMIN_TELEGRAM_IDS": "1,abc"}},
		{"negative upload", map[string]string{"MAX_UPLOAD_MB": "-1"}},
		{"bad late", map[string]string{"LATE_AFTER_MINUTES": "soon"}},
		{"bad interval", map[string]string{"NOTIFY_POLL_INTERVAL": "5"}},
		{"zero batch", map[string]string{"NOTIFY_BATCH_SIZE": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}
