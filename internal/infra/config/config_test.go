package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "test-token")
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("ADMIN_TELEGRAM_ID", "1")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 330, cfg.TZOffsetMinutes)
	assert.Equal(t, 5, cfg.DispatchWindowMin)
	assert.Equal(t, 7, cfg.RetentionDays)
	assert.Equal(t, 5, cfg.SnoozeMinutes)
	assert.Equal(t, "*/5 * * * *", cfg.CronSpecDispatch)
	assert.Equal(t, "0 0 * * *", cfg.CronSpecCleanup)
}

func TestLoadRejectsNonPositiveKnobs(t *testing.T) {
	cases := []struct {
		name  string
		env   string
		value string
	}{
		{"zero window", "DISPATCH_WINDOW_MINUTES", "0"},
		{"negative window", "DISPATCH_WINDOW_MINUTES", "-5"},
		{"negative retention", "RETENTION_DAYS", "-1"},
		{"zero retention", "RETENTION_DAYS", "0"},
		{"negative snooze", "SNOOZE_MINUTES", "-5"},
		{"zero snooze", "SNOOZE_MINUTES", "0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tc.env, tc.value)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.env)
		})
	}
}
