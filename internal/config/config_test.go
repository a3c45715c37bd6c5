package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"APP_ENV", "STORE_DRIVER", "DAILY_CHALLENGES", "WEEKLY_POINTS_MODE", "CHALLENGE_REPEAT_POLICY", "APP_TIMEZONE"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, StoreFirestore, cfg.StoreDriver)
	assert.Equal(t, 5, cfg.DailyChallenges)
	assert.Equal(t, WeeklyAccumulate, cfg.WeeklyPointsMode)
	assert.Equal(t, RepeatReuse, cfg.RepeatPolicy)
	assert.Equal(t, time.UTC, cfg.Location)
}

func TestLoadLeavesFirebaseCredentialsUnset(t *testing.T) {
	t.Setenv("FIREBASE_CREDENTIALS_FILE", "")
	t.Setenv("FCM_SERVICE_ACCOUNT_JSON", "")

	cfg := Load()

	assert.Empty(t, cfg.FirebaseCredentialsFile)
	assert.Empty(t, cfg.FirebaseCredentialsJSON)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("STORE_DRIVER", "Postgres")
	t.Setenv("DAILY_CHALLENGES", "3")
	t.Setenv("WEEKLY_POINTS_MODE", "OVERWRITE")
	t.Setenv("CHALLENGE_REPEAT_POLICY", "unique")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.0.2.1,")

	cfg := Load()

	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, StorePostgres, cfg.StoreDriver)
	assert.Equal(t, 3, cfg.DailyChallenges)
	assert.Equal(t, WeeklyOverwrite, cfg.WeeklyPointsMode)
	assert.Equal(t, RepeatUnique, cfg.RepeatPolicy)
	assert.Equal(t, 2.5, cfg.RateLimitRPS)
	assert.Equal(t, []string{"10.0.0.0/8", "192.0.2.1"}, cfg.TrustedProxies)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("DAILY_CHALLENGES", "zero")
	t.Setenv("WEEKLY_POINTS_MODE", "sometimes")
	t.Setenv("APP_TIMEZONE", "Mars/Olympus")

	cfg := Load()

	assert.Equal(t, 5, cfg.DailyChallenges)
	assert.Equal(t, WeeklyAccumulate, cfg.WeeklyPointsMode)
	assert.Equal(t, time.UTC, cfg.Location)
}

func TestLoadClampsDailyChallenges(t *testing.T) {
	t.Setenv("DAILY_CHALLENGES", "-2")
	assert.Equal(t, 5, Load().DailyChallenges)
}
