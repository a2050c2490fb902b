package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, "microfinance", cfg.Database.Name)
	assert.False(t, cfg.Reclassifier.Enabled)
	assert.Equal(t, time.Hour, cfg.Reclassifier.Interval)
	assert.Equal(t, 10*time.Minute, cfg.Reclassifier.Timeout)
	assert.Equal(t, 4, cfg.Reclassifier.Workers)
	assert.Equal(t, 2, cfg.Reclassifier.MaxRetries)
	assert.Equal(t, 15*time.Minute, cfg.Preview.CacheTTL)
	assert.Nil(t, cfg.CORS.AllowedOrigins)
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("ENABLE_RECLASSIFIER", true)
	v.Set("RECLASSIFIER_INTERVAL", "15m")
	v.Set("RECLASSIFIER_WORKERS", 0)
	v.Set("PREVIEW_CACHE_TTL", "not-a-duration")
	v.Set("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")

	cfg := fromViper(v)

	assert.True(t, cfg.Reclassifier.Enabled)
	assert.Equal(t, 15*time.Minute, cfg.Reclassifier.Interval)
	assert.Equal(t, 4, cfg.Reclassifier.Workers)
	assert.Equal(t, 15*time.Minute, cfg.Preview.CacheTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}
