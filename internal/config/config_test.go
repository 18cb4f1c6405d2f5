package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
[server]
http_port = 8090

[database]
host = "localhost"
port = 5432
user = "clinic"
password = "from-file"
dbname = "clinic"

[clinic]
open_time = "09:00"
close_time = "18:00"
timezone = "Europe/Moscow"
working_days = ["mon", "wed", "fri"]

[slots]
fail_open = false
online_scope = "provider"

[[services]]
id = 1
name = "Консультация"
price = 1500
duration_minutes = 30

[[services]]
id = 2
name = "Лечение кариеса"
price = 6000
duration_minutes = 60
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("DB_PASSWORD", "from-env")

	cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)

	assert.Equal(t, 8090, cfg.Server.HTTPPort)
	assert.Equal(t, 15, cfg.Server.ReadTimeout)
	assert.Equal(t, "from-env", cfg.Database.Password)
	assert.Contains(t, cfg.Database.DSN(), "password=from-env")
	assert.False(t, cfg.Slots.FailOpen)
	assert.Equal(t, "provider", cfg.Slots.OnlineScope)

	slots, err := cfg.SlotCatalog()
	require.NoError(t, err)
	assert.Equal(t, 18, slots.Len())

	services, err := cfg.ServiceCatalog()
	require.NoError(t, err)
	assert.Len(t, services.All(), 2)

	days, err := cfg.Clinic.Weekdays()
	require.NoError(t, err)
	assert.True(t, days[time.Wednesday])
	assert.False(t, days[time.Tuesday])
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "[server]\nhttp_port = 8080\n"))
	require.NoError(t, err)

	assert.True(t, cfg.Slots.FailOpen)
	assert.Equal(t, "clinic", cfg.Slots.OnlineScope)

	slots, err := cfg.SlotCatalog()
	require.NoError(t, err)
	assert.Equal(t, 14, slots.Len())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"close before open", func(c *Config) { c.Clinic.CloseTime = "09:00" }},
		{"bad open time", func(c *Config) { c.Clinic.OpenTime = "9am" }},
		{"unknown weekday", func(c *Config) { c.Clinic.WorkingDays = []string{"funday"} }},
		{"unknown scope", func(c *Config) { c.Slots.OnlineScope = "city" }},
		{"service without duration", func(c *Config) {
			c.Services = []ServiceConfig{{ID: 1, Name: "Осмотр", Price: 100}}
		}},
		{"locker without redis", func(c *Config) { c.Locker.Enabled = true }},
		{"events without url", func(c *Config) { c.Events.Enabled = true }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}
