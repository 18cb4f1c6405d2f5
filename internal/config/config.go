package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/m04kA/SMC-ClinicBooking/internal/domain"
	"github.com/m04kA/SMC-ClinicBooking/pkg/types"
)

// ErrInvalidConfig возвращается, когда конфигурация не прошла проверку
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config конфигурация сервиса
type Config struct {
	Server      ServerConfig      `toml:"server"`
	Database    DatabaseConfig    `toml:"database"`
	Logs        LogsConfig        `toml:"logs"`
	Metrics     MetricsConfig     `toml:"metrics"`
	UserService UserServiceConfig `toml:"user_service"`
	Clinic      ClinicConfig      `toml:"clinic"`
	Slots       SlotsConfig       `toml:"slots"`
	Locker      LockerConfig      `toml:"locker"`
	Redis       RedisConfig       `toml:"redis"`
	Events      EventsConfig      `toml:"events"`
	Services    []ServiceConfig   `toml:"services"`
}

type ServerConfig struct {
	HTTPPort        int `toml:"http_port"`
	ReadTimeout     int `toml:"read_timeout"`     // секунды
	WriteTimeout    int `toml:"write_timeout"`    // секунды
	IdleTimeout     int `toml:"idle_timeout"`     // секунды
	ShutdownTimeout int `toml:"shutdown_timeout"` // секунды
}

type DatabaseConfig struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	User            string `toml:"user"`
	Password        string `toml:"password"`
	DBName          string `toml:"dbname"`
	SSLMode         string `toml:"sslmode"`
	MaxOpenConns    int    `toml:"max_open_conns"`
	MaxIdleConns    int    `toml:"max_idle_conns"`
	ConnMaxLifetime int    `toml:"conn_max_lifetime"` // секунды
}

// DSN строка подключения для lib/pq
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

type LogsConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

type MetricsConfig struct {
	Enabled     bool   `toml:"enabled"`
	Path        string `toml:"path"`
	ServiceName string `toml:"service_name"`
}

type UserServiceConfig struct {
	URL     string `toml:"url"`
	Timeout int    `toml:"timeout"` // секунды
}

// ClinicConfig часы работы клиники
type ClinicConfig struct {
	OpenTime    string   `toml:"open_time"`
	CloseTime   string   `toml:"close_time"`
	Timezone    string   `toml:"timezone"`
	WorkingDays []string `toml:"working_days"` // mon, tue, ...
}

// Location часовой пояс клиники
func (c ClinicConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}

// Weekdays рабочие дни недели
func (c ClinicConfig) Weekdays() (map[time.Weekday]bool, error) {
	days := make(map[time.Weekday]bool, len(c.WorkingDays))
	for _, name := range c.WorkingDays {
		day, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("%w: unknown weekday %q", ErrInvalidConfig, name)
		}
		days[day] = true
	}
	return days, nil
}

// SlotsConfig политика расчёта свободных слотов
type SlotsConfig struct {
	FailOpen    bool   `toml:"fail_open"`
	OnlineScope string `toml:"online_scope"` // clinic | provider
}

type LockerConfig struct {
	Enabled       bool `toml:"enabled"`
	TTLMs         int  `toml:"ttl_ms"`
	WaitTimeoutMs int  `toml:"wait_timeout_ms"`
}

type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

type EventsConfig struct {
	Enabled  bool   `toml:"enabled"`
	URL      string `toml:"url"`
	Exchange string `toml:"exchange"`
}

// ServiceConfig услуга клиники из прайс-листа
type ServiceConfig struct {
	ID              int64   `toml:"id"`
	Name            string  `toml:"name"`
	Price           float64 `toml:"price"`
	DurationMinutes int     `toml:"duration_minutes"`
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// Load читает конфигурацию из TOML-файла.
// Перед чтением подгружает .env (если есть); секреты из окружения перекрывают значения файла.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := defaults()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config file %s: %w", path, err)
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate проверяет согласованность конфигурации
func (c *Config) Validate() error {
	if c.Server.HTTPPort <= 0 {
		return fmt.Errorf("%w: server.http_port must be positive", ErrInvalidConfig)
	}

	open, err := types.NewTimeStringFromString(c.Clinic.OpenTime)
	if err != nil {
		return fmt.Errorf("%w: clinic.open_time: %v", ErrInvalidConfig, err)
	}
	closeAt, err := types.NewTimeStringFromString(c.Clinic.CloseTime)
	if err != nil {
		return fmt.Errorf("%w: clinic.close_time: %v", ErrInvalidConfig, err)
	}
	if _, err := domain.NewSlotCatalog(open, closeAt); err != nil {
		return fmt.Errorf("%w: clinic hours: %v", ErrInvalidConfig, err)
	}
	if _, err := c.Clinic.Location(); err != nil {
		return fmt.Errorf("%w: clinic.timezone: %v", ErrInvalidConfig, err)
	}
	if _, err := c.Clinic.Weekdays(); err != nil {
		return err
	}

	switch c.Slots.OnlineScope {
	case "clinic", "provider":
	default:
		return fmt.Errorf("%w: slots.online_scope must be clinic or provider, got %q", ErrInvalidConfig, c.Slots.OnlineScope)
	}

	if _, err := c.ServiceCatalog(); err != nil {
		return fmt.Errorf("%w: services: %v", ErrInvalidConfig, err)
	}

	if c.Locker.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("%w: locker enabled without redis.addr", ErrInvalidConfig)
	}
	if c.Events.Enabled && c.Events.URL == "" {
		return fmt.Errorf("%w: events enabled without events.url", ErrInvalidConfig)
	}

	return nil
}

// ServiceCatalog строит общий каталог услуг
func (c *Config) ServiceCatalog() (*domain.ServiceCatalog, error) {
	options := make([]domain.ServiceOption, 0, len(c.Services))
	for _, s := range c.Services {
		options = append(options, domain.ServiceOption{
			ID:              s.ID,
			Name:            s.Name,
			Price:           s.Price,
			DurationMinutes: s.DurationMinutes,
		})
	}
	return domain.NewServiceCatalog(options)
}

// SlotCatalog строит каталог слотов по часам работы
func (c *Config) SlotCatalog() (*domain.SlotCatalog, error) {
	return domain.NewSlotCatalog(types.TimeString(c.Clinic.OpenTime), types.TimeString(c.Clinic.CloseTime))
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:        8080,
			ReadTimeout:     15,
			WriteTimeout:    15,
			IdleTimeout:     60,
			ShutdownTimeout: 10,
		},
		Database: DatabaseConfig{
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 300,
		},
		Logs:        LogsConfig{Level: "info"},
		Metrics:     MetricsConfig{Path: "/metrics", ServiceName: "clinic_booking"},
		UserService: UserServiceConfig{Timeout: 5},
		Clinic: ClinicConfig{
			OpenTime:    domain.DefaultOpenTime,
			CloseTime:   domain.DefaultCloseTime,
			Timezone:    "UTC",
			WorkingDays: []string{"mon", "tue", "wed", "thu", "fri", "sat"},
		},
		Slots:  SlotsConfig{FailOpen: true, OnlineScope: "clinic"},
		Locker: LockerConfig{TTLMs: 5000, WaitTimeoutMs: 2000},
		Events: EventsConfig{Exchange: "clinic.bookings"},
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("AMQP_URL"); v != "" {
		cfg.Events.URL = v
	}
}
