// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		Name        string `yaml:"name"`
		Environment string `yaml:"environment"`
		Port        int    `yaml:"port"`
	} `yaml:"app"`

	Database struct {
		Filename string `yaml:"filename"`
	} `yaml:"database"`

	Booking struct {
		GateWaitMS        int `yaml:"gate_wait_ms"`
		CancelNoticeHours int `yaml:"cancel_notice_hours"`
		SlotMinutes       int `yaml:"slot_minutes"`
		FillWindowHours   int `yaml:"fill_window_hours"`
		HorizonMonths     int `yaml:"horizon_months"`
	} `yaml:"booking"`

	Sweep struct {
		Enabled bool   `yaml:"enabled"`
		Cron    string `yaml:"cron"`
	} `yaml:"sweep"`

	Members struct {
		BaseURL        string `yaml:"base_url"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"members"`

	Notifications struct {
		RedisAddr string `yaml:"redis_addr"`
		Channel   string `yaml:"channel"`
	} `yaml:"notifications"`
}

// Load reads the .env next to the config file, then the YAML config, and
// applies defaults and validation.
func Load(configPath string) (*Config, error) {
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "courtbook"
	}
	if c.App.Environment == "" {
		c.App.Environment = "development"
	}
	if c.App.Port == 0 {
		c.App.Port = 8080
	}
	if c.Booking.GateWaitMS == 0 {
		c.Booking.GateWaitMS = 150
	}
	if c.Booking.CancelNoticeHours == 0 {
		c.Booking.CancelNoticeHours = 3
	}
	if c.Booking.SlotMinutes == 0 {
		c.Booking.SlotMinutes = 60
	}
	if c.Booking.FillWindowHours == 0 {
		c.Booking.FillWindowHours = 3
	}
	if c.Booking.HorizonMonths == 0 {
		c.Booking.HorizonMonths = 3
	}
	if c.Sweep.Cron == "" {
		c.Sweep.Cron = "*/5 * * * *"
	}
	if c.Members.TimeoutSeconds == 0 {
		c.Members.TimeoutSeconds = 5
	}
	if c.Notifications.Channel == "" {
		c.Notifications.Channel = "courtbook-events"
	}
}

func (c *Config) Validate() error {
	if c.App.Port <= 0 || c.App.Port > 65535 {
		return fmt.Errorf("app port %d is out of range", c.App.Port)
	}
	if c.Database.Filename == "" {
		return fmt.Errorf("database filename is required")
	}
	if c.Booking.GateWaitMS < 0 {
		return fmt.Errorf("gate wait must not be negative")
	}
	return nil
}

func (c *Config) GateWait() time.Duration {
	return time.Duration(c.Booking.GateWaitMS) * time.Millisecond
}

func (c *Config) CancelNotice() time.Duration {
	return time.Duration(c.Booking.CancelNoticeHours) * time.Hour
}

func (c *Config) SlotDuration() time.Duration {
	return time.Duration(c.Booking.SlotMinutes) * time.Minute
}

func (c *Config) FillWindow() time.Duration {
	return time.Duration(c.Booking.FillWindowHours) * time.Hour
}

func (c *Config) MembersTimeout() time.Duration {
	return time.Duration(c.Members.TimeoutSeconds) * time.Second
}
