// Package config reads the site settings from the environment (a .env file
// is loaded first when present) and an optional config file.
package config

import (
	"fmt"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/viper"

	"github.com/vishwar23/portfolio/internal/contact"
	"github.com/vishwar23/portfolio/internal/section"
)

const (
	PortKey             = "port"
	RelayKey            = "relay"
	FormEndpointKey     = "form_endpoint"
	RelayTimeoutKey     = "relay_timeout"
	DBPathKey           = "db_path"
	StaticDirKey        = "static_dir"
	AdminUsernameKey    = "admin_username"
	AdminPasswordKey    = "admin_password"
	SMTPHostKey         = "smtp_host"
	SMTPPortKey         = "smtp_port"
	SMTPUserKey         = "smtp_user"
	SMTPPassKey         = "smtp_pass"
	ToEmailKey          = "to_email"
	SectionThresholdKey = "section_threshold"
	SessionIdleKey      = "session_idle"
	LogLevelKey         = "log_level"
	GinModeKey          = "gin_mode"
)

type Config struct {
	Port             string
	Relay            string
	FormEndpoint     string
	RelayTimeout     time.Duration
	DBPath           string
	StaticDir        string
	AdminUsername    string
	AdminPassword    string
	SMTP             contact.SMTPConfig
	SectionThreshold float64
	SessionIdle      time.Duration
	LogLevel         string
	GinMode          string
}

func defaults(v *viper.Viper) {
	v.SetDefault(PortKey, "8080")
	v.SetDefault(RelayKey, "http")
	v.SetDefault(FormEndpointKey, "https://formspree.io/f/meozryzl")
	v.SetDefault(RelayTimeoutKey, 10*time.Second)
	v.SetDefault(DBPathKey, "portfolio.db")
	v.SetDefault(StaticDirKey, "./static")
	v.SetDefault(SMTPHostKey, "smtp.gmail.com")
	v.SetDefault(SMTPPortKey, "587")
	v.SetDefault(ToEmailKey, "vishwarajkumar05@gmail.com")
	v.SetDefault(SectionThresholdKey, section.DefaultThreshold)
	v.SetDefault(SessionIdleKey, 30*time.Minute)
	v.SetDefault(LogLevelKey, "info")
	v.SetDefault(GinModeKey, "release")
}

// Load builds the configuration. Environment variables use the upper-case
// key names (PORT, FORM_ENDPOINT, ...) and win over the config file.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	defaults(v)
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	cfg := &Config{
		Port:          v.GetString(PortKey),
		Relay:         v.GetString(RelayKey),
		FormEndpoint:  v.GetString(FormEndpointKey),
		RelayTimeout:  v.GetDuration(RelayTimeoutKey),
		DBPath:        v.GetString(DBPathKey),
		StaticDir:     v.GetString(StaticDirKey),
		AdminUsername: v.GetString(AdminUsernameKey),
		AdminPassword: v.GetString(AdminPasswordKey),
		SMTP: contact.SMTPConfig{
			Host: v.GetString(SMTPHostKey),
			Port: v.GetString(SMTPPortKey),
			User: v.GetString(SMTPUserKey),
			Pass: v.GetString(SMTPPassKey),
			To:   v.GetString(ToEmailKey),
		},
		SectionThreshold: v.GetFloat64(SectionThresholdKey),
		SessionIdle:      v.GetDuration(SessionIdleKey),
		LogLevel:         v.GetString(LogLevelKey),
		GinMode:          v.GetString(GinModeKey),
	}

	if cfg.SessionIdle <= 0 {
		return nil, fmt.Errorf("%s must be positive, got %s", SessionIdleKey, cfg.SessionIdle)
	}
	return cfg, nil
}
