// Package settings holds the configuration of the hac command, stored as TOML.
package settings

import (
	"errors"
	"os"

	"github.com/heretere/hac/oerror"
	"github.com/heretere/hac/session"
	"github.com/pelletier/go-toml"
	"github.com/sirupsen/logrus"
)

// Settings contains everything that can be configured for the proxy.
type Settings struct {
	Network struct {
		// LocalAddress is the address players connect to.
		LocalAddress string `toml:"local_address"`
		// RemoteAddress is the address of the server players are proxied to.
		RemoteAddress string `toml:"remote_address"`
		// SpectrumToken authenticates the proxy with a spectrum server, if set.
		SpectrumToken string `toml:"spectrum_token"`
	} `toml:"network"`
	Protocol struct {
		// Version is the protocol the server speaks. If 0, it is detected by pinging the server.
		Version int32 `toml:"version"`
	} `toml:"protocol"`
	Interception struct {
		Inbound  bool `toml:"inbound"`
		Outbound bool `toml:"outbound"`
	} `toml:"interception"`
	Logging struct {
		Level string `toml:"level"`
	} `toml:"logging"`
	Sentry struct {
		DSN         string `toml:"dsn"`
		Environment string `toml:"environment"`
	} `toml:"sentry"`
	Inspector struct {
		Enabled  bool   `toml:"enabled"`
		Address  string `toml:"address"`
		Interval int    `toml:"interval_millis"`
	} `toml:"inspector"`
	StatsView struct {
		Enabled bool   `toml:"enabled"`
		Address string `toml:"address"`
	} `toml:"statsview"`
}

// DefaultSettings returns the default settings.
func DefaultSettings() Settings {
	s := Settings{}
	s.Network.LocalAddress = ":19132"
	s.Network.RemoteAddress = "127.0.0.1:19133"
	s.Interception.Inbound = true
	s.Interception.Outbound = true
	s.Logging.Level = "info"
	s.Sentry.Environment = "production"
	s.Inspector.Address = "127.0.0.1:8081"
	s.Inspector.Interval = 500
	s.StatsView.Address = "localhost:8080"
	return s
}

// InterceptionOptions returns the interception toggles as session options.
func (s Settings) InterceptionOptions() session.Options {
	return session.Options{Inbound: s.Interception.Inbound, Outbound: s.Interception.Outbound}
}

// LogLevel returns the configured log level, or info if it is not a valid level.
func (s Settings) LogLevel() logrus.Level {
	lvl, err := logrus.ParseLevel(s.Logging.Level)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// SaveDefault will create and save the default settings file. If the file already exists, it will return an error.
func SaveDefault(path string) error {
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		return oerror.New("settings file %v already exists", path)
	}
	data, err := toml.Marshal(DefaultSettings())
	if err != nil {
		return oerror.New("failed encoding default settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return oerror.New("failed creating settings file: %w", err)
	}
	return nil
}

// Load will load the settings from your settings file, and return an error if the file does not exist.
// Values missing from the file keep their defaults.
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, oerror.New("error reading settings: %w", err)
	}

	s := DefaultSettings()
	if err = toml.Unmarshal(data, &s); err != nil {
		return Settings{}, oerror.New("error decoding settings: %w", err)
	}
	return s, nil
}
