package db

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

var ErrNoActiveProfile = errors.New("no active profile found")

// Config is the runtime configuration of the active profile.
type Config struct {
	Profile       *Profile
	CommandServer *CommandServer
	APIServer     *APIServer
	Display       *Display
}

// Overrides are settings supplied outside the database. Empty or zero
// fields leave the stored value alone.
type Overrides struct {
	Host       string
	Port       int
	DeviceType string
}

// ActiveConfig loads the configuration of the active profile.
func (db *DB) ActiveConfig(ctx context.Context) (*Config, error) {
	profile, err := db.Profiles().GetActive(ctx)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return nil, ErrNoActiveProfile
		}
		return nil, fmt.Errorf("failed to get active profile: %w", err)
	}

	cfg := &Config{Profile: profile}

	if cfg.CommandServer, err = db.CommandServers().Get(ctx, profile.ID); err != nil {
		return nil, fmt.Errorf("failed to get command server config: %w", err)
	}
	if cfg.APIServer, err = db.APIServers().Get(ctx, profile.ID); err != nil {
		return nil, fmt.Errorf("failed to get API server config: %w", err)
	}
	if cfg.Display, err = db.Displays().Get(ctx, profile.ID); err != nil {
		return nil, fmt.Errorf("failed to get display config: %w", err)
	}
	return cfg, nil
}

// ApplyOverrides layers o over the stored settings.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.Host != "" {
		c.CommandServer.Host = o.Host
	}
	if o.Port != 0 {
		c.CommandServer.Port = o.Port
	}
	if o.DeviceType != "" {
		c.Display.Type = o.DeviceType
	}
}

// EnvOverrides reads HOST, PORT and TREE_DEVICE through getenv.
func EnvOverrides(getenv func(string) string) (Overrides, error) {
	o := Overrides{
		Host:       getenv("HOST"),
		DeviceType: getenv("TREE_DEVICE"),
	}
	if v := getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return o, fmt.Errorf("invalid PORT %q", v)
		}
		o.Port = port
	}
	return o, nil
}
