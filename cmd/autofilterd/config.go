package main

import (
	"os"

	"github.com/BurntSushi/toml"
)

// daemonConfig holds the daemon's operational knobs, loaded from a
// secondary TOML file separate from the policy file.
type daemonConfig struct {
	Resolver resolverConfig `toml:"resolver"`
	GeoIP    geoIPConfig    `toml:"geoip"`
	Pidfile  string         `toml:"pidfile"`
	Rotation rotationConfig `toml:"rotation"`
	Reload   reloadConfig   `toml:"reload"`
	Admin    adminConfig    `toml:"admin"`
	Syslog   syslogConfig   `toml:"syslog"`
}

type resolverConfig struct {
	Address        string `toml:"address"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type geoIPConfig struct {
	DatabasePath string `toml:"database_path"`
}

type rotationConfig struct {
	CeilingBytes    int64  `toml:"ceiling_bytes"`
	ArchiveTemplate string `toml:"archive_template"`
}

type reloadConfig struct {
	MinIntervalSeconds int `toml:"min_interval_seconds"`
}

type adminConfig struct {
	Address string `toml:"address"`
}

type syslogConfig struct {
	Network string `toml:"network"`
	Address string `toml:"address"`
	Tag     string `toml:"tag"`
}

// defaultDaemonConfig matches defaults, applied when the TOML file is
// absent or leaves a section unset.
func defaultDaemonConfig() daemonConfig {
	return daemonConfig{
		Resolver: resolverConfig{Address: "127.0.0.1:53", TimeoutSeconds: 5},
		Rotation: rotationConfig{CeilingBytes: 1 << 30, ArchiveTemplate: "%s.%d"},
		Reload:   reloadConfig{MinIntervalSeconds: 60},
	}
}

// loadDaemonConfig reads path, merging onto the compiled-in defaults. A
// missing file is not fatal for this secondary config; a malformed
// one is a Configuration defect and fails fast.
func loadDaemonConfig(path string) (daemonConfig, error) {
	cfg := defaultDaemonConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}
	if cfg.Resolver.Address == "" {
		cfg.Resolver.Address = "127.0.0.1:53"
	}
	if cfg.Resolver.TimeoutSeconds == 0 {
		cfg.Resolver.TimeoutSeconds = 5
	}
	if cfg.Rotation.CeilingBytes == 0 {
		cfg.Rotation.CeilingBytes = 1 << 30
	}
	if cfg.Rotation.ArchiveTemplate == "" {
		cfg.Rotation.ArchiveTemplate = "%s.%d"
	}
	if cfg.Reload.MinIntervalSeconds == 0 {
		cfg.Reload.MinIntervalSeconds = 60
	}
	return cfg, nil
}
