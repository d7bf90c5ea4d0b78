// Package config holds the daemon options, the optional /etc/bootkitd.toml
// override file and the idle-time duration parser.
package config

import (
	"log/slog"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Paths locates the files the daemon reads and writes.
type Paths struct {
	GrubConfig string `toml:"grub_config"` // the key/value default file
	GrubDir    string `toml:"grub_dir"`    // its directory, watched for changes
	BootDir    string `toml:"boot_dir"`    // generated menu + grubenv, also watched
	BootMenu   string `toml:"boot_menu"`
	GrubEnv    string `toml:"grub_env"`
	Database   string `toml:"database"`
}

// Options is the resolved daemon configuration.
type Options struct {
	Session  bool          // connect to the session bus instead of the system bus
	LogLevel string        // empty means BOOTKIT_LOG_LEVEL env or the built-in default
	Pretty   bool          // keep timestamps in log output
	IdleTime time.Duration // zero disables the idle shutdown
	Paths    Paths
}

// DefaultPaths are used when no override file exists. They match a stock
// GRUB2 installation.
var DefaultPaths = Paths{
	GrubConfig: "/etc/default/grub",
	GrubDir:    "/etc/default",
	BootDir:    "/boot/grub2",
	BootMenu:   "/boot/grub2/grub.cfg",
	GrubEnv:    "/boot/grub2/grubenv",
	Database:   "/var/lib/bootkit/snapshots.db",
}

// fileConfig is the shape of the optional TOML override file.
type fileConfig struct {
	IdleTime string `toml:"idle_time"`
	Paths    Paths  `toml:"paths"`
}

// LoadFile merges the TOML file at path into opts. A missing or unreadable
// file leaves the defaults in place so the daemon works without any custom
// configuration.
func LoadFile(path string, opts *Options) {
	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("ignoring unreadable config file", "path", path, "err", err)
		}
		return
	}

	if fc.Paths.GrubConfig != "" {
		opts.Paths.GrubConfig = fc.Paths.GrubConfig
	}
	if fc.Paths.GrubDir != "" {
		opts.Paths.GrubDir = fc.Paths.GrubDir
	}
	if fc.Paths.BootDir != "" {
		opts.Paths.BootDir = fc.Paths.BootDir
	}
	if fc.Paths.BootMenu != "" {
		opts.Paths.BootMenu = fc.Paths.BootMenu
	}
	if fc.Paths.GrubEnv != "" {
		opts.Paths.GrubEnv = fc.Paths.GrubEnv
	}
	if fc.Paths.Database != "" {
		opts.Paths.Database = fc.Paths.Database
	}

	if fc.IdleTime != "" {
		idle, err := ParseIdleTime(fc.IdleTime)
		if err != nil {
			slog.Warn("ignoring invalid idle_time in config file", "path", path, "err", err)
			return
		}
		opts.IdleTime = idle
	}
}
