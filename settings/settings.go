// Package settings loads the drive's persisted configuration: rewind
// policy, backup policy, and the autosave idle delay. It follows the
// embed-default-then-parse-TOML idiom the teacher uses for its own floppy
// drive config.
package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "embed"

	"github.com/BurntSushi/toml"

	"github.com/sergev/fdsdrive/fdsconst"
)

//go:embed fdsdrive.toml
var defaultConfigData []byte

// RewindSpeed selects how aggressively the drive rewinds to byte 0 between
// reads, matching fdsemu.c's REWIND_SPEED_ORIGINAL/REWIND_SPEED_TURBO.
type RewindSpeed int

const (
	RewindOriginal RewindSpeed = iota
	RewindTurbo
)

func (r RewindSpeed) String() string {
	if r == RewindTurbo {
		return "turbo"
	}
	return "original"
}

// BackupPolicy selects what, if anything, Save does with the previous file
// contents before overwriting, matching fdsemu.c's SAVES_* constants.
type BackupPolicy int

const (
	BackupNone BackupPolicy = iota
	BackupRewriteBackup
	BackupEverdrive
)

func (b BackupPolicy) String() string {
	switch b {
	case BackupRewriteBackup:
		return "rewrite-backup"
	case BackupEverdrive:
		return "everdrive"
	default:
		return "none"
	}
}

// Settings mirrors the subset of fdskey_settings that the drive core
// consults.
type Settings struct {
	RewindSpeed   RewindSpeed   `toml:"-"`
	BackupPolicy  BackupPolicy  `toml:"-"`
	AutosaveDelay time.Duration `toml:"-"`
}

// fileSettings is the on-disk TOML shape; string enums are more legible in
// a config file than raw integers.
type fileSettings struct {
	RewindSpeed     string `toml:"rewind_speed"`
	BackupPolicy    string `toml:"backup_policy"`
	AutosaveSeconds int    `toml:"autosave_seconds"`
}

// Default returns the settings a freshly booted drive uses before any
// config file is read: original rewind speed, no backups, and the
// compile-time autosave delay.
func Default() Settings {
	return Settings{
		RewindSpeed:   RewindOriginal,
		BackupPolicy:  BackupNone,
		AutosaveDelay: fdsconst.DefaultAutosaveDelay,
	}
}

func configPath() (string, error) {
	var configDir string
	var err error

	switch runtime.GOOS {
	case "windows":
		configDir, err = os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("settings: cannot determine user config directory: %w", err)
		}
		configDir = filepath.Join(configDir, "fdsdrive")
	default:
		configDir, err = os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("settings: cannot determine user home directory: %w", err)
		}
	}

	return filepath.Join(configDir, ".fdsdrive.toml"), nil
}

// Load reads the persisted config, writing the embedded default to disk
// first if no config file exists yet.
func Load() (Settings, error) {
	path, err := configPath()
	if err != nil {
		return Settings{}, err
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return Settings{}, fmt.Errorf("settings: failed to create config directory %s: %w", dir, err)
		}
		if err := os.WriteFile(path, defaultConfigData, 0644); err != nil {
			return Settings{}, fmt.Errorf("settings: failed to create default config at %s: %w", path, err)
		}
	}

	var raw fileSettings
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return Settings{}, fmt.Errorf("settings: failed to parse TOML config at %s: %w", path, err)
	}

	s := Default()
	switch raw.RewindSpeed {
	case "", "original":
		s.RewindSpeed = RewindOriginal
	case "turbo":
		s.RewindSpeed = RewindTurbo
	default:
		return Settings{}, fmt.Errorf("settings: unknown rewind_speed %q", raw.RewindSpeed)
	}
	switch raw.BackupPolicy {
	case "", "none":
		s.BackupPolicy = BackupNone
	case "rewrite-backup":
		s.BackupPolicy = BackupRewriteBackup
	case "everdrive":
		s.BackupPolicy = BackupEverdrive
	default:
		return Settings{}, fmt.Errorf("settings: unknown backup_policy %q", raw.BackupPolicy)
	}
	if raw.AutosaveSeconds > 0 {
		s.AutosaveDelay = time.Duration(raw.AutosaveSeconds) * time.Second
	}

	return s, nil
}
