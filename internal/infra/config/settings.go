package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v6"

	"github.com/YoshitsuguKoike/moltfocus/internal/app/config"
	"github.com/YoshitsuguKoike/moltfocus/internal/domain/model/checkin"
)

// Defaults
const (
	DefaultTimezone     = "UTC"
	DefaultHistoryLimit = checkin.DefaultHistoryLimit
	DefaultListenAddr   = ":8765"
	DefaultLogLevel     = "warn"
)

// RawSettings represents the structure of setting.json file.
// Pointer fields tell "unset" apart from zero values.
type RawSettings struct {
	Timezone     *string `json:"timezone" yaml:"timezone"`
	HistoryLimit *int    `json:"history_limit" yaml:"history_limit"`

	JournalFinalize *bool `json:"journal_finalize" yaml:"journal_finalize"`
	ArchiveHistory  *bool `json:"archive_history" yaml:"archive_history"`
	DisableRecovery *bool `json:"disable_recovery" yaml:"disable_recovery"`

	ListenAddr *string `json:"listen_addr" yaml:"listen_addr"`
	LogLevel   *string `json:"log_level" yaml:"log_level"`
	LogFile    *string `json:"log_file" yaml:"log_file"`
}

// SettingFile returns the setting.json path of the workspace at root
func SettingFile(root string) string {
	return filepath.Join(root, "planner", "setting.json")
}

// LoadSettings loads the configuration of the workspace at root.
// Priority: setting.json > environment > defaults
func LoadSettings(root string) (*config.AppConfig, error) {
	fromEnv, err := loadEnv()
	if err != nil {
		return nil, err
	}
	configSource := "default"
	if fromEnv.anySet() {
		configSource = "env"
	}

	settings := &RawSettings{}
	settingPath := ""
	jsonPath := SettingFile(root)
	data, err := os.ReadFile(jsonPath)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, settings); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", jsonPath, err)
		}
		configSource = "json"
		settingPath = jsonPath
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("failed to read %s: %w", jsonPath, err)
	}

	settings.fillFrom(fromEnv)
	applyDefaults(settings)

	return buildAppConfig(root, settings, configSource, settingPath), nil
}

// envSettings holds the environment overrides
type envSettings struct {
	Timezone        string `env:"MOLTFOCUS_TIMEZONE"`
	HistoryLimit    int    `env:"MOLTFOCUS_HISTORY_LIMIT"`
	JournalFinalize bool   `env:"MOLTFOCUS_JOURNAL_FINALIZE"`
	ArchiveHistory  bool   `env:"MOLTFOCUS_ARCHIVE_HISTORY"`
	DisableRecovery bool   `env:"MOLTFOCUS_DISABLE_RECOVERY"`
	ListenAddr      string `env:"MOLTFOCUS_LISTEN_ADDR"`
	LogLevel        string `env:"MOLTFOCUS_LOG_LEVEL"`
	LogFile         string `env:"MOLTFOCUS_LOG_FILE"`
}

// loadEnv parses the environment into RawSettings, leaving unset
// variables nil
func loadEnv() (*RawSettings, error) {
	var e envSettings
	if err := env.Parse(&e); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	raw := &RawSettings{}
	if isSet("MOLTFOCUS_TIMEZONE") {
		raw.Timezone = &e.Timezone
	}
	if isSet("MOLTFOCUS_HISTORY_LIMIT") {
		raw.HistoryLimit = &e.HistoryLimit
	}
	if isSet("MOLTFOCUS_JOURNAL_FINALIZE") {
		raw.JournalFinalize = &e.JournalFinalize
	}
	if isSet("MOLTFOCUS_ARCHIVE_HISTORY") {
		raw.ArchiveHistory = &e.ArchiveHistory
	}
	if isSet("MOLTFOCUS_DISABLE_RECOVERY") {
		raw.DisableRecovery = &e.DisableRecovery
	}
	if isSet("MOLTFOCUS_LISTEN_ADDR") {
		raw.ListenAddr = &e.ListenAddr
	}
	if isSet("MOLTFOCUS_LOG_LEVEL") {
		raw.LogLevel = &e.LogLevel
	}
	if isSet("MOLTFOCUS_LOG_FILE") {
		raw.LogFile = &e.LogFile
	}
	return raw, nil
}

func isSet(key string) bool {
	v, ok := os.LookupEnv(key)
	return ok && v != ""
}

func (s *RawSettings) anySet() bool {
	return s.Timezone != nil || s.HistoryLimit != nil || s.JournalFinalize != nil ||
		s.ArchiveHistory != nil || s.DisableRecovery != nil || s.ListenAddr != nil ||
		s.LogLevel != nil || s.LogFile != nil
}

// fillFrom copies every field of o that s leaves unset
func (s *RawSettings) fillFrom(o *RawSettings) {
	if s.Timezone == nil {
		s.Timezone = o.Timezone
	}
	if s.HistoryLimit == nil {
		s.HistoryLimit = o.HistoryLimit
	}
	if s.JournalFinalize == nil {
		s.JournalFinalize = o.JournalFinalize
	}
	if s.ArchiveHistory == nil {
		s.ArchiveHistory = o.ArchiveHistory
	}
	if s.DisableRecovery == nil {
		s.DisableRecovery = o.DisableRecovery
	}
	if s.ListenAddr == nil {
		s.ListenAddr = o.ListenAddr
	}
	if s.LogLevel == nil {
		s.LogLevel = o.LogLevel
	}
	if s.LogFile == nil {
		s.LogFile = o.LogFile
	}
}

// applyDefaults fills in default values for any nil fields
func applyDefaults(settings *RawSettings) {
	if settings.Timezone == nil || *settings.Timezone == "" {
		v := DefaultTimezone
		settings.Timezone = &v
	}
	if settings.HistoryLimit == nil || *settings.HistoryLimit <= 0 || *settings.HistoryLimit > DefaultHistoryLimit {
		v := DefaultHistoryLimit
		settings.HistoryLimit = &v
	}

	if settings.JournalFinalize == nil {
		v := false
		settings.JournalFinalize = &v
	}
	if settings.ArchiveHistory == nil {
		v := true
		settings.ArchiveHistory = &v
	}
	if settings.DisableRecovery == nil {
		v := false
		settings.DisableRecovery = &v
	}

	if settings.ListenAddr == nil || *settings.ListenAddr == "" {
		v := DefaultListenAddr
		settings.ListenAddr = &v
	}
	if settings.LogLevel == nil || *settings.LogLevel == "" {
		v := DefaultLogLevel
		settings.LogLevel = &v
	}
	if settings.LogFile == nil {
		v := ""
		settings.LogFile = &v
	}
}

// buildAppConfig converts RawSettings to AppConfig
func buildAppConfig(root string, settings *RawSettings, configSource, settingPath string) *config.AppConfig {
	return config.NewAppConfig(config.Values{
		Root:            root,
		Timezone:        *settings.Timezone,
		HistoryLimit:    *settings.HistoryLimit,
		JournalFinalize: *settings.JournalFinalize,
		ArchiveHistory:  *settings.ArchiveHistory,
		DisableRecovery: *settings.DisableRecovery,
		ListenAddr:      *settings.ListenAddr,
		LogLevel:        *settings.LogLevel,
		LogFile:         *settings.LogFile,
		ConfigSource:    configSource,
		SettingPath:     settingPath,
	})
}

// CreateDefaultSettings creates a default setting.json content
func CreateDefaultSettings() []byte {
	settings := &RawSettings{}
	applyDefaults(settings)

	data, _ := json.MarshalIndent(settings, "", "  ")
	return data
}
