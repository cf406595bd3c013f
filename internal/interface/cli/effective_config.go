package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/YoshitsuguKoike/moltfocus/internal/app"
	"github.com/YoshitsuguKoike/moltfocus/internal/app/config"
	"github.com/YoshitsuguKoike/moltfocus/internal/buildinfo"
)

// EffectiveConfig is the applied configuration, as printed by `config`
type EffectiveConfig struct {
	Meta      EffectiveConfigMeta      `json:"meta" yaml:"meta"`
	Workspace EffectiveConfigWorkspace `json:"workspace" yaml:"workspace"`
	Finalize  EffectiveConfigFinalize  `json:"finalize" yaml:"finalize"`
	Server    EffectiveConfigServer    `json:"server" yaml:"server"`
	Logging   EffectiveConfigLogging   `json:"logging" yaml:"logging"`
	Paths     EffectiveConfigPaths     `json:"paths" yaml:"paths"`
}

// EffectiveConfigMeta describes where the configuration came from
type EffectiveConfigMeta struct {
	Source         string   `json:"source" yaml:"source"`
	SettingPath    string   `json:"setting_path" yaml:"setting_path"`
	SourcePriority []string `json:"source_priority" yaml:"source_priority"`
	Version        string   `json:"version" yaml:"version"`
	TsUTC          string   `json:"ts_utc" yaml:"ts_utc"`
}

type EffectiveConfigWorkspace struct {
	Root     string `json:"root" yaml:"root"`
	Timezone string `json:"timezone" yaml:"timezone"`
}

type EffectiveConfigFinalize struct {
	HistoryLimit    int  `json:"history_limit" yaml:"history_limit"`
	Journaled       bool `json:"journaled" yaml:"journaled"`
	ArchiveHistory  bool `json:"archive_history" yaml:"archive_history"`
	DisableRecovery bool `json:"disable_recovery" yaml:"disable_recovery"`
}

type EffectiveConfigServer struct {
	ListenAddr string `json:"listen_addr" yaml:"listen_addr"`
}

type EffectiveConfigLogging struct {
	Level string `json:"level" yaml:"level"`
	File  string `json:"file,omitempty" yaml:"file,omitempty"`
}

type EffectiveConfigPaths struct {
	State         string `json:"state" yaml:"state"`
	Draft         string `json:"draft" yaml:"draft"`
	Plan          string `json:"plan" yaml:"plan"`
	ReflectionLog string `json:"reflection_log" yaml:"reflection_log"`
	Journal       string `json:"journal" yaml:"journal"`
	HistoryDB     string `json:"history_db" yaml:"history_db"`
}

func newConfigCmd(s *session) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:         "config",
		Short:       "Print the effective configuration",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationSetup: setupNoRecovery},
		RunE: func(c *cobra.Command, _ []string) error {
			effective := buildEffectiveConfig(s.cfg, s.paths, time.Now())
			if asJSON {
				return writeJSON(c.OutOrStdout(), effective)
			}
			out, err := yaml.Marshal(effective)
			if err != nil {
				return fmt.Errorf("failed to marshal to YAML: %w", err)
			}
			_, err = c.OutOrStdout().Write(out)
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON instead of YAML")
	return cmd
}

func buildEffectiveConfig(cfg config.Config, p app.Paths, now time.Time) *EffectiveConfig {
	return &EffectiveConfig{
		Meta: EffectiveConfigMeta{
			Source:         cfg.ConfigSource(),
			SettingPath:    cfg.SettingPath(),
			SourcePriority: []string{"setting.json", "env", "defaults"},
			Version:        buildinfo.GetVersion(),
			TsUTC:          now.UTC().Format(time.RFC3339Nano),
		},
		Workspace: EffectiveConfigWorkspace{
			Root:     cfg.Root(),
			Timezone: cfg.Timezone(),
		},
		Finalize: EffectiveConfigFinalize{
			HistoryLimit:    cfg.HistoryLimit(),
			Journaled:       cfg.JournalFinalize(),
			ArchiveHistory:  cfg.ArchiveHistory(),
			DisableRecovery: cfg.DisableRecovery(),
		},
		Server:  EffectiveConfigServer{ListenAddr: cfg.ListenAddr()},
		Logging: EffectiveConfigLogging{Level: cfg.LogLevel(), File: cfg.LogFile()},
		Paths: EffectiveConfigPaths{
			State:         p.State,
			Draft:         p.Draft,
			Plan:          p.Plan,
			ReflectionLog: p.ReflectionLog,
			Journal:       p.Journal,
			HistoryDB:     p.HistoryDB,
		},
	}
}
