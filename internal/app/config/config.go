package config

// Config provides read-only access to application configuration.
// This interface abstracts the configuration source (JSON, ENV, defaults)
// and keeps the app layer independent of how settings are loaded.
type Config interface {
	// Workspace
	Root() string     // Workspace root (PLANNER_ROOT)
	Timezone() string // IANA zone used to resolve "today" (MOLTFOCUS_TIMEZONE)

	// Finalization
	HistoryLimit() int     // Days kept in State.history (MOLTFOCUS_HISTORY_LIMIT)
	JournalFinalize() bool // Commit log/state/draft as one journaled transaction
	ArchiveHistory() bool  // Mirror finalized days into the SQLite archive
	DisableRecovery() bool // Skip startup transaction recovery

	// Server and logging
	ListenAddr() string // HTTP listen address (MOLTFOCUS_LISTEN_ADDR)
	LogLevel() string   // Stderr log level (MOLTFOCUS_LOG_LEVEL)
	LogFile() string    // Optional rotating JSON log file (MOLTFOCUS_LOG_FILE)

	// Metadata
	ConfigSource() string // Source of configuration: "json", "env", or "default"
	SettingPath() string  // Path to setting.json if loaded from file
}

// AppConfig is the concrete implementation of Config interface.
type AppConfig struct {
	root     string
	timezone string

	historyLimit    int
	journalFinalize bool
	archiveHistory  bool
	disableRecovery bool

	listenAddr string
	logLevel   string
	logFile    string

	configSource string
	settingPath  string
}

// Values is the flat input to NewAppConfig
type Values struct {
	Root            string
	Timezone        string
	HistoryLimit    int
	JournalFinalize bool
	ArchiveHistory  bool
	DisableRecovery bool
	ListenAddr      string
	LogLevel        string
	LogFile         string
	ConfigSource    string
	SettingPath     string
}

// NewAppConfig creates a new AppConfig with the given values.
// This is typically called by the infrastructure layer after loading and merging configurations.
func NewAppConfig(v Values) *AppConfig {
	return &AppConfig{
		root:            v.Root,
		timezone:        v.Timezone,
		historyLimit:    v.HistoryLimit,
		journalFinalize: v.JournalFinalize,
		archiveHistory:  v.ArchiveHistory,
		disableRecovery: v.DisableRecovery,
		listenAddr:      v.ListenAddr,
		logLevel:        v.LogLevel,
		logFile:         v.LogFile,
		configSource:    v.ConfigSource,
		settingPath:     v.SettingPath,
	}
}

func (c *AppConfig) Root() string          { return c.root }
func (c *AppConfig) Timezone() string      { return c.timezone }
func (c *AppConfig) HistoryLimit() int     { return c.historyLimit }
func (c *AppConfig) JournalFinalize() bool { return c.journalFinalize }
func (c *AppConfig) ArchiveHistory() bool  { return c.archiveHistory }
func (c *AppConfig) DisableRecovery() bool { return c.disableRecovery }
func (c *AppConfig) ListenAddr() string    { return c.listenAddr }
func (c *AppConfig) LogLevel() string      { return c.logLevel }
func (c *AppConfig) LogFile() string       { return c.logFile }
func (c *AppConfig) ConfigSource() string  { return c.configSource }
func (c *AppConfig) SettingPath() string   { return c.settingPath }

// Snapshot returns the effective values, for printing
func (c *AppConfig) Snapshot() Values {
	return Values{
		Root:            c.root,
		Timezone:        c.timezone,
		HistoryLimit:    c.historyLimit,
		JournalFinalize: c.journalFinalize,
		ArchiveHistory:  c.archiveHistory,
		DisableRecovery: c.disableRecovery,
		ListenAddr:      c.listenAddr,
		LogLevel:        c.logLevel,
		LogFile:         c.logFile,
		ConfigSource:    c.configSource,
		SettingPath:     c.settingPath,
	}
}
