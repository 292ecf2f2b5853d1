// config.go: settings struct and functions to load and save GateWatch settings.
package conf

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
)

//go:embed config.yaml
var configFiles embed.FS

// MainSettings contains top level settings for the application.
type MainSettings struct {
	Name string // instance name, used as MQTT client id and log attribute
	Log  LogConfig
}

// LogConfig contains settings for the main application log file.
type LogConfig struct {
	Enabled bool   // true to enable file logging
	Path    string // path to log file
}

// MQTTSettings contains settings for the MQTT event subscription.
type MQTTSettings struct {
	Broker   string // broker URL, e.g. tcp://mqtt:1883
	Topic    string // topic carrying tracker detection events
	Username string
	Password string
}

// AttendanceSettings contains the debounce configuration for the gate pipeline.
type AttendanceSettings struct {
	Enabled                bool
	GateZone               string  // zone name that marks physical presence at the gate
	GateCamera             string  // only events from this camera are processed
	MinZoneDurationSeconds float64 // dwell required before a crossing counts
	CooldownSeconds        int     // suppression window after a counted entry
	MarkerTTLSeconds       int     // lifetime of entry/exit idempotency markers
	PresenceTTLSeconds     int     // lifetime of zone presence records
}

// KeyedStoreSettings selects and configures the ephemeral TTL store backend.
type KeyedStoreSettings struct {
	Backend string // "memory" or "redis"
	Redis   struct {
		Addr     string
		Password string
		DB       int
	}
}

// RealtimeSettings contains settings for the realtime processing pipeline.
type RealtimeSettings struct {
	MQTT       MQTTSettings
	Attendance AttendanceSettings
	KeyedStore KeyedStoreSettings
}

// OutputSettings contains settings for the durable datastore.
type OutputSettings struct {
	SQLite struct {
		Enabled bool
		Path    string
	}
	MySQL struct {
		Enabled  bool
		Username string
		Password string
		Host     string
		Port     string
		Database string
	}
}

// WebServerSettings contains settings for the read-only HTTP API.
type WebServerSettings struct {
	Enabled bool
	Port    string
}

// Settings contains all GateWatch application settings.
type Settings struct {
	Debug bool // true to enable debug level logging

	Main      MainSettings
	Realtime  RealtimeSettings
	Output    OutputSettings
	WebServer WebServerSettings
}

var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads the configuration into a new Settings instance and stores it as
// the package level instance returned by Setting().
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with config file discovery and defaults.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}

	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	// Set default values for each configuration parameter,
	// function defined in defaults.go
	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// Config file not found, create config with defaults
			return createDefaultConfig()
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig writes the embedded default config.yaml to the first
// default config path and points viper at it.
func createDefaultConfig() error {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	configPath := filepath.Join(configPaths[0], "config.yaml")

	defaultConfig, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		return fmt.Errorf("error reading embedded default config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, defaultConfig, 0o644); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	fmt.Println("Created default config file at:", configPath)
	return viper.ReadInConfig()
}

// Setting returns the current settings instance, loading it on first use.
func Setting() *Settings {
	once.Do(func() {
		if settingsInstance == nil {
			if _, err := Load(); err != nil {
				panic(fmt.Sprintf("error loading settings: %v", err))
			}
		}
	})
	return GetSettings()
}

// GetSettings returns the current settings instance.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}
