package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config represents the main configuration for ids.
type Config struct {
	HostID  string `toml:"host_id" yaml:"host_id" validate:"required"`
	BaseDir string `toml:"base_dir" yaml:"base_dir" validate:"required,abspath"`

	// FilesToMonitor lists individual files. Directories are expanded to the
	// regular files they contain.
	FilesToMonitor []string          `toml:"files_to_monitor" yaml:"files_to_monitor" validate:"dive,abspath"`
	Directories    []DirectoryConfig `toml:"directories" yaml:"directories" validate:"dive"`

	Filesystem FilesystemConfig `toml:"filesystem" yaml:"filesystem"`
	Baseline   BaselineConfig   `toml:"baseline" yaml:"baseline"`
	Ports      PortsConfig      `toml:"ports" yaml:"ports"`
	Log        LogConfig        `toml:"log" yaml:"log"`
	Database   DatabaseConfig   `toml:"database" yaml:"database"`
	Mirror     MirrorConfig     `toml:"mirror" yaml:"mirror"`
	Encryption EncryptionConfig `toml:"encryption" yaml:"encryption"`
	API        APIConfig        `toml:"api" yaml:"api"`
}

// DirectoryConfig is a monitored directory.
type DirectoryConfig struct {
	Path      string `toml:"path" yaml:"path" validate:"required,abspath"`
	Recursive bool   `toml:"recursive" yaml:"recursive"`
}

// FilesystemConfig holds filesystem-related settings.
type FilesystemConfig struct {
	Ignore []string `toml:"ignore" yaml:"ignore"`
}

// BaselineConfig locates the persisted baseline.
type BaselineConfig struct {
	Path   string `toml:"path" yaml:"path" validate:"required,abspath"`
	Minify bool   `toml:"minify" yaml:"minify"` // write compact JSON by default
}

// PortsConfig controls listening port enumeration.
type PortsConfig struct {
	Enabled    bool   `toml:"enabled" yaml:"enabled"`
	Enumerator string `toml:"enumerator" yaml:"enumerator" validate:"omitempty,oneof=gopsutil procnet"`
}

// LogConfig controls the rotated log file.
type LogConfig struct {
	Dir        string `toml:"dir" yaml:"dir" validate:"omitempty,abspath"`
	Level      string `toml:"level" yaml:"level" validate:"omitempty,loglevel"`
	MaxSizeMB  int    `toml:"max_size_mb" yaml:"max_size_mb" validate:"omitempty,min=1"`
	MaxBackups int    `toml:"max_backups" yaml:"max_backups" validate:"omitempty,min=0"`
}

// DatabaseConfig represents configuration for the report history database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type" yaml:"type" validate:"omitempty,oneof=sqlite memory"`
	DataDir string `toml:"data_dir,omitempty" yaml:"data_dir,omitempty" validate:"required_if=Type sqlite,omitempty,abspath"`
}

// MirrorConfig represents an off-host copy of the baseline.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
// An empty Type disables mirroring.
type MirrorConfig struct {
	Type string `toml:"type" yaml:"type" validate:"omitempty,oneof=memory filesystem s3"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSRoot string `toml:"fs_root,omitempty" yaml:"fs_root,omitempty" validate:"required_if=Type filesystem,omitempty,abspath"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket   string `toml:"s3_bucket,omitempty" yaml:"s3_bucket,omitempty" validate:"required_if=Type s3"`
	S3Prefix   string `toml:"s3_prefix,omitempty" yaml:"s3_prefix,omitempty"`
	S3Region   string `toml:"s3_region,omitempty" yaml:"s3_region,omitempty"`
	S3Endpoint string `toml:"s3_endpoint,omitempty" yaml:"s3_endpoint,omitempty" validate:"omitempty,url"`
}

// EncryptionConfig holds paths to the age key pair used for mirror encryption.
type EncryptionConfig struct {
	Type           string `toml:"type" yaml:"type" validate:"omitempty,oneof=none age test"`
	PublicKeyPath  string `toml:"public_key_path" yaml:"public_key_path" validate:"required_if=Type age"`
	PrivateKeyPath string `toml:"private_key_path" yaml:"private_key_path" validate:"required_if=Type age"`
}

// APIConfig configures "ids serve".
type APIConfig struct {
	ListenAddress string `toml:"listen_address" yaml:"listen_address" validate:"omitempty,hostname_port"`
}

// NewConfig creates a new Config with the provided values and default paths under baseDir.
func NewConfig(hostID, baseDir string) *Config {
	return &Config{
		HostID:  hostID,
		BaseDir: baseDir,
		Baseline: BaselineConfig{
			Path: filepath.Join(baseDir, "db.json"),
		},
		Ports: PortsConfig{Enabled: true, Enumerator: "gopsutil"},
		Log: LogConfig{
			Dir:        baseDir,
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 5,
		},
		Database: DatabaseConfig{Type: "sqlite", DataDir: filepath.Join(baseDir, "reports")},
		Encryption: EncryptionConfig{
			Type:           "none",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "ids.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "ids.key"),
		},
		API: APIConfig{ListenAddress: "127.0.0.1:8080"},
	}
}

// Manager handles reading and writing configuration.
// The zero value speaks TOML; set YAML to use the YAML variant.
type Manager struct {
	YAML bool
}

// ManagerFor picks the encoding from the file extension.
func ManagerFor(path string) *Manager {
	ext := strings.ToLower(filepath.Ext(path))
	return &Manager{YAML: ext == ".yaml" || ext == ".yml"}
}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if m.YAML {
		if err := yaml.NewDecoder(r).Decode(&cfg); err != nil && err != io.EOF {
			return nil, fmt.Errorf("failed to decode config: %w", err)
		}
		return &cfg, nil
	}
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if m.YAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		return enc.Close()
	}
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads and validates a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	cfg, err := ManagerFor(path).Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// applyDefaults fills the settings a hand-written config may omit with the
// values NewConfig uses under BaseDir.
func applyDefaults(cfg *Config) {
	defaults := NewConfig(cfg.HostID, cfg.BaseDir)
	if cfg.BaseDir != "" {
		if cfg.Baseline.Path == "" {
			cfg.Baseline.Path = defaults.Baseline.Path
		}
		if cfg.Log.Dir == "" {
			cfg.Log.Dir = defaults.Log.Dir
		}
		if (cfg.Database.Type == "" || cfg.Database.Type == "sqlite") && cfg.Database.DataDir == "" {
			cfg.Database.DataDir = defaults.Database.DataDir
		}
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}
	if cfg.API.ListenAddress == "" {
		cfg.API.ListenAddress = defaults.API.ListenAddress
	}
}

// writeToFile writes a Config to the specified file path.
// The config lists what is monitored, so it is only readable by its owner and group.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0640)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if err := ManagerFor(path).Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err := Validate(cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
