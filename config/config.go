// Package config loads terp's settings: a TOML file under the user config
// directory, overridden by TERP_* environment variables, plus the API
// credential store.
package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
)

// UserConfig is the on-disk TOML shape.
type UserConfig struct {
	DataDirectory string       `toml:"data_directory,omitempty"`
	Provider      string       `toml:"provider,omitempty"`
	Model         string       `toml:"model,omitempty"`
	Temperature   float64      `toml:"temperature,omitempty"`
	SystemPrompt  string       `toml:"system_prompt,omitempty"`
	Ollama        OllamaConfig `toml:"ollama"`
	Security      string       `toml:"security,omitempty"` // plaintext | ssh_key
	SSHKeyPath    string       `toml:"ssh_key_path,omitempty"`
}

type OllamaConfig struct {
	Host          string `toml:"host,omitempty"`
	ContextWindow int    `toml:"context_window,omitempty"`
	MaxTokens     int    `toml:"max_tokens,omitempty"`
}

// Config is the resolved runtime configuration.
type Config struct {
	DataDirectory string
	Provider      string
	Model         string
	Temperature   float64
	SystemPrompt  string
	OllamaHost    string
	ContextWindow int // local models only
	MaxTokens     int // local models only
	Security      string
	SSHKeyPath    string
}

var Debug = false
var DebugLog *log.Logger

// Load reads the settings file (if present), applies defaults and env
// overrides, and ensures the data directory exists.
func Load() (*Config, error) {
	cfg := defaultConfig()

	path := SettingsFilePath()
	if FileExists(path) {
		var user UserConfig
		if _, err := toml.DecodeFile(path, &user); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		cfg.apply(user)
	}

	cfg.applyEnvOverrides()

	dataDir := ExpandPath(cfg.DataDirectory)
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	cfg.DataDirectory = dataDir

	return cfg, nil
}

func (c *Config) apply(user UserConfig) {
	if user.DataDirectory != "" {
		c.DataDirectory = user.DataDirectory
	}
	if user.Provider != "" {
		c.Provider = user.Provider
	}
	if user.Model != "" {
		c.Model = user.Model
	}
	if user.Temperature != 0 {
		c.Temperature = user.Temperature
	}
	if user.SystemPrompt != "" {
		c.SystemPrompt = user.SystemPrompt
	}
	if user.Ollama.Host != "" {
		c.OllamaHost = user.Ollama.Host
	}
	if user.Ollama.ContextWindow != 0 {
		c.ContextWindow = user.Ollama.ContextWindow
	}
	if user.Ollama.MaxTokens != 0 {
		c.MaxTokens = user.Ollama.MaxTokens
	}
	if user.Security != "" {
		c.Security = user.Security
	}
	if user.SSHKeyPath != "" {
		c.SSHKeyPath = user.SSHKeyPath
	}
}

func (c *Config) applyEnvOverrides() {
	if host := os.Getenv("TERP_OLLAMA_HOST"); host != "" {
		c.OllamaHost = host
	}
	if model := os.Getenv("TERP_MODEL"); model != "" {
		c.Model = model
	}
	if p := os.Getenv("TERP_PROVIDER"); p != "" {
		c.Provider = p
	}
	if dataDir := os.Getenv("TERP_DATA_DIR"); dataDir != "" {
		c.DataDirectory = dataDir
	}
	if temp := os.Getenv("TERP_TEMPERATURE"); temp != "" {
		if v, err := strconv.ParseFloat(temp, 64); err == nil {
			c.Temperature = v
		}
	}
}

// CheckDebug reports whether debug logging was requested by environment.
func CheckDebug() bool {
	debug := os.Getenv("TERP_DEBUG")
	return debug == "true" || debug == "1"
}

// InitDebugLog opens the debug log in the data directory. 0600: debug
// output can contain message content.
func InitDebugLog(dataDir string) {
	Debug = true
	logPath := filepath.Join(dataDir, "debug.log")

	f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not open debug log at %s: %v\n", logPath, err)
		return
	}
	DebugLog = log.New(f, "", log.Ldate|log.Ltime|log.Lmicroseconds|log.Lshortfile)
}

// Debugf writes to the debug log when enabled.
func Debugf(format string, args ...any) {
	if Debug && DebugLog != nil {
		DebugLog.Printf(format, args...)
	}
}
