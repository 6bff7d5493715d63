package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	UITerminal = "tui"
	UITray     = "tray"
)

type Config struct {
	Backend         string        `mapstructure:"backend" json:"backend"`
	UI              string        `mapstructure:"ui" json:"ui"`
	DeviceID        string        `mapstructure:"device_id" json:"device_id"`
	TickInterval    time.Duration `mapstructure:"tick_interval" json:"tick_interval"`
	FramesPerBuffer int           `mapstructure:"frames_per_buffer" json:"frames_per_buffer"`
	WavDir          string        `mapstructure:"wav_dir" json:"wav_dir"`
	BackgroundImage string        `mapstructure:"background_image" json:"background_image"`
	// KeepCapturing leaves the session running when the waveform view is
	// closed with Escape.
	KeepCapturing bool   `mapstructure:"keep_capturing_in_background" json:"keep_capturing_in_background"`
	LogLevel      string `mapstructure:"log_level" json:"log_level"`

	path string
	// file holds only what was read from path. Save writes it back with the
	// current device so defaults and overrides stay out of the file.
	file map[string]any
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend", "portaudio")
	v.SetDefault("ui", UITerminal)
	v.SetDefault("device_id", "")
	v.SetDefault("tick_interval", 10*time.Millisecond)
	v.SetDefault("frames_per_buffer", 0)
	v.SetDefault("wav_dir", ".")
	v.SetDefault("background_image", "bg.png")
	v.SetDefault("keep_capturing_in_background", false)
	v.SetDefault("log_level", "info")
}

// Load reads the config file at path, or the platform default location when
// path is empty. A missing file yields the defaults. WAVESCOPE_* environment
// variables override both.
func Load(path string) (*Config, error) {
	if path == "" {
		path = Path()
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("WAVESCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	file, err := readFile(path)
	if err != nil {
		return nil, err
	}
	if err := v.MergeConfigMap(file); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 10 * time.Millisecond
	}
	cfg.path = path
	cfg.file = file
	return cfg, nil
}

// readFile returns the settings stored at path, or an empty map when there is
// no file yet.
func readFile(path string) (map[string]any, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]any{}, nil
		}
		return nil, err
	}

	f := viper.New()
	f.SetConfigFile(path)
	f.SetConfigType("json")
	if err := f.ReadInConfig(); err != nil {
		return nil, err
	}
	return f.AllSettings(), nil
}

// Remember records the selected device and saves it.
func (c *Config) Remember(deviceID string) error {
	c.DeviceID = deviceID
	return c.Save()
}

// Save writes the file's own settings and the current device back to the
// file the config was loaded from. Defaults, environment and flag overrides
// are not written. Configs built in code have no file and Save does nothing.
func (c *Config) Save() error {
	if c.path == "" {
		return nil
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return err
	}

	settings := make(map[string]any, len(c.file)+1)
	maps.Copy(settings, c.file)
	settings["device_id"] = c.DeviceID

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(c.path, data, 0644)
}

// File is the path Save writes to.
func (c *Config) File() string {
	return c.path
}

// Path returns the platform-specific config file path
func Path() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Application Support"
	case "windows":
		base = os.Getenv("APPDATA")
	default: // linux
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.config"
		}
	}

	return filepath.Join(base, "wavescope", "config.json")
}
