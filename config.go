package gcmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	DefaultWidth       = 1280
	DefaultHeight      = 720
	DefaultBufferCount = 2
	DefaultHeapCount   = 1024
	DefaultSlotCount   = 8
)

// Config holds the settings of a GraphicsContext and its backend.
type Config struct {
	AppName string `yaml:"app_name" toml:"app_name"`
	Width   uint32 `yaml:"width" toml:"width"`
	Height  uint32 `yaml:"height" toml:"height"`
	// BufferCount is the number of frames in flight and of swapchain images.
	BufferCount int `yaml:"buffer_count" toml:"buffer_count"`
	// HeapCount is the number of descriptors of each kind in the pool.
	HeapCount int `yaml:"heap_count" toml:"heap_count"`
	// SlotCount is the number of shader slots of a descriptor set layout.
	SlotCount  int    `yaml:"slot_count" toml:"slot_count"`
	ShaderDir  string `yaml:"shader_dir" toml:"shader_dir"`
	Validation bool   `yaml:"validation" toml:"validation"`
	LogLevel   string `yaml:"log_level" toml:"log_level"`
}

// DefaultConfig returns the settings used for zero fields.
func DefaultConfig() Config {
	return Config{
		AppName:     "gcmd",
		Width:       DefaultWidth,
		Height:      DefaultHeight,
		BufferCount: DefaultBufferCount,
		HeapCount:   DefaultHeapCount,
		SlotCount:   DefaultSlotCount,
		ShaderDir:   ".",
		LogLevel:    "info",
	}
}

// WithDefaults fills zero fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.AppName == "" {
		c.AppName = d.AppName
	}
	if c.Width == 0 {
		c.Width = d.Width
	}
	if c.Height == 0 {
		c.Height = d.Height
	}
	if c.BufferCount <= 0 {
		c.BufferCount = d.BufferCount
	}
	if c.HeapCount <= 0 {
		c.HeapCount = d.HeapCount
	}
	if c.SlotCount <= 0 {
		c.SlotCount = d.SlotCount
	}
	if c.ShaderDir == "" {
		c.ShaderDir = d.ShaderDir
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	return c
}

// Level parses LogLevel, falling back to info.
func (c Config) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// LoadConfig reads path, chosen by extension among .yaml, .yml and .toml,
// then applies GCMD_* environment variables, loading .env first when present.
// An empty path starts from the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			err = yaml.Unmarshal(data, &cfg)
		case ".toml":
			err = toml.Unmarshal(data, &cfg)
		default:
			err = fmt.Errorf("unknown config format %q", filepath.Ext(path))
		}
		if err != nil {
			return cfg, fmt.Errorf("load config %s: %w", path, err)
		}
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg.WithDefaults(), nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}
	width, height := int(c.Width), int(c.Height)

	str("GCMD_APP_NAME", &c.AppName)
	str("GCMD_SHADER_DIR", &c.ShaderDir)
	str("GCMD_LOG_LEVEL", &c.LogLevel)
	for key, dst := range map[string]*int{
		"GCMD_WIDTH":        &width,
		"GCMD_HEIGHT":       &height,
		"GCMD_BUFFER_COUNT": &c.BufferCount,
		"GCMD_HEAP_COUNT":   &c.HeapCount,
		"GCMD_SLOT_COUNT":   &c.SlotCount,
	} {
		if err := num(key, dst); err != nil {
			return err
		}
	}
	if v, ok := lookup("GCMD_VALIDATION"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("GCMD_VALIDATION: %w", err)
		}
		c.Validation = b
	}
	c.Width, c.Height = uint32(width), uint32(height)
	return nil
}
