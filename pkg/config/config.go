// Package config loads and validates the glowstream receiver configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Config is the receiver configuration.
type Config struct {
	// Server settings
	ListenAddr     string        `json:"listen_addr"`
	ReceiveTimeout time.Duration `json:"receive_timeout"`

	// Display geometry. The expected frame size is Rows*Cols*ChainLength
	// pixels; frames of any other size are a fatal mismatch.
	MatrixRows  int `json:"matrix_rows"`
	MatrixCols  int `json:"matrix_cols"`
	ChainLength int `json:"chain_length"`

	// Presentation
	QueueCapacity   int           `json:"queue_capacity"`
	MaxWaitInterval time.Duration `json:"max_wait_interval"`
	DiscardBacklog  bool          `json:"discard_backlog"`
	Brightness      float64       `json:"brightness"`

	// Debug HTTP server (metrics, stats). Empty disables it.
	MetricsAddr string `json:"metrics_addr"`

	// Logging
	LogLevel string `json:"log_level"`
}

// DefaultConfig returns a default configuration: a 32x64 matrix with a
// chain of 8 panels on the historical port 49152.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:      ":49152",
		ReceiveTimeout:  3 * time.Second,
		MatrixRows:      32,
		MatrixCols:      64,
		ChainLength:     8,
		QueueCapacity:   500,
		MaxWaitInterval: 25 * time.Millisecond,
		DiscardBacklog:  false,
		Brightness:      100,
		MetricsAddr:     "",
		LogLevel:        "info",
	}
}

// PixelCount returns the number of pixels a frame must carry to match the
// configured display.
func (c *Config) PixelCount() int {
	return c.MatrixRows * c.MatrixCols * c.ChainLength
}

// LoadConfig loads configuration from a JSON file.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}

// SaveConfig saves configuration to a JSON file.
func SaveConfig(config *Config, filename string) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr is required")
	}
	if c.MatrixRows <= 0 || c.MatrixCols <= 0 || c.ChainLength <= 0 {
		return fmt.Errorf("matrix geometry must be positive, got %dx%dx%d", c.MatrixRows, c.MatrixCols, c.ChainLength)
	}
	if c.QueueCapacity <= 0 {
		return fmt.Errorf("queue_capacity must be positive")
	}
	if c.ReceiveTimeout <= 0 {
		return fmt.Errorf("receive_timeout must be positive")
	}
	if c.MaxWaitInterval <= 0 {
		return fmt.Errorf("max_wait_interval must be positive")
	}
	if c.Brightness < 0 || c.Brightness > 100 {
		return fmt.Errorf("brightness must be between 0 and 100")
	}
	return nil
}

// UnmarshalJSON implements custom JSON unmarshaling for durations, which
// are given as strings like "3s" or "25ms".
func (c *Config) UnmarshalJSON(data []byte) error {
	type Alias Config
	aux := &struct {
		ReceiveTimeout  string `json:"receive_timeout"`
		MaxWaitInterval string `json:"max_wait_interval"`
		*Alias
	}{
		Alias: (*Alias)(c),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if aux.ReceiveTimeout != "" {
		duration, err := time.ParseDuration(aux.ReceiveTimeout)
		if err != nil {
			return fmt.Errorf("invalid receive_timeout format: %w", err)
		}
		c.ReceiveTimeout = duration
	}
	if aux.MaxWaitInterval != "" {
		duration, err := time.ParseDuration(aux.MaxWaitInterval)
		if err != nil {
			return fmt.Errorf("invalid max_wait_interval format: %w", err)
		}
		c.MaxWaitInterval = duration
	}

	return nil
}

// MarshalJSON implements custom JSON marshaling for durations.
func (c *Config) MarshalJSON() ([]byte, error) {
	type Alias Config
	return json.Marshal(&struct {
		ReceiveTimeout  string `json:"receive_timeout"`
		MaxWaitInterval string `json:"max_wait_interval"`
		*Alias
	}{
		ReceiveTimeout:  c.ReceiveTimeout.String(),
		MaxWaitInterval: c.MaxWaitInterval.String(),
		Alias:           (*Alias)(c),
	})
}
