package main

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/calimero-network/core/blobstore"
	"github.com/calimero-network/core/sync"
)

// Config is calimerod's on-disk daemon configuration: resource limits
// and sync tuning an operator hand-edits, grouped the way the teacher's
// own config.Parameters groups consensus knobs.
type Config struct {
	DataDir string `yaml:"data_dir"`

	// Contexts lists the hex-encoded context ids this node joins at
	// startup. A node typically learns new context ids at runtime from
	// its external config registry; this list only covers the ones it
	// should resume without waiting on that signal.
	Contexts []string `yaml:"contexts"`

	Blob struct {
		MaxHandles    uint32 `yaml:"max_handles"`
		MaxChunkSize  uint64 `yaml:"max_chunk_size"`
		MaxBufferSize uint64 `yaml:"max_buffer_size"`
	} `yaml:"blob"`

	Sync struct {
		InitialBackoff time.Duration `yaml:"initial_backoff"`
		MaxBackoff     time.Duration `yaml:"max_backoff"`
		BackoffFactor  float64       `yaml:"backoff_factor"`
		MaxConcurrent  int64         `yaml:"max_concurrent"`
		MeshTimeout    time.Duration `yaml:"mesh_formation_timeout"`
	} `yaml:"sync"`

	DeltaMaxPending int `yaml:"delta_max_pending"`
}

// Default returns the configuration a fresh node starts from absent a
// config file: conservative blob limits, the sync engine's own default
// backoff curve, and a bounded pending-delta set.
func Default() Config {
	var c Config
	c.DataDir = "./calimero-data"
	c.Blob.MaxHandles = 64
	c.Blob.MaxChunkSize = 1 << 20
	c.Blob.MaxBufferSize = 64 << 20
	backoff := sync.DefaultBackoffConfig()
	c.Sync.InitialBackoff = backoff.InitialDelay
	c.Sync.MaxBackoff = backoff.MaxDelay
	c.Sync.BackoffFactor = backoff.Multiplier
	c.Sync.MaxConcurrent = 4
	c.Sync.MeshTimeout = 10 * time.Second
	c.DeltaMaxPending = 1000
	return c
}

// Load reads a YAML config file at path, falling back to Default for
// every field a short or absent file omits.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) blobLimits() blobstore.Limits {
	return blobstore.Limits{
		MaxBlobHandles:    c.Blob.MaxHandles,
		MaxBlobChunkSize:  c.Blob.MaxChunkSize,
		MaxBlobBufferSize: c.Blob.MaxBufferSize,
	}
}

func (c Config) backoffConfig() sync.BackoffConfig {
	return sync.BackoffConfig{
		InitialDelay: c.Sync.InitialBackoff,
		MaxDelay:     c.Sync.MaxBackoff,
		Multiplier:   c.Sync.BackoffFactor,
	}
}
