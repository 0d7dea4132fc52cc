// Copyright 2026 The sliverpick Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads the operational knobs of the selection core from
// an optional YAML file and SLIVERPICK_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Defaults.
const (
	DefaultMaxFetchedResults = 500
	DefaultCacheTTLSeconds   = 1800
	DefaultStoreTimeoutMS    = 1000
)

// Config holds the tunables of the selection core.
type Config struct {
	// StorePath is the path of the bbolt database file.
	StorePath string `mapstructure:"storePath"`

	// StoreTimeoutMS bounds the wait for the store file lock.
	StoreTimeoutMS int `mapstructure:"storeTimeoutMS"`

	// MaxFetchedResults caps every store scan.
	MaxFetchedResults int `mapstructure:"maxFetchedResults"`

	// CacheTTLSeconds is the lifetime of a tool cache entry. Zero
	// disables the cache.
	CacheTTLSeconds int `mapstructure:"cacheTTLSeconds"`
}

// CacheTTL returns the cache entry lifetime as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// StoreTimeout returns the store lock timeout as a duration.
func (c *Config) StoreTimeout() time.Duration {
	return time.Duration(c.StoreTimeoutMS) * time.Millisecond
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetDefault("storePath", "")
	v.SetDefault("storeTimeoutMS", DefaultStoreTimeoutMS)
	v.SetDefault("maxFetchedResults", DefaultMaxFetchedResults)
	v.SetDefault("cacheTTLSeconds", DefaultCacheTTLSeconds)
	v.SetEnvPrefix("SLIVERPICK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the configuration from path, which may be empty to use only
// defaults and environment overrides.
func Load(path string) (*Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %q: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.MaxFetchedResults <= 0 {
		return fmt.Errorf("%w: maxFetchedResults must be positive, got %d",
			ErrInvalidConfig, c.MaxFetchedResults)
	}
	if c.CacheTTLSeconds < 0 {
		return fmt.Errorf("%w: cacheTTLSeconds must not be negative, got %d",
			ErrInvalidConfig, c.CacheTTLSeconds)
	}
	if c.StoreTimeoutMS <= 0 {
		return fmt.Errorf("%w: storeTimeoutMS must be positive, got %d",
			ErrInvalidConfig, c.StoreTimeoutMS)
	}
	return nil
}
