// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvPrefix namespaces every environment override.
const EnvPrefix = "VIDSYNC_"

// Loader handles configuration loading with precedence ENV > File > Defaults.
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a new configuration loader.
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

func (l *Loader) track(key string) string {
	full := EnvPrefix + key
	l.ConsumedEnvKeys[full] = struct{}{}
	return full
}

// Load resolves defaults, then the YAML file (strict), then env, then validates.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	l.mergeEnv(&cfg)

	if abs, err := filepath.Abs(cfg.DataDir); err == nil {
		cfg.DataDir = abs
	}
	if cfg.Store.Driver == "sqlite" && cfg.Store.Path == "" {
		cfg.Store.Path = filepath.Join(cfg.DataDir, "vidsync.db")
	}
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile decodes a YAML file over cfg. Unknown fields are fatal.
func (l *Loader) loadFile(path string, cfg *AppConfig) error {
	path = filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return fmt.Errorf("%w: %v", ErrUnknownConfigField, err)
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return ErrMultipleDocuments
	}
	return nil
}

func (l *Loader) mergeEnv(cfg *AppConfig) {
	cfg.LogLevel = ParseString(l.track("LOG_LEVEL"), cfg.LogLevel)
	cfg.DataDir = ParseString(l.track("DATA_DIR"), cfg.DataDir)

	cfg.Server.ListenAddr = ParseString(l.track("LISTEN_ADDR"), cfg.Server.ListenAddr)
	cfg.Server.APIToken = ParseString(l.track("API_TOKEN"), cfg.Server.APIToken)
	cfg.Server.RateLimit = ParseInt(l.track("RATE_LIMIT"), cfg.Server.RateLimit)
	cfg.Server.ShutdownTimeout = ParseDuration(l.track("SHUTDOWN_TIMEOUT"), cfg.Server.ShutdownTimeout)

	cfg.Remote.BaseURL = ParseString(l.track("REMOTE_BASE_URL"), cfg.Remote.BaseURL)
	cfg.Remote.ClientID = ParseString(l.track("REMOTE_CLIENT_ID"), cfg.Remote.ClientID)
	cfg.Remote.ClientSecret = ParseString(l.track("REMOTE_CLIENT_SECRET"), cfg.Remote.ClientSecret)
	cfg.Remote.AccessToken = ParseString(l.track("REMOTE_ACCESS_TOKEN"), cfg.Remote.AccessToken)
	cfg.Remote.FolderID = ParseString(l.track("REMOTE_FOLDER_ID"), cfg.Remote.FolderID)
	cfg.Remote.AllowedDomains = ParseList(l.track("REMOTE_ALLOWED_DOMAINS"), cfg.Remote.AllowedDomains)
	cfg.Remote.Timeout = ParseDuration(l.track("REMOTE_TIMEOUT"), cfg.Remote.Timeout)
	cfg.Remote.RequestsPerSecond = ParseFloat(l.track("REMOTE_RPS"), cfg.Remote.RequestsPerSecond)
	cfg.Remote.CallbackBaseURL = ParseString(l.track("CALLBACK_BASE_URL"), cfg.Remote.CallbackBaseURL)
	cfg.Remote.CallbackTTL = ParseDuration(l.track("CALLBACK_TTL"), cfg.Remote.CallbackTTL)

	cfg.Catalog.BaseURL = ParseString(l.track("CATALOG_BASE_URL"), cfg.Catalog.BaseURL)
	cfg.Catalog.Token = ParseString(l.track("CATALOG_TOKEN"), cfg.Catalog.Token)
	cfg.Catalog.Timeout = ParseDuration(l.track("CATALOG_TIMEOUT"), cfg.Catalog.Timeout)

	cfg.Storage.Bucket = ParseString(l.track("STORAGE_BUCKET"), cfg.Storage.Bucket)
	cfg.Storage.Region = ParseString(l.track("STORAGE_REGION"), cfg.Storage.Region)
	cfg.Storage.Endpoint = ParseString(l.track("STORAGE_ENDPOINT"), cfg.Storage.Endpoint)
	cfg.Storage.Prefix = ParseString(l.track("STORAGE_PREFIX"), cfg.Storage.Prefix)
	cfg.Storage.AccessKeyID = ParseString(l.track("STORAGE_ACCESS_KEY_ID"), cfg.Storage.AccessKeyID)
	cfg.Storage.SecretAccessKey = ParseString(l.track("STORAGE_SECRET_ACCESS_KEY"), cfg.Storage.SecretAccessKey)
	cfg.Storage.URLTTL = ParseDuration(l.track("STORAGE_URL_TTL"), cfg.Storage.URLTTL)

	cfg.Store.Driver = ParseString(l.track("STORE_DRIVER"), cfg.Store.Driver)
	cfg.Store.Path = ParseString(l.track("STORE_PATH"), cfg.Store.Path)
	cfg.Store.DSN = ParseString(l.track("STORE_DSN"), cfg.Store.DSN)

	cfg.Redis.Addr = ParseString(l.track("REDIS_ADDR"), cfg.Redis.Addr)
	cfg.Redis.Password = ParseString(l.track("REDIS_PASSWORD"), cfg.Redis.Password)
	cfg.Redis.DB = ParseInt(l.track("REDIS_DB"), cfg.Redis.DB)

	cfg.Sweep.Enabled = ParseBool(l.track("SWEEP_ENABLED"), cfg.Sweep.Enabled)
	cfg.Sweep.Interval = ParseDuration(l.track("SWEEP_INTERVAL"), cfg.Sweep.Interval)
	cfg.Sweep.MaxInterval = ParseDuration(l.track("SWEEP_MAX_INTERVAL"), cfg.Sweep.MaxInterval)
	cfg.Sweep.Jitter = ParseDuration(l.track("SWEEP_JITTER"), cfg.Sweep.Jitter)
	cfg.Sweep.StartupDelay = ParseDuration(l.track("SWEEP_STARTUP_DELAY"), cfg.Sweep.StartupDelay)
	cfg.Sweep.LockTTL = ParseDuration(l.track("SWEEP_LOCK_TTL"), cfg.Sweep.LockTTL)

	cfg.Worker.Concurrency = ParseInt(l.track("WORKER_CONCURRENCY"), cfg.Worker.Concurrency)

	cfg.Telemetry.Enabled = ParseBool(l.track("TELEMETRY_ENABLED"), cfg.Telemetry.Enabled)
	cfg.Telemetry.ExporterType = ParseString(l.track("TELEMETRY_EXPORTER"), cfg.Telemetry.ExporterType)
	cfg.Telemetry.Endpoint = ParseString(l.track("TELEMETRY_ENDPOINT"), cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = ParseFloat(l.track("TELEMETRY_SAMPLING_RATE"), cfg.Telemetry.SamplingRate)
}
