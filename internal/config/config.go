// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config provides configuration management for vidsync.
package config

import "time"

// AppConfig is the fully resolved runtime configuration.
type AppConfig struct {
	Version   string          `yaml:"-"`
	LogLevel  string          `yaml:"logLevel"`
	DataDir   string          `yaml:"dataDir"`
	Server    ServerConfig    `yaml:"server"`
	Remote    RemoteConfig    `yaml:"remote"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Storage   StorageConfig   `yaml:"storage"`
	Store     StoreConfig     `yaml:"store"`
	Redis     RedisConfig     `yaml:"redis"`
	Sweep     SweepConfig     `yaml:"sweep"`
	Worker    WorkerConfig    `yaml:"worker"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	ListenAddr      string        `yaml:"listenAddr"`
	APIToken        string        `yaml:"apiToken"`
	RateLimit       int           `yaml:"rateLimit"` // requests per minute per client IP
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// RemoteConfig holds the hosting service credentials and placement settings.
type RemoteConfig struct {
	BaseURL           string        `yaml:"baseUrl"`
	ClientID          string        `yaml:"clientId"`
	ClientSecret      string        `yaml:"clientSecret"`
	AccessToken       string        `yaml:"accessToken"`
	FolderID          string        `yaml:"folderId"`
	AllowedDomains    []string      `yaml:"allowedDomains"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requestsPerSecond"`
	CallbackBaseURL   string        `yaml:"callbackBaseUrl"`
	CallbackTTL       time.Duration `yaml:"callbackTtl"`
}

// Configured reports whether credentials are present. Every remote operation
// is gated on this predicate.
func (r RemoteConfig) Configured() bool {
	return r.ClientID != "" && r.ClientSecret != "" && r.AccessToken != ""
}

// CatalogConfig points at the internal video catalog.
type CatalogConfig struct {
	BaseURL string        `yaml:"baseUrl"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

// StorageConfig describes the object storage bucket holding source files.
type StorageConfig struct {
	Bucket          string        `yaml:"bucket"`
	Region          string        `yaml:"region"`
	Endpoint        string        `yaml:"endpoint"`
	Prefix          string        `yaml:"prefix"`
	AccessKeyID     string        `yaml:"accessKeyId"`
	SecretAccessKey string        `yaml:"secretAccessKey"`
	URLTTL          time.Duration `yaml:"urlTtl"`
}

// StoreConfig selects the tracked-video store backend.
type StoreConfig struct {
	Driver string `yaml:"driver"` // sqlite | postgres
	Path   string `yaml:"path"`
	DSN    string `yaml:"dsn"`
}

// RedisConfig is shared by the job queue and the sweep lock.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// SweepConfig controls the periodic reconciliation trigger.
type SweepConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Interval     time.Duration `yaml:"interval"`
	MaxInterval  time.Duration `yaml:"maxInterval"`
	Jitter       time.Duration `yaml:"jitter"`
	StartupDelay time.Duration `yaml:"startupDelay"`
	LockTTL      time.Duration `yaml:"lockTtl"`
}

// WorkerConfig sizes the background job worker.
type WorkerConfig struct {
	Concurrency int `yaml:"concurrency"`
}

// TelemetryConfig controls OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	ExporterType string  `yaml:"exporter"` // grpc | http
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"samplingRate"`
}

// Defaults returns the baseline configuration before file and env overrides.
func Defaults() AppConfig {
	return AppConfig{
		LogLevel: "info",
		DataDir:  "/var/lib/vidsync",
		Server: ServerConfig{
			ListenAddr:      ":8080",
			RateLimit:       120,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Remote: RemoteConfig{
			BaseURL:           "https://api.vimeo.com",
			Timeout:           30 * time.Second,
			RequestsPerSecond: 5,
			CallbackTTL:       time.Hour,
		},
		Catalog: CatalogConfig{
			Timeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			Region: "us-east-1",
			URLTTL: 24 * time.Hour,
		},
		Store: StoreConfig{
			Driver: "sqlite",
		},
		Redis: RedisConfig{
			Addr: "127.0.0.1:6379",
		},
		Sweep: SweepConfig{
			Enabled:      true,
			Interval:     5 * time.Minute,
			MaxInterval:  30 * time.Minute,
			Jitter:       30 * time.Second,
			StartupDelay: 30 * time.Second,
			LockTTL:      10 * time.Minute,
		},
		Worker: WorkerConfig{
			Concurrency: 4,
		},
		Telemetry: TelemetryConfig{
			ExporterType: "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
		},
	}
}

// Redacted returns a copy with secrets masked, suitable for printing.
func (c AppConfig) Redacted() AppConfig {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "***"
	}
	out := c
	out.Server.APIToken = mask(c.Server.APIToken)
	out.Remote.ClientSecret = mask(c.Remote.ClientSecret)
	out.Remote.AccessToken = mask(c.Remote.AccessToken)
	out.Catalog.Token = mask(c.Catalog.Token)
	out.Storage.SecretAccessKey = mask(c.Storage.SecretAccessKey)
	out.Redis.Password = mask(c.Redis.Password)
	out.Store.DSN = mask(c.Store.DSN)
	return out
}
