package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// serverEnv holds the deployment switches that are not worth a flag.
type serverEnv struct {
	DeployEnv       string `env:"DEPLOY_ENV"`
	EnableAdminHTTP *bool  `env:"WE_ENABLE_ADMIN_HTTP"`
	EnablePprofHTTP bool   `env:"WE_ENABLE_PPROF_HTTP"`

	IndexBackend    string        `env:"WE_INDEX_BACKEND"           envDefault:"sqlite"`
	D1IngestURL     string        `env:"WE_INDEX_D1_INGEST_URL"`
	D1Token         string        `env:"WE_INDEX_D1_TOKEN"`
	D1BatchSize     int           `env:"WE_INDEX_D1_BATCH_SIZE"     envDefault:"128"`
	D1FlushInterval time.Duration `env:"WE_INDEX_D1_FLUSH_INTERVAL" envDefault:"500ms"`
}

func loadServerEnv() (serverEnv, error) {
	var cfg serverEnv
	if err := env.Parse(&cfg); err != nil {
		return serverEnv{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.DeployEnv = strings.ToLower(strings.TrimSpace(cfg.DeployEnv))
	cfg.IndexBackend = strings.ToLower(strings.TrimSpace(cfg.IndexBackend))
	if cfg.IndexBackend == "" {
		cfg.IndexBackend = "sqlite"
	}
	cfg.D1IngestURL = strings.TrimSpace(cfg.D1IngestURL)
	cfg.D1Token = strings.TrimSpace(cfg.D1Token)
	return cfg, nil
}

// adminHTTPEnabled defaults to off in staging and production.
func (e serverEnv) adminHTTPEnabled() bool {
	if e.EnableAdminHTTP != nil {
		return *e.EnableAdminHTTP
	}
	switch e.DeployEnv {
	case "staging", "production":
		return false
	default:
		return true
	}
}
