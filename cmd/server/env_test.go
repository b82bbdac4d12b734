package main

import (
	"testing"
	"time"
)

func TestLoadServerEnv_Defaults(t *testing.T) {
	t.Setenv("DEPLOY_ENV", "")
	t.Setenv("WE_INDEX_BACKEND", "")
	cfg, err := loadServerEnv()
	if err != nil {
		t.Fatalf("loadServerEnv: %v", err)
	}
	if cfg.IndexBackend != "sqlite" {
		t.Fatalf("backend=%q", cfg.IndexBackend)
	}
	if cfg.D1BatchSize != 128 || cfg.D1FlushInterval != 500*time.Millisecond {
		t.Fatalf("d1 defaults: %+v", cfg)
	}
	if !cfg.adminHTTPEnabled() {
		t.Fatalf("admin http should default on outside staging/production")
	}
}

func TestLoadServerEnv_AdminHTTPByDeployEnv(t *testing.T) {
	t.Setenv("DEPLOY_ENV", " Production ")
	cfg, err := loadServerEnv()
	if err != nil {
		t.Fatalf("loadServerEnv: %v", err)
	}
	if cfg.adminHTTPEnabled() {
		t.Fatalf("admin http should default off in production")
	}

	t.Setenv("WE_ENABLE_ADMIN_HTTP", "true")
	cfg, err = loadServerEnv()
	if err != nil {
		t.Fatalf("loadServerEnv: %v", err)
	}
	if !cfg.adminHTTPEnabled() {
		t.Fatalf("explicit WE_ENABLE_ADMIN_HTTP should win")
	}
}

func TestLoadServerEnv_RejectsBadValues(t *testing.T) {
	t.Setenv("WE_INDEX_D1_BATCH_SIZE", "lots")
	if _, err := loadServerEnv(); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestOpenRuntimeIndex_Backends(t *testing.T) {
	dir := t.TempDir()
	if idx, err := openRuntimeIndex(dir, "s1", true, serverEnv{IndexBackend: "sqlite"}, nil); err != nil || idx != nil {
		t.Fatalf("disabled: idx=%v err=%v", idx, err)
	}
	if idx, err := openRuntimeIndex(dir, "s1", false, serverEnv{IndexBackend: "none"}, nil); err != nil || idx != nil {
		t.Fatalf("none: idx=%v err=%v", idx, err)
	}
	if _, err := openRuntimeIndex(dir, "s1", false, serverEnv{IndexBackend: "d1"}, nil); err == nil {
		t.Fatalf("d1 without endpoint should fail")
	}
	if _, err := openRuntimeIndex(dir, "s1", false, serverEnv{IndexBackend: "redis"}, nil); err == nil {
		t.Fatalf("unknown backend should fail")
	}
	idx, err := openRuntimeIndex(dir, "s1", false, serverEnv{IndexBackend: "sqlite"}, nil)
	if err != nil || idx == nil {
		t.Fatalf("sqlite: idx=%v err=%v", idx, err)
	}
	_ = idx.Close()
}
