package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", `addr: :9999
db_path: /tmp/chat.db
log_level: debug
model:
  path: /models/tiny.gguf
  ctx_tokens: 1024
  threads: 8
  float16: true
sampling:
  top_k: 40
  top_p: 0.9
  temperature: 0.7
engine:
  max_sessions: 3
  tick_interval_ms: 10
  num_predict: 64
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9999" || cfg.DBPath != "/tmp/chat.db" || cfg.LogLevel != "debug" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.Model.Path != "/models/tiny.gguf" || cfg.Model.CtxTokens != 1024 || cfg.Model.Threads != 8 || !cfg.Model.Float16 {
		t.Fatalf("unexpected model cfg: %+v", cfg.Model)
	}
	if cfg.Sampling.TopK != 40 || cfg.Sampling.TopP != 0.9 || cfg.Sampling.Temperature != 0.7 {
		t.Fatalf("unexpected sampling cfg: %+v", cfg.Sampling)
	}
	if cfg.Engine.MaxSessions != 3 || cfg.Engine.TickIntervalMS != 10 || cfg.Engine.NumPredict != 64 {
		t.Fatalf("unexpected engine cfg: %+v", cfg.Engine)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{"addr":":7070","db_path":"/m/c.db","model":{"path":"/m/a.gguf","ctx_tokens":512},"engine":{"max_sessions":2}}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":7070" || cfg.DBPath != "/m/c.db" || cfg.Model.Path != "/m/a.gguf" || cfg.Model.CtxTokens != 512 || cfg.Engine.MaxSessions != 2 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", "addr=\":8081\"\ndb_path=\"/x/c.db\"\n[model]\npath=\"/x/m.gguf\"\n[sampling]\nrepeat_penalty=1.3\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8081" || cfg.DBPath != "/x/c.db" || cfg.Model.Path != "/x/m.gguf" || cfg.Sampling.RepeatPenalty != 1.3 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error on empty path")
	}
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.txt", "not supported")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
}
