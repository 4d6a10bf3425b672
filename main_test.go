package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"studyhelper/internal/apperr"
	"studyhelper/internal/logger"
	"studyhelper/internal/studio"
)

// writeConfig points the app at a temp SQLite file and an absent secrets
// file, so no credential is found unless the test sets one.
func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := map[string]any{
		"basic_config": map[string]any{
			"database":     "sqlite3",
			"log_mode":     "prod",
			"secrets_path": "missing.env",
		},
		"databases": map[string]any{
			"sqlite3": map[string]any{"dsn": "study.db"},
		},
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("OPENAI_API_KEY", "")
	return path
}

func TestNewAppWithoutCredentialDisablesGeneration(t *testing.T) {
	path := writeConfig(t)
	a, err := newApp(context.Background(), appOptions{configPath: path, quiet: true})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	defer a.close()

	if a.generator != nil {
		t.Fatalf("generator should be nil without a credential")
	}
	if !strings.Contains(a.warning, "OPENAI_API_KEY") {
		t.Fatalf("unexpected warning %q", a.warning)
	}
	s, err := a.newStudio(context.Background())
	if err != nil {
		t.Fatalf("new studio: %v", err)
	}
	if s.GenerationEnabled() {
		t.Fatalf("studio should report generation disabled")
	}
}

func TestNewAppWithCredentialBuildsGenerator(t *testing.T) {
	path := writeConfig(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	a, err := newApp(context.Background(), appOptions{configPath: path, quiet: true})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	defer a.close()
	if a.generator == nil || a.warning != "" {
		t.Fatalf("expected generator, warning=%q", a.warning)
	}
}

func TestNewStudioRejectsUnknownDraftStore(t *testing.T) {
	a, err := newApp(context.Background(), appOptions{configPath: writeConfig(t), quiet: true})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	defer a.close()
	a.cfg.BasicConfig.DraftStore = "etcd"
	if _, err := a.newStudio(context.Background()); err == nil {
		t.Fatalf("expected error for unknown draft store")
	}
}

func TestHistoryCommand(t *testing.T) {
	path := writeConfig(t)

	var out bytes.Buffer
	cmd := historyCmd(&path)
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out.String(), "No past sessions yet.") {
		t.Fatalf("unexpected output %q", out.String())
	}

	a, err := newApp(context.Background(), appOptions{configPath: path, quiet: true})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	long := strings.Repeat("x", 250)
	if _, err := a.store.Save(context.Background(), "bio.pdf", long, "Q: a\nA: b", "Correct Answer: A"); err != nil {
		t.Fatalf("save: %v", err)
	}
	a.close()

	out.Reset()
	cmd = historyCmd(&path)
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--json"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("history --json: %v", err)
	}
	var entries []studio.HistoryEntry
	if err := json.Unmarshal(out.Bytes(), &entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 1 || entries[0].Filename != "bio.pdf" {
		t.Fatalf("unexpected entries %+v", entries)
	}
	if entries[0].Preview != strings.Repeat("x", studio.HistoryPreviewLimit)+"..." {
		t.Fatalf("preview not truncated")
	}
}

func TestGenerateCommandWithoutCredential(t *testing.T) {
	path := writeConfig(t)
	cmd := generateCmd(&path)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"notes.pdf"})
	err := cmd.Execute()
	if !errors.Is(err, apperr.ErrGenerationDisabled) {
		t.Fatalf("expected ErrGenerationDisabled, got %v", err)
	}
}

func TestRunServerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
	done := make(chan error, 1)
	go func() { done <- runServer(ctx, srv, logger.Nop()) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("runServer: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not stop")
	}
}
