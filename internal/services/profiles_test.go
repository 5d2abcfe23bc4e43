package services

import (
	"os"
	"path/filepath"
	"testing"
)

func TestProfileRegistryBuiltinsWhenUnconfigured(t *testing.T) {
	t.Setenv("MODEL_PROFILES_PATH", "")
	reg, err := NewProfileRegistry(mustTestLogger(t))
	if err != nil {
		t.Fatalf("NewProfileRegistry: %v", err)
	}
	def, err := reg.Get("")
	if err != nil {
		t.Fatalf("Get default: %v", err)
	}
	if def.Name != reg.DefaultName() || def.BaseURL == "" || def.Model == "" {
		t.Fatalf("default profile incomplete: %+v", def)
	}
}

func TestProfileRegistryLoadsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	content := `
default: groq-fast
profiles:
  - name: groq-fast
    provider: groq
    base_url: https://api.groq.com/openai
    model: llama-3.1-8b-instant
    temperature: 0.3
  - name: openai-quality
    provider: openai
    base_url: https://api.openai.com
    model: gpt-4o
    temperature: 0.1
    system_prompt: Translate precisely.
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write profiles: %v", err)
	}
	t.Setenv("MODEL_PROFILES_PATH", path)

	reg, err := NewProfileRegistry(mustTestLogger(t))
	if err != nil {
		t.Fatalf("NewProfileRegistry: %v", err)
	}
	if reg.DefaultName() != "groq-fast" {
		t.Fatalf("default: got=%q", reg.DefaultName())
	}
	p, err := reg.Get("openai-quality")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p.Model != "gpt-4o" || p.SystemPrompt != "Translate precisely." {
		t.Fatalf("profile: %+v", p)
	}
	if _, err := reg.Get("missing"); err == nil {
		t.Fatalf("expected error for unknown profile")
	}
	if got := len(reg.List()); got != 2 {
		t.Fatalf("List: want=2 got=%d", got)
	}
}

func TestProfileRegistryRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.yaml")
	if err := os.WriteFile(empty, []byte("profiles: []\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("MODEL_PROFILES_PATH", empty)
	if _, err := NewProfileRegistry(mustTestLogger(t)); err == nil {
		t.Fatalf("expected error for empty profile list")
	}

	badDefault := filepath.Join(dir, "bad_default.yaml")
	content := `
default: nope
profiles:
  - name: only
    base_url: https://api.example.com
    model: m
`
	if err := os.WriteFile(badDefault, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("MODEL_PROFILES_PATH", badDefault)
	if _, err := NewProfileRegistry(mustTestLogger(t)); err == nil {
		t.Fatalf("expected error for undefined default profile")
	}
}
