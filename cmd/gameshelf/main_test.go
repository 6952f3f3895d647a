package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/pelletier/go-toml/v2"

	"gameshelf/internal/config"
	"gameshelf/internal/games"
	"gameshelf/internal/resolution"
	"gameshelf/internal/search"
	"gameshelf/internal/services"
	"gameshelf/internal/testsupport"
)

type cliTestEnv struct {
	a, b       *testsupport.FakeCatalog
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	testsupport.WriteFile(t, configPath, data)

	return &cliTestEnv{
		a: testsupport.NewFakeCatalog(games.SourceA,
			testsupport.Game(games.SourceA, 1942, "The Witcher 3: Wild Hunt", 2015, "PC"),
		),
		b: testsupport.NewFakeCatalog(games.SourceB,
			testsupport.Game(games.SourceB, 3328, "The Witcher 3: Wild Hunt", 2015, "PC"),
			testsupport.Game(games.SourceB, 42, "Portal", 2007, "PC"),
		),
		configPath: configPath,
	}
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	factory := func(cfg *config.Config, logger *slog.Logger) (*resolution.Service, error) {
		return resolution.New(cfg, logger, resolution.WithCatalogs(e.a, e.b))
	}
	cmd := buildRootCommand(factory)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestSearchCommandJSON(t *testing.T) {
	env := setupCLITestEnv(t)
	env.a.SetError("search", services.ErrTransient)

	out, err := env.run(t, "--json", "search", "witcher")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	var result search.Result
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if len(result.Sources) != 1 || result.Sources[0] != "B" {
		t.Fatalf("sources = %v", result.Sources)
	}
}

func TestSearchCommandTable(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "search", "portal")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if !strings.Contains(out, "catalogB:42") || !strings.Contains(out, "Portal") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestResolveCommandUsesBuiltinOverride(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "resolve", "A:1942")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !strings.Contains(out, "catalogB:3328") || !strings.Contains(out, "override") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if env.a.TotalCalls()+env.b.TotalCalls() != 0 {
		t.Fatal("override should not call the catalogs")
	}
}

func TestFetchCommandReportsPlaceholders(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "fetch", "B:42,B:9999999")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !strings.Contains(out, "Portal") || !strings.Contains(out, "not_found") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestValidateCommandRejectsMalformedID(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, err := env.run(t, "validate", "nonsense"); err == nil {
		t.Fatal("expected parse error")
	}
	out, err := env.run(t, "validate", "B:42", "B:0")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !strings.Contains(out, "InvalidId") {
		t.Fatalf("expected InvalidId row:\n%s", out)
	}
}

func TestPrefsSetThenGet(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, err := env.run(t, "--user", "u1", "prefs", "set", "--strategy", "sourceBFirst", "--cache=false"); err != nil {
		t.Fatalf("prefs set: %v", err)
	}
	out, err := env.run(t, "--user", "u1", "--json", "prefs", "get")
	if err != nil {
		t.Fatalf("prefs get: %v", err)
	}
	if !strings.Contains(out, `"sourceBFirst"`) || !strings.Contains(out, `"tier": "profile"`) {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "gameshelf.toml")
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"config", "init", "--path", target})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config init: %v", err)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample not written: %v", err)
	}

	cmd = newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"config", "init", "--path", target})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected refusal to overwrite")
	}
}
