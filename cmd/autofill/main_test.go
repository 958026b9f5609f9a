package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeConfig writes a minimal configuration pointing at a temp database.
func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
database:
  path: "` + filepath.Join(dir, "autofill.db") + `"
  wal_mode: true
  busy_timeout: 5

logging:
  level: error
  format: text
  output: stderr
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return out.String(), err
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()
	want := map[string]bool{"serve": false, "run": false, "locate": false, "migrate": false}
	for _, c := range root.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestResolveConfigPath(t *testing.T) {
	t.Setenv(configEnv, "/etc/autofill/env.yaml")

	o := &options{}
	if got := o.resolveConfigPath(); got != "/etc/autofill/env.yaml" {
		t.Errorf("env path = %q", got)
	}
	o.configPath = "flag.yaml"
	if got := o.resolveConfigPath(); got != "flag.yaml" {
		t.Errorf("flag path = %q, want flag to win", got)
	}
}

func TestLoad_InvalidConfigPath(t *testing.T) {
	o := &options{configPath: "/nonexistent/path/config.yaml"}
	if _, _, err := o.load(); err == nil {
		t.Fatal("load() should fail with invalid config path")
	}
}

func TestMigrate_UpThenStatus(t *testing.T) {
	cfg := writeConfig(t)

	out, err := execute(t, "migrate", "--config", cfg)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if !strings.Contains(out, "applied 3 migration(s)") {
		t.Errorf("migrate output = %q", out)
	}

	out, err = execute(t, "migrate", "--config", cfg, "--status")
	if err != nil {
		t.Fatalf("migrate --status: %v", err)
	}
	if strings.Count(out, "applied") != 3 || strings.Contains(out, "pending") {
		t.Errorf("status output = %q", out)
	}

	out, err = execute(t, "migrate", "--config", cfg)
	if err != nil || !strings.Contains(out, "applied 0 migration(s)") {
		t.Errorf("second migrate = %q, %v", out, err)
	}
}

func TestMigrate_DownThenStatus(t *testing.T) {
	cfg := writeConfig(t)
	if _, err := execute(t, "migrate", "--config", cfg); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	if _, err := execute(t, "migrate", "--config", cfg, "--down"); err != nil {
		t.Fatalf("migrate --down: %v", err)
	}
	out, err := execute(t, "migrate", "--config", cfg, "--status")
	if err != nil {
		t.Fatalf("migrate --status: %v", err)
	}
	if strings.Count(out, "pending") != 1 {
		t.Errorf("status after down = %q", out)
	}

	if _, err := execute(t, "migrate", "--config", cfg, "--down", "--status"); err == nil {
		t.Error("--down with --status should fail")
	}
}

func TestLocate_File(t *testing.T) {
	page := filepath.Join(t.TempDir(), "login.html")
	html := `<html><body><div id="main"><form><input name="email"></form></div></body></html>`
	if err := os.WriteFile(page, []byte(html), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "locate", "--file", page, "--css", "input")
	if err != nil {
		t.Fatalf("locate: %v", err)
	}
	var loc map[string]string
	if err := json.Unmarshal([]byte(out), &loc); err != nil {
		t.Fatalf("output is not JSON: %q", out)
	}
	if loc["absolute"] != "/html/body/div[1]/form[1]/input[1]" {
		t.Errorf("absolute = %q", loc["absolute"])
	}
	if loc["short"] != `//*[@id="main"]/form[1]/input[1]` {
		t.Errorf("short = %q", loc["short"])
	}
	if loc["smart"] == "" {
		t.Error("smart locator empty")
	}
}

func TestLocate_FlagErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no source", []string{"locate", "--css", "input"}, "--file or --url"},
		{"both sources", []string{"locate", "--css", "input", "--file", "a.html", "--url", "http://x"}, "mutually exclusive"},
		{"missing css", []string{"locate", "--file", "a.html"}, "css"},
		{"missing file", []string{"locate", "--css", "input", "--file", "/nonexistent/page.html"}, "opening page"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestRun_RequiresWebsite(t *testing.T) {
	_, err := execute(t, "run")
	if err == nil || !strings.Contains(err.Error(), "website") {
		t.Errorf("error = %v, want missing --website", err)
	}
}

func TestLoadVariables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vars.yaml")
	if err := os.WriteFile(path, []byte("email: alice@example.com\nname: Alice\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	vars, err := loadVariables(path)
	if err != nil {
		t.Fatalf("loadVariables: %v", err)
	}
	if vars["email"] != "alice@example.com" || vars["name"] != "Alice" || len(vars) != 2 {
		t.Errorf("vars = %v", vars)
	}

	if vars, err := loadVariables(""); err != nil || vars != nil {
		t.Errorf("empty path = %v, %v", vars, err)
	}
	if _, err := loadVariables("/nonexistent/vars.yaml"); err == nil {
		t.Error("missing file should fail")
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("- a\n- b\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := loadVariables(bad); err == nil {
		t.Error("a YAML list should not parse as variables")
	}
}
