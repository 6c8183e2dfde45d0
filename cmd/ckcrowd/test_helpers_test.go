package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ckcrowd/internal/config"
	"ckcrowd/internal/stage"
	"ckcrowd/internal/submission"
	"ckcrowd/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	base := testsupport.BaseDir(cfg)
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	configPath := filepath.Join(homeDir, ".config", "ckcrowd", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--log-level", "error"}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\ncampaign_dir = %q\nlog_dir = %q\n\n[aggregation]\nworkers = %d\n",
		cfg.Paths.CampaignDir,
		cfg.Paths.LogDir,
		cfg.Aggregation.Workers,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

// writeAnnotateResults writes two assignments over one dialogue. Worker A
// authors two facts, worker B repeats one of them.
func writeAnnotateResults(t *testing.T, dir string) string {
	t.Helper()
	records := []submission.Submission{
		testsupport.Submission(stage.Annotate, "d1", "as-a", "A",
			testsupport.AnchoredFact("f1", "boss", "Causes", "alarm clock", 3, 4),
			testsupport.AnchoredFact("f2", "missed the bus", "Causes", "boss", 1, 3),
		),
		testsupport.Submission(stage.Annotate, "d1", "as-b", "B",
			testsupport.AnchoredFact("b1", "boss", "Causes", "alarm clock", 3, 4),
		),
	}
	return testsupport.WriteRecords(t, dir, "annotate.jsonl", records)
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
