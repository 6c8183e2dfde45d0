package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ckcrowd/internal/campaign"
	"ckcrowd/internal/quality"
)

func TestRunStatusAndWorkers(t *testing.T) {
	env := setupCLITestEnv(t)
	results := writeAnnotateResults(t, env.baseDir)

	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status before run: %v", err)
	}
	requireContains(t, out, "READY")
	requireContains(t, out, "BLOCKED")

	out, _, err = runCLI(t, []string{"run", "annotate", "--input", results}, env.configPath)
	if err != nil {
		t.Fatalf("run annotate: %v", err)
	}
	requireContains(t, out, "Annotate run")

	out, _, err = runCLI(t, []string{"status", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("status --json: %v", err)
	}
	var statuses []campaign.StageStatus
	if err := json.Unmarshal([]byte(out), &statuses); err != nil {
		t.Fatalf("decode status: %v\n%s", err, out)
	}
	if len(statuses) != 5 || !statuses[0].Completed || !statuses[1].Ready || statuses[2].Ready {
		t.Fatalf("unexpected statuses %+v", statuses)
	}

	out, _, err = runCLI(t, []string{"workers", "annotate", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("workers: %v", err)
	}
	var report quality.Report
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode workers: %v", err)
	}
	if report.Workers != 2 || len(report.Records) != 2 {
		t.Fatalf("unexpected worker report %+v", report)
	}

	prepared := filepath.Join(env.baseDir, "validate-input.jsonl")
	if _, _, err := runCLI(t, []string{"prepare", "validate", "--output", prepared}, env.configPath); err != nil {
		t.Fatalf("prepare validate: %v", err)
	}
	data, err := os.ReadFile(prepared)
	if err != nil {
		t.Fatalf("read prepared input: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 || !strings.Contains(lines[0], `"task_id":"d1"`) {
		t.Fatalf("unexpected prepared input %q", data)
	}

	if _, _, err := runCLI(t, []string{"agreement", "annotate"}, env.configPath); err == nil {
		t.Fatal("expected agreement to refuse a proposal stage")
	}
}

func TestRunRequiresUpstreamStage(t *testing.T) {
	env := setupCLITestEnv(t)
	results := writeAnnotateResults(t, env.baseDir)

	_, _, err := runCLI(t, []string{"run", "validate", "--input", results}, env.configPath)
	if err == nil {
		t.Fatal("expected validate to fail before annotate has run")
	}
	if _, _, err := runCLI(t, []string{"run", "nonsense", "--input", results}, env.configPath); err == nil {
		t.Fatal("expected unknown stage to fail")
	}
	if _, _, err := runCLI(t, []string{"run", "annotate"}, env.configPath); err == nil {
		t.Fatal("expected missing --input to fail")
	}
}

func TestAdjudicateTemplateRequiresStage(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"adjudicate", "template"}, env.configPath)
	if err == nil {
		t.Fatal("expected template to fail before the adjudicate stage runs")
	}
	requireContains(t, err.Error(), "has not run yet")
}

func TestLogsFiltersByStage(t *testing.T) {
	env := setupCLITestEnv(t)
	results := writeAnnotateResults(t, env.baseDir)

	if _, _, err := runCLI(t, []string{"run", "validate", "--input", results}, env.configPath); err == nil {
		t.Fatal("expected validate to fail before annotate")
	}

	out, _, err := runCLI(t, []string{"logs", "--stage", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "stage failed")

	out, _, err = runCLI(t, []string{"logs", "--stage", "adjudicate"}, env.configPath)
	if err != nil {
		t.Fatalf("logs --stage adjudicate: %v", err)
	}
	if strings.Contains(out, "stage failed") {
		t.Fatalf("expected no adjudicate lines, got %q", out)
	}
}
