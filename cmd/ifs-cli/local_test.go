package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ifscore/score"
)

func TestScoreCommandArgValidation(t *testing.T) {
	cases := []struct {
		name       string
		args       []string
		wantExit   int
		wantStderr string
	}{
		{
			name:       "missing_flags",
			args:       nil,
			wantExit:   1,
			wantStderr: "Error: --fortitude, --accountability and --integrity are required\n",
		},
		{
			name:       "partial_flags",
			args:       []string{"--fortitude", "80"},
			wantExit:   1,
			wantStderr: "Error: --fortitude, --accountability and --integrity are required\n",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stdout := &bytes.Buffer{}
			stderr := &bytes.Buffer{}
			exitCode := runScoreCommand(tc.args, stdout, stderr)
			if exitCode != tc.wantExit {
				t.Fatalf("unexpected exit code: got %d, want %d", exitCode, tc.wantExit)
			}
			if stdout.Len() != 0 {
				t.Fatalf("expected empty stdout, got %q", stdout.String())
			}
			if stderr.String() != tc.wantStderr {
				t.Fatalf("unexpected stderr: got %q, want %q", stderr.String(), tc.wantStderr)
			}
		})
	}
}

func TestScoreCommandComputes(t *testing.T) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	exitCode := runScoreCommand([]string{"--fortitude", "80", "--accountability", "70", "--integrity", "90"}, stdout, stderr)
	if exitCode != 0 {
		t.Fatalf("exit code = %d, stderr = %q", exitCode, stderr.String())
	}

	var out struct {
		Composite int `json:"compositeScore"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		t.Fatalf("decode stdout: %v", err)
	}
	if out.Composite != 78 {
		t.Fatalf("compositeScore = %d, want 78", out.Composite)
	}
}

func TestScoreCommandRejectsOutOfRange(t *testing.T) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	exitCode := runScoreCommand([]string{"--fortitude", "150", "--accountability", "50", "--integrity", "50"}, stdout, stderr)
	if exitCode != 1 {
		t.Fatalf("exit code = %d, want 1", exitCode)
	}
	if !strings.Contains(stderr.String(), "sub-score out of range") {
		t.Fatalf("stderr = %q", stderr.String())
	}
}

func TestScoreCommandClamps(t *testing.T) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	exitCode := runScoreCommand([]string{"--fortitude", "150", "--accountability", "50", "--integrity", "50", "--clamp"}, stdout, stderr)
	if exitCode != 0 {
		t.Fatalf("exit code = %d, stderr = %q", exitCode, stderr.String())
	}

	var out struct {
		Composite int `json:"compositeScore"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		t.Fatalf("decode stdout: %v", err)
	}
	if out.Composite != 70 {
		t.Fatalf("compositeScore = %d, want clamped 70", out.Composite)
	}
}

func TestEvaluateCommandArgValidation(t *testing.T) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	if exitCode := runEvaluateCommand(nil, stdout, stderr); exitCode != 1 {
		t.Fatalf("exit code = %d, want 1", exitCode)
	}
	if stderr.String() != "Error: --file is required\n" {
		t.Fatalf("stderr = %q", stderr.String())
	}
}

func TestEvaluateCommandReportsTriggers(t *testing.T) {
	dir := t.TempDir()

	records := []score.Record{
		{OwnerID: "alice", Day: score.MustParseDay("2026-03-08"), SubScores: score.SubScores{InternalFortitude: 60, ExternalAccountability: 60, HighStakesIntegrity: 60}, Composite: 60},
		{OwnerID: "alice", Day: score.MustParseDay("2026-03-09"), SubScores: score.SubScores{InternalFortitude: 60, ExternalAccountability: 60, HighStakesIntegrity: 60}, Composite: 60},
		{OwnerID: "alice", Day: score.MustParseDay("2026-03-10"), SubScores: score.SubScores{InternalFortitude: 60, ExternalAccountability: 60, HighStakesIntegrity: 60}, Composite: 60},
	}
	raw, err := json.Marshal(records)
	if err != nil {
		t.Fatalf("marshal history: %v", err)
	}
	historyPath := filepath.Join(dir, "history.json")
	if err := os.WriteFile(historyPath, raw, 0o600); err != nil {
		t.Fatalf("write history: %v", err)
	}

	policyPath := filepath.Join(dir, "policy.yaml")
	if err := os.WriteFile(policyPath, []byte("sanctionStreakDays: 2\n"), 0o600); err != nil {
		t.Fatalf("write policy: %v", err)
	}

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	exitCode := runEvaluateCommand([]string{"--file", historyPath, "--date", "2026-03-10", "--policy", policyPath}, stdout, stderr)
	if exitCode != 0 {
		t.Fatalf("exit code = %d, stderr = %q", exitCode, stderr.String())
	}

	var report struct {
		ConsecutiveSanctionDays int  `json:"consecutiveSanctionWarningDays"`
		SanctionTriggered       bool `json:"sanctionWarningTriggered"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &report); err != nil {
		t.Fatalf("decode stdout: %v", err)
	}
	if report.ConsecutiveSanctionDays != 3 || !report.SanctionTriggered {
		t.Fatalf("report = %+v", report)
	}
}

func TestEvaluateCommandRejectsBadHistory(t *testing.T) {
	dir := t.TempDir()
	historyPath := filepath.Join(dir, "history.json")
	if err := os.WriteFile(historyPath, []byte("not json"), 0o600); err != nil {
		t.Fatalf("write history: %v", err)
	}

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	exitCode := runEvaluateCommand([]string{"--file", historyPath, "--date", "2026-03-10"}, stdout, stderr)
	if exitCode != 1 {
		t.Fatalf("exit code = %d, want 1", exitCode)
	}
	if !strings.Contains(stderr.String(), "Error parsing history file") {
		t.Fatalf("stderr = %q", stderr.String())
	}
}
