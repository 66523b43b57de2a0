package export

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"ifscore/score"
	"ifscore/storage"
	"ifscore/triggers"
)

func setupExportStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.Open(storage.Config{Driver: storage.DriverSQLite, DSN: ":memory:"})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func putRecord(t *testing.T, store *storage.Store, owner, day string, composite int) {
	t.Helper()
	rec := score.Record{
		OwnerID: owner,
		Day:     score.MustParseDay(day),
		SubScores: score.SubScores{
			InternalFortitude:      composite,
			ExternalAccountability: composite,
			HighStakesIntegrity:    composite,
		},
		Composite: composite,
	}
	if err := store.Put(context.Background(), rec); err != nil {
		t.Fatalf("put %s %s: %v", owner, day, err)
	}
}

func TestReporterDryRunGroupsOwners(t *testing.T) {
	store := setupExportStore(t)

	for _, day := range []string{"2026-03-08", "2026-03-09", "2026-03-10"} {
		putRecord(t, store, "sanction-owner", day, 60)
	}
	for _, day := range []string{"2026-03-01", "2026-03-03", "2026-03-05", "2026-03-07", "2026-03-09"} {
		putRecord(t, store, "review-owner", day, 40)
	}
	putRecord(t, store, "grad-owner", "2026-03-09", 95)
	putRecord(t, store, "grad-owner", "2026-03-10", 95)
	putRecord(t, store, "clear-owner", "2026-03-10", 80)

	policy := triggers.DefaultPolicy()
	policy.GraduationStreakDays = 2

	reporter, err := NewReporter(Config{
		Store:     store,
		Policy:    policy,
		OutputDir: filepath.Join(t.TempDir(), "exports"),
		DryRun:    true,
	})
	if err != nil {
		t.Fatalf("new reporter: %v", err)
	}

	res, err := reporter.Run(context.Background(), score.MustParseDay("2026-03-10"))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Files) != 0 {
		t.Fatalf("expected no files in dry-run, got %d", len(res.Files))
	}
	if len(res.Rows) != 4 {
		t.Fatalf("rows = %d, want 4", len(res.Rows))
	}
	if res.Rows[0].OwnerID != "clear-owner" {
		t.Fatalf("rows not sorted by owner, first = %s", res.Rows[0].OwnerID)
	}

	wantGroups := map[string]string{
		"sanction-owner": GroupSanction,
		"review-owner":   GroupReview,
		"grad-owner":     GroupGraduation,
		"clear-owner":    GroupClear,
	}
	for _, row := range res.Rows {
		if row.Group != wantGroups[row.OwnerID] {
			t.Fatalf("%s filed under %s, want %s", row.OwnerID, row.Group, wantGroups[row.OwnerID])
		}
	}
	for group, count := range res.Totals {
		if count != 1 {
			t.Fatalf("totals[%s] = %d, want 1", group, count)
		}
	}

	for _, row := range res.Rows {
		if row.OwnerID != "sanction-owner" {
			continue
		}
		if row.ConsecutiveSanctionDays != 3 || !row.SanctionTriggered {
			t.Fatalf("sanction row = %+v", row)
		}
		if !row.HasScore || row.LatestScore != 60 {
			t.Fatalf("sanction latest score = %d (has=%v), want 60", row.LatestScore, row.HasScore)
		}
	}
}

func TestReporterWritesGroupedFiles(t *testing.T) {
	store := setupExportStore(t)
	outputDir := filepath.Join(t.TempDir(), "exports")

	for _, day := range []string{"2026-03-08", "2026-03-09", "2026-03-10"} {
		putRecord(t, store, "sanction-owner", day, 60)
	}
	putRecord(t, store, "clear-owner", "2026-03-10", 80)

	reporter, err := NewReporter(Config{
		Store:     store,
		Policy:    triggers.DefaultPolicy(),
		OutputDir: outputDir,
	})
	if err != nil {
		t.Fatalf("new reporter: %v", err)
	}

	res, err := reporter.Run(context.Background(), score.MustParseDay("2026-03-10"))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Files) != 2 {
		t.Fatalf("files = %d, want 2", len(res.Files))
	}

	for _, file := range res.Files {
		if file.Count != 1 {
			t.Fatalf("file %s count = %d, want 1", file.Group, file.Count)
		}
		for _, path := range []string{file.CSVPath, file.ParquetPath} {
			if _, err := os.Stat(path); err != nil {
				t.Fatalf("missing artefact %s: %v", path, err)
			}
		}
	}

	if base := filepath.Base(res.Files[0].CSVPath); base != "ifs_sanction_20260310.csv" {
		t.Fatalf("csv name = %s", base)
	}

	raw, err := os.Open(res.Files[0].CSVPath)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer raw.Close()
	records, err := csv.NewReader(raw).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("csv rows = %d, want header plus one", len(records))
	}
	if records[0][0] != "owner_id" {
		t.Fatalf("csv header = %v", records[0])
	}
	if records[1][0] != "sanction-owner" || records[1][2] != "60" {
		t.Fatalf("csv row = %v", records[1])
	}
}

func TestReporterEmitsWarningAnomalies(t *testing.T) {
	store := setupExportStore(t)
	putRecord(t, store, "risky", "2026-03-09", 150)

	var alerts []Anomaly
	reporter, err := NewReporter(Config{
		Store:  store,
		Policy: triggers.DefaultPolicy(),
		DryRun: true,
		Alert: func(_ context.Context, a Anomaly) error {
			alerts = append(alerts, a)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("new reporter: %v", err)
	}

	res, err := reporter.Run(context.Background(), score.MustParseDay("2026-03-10"))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Anomalies) != 1 {
		t.Fatalf("anomalies = %d, want 1", len(res.Anomalies))
	}
	if res.Anomalies[0].Type != AnomalyIntegrityWarning || res.Anomalies[0].OwnerID != "risky" {
		t.Fatalf("anomaly = %+v", res.Anomalies[0])
	}
	if len(alerts) != 1 {
		t.Fatalf("expected alert delivery, got %d", len(alerts))
	}
}

func TestReporterFlagsConflictingPolicy(t *testing.T) {
	store := setupExportStore(t)
	putRecord(t, store, "both", "2026-03-10", 92)

	policy := triggers.DefaultPolicy()
	policy.SanctionScoreThreshold = 95
	policy.SanctionStreakDays = 1
	policy.GraduationScoreThreshold = 90
	policy.GraduationStreakDays = 1

	reporter, err := NewReporter(Config{Store: store, Policy: policy, DryRun: true})
	if err != nil {
		t.Fatalf("new reporter: %v", err)
	}

	res, err := reporter.Run(context.Background(), score.MustParseDay("2026-03-10"))
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	found := false
	for _, a := range res.Anomalies {
		if a.Type == AnomalyConflictingFlags {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("expected conflicting flags anomaly, got %+v", res.Anomalies)
	}
	if res.Rows[0].Group != GroupSanction {
		t.Fatalf("group = %s, want sanction to win", res.Rows[0].Group)
	}
}

func TestNewReporterValidates(t *testing.T) {
	if _, err := NewReporter(Config{}); err == nil {
		t.Fatalf("expected error without store")
	}

	store := setupExportStore(t)
	bad := triggers.DefaultPolicy()
	bad.SanctionStreakDays = 0
	if _, err := NewReporter(Config{Store: store, Policy: bad}); err == nil {
		t.Fatalf("expected error for invalid policy")
	}
}

func TestReporterRequiresEvaluationDay(t *testing.T) {
	store := setupExportStore(t)
	reporter, err := NewReporter(Config{Store: store, Policy: triggers.DefaultPolicy(), DryRun: true})
	if err != nil {
		t.Fatalf("new reporter: %v", err)
	}
	if _, err := reporter.Run(context.Background(), score.Day{}); err == nil {
		t.Fatalf("expected error for zero day")
	}
}
