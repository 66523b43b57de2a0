package export

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"ifscore/observability"
	"ifscore/score"
	"ifscore/storage"
	"ifscore/triggers"
)

const (
	// Status groups a report row is filed under, first match wins.
	GroupSanction   = "sanction"
	GroupReview     = "review"
	GroupGraduation = "graduation"
	GroupClear      = "clear"

	// Anomaly types emitted by the reporter.
	AnomalyIntegrityWarning = "integrity_warning"
	AnomalyConflictingFlags = "conflicting_flags"
)

// AlertFunc is invoked for every anomaly detected during an export run.
type AlertFunc func(ctx context.Context, anomaly Anomaly) error

// Anomaly captures an owner history condition requiring operator review.
type Anomaly struct {
	Type    string
	OwnerID string
	Day     score.Day
	Details string
}

// Config captures the dependencies required to construct a Reporter.
type Config struct {
	Store     *storage.Store
	Policy    triggers.Policy
	OutputDir string
	DryRun    bool
	Alert     AlertFunc
	Logger    *slog.Logger
	Metrics   *observability.IFSMetrics
}

// Reporter materialises nightly trigger-status reports across every known owner.
type Reporter struct {
	store     *storage.Store
	policy    triggers.Policy
	outputDir string
	dryRun    bool
	alert     AlertFunc
	logger    *slog.Logger
	metrics   *observability.IFSMetrics
}

// ReportRow summarises the trigger evaluation for a single owner.
type ReportRow struct {
	OwnerID                   string
	Day                       score.Day
	HasScore                  bool
	LatestScore               int
	ConsecutiveSanctionDays   int
	ConsecutiveGraduationDays int
	ReviewWindowCount         int
	SanctionTriggered         bool
	ReviewTriggered           bool
	GraduationTriggered       bool
	WarningCount              int
	Group                     string
}

// ReportFile references the CSV and Parquet artefacts generated for a status group.
type ReportFile struct {
	Group       string
	CSVPath     string
	ParquetPath string
	Count       int
}

// Result summarises an export run.
type Result struct {
	Day       score.Day
	Rows      []*ReportRow
	Files     []ReportFile
	Anomalies []Anomaly
	Totals    map[string]int
}

// NewReporter builds a configured reporter.
func NewReporter(cfg Config) (*Reporter, error) {
	if cfg.Store == nil {
		return nil, errors.New("export: store is required")
	}
	if err := cfg.Policy.Validate(); err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	outputDir := cfg.OutputDir
	if outputDir == "" {
		outputDir = filepath.Join("ifs-data", "exports")
	}
	alert := cfg.Alert
	if alert == nil {
		alert = func(ctx context.Context, anomaly Anomaly) error { return nil }
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Reporter{
		store:     cfg.Store,
		policy:    cfg.Policy,
		outputDir: outputDir,
		dryRun:    cfg.DryRun,
		alert:     alert,
		logger:    logger,
		metrics:   cfg.Metrics,
	}, nil
}

// Run evaluates every owner as of the supplied day and writes grouped report files.
func (r *Reporter) Run(ctx context.Context, day score.Day) (*Result, error) {
	result, err := r.run(ctx, day)
	if err != nil {
		r.metrics.RecordExport(err, 0)
		return nil, err
	}
	r.metrics.RecordExport(nil, len(result.Rows))
	return result, nil
}

func (r *Reporter) run(ctx context.Context, day score.Day) (*Result, error) {
	if day.IsZero() {
		return nil, errors.New("export: evaluation day is required")
	}

	owners, err := r.store.Owners(ctx)
	if err != nil {
		return nil, fmt.Errorf("export: load owners: %w", err)
	}

	rows := make([]*ReportRow, 0, len(owners))
	anomalies := make([]Anomaly, 0)
	totals := make(map[string]int)

	for _, owner := range owners {
		history, err := r.store.History(ctx, owner)
		if err != nil {
			return nil, fmt.Errorf("export: load history for %s: %w", owner, err)
		}
		report := triggers.Evaluate(history, day, r.policy)

		row := &ReportRow{
			OwnerID:                   owner,
			Day:                       day,
			ConsecutiveSanctionDays:   report.ConsecutiveSanctionDays,
			ConsecutiveGraduationDays: report.ConsecutiveGraduationDays,
			ReviewWindowCount:         report.ReviewWindowCount,
			SanctionTriggered:         report.SanctionTriggered,
			ReviewTriggered:           report.ReviewTriggered,
			GraduationTriggered:       report.GraduationTriggered,
			WarningCount:              len(report.Warnings),
			Group:                     classify(report),
		}
		if report.LatestScore != nil {
			row.HasScore = true
			row.LatestScore = *report.LatestScore
		}
		rows = append(rows, row)
		totals[row.Group]++

		for _, warn := range report.Warnings {
			anomalies = append(anomalies, r.raise(ctx, Anomaly{
				Type:    AnomalyIntegrityWarning,
				OwnerID: owner,
				Day:     warn.Day,
				Details: warn.String(),
			}))
		}
		if report.SanctionTriggered && report.GraduationTriggered {
			anomalies = append(anomalies, r.raise(ctx, Anomaly{
				Type:    AnomalyConflictingFlags,
				OwnerID: owner,
				Day:     day,
				Details: "sanction warning and graduation raised together",
			}))
		}
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].OwnerID < rows[j].OwnerID })

	files := make([]ReportFile, 0)
	if !r.dryRun {
		if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
			return nil, fmt.Errorf("export: ensure output dir: %w", err)
		}
		for _, group := range []string{GroupSanction, GroupReview, GroupGraduation, GroupClear} {
			entries := groupRows(rows, group)
			if len(entries) == 0 {
				continue
			}
			csvPath, parquetPath, err := r.writeReportFiles(day, group, entries)
			if err != nil {
				return nil, err
			}
			files = append(files, ReportFile{
				Group:       group,
				CSVPath:     csvPath,
				ParquetPath: parquetPath,
				Count:       len(entries),
			})
		}
	}

	return &Result{Day: day, Rows: rows, Files: files, Anomalies: anomalies, Totals: totals}, nil
}

// classify files a report under the most urgent matching group.
func classify(report triggers.Report) string {
	switch {
	case report.SanctionTriggered:
		return GroupSanction
	case report.ReviewTriggered:
		return GroupReview
	case report.GraduationTriggered:
		return GroupGraduation
	default:
		return GroupClear
	}
}

func (r *Reporter) raise(ctx context.Context, anomaly Anomaly) Anomaly {
	if r.alert != nil {
		if err := r.alert(ctx, anomaly); err != nil {
			r.logger.Warn("export alert delivery failed", "error", err, "type", anomaly.Type, "owner", anomaly.OwnerID)
		}
	}
	return anomaly
}

func groupRows(rows []*ReportRow, group string) []*ReportRow {
	grouped := make([]*ReportRow, 0)
	for _, row := range rows {
		if row.Group == group {
			grouped = append(grouped, row)
		}
	}
	return grouped
}

func (r *Reporter) writeReportFiles(day score.Day, group string, rows []*ReportRow) (string, string, error) {
	filename := fmt.Sprintf("ifs_%s_%s", group, day.Time().Format("20060102"))
	csvPath := filepath.Join(r.outputDir, filename+".csv")
	if err := writeCSV(csvPath, rows); err != nil {
		return "", "", err
	}
	parquetPath := filepath.Join(r.outputDir, filename+".parquet")
	if err := writeParquet(parquetPath, rows); err != nil {
		return "", "", err
	}
	r.logger.Info("export wrote report files", "csv", csvPath, "parquet", parquetPath, "rows", len(rows))
	return csvPath, parquetPath, nil
}

func writeCSV(path string, rows []*ReportRow) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: create csv: %w", err)
	}
	defer file.Close()
	w := csv.NewWriter(file)
	header := []string{
		"owner_id", "day", "latest_score", "consecutive_sanction_days", "consecutive_graduation_days",
		"review_window_count", "sanction_triggered", "review_triggered", "graduation_triggered",
		"warning_count", "status_group",
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("export: write csv header: %w", err)
	}
	for _, row := range rows {
		record := []string{
			row.OwnerID,
			row.Day.String(),
			formatScore(row),
			strconv.Itoa(row.ConsecutiveSanctionDays),
			strconv.Itoa(row.ConsecutiveGraduationDays),
			strconv.Itoa(row.ReviewWindowCount),
			boolString(row.SanctionTriggered),
			boolString(row.ReviewTriggered),
			boolString(row.GraduationTriggered),
			strconv.Itoa(row.WarningCount),
			row.Group,
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("export: write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("export: flush csv: %w", err)
	}
	return nil
}

type parquetRow struct {
	OwnerID                   string `parquet:"name=owner_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Day                       string `parquet:"name=day, type=BYTE_ARRAY, convertedtype=UTF8"`
	HasScore                  bool   `parquet:"name=has_score, type=BOOLEAN"`
	LatestScore               int32  `parquet:"name=latest_score, type=INT32"`
	ConsecutiveSanctionDays   int32  `parquet:"name=consecutive_sanction_days, type=INT32"`
	ConsecutiveGraduationDays int32  `parquet:"name=consecutive_graduation_days, type=INT32"`
	ReviewWindowCount         int32  `parquet:"name=review_window_count, type=INT32"`
	SanctionTriggered         bool   `parquet:"name=sanction_triggered, type=BOOLEAN"`
	ReviewTriggered           bool   `parquet:"name=review_triggered, type=BOOLEAN"`
	GraduationTriggered       bool   `parquet:"name=graduation_triggered, type=BOOLEAN"`
	WarningCount              int32  `parquet:"name=warning_count, type=INT32"`
	Group                     string `parquet:"name=status_group, type=BYTE_ARRAY, convertedtype=UTF8"`
}

func writeParquet(path string, rows []*ReportRow) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: create parquet: %w", err)
	}
	fw := writerfile.NewWriterFile(file)
	pw, err := writer.NewParquetWriter(fw, new(parquetRow), 1)
	if err != nil {
		file.Close()
		return fmt.Errorf("export: parquet schema: %w", err)
	}
	pw.RowGroupSize = 128 * 1024 * 1024
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, row := range rows {
		pr := &parquetRow{
			OwnerID:                   row.OwnerID,
			Day:                       row.Day.String(),
			HasScore:                  row.HasScore,
			LatestScore:               int32(row.LatestScore),
			ConsecutiveSanctionDays:   int32(row.ConsecutiveSanctionDays),
			ConsecutiveGraduationDays: int32(row.ConsecutiveGraduationDays),
			ReviewWindowCount:         int32(row.ReviewWindowCount),
			SanctionTriggered:         row.SanctionTriggered,
			ReviewTriggered:           row.ReviewTriggered,
			GraduationTriggered:       row.GraduationTriggered,
			WarningCount:              int32(row.WarningCount),
			Group:                     row.Group,
		}
		if err := pw.Write(pr); err != nil {
			pw.WriteStop()
			file.Close()
			return fmt.Errorf("export: parquet write: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		file.Close()
		return fmt.Errorf("export: parquet flush: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("export: close parquet file: %w", err)
	}
	return nil
}

func formatScore(row *ReportRow) string {
	if !row.HasScore {
		return ""
	}
	return strconv.Itoa(row.LatestScore)
}

func boolString(v bool) string {
	if v {
		return "true"
	}
	return "false"
}
