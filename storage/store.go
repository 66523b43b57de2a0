package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ifscore/score"
)

// Driver names accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var (
	// ErrDriverUnknown indicates an unsupported storage driver name.
	ErrDriverUnknown = errors.New("storage: unknown driver")
	// ErrDSNRequired indicates a missing data source name.
	ErrDSNRequired = errors.New("storage: dsn required")
)

// Config selects the backing database.
type Config struct {
	Driver string
	DSN    string
}

// ScoreRow is the persisted form of a score.Record. The unique (owner_id,
// day) index enforces the one-record-per-day key; amendments overwrite in
// place.
type ScoreRow struct {
	ID                     uuid.UUID `gorm:"type:uuid;primaryKey"`
	OwnerID                string    `gorm:"size:128;not null;uniqueIndex:idx_score_owner_day,priority:1"`
	Day                    string    `gorm:"size:10;not null;uniqueIndex:idx_score_owner_day,priority:2"`
	InternalFortitude      int       `gorm:"not null"`
	ExternalAccountability int       `gorm:"not null"`
	HighStakesIntegrity    int       `gorm:"not null"`
	Composite              int       `gorm:"not null"`
	Note                   string    `gorm:"size:512"`
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// TableName fixes the table name independent of gorm pluralisation.
func (ScoreRow) TableName() string { return "score_records" }

// Store persists per-day score records for all owners.
type Store struct {
	db *gorm.DB
}

// Open connects to the configured database and migrates the schema.
func Open(cfg Config) (*Store, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, ErrDSNRequired
	}
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case DriverSQLite, "":
		dialector = sqlite.Open(dsn)
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrDriverUnknown, cfg.Driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&ScoreRow{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Put stores rec, replacing any previous record for the same owner and day.
func (s *Store) Put(ctx context.Context, rec score.Record) error {
	row := ScoreRow{
		ID:                     uuid.New(),
		OwnerID:                rec.OwnerID,
		Day:                    rec.Day.String(),
		InternalFortitude:      rec.SubScores.InternalFortitude,
		ExternalAccountability: rec.SubScores.ExternalAccountability,
		HighStakesIntegrity:    rec.SubScores.HighStakesIntegrity,
		Composite:              rec.Composite,
		Note:                   rec.Note,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "owner_id"}, {Name: "day"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"internal_fortitude",
			"external_accountability",
			"high_stakes_integrity",
			"composite",
			"note",
			"updated_at",
		}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("store score: %w", err)
	}
	return nil
}

// History returns every stored record for the owner. Ordering is not part of
// the contract; evaluation sorts for itself.
func (s *Store) History(ctx context.Context, ownerID string) ([]score.Record, error) {
	var rows []ScoreRow
	if err := s.db.WithContext(ctx).Where("owner_id = ?", ownerID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return recordsFromRows(rows)
}

// HistoryRange returns the owner's records with from <= day <= to, ascending
// by day. A zero bound leaves that side open.
func (s *Store) HistoryRange(ctx context.Context, ownerID string, from, to score.Day) ([]score.Record, error) {
	q := s.db.WithContext(ctx).Where("owner_id = ?", ownerID)
	if !from.IsZero() {
		q = q.Where("day >= ?", from.String())
	}
	if !to.IsZero() {
		q = q.Where("day <= ?", to.String())
	}
	var rows []ScoreRow
	if err := q.Order("day asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load history range: %w", err)
	}
	return recordsFromRows(rows)
}

// Owners lists every owner with at least one stored record, ascending.
func (s *Store) Owners(ctx context.Context) ([]string, error) {
	var owners []string
	err := s.db.WithContext(ctx).
		Model(&ScoreRow{}).
		Distinct().
		Order("owner_id asc").
		Pluck("owner_id", &owners).Error
	if err != nil {
		return nil, fmt.Errorf("list owners: %w", err)
	}
	return owners, nil
}

func recordsFromRows(rows []ScoreRow) ([]score.Record, error) {
	records := make([]score.Record, 0, len(rows))
	for _, row := range rows {
		day, err := score.ParseDay(row.Day)
		if err != nil {
			return nil, fmt.Errorf("corrupt day %q for owner %s: %w", row.Day, row.OwnerID, err)
		}
		records = append(records, score.Record{
			OwnerID: row.OwnerID,
			Day:     day,
			SubScores: score.SubScores{
				InternalFortitude:      row.InternalFortitude,
				ExternalAccountability: row.ExternalAccountability,
				HighStakesIntegrity:    row.HighStakesIntegrity,
			},
			Composite: row.Composite,
			Note:      row.Note,
		})
	}
	return records, nil
}
