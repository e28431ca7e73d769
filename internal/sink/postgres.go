package sink

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	"github.com/neighborly/moderation/internal/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ReportStore inserts flag records into the reports table for downstream
// review. Rows are inserted with processed = false inside one transaction,
// so a run's reports land all-or-nothing.
type ReportStore struct {
	db    *sqlx.DB
	table string
}

// NewReportStore creates a report store over the given database handle.
func NewReportStore(db *sqlx.DB, table string) *ReportStore {
	if table == "" {
		table = "reports"
	}
	return &ReportStore{db: db, table: table}
}

// Migrate applies the reports schema migrations.
func (s *ReportStore) Migrate() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	driver, err := migratepg.WithInstance(s.db.DB, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("build migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// InsertAll writes one row per flag record inside a single transaction.
// Duplicates across runs are tolerated by design; the table is not
// deduplicated against prior runs.
func (s *ReportStore) InsertAll(ctx context.Context, flags []domain.FlagRecord) error {
	if len(flags) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reports transaction: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO public.%s (contentid, commentid, userid, report_reason, createdat, processed, messageid, groupid, severity)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`, s.table)

	for _, flag := range flags {
		if _, execErr := tx.ExecContext(ctx, query,
			flag.ContentID,
			flag.CommentID,
			flag.UserID,
			flag.ReportReason,
			flag.FlaggedAt,
			false, // processed: pending downstream review
			flag.MessageID,
			flag.GroupID,
			flag.Severity,
		); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert report: %w", execErr)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reports: %w", err)
	}
	return nil
}
