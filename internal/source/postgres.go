package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/neighborly/moderation/internal/domain"
)

// PostgresReader reads one relational source page by page using a stable
// ORDER BY on the descriptor's id column with LIMIT/OFFSET. The table and
// column layout comes entirely from the descriptor.
type PostgresReader struct {
	db    *sqlx.DB
	desc  Descriptor
	query string
}

// NewPostgresReader creates a reader over the given relational source.
func NewPostgresReader(db *sqlx.DB, desc Descriptor) (*PostgresReader, error) {
	if desc.Store != StorePostgres {
		return nil, fmt.Errorf("source %s: not a postgres source", desc.Name)
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(
		"SELECT %s FROM public.%s ORDER BY %s LIMIT $1 OFFSET $2",
		strings.Join(desc.Columns, ", "), desc.Table, desc.IDField,
	)

	return &PostgresReader{db: db, desc: desc, query: query}, nil
}

// Descriptor returns the source descriptor this reader serves.
func (r *PostgresReader) Descriptor() Descriptor {
	return r.desc
}

// ReadPage fetches up to limit rows starting at offset.
func (r *PostgresReader) ReadPage(ctx context.Context, offset, limit int) ([]domain.ContentUnit, error) {
	rows, err := r.db.QueryxContext(ctx, r.query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", r.desc.Table, err)
	}
	defer rows.Close()

	var units []domain.ContentUnit
	for rows.Next() {
		row := make(map[string]any, len(r.desc.Columns))
		if scanErr := rows.MapScan(row); scanErr != nil {
			return nil, fmt.Errorf("scan %s row: %w", r.desc.Table, scanErr)
		}
		units = append(units, r.mapRow(row))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s rows: %w", r.desc.Table, err)
	}

	return units, nil
}

// mapRow converts one scanned row to a content unit.
func (r *PostgresReader) mapRow(row map[string]any) domain.ContentUnit {
	identity := make(domain.Identity, len(r.desc.Identity))
	for _, f := range r.desc.Identity {
		identity[f.Name] = domain.FieldValueOf(row[f.Column])
	}

	unit := domain.ContentUnit{
		Source:   r.desc.Name,
		Category: r.desc.Category,
		Identity: identity,
		Text:     textAt(row, r.desc.ContentField),
	}
	if r.desc.UsernameField != "" {
		unit.SecondaryText = textAt(row, r.desc.UsernameField)
		unit.SecondaryLabel = r.desc.UsernameField
	}
	if r.desc.GroupField != "" {
		unit.Group = domain.FieldValueOf(row[r.desc.GroupField])
	}
	return unit
}

// textAt returns the text value of a column; missing or null fields are
// treated as empty text rather than an error.
func textAt(row map[string]any, col string) string {
	switch v := row[col].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}
