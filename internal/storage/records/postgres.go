// Package records provides the PostgreSQL-backed repository for downloaded
// Gaia source rows.
package records

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/gaiasync/internal/dbx"
	"github.com/dmitrijs2005/gaiasync/internal/gaia"
)

// maxBindParams is the PostgreSQL extended-protocol limit on bind
// parameters per statement; it bounds how many rows fit in one INSERT.
const maxBindParams = 65535

// PostgresRepository implements source-row storage. It holds *sql.DB rather
// than dbx.DBTX because each chunk opens its own transaction.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository constructs a repository bound to the given database.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// SaveBatch appends rows for a region with conflict-ignore semantics.
// Rows already present (same region_id and source_id) are skipped silently.
// The batch is split into chunks sized to the bind-parameter limit; each
// chunk runs in its own transaction, so a failure never leaves a chunk
// half-applied. Returns the number of newly inserted rows.
func (r *PostgresRepository) SaveBatch(ctx context.Context, regionID int64, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	for _, column := range columns {
		if !gaia.IsColumn(column) {
			return 0, fmt.Errorf("column %q is not part of the schema", column)
		}
	}

	// region_id plus one parameter per column, per row
	chunkSize := maxBindParams / (len(columns) + 1)
	if chunkSize < 1 {
		chunkSize = 1
	}

	var inserted int64
	for start := 0; start < len(rows); start += chunkSize {
		end := start + chunkSize
		if end > len(rows) {
			end = len(rows)
		}
		n, err := r.insertChunk(ctx, regionID, columns, rows[start:end])
		if err != nil {
			return inserted, err
		}
		inserted += n
	}
	return inserted, nil
}

func (r *PostgresRepository) insertChunk(ctx context.Context, regionID int64, columns []string, rows [][]any) (int64, error) {
	query := buildInsertQuery(columns, len(rows))

	args := make([]any, 0, len(rows)*(len(columns)+1))
	for _, row := range rows {
		if len(row) != len(columns) {
			return 0, fmt.Errorf("row has %d values, want %d", len(row), len(columns))
		}
		args = append(args, regionID)
		args = append(args, row...)
	}

	var inserted int64
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		inserted, err = res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected error: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

func buildInsertQuery(columns []string, rowCount int) string {
	var b strings.Builder
	b.WriteString("INSERT INTO gaiadr2_source (region_id, ")
	b.WriteString(strings.Join(columns, ", "))
	b.WriteString(") VALUES ")

	param := 1
	for i := 0; i < rowCount; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j := 0; j <= len(columns); j++ {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString("$")
			b.WriteString(strconv.Itoa(param))
			param++
		}
		b.WriteString(")")
	}

	b.WriteString(" ON CONFLICT (region_id, source_id) DO NOTHING;")
	return b.String()
}

// KnownSourceIDs returns every source_id committed for the named region.
func (r *PostgresRepository) KnownSourceIDs(ctx context.Context, regionName string) (map[int64]struct{}, error) {
	query := `
		SELECT s.source_id FROM gaiadr2_source s
		JOIN regions r ON r.id = s.region_id
		WHERE r.name = $1
		ORDER BY s.source_id ASC;
	`
	rows, err := r.db.QueryContext(ctx, query, regionName)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	ids := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}
