// Package regions provides the PostgreSQL-backed repository for region
// metadata.
package regions

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/gaiasync/internal/dbx"
	"github.com/dmitrijs2005/gaiasync/internal/models"
)

// PostgresRepository implements region storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Save upserts a region by name. On conflict only the opaque properties are
// updated; ra/dec and the shape columns keep their stored values. The
// assigned serial is returned and stamped on the region.
func (r *PostgresRepository) Save(ctx context.Context, region *models.Region) (int64, error) {
	query := `
		INSERT INTO regions (name, ra, dec, diam, width, height, properties)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (name)
		DO UPDATE SET properties = EXCLUDED.properties
		RETURNING id;
	`

	var diam, width, height any
	switch region.Shape.Kind {
	case models.ShapeCircular:
		diam = region.Shape.Diam
	case models.ShapeRectangular:
		width = region.Shape.Width
		height = region.Shape.Height
	}

	properties := region.Properties
	if properties == nil {
		properties = map[string]any{}
	}
	props, err := json.Marshal(properties)
	if err != nil {
		return 0, fmt.Errorf("marshalling properties: %w", err)
	}

	var serial int64
	err = r.db.QueryRowContext(ctx, query,
		region.Name, region.RA, region.Dec, diam, width, height, props).Scan(&serial)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	region.Serial = &serial
	return serial, nil
}

// GetByNames returns the stored regions matching the given names, keyed by
// name. An empty names slice selects all regions.
func (r *PostgresRepository) GetByNames(ctx context.Context, names []string) (map[string]models.Region, error) {
	query := `SELECT id, name, ra, dec, diam, width, height, properties FROM regions`
	args := []any{}
	if len(names) > 0 {
		placeholders := make([]string, len(names))
		for i, name := range names {
			placeholders[i] = "$" + strconv.Itoa(i+1)
			args = append(args, name)
		}
		query += ` WHERE name IN (` + strings.Join(placeholders, ", ") + `)`
	}
	query += ` ORDER BY name;`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make(map[string]models.Region)
	for rows.Next() {
		var (
			serial              int64
			name                string
			ra, dec             float64
			diam, width, height sql.NullFloat64
			props               []byte
		)
		if err := rows.Scan(&serial, &name, &ra, &dec, &diam, &width, &height, &props); err != nil {
			return nil, err
		}

		var shape models.Shape
		if diam.Valid {
			shape = models.CircularShape(diam.Float64)
		} else {
			shape = models.RectangularShape(width.Float64, height.Float64)
		}

		region, err := models.NewRegion(name, ra, dec, shape)
		if err != nil {
			return nil, fmt.Errorf("stored region %q is invalid: %w", name, err)
		}
		region.Serial = &serial

		if len(props) > 0 {
			properties := map[string]any{}
			if err := json.Unmarshal(props, &properties); err != nil {
				return nil, fmt.Errorf("unmarshalling properties for region %q: %w", name, err)
			}
			if len(properties) > 0 {
				region.Properties = properties
			}
		}

		result[name] = region
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
