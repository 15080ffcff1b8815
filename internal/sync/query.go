// Package sync implements the region synchronization engine: spatial query
// construction, exclusion-set management, the partitioned download loop and
// the batch orchestrator that ties them together.
package sync

import (
	"context"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/gaiasync/internal/gaia"
	"github.com/dmitrijs2005/gaiasync/internal/logging"
	"github.com/dmitrijs2005/gaiasync/internal/models"
)

// QueryBuilder composes ADQL queries selecting the full catalog schema for
// the area covered by a region, optionally excluding already-known
// identifiers. Results are always ordered by source identifier ascending so
// row-count pagination is well-defined and a rerun resumes from a known
// boundary.
type QueryBuilder struct {
	partitionSize int
	extraSize     float64
	columns       string
}

// NewQueryBuilder builds a query builder. A partitionSize of zero or less
// disables paging. A negative extraSize is coerced to its absolute value
// with a warning.
func NewQueryBuilder(ctx context.Context, partitionSize int, extraSize float64, log logging.Logger) *QueryBuilder {
	if extraSize < 0 {
		log.Warn(ctx, "negative extra size coerced to absolute value", "extra_size", extraSize)
		extraSize = -extraSize
	}

	cols := make([]string, 0, len(gaia.Columns()))
	for _, col := range gaia.Columns() {
		cols = append(cols, "A."+col)
	}

	return &QueryBuilder{
		partitionSize: partitionSize,
		extraSize:     extraSize,
		columns:       strings.Join(cols, ", "),
	}
}

// Build renders the query for one partition of the region. A nil filter
// means no exclusion; a filter with an artifact name is expressed as an
// outer anti-join against the uploaded table, an identifier list as an
// inline NOT IN predicate.
func (b *QueryBuilder) Build(region models.Region, filter *ExclusionFilter) string {
	var q strings.Builder

	q.WriteString("SELECT ")
	if b.partitionSize > 0 {
		q.WriteString("TOP ")
		q.WriteString(strconv.Itoa(b.partitionSize))
		q.WriteString(" ")
	}
	q.WriteString(b.columns)
	q.WriteString(" FROM ")
	q.WriteString(gaia.SourceTable)
	q.WriteString(" A")

	if filter != nil && filter.Artifact != "" {
		q.WriteString(" LEFT JOIN tap_upload.")
		q.WriteString(filter.Artifact)
		q.WriteString(" B ON A.")
		q.WriteString(gaia.SourceIDColumn)
		q.WriteString(" = B.")
		q.WriteString(gaia.SourceIDColumn)
	}

	q.WriteString(" WHERE ")
	if filter != nil {
		if filter.Artifact != "" {
			q.WriteString("B.")
			q.WriteString(gaia.SourceIDColumn)
			q.WriteString(" IS NULL AND ")
		} else if len(filter.IDs) > 0 {
			ids := make([]string, len(filter.IDs))
			for i, id := range filter.IDs {
				ids[i] = strconv.FormatInt(id, 10)
			}
			q.WriteString("A.")
			q.WriteString(gaia.SourceIDColumn)
			q.WriteString(" NOT IN (")
			q.WriteString(strings.Join(ids, ", "))
			q.WriteString(") AND ")
		}
	}
	q.WriteString(b.containment(region))

	q.WriteString(" ORDER BY A.")
	q.WriteString(gaia.SourceIDColumn)
	q.WriteString(" ASC")

	return q.String()
}

// containment renders the spatial predicate: a circle of radius
// diam*extraSize/2 for circular regions, a box of width*extraSize by
// height*extraSize for rectangular ones.
func (b *QueryBuilder) containment(region models.Region) string {
	point := "POINT('ICRS', A.ra, A.dec)"
	center := formatFloat(region.RA) + ", " + formatFloat(region.Dec)

	var area string
	switch region.Shape.Kind {
	case models.ShapeRectangular:
		area = "BOX('ICRS', " + center + ", " +
			formatFloat(region.Shape.Width*b.extraSize) + ", " +
			formatFloat(region.Shape.Height*b.extraSize) + ")"
	default:
		area = "CIRCLE('ICRS', " + center + ", " +
			formatFloat(region.Shape.Diam*b.extraSize/2) + ")"
	}

	return "CONTAINS(" + point + ", " + area + ") = 1"
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
