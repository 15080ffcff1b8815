package tap

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/gaiasync/internal/common"
)

// Table is a decoded query result: column names in server order and rows of
// cell values. Integral numbers decode as int64 so that 19-digit source
// identifiers keep full precision; other numbers decode as float64.
type Table struct {
	Columns []string
	Rows    [][]any
}

// Int64Column extracts a column of integer identifiers by name.
func (t *Table) Int64Column(name string) ([]int64, error) {
	idx := -1
	for i, col := range t.Columns {
		if col == name {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, fmt.Errorf("result has no column %q", name)
	}

	out := make([]int64, 0, len(t.Rows))
	for _, row := range t.Rows {
		v, ok := row[idx].(int64)
		if !ok {
			return nil, fmt.Errorf("column %q holds %T, want int64", name, row[idx])
		}
		out = append(out, v)
	}
	return out, nil
}

type tapResponse struct {
	Metadata []struct {
		Name string `json:"name"`
	} `json:"metadata"`
	Data [][]any `json:"data"`
}

func decodeTable(r io.Reader) (*Table, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var body tapResponse
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decoding result: %w", common.ErrRemoteService, err)
	}

	table := &Table{
		Columns: make([]string, len(body.Metadata)),
		Rows:    body.Data,
	}
	for i, meta := range body.Metadata {
		table.Columns[i] = meta.Name
	}

	for _, row := range table.Rows {
		if len(row) != len(table.Columns) {
			return nil, fmt.Errorf("%w: row width %d does not match %d columns",
				common.ErrRemoteService, len(row), len(table.Columns))
		}
		for i, cell := range row {
			v, err := normalizeCell(cell)
			if err != nil {
				return nil, fmt.Errorf("%w: column %s: %w", common.ErrRemoteService, table.Columns[i], err)
			}
			row[i] = v
		}
	}
	return table, nil
}

// normalizeCell turns json.Number cells into int64 or float64 so repository
// code can hand them straight to the SQL driver.
func normalizeCell(cell any) (any, error) {
	num, ok := cell.(json.Number)
	if !ok {
		return cell, nil
	}
	s := num.String()
	if !strings.ContainsAny(s, ".eE") {
		if v, err := num.Int64(); err == nil {
			return v, nil
		}
	}
	v, err := num.Float64()
	if err != nil {
		return nil, fmt.Errorf("unparsable number %q", s)
	}
	return v, nil
}
