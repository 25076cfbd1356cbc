package adapter

import (
	"fmt"
	"sort"

	"github.com/spf13/cast"

	apperrors "github.com/kbukum/tapioca/errors"
)

// TransformFunc is a caller-supplied conversion of a successful result.
type TransformFunc func(data any, kw *RequestKwargs, resp *Response, params *APIParams, opts map[string]any) (any, error)

// TableFunc converts a successful result into rows and columns.
type TableFunc func(data any) (*Table, error)

// ResultsFunc post-processes the results of every request in a call.
type ResultsFunc func(results []any, kws []RequestKwargs, resps []*Response, params *APIParams) ([]any, error)

// DescribeFunc renders a result for display.
type DescribeFunc func(data any, kw *RequestKwargs, resp *Response, params *APIParams) (string, error)

// Table is a tabular view of a result.
type Table struct {
	Columns []string
	Rows    [][]any
}

// Strings returns the rows formatted for display. Nil cells are empty.
func (t *Table) Strings() [][]string {
	out := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		cells := make([]string, len(row))
		for j, v := range row {
			if v == nil {
				continue
			}
			if s, err := cast.ToStringE(v); err == nil {
				cells[j] = s
			} else {
				cells[j] = fmt.Sprint(v)
			}
		}
		out[i] = cells
	}
	return out
}

// RecordsTable converts a mapping or a list of mappings into a Table whose
// columns are the sorted union of keys.
func RecordsTable(data any) (*Table, error) {
	var records []map[string]any
	switch v := data.(type) {
	case nil:
		return &Table{}, nil
	case map[string]any:
		records = []map[string]any{v}
	case []any:
		for i, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, apperrors.InvalidInput(fmt.Sprintf("[%d]", i), "expected a mapping")
			}
			records = append(records, m)
		}
	default:
		return nil, apperrors.InvalidInput("data", fmt.Sprintf("cannot tabulate %T", data))
	}

	seen := make(map[string]bool)
	var columns []string
	for _, r := range records {
		for k := range r {
			if !seen[k] {
				seen[k] = true
				columns = append(columns, k)
			}
		}
	}
	sort.Strings(columns)

	rows := make([][]any, len(records))
	for i, r := range records {
		row := make([]any, len(columns))
		for j, c := range columns {
			row[j] = r[c]
		}
		rows[i] = row
	}
	return &Table{Columns: columns, Rows: rows}, nil
}

// Data returns the result unchanged.
func (a *Adapter) Data(data any) any { return data }

// AsJSON returns the result unchanged; decoded JSON is already native.
func (a *Adapter) AsJSON(data any) any { return data }

// Transform runs the configured TransformFunc.
func (a *Adapter) Transform(data any, kw *RequestKwargs, resp *Response, params *APIParams, opts map[string]any) (any, error) {
	if a.transform == nil {
		return nil, apperrors.NotImplemented("transform")
	}
	return a.transform(data, kw, resp, params, opts)
}

// ToTable runs the configured TableFunc.
func (a *Adapter) ToTable(data any) (*Table, error) {
	if a.table == nil {
		return nil, apperrors.NotImplemented("to_table")
	}
	return a.table(data)
}

// TransformResults post-processes the results of a whole call. The default
// returns results unchanged.
func (a *Adapter) TransformResults(results []any, kws []RequestKwargs, resps []*Response, params *APIParams) ([]any, error) {
	if a.results == nil {
		return results, nil
	}
	return a.results(results, kws, resps, params)
}

// Describe renders a result with the configured DescribeFunc.
func (a *Adapter) Describe(data any, kw *RequestKwargs, resp *Response, params *APIParams) (string, error) {
	if a.describer == nil {
		return "", apperrors.NotImplemented("describe")
	}
	return a.describer(data, kw, resp, params)
}
