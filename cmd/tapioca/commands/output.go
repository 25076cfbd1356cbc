package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/olekukonko/tablewriter"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/kbukum/tapioca/adapter"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

// resolveFormat picks table output for terminals and JSON for pipes when no
// format was requested.
func resolveFormat(requested string, w io.Writer) (string, error) {
	switch requested {
	case formatTable, formatJSON, formatYAML:
		return requested, nil
	case "":
		if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			return formatTable, nil
		}
		return formatJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (use table, json or yaml)", requested)
	}
}

func render(w io.Writer, format string, data any) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		defer func() { _ = enc.Close() }()
		return enc.Encode(data)
	default:
		return renderTable(w, data)
	}
}

// renderTable prints mappings and lists of mappings as rows. Other values
// fall back to JSON.
func renderTable(w io.Writer, data any) error {
	t, err := adapter.RecordsTable(data)
	if err != nil || len(t.Columns) == 0 {
		return render(w, formatJSON, data)
	}

	table := tablewriter.NewWriter(w)
	table.Header(anySlice(t.Columns)...)
	for _, row := range t.Strings() {
		if err := table.Append(anySlice(row)...); err != nil {
			return fmt.Errorf("failed to append row: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}
	return nil
}

// renderPairs prints a two-column Property/Value table with sorted keys.
func renderPairs(w io.Writer, pairs map[string]string) error {
	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	table := tablewriter.NewWriter(w)
	table.Header("Property", "Value")
	for _, k := range keys {
		if err := table.Append(k, pairs[k]); err != nil {
			return fmt.Errorf("failed to append row: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}
	return nil
}

func anySlice(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
