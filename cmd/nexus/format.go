package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

type table struct {
	headers []string
	rows    [][]string
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}

	return nil
}

func writeTable(w io.Writer, t table) {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = len(h)
	}

	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	printRow := func(cells []string) {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			w := 0
			if i < len(widths) {
				w = widths[i]
			}

			parts[i] = fmt.Sprintf("%-*s", w, cell)
		}

		fmt.Fprintln(w, strings.TrimRight(strings.Join(parts, "  "), " "))
	}

	printRow(t.headers)

	seps := make([]string, len(widths))
	for i, n := range widths {
		seps[i] = strings.Repeat("-", n)
	}

	printRow(seps)

	for _, row := range t.rows {
		printRow(row)
	}
}

// render writes v in the format chosen by --format. quiet lists the values
// printed one per line in quiet mode; tbl may be nil, in which case table
// mode falls back to JSON.
func render(w io.Writer, v any, quiet []string, tbl func() table) error {
	switch flagFmt {
	case "quiet":
		for _, q := range quiet {
			fmt.Fprintln(w, q)
		}

		return nil
	case "table":
		if tbl != nil {
			writeTable(w, tbl())

			return nil
		}

		return writeJSON(w, v)
	case "json", "":
		return writeJSON(w, v)
	default:
		return fmt.Errorf("unknown format %q (want json, table or quiet)", flagFmt)
	}
}

func fmtFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}

	return string(r[:n-1]) + "…"
}
