package normalize

import (
	"encoding/base64"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"sort"
	"strings"
)

// functionLiteral matches JavaScript function literals (one level of nested
// braces) that sometimes leak into serialized table data.
var functionLiteral = regexp.MustCompile(`function\s*\w*\s*\([^)]*\)\s*\{(?:[^{}]|\{[^{}]*\})*\}`)

func emptyTable() Table {
	return Table{Columns: []string{}, Rows: []map[string]any{}}
}

// NormalizeTable converts table-like input into {columns, rows}.
//
// Accepted input:
//   - a JSON string of any of the shapes below
//   - an array of row objects
//   - a 2D array whose first row holds the headers
//   - an object with columns/rows or headers/data
//   - a single object, taken as one row
//
// Empty input (null, "", [] or an object with no rows) yields an empty
// table rather than an error.
func NormalizeTable(raw any) (Table, error) {
	var data []byte
	if rm, ok := raw.(json.RawMessage); ok {
		data = rm
	}

	v, err := generic(raw)
	if err != nil {
		return Table{}, failf(TypeTable, "%v", err)
	}

	if s, ok := v.(string); ok {
		s = strings.TrimSpace(functionLiteral.ReplaceAllString(s, "null"))
		if s == "" {
			return emptyTable(), nil
		}
		parsed, err := decodeJSON([]byte(s))
		if err != nil {
			return Table{}, failf(TypeTable, "table is not valid JSON: %v", err)
		}
		v, data = parsed, []byte(s)
	}

	return tableFromValue(v, data)
}

func tableFromValue(v any, data []byte) (Table, error) {
	switch x := v.(type) {
	case nil:
		return emptyTable(), nil
	case []any:
		return rowsToTable(x, nil, arrayObjectKeys(data)), nil
	case map[string]any:
		colsVal, hasCols := lookup(x, "columns", "headers")
		rowsVal, hasRows := lookup(x, "rows", "data")
		if !hasCols && !hasRows {
			var order []string
			if data != nil {
				order = arrayObjectKeys(append(append([]byte{'['}, data...), ']'))
			}
			return rowsToTable([]any{x}, nil, order), nil
		}

		rows, ok := rowsVal.([]any)
		if hasRows && !ok {
			return Table{}, failf(TypeTable, "rows must be an array, got %s", kindOf(rowsVal))
		}
		columns := columnNames(colsVal)
		var order []string
		if len(columns) == 0 && data != nil {
			order = arrayObjectKeys(rawField(data, "rows", "data"))
		}
		t := rowsToTable(rows, columns, order)
		if len(t.Columns) == 0 && len(columns) > 0 {
			t.Columns = columns
		}
		return t, nil
	default:
		return Table{}, failf(TypeTable, "unsupported table data: %s", kindOf(v))
	}
}

// rowsToTable builds a table from row values. columns, when set, names the
// cells of array rows; order, when set, fixes the column order of object rows.
func rowsToTable(rows []any, columns []string, order []string) Table {
	t := emptyTable()
	explicit := len(columns) > 0
	if explicit {
		t.Columns = append(t.Columns, columns...)
	}
	if len(rows) == 0 {
		return t
	}

	if !explicit {
		if header, ok := rows[0].([]any); ok {
			for _, h := range header {
				columns = append(columns, stringify(h))
			}
			rows = rows[1:]
			t.Columns = columns
		}
	}

	seen := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		seen[c] = true
	}
	var discovered []string

	for _, r := range rows {
		switch row := r.(type) {
		case []any:
			m := make(map[string]any, len(columns))
			for i, cell := range row {
				if i < len(columns) {
					m[columns[i]] = cell
				}
			}
			t.Rows = append(t.Rows, m)
		case map[string]any:
			keys := make([]string, 0, len(row))
			for k := range row {
				if !seen[k] {
					keys = append(keys, k)
				}
			}
			sort.Strings(keys)
			for _, k := range keys {
				seen[k] = true
				discovered = append(discovered, k)
			}
			t.Rows = append(t.Rows, row)
		default:
			if !seen["value"] {
				seen["value"] = true
				discovered = append(discovered, "value")
			}
			t.Rows = append(t.Rows, map[string]any{"value": row})
		}
	}

	// explicit columns are kept as given; keys outside them stay in the rows
	if len(discovered) > 0 && !explicit {
		t.Columns = append(t.Columns, orderColumns(discovered, order)...)
	}
	return t
}

// orderColumns sorts cols by their position in order; unknown names keep
// their relative position after the known ones.
func orderColumns(cols, order []string) []string {
	if len(order) == 0 {
		return cols
	}
	pos := make(map[string]int, len(order))
	for i, k := range order {
		pos[k] = i
	}
	out := append([]string(nil), cols...)
	sort.SliceStable(out, func(i, j int) bool {
		pi, iok := pos[out[i]]
		pj, jok := pos[out[j]]
		switch {
		case iok && jok:
			return pi < pj
		case iok:
			return true
		default:
			return false
		}
	})
	return out
}

// columnNames reads a columns/headers value: strings, or objects carrying
// title, name, key or dataIndex.
func columnNames(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	names := make([]string, 0, len(list))
	for _, c := range list {
		if m, ok := c.(map[string]any); ok {
			names = append(names, lookupString(m, "key", "dataIndex", "field", "name", "title"))
			continue
		}
		names = append(names, stringify(c))
	}
	return names
}

// NormalizeCSV parses CSV text, or a data URL carrying CSV, into the table
// shape. The first record holds the headers. Quoted fields may contain
// commas and "" escaped quotes.
func NormalizeCSV(raw any) (CSV, error) {
	v, err := generic(raw)
	if err != nil {
		return CSV{}, failf(TypeCSV, "%v", err)
	}
	s, ok := v.(string)
	if !ok {
		if v == nil {
			return CSV(emptyTable()), nil
		}
		return CSV{}, failf(TypeCSV, "csv must be a string, got %s", kindOf(v))
	}

	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		decoded, err := decodeDataURL(s)
		if err != nil {
			return CSV{}, failf(TypeCSV, "%v", err)
		}
		s = decoded
	}
	s = strings.TrimPrefix(s, "\ufeff")
	if strings.TrimSpace(s) == "" {
		return CSV(emptyTable()), nil
	}

	r := csv.NewReader(strings.NewReader(s))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	t := emptyTable()
	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return CSV(t), nil
		}
		return CSV{}, failf(TypeCSV, "invalid csv header: %v", err)
	}
	for _, h := range header {
		t.Columns = append(t.Columns, strings.TrimSpace(h))
	}

	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return CSV{}, failf(TypeCSV, "invalid csv: %v", err)
		}
		row := make(map[string]any, len(t.Columns))
		for i, col := range t.Columns {
			cell := ""
			if i < len(record) {
				cell = strings.TrimSpace(record[i])
			}
			row[col] = cell
		}
		t.Rows = append(t.Rows, row)
	}
	return CSV(t), nil
}

// decodeDataURL returns the text carried by a data: URL.
func decodeDataURL(s string) (string, error) {
	comma := strings.Index(s, ",")
	if comma < 0 {
		return "", errors.New("malformed data URL")
	}
	meta, body := s[:comma], s[comma+1:]
	if !strings.HasSuffix(meta, ";base64") {
		text, err := url.PathUnescape(body)
		if err != nil {
			return "", fmt.Errorf("malformed data URL: %w", err)
		}
		return text, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		decoded, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(body, "="))
		if err != nil {
			return "", fmt.Errorf("invalid base64 payload: %w", err)
		}
	}
	return string(decoded), nil
}
