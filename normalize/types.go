package normalize

import (
	"encoding/json"
	"strings"
)

// Type identifies the kind of an analysis result item.
//
// Type is a closed enumeration: [TypeChart], [TypeImage], [TypeTable],
// [TypeCSV], [TypeMetric], [TypeInsight] and [TypeFile]. Use [ParseType]
// to convert a wire tag.
type Type string

const (
	// TypeChart is a chart configuration object (ECharts-style).
	TypeChart Type = "chart"

	// TypeImage is an image carried as a data URL.
	TypeImage Type = "image"

	// TypeTable is tabular data with named columns.
	TypeTable Type = "table"

	// TypeCSV is tabular data delivered as CSV text.
	TypeCSV Type = "csv"

	// TypeMetric is a single headline number.
	TypeMetric Type = "metric"

	// TypeInsight is a short textual finding.
	TypeInsight Type = "insight"

	// TypeFile is a reference to a generated file.
	TypeFile Type = "file"
)

// Types returns every recognized [Type] in display order.
func Types() []Type {
	return []Type{TypeChart, TypeImage, TypeTable, TypeCSV, TypeMetric, TypeInsight, TypeFile}
}

// ParseType converts a wire tag into a [Type].
//
// Matching is case-insensitive. The legacy tag "echarts" maps to [TypeChart].
// Returns false for anything else.
func ParseType(s string) (Type, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "chart", "echarts":
		return TypeChart, true
	case "image":
		return TypeImage, true
	case "table":
		return TypeTable, true
	case "csv":
		return TypeCSV, true
	case "metric":
		return TypeMetric, true
	case "insight":
		return TypeInsight, true
	case "file":
		return TypeFile, true
	default:
		return "", false
	}
}

// String returns the wire tag.
func (t Type) String() string {
	return string(t)
}

// Valid reports whether t is one of the recognized types.
func (t Type) Valid() bool {
	switch t {
	case TypeChart, TypeImage, TypeTable, TypeCSV, TypeMetric, TypeInsight, TypeFile:
		return true
	default:
		return false
	}
}

// Payload is the normalized data of one result item.
//
// Payload is a sealed union: the only implementations are [Chart], [Image],
// [Table], [CSV], [Metric], [Insight] and [File]. Callers type-switch on the
// concrete value.
type Payload interface {
	// Type returns the variant tag.
	Type() Type

	// Clone returns a deep copy that shares no mutable state.
	Clone() Payload

	sealed()
}

// Chart holds a chart configuration object.
//
// Unknown or partial configurations are kept as-is; see [IsValidChartConfig]
// for a diagnostic check.
type Chart struct {
	Config map[string]any
}

func (Chart) Type() Type { return TypeChart }
func (Chart) sealed()    {}

// Clone implements [Payload].
func (c Chart) Clone() Payload {
	cfg, _ := cloneValue(c.Config).(map[string]any)
	return Chart{Config: cfg}
}

// MarshalJSON encodes the chart as its bare config object.
func (c Chart) MarshalJSON() ([]byte, error) {
	if c.Config == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(c.Config)
}

// Image holds an embedded image as a data URL.
type Image struct {
	// URL is always of the form data:{mime};base64,{payload}.
	URL string

	// MIMEType is the media type taken from (or written into) URL.
	MIMEType string
}

func (Image) Type() Type { return TypeImage }
func (Image) sealed()    {}

// Clone implements [Payload].
func (i Image) Clone() Payload { return i }

// MarshalJSON encodes the image as its data URL string.
func (i Image) MarshalJSON() ([]byte, error) {
	return json.Marshal(i.URL)
}

// Table is the canonical tabular shape shared by tables and CSV.
type Table struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

func (Table) Type() Type { return TypeTable }
func (Table) sealed()    {}

// Clone implements [Payload].
func (t Table) Clone() Payload {
	return Table(cloneTable(t))
}

// CSV has the same shape as [Table] but is tagged [TypeCSV].
type CSV Table

func (CSV) Type() Type { return TypeCSV }
func (CSV) sealed()    {}

// Clone implements [Payload].
func (c CSV) Clone() Payload {
	return CSV(cloneTable(Table(c)))
}

// Metric is a single headline value.
type Metric struct {
	Title  string `json:"title"`
	Value  string `json:"value"`
	Change string `json:"change,omitempty"`
	Unit   string `json:"unit,omitempty"`
}

func (Metric) Type() Type { return TypeMetric }
func (Metric) sealed()    {}

// Clone implements [Payload].
func (m Metric) Clone() Payload { return m }

// Insight is a short textual finding.
type Insight struct {
	Text         string `json:"text"`
	Icon         string `json:"icon"`
	DataSourceID string `json:"dataSourceId,omitempty"`
	SourceName   string `json:"sourceName,omitempty"`
}

func (Insight) Type() Type { return TypeInsight }
func (Insight) sealed()    {}

// Clone implements [Payload].
func (i Insight) Clone() Payload { return i }

// File references a file produced by the analysis.
type File struct {
	FileName string `json:"fileName"`
	FilePath string `json:"filePath"`
	FileType string `json:"fileType"`
	Size     int64  `json:"size,omitempty"`
	Preview  string `json:"preview,omitempty"`
}

func (File) Type() Type { return TypeFile }
func (File) sealed()    {}

// Clone implements [Payload].
func (f File) Clone() Payload { return f }

func cloneTable(t Table) Table {
	out := Table{
		Columns: append([]string{}, t.Columns...),
		Rows:    make([]map[string]any, len(t.Rows)),
	}
	for i, row := range t.Rows {
		out.Rows[i], _ = cloneValue(row).(map[string]any)
	}
	return out
}

// cloneValue deep-copies JSON-shaped values. Other values are returned as-is.
func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		if x == nil {
			return map[string]any(nil)
		}
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = cloneValue(val)
		}
		return out
	case []any:
		if x == nil {
			return []any(nil)
		}
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = cloneValue(val)
		}
		return out
	default:
		return v
	}
}
