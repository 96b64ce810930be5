package normalize

import (
	"sort"
	"strings"
)

// chartFieldWeights scores top-level fields that are characteristic of a
// chart configuration. Core layout fields weigh the most.
var chartFieldWeights = map[string]int{
	"series": 3,
	"xAxis":  3,
	"yAxis":  3,

	"title":     2,
	"legend":    2,
	"tooltip":   2,
	"grid":      2,
	"dataZoom":  2,
	"visualMap": 2,

	"toolbox":           1,
	"polar":             1,
	"radar":             1,
	"geo":               1,
	"parallel":          1,
	"timeline":          1,
	"graphic":           1,
	"calendar":          1,
	"dataset":           1,
	"aria":              1,
	"axisPointer":       1,
	"brush":             1,
	"color":             1,
	"backgroundColor":   1,
	"textStyle":         1,
	"animation":         1,
	"animationDuration": 1,
	"animationEasing":   1,
}

// structuralChartFields are the fields whose presence makes a config
// renderable on its own.
var structuralChartFields = []string{
	"series", "xAxis", "yAxis", "legend", "dataset", "radar", "polar", "geo", "parallel", "calendar",
}

// ChartScoreThreshold is the minimum [ChartScore.Score] for a config to be
// considered a chart.
const ChartScoreThreshold = 4

// ChartScore is the result of [ScoreChartConfig].
type ChartScore struct {
	Score         int
	MatchedFields []string
}

// IsChart reports whether the score reaches [ChartScoreThreshold].
func (s ChartScore) IsChart() bool {
	return s.Score >= ChartScoreThreshold
}

// NormalizeChart accepts a config object or a JSON-encoded object string.
//
// No further structure is enforced: partial configs pass through unchanged.
func NormalizeChart(raw any) (Chart, error) {
	v, err := generic(raw)
	if err != nil {
		return Chart{}, failf(TypeChart, "%v", err)
	}

	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if s == "" {
			return Chart{}, failf(TypeChart, "empty chart config")
		}
		parsed, err := decodeJSON([]byte(s))
		if err != nil {
			return Chart{}, failf(TypeChart, "config is not valid JSON: %v", err)
		}
		v = parsed
	}

	cfg, ok := v.(map[string]any)
	if !ok {
		return Chart{}, failf(TypeChart, "config must be an object, got %s", kindOf(v))
	}
	if cfg == nil {
		cfg = map[string]any{}
	}
	return Chart{Config: cfg}, nil
}

// IsValidChartConfig reports whether cfg carries any recognized structural
// field (series, axes, legend, dataset and similar).
//
// It is diagnostic only; [NormalizeChart] does not require it.
func IsValidChartConfig(cfg map[string]any) bool {
	for _, f := range structuralChartFields {
		if _, ok := cfg[f]; ok {
			return true
		}
	}
	return false
}

// ScoreChartConfig weighs how strongly cfg looks like a chart config.
//
// Each characteristic top-level field adds its weight, and a series entry
// with at least two common series fields adds a bonus of 2.
func ScoreChartConfig(cfg map[string]any) ChartScore {
	var score ChartScore
	for field, weight := range chartFieldWeights {
		if _, ok := cfg[field]; ok {
			score.Score += weight
			score.MatchedFields = append(score.MatchedFields, field)
		}
	}
	sort.Strings(score.MatchedFields)

	if series, ok := cfg["series"]; ok && validSeries(series) {
		score.Score += 2
	}
	return score
}

func validSeries(v any) bool {
	switch s := v.(type) {
	case []any:
		for _, entry := range s {
			if m, ok := entry.(map[string]any); ok && hasSeriesFields(m) {
				return true
			}
		}
	case map[string]any:
		return hasSeriesFields(s)
	}
	return false
}

func hasSeriesFields(m map[string]any) bool {
	matches := 0
	for _, f := range []string{"type", "data", "name", "stack", "areaStyle", "itemStyle", "label", "emphasis"} {
		if _, ok := m[f]; ok {
			matches++
		}
	}
	return matches >= 2
}
