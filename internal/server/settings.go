package server

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/juev/envelope/internal/config"
	"github.com/juev/envelope/internal/include"
)

// requestSettings are the parameters of one report request layered over
// the server configuration.
type requestSettings struct {
	File     string
	Content  string
	Currency string
	Start    time.Time
	End      time.Time
	Today    time.Time
	Node     string
	Years    []int
	Limits   include.Limits
}

func defaultRequestSettings(cfg config.Config) requestSettings {
	return requestSettings{
		File:     cfg.Journal,
		Currency: cfg.Currency,
		Limits:   cfg.IncludeLimits(),
	}
}

func normalizeRequestSettings(settings requestSettings) requestSettings {
	defaults := include.DefaultLimits()
	if settings.Limits.MaxFileSizeBytes <= 0 {
		settings.Limits.MaxFileSizeBytes = defaults.MaxFileSizeBytes
	}
	if settings.Limits.MaxIncludeDepth <= 0 {
		settings.Limits.MaxIncludeDepth = defaults.MaxIncludeDepth
	}
	settings.Currency = strings.TrimSpace(settings.Currency)
	settings.Years = uniqueYears(settings.Years)
	return settings
}

// parseSettingsFromRaw applies request parameters to base. Parameters may
// be nested under an "envelope" key, given as nested maps or as flat
// dotted keys.
func parseSettingsFromRaw(base requestSettings, raw interface{}) (requestSettings, error) {
	settings := base
	rawMap, ok := raw.(map[string]interface{})
	if !ok {
		return normalizeRequestSettings(settings), nil
	}
	if nested, ok := rawMap["envelope"]; ok {
		return parseSettingsFromRaw(settings, nested)
	}
	settings, err := applySettingsMap(settings, rawMap)
	if err != nil {
		return base, err
	}
	return normalizeRequestSettings(settings), nil
}

func applySettingsMap(settings requestSettings, raw map[string]interface{}) (requestSettings, error) {
	if value, ok := toString(raw["file"]); ok {
		settings.File = value
	}
	if value, ok := toString(raw["content"]); ok {
		settings.Content = value
	}
	if value, ok := toString(raw["currency"]); ok {
		settings.Currency = value
	}
	if value, ok := toString(raw["node"]); ok {
		settings.Node = value
	}

	for key, target := range map[string]*time.Time{
		"start": &settings.Start,
		"end":   &settings.End,
		"today": &settings.Today,
	} {
		value, ok := toString(raw[key])
		if !ok || value == "" {
			continue
		}
		parsed, err := parseDate(value)
		if err != nil {
			return settings, fmt.Errorf("%s: %w", key, err)
		}
		*target = parsed
	}

	if years, present := raw["years"]; present {
		parsed, err := toYears(years)
		if err != nil {
			return settings, err
		}
		settings.Years = parsed
	}

	if limitsRaw, ok := raw["limits"].(map[string]interface{}); ok {
		if value, ok := toInt64(limitsRaw["max_file_size_bytes"]); ok {
			settings.Limits.MaxFileSizeBytes = value
		}
		if value, ok := toInt64(limitsRaw["maxFileSizeBytes"]); ok {
			settings.Limits.MaxFileSizeBytes = value
		}
		if value, ok := toInt(limitsRaw["max_include_depth"]); ok {
			settings.Limits.MaxIncludeDepth = value
		}
		if value, ok := toInt(limitsRaw["maxIncludeDepth"]); ok {
			settings.Limits.MaxIncludeDepth = value
		}
	}
	if value, ok := toInt64(raw["limits.max_file_size_bytes"]); ok {
		settings.Limits.MaxFileSizeBytes = value
	}
	if value, ok := toInt64(raw["limits.maxFileSizeBytes"]); ok {
		settings.Limits.MaxFileSizeBytes = value
	}
	if value, ok := toInt(raw["limits.max_include_depth"]); ok {
		settings.Limits.MaxIncludeDepth = value
	}
	if value, ok := toInt(raw["limits.maxIncludeDepth"]); ok {
		settings.Limits.MaxIncludeDepth = value
	}

	return settings, nil
}

// parseDate accepts YYYY-MM-DD and YYYY-MM.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.DateOnly, "2006-01"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

func toYears(value interface{}) ([]int, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []interface{}:
		years := make([]int, 0, len(v))
		for _, item := range v {
			year, ok := toInt(item)
			if !ok {
				return nil, fmt.Errorf("years: invalid year %v", item)
			}
			years = append(years, year)
		}
		return years, nil
	default:
		year, ok := toInt(v)
		if !ok {
			return nil, fmt.Errorf("years: invalid year %v", v)
		}
		return []int{year}, nil
	}
}

func uniqueYears(years []int) []int {
	if len(years) == 0 {
		return nil
	}
	seen := make(map[int]bool, len(years))
	out := make([]int, 0, len(years))
	for _, y := range years {
		if !seen[y] {
			seen[y] = true
			out = append(out, y)
		}
	}
	sort.Ints(out)
	return out
}

func toString(value interface{}) (string, bool) {
	v, ok := value.(string)
	return v, ok
}

func toInt(value interface{}) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case float32:
		return int(v), true
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return 0, false
		}
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return 0, false
		}
		return parsed, true
	}
	return 0, false
}

func toInt64(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		return int64(v), true
	case float32:
		return int64(v), true
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return 0, false
		}
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	}
	return 0, false
}
