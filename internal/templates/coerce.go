package templates

import (
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/raphaelgruber/voc2ticket/internal/models"
)

// Coerce validates raw extracted values against the declared field types of tpl.
// The result follows template field order. Undeclared keys and values that do
// not fit their field type are dropped.
func Coerce(tpl *models.Template, raw map[string]any) models.Fields {
	var out models.Fields

	for _, f := range tpl.Fields {
		v, ok := raw[f.Key]
		if !ok || v == nil {
			continue
		}
		fv, err := coerceValue(f, v)
		if err != nil {
			slog.Debug("dropping field value", "template_id", tpl.ID, "field", f.Key, "error", err)
			continue
		}
		out.Set(f.Key, fv)
	}

	for k := range raw {
		if _, declared := tpl.Field(k); !declared {
			slog.Debug("dropping undeclared field", "template_id", tpl.ID, "field", k)
		}
	}
	return out
}

func coerceValue(f models.Field, v any) (models.FieldValue, error) {
	switch f.Type {
	case models.FieldNumber:
		return coerceNumber(v)
	case models.FieldDate:
		return coerceDate(v)
	case models.FieldSelect:
		s, err := asString(v)
		if err != nil {
			return models.FieldValue{}, err
		}
		s = strings.TrimSpace(s)
		if s != "" && len(f.Options) > 0 && !slices.Contains(f.Options, s) {
			return models.FieldValue{}, fmt.Errorf("%q is not one of the options", s)
		}
		return models.EnumValue(s), nil
	case models.FieldMultiSelect:
		return coerceList(f, v)
	default:
		s, err := asString(v)
		if err != nil {
			return models.FieldValue{}, err
		}
		return models.TextValue(s), nil
	}
}

func coerceNumber(v any) (models.FieldValue, error) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return models.FieldValue{}, fmt.Errorf("not a number: %q", n)
		}
		f = parsed
	default:
		return models.FieldValue{}, fmt.Errorf("not a number: %T", v)
	}
	// JSON has no encoding for NaN or infinities.
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return models.FieldValue{}, fmt.Errorf("not a finite number: %v", v)
	}
	return models.NumberValue(f), nil
}

func coerceDate(v any) (models.FieldValue, error) {
	s, ok := v.(string)
	if !ok {
		return models.FieldValue{}, fmt.Errorf("date must be a string, got %T", v)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return models.FieldValue{Kind: models.KindDate}, nil
	}
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		return models.FieldValue{}, fmt.Errorf("parse date: %w", err)
	}
	return models.DateValue(t), nil
}

func coerceList(f models.Field, v any) (models.FieldValue, error) {
	var items []string
	switch list := v.(type) {
	case []any:
		for _, item := range list {
			s, err := asString(item)
			if err != nil {
				return models.FieldValue{}, err
			}
			items = append(items, s)
		}
	case []string:
		items = list
	case string:
		for _, part := range strings.Split(list, ",") {
			items = append(items, part)
		}
	default:
		return models.FieldValue{}, fmt.Errorf("not a list: %T", v)
	}

	kept := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if len(f.Options) > 0 && !slices.Contains(f.Options, item) {
			continue
		}
		kept = append(kept, item)
	}
	return models.ListValue(kept...), nil
}

func asString(v any) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(s), nil
	default:
		return "", fmt.Errorf("not a string: %T", v)
	}
}
