package templates

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/raphaelgruber/voc2ticket/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func coerceTemplate() *models.Template {
	return &models.Template{
		ID: "bug",
		Fields: []models.Field{
			{Key: "summary", Type: models.FieldString},
			{Key: "description", Type: models.FieldText},
			{Key: "priority", Type: models.FieldSelect, Options: []string{"High", "Medium", "Low"}},
			{Key: "components", Type: models.FieldMultiSelect, Options: []string{"Web", "iOS"}},
			{Key: "amount", Type: models.FieldNumber},
			{Key: "occurred_on", Type: models.FieldDate},
		},
	}
}

func TestCoerceFollowsTemplateOrder(t *testing.T) {
	fields := Coerce(coerceTemplate(), map[string]any{
		"occurred_on": "2026-03-04",
		"priority":    "High",
		"summary":     "Login fails",
	})

	assert.Equal(t, []string{"summary", "priority", "occurred_on"}, fields.Keys())
}

func TestCoerceValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		raw  any
		want models.FieldValue
		drop bool
	}{
		{name: "text", key: "summary", raw: "Login fails", want: models.TextValue("Login fails")},
		{name: "empty text kept", key: "description", raw: "", want: models.TextValue("")},
		{name: "enum in options", key: "priority", raw: "Low", want: models.EnumValue("Low")},
		{name: "enum outside options", key: "priority", raw: "Urgent", drop: true},
		{name: "number", key: "amount", raw: 12.5, want: models.NumberValue(12.5)},
		{name: "numeric string", key: "amount", raw: " 40 ", want: models.NumberValue(40)},
		{name: "non numeric", key: "amount", raw: "lots", drop: true},
		{name: "nan string", key: "amount", raw: "NaN", drop: true},
		{name: "infinity string", key: "amount", raw: "Infinity", drop: true},
		{name: "negative inf string", key: "amount", raw: "-Inf", drop: true},
		{name: "nan float", key: "amount", raw: math.NaN(), drop: true},
		{name: "inf float", key: "amount", raw: math.Inf(1), drop: true},
		{name: "date", key: "occurred_on", raw: "2026-03-04", want: models.DateValue(time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC))},
		{name: "bad date", key: "occurred_on", raw: "yesterday", drop: true},
		{name: "list filtered", key: "components", raw: []any{"Web", "Desktop", "iOS"}, want: models.ListValue("Web", "iOS")},
		{name: "list from csv", key: "components", raw: "Web, iOS", want: models.ListValue("Web", "iOS")},
		{name: "list wrong type", key: "components", raw: map[string]any{}, drop: true},
		{name: "text from object", key: "summary", raw: map[string]any{"a": 1}, drop: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := Coerce(coerceTemplate(), map[string]any{tt.key: tt.raw})
			got, ok := fields.Get(tt.key)
			if tt.drop {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCoerceDropsUndeclaredAndNull(t *testing.T) {
	fields := Coerce(coerceTemplate(), map[string]any{
		"summary":  "x",
		"assignee": "bob",
		"priority": nil,
	})

	assert.Equal(t, []string{"summary"}, fields.Keys())
}

func TestCoercedFieldsAlwaysMarshal(t *testing.T) {
	fields := Coerce(coerceTemplate(), map[string]any{
		"summary": "Refund missing",
		"amount":  "NaN",
	})

	data, err := json.Marshal(fields)
	require.NoError(t, err)
	assert.JSONEq(t, `{"summary":"Refund missing"}`, string(data))
}
