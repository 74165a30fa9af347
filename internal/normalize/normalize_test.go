package normalize

import (
	"math"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gamedex/pkg/models"
)

func TestToNumber(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want float64
		nan  bool
	}{
		{name: "float", in: 19.99, want: 19.99},
		{name: "int", in: 3, want: 3},
		{name: "comma decimal", in: "19,99", want: 19.99},
		{name: "dot decimal", in: " 5.5 ", want: 5.5},
		{name: "garbage", in: "abc", nan: true},
		{name: "empty", in: "", nan: true},
		{name: "infinity", in: "Inf", nan: true},
		{name: "hex float", in: "0x1p4", nan: true},
		{name: "signed hex", in: "-0X10", nan: true},
		{name: "hex json number", in: json.Number("0x10"), nan: true},
		{name: "leading zero", in: "010", want: 10},
		{name: "nil", in: nil, nan: true},
		{name: "bool", in: true, nan: true},
		{name: "two commas", in: "1,234,5", nan: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToNumber(tt.in)
			if tt.nan {
				assert.True(t, math.IsNaN(got), "expected NaN, got %v", got)
				return
			}
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestToStringSequence(t *testing.T) {
	assert.Equal(t, []string{"it", "en"}, ToStringSequence("it, en"))
	assert.Equal(t, []string{"a", "b"}, ToStringSequence(" a ,, b ,"))
	assert.Equal(t, []string{}, ToStringSequence(nil))
	assert.Equal(t, []string{}, ToStringSequence(42.0))
	assert.Equal(t, []string{"x", "y"}, ToStringSequence([]string{"x", "y"}))
	assert.Equal(t, []string{"x", "2"}, ToStringSequence([]any{"x", 2.0}))
	assert.Equal(t, []string{}, ToStringSequence(""))
}

func TestRecordNil(t *testing.T) {
	assert.Nil(t, Record(nil))
	assert.Nil(t, Detail(nil))
}

func TestRecordLeavesOtherFieldsUntouched(t *testing.T) {
	raw := map[string]any{
		"id":        42.0,
		"title":     "Halo",
		"price":     "59,90",
		"modes":     "Single player, Online",
		"tags":      []any{"fps"},
		"publisher": "Xbox",
	}
	got := Record(raw)

	assert.InDelta(t, 59.90, got["price"], 1e-9)
	assert.Equal(t, []string{"Single player", "Online"}, got["modes"])
	assert.Equal(t, []any{"fps"}, got["tags"], "array tags are kept as they are")
	assert.Equal(t, "Xbox", got["publisher"])
	assert.True(t, math.IsNaN(got["stock"].(float64)))
	assert.Equal(t, []string{}, got["languagesAudio"])

	// the input is not mutated
	assert.Equal(t, "59,90", raw["price"])
}

func TestRecordSplitsStringTags(t *testing.T) {
	got := Record(map[string]any{"tags": "rpg, open world"})
	assert.Equal(t, []string{"rpg", "open world"}, got["tags"])
}

func TestDetail(t *testing.T) {
	raw := map[string]any{
		"id":             7.0,
		"title":          "Elden Ring",
		"category":       "RPG",
		"price":          "49,99",
		"stock":          12.0,
		"currency":       "EUR",
		"languagesAudio": "en, ja",
		"languagesText":  []any{"it", "en"},
		"pegi":           16.0,
		"platform":       []any{"PS5", "PC"},
		"rating":         9.5,
	}
	d := Detail(raw)
	require.NotNil(t, d)

	assert.Equal(t, models.ID("7"), d.ID)
	assert.Equal(t, "Elden Ring", d.Title)
	assert.InDelta(t, 49.99, float64(d.Price), 1e-9)
	assert.InDelta(t, 12, float64(d.Stock), 1e-9)
	assert.Equal(t, []string{"en", "ja"}, d.LanguagesAudio)
	assert.Equal(t, []string{"it", "en"}, d.LanguagesText)
	assert.Equal(t, []string{}, d.Modes)
	assert.Equal(t, "16", d.Pegi)
	assert.Equal(t, "PS5, PC", d.Platform)
	assert.Nil(t, d.Tags)
	assert.Equal(t, map[string]any{"rating": 9.5}, d.Extra)
}

func TestFromItem(t *testing.T) {
	d := FromItem(models.CatalogItem{ID: "1", Title: "Halo"})
	assert.Equal(t, "Halo", d.Title)
	assert.False(t, d.Price.Valid())
}
