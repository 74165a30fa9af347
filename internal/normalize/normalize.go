// Package normalize coerces the loosely typed fields of catalog payloads
// into canonical numeric and list forms. It runs once, where records enter
// the client; code downstream works with the typed models only.
package normalize

import (
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"gamedex/pkg/models"
)

// ToNumber returns numbers unchanged and parses strings after turning the
// first comma into a decimal point. Anything else yields NaN.
func ToNumber(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case int32:
		return float64(n)
	case json.Number:
		return parseFloat(n.String())
	case models.Number:
		return float64(n)
	case string:
		return parseFloat(strings.Replace(strings.TrimSpace(n), ",", ".", 1))
	default:
		return math.NaN()
	}
}

func parseFloat(s string) float64 {
	if s == "" || isHex(s) {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) {
		return math.NaN()
	}
	return f
}

// isHex catches the hex float syntax strconv accepts but catalog data
// never means.
func isHex(s string) bool {
	s = strings.TrimLeft(s, "+-")
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

// ToStringSequence returns slices unchanged (elements rendered as text) and
// splits strings on commas, trimming parts and dropping empty ones.
// Anything else yields an empty slice.
func ToStringSequence(v any) []string {
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, e := range s {
			out = append(out, Text(e))
		}
		return out
	case string:
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	default:
		return []string{}
	}
}

// Text renders a scalar JSON value as a string. nil becomes "".
func Text(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case json.Number:
		return s.String()
	case bool:
		return strconv.FormatBool(s)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	default:
		b, err := json.Marshal(s)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

var (
	numericFields  = []string{"price", "stock"}
	sequenceFields = []string{"modes", "languagesAudio", "languagesText"}
)

// Record returns a copy of raw with price and stock coerced to numbers and
// modes and the language lists coerced to string slices. tags is split only
// when it arrives as a string. Other fields are copied untouched. A nil
// record is returned as is.
func Record(raw map[string]any) map[string]any {
	if raw == nil {
		return nil
	}
	out := make(map[string]any, len(raw)+len(numericFields)+len(sequenceFields))
	for k, v := range raw {
		out[k] = v
	}
	for _, k := range numericFields {
		out[k] = ToNumber(raw[k])
	}
	for _, k := range sequenceFields {
		out[k] = ToStringSequence(raw[k])
	}
	if tags, ok := raw["tags"].(string); ok {
		out["tags"] = ToStringSequence(tags)
	}
	return out
}

var knownFields = map[string]struct{}{
	"id": {}, "title": {}, "category": {}, "image": {}, "slug": {},
	"price": {}, "stock": {}, "currency": {}, "modes": {}, "languagesAudio": {},
	"languagesText": {}, "tags": {}, "platform": {}, "releaseDate": {},
	"developer": {}, "publisher": {}, "pegi": {},
}

// Detail normalises raw and maps it onto a DetailRecord. It returns nil for
// a nil record.
func Detail(raw map[string]any) *models.DetailRecord {
	rec := Record(raw)
	if rec == nil {
		return nil
	}

	d := &models.DetailRecord{
		CatalogItem: models.CatalogItem{
			ID:       models.ID(strings.TrimSpace(Text(rec["id"]))),
			Title:    Text(rec["title"]),
			Category: Text(rec["category"]),
			Image:    Text(rec["image"]),
			Slug:     Text(rec["slug"]),
		},
		Price:          models.Number(rec["price"].(float64)),
		Stock:          models.Number(rec["stock"].(float64)),
		Currency:       Text(rec["currency"]),
		Modes:          rec["modes"].([]string),
		LanguagesAudio: rec["languagesAudio"].([]string),
		LanguagesText:  rec["languagesText"].([]string),
		Platform:       platformText(rec["platform"]),
		ReleaseDate:    Text(rec["releaseDate"]),
		Developer:      Text(rec["developer"]),
		Publisher:      Text(rec["publisher"]),
		Pegi:           Text(rec["pegi"]),
	}
	if tags, ok := rec["tags"]; ok && tags != nil {
		d.Tags = ToStringSequence(tags)
	}

	for k, v := range rec {
		if _, known := knownFields[k]; known {
			continue
		}
		if d.Extra == nil {
			d.Extra = make(map[string]any)
		}
		d.Extra[k] = v
	}
	return d
}

// FromItem builds a minimal DetailRecord from a list item, for when only the
// list shape is available.
func FromItem(item models.CatalogItem) *models.DetailRecord {
	return &models.DetailRecord{
		CatalogItem:    item,
		Price:          models.NaN(),
		Stock:          models.NaN(),
		Modes:          []string{},
		LanguagesAudio: []string{},
		LanguagesText:  []string{},
	}
}

// platform is sometimes sent as a list.
func platformText(v any) string {
	if list, ok := v.([]any); ok {
		return strings.Join(ToStringSequence(list), ", ")
	}
	return Text(v)
}
