package models

import (
	"bytes"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// ID is the stable key of a catalog item. The observed API sends numbers,
// but the key is always compared as a string.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

func (id ID) MarshalJSON() ([]byte, error) {
	if id.IsNumeric() {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// IsNumeric reports whether the id is a plain decimal number.
func (id ID) IsNumeric() bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (id ID) String() string { return string(id) }

// Number is a float that may hold NaN for "not a number".
// NaN and infinities are written as JSON null.
type Number float64

// NaN returns the distinguished not-a-number value.
func NaN() Number { return Number(math.NaN()) }

func (n Number) Valid() bool {
	f := float64(n)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid() {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(float64(n), 'f', -1, 64)), nil
}

func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*n = NaN()
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*n = Number(f)
	return nil
}

// CatalogItem is the list shape returned by the collection endpoint.
type CatalogItem struct {
	ID       ID     `json:"id"`
	Title    string `json:"title"`
	Category string `json:"category,omitempty"`
	Image    string `json:"image,omitempty"`
	Slug     string `json:"slug,omitempty"` // may be absent; derive from Title
}

// DetailRecord is the detail shape after field normalisation.
type DetailRecord struct {
	CatalogItem

	Price          Number   `json:"price"`
	Stock          Number   `json:"stock"`
	Currency       string   `json:"currency,omitempty"`
	Modes          []string `json:"modes"`
	LanguagesAudio []string `json:"languagesAudio"`
	LanguagesText  []string `json:"languagesText"`
	Tags           []string `json:"tags,omitempty"`
	Platform       string   `json:"platform,omitempty"`
	ReleaseDate    string   `json:"releaseDate,omitempty"`
	Developer      string   `json:"developer,omitempty"`
	Publisher      string   `json:"publisher,omitempty"`
	Pegi           string   `json:"pegi,omitempty"`

	// Extra keeps every field the record carried that is not modelled above.
	Extra map[string]any `json:"-"`
}

// SelectionEntry is a snapshot taken when an item is favorited or selected
// for comparison. It is a value copy and never tracks the source record.
type SelectionEntry struct {
	ID       ID     `json:"id"`
	Title    string `json:"title"`
	Category string `json:"category,omitempty"`
	Image    string `json:"image,omitempty"`
	Slug     string `json:"slug,omitempty"`
}
