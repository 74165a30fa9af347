package slug

import (
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
)

func TestMake(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Eldén  Ring!", "elden-ring"},
		{"", ""},
		{"   ", ""},
		{"Halo Infinite", "halo-infinite"},
		{"--Halo--", "halo"},
		{"Pokémon: Écarlate & Violet", "pokemon-ecarlate-violet"},
		{"FIFA 24", "fifa-24"},
		{"The Legend of Zelda: Tears of the Kingdom", "the-legend-of-zelda-tears-of-the-kingdom"},
		{"!!!", ""},
		{"Ünïcödé", "unicode"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Make(tt.in))
		})
	}
}

func TestMakeCollapsesAccentsCaseAndPunctuation(t *testing.T) {
	assert.Equal(t, Make("Eldén Ring"), Make("ELDEN   ring?!"))
}

func TestMakeIdempotent(t *testing.T) {
	f := func(s string) bool {
		once := Make(s)
		return Make(once) == once
	}
	assert.NoError(t, quick.Check(f, &quick.Config{MaxCount: 2000}))
}

func TestMatches(t *testing.T) {
	assert.True(t, Matches("Halo Infinite", "halo-infinite"))
	assert.False(t, Matches("Halo Infinite", "halo"))
	assert.False(t, Matches("", ""))
}
