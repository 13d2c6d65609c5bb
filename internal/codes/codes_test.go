package codes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func flagOf(t *testing.T, iso string) string {
	t.Helper()
	c, ok := CountryByISO(iso)
	require.True(t, ok, iso)
	return c.Flag()
}

func TestCountryFlag(t *testing.T) {
	assert.Equal(t, "\U0001F1E8\U0001F1ED", flagOf(t, "CH"))
	assert.Equal(t, "\U0001F1E9\U0001F1EA", Germany.Flag())
	assert.Equal(t, "XS", byISO["CH"].XPrefix())
	assert.Equal(t, "ZS", byISO["CH"].ZPrefix())
	assert.Equal(t, "CH:", byISO["CH"].ColonPrefix())
}

func TestClassify(t *testing.T) {
	ch := flagOf(t, "CH")

	tests := []struct {
		name    string
		code    string
		iso     string
		rep     Representation
		unknown bool
	}{
		{"bare german code", "FF", "DE", Bare, false},
		{"x pseudo prefix", "XSZH", "CH", RIL100Pseudo, false},
		{"z pseudo prefix", "ZAWH", "AT", RIL100Pseudo, false},
		{"flag prefix", ch + "ZUE", "CH", FlagPrefix, false},
		{"colon prefix", "CH:ZUE", "CH", ColonPrefix, false},
		{"colon prefix via tld", "uk:EUS", "GB", ColonPrefix, false},
		{"numeric uic", "8503000", "CH", NumericUIC, false},
		{"numeric uic with unknown country", "9903000", "", NumericUIC, true},
		{"unknown flag", "\U0001F1E6\U0001F1E6X", "", FlagPrefix, true},
		{"unknown colon prefix", "QQ:ABC", "", ColonPrefix, true},
		{"leading colon", ":ABC", "", Unrecognized, false},
		{"empty", "", "", Unrecognized, false},
		{"short number is bare", "123", "DE", Bare, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			country, rep, err := Classify(tt.code)
			assert.Equal(t, tt.rep, rep)
			assert.Equal(t, tt.iso, country.ISO3166)
			if tt.unknown {
				assert.ErrorIs(t, err, ErrUnknownCountry)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLocal(t *testing.T) {
	ch := flagOf(t, "CH")
	assert.Equal(t, "ZUE", Local(ch+"ZUE"))
	assert.Equal(t, "ZUE", Local("CH:ZUE"))
	assert.Equal(t, "ZH", Local("XSZH"))
	assert.Equal(t, "FF", Local("FF"))
	assert.Equal(t, "8503000", Local("8503000"))
}

func TestRank(t *testing.T) {
	ch := flagOf(t, "CH")

	tests := []struct {
		code     string
		expected int
	}{
		{"FF", RankLocal},
		{"XSZH", RankLocal},
		{ch + "ZUE", RankFlagLocal},
		{ch + "8503000", RankFlagUIC},
		{ch + "O123456", RankFlagOpaque},
		{"8503000", RankUIC},
		{"CH:ZUE", RankColon},
		{":ZUE", RankUnknown},
		{"\U0001F1E6\U0001F1E6X", RankFlagLocal},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, Rank(tt.code))
		})
	}
}

func TestExpand(t *testing.T) {
	ch := flagOf(t, "CH")

	tests := []struct {
		name     string
		code     string
		expected []string
	}{
		{"plain", "FF", []string{"FF"}},
		{"alias group", "EMSTP", []string{"EMSTP", "EMST"}},
		{"alias group reversed", "EMST", []string{"EMST", "EMSTP"}},
		{"double space and prefix", "UE  P", []string{"UE  P", "UE P", "UE"}},
		{"single space", "KK W", []string{"KK W", "KK"}},
		{"numeric uic", "8503000", []string{"8503000", ch + "8503000"}},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Expand(tt.code))
		})
	}
}

func TestCodeSet(t *testing.T) {
	ch := flagOf(t, "CH")

	t.Run("sorted by rank with expansion", func(t *testing.T) {
		set := NewCodeSet("8503000", "CH:ZUE", ch+"ZUE", "XSZH")
		assert.Equal(t, CodeSet{"XSZH", ch + "ZUE", ch + "8503000", "8503000", "CH:ZUE"}, set)
		assert.Equal(t, "XSZH", set.First())
	})

	t.Run("first code has minimal rank", func(t *testing.T) {
		inputs := [][]string{
			{"CH:ZUE", "8503000"},
			{ch + "O1", ch + "8503000", "8503000"},
			{"EMSTP", "DE:EMST"},
			{":broken", "CH:X"},
		}
		for _, in := range inputs {
			set := NewCodeSet(in...)
			for _, code := range set {
				assert.LessOrEqual(t, Rank(set.First()), Rank(code))
			}
		}
	})

	t.Run("no duplicates", func(t *testing.T) {
		set := NewCodeSet("EMSTP", "EMST", "EMSTP")
		assert.Equal(t, CodeSet{"EMST", "EMSTP"}, set)
	})

	t.Run("union across rank bands is order independent", func(t *testing.T) {
		a := NewCodeSet("CH:ZUE")
		b := NewCodeSet(ch+"ZUE", "8503000")
		assert.Equal(t, a.Union(b).First(), b.Union(a).First())
		assert.Equal(t, ch+"ZUE", a.Union(b).First())
	})

	t.Run("equal ranks are ordered by length then lexically", func(t *testing.T) {
		tests := []struct {
			a, b     []string
			expected CodeSet
		}{
			{[]string{"UE P"}, []string{"UE"}, CodeSet{"UE", "UE P"}},
			{[]string{"FF"}, []string{"XSFF"}, CodeSet{"FF", "XSFF"}},
			{[]string{"FFU"}, []string{"FF"}, CodeSet{"FF", "FFU"}},
			{[]string{"AB"}, []string{"AA"}, CodeSet{"AA", "AB"}},
		}
		for _, tt := range tests {
			a, b := NewCodeSet(tt.a...), NewCodeSet(tt.b...)
			assert.Equal(t, tt.expected, a.Union(b))
			assert.Equal(t, tt.expected, b.Union(a))
			assert.Equal(t, a.Union(b).First(), b.Union(a).First())
		}
		assert.Equal(t, NewCodeSet("UE", "UE P"), NewCodeSet("UE P"))
	})

	t.Run("contains and intersects", func(t *testing.T) {
		set := NewCodeSet("8503000")
		assert.True(t, set.Contains(ch+"8503000"))
		assert.True(t, set.Intersects(CodeSet{"X", "8503000"}))
		assert.False(t, set.Intersects(CodeSet{"X"}))
		assert.Equal(t, "", CodeSet{}.First())
	})
}

func TestParseInput(t *testing.T) {
	ch := flagOf(t, "CH")

	t.Run("country switch applies to bare codes", func(t *testing.T) {
		sets, err := ParseInput([]string{"ff,XS zue", "X-", "mh"}, false, nil)
		require.NoError(t, err)
		assert.Equal(t, []CodeSet{{"FF"}, {ch + "ZUE"}, {"MH"}}, sets)
	})

	t.Run("equivalent codes", func(t *testing.T) {
		sets, err := ParseInput([]string{"CH:", "BS=8500010"}, true, nil)
		require.NoError(t, err)
		require.Len(t, sets, 1)
		assert.Equal(t, ch+"BS", sets[0].First())
		assert.True(t, sets[0].Contains("8500010"))
	})

	t.Run("explicit prefixes are kept", func(t *testing.T) {
		sets, err := ParseInput([]string{"XSZH", "CH:ZUE", ch, "ZUE"}, true, nil)
		require.NoError(t, err)
		assert.Equal(t, []CodeSet{{"XSZH"}, {"CH:ZUE"}, {ch + "ZUE"}}, sets)
	})

	t.Run("unknown country is kept and logged", func(t *testing.T) {
		core, logs := observer.New(zap.WarnLevel)
		sets, err := ParseInput([]string{"FF", "QQ:ABC", "MH"}, true, zap.New(core))
		require.NoError(t, err)
		assert.Equal(t, []CodeSet{{"FF"}, {"QQ:ABC"}, {"MH"}}, sets)

		country, _, err := Classify(sets[1].First())
		assert.ErrorIs(t, err, ErrUnknownCountry)
		assert.Equal(t, Unknown, country)
		assert.Equal(t, 1, logs.FilterMessage("unknown country in station code").Len())
	})

	t.Run("lone unknown prefix keeps the current country", func(t *testing.T) {
		core, logs := observer.New(zap.WarnLevel)
		sets, err := ParseInput([]string{"CH:", "QQ:", "ZUE"}, true, zap.New(core))
		require.NoError(t, err)
		assert.Equal(t, []CodeSet{{ch + "ZUE"}}, sets)
		assert.Equal(t, 1, logs.Len())
	})

	t.Run("unrecognized", func(t *testing.T) {
		_, err := ParseInput([]string{":ABC"}, true, nil)
		assert.Error(t, err)
	})
}
