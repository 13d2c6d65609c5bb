package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int                     { return &v }
func strPtr(v string) *string               { return &v }
func floatPtr(v float64) *float64           { return &v }
func boolPtr(v bool) *bool                  { return &v }
func groupPtr(g StationGroup) *StationGroup { return &g }

func TestStationGroup(t *testing.T) {
	tests := []struct {
		name     string
		station  Station
		expected StationGroup
	}{
		{"category 1 is a knot", Station{StationCategory: intPtr(1)}, GroupKnotStation},
		{"category 2 is a knot", Station{StationCategory: intPtr(2)}, GroupKnotStation},
		{"category 3 is a main station", Station{StationCategory: intPtr(3)}, GroupMainStation},
		{"category 5 is a branch station", Station{StationCategory: intPtr(5)}, GroupBranchStation},
		{"category 7 is a halt", Station{StationCategory: intPtr(7)}, GroupHalt},
		{"junction kind", Station{Kind: "abzw"}, GroupJunction},
		{"category wins over kind", Station{StationCategory: intPtr(3), Kind: "abzw"}, GroupMainStation},
		{"unknown category falls back to kind", Station{StationCategory: intPtr(9), Kind: "abzw"}, GroupJunction},
		{"nothing known", Station{}, GroupOperatingPoint},
		{"explicit group", Station{StationCategory: intPtr(1), ExplicitGroup: groupPtr(GroupHidden)}, GroupHidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.station.Group())
		})
	}
}

func TestDefaultHiddenGroups(t *testing.T) {
	hidden := DefaultHiddenGroups()
	assert.True(t, hidden[GroupHalt])
	assert.True(t, hidden[GroupHidden])
	assert.False(t, hidden[GroupJunction])
}

func TestTrackCategory(t *testing.T) {
	t.Run("from speed and classification", func(t *testing.T) {
		assert.Equal(t, CategoryBranch, CategoryFromSpeed(300, "Nebenbahn"))
		assert.Equal(t, CategoryHighSpeed, CategoryFromSpeed(250, "Hauptbahn"))
		assert.Equal(t, CategoryMainLine, CategoryFromSpeed(249, "Hauptbahn"))
		assert.Equal(t, CategoryUnknown, CategoryFromSpeed(100, ""))
	})

	t.Run("rank order", func(t *testing.T) {
		assert.Greater(t, CategoryHighSpeed.Rank(), CategoryMainLine.Rank())
		assert.Greater(t, CategoryMainLine.Rank(), CategoryBranch.Rank())
		assert.Greater(t, CategoryBranch.Rank(), CategoryUnknown.Rank())
	})

	t.Run("from group", func(t *testing.T) {
		assert.Equal(t, CategoryHighSpeed, CategoryFromGroup(2))
		assert.Equal(t, CategoryUnknown, CategoryFromGroup(7))
	})
}

func TestParseSpeed(t *testing.T) {
	assert.Equal(t, 200, ParseSpeed("ab 160 bis 200 km/h"))
	assert.Equal(t, 120, ParseSpeed("bis 120 km/h"))
	assert.Equal(t, 0, ParseSpeed("unbekannt"))
}

func TestStationPlatforms(t *testing.T) {
	s := Station{Platforms: []Platform{{Length: 210}, {Length: 405.5}, {Length: 90}}}
	assert.Equal(t, 3, s.PlatformCount())
	assert.Equal(t, 405.5, s.PlatformLength())

	s.AddPathLocation(PathLocation{RouteNumber: 1700, Kilometre: 3.2})
	s.AddPathLocation(PathLocation{RouteNumber: 1700, Kilometre: 3.2})
	assert.Len(t, s.PathLocations, 1)
}

func TestMergeTracks(t *testing.T) {
	tracks := []Track{
		{RouteNumber: 1, FromKm: floatPtr(10), Length: 5},
		{RouteNumber: 2, FromKm: floatPtr(0), Length: 1},
		{RouteNumber: 1, Length: 2},
		{RouteNumber: 1, FromKm: floatPtr(0), Length: 10},
	}

	paths, err := MergeTracks(tracks)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, 1, paths[0].RouteNumber)
	require.Len(t, paths[0].Tracks, 3)
	assert.Equal(t, 0.0, *paths[0].Tracks[0].FromKm)
	assert.Equal(t, 10.0, *paths[0].Tracks[1].FromKm)
	assert.Nil(t, paths[0].Tracks[2].FromKm)
	assert.Equal(t, 17.0, paths[0].Length())

	_, err = MergeTracks(append(tracks, Track{RouteNumber: 1, FromKm: floatPtr(10)}))
	var dup *DuplicateTrackError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, 1, dup.RouteNumber)
	assert.Equal(t, 10.0, dup.FromKm)
}

func TestFlattenPaths(t *testing.T) {
	records := []PathRecord{
		{Start: strPtr("A"), End: strPtr("B"), Length: floatPtr(3)},
		{
			MaxSpeed:    intPtr(160),
			Electrified: boolPtr(false),
			Objects: []PathRecord{
				{Start: strPtr("B"), End: strPtr("C"), Length: floatPtr(4)},
				{Start: strPtr("C"), End: strPtr("D"), Length: floatPtr(5), MaxSpeed: intPtr(80)},
			},
		},
	}

	flat := FlattenPaths(records)
	require.Len(t, flat, 3)
	assert.True(t, flat[0].IsElectrified())
	assert.Equal(t, CategoryMainLine, flat[0].Category())

	start, end := flat[1].Endpoints()
	assert.Equal(t, "B", start)
	assert.Equal(t, "C", end)
	assert.Equal(t, 160, flat[1].Speed())
	assert.False(t, flat[1].IsElectrified())
	assert.Equal(t, 80, flat[2].Speed())
	assert.Nil(t, flat[2].Objects)
}

func TestFlattenStations(t *testing.T) {
	records := []StationRecord{
		{Ril100: strPtr("FF"), Name: strPtr("Frankfurt (Main) Hbf"), Group: intPtr(0)},
		{Group: intPtr(5), Objects: []StationRecord{
			{Ril100: strPtr("FFLF"), Name: strPtr("Flughafen Fernbf")},
		}},
	}

	flat := FlattenStations(records)
	require.Len(t, flat, 2)
	assert.Equal(t, "FFLF", flat[1].Code())
	assert.Equal(t, GroupHalt, flat[1].StationGroup())
	assert.Equal(t, GroupHidden, StationRecord{}.StationGroup())
}

func TestRawObject(t *testing.T) {
	input := `{"name":"Task","descriptions":["a"],"stations":["A","B"],"service":3}`

	var obj RawObject
	require.NoError(t, json.Unmarshal([]byte(input), &obj))
	assert.Equal(t, []string{"name", "descriptions", "stations", "service"}, obj.Keys())

	t.Run("round trip keeps member order", func(t *testing.T) {
		out, err := json.Marshal(obj)
		require.NoError(t, err)
		assert.Equal(t, input, string(out))
	})

	t.Run("set replaces in place", func(t *testing.T) {
		o := obj.Clone()
		require.NoError(t, o.Set("stations", []string{"X"}))
		require.NoError(t, o.Set("pathSuggestion", []string{"X", "Y"}))
		out, err := json.Marshal(o)
		require.NoError(t, err)
		assert.Equal(t, `{"name":"Task","descriptions":["a"],"stations":["X"],"service":3,"pathSuggestion":["X","Y"]}`, string(out))
	})

	t.Run("decode and delete", func(t *testing.T) {
		o := obj.Clone()
		var service int
		ok, err := o.Decode("service", &service)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 3, service)

		o.Delete("service")
		ok, err = o.Decode("service", &service)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, 3, o.Len())
	})

	t.Run("rejects non objects", func(t *testing.T) {
		var o RawObject
		assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &o))
		assert.Error(t, json.Unmarshal([]byte(`null`), &o))
	})

	t.Run("zero value is usable", func(t *testing.T) {
		var o RawObject
		assert.Equal(t, 0, o.Len())
		assert.Empty(t, o.Keys())
		assert.False(t, o.Has("name"))
		o.Delete("name")

		out, err := json.Marshal(o)
		require.NoError(t, err)
		assert.Equal(t, `{}`, string(out))

		require.NoError(t, o.Set("name", "Task"))
		out, err = json.Marshal(o)
		require.NoError(t, err)
		assert.Equal(t, `{"name":"Task"}`, string(out))
	})

	t.Run("nested values and null members", func(t *testing.T) {
		var o RawObject
		require.NoError(t, json.Unmarshal([]byte(`{"z":{"b":1,"a":[true,null]},"service":null,"a":"x"}`), &o))
		assert.Equal(t, []string{"z", "service", "a"}, o.Keys())
		assert.False(t, o.Has("service"))

		raw, ok := o.Get("z")
		require.True(t, ok)
		assert.JSONEq(t, `{"b":1,"a":[true,null]}`, string(raw))

		out, err := json.Marshal(o)
		require.NoError(t, err)
		assert.Equal(t, `{"z":{"b":1,"a":[true,null]},"service":null,"a":"x"}`, string(out))
	})

	t.Run("clone is independent", func(t *testing.T) {
		o := obj.Clone()
		require.NoError(t, o.Set("name", "Other"))
		o.Delete("service")

		var name string
		_, err := obj.Decode("name", &name)
		require.NoError(t, err)
		assert.Equal(t, "Task", name)
		assert.Equal(t, 4, obj.Len())
	})
}
