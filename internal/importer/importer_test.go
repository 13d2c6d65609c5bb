package importer

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/text/encoding/charmap"

	"github.com/tcdata/railnet/internal/codes"
	"github.com/tcdata/railnet/internal/dataset"
	"github.com/tcdata/railnet/internal/models"
)

func encode(t *testing.T, cm *charmap.Charmap, s string) []byte {
	t.Helper()
	b, err := cm.NewEncoder().Bytes([]byte(s))
	require.NoError(t, err)
	return b
}

func TestOperatingPointDirectory(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	im := New(zap.New(core))

	input := "PLC;Abk;Name;Kurzname;Typ Kurz;Typ Lang\n" +
		"1;FF;Frankfurt (Main) Hbf;Frankfurt Hbf;Bf;Bahnhof\n" +
		"2;;Ohne Kürzel;;Bf;Bahnhof\n" +
		"3;FFAS;Abzw Frankfurt-Süd;;Abzw;abzw\n"

	stations, err := im.OperatingPointDirectory(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, stations, 2)
	assert.Equal(t, "FF", stations[0].FirstCode())
	assert.Equal(t, "Frankfurt (Main) Hbf", stations[0].Name)
	assert.Equal(t, "abzw", stations[1].Kind)
	assert.Equal(t, models.GroupJunction, stations[1].Group())
	assert.Equal(t, 1, logs.FilterMessage("skipping invalid row").Len())
}

func TestOperatingPoints(t *testing.T) {
	header := "STRECKE_NR,RICHTUNG,KM_I,KM_L,BEZEICHNUNG,STELLE_ART,KUERZEL,GK_R_DGN,GK_H_DGN,GEOGR_BREITE,GEOGR_LAENGE\n"
	rows := "3600,0,1200,1.2,Köln Hbf,Bf,KK,0,0,50.943,6.958\n" +
		"2600,0,800,,Köln Hbf,Bf,KK,0,0,,\n" +
		"x,0,0,0,Broken,Bf,KX,0,0,,\n"

	t.Run("cp852", func(t *testing.T) {
		im := New(nil)
		stations, err := im.OperatingPoints(bytes.NewReader(encode(t, charmap.CodePage852, header+rows)))
		require.NoError(t, err)
		require.Len(t, stations, 2)

		assert.Equal(t, "Köln Hbf", stations[0].Name)
		require.NotNil(t, stations[0].Location)
		assert.Equal(t, 50.943, stations[0].Location.Latitude)
		assert.Equal(t, []models.PathLocation{{RouteNumber: 3600, Kilometre: 1.2}}, stations[0].PathLocations)
		assert.Nil(t, stations[1].Location)
		assert.Equal(t, []models.PathLocation{{RouteNumber: 2600, Kilometre: 0.8}}, stations[1].PathLocations)
	})

	t.Run("utf-8 marker", func(t *testing.T) {
		im := New(nil)
		input := "utf-8" + header[len("STRECKE_NR"):] + rows
		stations, err := im.OperatingPoints(strings.NewReader(input))
		require.NoError(t, err)
		require.Len(t, stations, 2)
		assert.Equal(t, "Köln Hbf", stations[0].Name)
	})
}

func TestPassengerStations(t *testing.T) {
	im := New(nil)
	input := "\ufeffBundesland;RB;BM;Bf. Nr.;Station;Bf DS 100 Abk.;Kat. Vst;Straße\n" +
		"Hessen;RB Mitte;Frankfurt;1866;Frankfurt (Main) Hbf;FF, FFS;1;Am Hauptbahnhof\n" +
		"Hessen;RB Mitte;Frankfurt;1867;Ohne Kategorie;FX;;Weg\n"

	stations, err := im.PassengerStations(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, stations, 1)

	s := stations[0]
	assert.Equal(t, codes.CodeSet{"FF", "FFS"}, s.Codes)
	assert.Equal(t, 1866, *s.Number)
	assert.Equal(t, 1, *s.StationCategory)
	assert.Equal(t, models.GroupKnotStation, s.Group())
}

func TestPlatforms(t *testing.T) {
	im := New(nil)
	input := "Bahnhofsnummer;Station;Bahnsteig;Gleis;Länge\n" +
		"1866;Frankfurt;1;1;405,50\n" +
		"1866;Frankfurt;2;2;320\n" +
		"abc;Broken;1;1;100\n"

	platforms, err := im.Platforms(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []models.Platform{
		{StationNumber: 1866, Length: 405.5},
		{StationNumber: 1866, Length: 320},
	}, platforms)
}

func TestTracks(t *testing.T) {
	im := New(nil)
	input := "1,1733,0,12.5,a,b,c,d,elektrifiziert,f,ab 160 bis 200 km/h,h,i,Hauptbahn\n" +
		"2,1733,12.5,3.1,a,b,c,d,nicht elektrifiziert,f,bis 80 km/h,h,i,Nebenbahn\n" +
		"3,1733,15.6,40,a,b,c,d,elektrifiziert,f,ab 200 bis 300 km/h,h,i,Hauptbahn\n"

	tracks, err := im.Tracks(bytes.NewReader(encode(t, charmap.Windows1252, input)))
	require.NoError(t, err)
	require.Len(t, tracks, 3)

	from, to := 0.0, 12.5
	assert.Equal(t, models.Track{
		RouteNumber: 1733, Length: 12.5, Electrified: true, MaxSpeed: 200, Category: models.CategoryMainLine,
		FromKm: &from, ToKm: &to,
	}, tracks[0])
	assert.False(t, tracks[1].Electrified)
	assert.Equal(t, models.CategoryBranch, tracks[1].Category)
	assert.Equal(t, models.CategoryHighSpeed, tracks[2].Category)
}

func swissRow(number, name, abbr, lon, lat string) string {
	fields := make([]string, 26)
	fields[1], fields[2], fields[3], fields[24], fields[25] = number, name, abbr, lon, lat
	return strings.Join(fields, ";") + "\n"
}

func TestSwissOperatingPoints(t *testing.T) {
	im := New(nil)
	input := swissRow("NR", "NAME", "ABKUERZUNG", "E", "N") +
		swissRow("8503000", "Zürich HB", "ZUE", "8.5402", "47.3782") +
		swissRow("8503999", "Ohne Abkürzung", "", "", "")

	stations, err := im.SwissOperatingPoints(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, stations, 2)

	ch, ok := codes.CountryByISO("CH")
	require.True(t, ok)
	assert.Equal(t, codes.CodeSet{ch.Flag() + "8503000", "8503000", "CH:ZUE"}, stations[0].Codes)
	assert.Equal(t, 47.3782, stations[0].Location.Latitude)
	assert.Equal(t, swissStationCategory, *stations[0].StationCategory)
	assert.Equal(t, codes.CodeSet{ch.Flag() + "8503999", "8503999"}, stations[1].Codes)
	assert.Nil(t, stations[1].Location)
}

func TestUnknownCountryCodes(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	im := New(zap.New(core))
	input := swissRow("NR", "NAME", "ABKUERZUNG", "E", "N") +
		swissRow("9903000", "Grenzpunkt", "GRZ", "", "")

	stations, err := im.SwissOperatingPoints(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, stations, 1)
	assert.Equal(t, codes.CodeSet{"9903000", "CH:GRZ"}, stations[0].Codes)

	warnings := logs.FilterMessage("unknown country in station code").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, "9903000", warnings[0].ContextMap()["code"])
}

func gtfsZip(t *testing.T, stops string) []byte {
	t.Helper()
	files := map[string]string{
		"agency.txt":     "agency_id,agency_name,agency_url,agency_timezone\nsbb,SBB,https://www.sbb.ch,Europe/Zurich\n",
		"routes.txt":     "route_id,agency_id,route_short_name,route_type\nic1,sbb,IC1,2\n",
		"calendar.txt":   "service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date\nwd,1,1,1,1,1,0,0,20260101,20261231\n",
		"trips.txt":      "route_id,service_id,trip_id\nic1,wd,t1\n",
		"stop_times.txt": "trip_id,arrival_time,departure_time,stop_id,stop_sequence\nt1,08:00:00,08:00:00,8503000,1\n",
		"stops.txt":      stops,
	}

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestGTFSStops(t *testing.T) {
	ch, ok := codes.CountryByISO("CH")
	require.True(t, ok)

	t.Run("parent stations", func(t *testing.T) {
		stops := "stop_id,stop_code,stop_name,stop_lat,stop_lon,location_type,parent_station\n" +
			"Parent8503000,ZUE,Zürich HB,47.3782,8.5402,1,\n" +
			"8503000,,Zürich HB,47.3782,8.5402,0,Parent8503000\n"

		stations, err := New(nil).GTFSStops(gtfsZip(t, stops), ch)
		require.NoError(t, err)
		require.Len(t, stations, 1)
		assert.Equal(t, codes.CodeSet{ch.Flag() + "ZUE"}, stations[0].Codes)
		assert.Equal(t, "Zürich HB", stations[0].Name)
		require.NotNil(t, stations[0].Location)
		assert.Equal(t, 8.5402, stations[0].Location.Longitude)
	})

	t.Run("plain stops", func(t *testing.T) {
		stops := "stop_id,stop_code,stop_name,stop_lat,stop_lon\n" +
			"8503000,ZUE,Zürich HB,47.3782,8.5402\n"

		stations, err := New(nil).GTFSStops(gtfsZip(t, stops), ch)
		require.NoError(t, err)
		require.Len(t, stations, 1)
		assert.Equal(t, codes.CodeSet{ch.Flag() + "ZUE", ch.Flag() + "8503000", "8503000"}, stations[0].Codes)
	})
}

func TestRow(t *testing.T) {
	row := Row{fields: []string{" a ", "1,5"}, columns: map[string]int{"first": 0}}
	assert.Equal(t, "a", row.At(0))
	assert.Equal(t, "", row.At(5))
	assert.Equal(t, "a", row.Field("first"))
	assert.Equal(t, "", row.Field("missing"))

	v, err := row.Float(1)
	require.NoError(t, err)
	assert.Equal(t, 1.5, v)
}

func TestLoadDir(t *testing.T) {
	write := func(t *testing.T, dir, name string, content []byte) {
		t.Helper()
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), content, 0o644))
	}
	directory := "PLC;Abk;Name;Kurzname;Typ Kurz;Typ Lang\n1;FF;Frankfurt (Main) Hbf;Frankfurt Hbf;Bf;Bahnhof\n"

	t.Run("missing directory file", func(t *testing.T) {
		_, err := New(nil).LoadDir(t.TempDir())
		var missing *dataset.MissingInputError
		assert.ErrorAs(t, err, &missing)
	})

	t.Run("optional files", func(t *testing.T) {
		dir := t.TempDir()
		write(t, dir, OperatingPointDirectoryFile, []byte(directory))
		write(t, dir, PlatformFile, []byte("Bahnhofsnummer;Station;Bahnsteig;Gleis;Länge\n1866;Frankfurt;1;1;400\n"))
		write(t, dir, TrackFile, encode(t, charmap.Windows1252,
			"1,1733,0,12.5,a,b,c,d,elektrifiziert,f,bis 160 km/h,h,i,Hauptbahn\n"+
				"2,1733,12.5,3.1,a,b,c,d,elektrifiziert,f,bis 160 km/h,h,i,Hauptbahn\n"))

		raw, err := New(nil).LoadDir(dir)
		require.NoError(t, err)
		require.Len(t, raw.Sources, 1)
		assert.Equal(t, OperatingPointDirectoryFile, raw.Sources[0].Name)
		assert.Len(t, raw.Platforms, 1)
		require.Len(t, raw.Tracks, 1)
		assert.Equal(t, 1733, raw.Tracks[0].RouteNumber)
	})

	t.Run("duplicate track", func(t *testing.T) {
		dir := t.TempDir()
		write(t, dir, OperatingPointDirectoryFile, []byte(directory))
		write(t, dir, TrackFile, []byte(
			"1,1733,0,12.5,a,b,c,d,elektrifiziert,f,bis 160 km/h,h,i,Hauptbahn\n"+
				"2,1733,0,3.1,a,b,c,d,elektrifiziert,f,bis 160 km/h,h,i,Hauptbahn\n"))

		_, err := New(nil).LoadDir(dir)
		var dup *models.DuplicateTrackError
		assert.ErrorAs(t, err, &dup)
	})
}

func routeRow(distance, code, route, stop string) string {
	fields := make([]string, 18)
	fields[0], fields[2], fields[3], fields[17] = distance, code, route, stop
	return strings.Join(fields, ";") + "\n"
}

func TestRouteWaypoints(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	im := New(zap.New(core))
	input := routeRow("km", "Betriebsstelle", "Strecke", "Halteart") +
		routeRow("0,0", "FF", "3600", "Kundenhalt") +
		routeRow("10,4", "FFS  W", "3600", "Durchfahrt") +
		routeRow("25,7", "FD", "", "Kundenhalt, Betriebshalt") +
		routeRow("x", "FZ", "", "")

	waypoints, err := im.RouteWaypoints(bytes.NewReader(encode(t, charmap.Windows1252, input)))
	require.NoError(t, err)
	assert.Equal(t, []models.Waypoint{
		{Code: "FF", Distance: 0, Stop: true, NextRoute: 3600},
		{Code: "FFS W", Distance: 10.4, NextRoute: 3600},
		{Code: "FD", Distance: 25.7, Stop: true},
	}, waypoints)
	assert.Equal(t, 1, logs.FilterMessage("skipping invalid row").Len())
}
