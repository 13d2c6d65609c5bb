package store

import (
	"encoding/json"
	"fmt"

	"github.com/tcdata/railnet/internal/codes"
	"github.com/tcdata/railnet/internal/models"
)

// stationRow is a station_record row. The document column keeps the whole
// record, nested objects included; the other columns are for querying.
type stationRow struct {
	Position       int
	Code           *string
	Name           *string
	Group          *int
	X, Y           *float64
	Platforms      *int
	PlatformLength *float64
	Document       []byte
}

func newStationRow(position int, rec models.StationRecord) (stationRow, error) {
	doc, err := json.Marshal(rec)
	if err != nil {
		return stationRow{}, fmt.Errorf("station %d: %w", position, err)
	}
	return stationRow{
		Position:       position,
		Code:           rec.Ril100,
		Name:           rec.Name,
		Group:          rec.Group,
		X:              rec.X,
		Y:              rec.Y,
		Platforms:      rec.Platforms,
		PlatformLength: rec.PlatformLength,
		Document:       doc,
	}, nil
}

func (r stationRow) args() []any {
	return []any{r.Position, r.Code, r.Name, r.Group, r.X, r.Y, r.Platforms, r.PlatformLength, r.Document}
}

type pathRow struct {
	Position         int
	Start, End       *string
	Name             *string
	Length           *float64
	MaxSpeed         *int
	Electrified      bool
	Group            int
	NeededEquipments []string
	Document         []byte
}

func newPathRow(position int, rec models.PathRecord) (pathRow, error) {
	doc, err := json.Marshal(rec)
	if err != nil {
		return pathRow{}, fmt.Errorf("path %d: %w", position, err)
	}
	return pathRow{
		Position:         position,
		Start:            rec.Start,
		End:              rec.End,
		Name:             rec.Name,
		Length:           rec.Length,
		MaxSpeed:         rec.MaxSpeed,
		Electrified:      rec.IsElectrified(),
		Group:            int(rec.Category()),
		NeededEquipments: rec.NeededEquipments,
		Document:         doc,
	}, nil
}

func (r pathRow) args() []any {
	return []any{r.Position, r.Start, r.End, r.Name, r.Length, r.MaxSpeed, r.Electrified, r.Group, r.NeededEquipments, r.Document}
}

func networkStationArgs(s *models.Station) []any {
	var name, kind *string
	if s.Name != "" {
		name = &s.Name
	}
	if s.Kind != "" {
		kind = &s.Kind
	}
	var lat, lon *float64
	if s.Location != nil {
		lat, lon = &s.Location.Latitude, &s.Location.Longitude
	}
	return []any{s.FirstCode(), name, s.Number, s.StationCategory, kind, int(s.Group()), lat, lon}
}

type codeRow struct {
	Code      string
	FirstCode string
	Rank      int
}

func codeRows(s *models.Station) []codeRow {
	first := s.FirstCode()
	out := make([]codeRow, 0, len(s.Codes))
	for _, c := range s.Codes {
		out = append(out, codeRow{Code: c, FirstCode: first, Rank: codes.Rank(c)})
	}
	return out
}
