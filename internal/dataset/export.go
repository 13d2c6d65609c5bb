package dataset

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/tcdata/railnet/internal/models"
)

// Map projection of the game coordinates
const (
	originLongitude = 6.482451
	originLatitude  = 51.766433
	scaleX          = 625.0 / (11.082989 - originLongitude)
	scaleY          = 385.0 / (49.445616 - originLatitude)
)

// Project converts a WGS84 location to game map coordinates
func Project(loc models.Location) (x, y float64) {
	x = math.Trunc((loc.Longitude - originLongitude) * scaleX)
	y = math.Trunc((loc.Latitude - originLatitude) * scaleY)
	return x, y
}

// StationRecordFrom converts a merged station to its dataset record. The
// first code becomes the record code. Coordinates are only set when the
// location is known and platform data only when platforms are attached.
func StationRecordFrom(s *models.Station) models.StationRecord {
	code := s.FirstCode()
	group := int(s.Group())
	record := models.StationRecord{
		Ril100: &code,
		Group:  &group,
	}
	if s.Name != "" {
		name := s.Name
		record.Name = &name
	}
	if s.Location != nil {
		x, y := Project(*s.Location)
		record.X, record.Y = &x, &y
	}
	if n := s.PlatformCount(); n > 0 {
		length := math.Trunc(s.PlatformLength())
		record.Platforms = &n
		record.PlatformLength = &length
	}
	return record
}

// AddMode selects which stations AddStations writes
type AddMode int

const (
	// AddOnly appends stations none of whose codes exist yet
	AddOnly AddMode = iota
	// UpdateOnly updates stations one of whose codes exists
	UpdateOnly
	// Upsert updates existing stations and appends the others
	Upsert
)

func (m AddMode) String() string {
	switch m {
	case AddOnly:
		return "add"
	case UpdateOnly:
		return "update"
	case Upsert:
		return "upsert"
	default:
		return fmt.Sprintf("AddMode(%d)", int(m))
	}
}

// ParseAddMode parses "add", "update" or "upsert"
func ParseAddMode(s string) (AddMode, error) {
	for _, m := range []AddMode{AddOnly, UpdateOnly, Upsert} {
		if m.String() == s {
			return m, nil
		}
	}
	return AddOnly, fmt.Errorf("unknown add mode %q", s)
}

// AddResult counts what AddStations did
type AddResult struct {
	Added   int
	Updated int
	Skipped int
}

// AddStations writes stations into a station document. A station matches
// an existing record when any of its codes equals the record code; matched
// records are updated member by member so that members this program does
// not know about survive.
func AddStations(doc *Document, stations []*models.Station, mode AddMode) (AddResult, error) {
	existing := make(map[string]int, len(doc.Data))
	for i := range doc.Data {
		var code string
		if found, err := doc.Data[i].Decode("ril100", &code); err != nil {
			return AddResult{}, fmt.Errorf("record %d: %w", i, err)
		} else if found {
			existing[code] = i
		}
	}

	var result AddResult
	for _, s := range stations {
		target := -1
		for _, code := range s.Codes {
			if i, ok := existing[code]; ok {
				target = i
				break
			}
		}

		if (target >= 0 && mode == AddOnly) || (target < 0 && mode == UpdateOnly) {
			result.Skipped++
			continue
		}

		raw, err := toRawObject(StationRecordFrom(s))
		if err != nil {
			return result, err
		}

		if target >= 0 {
			for _, key := range raw.Keys() {
				value, _ := raw.Get(key)
				if err := doc.Data[target].Set(key, value); err != nil {
					return result, err
				}
			}
			result.Updated++
			continue
		}

		doc.Data = append(doc.Data, raw)
		existing[s.FirstCode()] = len(doc.Data) - 1
		result.Added++
	}
	return result, nil
}

// AddPath appends a path record to a path document. It reports false and
// leaves the document alone when every segment of the record already
// connects the same stations, in either direction.
func AddPath(doc *Document, record models.PathRecord) (bool, error) {
	existing, err := doc.PathRecords()
	if err != nil {
		return false, err
	}
	known := make(map[[2]string]bool)
	for _, p := range models.FlattenPaths(existing) {
		start, end := p.Endpoints()
		known[[2]string{start, end}] = true
		known[[2]string{end, start}] = true
	}

	duplicate := true
	for _, p := range models.FlattenPaths([]models.PathRecord{record}) {
		start, end := p.Endpoints()
		if !known[[2]string{start, end}] {
			duplicate = false
			break
		}
	}
	if duplicate {
		return false, nil
	}

	raw, err := toRawObject(record)
	if err != nil {
		return false, err
	}
	doc.Data = append(doc.Data, raw)
	return true, nil
}

func toRawObject(v any) (models.RawObject, error) {
	var raw models.RawObject
	b, err := json.Marshal(v)
	if err != nil {
		return raw, err
	}
	err = json.Unmarshal(b, &raw)
	return raw, err
}
