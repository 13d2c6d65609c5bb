package importer

import (
	"fmt"
	"io"
	"strconv"

	"github.com/jamespfennell/gtfs"
	"go.uber.org/zap"

	"github.com/tcdata/railnet/internal/codes"
	"github.com/tcdata/railnet/internal/models"
)

// SwissOperatingPointFormat is the format of the Swiss operating point
// register
var SwissOperatingPointFormat = Format{Delimiter: ';', Header: true}

// swissStationCategory is used for all Swiss stations since the register
// has no categories
const swissStationCategory = 5

// SwissOperatingPoints reads the Swiss operating point register. Stations
// are identified by their colon prefixed abbreviation and their numeric
// UIC code.
func (im *Importer) SwissOperatingPoints(r io.Reader) ([]*models.Station, error) {
	ch, _ := codes.CountryByISO("CH")
	category := swissStationCategory

	logger := im.with("swiss_operating_points")
	return parse(r, SwissOperatingPointFormat, logger,
		func(row Row) (*models.Station, bool, error) {
			number, err := row.Int(1)
			if err != nil {
				return nil, false, fmt.Errorf("number: %w", err)
			}

			raw := []string{strconv.Itoa(number)}
			if abbr := row.At(3); abbr != "" {
				raw = append(raw, ch.ColonPrefix()+abbr)
			}
			station := &models.Station{
				Codes:           codeSet(logger, raw...),
				Name:            row.At(2),
				Number:          &number,
				StationCategory: &category,
			}
			if row.At(24) != "" && row.At(25) != "" {
				lon, err := row.Float(24)
				if err != nil {
					return nil, false, fmt.Errorf("longitude: %w", err)
				}
				lat, err := row.Float(25)
				if err != nil {
					return nil, false, fmt.Errorf("latitude: %w", err)
				}
				station.Location = &models.Location{Latitude: lat, Longitude: lon}
			}
			return station, true, nil
		})
}

// GTFSStops converts the stops of a static GTFS feed of country. Parent
// stations are used when the feed has any, plain stops otherwise. Each
// stop is known by its flag prefixed stop code and, when numeric, its stop
// id.
func (im *Importer) GTFSStops(content []byte, country codes.Country) ([]*models.Station, error) {
	logger := im.with("gtfs")

	static, err := gtfs.ParseStatic(content, gtfs.ParseStaticOptions{})
	if err != nil {
		return nil, fmt.Errorf("error parsing GTFS data: %w", err)
	}

	var wanted gtfs.StopType
	for _, stop := range static.Stops {
		if stop.Type == gtfs.StopType_Station {
			wanted = gtfs.StopType_Station
			break
		}
	}

	var stations []*models.Station
	for _, stop := range static.Stops {
		if stop.Type != wanted {
			continue
		}

		var raw []string
		if stop.Code != "" {
			raw = append(raw, country.Flag()+stop.Code)
		}
		if _, rep, _ := codes.Classify(stop.Id); rep == codes.NumericUIC {
			raw = append(raw, stop.Id)
		}
		if len(raw) == 0 {
			logger.Debug("skipping stop without usable code", zap.String("stop_id", stop.Id))
			continue
		}

		station := &models.Station{
			Codes: codeSet(logger, raw...),
			Name:  stop.Name,
		}
		if stop.Latitude != nil && stop.Longitude != nil {
			station.Location = &models.Location{Latitude: *stop.Latitude, Longitude: *stop.Longitude}
		}
		stations = append(stations, station)
	}

	logger.Info("parsed GTFS stops",
		zap.Int("stops", len(static.Stops)),
		zap.Int("stations", len(stations)),
		zap.Int("type", int(wanted)),
	)
	return stations, nil
}
