// Package importer reads the public infrastructure registers into stations,
// platforms and tracks.
package importer

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"

	"github.com/tcdata/railnet/internal/codes"
	"github.com/tcdata/railnet/internal/models"
)

// Formats of the DB open data exports
var (
	OperatingPointDirectoryFormat = Format{Delimiter: ';', Header: true}
	OperatingPointFormat          = Format{Delimiter: ',', Charset: charmap.CodePage852, Header: true}
	PassengerStationFormat        = Format{Delimiter: ';', Header: true}
	PlatformFormat                = Format{Delimiter: ';', Header: true}
	TrackFormat                   = Format{Delimiter: ',', Charset: charmap.Windows1252}
)

// Importer converts source files. Invalid rows are logged and skipped.
type Importer struct {
	logger *zap.Logger
}

// New creates an importer
func New(logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{logger: logger}
}

func (im *Importer) with(source string) *zap.Logger {
	return im.logger.With(zap.String("source", source))
}

// codeSet builds the codes of one station. Codes of countries outside the
// table are kept and logged.
func codeSet(logger *zap.Logger, raw ...string) codes.CodeSet {
	for _, code := range raw {
		if _, _, err := codes.Classify(code); errors.Is(err, codes.ErrUnknownCountry) {
			logger.Warn("unknown country in station code", zap.String("code", code), zap.Error(err))
		}
	}
	return codes.NewCodeSet(raw...)
}

// OperatingPointDirectory reads the operating point directory
// (Betriebsstellenverzeichnis): code, name and kind of every operating
// point.
func (im *Importer) OperatingPointDirectory(r io.Reader) ([]*models.Station, error) {
	logger := im.with("operating_point_directory")
	return parse(r, OperatingPointDirectoryFormat, logger,
		func(row Row) (*models.Station, bool, error) {
			code := row.At(1)
			if code == "" {
				return nil, false, fmt.Errorf("missing code")
			}
			return &models.Station{
				Codes: codeSet(logger, code),
				Name:  row.At(2),
				Kind:  row.At(5),
			}, true, nil
		})
}

// OperatingPoints reads the geo referenced operating points. Every row
// places a point on one route, so points on several routes appear once per
// route. The kilometre comes from the readable column and falls back to
// the internal one in metres, so it compares with track kilometres.
func (im *Importer) OperatingPoints(r io.Reader) ([]*models.Station, error) {
	logger := im.with("operating_points")
	return parse(r, OperatingPointFormat, logger,
		func(row Row) (*models.Station, bool, error) {
			code := row.At(6)
			if code == "" {
				return nil, false, fmt.Errorf("missing code")
			}
			route, err := row.Int(0)
			if err != nil {
				return nil, false, fmt.Errorf("route number: %w", err)
			}
			km, err := row.Float(3)
			if err != nil {
				metres, ierr := row.Float(2)
				if ierr != nil {
					return nil, false, fmt.Errorf("kilometre: %w", err)
				}
				km = metres / 1000
			}

			station := &models.Station{
				Codes:         codeSet(logger, code),
				Name:          row.At(4),
				Kind:          row.At(5),
				PathLocations: []models.PathLocation{{RouteNumber: route, Kilometre: km}},
			}
			if row.At(9) != "" && row.At(10) != "" {
				lat, err := row.Float(9)
				if err != nil {
					return nil, false, fmt.Errorf("latitude: %w", err)
				}
				lon, err := row.Float(10)
				if err != nil {
					return nil, false, fmt.Errorf("longitude: %w", err)
				}
				station.Location = &models.Location{Latitude: lat, Longitude: lon}
			}
			return station, true, nil
		})
}

// Column names of the passenger station list
const (
	columnStationNumber   = "Bf. Nr."
	columnStationName     = "Station"
	columnStationCode     = "Bf DS 100 Abk."
	columnStationCategory = "Kat. Vst"
)

// PassengerStations reads the passenger station list with station number
// and category. A station may list several codes separated by commas.
func (im *Importer) PassengerStations(r io.Reader) ([]*models.Station, error) {
	logger := im.with("passenger_stations")
	return parse(r, PassengerStationFormat, logger,
		func(row Row) (*models.Station, bool, error) {
			raw := splitCodes(row.Field(columnStationCode))
			if len(raw) == 0 {
				return nil, false, fmt.Errorf("missing code")
			}
			number, err := parseIntField(row.Field(columnStationNumber))
			if err != nil {
				return nil, false, fmt.Errorf("station number: %w", err)
			}
			category, err := parseIntField(row.Field(columnStationCategory))
			if err != nil {
				return nil, false, fmt.Errorf("station category: %w", err)
			}
			return &models.Station{
				Codes:           codeSet(logger, raw...),
				Name:            row.Field(columnStationName),
				Number:          &number,
				StationCategory: &category,
			}, true, nil
		})
}

// Platforms reads the platform list: station number in the first column
// and the platform length with a decimal comma in the fifth.
func (im *Importer) Platforms(r io.Reader) ([]models.Platform, error) {
	return parse(r, PlatformFormat, im.with("platforms"),
		func(row Row) (models.Platform, bool, error) {
			number, err := row.Int(0)
			if err != nil {
				return models.Platform{}, false, fmt.Errorf("station number: %w", err)
			}
			length, err := row.Float(4)
			if err != nil {
				return models.Platform{}, false, fmt.Errorf("length: %w", err)
			}
			return models.Platform{StationNumber: number, Length: length}, true, nil
		})
}

const notElectrified = "nicht elektrifiziert"

// Tracks reads the headerless line segment export. The start kilometre
// is read from the third column when it holds a number.
func (im *Importer) Tracks(r io.Reader) ([]models.Track, error) {
	return parse(r, TrackFormat, im.with("tracks"),
		func(row Row) (models.Track, bool, error) {
			route, err := row.Int(1)
			if err != nil {
				return models.Track{}, false, fmt.Errorf("route number: %w", err)
			}
			length, err := row.Float(3)
			if err != nil {
				return models.Track{}, false, fmt.Errorf("length: %w", err)
			}
			speed := models.ParseSpeed(row.At(10))
			track := models.Track{
				RouteNumber: route,
				Length:      length,
				Electrified: row.At(8) != notElectrified,
				MaxSpeed:    speed,
				Category:    models.CategoryFromSpeed(speed, row.At(13)),
			}
			if from, err := row.Float(2); err == nil {
				to := from + length
				track.FromKm, track.ToKm = &from, &to
			}
			return track, true, nil
		})
}

func parseIntField(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}

func splitCodes(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if code := strings.TrimSpace(part); code != "" {
			out = append(out, code)
		}
	}
	return out
}
