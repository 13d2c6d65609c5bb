package importer

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/tcdata/railnet/internal/codes"
	"github.com/tcdata/railnet/internal/dataset"
	"github.com/tcdata/railnet/internal/models"
	"github.com/tcdata/railnet/internal/stations"
)

// Raw source files of a data directory
const (
	OperatingPointDirectoryFile = "betriebsstellen_verzeichnis.csv"
	OperatingPointFile          = "betriebsstellen.csv"
	PassengerStationFile        = "bahnhoefe.csv"
	PlatformFile                = "bahnsteige.csv"
	TrackFile                   = "strecken.csv"
	SwissOperatingPointFile     = "sbb_didok.csv"
)

// GTFSFeed is a static feed whose stops join the station list
type GTFSFeed struct {
	Path    string
	Country codes.Country
}

// RawData is everything read from a data directory, ready for a
// stations.Pipeline run
type RawData struct {
	Sources   []stations.Source
	Platforms []models.Platform
	Tracks    []models.TrackPath
}

func readFile[T any](dir, name string, required bool, fn func(io.Reader) (T, error)) (T, bool, error) {
	var zero T
	f, err := os.Open(filepath.Join(dir, name))
	if errors.Is(err, os.ErrNotExist) && !required {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, err
	}
	defer f.Close()

	v, err := fn(f)
	if err != nil {
		return zero, false, fmt.Errorf("failed to import %s: %w", name, err)
	}
	return v, true, nil
}

// LoadDir reads the source files of dir in merge order. Only the operating
// point directory is required; other missing files are skipped.
func (im *Importer) LoadDir(dir string, feeds ...GTFSFeed) (*RawData, error) {
	if err := dataset.RequireFiles(dir, OperatingPointDirectoryFile); err != nil {
		return nil, err
	}

	raw := &RawData{}
	add := func(name string, key stations.MergeKey, collapse bool, fn func(io.Reader) ([]*models.Station, error)) error {
		list, found, err := readFile(dir, name, len(raw.Sources) == 0, fn)
		if err != nil {
			return err
		}
		if !found {
			im.logger.Info("skipping missing source", zap.String("file", name))
			return nil
		}
		raw.Sources = append(raw.Sources, stations.Source{
			Name:     name,
			Stations: list,
			Key:      key,
			Collapse: collapse,
		})
		return nil
	}

	if err := add(OperatingPointDirectoryFile, stations.KeyCodes, false, im.OperatingPointDirectory); err != nil {
		return nil, err
	}
	if err := add(OperatingPointFile, stations.KeyCodes, true, im.OperatingPoints); err != nil {
		return nil, err
	}
	if err := add(PassengerStationFile, stations.KeyCodes, false, im.PassengerStations); err != nil {
		return nil, err
	}
	if err := add(SwissOperatingPointFile, stations.KeyName, false, im.SwissOperatingPoints); err != nil {
		return nil, err
	}

	for _, feed := range feeds {
		content, err := os.ReadFile(feed.Path)
		if err != nil {
			return nil, err
		}
		list, err := im.GTFSStops(content, feed.Country)
		if err != nil {
			return nil, fmt.Errorf("failed to import %s: %w", feed.Path, err)
		}
		raw.Sources = append(raw.Sources, stations.Source{
			Name:     filepath.Base(feed.Path),
			Stations: list,
			Key:      stations.KeyCodes,
		})
	}

	platforms, _, err := readFile(dir, PlatformFile, false, im.Platforms)
	if err != nil {
		return nil, err
	}
	raw.Platforms = platforms

	tracks, found, err := readFile(dir, TrackFile, false, im.Tracks)
	if err != nil {
		return nil, err
	}
	if found {
		raw.Tracks, err = models.MergeTracks(tracks)
		if err != nil {
			return nil, fmt.Errorf("failed to import %s: %w", TrackFile, err)
		}
		im.logger.Info("merged tracks", zap.Int("tracks", len(tracks)), zap.Int("routes", len(raw.Tracks)))
	}
	return raw, nil
}
