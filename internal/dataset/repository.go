package dataset

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tcdata/railnet/internal/graph"
	"github.com/tcdata/railnet/internal/models"
	"github.com/tcdata/railnet/internal/routing"
)

// File names of the dataset documents
const (
	StationFile   = "Station.json"
	PathFile      = "Path.json"
	TaskFile      = "TaskModel.json"
	EquipmentFile = "TrainEquipment.json"
)

// MissingInputError lists required input documents that do not exist
type MissingInputError struct {
	Dir   string
	Files []string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("missing input files in %s: %s", e.Dir, strings.Join(e.Files, ", "))
}

// RequireFiles returns a MissingInputError naming every file of names that
// is missing from dir
func RequireFiles(dir string, names ...string) error {
	var missing []string
	for _, name := range names {
		if _, err := os.Stat(filepath.Join(dir, name)); errors.Is(err, os.ErrNotExist) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &MissingInputError{Dir: dir, Files: missing}
	}
	return nil
}

// Repository provides the station and path records of a dataset
type Repository interface {
	Stations(ctx context.Context) ([]models.StationRecord, error)
	Paths(ctx context.Context) ([]models.PathRecord, error)
	Equipments(ctx context.Context) ([]string, error)
}

// FileRepository reads the dataset documents from a directory
type FileRepository struct {
	dir string
}

// NewFileRepository checks that the station and path documents exist in
// dir
func NewFileRepository(dir string) (*FileRepository, error) {
	if err := RequireFiles(dir, StationFile, PathFile); err != nil {
		return nil, err
	}
	return &FileRepository{dir: dir}, nil
}

// Dir returns the dataset directory
func (r *FileRepository) Dir() string {
	return r.dir
}

// Path returns the location of a document in the dataset directory
func (r *FileRepository) Path(name string) string {
	return filepath.Join(r.dir, name)
}

func (r *FileRepository) Stations(ctx context.Context) ([]models.StationRecord, error) {
	doc, err := ReadDocument(r.Path(StationFile))
	if err != nil {
		return nil, err
	}
	return doc.StationRecords()
}

func (r *FileRepository) Paths(ctx context.Context) ([]models.PathRecord, error) {
	doc, err := ReadDocument(r.Path(PathFile))
	if err != nil {
		return nil, err
	}
	return doc.PathRecords()
}

// Equipments returns the equipment ids. The equipment document is
// optional.
func (r *FileRepository) Equipments(ctx context.Context) ([]string, error) {
	doc, err := ReadDocument(r.Path(EquipmentFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc.EquipmentIDs()
}

// Snapshot is a dataset loaded into memory
type Snapshot struct {
	Stations    []models.StationRecord
	Paths       []models.PathRecord
	Equipments  []string
	Fingerprint string
}

// Load reads stations, paths and equipments from repo
func Load(ctx context.Context, repo Repository) (*Snapshot, error) {
	stations, err := repo.Stations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load stations: %w", err)
	}
	paths, err := repo.Paths(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load paths: %w", err)
	}
	equipments, err := repo.Equipments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load equipments: %w", err)
	}

	fingerprint, err := Fingerprint(stations, paths)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		Stations:    stations,
		Paths:       paths,
		Equipments:  equipments,
		Fingerprint: fingerprint,
	}, nil
}

// Fingerprint identifies the content of a station and path set
func Fingerprint(stations []models.StationRecord, paths []models.PathRecord) (string, error) {
	h := sha256.New()
	enc := json.NewEncoder(h)
	if err := enc.Encode(stations); err != nil {
		return "", fmt.Errorf("failed to fingerprint stations: %w", err)
	}
	if err := enc.Encode(paths); err != nil {
		return "", fmt.Errorf("failed to fingerprint paths: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Network builds the route graph of the snapshot. Stations of a group in
// hiddenGroups are marked hidden.
func (s *Snapshot) Network(b *graph.Builder, hiddenGroups map[models.StationGroup]bool) (*routing.Network, graph.Stats) {
	g, stats := b.BuildFromRecords(s.Stations, s.Paths)
	return &routing.Network{
		Graph:       g,
		Hidden:      routing.HiddenStations(graph.StationGroups(s.Stations), hiddenGroups),
		Fingerprint: s.Fingerprint,
	}, stats
}
