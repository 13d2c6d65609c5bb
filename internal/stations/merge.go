// Package stations merges station lists from several sources into one
// canonical list.
package stations

import (
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/tcdata/railnet/internal/codes"
	"github.com/tcdata/railnet/internal/models"
)

// MergeKey selects how incoming stations are matched
type MergeKey string

const (
	KeyCodes           MergeKey = "codes"
	KeyName            MergeKey = "name"
	KeyNumber          MergeKey = "number"
	KeyStationCategory MergeKey = "station_category"
)

// IdentityConflictError reports two stations sharing an identity value
// where it must be unique
type IdentityConflictError struct {
	Key   MergeKey
	Value string
	Side  string
}

func (e *IdentityConflictError) Error() string {
	return fmt.Sprintf("duplicate %s %q in %s stations", e.Key, e.Value, e.Side)
}

type options struct {
	dataLoss bool
	logger   *zap.Logger
}

// Option configures Merge
type Option func(*options)

// WithDataLoss allows an incoming station that matches several existing
// stations to collapse them into one
func WithDataLoss() Option {
	return func(o *options) { o.dataLoss = true }
}

// WithLogger sets the logger used for merge diagnostics
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func keyValue(s *models.Station, key MergeKey) (string, bool) {
	switch key {
	case KeyName:
		if s.Name == "" {
			return "", false
		}
		name := NormalizeName(s.Name)
		return name, name != ""
	case KeyNumber:
		if s.Number == nil {
			return "", false
		}
		return strconv.Itoa(*s.Number), true
	case KeyStationCategory:
		if s.StationCategory == nil {
			return "", false
		}
		return strconv.Itoa(*s.StationCategory), true
	default:
		first := s.FirstCode()
		return first, first != ""
	}
}

// AssertUnique checks that no two stations share a value for key. For
// KeyCodes the canonical first codes are compared.
func AssertUnique(stations []*models.Station, key MergeKey, side string) error {
	seen := make(map[string]bool, len(stations))
	for _, s := range stations {
		value, ok := keyValue(s, key)
		if !ok {
			continue
		}
		if seen[value] {
			return &IdentityConflictError{Key: key, Value: value, Side: side}
		}
		seen[value] = true
	}
	return nil
}

// absorb fills the empty fields of base from other and unions the codes
// and route positions
func absorb(base, other *models.Station, codeSet codes.CodeSet) {
	if base.Name == "" {
		base.Name = other.Name
	}
	if base.Number == nil {
		base.Number = other.Number
	}
	if base.StationCategory == nil {
		base.StationCategory = other.StationCategory
	}
	if base.Kind == "" {
		base.Kind = other.Kind
	}
	if base.Location == nil {
		base.Location = other.Location
	}
	if base.ExplicitGroup == nil {
		base.ExplicitGroup = other.ExplicitGroup
	}
	if len(base.Platforms) == 0 {
		base.Platforms = other.Platforms
	}
	for _, loc := range other.PathLocations {
		base.AddPathLocation(loc)
	}
	base.Codes = base.Codes.Union(codeSet)
}

// Merge folds incoming stations into onto. Each incoming station either
// enriches the first existing station it matches on key or is appended.
// Enriched stations are copies that take the position of the original;
// the stations of onto and incoming are never modified, so both lists
// stay valid when Merge fails.
//
// Both inputs must be unique on key. Without WithDataLoss the result is
// never shorter than onto.
func Merge(onto, incoming []*models.Station, key MergeKey, opts ...Option) ([]*models.Station, error) {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	if err := AssertUnique(onto, key, "onto"); err != nil {
		return nil, err
	}
	if err := AssertUnique(incoming, key, "incoming"); err != nil {
		return nil, err
	}

	w := newWorkingList(onto, len(incoming))

	var merged, appended, collapsed int
	if key == KeyCodes {
		merged, appended, collapsed = mergeOnCodes(w, incoming, o)
	} else {
		merged, appended = mergeOnValue(w, incoming, key)
	}
	result := w.stations()

	if !o.dataLoss && len(result) < len(onto) {
		return nil, fmt.Errorf("merge on %s lost stations: %d < %d", key, len(result), len(onto))
	}
	if err := AssertUnique(result, key, "merged"); err != nil {
		return nil, err
	}

	o.logger.Debug("merged stations",
		zap.String("key", string(key)),
		zap.Int("merged", merged),
		zap.Int("appended", appended),
		zap.Int("collapsed", collapsed),
		zap.Int("total", len(result)),
	)
	return result, nil
}

// workingList is the result of a merge in progress. Stations are cloned
// before their first modification.
type workingList struct {
	list     []*models.Station
	position map[*models.Station]int
	copies   map[*models.Station]bool
	removed  map[*models.Station]bool
}

func newWorkingList(onto []*models.Station, extra int) *workingList {
	w := &workingList{
		list:     make([]*models.Station, 0, len(onto)+extra),
		position: make(map[*models.Station]int, len(onto)+extra),
		copies:   make(map[*models.Station]bool),
		removed:  make(map[*models.Station]bool),
	}
	for _, s := range onto {
		w.append(s)
	}
	return w
}

func (w *workingList) append(s *models.Station) {
	w.position[s] = len(w.list)
	w.list = append(w.list, s)
}

// writable returns a station of the list that may be modified, cloning s
// in its place unless it already is a copy
func (w *workingList) writable(s *models.Station) *models.Station {
	if w.copies[s] {
		return s
	}
	c := s.Clone()
	w.copies[c] = true
	w.position[c] = w.position[s]
	w.list[w.position[s]] = c
	return c
}

func (w *workingList) stations() []*models.Station {
	if len(w.removed) == 0 {
		return w.list
	}
	kept := make([]*models.Station, 0, len(w.list)-len(w.removed))
	for _, s := range w.list {
		if !w.removed[s] {
			kept = append(kept, s)
		}
	}
	return kept
}

func mergeOnCodes(w *workingList, incoming []*models.Station, o options) (int, int, int) {
	index := make(map[string]*models.Station)

	register := func(s *models.Station, steal bool) {
		for _, c := range s.Codes {
			owner, taken := index[c]
			if !taken || (steal && w.removed[owner]) {
				index[c] = s
			}
		}
	}
	for _, s := range w.list {
		register(s, false)
	}
	writable := func(s *models.Station) *models.Station {
		c := w.writable(s)
		if c != s {
			for _, code := range s.Codes {
				if index[code] == s {
					index[code] = c
				}
			}
		}
		return c
	}

	var merged, appended, collapsed int
	for _, in := range incoming {
		var matches []*models.Station
		for _, c := range in.Codes {
			s, ok := index[c]
			if !ok || w.removed[s] || containsStation(matches, s) {
				continue
			}
			matches = append(matches, s)
		}

		if len(matches) == 0 {
			w.append(in)
			register(in, false)
			appended++
			continue
		}

		sortByPosition(matches, w.position)
		base := writable(matches[0])
		others := matches[1:]

		if len(others) > 0 && !o.dataLoss {
			o.logger.Warn("station matches several existing stations, merging into the first",
				zap.String("incoming", in.FirstCode()),
				zap.String("base", base.FirstCode()),
				zap.Int("matches", len(matches)),
			)
			owned := make(map[string]bool)
			for _, other := range others {
				for _, c := range other.Codes {
					owned[c] = true
				}
			}
			var kept codes.CodeSet
			for _, c := range in.Codes {
				if !owned[c] {
					kept = append(kept, c)
				}
			}
			absorb(base, in, kept)
		} else {
			absorb(base, in, in.Codes)
			for _, other := range others {
				o.logger.Info("collapsing stations",
					zap.String("into", base.FirstCode()),
					zap.String("station", other.FirstCode()),
				)
				absorb(base, other, other.Codes)
				w.removed[other] = true
				collapsed++
			}
		}
		register(base, true)
		merged++
	}
	return merged, appended, collapsed
}

func mergeOnValue(w *workingList, incoming []*models.Station, key MergeKey) (int, int) {
	index := make(map[string]*models.Station, len(w.list))
	for _, s := range w.list {
		if v, ok := keyValue(s, key); ok {
			index[v] = s
		}
	}

	var merged, appended int
	for _, in := range incoming {
		v, ok := keyValue(in, key)
		if base, found := index[v]; ok && found {
			base = w.writable(base)
			index[v] = base
			absorb(base, in, in.Codes)
			merged++
			continue
		}
		w.append(in)
		if ok {
			index[v] = in
		}
		appended++
	}
	return merged, appended
}

func containsStation(list []*models.Station, s *models.Station) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func sortByPosition(list []*models.Station, position map[*models.Station]int) {
	for i := 1; i < len(list); i++ {
		for j := i; j > 0 && position[list[j]] < position[list[j-1]]; j-- {
			list[j], list[j-1] = list[j-1], list[j]
		}
	}
}
