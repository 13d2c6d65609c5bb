// Package validation scores a dataset for problems. Every issue carries a
// score; a dataset is fit for release when the total stays low.
package validation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/tcdata/railnet/internal/graph"
	"github.com/tcdata/railnet/internal/models"
	"github.com/tcdata/railnet/internal/routing"
)

// Issue scores
const (
	ScoreFatal            = 10000
	ScoreFastNonSFS       = 50
	ScoreVeryLongSegment  = 45
	ScoreLongSegment      = 5
	ScoreTwisting         = 5
	ScoreSFSNameNonSFS    = 20
	ScoreSFSName          = 5
	ScoreHiddenBranch     = 100
	ScoreSuggestionNoPath = 40
)

// Issue kinds
const (
	KindMissingField       = "missing_field"
	KindFastNonSFS         = "fast_non_sfs"
	KindNonElectrifiedSFS  = "non_electrified_sfs"
	KindLongSegment        = "long_segment"
	KindTwisting           = "twisting_factor"
	KindUnknownStation     = "unknown_station"
	KindSFSName            = "sfs_name"
	KindUnknownEquipment   = "unknown_equipment"
	KindDisconnected       = "disconnected"
	KindIsolatedStation    = "isolated_station"
	KindHiddenBranch       = "hidden_branch"
	KindSuggestionNoPath   = "suggestion_no_path"
	KindSuggestionNotSimpl = "suggestion_not_simple"
)

// Experimental selects whether path suggestions of tasks are recomputed
type Experimental int

const (
	ExperimentalOff Experimental = iota
	// ExperimentalOn reports suggestion problems without scoring them
	ExperimentalOn
	ExperimentalEnforce
)

// ParseExperimental parses "false", "true" or "enforce"
func ParseExperimental(s string) (Experimental, error) {
	switch s {
	case "", "false":
		return ExperimentalOff, nil
	case "true":
		return ExperimentalOn, nil
	case "enforce":
		return ExperimentalEnforce, nil
	default:
		return ExperimentalOff, fmt.Errorf("unknown experimental mode %q", s)
	}
}

// Issue is a single finding
type Issue struct {
	Kind    string `json:"kind"`
	Score   int    `json:"score"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// Report collects the issues of a run
type Report struct {
	Issues []Issue `json:"issues"`
}

// Total returns the sum of all scores
func (r *Report) Total() int {
	total := 0
	for _, i := range r.Issues {
		total += i.Score
	}
	return total
}

func (r *Report) add(kind string, score int, subject, message string) {
	r.Issues = append(r.Issues, Issue{Kind: kind, Score: score, Subject: subject, Message: message})
}

// Input is the dataset to validate. Equipment checks are skipped when
// Equipments is nil.
type Input struct {
	Stations   []models.StationRecord
	Paths      []models.PathRecord
	Equipments []string
	Tasks      []models.RawObject
}

// Validator runs the dataset checks
type Validator struct {
	router   *routing.Router
	validate *validator.Validate
	logger   *zap.Logger
}

// New creates a validator
func New(logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{
		router:   routing.NewRouter(logger),
		validate: validator.New(),
		logger:   logger,
	}
}

// Validate checks paths, the route graph and tasks
func (v *Validator) Validate(ctx context.Context, in Input, experimental Experimental) (*Report, error) {
	report := &Report{}

	known := make(map[string]bool)
	for _, code := range graph.StationCodes(in.Stations) {
		known[code] = true
	}

	paths := models.FlattenPaths(in.Paths)
	v.checkPaths(report, paths, known, in.Equipments)

	g, _ := graph.NewBuilder(v.logger).Build(graph.StationCodes(in.Stations), paths)
	v.checkGraph(report, g, graph.StationGroups(in.Stations))

	tasks, err := flattenTasks(in.Tasks)
	if err != nil {
		return nil, err
	}
	if err := v.checkTasks(ctx, report, g, tasks, known, experimental); err != nil {
		return nil, err
	}

	for _, issue := range report.Issues {
		v.logger.Warn(issue.Message,
			zap.String("kind", issue.Kind),
			zap.Int("score", issue.Score),
			zap.String("subject", issue.Subject),
		)
	}
	v.logger.Info("validation finished",
		zap.Int("issues", len(report.Issues)),
		zap.Int("score", report.Total()),
	)
	return report, nil
}

// requiredPathFields lists the members every path needs
type requiredPathFields struct {
	MaxSpeed *int     `validate:"required"`
	Length   *float64 `validate:"required"`
}

func describePath(p models.PathRecord) string {
	start, end := p.Endpoints()
	if p.Name != nil {
		return fmt.Sprintf("%s %s -> %s", *p.Name, start, end)
	}
	return fmt.Sprintf("%s -> %s", start, end)
}

func (v *Validator) checkPaths(report *Report, paths []models.PathRecord, known map[string]bool, equipments []string) {
	var equipmentSet map[string]bool
	if equipments != nil {
		equipmentSet = make(map[string]bool, len(equipments))
		for _, e := range equipments {
			equipmentSet[e] = true
		}
	}

	for _, p := range paths {
		subject := describePath(p)

		err := v.validate.Struct(requiredPathFields{MaxSpeed: p.MaxSpeed, Length: p.Length})
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				report.add(KindMissingField, ScoreFatal, subject, fmt.Sprintf("path has no %s", fe.Field()))
			}
		}

		group := 0
		if p.Group != nil {
			group = *p.Group
		}
		sfs := group == int(models.CategoryHighSpeed)

		if p.MaxSpeed != nil && *p.MaxSpeed >= 250 && !sfs {
			report.add(KindFastNonSFS, ScoreFastNonSFS, subject, "non-SFS path with at least 250 km/h")
		}
		if sfs && !p.IsElectrified() {
			report.add(KindNonElectrifiedSFS, ScoreFatal, subject, "SFS path is not electrified")
		}

		if p.Length != nil && group != 2 && group != 3 {
			switch {
			case *p.Length > 80:
				report.add(KindLongSegment, ScoreVeryLongSegment, subject, "non-SFS segment longer than 80 km")
			case *p.Length > 40:
				report.add(KindLongSegment, ScoreLongSegment, subject, "non-SFS segment longer than 40 km")
			}
		}

		if p.TwistingFactor != nil && *p.TwistingFactor > 0.5 {
			report.add(KindTwisting, ScoreTwisting, subject, "twistingFactor above 0.5")
		}

		start, end := p.Endpoints()
		if !known[start] {
			report.add(KindUnknownStation, ScoreFatal, start, "path starts at an unknown station")
		}
		if !known[end] {
			report.add(KindUnknownStation, ScoreFatal, end, "path ends at an unknown station")
		}

		if p.Name != nil && strings.Contains(*p.Name, "SFS") {
			if !sfs {
				report.add(KindSFSName, ScoreSFSNameNonSFS, subject, "path is named SFS but is no SFS")
			}
			report.add(KindSFSName, ScoreSFSName, subject, "path name repeats the SFS category")
		}

		if equipmentSet != nil {
			for _, e := range p.NeededEquipments {
				if !equipmentSet[e] {
					report.add(KindUnknownEquipment, ScoreFatal, subject, fmt.Sprintf("path needs unknown equipment %s", e))
				}
			}
		}
	}
}

func (v *Validator) checkGraph(report *Report, g *graph.RouteGraph, groups map[string]models.StationGroup) {
	if !g.Connected() {
		report.add(KindDisconnected, ScoreFatal, "", "the network is not connected")
		for _, n := range g.Isolated() {
			report.add(KindIsolatedStation, 0, n, "station without any path")
		}
	}

	hidden := models.DefaultHiddenGroups()
	for _, code := range g.Nodes() {
		if hidden[groups[code]] && g.Degree(code) != 2 {
			report.add(KindHiddenBranch, ScoreHiddenBranch, code, "hidden station is a junction or line end")
		}
	}
}

type taskRecord struct {
	Stations       []string `json:"stations"`
	PathSuggestion []string `json:"pathSuggestion"`
}

// flattenTasks expands nested objects; children inherit every member they
// do not set
func flattenTasks(tasks []models.RawObject) ([]taskRecord, error) {
	var out []taskRecord
	var walk func(parent *models.RawObject, list []models.RawObject) error
	walk = func(parent *models.RawObject, list []models.RawObject) error {
		for i := range list {
			merged := list[i].Clone()
			if parent != nil {
				merged = parent.Clone()
				for _, key := range list[i].Keys() {
					value, _ := list[i].Get(key)
					if err := merged.Set(key, value); err != nil {
						return err
					}
				}
			}

			var children []models.RawObject
			found, err := merged.Decode("objects", &children)
			if err != nil {
				return err
			}
			if found {
				merged.Delete("objects")
				if err := walk(&merged, children); err != nil {
					return err
				}
				continue
			}

			var rec taskRecord
			if err := merged.Into(&rec); err != nil {
				return err
			}
			out = append(out, rec)
		}
		return nil
	}
	if err := walk(nil, tasks); err != nil {
		return nil, fmt.Errorf("failed to read tasks: %w", err)
	}
	return out, nil
}

func (v *Validator) checkTasks(ctx context.Context, report *Report, g *graph.RouteGraph, tasks []taskRecord, known map[string]bool, experimental Experimental) error {
	noPathScore, notSimpleScore := 0, 0
	if experimental == ExperimentalEnforce {
		noPathScore, notSimpleScore = ScoreSuggestionNoPath, ScoreFatal
	}

	cfg := routing.DefaultConfig()
	cfg.DistanceOnly = true

	for _, task := range tasks {
		for _, code := range task.Stations {
			if !known[code] {
				report.add(KindUnknownStation, ScoreFatal, code, "task uses an unknown station")
			}
		}

		if experimental == ExperimentalOff || len(task.PathSuggestion) == 0 {
			continue
		}
		subject := strings.Join(task.PathSuggestion, " ")

		_, err := v.router.Suggest(ctx, g, task.PathSuggestion, cfg)
		var noPath *routing.NoPathError
		var unknown *routing.UnknownStationError
		switch {
		case err == nil:
		case errors.As(err, &noPath):
			report.add(KindSuggestionNoPath, noPathScore, subject,
				fmt.Sprintf("no path for pathSuggestion between %s and %s", noPath.From, noPath.To))
		case errors.As(err, &unknown):
			report.add(KindSuggestionNoPath, noPathScore, subject,
				fmt.Sprintf("pathSuggestion uses unknown station %s", unknown.Code))
		case errors.Is(err, routing.ErrNotSimple):
			report.add(KindSuggestionNotSimpl, notSimpleScore, subject, "pathSuggestion contains a cycle")
		default:
			return err
		}
	}
	return nil
}
