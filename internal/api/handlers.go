// Package api exposes the network over HTTP: code classification, station
// lookup, path suggestions, compression and dataset validation.
package api

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/tcdata/railnet/internal/codes"
	"github.com/tcdata/railnet/internal/routing"
	"github.com/tcdata/railnet/internal/validation"
)

// StationLookup resolves a code to every code of the same station. A nil
// set means the code is unknown.
type StationLookup interface {
	LookupStation(ctx context.Context, code string) (codes.CodeSet, error)
}

// HealthCheck reports the state of one backing service
type HealthCheck func(ctx context.Context) error

// Options wires the handler to the loaded network
type Options struct {
	Network   *routing.Network
	Service   *routing.Service
	Validator *validation.Validator
	// Dataset is validated by the validate endpoint
	Dataset  validation.Input
	Stations StationLookup
	Checks   map[string]HealthCheck
	Defaults routing.Config
	Presets  routing.Presets
	Timeout  time.Duration
	Logger   *zap.Logger
}

// Handler serves the HTTP endpoints
type Handler struct {
	opts     Options
	validate *validator.Validate
	logger   *zap.Logger
}

// NewHandler creates a handler
func NewHandler(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{opts: opts, validate: validator.New(), logger: logger}
}

// Register mounts all routes on router
func (h *Handler) Register(router fiber.Router) {
	router.Get("/health", h.Health)

	v1 := router.Group("/v1")
	v1.Get("/codes/:code", h.Code)
	v1.Get("/stations/:code", h.Station)
	v1.Get("/path-suggestion", h.PathSuggestion)
	v1.Post("/compress", h.Compress)
	v1.Get("/validate", h.Validate)
}

func (h *Handler) context(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	if h.opts.Timeout > 0 {
		return context.WithTimeout(c.UserContext(), h.opts.Timeout)
	}
	return context.WithCancel(c.UserContext())
}

func (h *Handler) invalid(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make(map[string]any, len(verrs))
		for _, fe := range verrs {
			details[fe.Field()] = fe.Tag()
		}
		return ErrInvalidRequest.WithDetails(details)
	}
	return ErrInvalidRequest.WithDetails(map[string]any{"error": err.Error()})
}

// Health handles the /health endpoint
func (h *Handler) Health(c *fiber.Ctx) error {
	ctx, cancel := h.context(c)
	defer cancel()

	checks := fiber.Map{}
	healthy := true
	for name, check := range h.opts.Checks {
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			healthy = false
			continue
		}
		checks[name] = "ok"
	}

	status, httpStatus := "healthy", fiber.StatusOK
	if !healthy {
		status, httpStatus = "unhealthy", fiber.StatusServiceUnavailable
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status": status,
		"checks": checks,
		"network": fiber.Map{
			"stations":    h.opts.Network.Graph.NodeCount(),
			"paths":       h.opts.Network.Graph.EdgeCount(),
			"fingerprint": h.opts.Network.Fingerprint,
		},
	})
}

// CodeResponse describes a single station code
type CodeResponse struct {
	Code           string   `json:"code"`
	Country        string   `json:"country,omitempty"`
	CountryName    string   `json:"countryName"`
	KnownCountry   bool     `json:"knownCountry"`
	Representation string   `json:"representation"`
	Rank           int      `json:"rank"`
	Local          string   `json:"local"`
	Equivalents    []string `json:"equivalents"`
}

// Code handles /v1/codes/:code
func (h *Handler) Code(c *fiber.Ctx) error {
	code, err := url.PathUnescape(c.Params("code"))
	if err != nil || code == "" {
		return ErrInvalidRequest.WithDetails(map[string]any{"code": "invalid path escape"})
	}

	country, rep, err := codes.Classify(code)
	return c.JSON(CodeResponse{
		Code:           code,
		Country:        country.ISO3166,
		CountryName:    country.Name,
		KnownCountry:   err == nil && country.Known(),
		Representation: rep.String(),
		Rank:           codes.Rank(code),
		Local:          codes.Local(code),
		Equivalents:    codes.Expand(code),
	})
}

// Station handles /v1/stations/:code
func (h *Handler) Station(c *fiber.Ctx) error {
	if h.opts.Stations == nil {
		return ErrUnavailable.WithDetails(map[string]any{"feature": "station lookup"})
	}
	code, err := url.PathUnescape(c.Params("code"))
	if err != nil || code == "" {
		return ErrInvalidRequest.WithDetails(map[string]any{"code": "invalid path escape"})
	}

	ctx, cancel := h.context(c)
	defer cancel()

	set, err := h.opts.Stations.LookupStation(ctx, code)
	if err != nil {
		return err
	}
	if set == nil {
		return ErrNotFound.WithDetails(map[string]any{"code": code})
	}
	return c.JSON(fiber.Map{
		"code":      code,
		"firstCode": set.First(),
		"codes":     set,
		"inNetwork": h.opts.Network.Graph.HasNode(set.First()),
	})
}

type suggestionRequest struct {
	Stations []string `validate:"min=2,max=100,dive,required"`
	Preset   string
	Service  int    `validate:"gte=-1"`
	MaxSpeed int    `validate:"gte=0"`
	Policy   string `validate:"omitempty,oneof=strict_degree keep_junction_neighbours"`
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// config resolves the routing configuration of a request: a named preset
// or the preset of a service level replaces the defaults, query flags
// override single settings
func (h *Handler) config(c *fiber.Ctx, req suggestionRequest) (routing.Config, error) {
	cfg := h.opts.Defaults
	switch {
	case req.Preset != "":
		preset, ok := h.opts.Presets.GetPreset(req.Preset)
		if !ok {
			return cfg, ErrInvalidRequest.WithDetails(map[string]any{"preset": "unknown preset " + req.Preset})
		}
		cfg = preset.Config
	case req.Service >= 0:
		cfg = h.opts.Presets.ForService(req.Service, cfg)
	}

	cfg.FullPath = c.QueryBool("full_path", cfg.FullPath)
	cfg.DistanceOnly = c.QueryBool("distance_only", cfg.DistanceOnly)
	cfg.UseSFS = c.QueryBool("use_sfs", cfg.UseSFS)
	cfg.AcceptNonElectrified = c.QueryBool("accept_non_electrified", cfg.AcceptNonElectrified)
	if avoid := splitList(c.Query("avoid_equipments")); len(avoid) > 0 {
		cfg.AvoidEquipments = avoid
	}
	if req.MaxSpeed > 0 {
		cfg.MaxSpeed = req.MaxSpeed
	}
	if req.Policy != "" {
		cfg.Policy = routing.CompressionPolicy(req.Policy)
	}
	return cfg, nil
}

func routingError(err error) error {
	var noPath *routing.NoPathError
	var unknown *routing.UnknownStationError
	switch {
	case errors.As(err, &noPath):
		return ErrNoPath.WithDetails(map[string]any{
			"from":    noPath.From,
			"to":      noPath.To,
			"partial": noPath.Partial,
		})
	case errors.As(err, &unknown):
		return ErrUnknownStation.WithDetails(map[string]any{"code": unknown.Code})
	case errors.Is(err, routing.ErrNotSimple):
		return ErrNotSimple.WithDetails(map[string]any{"error": err.Error()})
	default:
		return err
	}
}

// PathSuggestion handles /v1/path-suggestion?stations=A,B,C
func (h *Handler) PathSuggestion(c *fiber.Ctx) error {
	req := suggestionRequest{
		Stations: splitList(c.Query("stations")),
		Preset:   c.Query("preset"),
		Service:  c.QueryInt("service", -1),
		MaxSpeed: c.QueryInt("max_speed", 0),
		Policy:   c.Query("policy"),
	}
	if err := h.validate.Struct(req); err != nil {
		return h.invalid(err)
	}

	cfg, err := h.config(c, req)
	if err != nil {
		return err
	}

	ctx, cancel := h.context(c)
	defer cancel()

	suggestion, err := h.opts.Service.PathSuggestion(ctx, h.opts.Network, req.Stations, cfg)
	if err != nil {
		h.logger.Debug("path suggestion failed", zap.Strings("stations", req.Stations), zap.Error(err))
		return routingError(err)
	}

	return c.JSON(fiber.Map{
		"stations":       req.Stations,
		"pathSuggestion": suggestion,
	})
}

// CompressRequest is the body of /v1/compress
type CompressRequest struct {
	Waypoints []string `json:"waypoints" validate:"required,min=1,dive,required"`
	Path      []string `json:"path" validate:"required,min=1,dive,required"`
	Policy    string   `json:"policy" validate:"omitempty,oneof=strict_degree keep_junction_neighbours"`
}

// Compress handles /v1/compress
func (h *Handler) Compress(c *fiber.Ctx) error {
	var req CompressRequest
	if err := c.BodyParser(&req); err != nil {
		return ErrInvalidRequest.WithDetails(map[string]any{"error": "invalid request body"})
	}
	if err := h.validate.Struct(req); err != nil {
		return h.invalid(err)
	}

	g := h.opts.Network.Graph
	for _, code := range req.Path {
		if !g.HasNode(code) {
			return ErrUnknownStation.WithDetails(map[string]any{"code": code})
		}
	}

	policy := h.opts.Defaults.Policy
	if req.Policy != "" {
		policy = routing.CompressionPolicy(req.Policy)
	}
	return c.JSON(fiber.Map{
		"path": routing.Compress(g, req.Waypoints, req.Path, h.opts.Network.Hidden, policy),
	})
}

// Validate handles /v1/validate?experimental=false|true|enforce
func (h *Handler) Validate(c *fiber.Ctx) error {
	if h.opts.Validator == nil {
		return ErrUnavailable.WithDetails(map[string]any{"feature": "validation"})
	}
	experimental, err := validation.ParseExperimental(c.Query("experimental"))
	if err != nil {
		return ErrInvalidRequest.WithDetails(map[string]any{"experimental": err.Error()})
	}

	ctx, cancel := h.context(c)
	defer cancel()

	report, err := h.opts.Validator.Validate(ctx, h.opts.Dataset, experimental)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"score":  report.Total(),
		"issues": report.Issues,
	})
}
