// Package stargaze orchestrates grid lookup, forecast assembly, event
// computation and scoring into the responses the API serves.
package stargaze

import (
	"context"
	"log/slog"

	"github.com/wmarcoyu/starchasers-dataserver/internal/config"
	"github.com/wmarcoyu/starchasers-dataserver/internal/domain"
	"github.com/wmarcoyu/starchasers-dataserver/internal/forecast"
	"github.com/wmarcoyu/starchasers-dataserver/internal/grid"
	"github.com/wmarcoyu/starchasers-dataserver/internal/observability"
	"github.com/wmarcoyu/starchasers-dataserver/internal/score"
	"github.com/wmarcoyu/starchasers-dataserver/internal/store"
)

// ParkDirectory is the subset of the parks store the service needs. Nil is
// allowed when the service runs without a parks database; park-based queries
// then fail with InvalidInput.
type ParkDirectory interface {
	Park(ctx context.Context, id string) (store.Park, error)
}

// Service serves forecast, almanac and park lookups. All fields are
// immutable after construction and safe for concurrent use.
type Service struct {
	dataDir    string
	assets     *grid.Assets
	lightMap   *grid.LightPollutionMap
	conversion *forecast.ConversionTable
	scores     *score.Table
	showers    []MeteorShower
	parks      ParkDirectory
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// New loads every static asset and wires the service.
func New(cfg *config.Config, parks ParkDirectory, logger *slog.Logger, metrics *observability.Metrics) (*Service, error) {
	assets, err := grid.LoadAssets(cfg.AssetPath(config.LatAssetFile), cfg.AssetPath(config.LngAssetFile))
	if err != nil {
		return nil, err
	}
	lightMap, err := grid.LoadLightPollutionMap(assets, cfg.AssetPath(config.LightPollutionFile))
	if err != nil {
		return nil, err
	}
	conversion, err := forecast.LoadConversionTable(cfg.AssetPath(config.TransparencyTableFile))
	if err != nil {
		return nil, err
	}
	scores, err := score.LoadTable(cfg.AssetPath(config.ScoreTableFile))
	if err != nil {
		return nil, err
	}
	showers, err := LoadMeteorShowers(cfg.AssetPath(config.MeteorShowerTableFile))
	if err != nil {
		return nil, err
	}

	return &Service{
		dataDir:    cfg.DataDir,
		assets:     assets,
		lightMap:   lightMap,
		conversion: conversion,
		scores:     scores,
		showers:    showers,
		parks:      parks,
		logger:     logger,
		metrics:    metrics,
	}, nil
}

// NewForTesting wires a service from in-memory pieces.
func NewForTesting(dataDir string, assets *grid.Assets, lightMap *grid.LightPollutionMap,
	conversion *forecast.ConversionTable, scores *score.Table, showers []MeteorShower,
	parks ParkDirectory, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		dataDir:    dataDir,
		assets:     assets,
		lightMap:   lightMap,
		conversion: conversion,
		scores:     scores,
		showers:    showers,
		parks:      parks,
		logger:     logger,
		metrics:    metrics,
	}
}

// Query identifies the observer of a request: either a park id or explicit
// coordinates. ReferenceDate overrides the dataset resolution date
// (YYYYMMDD) and is empty outside tests.
type Query struct {
	ParkID        string
	Lat           float64
	Lng           float64
	HasCoords     bool
	ReferenceDate string
}

// location resolves the query to coordinates, via the parks database when a
// park id is given.
func (s *Service) location(ctx context.Context, q Query) (domain.Location, string, error) {
	if q.ParkID != "" {
		if s.parks == nil {
			return domain.Location{}, "", domain.Errorf(domain.InvalidInput, "park lookups are not configured")
		}
		park, err := s.parks.Park(ctx, q.ParkID)
		if err != nil {
			return domain.Location{}, "", err
		}
		loc, err := domain.NewLocation(park.Lat, park.Lng)
		return loc, q.ParkID, err
	}
	if !q.HasCoords {
		return domain.Location{}, "", domain.Errorf(domain.InvalidInput, "either park_id or lat and lng are required")
	}
	loc, err := domain.NewLocation(q.Lat, q.Lng)
	return loc, "", err
}

// bortle resolves the Bortle class for a query, preferring the parks
// database record over the raster.
func (s *Service) bortle(ctx context.Context, q Query, loc domain.Location) (int, error) {
	if q.ParkID != "" && s.parks != nil {
		park, err := s.parks.Park(ctx, q.ParkID)
		if err != nil {
			return 0, err
		}
		return park.Bortle, nil
	}
	return s.lightMap.BortleAt(loc.Lat, loc.Lng)
}

// ParkName returns the display name of a park.
func (s *Service) ParkName(ctx context.Context, parkID string) (string, error) {
	if parkID == "" {
		return "", domain.Errorf(domain.InvalidInput, "park_id is required")
	}
	if s.parks == nil {
		return "", domain.Errorf(domain.InvalidInput, "park lookups are not configured")
	}
	park, err := s.parks.Park(ctx, parkID)
	if err != nil {
		return "", err
	}
	return park.FullName(), nil
}

// CheckReadiness reports whether both sources have a complete dataset to
// serve from.
func (s *Service) CheckReadiness(ctx context.Context) error {
	for _, kind := range []domain.DatasetKind{domain.DatasetGFS, domain.DatasetGEFS} {
		if _, err := forecast.Resolve(s.dataDir, kind, ""); err != nil {
			return err
		}
	}
	return nil
}
