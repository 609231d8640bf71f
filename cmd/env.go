package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/parcel-ingest/internal/collector"
	"github.com/sells-group/parcel-ingest/internal/fetcher"
	"github.com/sells-group/parcel-ingest/internal/pipeline"
	"github.com/sells-group/parcel-ingest/internal/store"
	"github.com/sells-group/parcel-ingest/pkg/fuzzy"
	"github.com/sells-group/parcel-ingest/pkg/geocode"
)

func initStore(ctx context.Context) (store.Store, error) {
	return store.Open(ctx, store.Config{
		Driver:      cfg.Store.Driver,
		DatabaseURL: cfg.Store.DatabaseURL,
		MaxConns:    cfg.Store.MaxConns,
		MinConns:    cfg.Store.MinConns,
	})
}

// initGeocoder returns nil when geocoding is turned off.
func initGeocoder() (*geocode.Client, error) {
	var provider geocode.Provider
	switch cfg.Geocode.Provider {
	case "none":
		return nil, nil
	case "census":
		opts := []geocode.CensusOption{geocode.WithCensusRateLimit(cfg.Geocode.RateLimit)}
		if cfg.Geocode.CensusURL != "" {
			opts = append(opts, geocode.WithCensusBaseURL(cfg.Geocode.CensusURL))
		}
		provider = geocode.NewCensusProvider(opts...)
	case "simulated", "":
		provider = geocode.NewSimulatedProvider()
	default:
		return nil, eris.Errorf("unsupported geocode provider: %s", cfg.Geocode.Provider)
	}

	return geocode.NewClient(provider,
		geocode.WithCacheSize(cfg.Geocode.CacheMaxSize),
		geocode.WithCircuitBreaker(cfg.Geocode.FailureThreshold,
			time.Duration(cfg.Geocode.ResetTimeoutSecs)*time.Second),
	), nil
}

// initPipeline builds a pipeline with the built-in source mappings and
// validation rules. client may be nil.
func initPipeline(client *geocode.Client) *pipeline.Pipeline {
	var g pipeline.Geocoder
	if client != nil {
		g = client
	}
	p := pipeline.New(g)
	p.RegisterDefaultSources()
	p.RegisterDefaultRules()
	return p
}

func initFetcher() *fetcher.Router {
	timeout := time.Duration(cfg.Collector.TimeoutSecs) * time.Second
	return fetcher.NewRouter(
		fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			UserAgent:  cfg.Collector.UserAgent,
			Timeout:    timeout,
			MaxRetries: cfg.Collector.MaxRetries,
			HostRate:   cfg.Collector.HostRate,
		}),
		fetcher.NewFTPFetcher(fetcher.FTPOptions{Timeout: timeout}),
	)
}

// initManager registers every built-in collector.
func initManager(deps collector.Deps) *collector.Manager {
	pacing := time.Duration(cfg.Collector.PacingDelayMs) * time.Millisecond
	if pacing <= 0 {
		pacing = -1
	}
	m := collector.NewManager(collector.ManagerOptions{
		MaxConcurrent: cfg.Collector.MaxConcurrent,
		PacingDelay:   pacing,
	})
	m.Register(collector.NewStMarysCollector(cfg.Collector.StMarysURL, cfg.Collector.MaxPages, deps))
	m.Register(collector.NewJSONCollector(deps))
	m.Register(collector.NewCSVCollector(deps))
	m.Register(collector.NewXLSXCollector(deps))
	m.Register(collector.NewShapefileCollector(deps))
	return m
}

func initMatcher() *fuzzy.Matcher {
	return fuzzy.New(
		fuzzy.WithThreshold(cfg.Fuzzy.Threshold),
		fuzzy.WithCaseSensitive(cfg.Fuzzy.CaseSensitive),
		fuzzy.WithIgnoreSpecialChars(cfg.Fuzzy.IgnoreSpecialChars),
		fuzzy.WithNormalizeAddresses(cfg.Fuzzy.NormalizeAddresses),
	)
}
