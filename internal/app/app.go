// Package app wires configuration into the running services shared by the
// HTTP API and the terminal runner.
package app

import (
	"context"
	"fmt"

	"xstream/internal/infra"
	"xstream/internal/infra/credentials"
	"xstream/internal/infra/geoip"
	"xstream/internal/library"
	"xstream/internal/providers/genai"
	"xstream/internal/providers/video"
	"xstream/internal/storage"
	"xstream/internal/workflow"
)

// Services are the long-lived collaborators built from Config.
type Services struct {
	Config    *infra.Config
	Logger    infra.Logger
	Generator *genai.Factory
	Registry  *workflow.Registry
	Library   *library.Library
	Blobs     storage.BlobStore
	Tokens    credentials.TokenStore
	Keys      credentials.KeySelector
	Countries geoip.CountryResolver

	closers []func()
}

// New builds the services. Without DATABASE_URL credentials live in memory;
// without BLOB_STORAGE_PATH videos are kept in memory.
func New(ctx context.Context, cfg *infra.Config, logger infra.Logger) (*Services, error) {
	s := &Services{Config: cfg, Logger: logger, Library: library.New()}

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	var keySource genai.KeySource
	if pool != nil {
		s.closers = append(s.closers, pool.Close)
		store := credentials.NewStore(infra.NewSQLRunner(pool, *infra.Component(&logger, "credentials")))
		s.Tokens = store
		keySource = store
	} else {
		s.Tokens = credentials.NewMemoryStore()
	}
	if cfg.VideoKeySelection {
		s.Keys = credentials.NewStoreSelector(s.Tokens)
	}

	if cfg.BlobStoragePath != "" {
		files, err := storage.NewFileStore(cfg.BlobStoragePath)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("blob storage: %w", err)
		}
		s.Blobs = files
	} else {
		s.Blobs = storage.NewMemoryStore()
	}

	countries, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	} else if countries != nil {
		s.Countries = countries
		if closer, ok := countries.(interface{ Close() error }); ok {
			s.closers = append(s.closers, func() { _ = closer.Close() })
		}
	}

	s.Generator = genai.NewFactory(genai.Options{
		APIKey:     cfg.GeminiAPIKey,
		BaseURL:    cfg.GeminiBaseURL,
		ImageModel: cfg.GeminiImageModel,
		EditModel:  cfg.GeminiEditModel,
		TextModel:  cfg.GeminiTextModel,
		VideoModel: cfg.GeminiVideoModel,
		Logger:     infra.Component(&logger, "genai"),
	}, keySource)

	s.Registry = workflow.NewRegistry(workflow.Deps{
		Generator: s.Generator,
		Video:     s.Generator,
		Polling: video.Options{
			Interval: cfg.VideoPollInterval,
			Timeout:  cfg.VideoPollTimeout,
			Logger:   infra.Component(&logger, "video"),
		},
		Blobs:   s.Blobs,
		Library: s.Library,
		Keys:    s.Keys,
		Logger:  infra.Component(&logger, "workflow"),
	})
	return s, nil
}

// CountryLookup adapts the resolver for the locale middleware. It is nil
// when no GeoIP database is configured.
func (s *Services) CountryLookup() func(ip string) (string, error) {
	if s.Countries == nil {
		return nil
	}
	return s.Countries.CountryCode
}

// Close releases the database pool and the GeoIP reader.
func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}
