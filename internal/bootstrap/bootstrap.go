// Package bootstrap wires configuration into the catalog cache and the
// external providers shared by the server and the CLI.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/bosocmputer/product_label_matcher/configs"
	"github.com/bosocmputer/product_label_matcher/internal/ai"
	"github.com/bosocmputer/product_label_matcher/internal/catalog"
	"github.com/bosocmputer/product_label_matcher/internal/resolver"
	"github.com/bosocmputer/product_label_matcher/internal/storage"
	"go.uber.org/zap"
)

// Services holds everything a resolution run needs.
type Services struct {
	Catalog *storage.CatalogCache
	Deps    resolver.Dependencies
	Options resolver.Options

	closers []io.Closer
	logger  *zap.Logger
}

// NewCatalog creates the catalog cache from CATALOG_* settings.
func NewCatalog(logger *zap.Logger) (*storage.CatalogCache, error) {
	schema := catalog.DefaultSchema()
	if configs.CATALOG_SCHEMA_FILE != "" {
		s, err := catalog.LoadSchema(configs.CATALOG_SCHEMA_FILE)
		if err != nil {
			return nil, err
		}
		schema = s
	}

	src, err := storage.OpenSource(storage.SourceConfigFromEnv())
	if err != nil {
		return nil, err
	}
	ttl := time.Duration(configs.CATALOG_REFRESH_MINUTES) * time.Minute
	return storage.NewCatalogCache(src, schema, ttl, logger), nil
}

// NewServices creates the catalog cache and both providers. Call Close
// when done.
func NewServices(ctx context.Context, logger *zap.Logger) (*Services, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cache, err := NewCatalog(logger)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}

	s := &Services{Catalog: cache, Options: resolver.OptionsFromEnv(), logger: logger}
	cfg := ai.ConfigFromEnv()

	gen, err := ai.CreateGenerator(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("generation provider: %w", err)
	}
	s.track(gen)

	rec, err := ai.CreateRecognizer(ctx, cfg, logger)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("OCR provider: %w", err)
	}
	s.track(rec)

	s.Deps = resolver.Dependencies{
		Generator:  gen,
		Recognizer: rec,
		Images:     resolver.NewHTTPImageLoader(time.Duration(configs.IMAGE_FETCH_TIMEOUT_SEC) * time.Second),
	}
	return s, nil
}

func (s *Services) track(v interface{}) {
	if c, ok := v.(io.Closer); ok {
		s.closers = append(s.closers, c)
	}
}

// Close releases provider clients.
func (s *Services) Close() {
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			s.logger.Warn("failed to close provider client", zap.Error(err))
		}
	}
	s.closers = nil
}
