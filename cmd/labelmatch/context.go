package main

import (
	"fmt"

	"github.com/bosocmputer/product_label_matcher/configs"
	"github.com/bosocmputer/product_label_matcher/internal/bootstrap"
	"github.com/bosocmputer/product_label_matcher/internal/common"
	"github.com/bosocmputer/product_label_matcher/internal/resolver"
	"github.com/bosocmputer/product_label_matcher/internal/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// commandContext lazily loads configuration and services for subcommands.
type commandContext struct {
	catalogFlag  *string
	logLevelFlag *string
	jsonFlag     *bool

	configErr error
	logger    *zap.Logger
	services  *bootstrap.Services
}

func newCommandContext(catalogFlag, logLevelFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{catalogFlag: catalogFlag, logLevelFlag: logLevelFlag, jsonFlag: jsonFlag}
}

// loadConfig reads the environment. Validation errors are kept so that
// commands which need no providers can still run.
func (c *commandContext) loadConfig() error {
	c.configErr = configs.LoadConfig()
	if *c.catalogFlag != "" {
		configs.CATALOG_SOURCE = *c.catalogFlag
	}

	level := *c.logLevelFlag
	if level == "" {
		level = "warn"
	}
	logger, err := common.NewLogger(level, true)
	if err != nil {
		return err
	}
	c.logger = logger
	return nil
}

// catalog returns a catalog cache without creating any provider.
func (c *commandContext) catalog() (*storage.CatalogCache, error) {
	return bootstrap.NewCatalog(c.logger)
}

// resolver builds a resolver over the loaded catalog with both providers.
func (c *commandContext) resolver(cmd *cobra.Command) (*resolver.Resolver, error) {
	if c.configErr != nil {
		return nil, fmt.Errorf("configuration: %w", c.configErr)
	}
	if c.services == nil {
		services, err := bootstrap.NewServices(cmd.Context(), c.logger)
		if err != nil {
			return nil, err
		}
		c.services = services
	}

	idx, err := c.services.Catalog.Get(cmd.Context())
	if err != nil {
		return nil, err
	}
	return resolver.New(idx, c.services.Deps, c.services.Options, c.logger), nil
}

func (c *commandContext) close() {
	if c.services != nil {
		c.services.Close()
	}
	if c.logger != nil {
		_ = c.logger.Sync()
	}
}
