package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/medcoast/ges-cli/internal/earthengine"
	"github.com/medcoast/ges-cli/internal/engine"
	"github.com/medcoast/ges-cli/internal/export"
	"github.com/medcoast/ges-cli/internal/ges"
	"github.com/medcoast/ges-cli/internal/history"
	"github.com/medcoast/ges-cli/internal/region"
)

// appEnv holds the initialized backend client and the components built
// on it, shared by the run/serve/history commands.
type appEnv struct {
	Engine   engine.Engine
	Resolver *region.Resolver
	Pipeline *ges.Pipeline
	Exporter *export.Exporter
	History  *history.Store
}

// Close releases resources held by the environment.
func (a *appEnv) Close() {
	if a.History != nil {
		_ = a.History.Close()
	}
}

// initApp connects to the backend and wires the analysis components.
// Callers should defer env.Close().
func initApp(ctx context.Context) (*appEnv, error) {
	client, err := earthengine.NewClient(ctx,
		cfg.EarthEngine.Project,
		cfg.EarthEngine.CredentialsFile,
		earthengine.WithBaseURL(cfg.EarthEngine.BaseURL),
		earthengine.WithRateLimit(cfg.EarthEngine.RatePerSec),
	)
	if err != nil {
		return nil, eris.Wrap(err, "init backend client")
	}

	env := &appEnv{
		Engine: client,
		Resolver: region.NewResolver(client,
			cfg.Assets.Boundaries,
			cfg.Assets.BoundaryNameField,
			cfg.Assets.Coastline,
		),
		Pipeline: ges.NewPipeline(client, ges.Options{
			NDVIProduct: cfg.Assets.NDVIProduct,
			LSTProduct:  cfg.Assets.LSTProduct,
			ScaleM:      cfg.Analysis.ScaleM,
			MaxPixels:   cfg.Analysis.MaxPixels,
			MinLSTC:     cfg.Analysis.MinLSTC,
			MaxLSTC:     cfg.Analysis.MaxLSTC,
		}),
		Exporter: export.New(client, cfg.Export.Dir, cfg.Export.ScaleM),
	}

	if cfg.History.Path != "" {
		store, err := history.NewSQLite(cfg.History.Path)
		if err != nil {
			return nil, eris.Wrap(err, "open history store")
		}
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, eris.Wrap(err, "migrate history store")
		}
		env.History = store
	} else {
		zap.L().Debug("history path empty, run recording disabled")
	}

	return env, nil
}
