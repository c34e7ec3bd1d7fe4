package migrate

import (
	"context"
	"fmt"

	"github.com/landmarklens/landmark-api/pkg/config"
	"github.com/landmarklens/landmark-api/pkg/db"
	"github.com/landmarklens/landmark-api/pkg/logger"
)

// AutoRun applies the embedded migrations on startup when
// LANDMARK_AUTO_MIGRATE is set. Outside dev it also logs a warning.
func AutoRun(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "source": "embedded"})
	if !cfg.App.IsDev() {
		logg.Warn(ctx, "auto-migrate enabled outside dev")
	}

	runner, err := NewRunner(sqlDB, Embedded(), logg)
	if err != nil {
		return err
	}
	if err := runner.Run(ctx, "up"); err != nil {
		return err
	}
	logg.Info(ctx, "schema migrations applied")
	return nil
}
