package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/landmarklens/landmark-api/pkg/config"
	"github.com/landmarklens/landmark-api/pkg/db"
	"github.com/landmarklens/landmark-api/pkg/logger"
	"github.com/landmarklens/landmark-api/pkg/migrate"
)

func main() {
	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "up|down|status|version|create|validate")
	dir := flag.String("dir", "", "migrations directory on disk (default: the set compiled into this binary; create needs a path)")
	name := flag.String("name", "", "migration name, for -cmd=create")
	version := flag.String("version", "", "target YYYYMMDDHHMMSS, for -cmd=version")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "landmark-migrate"})
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		exit(ctx, logg, "load config", err)
	}
	logg = logger.New(logger.Options{
		ServiceName: "landmark-migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	source := *dir
	if source == "" {
		source = "embedded"
	}
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "cmd": *cmd, "source": source})

	switch *cmd {
	case "create":
		target := *dir
		if target == "" {
			target = migrate.DefaultDir
		}
		path, err := migrate.CreateSQLMigration(target, *name)
		if err != nil {
			exit(ctx, logg, "create migration", err)
		}
		logg.Info(logg.WithField(ctx, "path", path), "migration created")
		return

	case "validate":
		if err := migrate.Validate(migrate.Source(*dir)); err != nil {
			exit(ctx, logg, "validate migrations", err)
		}
		logg.Info(ctx, "migrations valid")
		return
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		exit(ctx, logg, "connect database", err)
	}
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		exit(ctx, logg, "extract sql.DB", err)
	}

	runner, err := migrate.NewRunner(sqlDB, migrate.Source(*dir), logg)
	if err != nil {
		exit(ctx, logg, "build migration runner", err)
	}

	if *cmd == "version" {
		err = runner.MigrateTo(ctx, *version)
	} else {
		err = runner.Run(ctx, *cmd)
	}
	if err != nil {
		_ = dbClient.Close()
		exit(ctx, logg, fmt.Sprintf("migrate %s", *cmd), err)
	}
}

func exit(ctx context.Context, logg *logger.Logger, step string, err error) {
	logg.Error(ctx, step+" failed", err)
	os.Exit(1)
}
