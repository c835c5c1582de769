// Command seed loads a JSON or YAML fixture of users, courses, enrollments
// and tests into the configured database.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/mind-engage/mindengage-courses/internal/config"
	"github.com/mind-engage/mindengage-courses/internal/db"
	"github.com/mind-engage/mindengage-courses/internal/observability"
	"github.com/mind-engage/mindengage-courses/internal/seed"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config overlay")
	file := flag.String("file", "", "fixture file (.json, .yaml)")
	flag.Parse()

	if err := run(*configPath, *file); err != nil {
		slog.Error("seed failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath, file string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	slog.SetDefault(observability.NewLogger(os.Stderr, false, cfg.LogLevel))
	if file == "" {
		flag.Usage()
		os.Exit(2)
	}

	f, err := seed.Load(file)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		return err
	}
	defer dbh.Close()

	rep, err := seed.Apply(ctx, dbh, cfg.DBDriver, f)
	if err != nil {
		return err
	}
	slog.Info("fixture loaded", "file", file, "users", rep.Users, "courses", rep.Courses,
		"enrollments", rep.Enrollments, "videos", rep.Videos, "tests", rep.Tests)
	return nil
}
