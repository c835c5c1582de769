package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	api "github.com/mind-engage/mindengage-courses/internal/api/http"
	"github.com/mind-engage/mindengage-courses/internal/assessment"
	auth "github.com/mind-engage/mindengage-courses/internal/auth/middleware"
	"github.com/mind-engage/mindengage-courses/internal/catalog"
	"github.com/mind-engage/mindengage-courses/internal/config"
	"github.com/mind-engage/mindengage-courses/internal/db"
	"github.com/mind-engage/mindengage-courses/internal/grading"
	"github.com/mind-engage/mindengage-courses/internal/media"
	"github.com/mind-engage/mindengage-courses/internal/observability"
	"github.com/mind-engage/mindengage-courses/internal/ratelimit"
	"github.com/mind-engage/mindengage-courses/internal/storage"
	syncx "github.com/mind-engage/mindengage-courses/internal/sync"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config overlay")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(observability.NewLogger(os.Stdout, cfg.Mode == config.ModeOnline, cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("gateway stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	tel, err := observability.New(ctx, observability.Config{
		ServiceName:  cfg.Telemetry.ServiceName,
		Environment:  string(cfg.Mode),
		OTLPEndpoint: cfg.Telemetry.Endpoint,
		Enabled:      cfg.Telemetry.Enabled,
		Insecure:     cfg.Telemetry.Insecure,
	})
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tel.Shutdown(sctx)
	}()

	// --- DB ---
	octx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	dbh, err := db.Open(octx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		return err
	}
	defer dbh.Close()

	tests := assessment.NewSQLStore(dbh, cfg.DBDriver)
	courses := catalog.NewSQLReader(dbh, cfg.DBDriver)
	users := auth.NewSQLUsers(dbh, cfg.DBDriver)
	events := syncx.NewEventRepo(dbh, cfg.DBDriver, cfg.SiteID)

	// --- Media ---
	mediaStore, err := storage.Open(octx, storage.Config{
		Driver:   cfg.Media.Driver,
		BasePath: cfg.Media.BasePath,
		Bucket:   cfg.Media.Bucket,
		Prefix:   cfg.Media.Prefix,
		Region:   cfg.Media.Region,
		Endpoint: cfg.Media.Endpoint,
	})
	if err != nil {
		return err
	}
	defer storage.Close(mediaStore)

	limiter, err := buildLimiter(ctx, cfg.RateLimit)
	if err != nil {
		return err
	}

	authSvc := auth.NewAuthService(cfg.AuthSecret)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins(),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Range"},
		ExposedHeaders:   []string{"Content-Length", "Content-Range", "Accept-Ranges"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Local login (offline by default; can be enabled online via env)
	if cfg.EnableLocalAuth {
		r.With(middleware.Timeout(15*time.Second)).
			Post("/auth/login", auth.LoginHandler(authSvc, users, cfg.Mode == config.ModeOffline))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := dbh.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	// Protected API (JWT → role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))
		if cfg.Mode == config.ModeOnline {
			pr.Use(auth.AttachRoleFromDB(users, false))
		}
		api.MountCourses(pr, api.Deps{
			Tests:     tests,
			Tracker:   assessment.NewTracker(tests, courses),
			Grader:    grading.NewEngine(),
			Guard:     media.NewGuard(courses),
			Streamer:  media.NewStreamer(mediaStore),
			Events:    events,
			Limiter:   limiter,
			Telemetry: tel,
		})
	})

	// No WriteTimeout: video responses may run long.
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	errc := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", cfg.HTTPAddr, "mode", cfg.Mode, "db", cfg.DBDriver, "media", cfg.Media.Driver)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	slog.Info("shutting down")
	sctx, scancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer scancel()
	return srv.Shutdown(sctx)
}

// buildLimiter returns nil when rate limiting is off.
func buildLimiter(ctx context.Context, rl config.RateLimit) (ratelimit.Limiter, error) {
	switch rl.Backend {
	case "off":
		return nil, nil
	case "redis":
		client := ratelimit.NewRedisClient(rl.RedisAddr, rl.RedisPassword, rl.RedisDB)
		pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := client.Ping(pctx).Err(); err != nil {
			// the middleware fails open, so an unreachable redis only disables limiting
			slog.Warn("redis unreachable at startup", "addr", rl.RedisAddr, "error", err)
		}
		return ratelimit.NewRedis(client, rl.RPS, rl.Burst), nil
	default:
		m := ratelimit.NewMemory(rl.RPS, rl.Burst)
		go m.Run(ctx)
		return m, nil
	}
}
