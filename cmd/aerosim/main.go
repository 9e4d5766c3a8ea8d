package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/joho/godotenv"

	"aerosim/internal/api"
	"aerosim/pkg/config"
	"aerosim/pkg/core"
	"aerosim/pkg/db"
	"aerosim/pkg/db/maintenance"
	"aerosim/pkg/flight"
	"aerosim/pkg/input"
	"aerosim/pkg/logging"
	"aerosim/pkg/obstacle"
	"aerosim/pkg/probe"
	"aerosim/pkg/session"
	"aerosim/pkg/sim"
	"aerosim/pkg/store"
	"aerosim/pkg/version"
)

const defaultConfigPath = "configs/aerosim.yaml"

const (
	progressDistance = 1000.0 // meters between progress log lines
	pruneInterval    = time.Hour
)

var (
	configPath = flag.String("config", defaultConfigPath, "Path to the config file")
	initConfig = flag.Bool("init-config", false, "Generate default config file and exit")
	scriptPath = flag.String("script", "", "Fly a YAML input script instead of browser keys")
)

func main() {
	flag.Parse()

	// A missing .env is normal
	_ = godotenv.Load()

	// Handle --init-config flag
	if *initConfig {
		if err := config.GenerateDefault(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Config file generated: %s\n", *configPath)
		return
	}

	if err := run(context.Background(), *configPath, *scriptPath); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfgPath, script string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	appCfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cleanupLogs, err := logging.Init(&appCfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()

	slog.Info("aerosim Started", "version", version.String())

	dbConn, st, err := initDB(appCfg)
	if err != nil {
		return err
	}
	defer dbConn.Close()

	if err := maintenance.Run(ctx, st, dbConn, maintenance.DefaultRetention); err != nil {
		slog.Error("Maintenance tasks failed", "error", err)
	}

	grid, err := initWorld(appCfg)
	if err != nil {
		return err
	}
	// A typed nil would defeat the session's nil check.
	var obstacles flight.ObstacleIndex
	nObstacles := 0
	if grid != nil {
		obstacles = grid
		nObstacles = grid.Len()
	}

	spawn := mgl64.Vec3{appCfg.Sim.StartX.Meters(), 0, appCfg.Sim.StartZ.Meters()}
	prov := config.NewProvider(appCfg, st)

	// Startup Probes
	probes := []probe.Probe{
		{Name: "State Store", Check: probe.StateStore(st), Critical: true},
		{Name: "Vehicle Profiles", Check: probe.Vehicles(appCfg, spawn), Critical: true},
	}
	if grid != nil {
		_, prof := prov.Profile(ctx)
		probes = append(probes, probe.Probe{
			Name:     "Spawn Clearance",
			Check:    probe.SpawnClear(prof, grid, spawn),
			Critical: false, // The vehicle crashes on spawn, but the server still runs
		})
	}
	if err := probe.AnalyzeResults(probe.Run(ctx, probes)); err != nil {
		return fmt.Errorf("startup checks failed: %w", err)
	}

	keys := input.NewKeyboard()
	var src input.Source = keys
	if script != "" {
		sc, err := input.LoadScript(script)
		if err != nil {
			return fmt.Errorf("failed to load input script: %w", err)
		}
		slog.Info("Flying input script", "path", script, "duration", sc.Duration())
		src = sc
	}

	sess := session.New(session.Options{
		Provider:     prov,
		Obstacles:    obstacles,
		Input:        src,
		Log:          st,
		Spawn:        spawn,
		TickInterval: appCfg.Sim.TickInterval(),
		MaxStep:      appCfg.Sim.MaxStep.Std(),
	})

	telH := api.NewTelemetryHandler()
	streamH := api.NewStreamHandler()
	defer streamH.Close()
	sess.AddSink(telH)
	sess.AddSink(streamH)

	// Scheduler
	sched := setupScheduler(st, dbConn, sess)
	sess.AddSink(sched)
	go sched.Start(ctx)

	sessDone := make(chan struct{})
	go func() {
		defer close(sessDone)
		if err := sess.Run(ctx); err != nil {
			slog.Error("Session stopped", "error", err)
		}
	}()

	err = runServer(ctx, appCfg, prov, sess, keys, st, telH, streamH, nObstacles)

	// Stop the loop and let it close the active flight before the DB goes away.
	cancel()
	<-sessDone
	return err
}

func initDB(appCfg *config.Config) (*db.DB, store.Store, error) {
	dbConn, err := db.Init(appCfg.DB.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return dbConn, store.NewSQLiteStore(dbConn), nil
}

// initWorld loads the obstacle file. It returns nil for an open field.
func initWorld(appCfg *config.Config) (*obstacle.Grid, error) {
	path := appCfg.World.ObstacleFile
	if path == "" {
		slog.Info("No obstacle file configured, flying over an open field")
		return nil, nil
	}
	obs, err := obstacle.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load obstacles: %w", err)
	}
	grid, err := obstacle.NewGrid(appCfg.World.CellSize.Meters(), obs)
	if err != nil {
		return nil, fmt.Errorf("failed to index obstacles: %w", err)
	}
	slog.Info("Obstacles loaded", "path", path, "count", grid.Len(), "cells", grid.Cells())
	return grid, nil
}

func setupScheduler(st store.Store, dbConn *db.DB, sess *session.Session) *core.Scheduler {
	sched := core.NewScheduler()
	sched.AddJob(core.NewCheckpointJob(st, sess, core.DefaultCheckpointInterval))
	sched.AddJob(core.NewProgressJob(progressDistance))
	sched.AddJob(core.NewTimeJob("FlightRetention", pruneInterval, func(ctx context.Context, _ sim.Telemetry) {
		if n, err := dbConn.PruneFlights(ctx, maintenance.DefaultRetention); err != nil {
			slog.Error("Retention: prune failed", "error", err)
		} else if n > 0 {
			slog.Info("Retention: pruned old flights", "count", n)
		}
	}))
	return sched
}

func runServer(ctx context.Context, cfg *config.Config, prov config.Provider, sess *session.Session, keys *input.Keyboard, st store.Store, telH *api.TelemetryHandler, streamH *api.StreamHandler, nObstacles int) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)
	shutdownFunc := func() { quit <- syscall.SIGTERM }

	srv := api.NewServer(cfg.Server.Address, api.Handlers{
		Telemetry: telH,
		Controls:  api.NewControlHandler(keys, sess),
		Settings:  api.NewSettingsHandler(prov, sess),
		Flights:   api.NewFlightHandler(sess, st),
		Stream:    streamH,
		Stats:     api.NewStatsHandler(telH, streamH, nObstacles),
		Shutdown:  shutdownFunc,
	})

	srv.Handler = loggingMiddleware(srv.Handler)
	return runServerLifecycle(ctx, srv, quit)
}

func runServerLifecycle(ctx context.Context, srv *http.Server, quit chan os.Signal) error {
	slog.Info("Starting server", "addr", srv.Addr)
	serverErrors := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()
	select {
	case <-quit:
		slog.Info("Shutting down server...")
	case <-ctx.Done():
		slog.Info("Context cancelled, shutting down...")
	case err := <-serverErrors:
		return fmt.Errorf("server failed: %w", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logging.RequestLogger.Info("Request Processed", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
