// Command diarizerd serves speaker diarization for recorded meetings over
// HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/ocobra/meeting-minutes-sub000/api"
	"github.com/ocobra/meeting-minutes-sub000/bootstrap"
	"github.com/ocobra/meeting-minutes-sub000/component"
	"github.com/ocobra/meeting-minutes-sub000/config"
	"github.com/ocobra/meeting-minutes-sub000/observability"
	"github.com/ocobra/meeting-minutes-sub000/server"
	"github.com/ocobra/meeting-minutes-sub000/service"
	"github.com/ocobra/meeting-minutes-sub000/version"
)

const serviceName = "diarizerd"

func main() {
	configFile := flag.String("config", "", "path to config.yml")
	envFile := flag.String("env", "", "path to .env file")
	flag.Parse()

	var cfg service.Config
	opts := []config.LoaderOption{config.WithEnvPrefix("DIARIZER")}
	if *configFile != "" {
		opts = append(opts, config.WithConfigFile(*configFile))
	}
	if *envFile != "" {
		opts = append(opts, config.WithEnvFile(*envFile))
	}
	if err := config.LoadConfig(serviceName, &cfg, opts...); err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.Version == "" {
		cfg.Version = version.Short()
	}

	app, err := bootstrap.NewApp(&cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if err := run(context.Background(), app); err != nil {
		app.Logger.Fatal("diarizerd exited with error", map[string]interface{}{"error": err.Error()})
	}
}

func run(ctx context.Context, app *bootstrap.App[*service.Config]) error {
	cfg := app.Cfg

	shutdownTelemetry, err := observability.Init(ctx, cfg.Name, cfg.Version, cfg.Environment, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	app.OnStop(bootstrap.Hook(shutdownTelemetry))

	svc, closeService, err := service.Build(ctx, *cfg, app.Logger)
	if err != nil {
		return fmt.Errorf("build service: %w", err)
	}

	srv := server.New(cfg.HTTP, app.Logger)
	srv.ApplyDefaults(cfg.Name, svc.Health)
	api.New(svc, app.Logger).Register(srv.GinEngine().Group("/api/v1"))

	purgeCtx, stopPurger := context.WithCancel(context.WithoutCancel(ctx))
	components := []component.Component{
		&component.Func{
			ComponentName: "diarization-service",
			StopFunc:      closeService,
		},
		&component.Func{
			ComponentName: "profile-purger",
			StartFunc: func(context.Context) error {
				go svc.RunProfilePurger(purgeCtx)
				return nil
			},
			StopFunc: func(context.Context) error {
				stopPurger()
				return nil
			},
		},
		server.NewComponent(srv),
	}
	for _, c := range components {
		if err := app.RegisterComponent(c); err != nil {
			stopPurger()
			return err
		}
	}
	return app.Run(ctx)
}
