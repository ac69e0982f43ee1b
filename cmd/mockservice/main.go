// Command mockservice serves the fixture-driven mock frontend described in
// the mock frontend, for integration tests that want canned resource responses
// without standing up real agents.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/google/ecclesia-mmaster/internal/frontend"
	"github.com/google/ecclesia-mmaster/internal/mockfrontend"
	"github.com/google/ecclesia-mmaster/pkg/config"
	"github.com/google/ecclesia-mmaster/pkg/logger"
	"github.com/google/ecclesia-mmaster/pkg/server"
)

func main() {
	fixtureDir := flag.String("fixture_dir", "", "directory of YAML Query<R>Response fixtures, grouped by resource-type prefix")
	flag.Parse()

	if err := run(*fixtureDir); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(fixtureDir string) error {
	if fixtureDir == "" {
		return fmt.Errorf("mockservice: --fixture_dir is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger.InitWithConfig(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})

	svc, err := mockfrontend.Load(fixtureDir)
	if err != nil {
		return fmt.Errorf("loading fixtures: %w", err)
	}

	srv := server.New(cfg, frontend.ServerOption())
	frontend.Register(srv.GetEngine(), svc)

	return srv.Run()
}
