package main

import (
	"os"

	"go.uber.org/fx"

	"github.com/ronappleton/studioflow/internal/cli"
	"github.com/ronappleton/studioflow/internal/config"
	"github.com/ronappleton/studioflow/internal/database"
	"github.com/ronappleton/studioflow/internal/discovery"
	"github.com/ronappleton/studioflow/internal/escalation"
	grpcserver "github.com/ronappleton/studioflow/internal/grpc"
	"github.com/ronappleton/studioflow/internal/httpserver"
	"github.com/ronappleton/studioflow/internal/logging"
	"github.com/ronappleton/studioflow/internal/otel"
	"github.com/ronappleton/studioflow/internal/templatesync"
	"github.com/ronappleton/studioflow/internal/workflow"
)

func main() {
	rootCmd := cli.NewRootCommand(func(configPath string) error {
		startServer(configPath)
		return nil
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func startServer(configPath string) {
	app := fx.New(
		config.Module(configPath),
		logging.Module(),
		otel.Module(),
		database.Module(),
		workflow.Module(),
		templatesync.Module(),
		escalation.Module(),
		grpcserver.Module,
		httpserver.Module(),
		discovery.Module(),
	)

	app.Run()
}
