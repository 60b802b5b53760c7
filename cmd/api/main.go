package main

// @title           PTAM Billing API
// @version         1.0
// @description     Subscriptions, report credits and payment gateways of the PTAM appraisal platform.

// @host      localhost:8888
// @BasePath  /

// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/ptamhub/billing/internal/app"
)

func main() {
	if err := run(); err != nil {
		// the app logger may not exist yet
		zap.NewExample().Sugar().Error(err)
		os.Exit(1)
	}
}

// run starts the API and blocks until SIGINT or SIGTERM.
func run() error {
	a := fx.New(app.Module)

	startCtx, cancel := context.WithTimeout(context.Background(), app.DefaultStartTimeout)
	defer cancel()
	if err := a.Start(startCtx); err != nil {
		return fmt.Errorf("failed to start billing api: %w", err)
	}

	sig := <-a.Wait()

	stopCtx, cancelStop := context.WithTimeout(context.Background(), app.DefaultStopTimeout)
	defer cancelStop()
	if err := a.Stop(stopCtx); err != nil {
		return fmt.Errorf("failed to stop billing api: %w", err)
	}
	if sig.ExitCode != 0 {
		return fmt.Errorf("billing api exited with code %d", sig.ExitCode)
	}
	return nil
}
