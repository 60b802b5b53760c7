// Command jobs runs the reconciliation sweeps once and exits. Schedule it with cron
// or a Kubernetes CronJob as an alternative to calling the HTTP job endpoints.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/ptamhub/billing/internal/app"
	"github.com/ptamhub/billing/internal/app/service/reconcile"
)

func main() {
	jobs := flag.String("jobs", strings.Join(reconcile.Jobs, ","), "comma separated sweeps to run")
	timeout := flag.Duration("timeout", 10*time.Minute, "deadline for all sweeps")
	flag.Parse()

	if err := run(strings.Split(*jobs, ","), *timeout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(jobs []string, timeout time.Duration) error {
	var (
		svc *reconcile.Service
		log *zap.SugaredLogger
	)
	a := fx.New(app.Core, fx.NopLogger, fx.Populate(&svc, &log))
	startCtx, cancel := context.WithTimeout(context.Background(), app.DefaultStartTimeout)
	defer cancel()
	if err := a.Start(startCtx); err != nil {
		return fmt.Errorf("failed to start app: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), app.DefaultStopTimeout)
		defer cancel()
		if err := a.Stop(stopCtx); err != nil {
			log.Errorw("failed to stop app", "error", err)
		}
	}()

	ctx, cancelRun := context.WithTimeout(context.Background(), timeout)
	defer cancelRun()
	failed := 0
	for _, job := range jobs {
		job = strings.TrimSpace(job)
		if job == "" {
			continue
		}
		report, err := svc.Run(ctx, job)
		if err != nil {
			failed++
			log.Errorw("sweep failed", "job", job, "error", err)
			continue
		}
		log.Infow("sweep finished", "job", job, "processed", report.Processed, "skipped", report.Skipped,
			"renewed", report.Renewed, "expired", report.Expired, "failed", report.Failed)
	}
	if failed > 0 {
		return fmt.Errorf("%d sweep(s) failed", failed)
	}
	return nil
}
