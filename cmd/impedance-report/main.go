package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"impedancecli/internal/app"
	apperrors "impedancecli/internal/errors"
	"impedancecli/internal/operations"
)

const shutdownTimeout = 10 * time.Second

// exitCode maps a run error to the process exit status
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	if operations.GetErrorType(err) == operations.ErrorTypeCancellation {
		return 130
	}
	return 1
}

func main() {
	// Configuration comes from config.yaml and IMPEDANCE_* variables only.
	a, err := app.NewApplication(nil)
	if err != nil {
		slog.Error("failed to initialize application", "error", err, "error_type", string(apperrors.TypeOf(err)))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	report, runErr := a.Run(ctx)
	stop()

	if runErr != nil {
		a.Logger.Error("report run failed",
			slog.String("error", runErr.Error()),
			slog.String("error_type", string(apperrors.TypeOf(runErr))),
			slog.String("step", operations.FailedStep(runErr)))
	} else {
		fmt.Printf("%s: %d file(s), archive %s, notification %s\n",
			report.Week, report.Files, report.Archive, notificationLabel(report))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.Shutdown(shutdownCtx); err != nil {
		slog.Warn("shutdown incomplete", "error", err)
	}

	if code := exitCode(runErr); code != 0 {
		os.Exit(code)
	}
}

func notificationLabel(r *operations.RunReport) string {
	if r.Notification == "" {
		return "not sent"
	}
	return r.Notification
}
