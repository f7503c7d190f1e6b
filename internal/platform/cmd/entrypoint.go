// Package cmd holds the startup plumbing shared by prep binaries: env then
// flag configuration, and a run loop wrapped in trace provider setup.
package cmd

import (
	"context"
	"errors"
	"flag"
	"strings"
	"time"

	"github.com/prestigeprep/prep/internal/platform/config"
	"github.com/prestigeprep/prep/internal/platform/logging"
	"github.com/prestigeprep/prep/internal/platform/otel"
	"github.com/prestigeprep/prep/internal/platform/timeouts"
	"go.uber.org/zap"
)

// Service names, used for telemetry resources and logger fields.
const (
	ServiceWeb        = "web"
	ServiceContentCtl = "contentctl"
)

// RunOptions controls how RunWithTelemetry wraps a service.
type RunOptions struct {
	Telemetry otel.Settings
	Logger    *zap.Logger
	// FlushTimeout bounds the final span export. Defaults to timeouts.Shutdown.
	FlushTimeout time.Duration
}

// ParseConfig fills cfg from PREP_* environment variables.
func ParseConfig[T any](cfg *T) error {
	if cfg == nil {
		return errors.New("config target is required")
	}
	return config.ParseEnv(cfg)
}

// ParseArgs applies command-line flags on top of env defaults already bound
// to fs.
func ParseArgs(fs *flag.FlagSet, args []string) error {
	if fs == nil {
		return errors.New("flag set is required")
	}
	if args == nil {
		args = []string{}
	}
	return fs.Parse(args)
}

// RunWithTelemetry installs the trace provider for service, runs fn and
// flushes spans once fn returns.
func RunWithTelemetry(ctx context.Context, service string, options RunOptions, fn func(context.Context) error) error {
	service = strings.TrimSpace(service)
	if service == "" {
		return errors.New("service name is required")
	}
	if fn == nil {
		return errors.New("run function is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	logger := logging.OrNop(options.Logger).With(zap.String("service", service))

	flush, err := otel.Setup(ctx, service, options.Telemetry)
	if err != nil {
		return err
	}
	defer func() {
		wait := options.FlushTimeout
		if wait <= 0 {
			wait = timeouts.Shutdown
		}
		flushCtx, cancel := context.WithTimeout(context.Background(), wait)
		defer cancel()
		if err := flush(flushCtx); err != nil {
			logger.Warn("telemetry flush failed", zap.Error(err))
		}
	}()

	logger.Debug("service starting", zap.Bool("tracing", options.Telemetry.Active()))
	err = fn(ctx)
	logger.Debug("service stopped", zap.Error(err))
	return err
}
