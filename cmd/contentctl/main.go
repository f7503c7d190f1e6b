// Package main runs the contentctl content catalog tool.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prestigeprep/prep/internal/cmd/contentctl"
	"github.com/prestigeprep/prep/internal/platform/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := contentctl.Execute(ctx, os.Args[1:])
	stop()
	if err != nil {
		config.Exitf("Error: %v", err)
	}
}
