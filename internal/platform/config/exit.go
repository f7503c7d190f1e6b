package config

import (
	"fmt"
	"io"
	"os"
)

// Exitf writes a formatted error message to stderr and exits with code 1.
// It provides a consistent fatal-exit pattern for CLI entry points.
func Exitf(format string, args ...any) {
	exitf(os.Stderr, os.Exit, format, args...)
}

func exitf(w io.Writer, exit func(int), format string, args ...any) {
	fmt.Fprintf(w, format+"\n", args...)
	exit(1)
}
