// Package contentctl implements the content catalog command line: listing and
// loading sets, pushing and promoting drafts, registering ingested files, and
// probing storage.
package contentctl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/prestigeprep/prep/internal/cmd/backend"
	"github.com/prestigeprep/prep/internal/content"
	entrypoint "github.com/prestigeprep/prep/internal/platform/cmd"
	"github.com/prestigeprep/prep/internal/platform/i18n"
	"github.com/prestigeprep/prep/internal/platform/logging"
	"github.com/prestigeprep/prep/internal/platform/timeouts"
)

// Config holds contentctl configuration.
type Config struct {
	Storage backend.Config
	Logging logging.Settings
}

// Opener returns a ready backend. Tests substitute a local one.
type Opener func(ctx context.Context) (*backend.Backend, error)

// BackendOpener opens the backend described by cfg on each command.
func BackendOpener(cfg backend.Config, logger *zap.Logger) Opener {
	return func(ctx context.Context) (*backend.Backend, error) {
		return backend.Open(ctx, cfg, backend.Options{Logger: logger})
	}
}

type cli struct {
	open Opener
}

// NewRootCommand builds the contentctl command tree over open.
func NewRootCommand(open Opener) *cobra.Command {
	c := &cli{open: open}
	root := &cobra.Command{
		Use:           entrypoint.ServiceContentCtl,
		Short:         "Manage prep content sets",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	sets := &cobra.Command{Use: "sets", Short: "List and load content sets"}
	sets.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List generated and registered sets",
			Args:  cobra.NoArgs,
			RunE:  c.withBackend(c.listSets),
		},
		&cobra.Command{
			Use:   "load <set>",
			Short: "Load a set and make it current",
			Args:  cobra.ExactArgs(1),
			RunE:  c.withBackend(c.loadSet),
		},
	)

	drafts := &cobra.Command{Use: "drafts", Short: "Push and promote drafts"}
	drafts.AddCommand(
		&cobra.Command{
			Use:   "push <set> <items.json>",
			Short: "Write a draft from a JSON array of items",
			Args:  cobra.ExactArgs(2),
			RunE:  c.withBackend(c.pushDraft),
		},
		&cobra.Command{
			Use:   "build <set>",
			Short: "Promote a draft into a servable set",
			Args:  cobra.ExactArgs(1),
			RunE:  c.withBackend(c.buildSet),
		},
	)

	ingest := &cobra.Command{
		Use:   "ingest <gcs-path>",
		Short: "Register an uploaded items file",
		Args:  cobra.ExactArgs(1),
		RunE:  c.withBackend(c.ingest),
	}
	ingest.Flags().Int("count", 0, "number of items in the file")

	diag := &cobra.Command{
		Use:   "diag",
		Short: "Probe object and document storage",
		Args:  cobra.NoArgs,
		RunE:  c.withBackend(c.diag),
	}

	root.AddCommand(sets, drafts, ingest, diag)
	return root
}

type backendFunc func(cmd *cobra.Command, args []string, b *backend.Backend) error

func (c *cli) withBackend(fn backendFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if c.open == nil {
			return errors.New("backend opener is required")
		}
		b, err := c.open(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = b.Close() }()
		return fn(cmd, args, b)
	}
}

func (c *cli) listSets(cmd *cobra.Command, _ []string, b *backend.Backend) error {
	sets, err := b.Content.ListSets(cmd.Context())
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEXAM\tCOUNT\tCREATED")
	for _, set := range sets {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", set.ID, dash(set.Exam), set.Count, dash(set.CreatedAt))
	}
	return w.Flush()
}

func (c *cli) loadSet(cmd *cobra.Command, args []string, b *backend.Backend) error {
	result, err := b.Content.LoadSet(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	p := i18n.Printer(i18n.DefaultLocale)
	fmt.Fprintf(cmd.OutOrStdout(), "Loaded %s (%s)\n", result.Set, p.Sprintf(i18n.KeyItemCount, result.Count))
	return nil
}

func (c *cli) pushDraft(cmd *cobra.Command, args []string, b *backend.Backend) error {
	data, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("read items: %w", err)
	}
	items, err := content.ParseJSONArray(data)
	if err != nil {
		return fmt.Errorf("parse %s: %w", args[1], err)
	}
	result, err := b.Content.PushDraft(cmd.Context(), args[0], items)
	if err != nil {
		return err
	}
	p := i18n.Printer(i18n.DefaultLocale)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Pushed %s (%s)\n", args[0], p.Sprintf(i18n.KeyItemCount, result.Index.Count))
	fmt.Fprintf(out, "  %s\n  %s\n", result.ItemsPath, result.IndexPath)
	return nil
}

func (c *cli) buildSet(cmd *cobra.Command, args []string, b *backend.Backend) error {
	result, err := b.Content.BuildSet(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	p := i18n.Printer(i18n.DefaultLocale)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Built %s (%s)\n", result.Set, p.Sprintf(i18n.KeyItemCount, result.Count))
	fmt.Fprintf(out, "  %s\n  %s\n", result.ItemsPath, result.IndexPath)
	return nil
}

func (c *cli) ingest(cmd *cobra.Command, args []string, b *backend.Backend) error {
	count, err := cmd.Flags().GetInt("count")
	if err != nil {
		return err
	}
	id, err := b.Content.Ingest(cmd.Context(), args[0], count)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), id)
	return nil
}

type probe struct {
	OK       bool   `json:"ok"`
	Error    string `json:"error,omitempty"`
	Bucket   string `json:"bucket,omitempty"`
	Location string `json:"location,omitempty"`
}

func (c *cli) diag(cmd *cobra.Command, _ []string, b *backend.Backend) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeouts.Diag)
	defer cancel()

	var objects, documents probe
	var group errgroup.Group
	group.Go(func() error {
		attrs, err := b.Bucket.Attrs(ctx)
		objects = probe{OK: err == nil, Bucket: attrs.Name, Location: attrs.Location}
		if err != nil {
			objects.Error = err.Error()
		}
		return nil
	})
	group.Go(func() error {
		err := b.Store.Ping(ctx)
		documents = probe{OK: err == nil}
		if err != nil {
			documents.Error = err.Error()
		}
		return nil
	})
	_ = group.Wait()

	if err := writeJSON(cmd.OutOrStdout(), map[string]probe{"objects": objects, "documents": documents}); err != nil {
		return err
	}
	if !objects.OK || !documents.OK {
		return errors.New("storage probe failed")
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// Execute runs contentctl with args against the backend configured by
// PREP_* environment variables.
func Execute(ctx context.Context, args []string) error {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return err
	}
	logger, err := logging.New(entrypoint.ServiceContentCtl, cfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	root := NewRootCommand(BackendOpener(cfg.Storage, logger))
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}
