package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"slices"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/spf13/cobra"

	"github.com/zowe/perf-timing"
)

// WithSource opens the configured history for the duration of f.
func (c *cliConfig) withSource(ctx context.Context, f func(source) error) error {
	hc, err := c.History()
	if err != nil {
		return err
	}
	slog.DebugContext(ctx, "opening history", "dir", hc.Dir, "sink", hc.Sink)
	src, err := openSource(ctx, hc)
	if err != nil {
		return err
	}
	defer src.Close()
	return f(src)
}

// IndexArg parses the optional index argument, defaulting to the most recent
// document.
func indexArg(args []string) (int, error) {
	if len(args) == 0 {
		return 1, nil
	}
	i, err := strconv.Atoi(args[0])
	if err != nil || i < 1 {
		return 0, &perftiming.Error{
			Op:      `perf-timing`,
			Kind:    perftiming.ErrInvalid,
			Message: fmt.Sprintf("bad index %q: want a positive integer", args[0]),
		}
	}
	return i, nil
}

func listCmd(cfg *cliConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved documents, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return cfg.withSource(ctx, func(src source) error {
				idx, err := src.Indexes(ctx)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "INDEX\tSAVED\tPACKAGES\tINSTANCES\tDURATION(ms)")
				for _, i := range idx {
					doc, at, err := src.Load(ctx, i)
					if err != nil {
						slog.WarnContext(ctx, "skipping unreadable document", "index", i, "reason", err)
						continue
					}
					saved := "-"
					if !at.IsZero() {
						saved = at.Local().Format(time.DateTime)
					}
					var n int
					for _, ms := range doc.Metrics {
						n += len(ms)
					}
					fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%.3f\n", i, saved, len(doc.Metrics), n, doc.ProcessTiming.Duration)
				}
				return tw.Flush()
			})
		},
	}
}

func showCmd(cfg *cliConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "show [index]",
		Short: "Print a saved document as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			i, err := indexArg(args)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			return cfg.withSource(ctx, func(src source) error {
				doc, _, err := src.Load(ctx, i)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(&doc)
			})
		},
	}
}

func summaryCmd(cfg *cliConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "summary [index]",
		Short: "Print per-name totals for a saved document",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			i, err := indexArg(args)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			return cfg.withSource(ctx, func(src source) error {
				doc, _, err := src.Load(ctx, i)
				if err != nil {
					return err
				}
				return writeSummary(cmd.OutOrStdout(), &doc)
			})
		},
	}
}

func writeSummary(w io.Writer, doc *perftiming.Document) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "process\t%s\tduration %.3fms\n", doc.SystemInformation.Platform, doc.ProcessTiming.Duration)
	fmt.Fprintln(tw, "PACKAGE\t#\tKIND\tNAME\tCALLS\tTOTAL(ms)\tAVERAGE(ms)")
	pkgs := make([]string, 0, len(doc.Metrics))
	for p := range doc.Metrics {
		pkgs = append(pkgs, p)
	}
	slices.Sort(pkgs)
	for _, p := range pkgs {
		for n, m := range doc.Metrics[p] {
			for _, f := range m.Functions {
				fmt.Fprintf(tw, "%s\t%d\tfunction\t%s\t%d\t%.3f\t%s\n", p, n, f.Name, f.Calls, f.TotalDuration, average(f.AverageDuration))
			}
			for _, f := range m.Measurements {
				fmt.Fprintf(tw, "%s\t%d\tmeasurement\t%s\t%d\t%.3f\t%s\n", p, n, f.Name, f.Calls, f.TotalDuration, average(f.AverageDuration))
			}
		}
	}
	return tw.Flush()
}

func average(f float64) string {
	if math.IsNaN(f) {
		return "-"
	}
	return strconv.FormatFloat(f, 'f', 3, 64)
}

// ExportRecord is one line of an export stream.
type exportRecord struct {
	Index    int                  `json:"index"`
	Saved    *time.Time           `json:"saved,omitempty"`
	Document *perftiming.Document `json:"document"`
}

func exportCmd(cfg *cliConfig) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every saved document to a zstd-compressed JSON stream",
		Long: `export writes one JSON object per saved document, most recent first,
compressed with zstd. Use "-" to write to stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			var w io.Writer = cmd.OutOrStdout()
			if out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			return cfg.withSource(ctx, func(src source) error {
				n, err := export(ctx, w, src)
				if err != nil {
					return err
				}
				slog.InfoContext(ctx, "exported history", "documents", n, "out", out)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "perf-timing.json.zst", "output file")
	return cmd
}

func export(ctx context.Context, w io.Writer, src source) (int, error) {
	idx, err := src.Indexes(ctx)
	if err != nil {
		return 0, err
	}
	z, err := zstd.NewWriter(w)
	if err != nil {
		return 0, err
	}
	enc := json.NewEncoder(z)
	var n int
	for _, i := range idx {
		if err := ctx.Err(); err != nil {
			z.Close()
			return n, err
		}
		doc, at, err := src.Load(ctx, i)
		if err != nil {
			z.Close()
			return n, fmt.Errorf("document %d: %w", i, err)
		}
		rec := exportRecord{Index: i, Document: &doc}
		if !at.IsZero() {
			rec.Saved = &at
		}
		if err := enc.Encode(&rec); err != nil {
			z.Close()
			return n, err
		}
		n++
	}
	return n, z.Close()
}

func envCmd(cfg *cliConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "Print the registered PERF_TIMING_* settings and their effective values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env := cfg.Env()
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, k := range env.Keys() {
				v, err := env.Value(k)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%s\t%v\n", k, v)
			}
			return tw.Flush()
		},
	}
}
