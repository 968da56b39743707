package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/ascii"
	"github.com/spf13/cobra"

	"github.com/skystats/skystats/internal/core/store"
	"github.com/skystats/skystats/internal/output"
)

var (
	cacheAll     bool
	cacheKey     string
	cachePrefix  string
	cacheExpired bool
	cacheYes     bool
	cacheDryRun  bool
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or purge the upstream response cache",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached upstream responses",
	RunE: func(cmd *cobra.Command, args []string) error {
		query := cacheQueryFromFlags()
		if !query.Expired && query.Key == "" && query.Prefix == "" {
			query.All = true
		}
		if err := query.Validate(); err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		entries, err := db.ListCacheEntries(cmd.Context(), query)
		if err != nil {
			return err
		}
		return writeDocument(cmd, "cache.list", output.CacheDocument(entries, time.Now()))
	},
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete cached upstream responses",
	RunE: func(cmd *cobra.Command, args []string) error {
		query := cacheQueryFromFlags()
		if err := query.Validate(); err != nil {
			return err
		}
		if query.All && !cacheYes && !cacheDryRun {
			return errors.New("--all requires --yes (or use --dry-run)")
		}

		sink, format, err := openCommandSink(cmd, "cache.purge")
		if err != nil {
			return err
		}
		defer func() { _ = sink.close() }()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		matched, err := db.CountCacheEntries(cmd.Context(), query)
		if err != nil {
			return err
		}

		if cacheDryRun {
			return writeCachePurgeResult(format, sink.writer, matched, 0, true)
		}

		deleted, err := db.PurgeCache(cmd.Context(), query)
		if err != nil {
			return err
		}
		return writeCachePurgeResult(format, sink.writer, matched, deleted, false)
	},
}

func cacheQueryFromFlags() store.CacheQuery {
	return store.CacheQuery{
		All:     cacheAll,
		Key:     strings.TrimSpace(cacheKey),
		Prefix:  strings.TrimSpace(cachePrefix),
		Expired: cacheExpired,
	}
}

func writeCachePurgeResult(format output.Format, w io.Writer, matched int, deleted int64, dryRun bool) error {
	result := map[string]any{
		"matched": matched,
		"deleted": deleted,
		"dry_run": dryRun,
	}

	switch format {
	case output.FormatJSON, output.FormatYAML:
		rendered, err := output.Render(format, output.Document{Data: result})
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, rendered)
		return err
	}

	lines := []string{"Upstream cache purge", ""}
	if dryRun {
		lines = append(lines, fmt.Sprintf("Would delete %d entr(ies)", matched))
	} else {
		lines = append(lines, fmt.Sprintf("Deleted %d/%d entr(ies)", deleted, matched))
	}
	_, err := fmt.Fprint(w, ascii.DrawBox(strings.Join(lines, "\n"), 0))
	return err
}

func init() {
	for _, c := range []*cobra.Command{cacheListCmd, cachePurgeCmd} {
		c.Flags().BoolVar(&cacheAll, "all", false, "select every entry")
		c.Flags().StringVar(&cacheKey, "key", "", "select one entry by exact key (e.g. weather:paris)")
		c.Flags().StringVar(&cachePrefix, "prefix", "", "select entries whose key starts with prefix (e.g. forecast:)")
		c.Flags().BoolVar(&cacheExpired, "expired", false, "select entries past their TTL")
		addOutputFlags(c)
	}
	cachePurgeCmd.Flags().BoolVar(&cacheYes, "yes", false, "confirm purging every entry")
	cachePurgeCmd.Flags().BoolVar(&cacheDryRun, "dry-run", false, "show what would be deleted")

	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cachePurgeCmd)
	rootCmd.AddCommand(cacheCmd)
}
