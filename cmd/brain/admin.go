package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/viant/brain/vecsync"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show store statistics",
	Args:  cobra.NoArgs,
	RunE:  runInfo,
}

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the vector index",
	Long:  "Rebuild the in-memory index from the notes table and persist the snapshot. Only the sqlite backend keeps an index.",
	Args:  cobra.NoArgs,
	RunE:  runReindex,
}

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Publish note events to NATS",
	Long:  "Tail the note change log and publish every entry to <events.subject>.<op>.",
	Args:  cobra.NoArgs,
	RunE:  runRelay,
}

var relayOnce bool

func init() {
	rootCmd.AddCommand(infoCmd, reindexCmd, relayCmd)
	relayCmd.Flags().BoolVar(&relayOnce, "once", false, "Publish pending entries and exit")
}

func runInfo(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd.Context(), globalConfig, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	count, err := a.engine.Count(cmd.Context())
	if err != nil {
		return err
	}
	cfg := globalConfig
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "backend:\t%s\n", cfg.Store.Backend)
	if a.sqlite != nil {
		fmt.Fprintf(w, "path:\t%s\n", cfg.Store.Path)
		fmt.Fprintf(w, "index:\t%s\n", a.sqlite.IndexKind())
		fmt.Fprintf(w, "metric:\t%s\n", a.sqlite.Metric())
	} else {
		fmt.Fprintf(w, "qdrant:\t%s\n", cfg.Store.QdrantAddr)
	}
	fmt.Fprintf(w, "collection:\t%s\n", cfg.Store.Collection)
	fmt.Fprintf(w, "model:\t%s\n", cfg.Embeddings.Model)
	fmt.Fprintf(w, "dimension:\t%d\n", cfg.Embeddings.Dimension)
	fmt.Fprintf(w, "notes:\t%d\n", count)
	if a.db != nil {
		state, err := vecsync.ReadState(cmd.Context(), a.db, vecsync.DefaultStateTable, cfg.Events.Subject)
		if err == nil {
			fmt.Fprintf(w, "relay scn:\t%d\n", state.LastSCN)
		}
	}
	return w.Flush()
}

func runReindex(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd.Context(), globalConfig, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	if a.sqlite == nil {
		return errors.New("reindex requires the sqlite store backend")
	}
	n, err := a.sqlite.Reindex(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "reindexed %d notes (%s)\n", n, a.sqlite.IndexKind())
	return nil
}

func runRelay(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cfg := globalConfig
	if cfg.Events.NATSURL == "" {
		return errors.New("events.nats_url is not set")
	}
	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	relay, pub, err := newRelay(ctx, a.db, cfg.Events, logger)
	if err != nil {
		return err
	}
	defer pub.Close()
	if relayOnce {
		n, err := relay.Sync(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "published %d entries\n", n)
		return nil
	}
	logger.Info("relay running", "nats", cfg.Events.NATSURL, "subject", cfg.Events.Subject)
	return relay.Run(ctx)
}
