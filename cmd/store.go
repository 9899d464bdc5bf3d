package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/event-scout/internal/model"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage the local event store",
}

var storeInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create or migrate the store schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}
		zap.L().Info("store migrated", zap.String("driver", cfg.Store.Driver))
		return nil
	},
}

var seedFile string

var storeSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load curated events from a JSON file into the store",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		data, err := os.ReadFile(seedFile)
		if err != nil {
			return eris.Wrapf(err, "read seed file %s", seedFile)
		}
		var events []model.ExtractedEvent
		if err := json.Unmarshal(data, &events); err != nil {
			return eris.Wrap(err, "parse seed file")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		loaded := 0
		for _, ev := range events {
			if ev.URL == "" || ev.Title == "" {
				zap.L().Warn("skipping seed event without url or title")
				continue
			}
			if err := st.UpsertEvent(ctx, ev); err != nil {
				return eris.Wrapf(err, "upsert %s", ev.URL)
			}
			loaded++
		}
		zap.L().Info("seed complete",
			zap.Int("loaded", loaded),
			zap.Int("skipped", len(events)-loaded),
		)
		return nil
	},
}

var storePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete expired extraction cache entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		n, err := st.DeleteExpired(ctx)
		if err != nil {
			return err
		}
		zap.L().Info("cache pruned", zap.Int64("deleted", n))
		return nil
	},
}

func init() {
	storeSeedCmd.Flags().StringVar(&seedFile, "file", "", "JSON file of events to load (required)")
	_ = storeSeedCmd.MarkFlagRequired("file")

	storeCmd.AddCommand(storeInitCmd, storeSeedCmd, storePruneCmd)
	rootCmd.AddCommand(storeCmd)
}
