package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/event-scout/internal/model"
)

var (
	searchText     string
	searchCountry  string
	searchFrom     string
	searchTo       string
	searchIndustry string
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Run one discovery pipeline invocation and print the result",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		req, err := model.ParseRequest(searchText, searchCountry, searchFrom, searchTo, searchIndustry)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		p, err := buildPipeline(st)
		if err != nil {
			return err
		}

		result, err := p.Run(ctx, req)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchText, "query", "", "free-text event search (required)")
	searchCmd.Flags().StringVar(&searchCountry, "country", "ALL", "ISO-2 country code or ALL")
	searchCmd.Flags().StringVar(&searchFrom, "from", "", "window start, YYYY-MM-DD")
	searchCmd.Flags().StringVar(&searchTo, "to", "", "window end, YYYY-MM-DD")
	searchCmd.Flags().StringVar(&searchIndustry, "industry", "", "industry template to apply")
	_ = searchCmd.MarkFlagRequired("query")
	rootCmd.AddCommand(searchCmd)
}
