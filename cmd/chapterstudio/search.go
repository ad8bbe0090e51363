package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/azyu/chapterstudio/pkg/types"
	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search chapters, characters, timeline events and glossary terms",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := newApp()
		if err != nil {
			return err
		}
		defer application.Close()

		sourceType, _ := cmd.Flags().GetString("type")
		limit, _ := cmd.Flags().GetInt("limit")

		hits, err := application.Backend.Search(cmd.Context(), strings.Join(args, " "), sourceType, limit)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}
		if len(hits) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No matches.")
			return nil
		}
		return printHits(cmd.OutOrStdout(), hits)
	},
}

var searchReindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the search index from stored records",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := newApp()
		if err != nil {
			return err
		}
		defer application.Close()

		n, err := application.Backend.Reindex(cmd.Context())
		if err != nil {
			return fmt.Errorf("reindex failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d entries.\n", n)
		return nil
	},
}

func printHits(w io.Writer, hits []types.SearchHit) error {
	t := newTable("TYPE", "ID", "TITLE", "SNIPPET")
	for _, h := range hits {
		t.Row(h.SourceType, h.SourceID, h.Title, strings.Join(strings.Fields(h.Snippet), " "))
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}
