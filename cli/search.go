package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-mizu/docsearch/internal/query"
	sqlitestore "github.com/go-mizu/docsearch/store/sqlite"
)

func NewSearch() *cobra.Command {
	var segmentsDir string
	var maxResults int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the latest published segment",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			docsRoot := GetDocsRoot()
			if segmentsDir == "" {
				segmentsDir = docsRoot + "/__search_segments"
			}
			queryText := args[0]
			for i := 1; i < len(args); i++ {
				queryText += " " + args[i]
			}

			st, err := sqlitestore.New(segmentsDir, nil)
			if err != nil {
				return err
			}

			segID, ok, err := st.LatestSegmentID(ctx)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no segment has been published under %s; run build first", segmentsDir)
			}

			db, err := st.Open(ctx, segID)
			if err != nil {
				return err
			}
			defer db.Close()

			resp, err := query.NewEngine().Search(ctx, db, queryText, query.Options{MaxResults: maxResults})
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}

			fmt.Println(titleStyle.Render(fmt.Sprintf("Search: %q (%d results)", queryText, len(resp.Results))))
			if resp.Warning != "" {
				fmt.Println(dimStyle.Render("  ! " + resp.Warning))
			}
			fmt.Println()

			for i, r := range resp.Results {
				fmt.Printf("  %d. %s  %s\n", i+1, titleStyle.Render(r.DocumentTitle), formatScore(r.RelevanceScore))
				fmt.Printf("     %s\n", urlStyle.Render(r.DocumentURL))
				fmt.Printf("     %s\n", r.Snippet)
				fmt.Println()
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&segmentsDir, "segments", "", "Segment store directory (default <docs>/__search_segments)")
	cmd.Flags().IntVar(&maxResults, "max-results", query.DefaultMaxResults, "Maximum number of results to return")
	return cmd
}
