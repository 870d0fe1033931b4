package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	sqlitestore "github.com/go-mizu/docsearch/store/sqlite"
)

func NewSegments() *cobra.Command {
	var segmentsDir string

	cmd := &cobra.Command{
		Use:   "segments",
		Short: "List published segments and the latest pointer",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			docsRoot := GetDocsRoot()
			if segmentsDir == "" {
				segmentsDir = docsRoot + "/__search_segments"
			}

			st, err := sqlitestore.New(segmentsDir, nil)
			if err != nil {
				return err
			}

			ids, err := st.ListSegments(ctx)
			if err != nil {
				return err
			}
			latest, ok, err := st.LatestSegmentID(ctx)
			if err != nil {
				return err
			}

			fmt.Println(titleStyle.Render(fmt.Sprintf("%d segment(s) in %s", len(ids), segmentsDir)))
			for _, id := range ids {
				marker := "  "
				if ok && id == latest {
					marker = successStyle.Render("->")
				}
				fmt.Printf(" %s %s\n", marker, id)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&segmentsDir, "segments", "", "Segment store directory (default <docs>/__search_segments)")
	return cmd
}
