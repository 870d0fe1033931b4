package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	sqlitestore "github.com/go-mizu/docsearch/store/sqlite"
)

func NewPrune() *cobra.Command {
	var segmentsDir string
	var maxSegments int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Apply retention to published segments",
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
			if maxSegments > 0 {
				st.WithMaxSegments(maxSegments)
			}

			before, err := st.ListSegments(ctx)
			if err != nil {
				return err
			}
			if err := st.ApplyRetention(ctx); err != nil {
				return fmt.Errorf("prune failed: %w", err)
			}
			after, err := st.ListSegments(ctx)
			if err != nil {
				return err
			}

			fmt.Println(successStyle.Render(fmt.Sprintf(
				"Retention applied: %d segment(s) -> %d", len(before), len(after))))
			return nil
		},
	}

	cmd.Flags().StringVar(&segmentsDir, "segments", "", "Segment store directory (default <docs>/__search_segments)")
	cmd.Flags().IntVar(&maxSegments, "max-segments", sqlitestore.DefaultMaxSegments, "Retention ceiling")
	return cmd
}
