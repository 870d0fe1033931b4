package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-mizu/docsearch/internal/discovery"
	"github.com/go-mizu/docsearch/internal/indexer"
	"github.com/go-mizu/docsearch/internal/schema"
	sqlitestore "github.com/go-mizu/docsearch/store/sqlite"
)

func NewBuild() *cobra.Command {
	var segmentsDir string
	var changedOnly bool
	var limit int

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build and publish a new segment from --docs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			docsRoot := GetDocsRoot()
			if segmentsDir == "" {
				segmentsDir = docsRoot + "/__search_segments"
			}

			fmt.Println(infoStyle.Render("Building segment from " + docsRoot))

			st, err := sqlitestore.New(segmentsDir, nil)
			if err != nil {
				return err
			}

			builder := indexer.New(st, nil)
			result, err := builder.Build(ctx, indexer.Options{
				DocsRoot:    docsRoot,
				Schema:      schema.Default(),
				Source:      discovery.SourceFilesystem,
				ChangedOnly: changedOnly,
				Limit:       limit,
			})
			if err != nil {
				return fmt.Errorf("build failed: %w", err)
			}

			if result.SegmentID == "" {
				fmt.Println(infoStyle.Render("No documents found; nothing published"))
				return nil
			}

			fmt.Println(successStyle.Render(fmt.Sprintf(
				"Published segment %s (%d indexed, %d skipped)",
				result.SegmentID, result.DocumentsIndexed, result.DocumentsSkipped)))
			for _, e := range result.Errors {
				fmt.Println(dimStyle.Render("  ! " + e))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&segmentsDir, "segments", "", "Segment store directory (default <docs>/__search_segments)")
	cmd.Flags().BoolVar(&changedOnly, "changed-only", false, "Only index documents changed since the last build")
	cmd.Flags().IntVar(&limit, "limit", 0, "Limit the number of documents discovered (0 = no limit)")
	return cmd
}
