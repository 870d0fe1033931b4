package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var docsRoot string

func Execute(ctx context.Context) error {
	root := &cobra.Command{
		Use:   "docsearch",
		Short: "docsearch - multi-tenant documentation search core",
		Long: `docsearch builds and serves a BM25F search index over a
tenant's markdown documentation tree.

Get started:
  docsearch build                 Build a new segment from --docs
  docsearch search <query>        Search the latest segment
  docsearch segments              List published segments
  docsearch prune                 Apply retention to published segments`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	wd, _ := os.Getwd()
	docsRoot = wd

	root.Version = Version
	root.PersistentFlags().StringVar(&docsRoot, "docs", docsRoot, "Tenant documents root")

	root.AddCommand(NewBuild())
	root.AddCommand(NewSearch())
	root.AddCommand(NewSegments())
	root.AddCommand(NewPrune())

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("[ERROR] "+err.Error()))
		return err
	}
	return nil
}

func GetDocsRoot() string { return docsRoot }
