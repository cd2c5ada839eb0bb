package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version is reported by --version.
const Version = "1.0.0"

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   "stockmatch",
		Short: "Match catalog items to a target price",
		Long: `Finds the catalog item, or combination of items, whose sale price total
lands closest to a target price within a tolerance.`,
		Version:      Version,
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log search progress to stderr")

	logger := func() *zap.Logger {
		if !verbose {
			return zap.NewNop()
		}
		l, err := zap.NewDevelopment()
		if err != nil {
			return zap.NewNop()
		}
		return l
	}

	root.AddCommand(newSearchCmd(logger))
	return root
}
