// Package cli wires the application together and exposes it as a cobra
// command tree.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/passage-dev/passage/internal/config"
	"github.com/passage-dev/passage/internal/logger"
)

var (
	version = "dev"

	cfgPath string
	verbose bool
	cfg     config.Config
)

var rootCmd = &cobra.Command{
	Use:   "passage",
	Short: "Index documents and retrieve ranked passages",
	Long: `Passage structures PDF, DOCX, Markdown and plain text documents into
paragraph records with stable keys, embeds them into a vector store, and
answers queries through rewriting, fan-out retrieval and reranking.`,
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		logger.SetVerbose(verbose)
		var err error
		cfg, err = config.Load(cfgPath)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file path (default: ~/.passage/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute(v string) error {
	if v != "" {
		version = v
	}
	return rootCmd.Execute()
}
