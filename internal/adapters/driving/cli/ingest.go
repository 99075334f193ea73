package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var ingestWatch bool

var ingestCmd = &cobra.Command{
	Use:   "ingest [path]",
	Short: "Ingest a file or directory into the index",
	Long: `Structures the given file, or every supported file under the given
directory, into paragraphs and writes them to the vector store. Re-running
over unchanged content is a no-op.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVarP(&ingestWatch, "watch", "w", false, "keep watching the directory and re-ingest on change")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	path := args[0]

	service, cleanup, err := buildIngest()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	if !info.IsDir() {
		if ingestWatch {
			return fmt.Errorf("--watch requires a directory")
		}
		stats, err := service.IngestFile(ctx, path)
		if err != nil {
			return err
		}
		printStats(cmd, stats.Documents, stats.Paragraphs, stats.Skipped, stats.Failed)
		return nil
	}

	stats, err := service.IngestDir(ctx, path)
	if err != nil {
		return err
	}
	printStats(cmd, stats.Documents, stats.Paragraphs, stats.Skipped, stats.Failed)

	if ingestWatch {
		cmd.Println("Watching for changes, Ctrl-C to stop.")
		if err := service.Watch(ctx, path); err != nil && ctx.Err() == nil {
			return err
		}
	}
	return nil
}

func printStats(cmd *cobra.Command, documents, paragraphs, skipped, failed int) {
	cmd.Printf("Ingested %d document(s): %d paragraph(s) written, %d unchanged", documents, paragraphs, skipped)
	if failed > 0 {
		cmd.Printf(", %d failed", failed)
	}
	cmd.Println()
}

var deleteCmd = &cobra.Command{
	Use:   "delete [path]",
	Short: "Remove a document's paragraphs from the index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		service, cleanup, err := buildIngest()
		if err != nil {
			return err
		}
		defer cleanup()

		if err := service.DeleteDocument(context.Background(), args[0]); err != nil {
			return err
		}
		cmd.Printf("Deleted %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
