package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var archiveLimit int

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Inspect archived bulk requests",
}

var archiveGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print an archived request/response pair",
	Args:  cobra.ExactArgs(1),
	RunE:  runArchiveGet,
}

var archiveListCmd = &cobra.Command{
	Use:   "list [prefix]",
	Short: "List archived pairs",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runArchiveList,
}

func init() {
	archiveListCmd.Flags().IntVarP(&archiveLimit, "limit", "n", 50, "maximum number of entries")
	archiveCmd.AddCommand(archiveGetCmd)
	archiveCmd.AddCommand(archiveListCmd)
	rootCmd.AddCommand(archiveCmd)
}

func runArchiveGet(cmd *cobra.Command, args []string) error {
	if archiveReader == nil {
		return errors.New("archive backend does not support reads")
	}

	data, err := archiveReader.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	cmd.Println(string(data))
	return nil
}

func runArchiveList(cmd *cobra.Command, args []string) error {
	if archiveLister == nil {
		return errors.New("archive backend does not support listing")
	}

	prefix := ""
	if len(args) > 0 {
		prefix = args[0]
	}
	entries, err := archiveLister.List(cmd.Context(), prefix, archiveLimit)
	if err != nil {
		return fmt.Errorf("failed to list archive: %w", err)
	}
	if len(entries) == 0 {
		cmd.Println("No archived requests.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CREATED\tSIZE\tKEY")
	for _, e := range entries {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%s\n", e.CreatedAt.UTC().Format("2006-01-02 15:04:05"), e.Size, e.Key)
	}
	return w.Flush()
}
