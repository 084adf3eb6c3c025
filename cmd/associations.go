package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"crm-project/backend/triage"

	"github.com/spf13/cobra"
)

var associationsCmd = &cobra.Command{
	Use:   "associations",
	Short: "Run the association triage pipeline on local files",
}

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Parse quick-add text (one association per line) and print the records as JSON",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		parser, err := tablesParser()
		if err != nil {
			return err
		}
		text, err := readInput(cmd, args)
		if err != nil {
			return err
		}
		res := parser.ParseBulk(string(text))
		if len(res.Rejected) > 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "rejected lines: %v\n", res.Rejected)
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

var dedupeCmd = &cobra.Command{
	Use:   "dedupe [file]",
	Short: "Read an associations CSV, drop duplicates and write the result as CSV",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		parser, err := tablesParser()
		if err != nil {
			return err
		}
		in, err := openInput(cmd, args)
		if err != nil {
			return err
		}
		defer in.Close()

		imported, err := parser.ImportCSV(in)
		if err != nil {
			return err
		}
		unique, removed := triage.Dedup(imported.Records)
		fmt.Fprintf(cmd.ErrOrStderr(), "%d rows read, %d rejected, %d duplicates removed\n",
			len(imported.Records)+len(imported.Rejected), len(imported.Rejected), len(removed))
		return triage.ExportCSV(cmd.OutOrStdout(), unique)
	},
}

var tablesPath string

func init() {
	rootCmd.AddCommand(associationsCmd)
	associationsCmd.AddCommand(parseCmd, dedupeCmd)

	associationsCmd.PersistentFlags().StringVar(&tablesPath, "tables", "", "YAML file with city, category and status tables (default: built-in)")
}

func tablesParser() (*triage.Parser, error) {
	if tablesPath == "" {
		return triage.NewParser(triage.DefaultTables()), nil
	}
	tables, err := triage.LoadTables(tablesPath)
	if err != nil {
		return nil, err
	}
	return triage.NewParser(tables), nil
}

// openInput opens the named file, or stdin when no file or "-" is given.
func openInput(cmd *cobra.Command, args []string) (io.ReadCloser, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	return os.Open(args[0])
}

func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	in, err := openInput(cmd, args)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	return io.ReadAll(in)
}
