package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/metalit/metalit/internal/export"
)

var exportOutput string

func init() {
	exportCmd.Flags().StringVar(&exportOutput, "output", "", "Destination path (default depends on format)")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export {json|bib}",
	Short: "Export the library as JSON or BibTeX",
	Long: `Export the library. json writes a snapshot of the index to
data/output/library_export.json; bib writes BibTeX records to
data/references.bib.

Examples:
  metalit export json
  metalit export bib --output refs.bib`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"json", "bib"},
	RunE:      runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	a := mustApp()

	switch args[0] {
	case "json":
		path, err := a.index.ExportJSON(exportOutput)
		if err != nil {
			exitWithError(ExitError, "export: %v", err)
		}
		if humanOutput {
			fmt.Printf("exported %d entries to %s\n", a.index.Len(), path)
		} else {
			outputJSON(map[string]interface{}{"status": "exported", "path": path, "entries": a.index.Len()})
		}
	case "bib":
		path := exportOutput
		if path == "" {
			path = a.cfg.BibPath()
		}
		n, err := export.WriteBibFile(path, a.index.ListEntries())
		if err != nil {
			exitWithError(ExitError, "export: %v", err)
		}
		if humanOutput {
			fmt.Printf("exported %d records to %s\n", n, path)
		} else {
			outputJSON(map[string]interface{}{"status": "exported", "path": path, "entries": n})
		}
	default:
		exitWithError(ExitDataError, "unknown export format %q (want json or bib)", args[0])
	}
	return nil
}
