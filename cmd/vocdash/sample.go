package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/voc-insights/vocdash/internal/logging"
	"github.com/voc-insights/vocdash/internal/report"
	"github.com/voc-insights/vocdash/internal/sheets"
	"github.com/voc-insights/vocdash/internal/view"
	"github.com/voc-insights/vocdash/internal/workbook"
)

// --- sample command ---

var (
	sampleLimit   int
	sampleSheet   string
	sampleBackend string
)

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Print a few raw rows from the VOC tracking sheet",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if sampleSheet != "" {
			cfg.Sheets.SheetName = sampleSheet
		}
		if sampleBackend != "" {
			cfg.Sheets.Backend = sampleBackend
		}

		wb, closeFn, err := openWorkbook(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		rows, err := sheets.FetchSampleRows(ctx, wb, cfg.Sheets.SheetName, sampleLimit)
		if err != nil {
			return err
		}

		logging.Log.WithField("sheet", cfg.Sheets.SheetName).Debugf("fetched %d sample rows", len(rows))
		if len(rows) == 0 {
			fmt.Println("No data rows (header only).")
			return nil
		}
		printSampleRows(os.Stdout, rows)
		return nil
	},
}

func init() {
	sampleCmd.Flags().IntVarP(&sampleLimit, "limit", "n", sheets.DefaultSampleLimit, "Maximum number of rows")
	sampleCmd.Flags().StringVar(&sampleSheet, "sheet", "", "Sheet name (default from config)")
	sampleCmd.Flags().StringVar(&sampleBackend, "backend", "", "Workbook backend: google or sqlite")
}

func openWorkbook(ctx context.Context) (sheets.Workbook, func(), error) {
	switch cfg.Sheets.Backend {
	case "google":
		wb, err := sheets.NewGoogleWorkbook(ctx, cfg.Sheets.SpreadsheetID, sheets.GoogleAuth{
			CredentialsFile: cfg.Sheets.CredentialsFile,
			TokenFile:       cfg.Sheets.TokenFile,
			Interactive:     true,
			Out:             os.Stderr,
		})
		if err != nil {
			return nil, nil, err
		}
		return wb, func() {}, nil
	case "sqlite":
		db, err := workbook.Open(cfg.GetWorkbookPath())
		if err != nil {
			return nil, nil, err
		}
		return db, func() { db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown sheets backend %q (want google or sqlite)", cfg.Sheets.Backend)
	}
}

func printSampleRows(w io.Writer, rows []sheets.SampleRow) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{sheets.ColumnID, sheets.ColumnCreatedAt, sheets.ColumnContent})
	table.SetAutoWrapText(false)
	for _, r := range rows {
		table.Append([]string{r.ID, r.CreatedAt, truncate(r.Content, 60)})
	}
	table.Render()
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

// --- workbook command ---

var workbookSheet string

var workbookCmd = &cobra.Command{
	Use:   "workbook",
	Short: "Manage the local SQLite copy of the tracking sheet",
}

var workbookImportCmd = &cobra.Command{
	Use:   "import [file.csv]",
	Short: "Import a CSV export as a sheet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := workbookSheet
		if name == "" {
			name = cfg.Sheets.SheetName
		}

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening csv: %w", err)
		}
		defer f.Close()

		db, err := workbook.Open(cfg.GetWorkbookPath())
		if err != nil {
			return err
		}
		defer db.Close()

		n, err := db.ImportCSV(cmd.Context(), name, f, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Imported %d rows into sheet %q (%s)\n", n, name, db.Path())
		return nil
	},
}

var workbookListCmd = &cobra.Command{
	Use:   "list",
	Short: "List imported sheets",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := workbook.Open(cfg.GetWorkbookPath())
		if err != nil {
			return err
		}
		defer db.Close()

		infos, err := db.ListSheets(cmd.Context())
		if err != nil {
			return err
		}
		if len(infos) == 0 {
			fmt.Println("No sheets imported. Add one with: vocdash workbook import file.csv")
			return nil
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Sheet", "Rows", "Updated"})
		for _, s := range infos {
			table.Append([]string{s.Name, strconv.Itoa(s.RowCount), s.UpdatedAt})
		}
		table.Render()
		return nil
	},
}

func init() {
	workbookImportCmd.Flags().StringVar(&workbookSheet, "sheet", "", "Sheet name (default from config)")
	workbookCmd.AddCommand(workbookImportCmd)
	workbookCmd.AddCommand(workbookListCmd)
}

// --- status command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Fetch the report once and print its headline numbers",
	RunE: func(cmd *cobra.Command, args []string) error {
		provider := report.NewHTTPProvider(cfg.Backend.BaseURL, cfg.Backend.Timeout)
		fmt.Printf("Backend: %s\n\n", provider.Endpoint())

		r, err := provider.FetchReport(cmd.Context())
		if err != nil {
			return err
		}

		d := view.Compose(r, view.Options{MaxIssueQuotes: cfg.Dashboard.MaxIssueQuotes})
		fmt.Printf("Generated: %s (%s)\n", d.GeneratedAt, d.PeriodLabel)

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Metric", "Value", "Note"})
		table.SetAutoWrapText(false)
		for _, c := range d.StatCards {
			table.Append([]string{c.Label, c.Value, c.Hint})
		}
		table.Render()

		if len(d.TopIssues) > 0 {
			fmt.Println()
			issues := tablewriter.NewWriter(os.Stdout)
			issues.SetHeader([]string{"#", "Issue", "Count", "Change"})
			for _, is := range d.TopIssues {
				issues.Append([]string{strconv.Itoa(is.Rank), is.Key, is.Count, is.Change})
			}
			issues.Render()
		}
		return nil
	},
}
