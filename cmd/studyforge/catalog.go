package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/mrsinham/studyforge/internal/catalog"
	"github.com/mrsinham/studyforge/internal/failure"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func newCatalogCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog [db]",
		Short: "List the files recorded in a catalog",
		Long:  "List the files recorded in a catalog. The database defaults to the --catalog flag.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.catalog
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return &failure.ConfigurationError{Msg: "No catalog given: pass a database path or --catalog"}
			}
			c, err := catalog.Open(path)
			if err != nil {
				return &failure.FileReadError{Path: path, Reason: err.Error()}
			}
			defer func() { _ = c.Close() }()

			entries, err := c.Entries(cmd.Context())
			if err != nil {
				return &failure.FileReadError{Path: path, Reason: err.Error()}
			}
			fmt.Fprintln(a.stdout, renderEntries(entries))
			fmt.Fprintf(a.stdout, "%d files\n", len(entries))
			return nil
		},
	}
}

func renderEntries(entries []catalog.Entry) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("PATIENT", "MODALITY", "DATE", "SERIES", "SOP INSTANCE", "PATH", "WRITTEN").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, e := range entries {
		t.Row(e.PatientID, e.Modality, e.StudyDate, e.SeriesUID, e.SOPUID, e.Path, e.WrittenAt.Local().Format(time.DateTime))
	}
	return t.String()
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.stdout, "studyforge %s\n", version)
		},
	}
}
