package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"lead-intake-go/internal/app"
	"lead-intake-go/internal/csvimport"
	"lead-intake-go/internal/db"
	"lead-intake-go/internal/leads"
	"lead-intake-go/internal/repository"
)

var validateCSVCmd = &cobra.Command{
	Use:   "validate-csv <file>",
	Short: "Validate a lead CSV file and optionally import it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}

		opts := app.CSVOptions(cfg.CSV)
		if cmd.Flags().Changed("sanitize") {
			opts.Sanitize, _ = cmd.Flags().GetBool("sanitize")
		}
		doImport, _ := cmd.Flags().GetBool("import")

		var result *csvimport.ImportResult
		if doImport {
			result, err = importFile(cmd, data, opts)
			if err != nil {
				return err
			}
		} else {
			result = &csvimport.ImportResult{Outcome: csvimport.Validate(data, opts)}
		}

		fmt.Fprint(cmd.OutOrStdout(), csvimport.Report(result.Outcome))
		if doImport {
			fmt.Fprintf(cmd.OutOrStdout(), "\nImported: %d created, %d updated, %d failed\n",
				result.Created, result.Updated, result.Failed)
		}

		if !result.Outcome.Valid {
			return fmt.Errorf("%s is not a valid lead file", args[0])
		}
		return nil
	},
}

func importFile(cmd *cobra.Command, data []byte, opts csvimport.Options) (*csvimport.ImportResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	dbConn, err := db.Init(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if sqlDB, err := dbConn.DB(); err == nil {
		defer sqlDB.Close()
	}

	importer := csvimport.NewImporter(leads.NewReconciler(repository.New(dbConn)), nil)
	result := importer.Import(cmd.Context(), data, opts)

	logrus.WithFields(logrus.Fields{
		"created": result.Created,
		"updated": result.Updated,
		"failed":  result.Failed,
	}).Info("CSV import finished")
	return result, nil
}

func init() {
	validateCSVCmd.Flags().Bool("sanitize", true, "strip markup characters from field values")
	validateCSVCmd.Flags().Bool("import", false, "import valid rows into the lead store")
	rootCmd.AddCommand(validateCSVCmd)
}
