package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"supportbot/internal/dataset"
)

func newDatasetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "Prepare and inspect the training dataset",
	}
	cmd.AddCommand(newDatasetPrepareCmd(), newDatasetInfoCmd())
	return cmd
}

func newDatasetPrepareCmd() *cobra.Command {
	var csvPath string
	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Clean a support CSV and split it into training and validation sets",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if csvPath == "" {
				csvPath = cfg.Dataset.CSVPath
			}
			if csvPath == "" {
				return fmt.Errorf("no CSV given: pass --csv or set dataset.csv_path")
			}
			records, cols, err := dataset.LoadCSV(csvPath)
			if err != nil {
				return err
			}
			p := dataset.Split(records, cols, cfg.Dataset.ValidationRatio, cfg.Dataset.Seed)
			if err := dataset.Save(cfg.Dataset.ProcessedPath, p); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Text column: %s\nResponse column: %s\n", cols.Text, cols.Response)
			if cols.Category != "" {
				fmt.Fprintf(out, "Category column: %s\n", cols.Category)
			}
			fmt.Fprintf(out, "Samples: %d (train %d, validation %d)\nSaved to %s\n",
				p.Info.TotalSamples, p.Info.TrainSamples, p.Info.ValidationSamples, cfg.Dataset.ProcessedPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&csvPath, "csv", "", "CSV file or directory containing one")
	return cmd
}

func newDatasetInfoCmd() *cobra.Command {
	var samples int
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show the processed dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			p, err := dataset.Load(cfg.Dataset.ProcessedPath)
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]any{"info": p.Info, "samples": p.Samples(samples)})
		},
	}
	cmd.Flags().IntVar(&samples, "samples", 5, "number of sample pairs to show")
	return cmd
}
