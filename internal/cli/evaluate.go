package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"supportbot/internal/domain"
	"supportbot/internal/evaluate"
)

func newEvaluateCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Compare both engines on built-in support questions",
		Long: `evaluate restores the stored models, trains any engine that has none on
the processed dataset, and scores both engines by keyword matches on a fixed
set of support questions.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, true)
			if err != nil {
				return err
			}
			defer a.Close()

			for _, kind := range []domain.Kind{domain.KindBasic, domain.KindEnhanced} {
				if a.svc.Engine(kind).IsReady() {
					continue
				}
				a.log.Info().Str("engine", string(kind)).Msg("no stored model, training")
				if _, err := a.svc.TrainFromDataset(cmd.Context(), kind); err != nil {
					return err
				}
			}

			cmp := evaluate.Compare(a.svc.Engine(domain.KindBasic), a.svc.Engine(domain.KindEnhanced), evaluate.DefaultCases())
			out := cmd.OutOrStdout()
			for _, side := range []struct {
				name string
				rep  evaluate.Report
			}{{"basic", cmp.Basic}, {"enhanced", cmp.Enhanced}} {
				fmt.Fprintf(out, "%s engine\n", side.name)
				for i, r := range side.rep.Results {
					mark := "miss"
					if r.KeywordMatch {
						mark = "ok"
					}
					fmt.Fprintf(out, "  %d. [%s] %s\n     %s\n", i+1, mark, r.Input, r.Response)
				}
				fmt.Fprintf(out, "  accuracy: %.2f%%\n", side.rep.Accuracy*100)
			}
			fmt.Fprintf(out, "improvement: %.2f%%\n", cmp.Improvement*100)

			if output == "" {
				output = filepath.Join(filepath.Dir(a.cfg.Dataset.ProcessedPath), "evaluation_results.json")
			}
			data, err := json.MarshalIndent(cmp, "", "  ")
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(out, "results saved to %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "where to write the JSON report")
	return cmd
}
