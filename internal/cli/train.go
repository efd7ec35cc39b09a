package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"supportbot/internal/service"
)

func newTrainCmd() *cobra.Command {
	var model string
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train engines on the processed dataset and persist them",
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds, err := service.SelectKinds(model)
			if err != nil {
				return err
			}
			a, err := newApp(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			for _, kind := range kinds {
				res, err := a.svc.TrainFromDataset(cmd.Context(), kind)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s: %d samples, vocabulary %d, accuracy %.2f%%, validation accuracy %.2f%%",
					kind, res.TrainingSamples, res.VocabularySize, res.Accuracy*100, res.ValidationAccuracy*100)
				if res.IntentClasses > 0 {
					fmt.Fprintf(out, ", %d intent classes", res.IntentClasses)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&model, "model", "m", "all", "engine to train: basic, enhanced or all")
	return cmd
}
