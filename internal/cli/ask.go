package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"supportbot/internal/domain"
	"supportbot/internal/tui"
)

func newAskCmd() *cobra.Command {
	var (
		model   string
		verbose bool
	)
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer one question with a trained engine",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, true)
			if err != nil {
				return err
			}
			defer a.Close()

			r := a.svc.Reply(domain.ParseKind(model), strings.Join(args, " "))
			if verbose {
				return printJSON(cmd, r)
			}
			fmt.Fprintln(cmd.OutOrStdout(), r.Text)
			return nil
		},
	}
	cmd.Flags().StringVarP(&model, "model", "m", "basic", "engine to ask: basic or enhanced")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print the full reply with scores")
	return cmd
}

func newChatCmd() *cobra.Command {
	var model string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive chat in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, true)
			if err != nil {
				return err
			}
			defer a.Close()

			m := tui.New(a.svc, domain.ParseKind(model))
			_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
			return err
		},
	}
	cmd.Flags().StringVarP(&model, "model", "m", "basic", "engine to start with: basic or enhanced")
	return cmd
}
