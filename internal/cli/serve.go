package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"supportbot/internal/server"
	"supportbot/internal/service"
)

func newServeCmd() *cobra.Command {
	var (
		addr     string
		schedule string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API, optionally retraining on a cron schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, true)
			if err != nil {
				return err
			}
			defer a.Close()

			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			if schedule == "" {
				schedule = a.cfg.Training.Schedule
			}
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			if strings.TrimSpace(schedule) != "" {
				sched, err := parseSchedule(schedule)
				if err != nil {
					return fmt.Errorf("invalid training schedule %q: %w", schedule, err)
				}
				kinds, err := service.SelectKinds(a.cfg.Training.Engine)
				if err != nil {
					return err
				}
				a.log.Info().Str("schedule", schedule).Msg("scheduled retraining enabled")
				go runSchedule(ctx, sched, a.log, func(ctx context.Context) {
					for _, kind := range kinds {
						if _, err := a.svc.TrainFromDataset(ctx, kind); err != nil {
							a.log.Error().Err(err).Str("engine", string(kind)).Msg("scheduled retraining failed")
						}
					}
				})
			}

			srv := &http.Server{
				Addr:         addr,
				Handler:      server.New(a.svc, server.Config{MaxMessageLength: a.cfg.Server.MaxMessageLength}, a.log).Routes(),
				ReadTimeout:  a.cfg.Server.ReadTimeout,
				WriteTimeout: a.cfg.Server.WriteTimeout,
			}
			errCh := make(chan error, 1)
			go func() {
				a.log.Info().Str("addr", addr).Msg("http server listening")
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}
			a.log.Info().Msg("shutting down")
			shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
			defer stop()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&schedule, "schedule", "", `cron expression for retraining, e.g. "0 3 * * *"`)
	return cmd
}

// parseSchedule accepts a five-field cron expression or a descriptor such as @daily.
func parseSchedule(spec string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return parser.Parse(strings.TrimSpace(spec))
}

// runSchedule calls run at each activation of sched until ctx is done.
// Runs never overlap; an activation missed while running is skipped.
func runSchedule(ctx context.Context, sched cron.Schedule, log zerolog.Logger, run func(context.Context)) {
	for {
		now := time.Now()
		next := sched.Next(now)
		if next.IsZero() {
			log.Warn().Msg("schedule has no future activations")
			return
		}
		log.Debug().Time("next", next).Msg("next scheduled retraining")
		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		run(ctx)
	}
}
