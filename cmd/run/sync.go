package run

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	watchInterval time.Duration

	syncCmd = &cobra.Command{
		Use:   "sync",
		Short: "Reconcile local patch archives with the server",
		Args:  cobra.NoArgs,
		RunE:  runSync,
	}

	retryDelay    = 5 * time.Second
	maxRetryDelay = 60 * time.Second
)

func init() {
	syncCmd.Flags().DurationVarP(&watchInterval, "watch", "w", 0, "repeat the sync at this interval until interrupted")
}

// nextRetryDelay doubles current up to maxRetryDelay.
func nextRetryDelay(current time.Duration) time.Duration {
	current *= 2
	if current > maxRetryDelay {
		current = maxRetryDelay
	}
	return current
}

func runSync(cmd *cobra.Command, args []string) error {
	logger := log.With().Str("com", "sync-cmd").Logger()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, cleanup, err := startClient(ctx, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	if watchInterval <= 0 {
		res, err := c.Sync(ctx)
		if perr := printSyncResult(cmd.OutOrStdout(), res); perr != nil {
			return perr
		}
		return err
	}

	logger.Info().Dur("interval", watchInterval).Msg("watching for patch updates")
	retry := retryDelay
	for {
		wait := watchInterval
		res, err := c.Sync(ctx)
		if ctx.Err() != nil {
			logger.Info().Msg("received shutdown signal")
			return nil
		}
		if err != nil {
			wait = retry
			retry = nextRetryDelay(retry)
			logger.Warn().Err(err).Dur("retry_in", wait).Msg("sync failed")
		} else {
			retry = retryDelay
		}
		if perr := printSyncResult(cmd.OutOrStdout(), res); perr != nil {
			return perr
		}

		select {
		case <-ctx.Done():
			logger.Info().Msg("received shutdown signal")
			return nil
		case <-time.After(wait):
		}
	}
}
