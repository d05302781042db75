package run

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	infoCmd = &cobra.Command{
		Use:   "info",
		Short: "Fetch and print the server profile",
		Args:  cobra.NoArgs,
		RunE:  runInfo,
	}

	noticeCmd = &cobra.Command{
		Use:   "notice",
		Short: "Fetch and print the server notice",
		Args:  cobra.NoArgs,
		RunE:  runNotice,
	}
)

func runInfo(cmd *cobra.Command, args []string) error {
	logger := log.With().Str("com", "info-cmd").Logger()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, cleanup, err := startClient(ctx, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	profile, err := c.FetchServerInfo(ctx)
	if err != nil {
		return err
	}
	return printProfile(cmd.OutOrStdout(), profile)
}

func runNotice(cmd *cobra.Command, args []string) error {
	logger := log.With().Str("com", "notice-cmd").Logger()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, cleanup, err := startClient(ctx, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	notice, err := c.FetchNotice(ctx)
	if err != nil {
		return err
	}
	return printNotice(cmd.OutOrStdout(), notice)
}
