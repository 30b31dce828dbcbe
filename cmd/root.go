package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	cart "github.com/Alturino/storefront/cart/cmd"
	gateway "github.com/Alturino/storefront/gateway/cmd"
	"github.com/Alturino/storefront/internal/constants"
	"github.com/Alturino/storefront/internal/log"
	product "github.com/Alturino/storefront/product/cmd"
	user "github.com/Alturino/storefront/user/cmd"
)

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   constants.AppMain,
		Short: "Run one of the storefront services",
	}
	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "cart",
			Short: "Run cart service",
			Run: func(cmd *cobra.Command, args []string) {
				cart.RunCartService(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "product",
			Short: "Run product service",
			Run: func(cmd *cobra.Command, args []string) {
				product.RunProductService(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "user",
			Short: "Run user service",
			Run: func(cmd *cobra.Command, args []string) {
				user.RunUserService(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "gateway",
			Short: "Run api gateway",
			Run: func(cmd *cobra.Command, args []string) {
				gateway.RunGateway(cmd.Context())
			},
		},
	)
	return rootCmd
}

func Start() {
	logger := log.InitLogger(fmt.Sprintf("/var/log/%s.log", constants.AppMain)).
		With().
		Str(log.KeyAppName, constants.AppMain).
		Str(log.KeyTag, "main Start").
		Logger()

	logger.Info().Msg("adding listener for SIGINT and SIGTERM")
	c, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	logger.Info().Msg("added listener for SIGINT and SIGTERM")

	c = logger.WithContext(c)
	if err := newRootCommand().ExecuteContext(c); err != nil {
		logger.Fatal().Err(err).Msgf("error when executing command=%s", err.Error())
	}
}
