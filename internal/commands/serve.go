package commands

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/folio-dev/folio/internal/server"
)

func newServeCommand(repoDir *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the ledger and valuation over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := openApp(ctx, *repoDir)
			if err != nil {
				return err
			}
			defer a.Close()

			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			s := server.New(server.Deps{
				Store:      a.store,
				Rates:      a.rates,
				Recorder:   a.recorder,
				Aggregator: a.aggregator,
				Valuation:  a.cfg.Valuation,
			}, a.cfg.Server, a.logger)
			return s.Run(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from folio.yaml)")
	return cmd
}
