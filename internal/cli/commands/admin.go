package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/crimson-games/bakuretsu/internal/web/admin"
)

func newAdminCommand(opts *globalOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Serve the admin API",
		Long: `Serve the admin API: registered types, entity cache statistics and
cache purging. The server stops on SIGINT or SIGTERM.`,
		Example: `  bakuretsu admin
  bakuretsu admin --addr 0.0.0.0:9000
  curl -X POST localhost:8089/cache/purge?entity=User`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(opts)
			if err != nil {
				return err
			}
			defer s.Close()

			if addr == "" {
				addr = s.cfg.Admin.Addr
			}
			logger := s.logger.Named("admin")
			srv, err := admin.NewServer(admin.DefaultServerConfig(addr), admin.NewHandler(s.db, s.sqlDB, logger), logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: admin.addr from the config)")
	return cmd
}
