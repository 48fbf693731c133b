package main

import (
	"github.com/JustJay7/court-registry/internal/cache"
	"github.com/JustJay7/court-registry/internal/server"
	"github.com/spf13/cobra"
)

func newServeCmd(gf *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(gf)
			if err != nil {
				return err
			}
			defer a.Close()

			srv := server.New(a.cfg, a.db, cache.NewCache(a.cfg.CacheSize, a.cfg.CacheTTL), a.log)

			a.log.Info("Starting court registry API",
				"host", a.cfg.Host,
				"port", a.cfg.Port,
				"database", a.cfg.DatabasePath,
			)
			return srv.Run(cmd.Context())
		},
	}
}
