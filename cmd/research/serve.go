package main

import (
	"errors"
	"net/http"

	"github.com/spf13/cobra"
	"github.com/xhad/research/server"
)

func newServeCmd(opts *options) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the WebSocket backend for the web UI",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, pipeline, err := opts.setup(nil)
			if err != nil {
				return err
			}
			defer pipeline.Close()

			if addr == "" {
				addr = cfg.UI.Addr
			}

			srv := server.NewWSServer(pipeline, cfg.Scraper.Headers, log)
			if err := srv.ListenAndServe(cmd.Context(), addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (defaults to ui.addr from the config)")
	return cmd
}
