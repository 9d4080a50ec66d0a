package main

import (
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/newtron-network/portfinder/pkg/httpapi"
	"github.com/newtron-network/portfinder/pkg/util"
)

var (
	listenAddr     string
	requestTimeout time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the JSON HTTP API",
	Long: `Serve search, interface details and VLAN changes over HTTP.

Logs are JSON lines at info level (debug with -v). SIGINT or SIGTERM
shuts the server down gracefully.

Examples:
  portfinder serve
  portfinder serve --listen 127.0.0.1:9000`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := util.ConfigureLogging(util.LogOptions{Level: flagLogLevel(), Default: "info", JSON: true}); err != nil {
			return err
		}

		addr := firstSet(listenAddr, os.Getenv(envListen), userSettings.GetListenAddr())
		server := &http.Server{
			Addr:              addr,
			Handler:           httpapi.New(app, requestTimeout).Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		return httpapi.RunServer(cmd.Context(), server)
	},
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address (default from settings or $"+envListen+")")
	serveCmd.Flags().DurationVar(&requestTimeout, "request-timeout", httpapi.DefaultRequestTimeout, "Per-request timeout")
}
