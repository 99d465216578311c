package proxy

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/quickkly/tidyhttp/internal/config"
	"github.com/quickkly/tidyhttp/internal/handler"
	"github.com/quickkly/tidyhttp/internal/logger"
	"github.com/quickkly/tidyhttp/internal/proxy"

	"github.com/spf13/cobra"
)

// ServeCmd represents the proxy serve command
var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the intercepting proxy",
	Long: `Run an HTTP proxy that strips leading blank lines from request and response
bodies and recomputes Content-Length.

With an upstream configured every request is forwarded there. Without one the
proxy forwards absolute-form requests, so it can be used as a client's HTTP proxy.

Requests may carry an X-Tidyhttp-Tool header naming the tool they belong to
(proxy, repeater, intruder, scanner, extensions, cli). The header is removed
before forwarding; it defaults to proxy.

Prometheus metrics are served on proxy.metrics_path.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

var (
	listen   string
	upstream string
	decode   bool
)

func init() {
	ServeCmd.Flags().StringVar(&listen, "listen", "", "address to listen on (overrides proxy.listen)")
	ServeCmd.Flags().StringVar(&upstream, "upstream", "", "upstream base URL (overrides proxy.upstream)")
	ServeCmd.Flags().BoolVar(&decode, "decode", false, "decode gzip/br response bodies before cleaning")
}

func runServe(cmd *cobra.Command) error {
	cfg, err := config.GetFromContext(cmd)
	if err != nil {
		return fmt.Errorf("failed to get configuration: %w", err)
	}

	if listen != "" {
		cfg.Proxy.Listen = listen
	}
	if upstream != "" {
		cfg.Proxy.Upstream = upstream
	}
	if decode {
		cfg.Processing.DecodeContent = true
	}

	log := logger.FromContext(cmd.Context())
	h := handler.NewFromConfig(cfg, log)
	log.Debug("proxy gate", "settings", h.Settings().Description())

	srv, err := proxy.New(cfg, h, log)
	if err != nil {
		return fmt.Errorf("failed to create proxy: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("proxy stopped: %w", err)
	}
	log.Info("proxy stopped")
	return nil
}
