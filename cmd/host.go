package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"gitlab.com/tinyland/lab/minigraph/pkg/config"
	"gitlab.com/tinyland/lab/minigraph/pkg/host"
)

// hostRetryDelay is the pause between websocket reconnect attempts.
const hostRetryDelay = 2 * time.Second

type hostOptions struct {
	transport  string
	socketPath string
	url        string
}

func newHostCmd(root *rootOptions) *cobra.Command {
	o := &hostOptions{}
	cmd := &cobra.Command{
		Use:   "host",
		Short: "Run a reference host frame that prints navigation requests",
		Long: `Host plays the part of the page embedding the card. It accepts navigation
requests over the configured transport and prints each one. Use it to check
what an embedded card posts without a browser.`,
		Example: `  minigraph host
  minigraph host --transport websocket --url ws://127.0.0.1:8787/ws`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if o.transport != "" {
				cfg.Host.Transport = o.transport
			}
			if o.socketPath != "" {
				cfg.Host.SocketPath = o.socketPath
			}
			if o.url != "" {
				cfg.Host.WebsocketURL = o.url
			}

			parent := cmd.Context()
			if parent == nil {
				parent = context.Background()
			}
			ctx, stop := signalContext(parent)
			defer stop()

			logger := root.newLogger(cfg, cmd.ErrOrStderr())
			handler := printNavigation(cmd.OutOrStdout())
			return runHost(ctx, cfg, handler, logger)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.transport, "transport", "", "ipc or websocket (default: configured transport)")
	f.StringVar(&o.socketPath, "socket", "", "unix socket path for the ipc transport")
	f.StringVar(&o.url, "url", "", "hub url for the websocket transport")
	return cmd
}

func runHost(ctx context.Context, cfg *config.Config, handler host.Handler, logger *slog.Logger) error {
	switch cfg.Host.Transport {
	case "websocket":
		return listenWebsocket(ctx, cfg.Host.WebsocketURL, handler, logger)
	case "ipc", "":
		srv := host.NewIPCServer(cfg.Host.SocketPath, handler, logger)
		if err := srv.Start(); err != nil {
			return err
		}
		defer srv.Stop()
		logger.Info("host listening", "socket", cfg.Host.SocketPath)
		<-ctx.Done()
		return nil
	default:
		return fmt.Errorf("unknown host transport %q", cfg.Host.Transport)
	}
}

// listenWebsocket stays connected to the hub, reconnecting after drops,
// until ctx is done.
func listenWebsocket(ctx context.Context, url string, handler host.Handler, logger *slog.Logger) error {
	for {
		logger.Info("connecting to hub", "url", url)
		err := host.Listen(ctx, url, handler)
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, host.ErrClosed) {
			logger.Info("hub closed the connection")
		} else {
			logger.Warn("hub connection lost", "error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(hostRetryDelay):
		}
	}
}

func printNavigation(w io.Writer) host.Handler {
	if w == nil {
		w = os.Stdout
	}
	return host.HandlerFunc(func(msg host.Message) error {
		switch msg.Kind {
		case host.KindNavigate:
			fmt.Fprintf(w, "%s %s %s\n",
				dimColor.Sprint(msg.Sent.Local().Format("15:04:05")),
				goodColor.Sprint("navigate"),
				msg.URL)
		case host.KindPing:
			fmt.Fprintf(w, "%s %s\n", dimColor.Sprint(msg.Sent.Local().Format("15:04:05")), dimColor.Sprint("ping"))
		}
		return nil
	})
}
