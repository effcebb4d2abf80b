package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/agent-protocol/a2a-chat/pkg/a2a/server"
)

// demoAgentCommand creates the 'demo-agent' command
func demoAgentCommand() *cli.Command {
	flags := append(webServerFlags(),
		&cli.StringFlag{
			Name:  "name",
			Value: "Echo Agent",
			Usage: "Agent name published in the agent card",
		},
		&cli.StringFlag{
			Name:  "prefix",
			Value: "Echo: ",
			Usage: "Text prepended to every reply",
		},
		&cli.BoolFlag{
			Name:  "streaming",
			Value: true,
			Usage: "Advertise and serve tasks/sendSubscribe",
		},
		&cli.DurationFlag{
			Name:  "chunk-delay",
			Value: 100 * time.Millisecond,
			Usage: "Pause between streamed words",
		},
	)

	return &cli.Command{
		Name:   "demo-agent",
		Usage:  "Serves a local echo agent to chat with",
		Flags:  flags,
		Action: demoAgentCommandAction,
	}
}

func demoAgentCommandAction(c *cli.Context) error {
	host := "127.0.0.1"
	if c.IsSet("host") {
		host = c.String("host")
	}
	port := 10000
	if c.IsSet("port") {
		port = c.Int("port")
	}

	address := fmt.Sprintf("%s:%d", host, port)
	agentURL := fmt.Sprintf("http://%s/", address)

	card := server.EchoCard(c.String("name"), agentURL, c.Bool("streaming"))
	agent := server.NewEchoAgent(
		server.WithPrefix(c.String("prefix")),
		server.WithChunkDelay(c.Duration("chunk-delay")),
	)

	srv := &http.Server{
		Addr:              address,
		Handler:           server.New(card, agent),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	fmt.Fprintf(c.App.Writer, "Demo agent %q listening on %s\n", card.Name, agentURL)
	fmt.Fprintf(c.App.Writer, "Agent card: %s.well-known/agent.json\n", agentURL)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		slog.Info("Shutting down demo agent")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
