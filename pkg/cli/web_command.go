package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/agent-protocol/a2a-chat/pkg/api"
)

// webCommand creates the 'web' command
func webCommand() *cli.Command {
	flags := append(webServerFlags(), clientFlags()...)
	flags = append(flags, &cli.StringSliceFlag{
		Name:  "allow-origins",
		Usage: "Additional origins to allow for CORS",
	})

	return &cli.Command{
		Name:   "web",
		Usage:  "Starts the browser UI for resolving agent cards and chatting with agents",
		Flags:  flags,
		Action: webCommandAction,
	}
}

func webCommandAction(c *cli.Context) error {
	cfg := appConfig(c)

	if c.IsSet("host") {
		cfg.Host = c.String("host")
	}
	if c.IsSet("port") {
		cfg.Port = c.Int("port")
	}
	if c.IsSet("allow-origins") {
		cfg.AllowOrigins = c.StringSlice("allow-origins")
	}
	if err := applyClientFlags(c, cfg); err != nil {
		return err
	}

	server, err := api.NewServer(&api.ServerConfig{
		Host:           cfg.Host,
		Port:           cfg.Port,
		AllowOrigins:   cfg.AllowOrigins,
		Stream:         cfg.Stream,
		TaskTimeout:    cfg.TaskTimeout,
		CardTimeout:    cfg.CardTimeout,
		Headers:        cfg.Headers,
		SessionIdleTTL: cfg.SessionTTL,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	fmt.Fprintf(c.App.Writer, "A2A chat UI available at: http://%s:%d\n", cfg.Host, cfg.Port)
	if len(cfg.AllowOrigins) > 0 {
		fmt.Fprintf(c.App.Writer, "CORS origins: %v\n", cfg.AllowOrigins)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}
