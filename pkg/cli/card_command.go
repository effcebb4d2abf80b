package cli

import (
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/agent-protocol/a2a-chat/internal/chat"
)

// cardCommand creates the 'card' command
func cardCommand() *cli.Command {
	return &cli.Command{
		Name:      "card",
		Usage:     "Resolves an agent card and prints it as JSON",
		ArgsUsage: "[CARD_URL]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "no-well-known",
				Usage: "Fetch agent.json directly below the URL instead of .well-known/agent.json",
			},
			&cli.BoolFlag{
				Name:  "full",
				Usage: "Print the whole card instead of the summary",
			},
		},
		Action: cardCommandAction,
	}
}

func cardCommandAction(c *cli.Context) error {
	cfg := appConfig(c)

	cardURL := c.Args().First()
	if cardURL == "" {
		cardURL = cfg.CardURL
	}

	session := chat.NewSession(chat.Options{
		CardTimeout: cfg.CardTimeout,
		Headers:     cfg.Headers,
	})

	summary, err := session.ResolveCard(c.Context, cardURL, !c.Bool("no-well-known"))
	if err != nil {
		return cli.Exit(chat.DescribeCardError(err).Message, 1)
	}

	var out any = summary
	if c.Bool("full") {
		out = session.Card()
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode agent card: %w", err)
	}

	fmt.Fprintln(c.App.Writer, string(data))
	return nil
}
