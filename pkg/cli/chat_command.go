package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/urfave/cli/v2"

	"github.com/agent-protocol/a2a-chat/internal/chat"
)

// chatCommand creates the 'chat' command
func chatCommand() *cli.Command {
	flags := append(clientFlags(),
		&cli.StringFlag{
			Name:  "card-url",
			Usage: "Base URL to resolve the agent card from",
		},
		&cli.BoolFlag{
			Name:  "no-well-known",
			Usage: "Fetch agent.json directly below the card URL",
		},
		&cli.StringFlag{
			Name:  "agent-url",
			Usage: "Agent endpoint to send tasks to (defaults to the card's url)",
		},
		&cli.BoolFlag{
			Name:  "plain",
			Usage: "Print replies as plain text instead of rendered markdown",
		},
	)

	return &cli.Command{
		Name:   "chat",
		Usage:  "Chats with an agent in the terminal",
		Flags:  flags,
		Action: chatCommandAction,
	}
}

func chatCommandAction(c *cli.Context) error {
	cfg := appConfig(c)
	if err := applyClientFlags(c, cfg); err != nil {
		return err
	}

	cardURL := cfg.CardURL
	if c.IsSet("card-url") {
		cardURL = c.String("card-url")
	}
	agentURL := cfg.AgentURL
	if c.IsSet("agent-url") {
		agentURL = c.String("agent-url")
	}

	out := c.App.Writer
	session := chat.NewSession(chat.Options{
		Stream:      cfg.Stream,
		TaskTimeout: cfg.TaskTimeout,
		CardTimeout: cfg.CardTimeout,
		Headers:     cfg.Headers,
	})

	if cardURL != "" {
		summary, err := session.ResolveCard(c.Context, cardURL, !c.Bool("no-well-known"))
		if err != nil {
			return cli.Exit(chat.DescribeCardError(err).Message, 1)
		}
		fmt.Fprintf(out, "Resolved agent card: %s %s\n", summary.Name, summary.Version)
		if summary.Description != "" {
			fmt.Fprintf(out, "  %s\n", summary.Description)
		}
		fmt.Fprintf(out, "  url: %s  streaming: %t  pushNotifications: %t\n",
			summary.URL, summary.Capabilities.Streaming, summary.Capabilities.PushNotifications)
		if agentURL == "" {
			agentURL = summary.URL
		}
	}

	if err := session.Connect(agentURL); err != nil {
		return cli.Exit(chat.DescribeConnectError(err).Message, 1)
	}
	fmt.Fprintf(out, "Connected to %s (session %s). Type /reset for a new session, /quit to leave.\n",
		session.AgentURL(), session.ID())

	renderer := newReplyRenderer(out, c.Bool("plain"))
	return chatLoop(c, session, renderer)
}

func chatLoop(c *cli.Context, session *chat.Session, renderer *replyRenderer) error {
	out := c.App.Writer
	scanner := bufio.NewScanner(c.App.Reader)

	for {
		fmt.Fprint(out, "👤 > ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/reset":
			session.Reset()
			fmt.Fprintf(out, "Started session %s\n", session.ID())
			continue
		}

		streaming := session.Streaming()
		printed := 0
		fmt.Fprint(out, "🤖 ")

		reply, err := session.Send(c.Context, line, func(text string) {
			if !streaming {
				return
			}
			// updates carry the whole reply so far
			if len(text) > printed {
				fmt.Fprint(out, text[printed:])
				printed = len(text)
			}
		})
		if err != nil {
			fmt.Fprintln(out)
			fmt.Fprintln(c.App.ErrWriter, chat.DescribeSendError(err).Message)
			continue
		}

		if streaming {
			fmt.Fprintln(out)
			continue
		}
		renderer.Render(reply)
	}
}

// replyRenderer prints agent replies, as terminal markdown when possible.
type replyRenderer struct {
	out io.Writer
	md  *glamour.TermRenderer
}

func newReplyRenderer(out io.Writer, plain bool) *replyRenderer {
	r := &replyRenderer{out: out}
	if plain {
		return r
	}

	md, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err == nil {
		r.md = md
	}
	return r
}

func (r *replyRenderer) Render(reply string) {
	if r.md != nil {
		if rendered, err := r.md.Render(reply); err == nil {
			fmt.Fprint(r.out, strings.TrimLeft(rendered, "\n"))
			return
		}
	}
	fmt.Fprintln(r.out, reply)
}
