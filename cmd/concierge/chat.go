package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/aiox-platform/concierge/internal/orchestrator"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the concierge in the terminal",
	Long: `Starts an interactive session. Episodes are kept in a local DuckDB file, so
running chat again with the same --actor and --session continues the conversation.
Type /quit to leave.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		actor, _ := cmd.Flags().GetString("actor")
		session, _ := cmd.Flags().GetString("session")
		plain, _ := cmd.Flags().GetBool("plain")
		if session == "" {
			session = uuid.NewString()
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		stack, err := localStack(ctx, cmd)
		if err != nil {
			return err
		}
		defer stack.Close()

		render := plainText
		if !plain {
			render = markdownRenderer()
		}

		fmt.Fprintf(cmd.OutOrStdout(), "session %s (actor %s)\n", session, actor)
		return runChat(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), stack.Engine, render, actor, session)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().String("actor", defaultActor(), "Actor id the episodes belong to")
	chatCmd.Flags().String("session", "", "Session id to continue (default: a new one)")
	chatCmd.Flags().Bool("plain", false, "Print replies without markdown rendering")
}

func runChat(ctx context.Context, in io.Reader, out io.Writer, engine orchestrator.TurnHandler, render func(string) string, actor, session string) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
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
		}

		res, err := engine.HandleTurn(ctx, actor, session, line)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		fmt.Fprintln(out, render(res.Response))
	}
}

func markdownRenderer() func(string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return plainText
	}
	return func(s string) string {
		rendered, err := r.Render(s)
		if err != nil {
			return s
		}
		return strings.TrimRight(rendered, "\n")
	}
}

func plainText(s string) string { return s }

func defaultActor() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "local"
}
