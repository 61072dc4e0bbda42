package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dvloznov/finansmanager/internal/chat"
	"github.com/dvloznov/finansmanager/internal/domain"
	"github.com/dvloznov/finansmanager/internal/interpreter"
	"github.com/dvloznov/finansmanager/internal/store"
)

var chatMessage string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Log transactions in plain language",
	Long: `Starts an interactive chat. Each line is sent to the proxy, which
extracts the intent and entities; complete transactions are saved.

Type /quit to leave.`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatMessage, "message", "m", "", "send a single message and exit")
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	return withRepository(ctx, func(repo store.Repository) error {
		proxy := chat.NewProxyClient(cfg.Client.ProxyURL, cfg.GetClientTimeout())
		conv := chat.NewConversation(userID(), proxy, repo, interpreter.New(repo, log), log)

		for _, e := range conv.Entries() {
			printEntry(out, e)
		}

		if chatMessage != "" {
			return send(ctx, out, conv, chatMessage)
		}

		scanner := bufio.NewScanner(cmd.InOrStdin())
		fmt.Fprint(out, "> ")
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "/quit" || line == "/exit" {
				return nil
			}
			if err := send(ctx, out, conv, line); err != nil {
				return err
			}
			fmt.Fprint(out, "> ")
		}
		return scanner.Err()
	})
}

func send(ctx context.Context, out io.Writer, conv *chat.Conversation, text string) error {
	entry, err := conv.Submit(ctx, text)
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		return nil
	case errors.Is(err, chat.ErrNoProfile):
		return fmt.Errorf("no profile for %s: run 'finctl setup' first", userID())
	case err != nil && entry.Message == "":
		return err
	case err != nil:
		log.Error().Err(err).Msg("Failed to save transaction")
	}
	printEntry(out, entry)
	return nil
}

func printEntry(out io.Writer, e domain.ChatEntry) {
	fmt.Fprintf(out, "[%s] %s\n", e.Type, e.Message)
}
