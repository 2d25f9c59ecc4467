package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Lin-Jiong-HDU/jarvis/internal/conversation"
	"github.com/Lin-Jiong-HDU/jarvis/internal/terminal"
)

var (
	chatPersona    string
	chatContinueID string
	chatList       bool
	chatShowID     string
	chatDeleteID   string
	chatNoRender   bool
)

func getChatCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to jarvis in the terminal",
		Long:  "Interactive typed session. Commands run through the allowlist; everything else is chat.",
		Args:  cobra.NoArgs,
		RunE:  runChat,
	}

	cmd.Flags().StringVarP(&chatPersona, "persona", "p", "", "Persona name (default from chat.persona)")
	cmd.Flags().StringVarP(&chatContinueID, "continue", "c", "", "Resume a conversation by ID")
	cmd.Flags().BoolVarP(&chatList, "list", "l", false, "List saved conversations")
	cmd.Flags().StringVarP(&chatShowID, "show", "s", "", "Show a saved conversation")
	cmd.Flags().StringVarP(&chatDeleteID, "delete", "d", "", "Delete a saved conversation")
	cmd.Flags().BoolVar(&chatNoRender, "no-render", false, "Disable markdown rendering")

	return cmd
}

func runChat(cmd *cobra.Command, args []string) error {
	a, err := newApp(appConfig, os.Stdout)
	if err != nil {
		return err
	}
	defer a.Close()

	switch {
	case chatList:
		return runListConversations(a.manager)
	case chatShowID != "":
		return runShowConversation(a.manager, chatShowID)
	case chatDeleteID != "":
		return runDeleteConversation(a.manager, chatDeleteID)
	}

	var session *conversation.Session
	if chatContinueID != "" {
		session, err = a.manager.Resume(chatContinueID)
		if err != nil {
			return fmt.Errorf("conversation not found: %s", chatContinueID)
		}
		fmt.Printf("📂 Resuming conversation %s\n", session.ID)
	} else {
		session = a.newSession()
		if chatPersona != "" {
			session.Persona = a.personas.Resolve(chatPersona)
		}
	}

	var markdown *terminal.Markdown
	if !chatNoRender && a.cfg.Chat.RenderMarkdown {
		if markdown, err = terminal.NewMarkdown(os.Stdout); err != nil {
			slog.Warn("Markdown rendering is off", "err", err)
		}
	}

	repl := terminal.NewREPL(terminal.REPLOptions{
		Process:  engineProcess(a),
		Session:  session,
		Manager:  a.manager,
		Markdown: markdown,
		Personas: a.personas,
		Lines:    a.lines,
		Out:      os.Stdout,
	})

	ctx, cancel := signalContext()
	defer cancel()

	if err := repl.Run(ctx); err != nil {
		return err
	}

	waitPending(ctx, a, os.Stdout)
	return nil
}

// engineProcess adapts the engine to the REPL.
func engineProcess(a *app) terminal.ProcessFunc {
	return func(ctx context.Context, s *conversation.Session, input string) (terminal.Answer, error) {
		reply, err := a.engine.Process(ctx, s, input)
		return terminal.Answer{Text: reply.Text, Markdown: !reply.Command && !reply.Reset}, err
	}
}

func runListConversations(manager *conversation.Manager) error {
	sessions, err := manager.List()
	if err != nil {
		return err
	}

	if len(sessions) == 0 {
		fmt.Println("💬 No saved conversations")
		return nil
	}

	fmt.Println("💬 Conversations:")
	fmt.Println()

	for _, s := range sessions {
		fmt.Printf("  %s  %3d messages  %s\n",
			s.ID,
			len(s.Messages),
			s.UpdatedAt.Format("2006-01-02 15:04"),
		)
	}

	return nil
}

func runShowConversation(manager *conversation.Manager, id string) error {
	s, err := manager.Resume(id)
	if err != nil {
		return fmt.Errorf("conversation not found: %w", err)
	}

	fmt.Printf("Conversation: %s\n", s.ID)
	fmt.Printf("Started: %s\n", s.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Messages: %d\n", len(s.Messages))
	fmt.Println()

	for _, msg := range s.Messages {
		fmt.Printf("[%s]: %s\n\n", msg.Role, msg.Content)
	}

	return nil
}

func runDeleteConversation(manager *conversation.Manager, id string) error {
	s, err := manager.Resume(id)
	if err != nil {
		return fmt.Errorf("conversation not found: %w", err)
	}
	if err := manager.Discard(s); err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}

	fmt.Printf("✓ Conversation deleted: %s\n", id)
	return nil
}
