package cli

import (
	"bufio"
	"fmt"
	"os"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/policyqa/internal/adapters/driving/tui"
	"github.com/custodia-labs/policyqa/internal/core/domain"
	"github.com/custodia-labs/policyqa/internal/core/ports/driving"
	"github.com/custodia-labs/policyqa/internal/logger"
)

// isTerminal reports whether the chat can take over the screen.
var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

var chatCmd = &cobra.Command{
	Use:   "chat [file.pdf]",
	Short: "Start an interactive claims conversation",
	Long: `Open a policy document and ask claims questions about it.

When the model needs more information it asks follow-up questions; your next
line is treated as the answer and the combined query is asked again.

Session commands:
  skip     - Drop the pending follow-up and ask something new
  rebuild  - Re-index the document from the source file
  back     - Choose another document
  exit     - Quit

A full-screen interface is used on a terminal. Use --plain for a line based
prompt, which is also used when input is piped.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runChat,
}

func init() {
	chatCmd.Flags().Bool("plain", false, "use the line based prompt instead of the full-screen interface")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	svc, err := need("chat", func(s *Services) bool { return s.Chat != nil })
	if err != nil {
		return err
	}
	plain, err := cmd.Flags().GetBool("plain")
	if err != nil {
		return fmt.Errorf("getting plain flag: %w", err)
	}

	var path string
	if len(args) == 1 {
		path = args[0]
	}

	if !plain && isTerminal() {
		return runChatTUI(cmd, svc.Chat, path)
	}
	return runChatREPL(cmd, svc.Chat, path)
}

func runChatTUI(cmd *cobra.Command, chat driving.ChatService, path string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
			err = fmt.Errorf("TUI panic: %v", r)
		}
	}()

	// Log lines would tear the alternate screen.
	logger.SetQuiet(true)
	defer logger.SetQuiet(false)

	app, err := tui.NewApp(&tui.Ports{Chat: chat})
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	app.WithContext(cmd.Context()).WithInitialPath(path)

	if err := app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// runChatREPL alternates between choosing a document and chatting about it.
func runChatREPL(cmd *cobra.Command, chat driving.ChatService, path string) error {
	in := bufio.NewScanner(cmd.InOrStdin())

	for {
		if path == "" {
			cmd.Print("PDF path (or exit)> ")
			line, ok := scanLine(in)
			if !ok || strings.EqualFold(line, string(domain.CommandExit)) {
				return in.Err()
			}
			if line == "" {
				continue
			}
			path = line
		}

		cmd.Printf("Opening %s...\n", path)
		session, err := chat.Open(cmd.Context(), path)
		if err != nil {
			cmd.Printf("Error: %v\n", err)
			path = ""
			continue
		}
		if s, ok := session.(interface{ Summary() *domain.BuildSummary }); ok && s.Summary() != nil {
			printSummary(cmd, s.Summary())
		}
		cmd.Println("Ask a question, or type skip, rebuild, back or exit.")

		back, err := chatLoop(cmd, in, session)
		if cerr := session.Close(); cerr != nil {
			logger.Warn("closing session: %v", cerr)
		}
		if err != nil || !back {
			return err
		}
		path = ""
	}
}

// chatLoop runs one session. It reports whether the user asked to go back.
func chatLoop(cmd *cobra.Command, in *bufio.Scanner, session driving.ChatSession) (bool, error) {
	for {
		if session.Phase() == domain.PhaseAwaitingClarification {
			cmd.Print("more info> ")
		} else {
			cmd.Print("question> ")
		}

		line, ok := scanLine(in)
		if !ok {
			cmd.Println()
			return false, in.Err()
		}

		reply, err := session.Handle(cmd.Context(), line)
		if err != nil {
			cmd.Printf("Error: %v\n", err)
			continue
		}

		switch reply.Command {
		case domain.CommandExit:
			return false, nil
		case domain.CommandBack:
			return true, nil
		}
		printReply(cmd, reply)
	}
}

func printReply(cmd *cobra.Command, reply domain.Reply) {
	for _, n := range reply.Notices {
		cmd.Printf("! %s\n", n)
	}
	if reply.Verdict != nil {
		printVerdict(cmd, *reply.Verdict, reply.Passages)
		cmd.Println()
	}
}

func scanLine(in *bufio.Scanner) (string, bool) {
	if !in.Scan() {
		return "", false
	}
	return strings.TrimSpace(in.Text()), true
}
