package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/chris/scribe/internal/db"
	"github.com/chris/scribe/internal/llm"
)

var (
	lengthFlag    string
	chatModelFlag string
	resumeFlag    string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the news summarizer",
	Long: `Start an interactive summarizer session. Paste a news article URL or ask
a question. Commands:
  /length N    set the summary length (50, 75, 100 or 125 words)
  /model NAME  switch between GPT and Claude
  exit         leave the session

Conversations are stored and can be continued with --resume.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&lengthFlag, "length", "l", "", "summary length in words")
	chatCmd.Flags().StringVarP(&chatModelFlag, "model", "m", "", "model backend ("+backendNames()+")")
	chatCmd.Flags().StringVar(&resumeFlag, "resume", "", "continue a stored conversation by ID")
}

func runChat(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	if lengthFlag != "" {
		if err := a.settings.SetSummaryLength(lengthFlag); err != nil {
			return err
		}
	}
	if chatModelFlag != "" {
		if err := a.settings.SetBackend(chatModelFlag); err != nil {
			return err
		}
	}

	s := &chatSession{app: a, out: cmd.OutOrStdout()}
	if resumeFlag != "" {
		history, err := a.db.LoadMessages(resumeFlag)
		if err != nil {
			return err
		}
		s.id, s.history = resumeFlag, history
		fmt.Fprintf(s.out, "resumed %s (%d messages)\n", resumeFlag, len(history))
	}

	interactive := isatty.IsTerminal(os.Stdin.Fd())
	if isatty.IsTerminal(os.Stdout.Fd()) {
		if r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100)); err == nil {
			s.renderer = r
		}
	}
	return s.loop(cmd.Context(), os.Stdin, interactive)
}

type chatSession struct {
	app      *app
	out      io.Writer
	renderer *glamour.TermRenderer
	id       string
	history  []llm.Message
}

func (s *chatSession) loop(ctx context.Context, in io.Reader, interactive bool) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	prompt := func() {
		if interactive {
			fmt.Fprint(s.out, "scribe> ")
		}
	}
	prompt()
	for scanner.Scan() {
		input := strings.TrimSpace(scanner.Text())
		switch {
		case input == "":
		case input == "exit" || input == "quit":
			return nil
		case strings.HasPrefix(input, "/"):
			fmt.Fprintln(s.out, s.command(input))
		default:
			if err := s.send(ctx, input); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
			}
		}
		if ctx.Err() != nil {
			return nil
		}
		prompt()
	}
	return scanner.Err()
}

func (s *chatSession) command(input string) string {
	fields := strings.Fields(input)
	arg := ""
	if len(fields) > 1 {
		arg = fields[1]
	}
	switch fields[0] {
	case "/length":
		if err := s.app.settings.SetSummaryLength(arg); err != nil {
			return err.Error()
		}
		return fmt.Sprintf("summary length set to %s words", arg)
	case "/model":
		if err := s.app.settings.SetBackend(arg); err != nil {
			return err.Error()
		}
		return "using " + arg
	default:
		return "commands: /length N, /model NAME, exit"
	}
}

func (s *chatSession) send(ctx context.Context, input string) error {
	reply, newHistory, err := s.app.agent.Run(ctx, s.app.settings.Snapshot(), s.history, input)
	if err != nil {
		return err
	}

	if s.app.db != nil {
		if err := s.persist(newHistory[len(s.history):], input); err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}
	}
	s.history = newHistory

	out := reply
	if s.renderer != nil {
		if rendered, err := s.renderer.Render(reply); err == nil {
			out = rendered
		}
	}
	fmt.Fprintln(s.out, strings.TrimRight(out, "\n"))
	return nil
}

func (s *chatSession) persist(turn []llm.Message, firstInput string) error {
	if s.id == "" {
		id, err := s.app.db.CreateConversation(conversationTitle(firstInput))
		if err != nil {
			return err
		}
		s.id = id
	}
	return s.app.db.AppendMessages(s.id, turn)
}

// conversationTitle is the first line of the opening message, shortened.
func conversationTitle(input string) string {
	title, _, _ := strings.Cut(input, "\n")
	title = strings.TrimSpace(title)
	if r := []rune(title); len(r) > 60 {
		title = string(r[:60]) + "…"
	}
	return title
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored chat conversations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(true)
		if err != nil {
			return err
		}
		defer a.Close()

		convs, err := a.db.ListConversations(20)
		if err != nil {
			return err
		}
		printConversations(cmd.OutOrStdout(), convs)
		return nil
	},
}

func printConversations(w io.Writer, convs []db.Conversation) {
	if len(convs) == 0 {
		fmt.Fprintln(w, "no conversations yet")
		return
	}
	for _, c := range convs {
		fmt.Fprintf(w, "%s  %-3d %s  %s\n", c.ID, c.Messages, sinceLabel(c.UpdatedAt), c.Title)
	}
}
