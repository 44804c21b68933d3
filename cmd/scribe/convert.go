package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/chris/scribe/internal/converter"
	"github.com/chris/scribe/internal/llm"
	"github.com/chris/scribe/internal/settings"
)

var (
	fromFlag  string
	toFlag    string
	modelFlag string
)

var convertCmd = &cobra.Command{
	Use:   "convert [file]",
	Short: "Translate source code into another language",
	Long: `Translate source code read from a file, or from stdin when no file is
given. On a terminal the translation is shown as it streams in.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConvert,
}

func init() {
	def := settings.Default()
	convertCmd.Flags().StringVar(&fromFlag, "from", def.SourceLang, "source language")
	convertCmd.Flags().StringVar(&toFlag, "to", def.DestLang, "target language")
	convertCmd.Flags().StringVarP(&modelFlag, "model", "m", string(def.Backend), "model backend ("+backendNames()+")")
}

func runConvert(cmd *cobra.Command, args []string) error {
	code, err := readInput(args, os.Stdin)
	if err != nil {
		return err
	}

	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.settings.SetLanguages(fromFlag, toFlag); err != nil {
		return err
	}
	if err := a.settings.SetBackend(modelFlag); err != nil {
		return err
	}
	req := converter.RequestFrom(a.settings.Snapshot(), code)

	if !isatty.IsTerminal(os.Stdout.Fd()) {
		out, err := a.converter.Convert(cmd.Context(), req, nil)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	}
	return streamConvert(cmd.Context(), a.converter, req)
}

func readInput(args []string, stdin io.Reader) (string, error) {
	var data []byte
	var err error
	if len(args) > 0 {
		data, err = os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", args[0], err)
		}
	} else {
		data, err = io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", fmt.Errorf("no source code given")
	}
	return string(data), nil
}

// --- streaming view ---

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

type textMsg string

type doneMsg struct{ err error }

type convertModel struct {
	header  string
	text    string
	done    bool
	err     error
	spinner spinner.Model
	cancel  context.CancelFunc
}

func newConvertModel(header string, cancel context.CancelFunc) convertModel {
	sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(statusStyle))
	return convertModel{header: header, spinner: sp, cancel: cancel}
}

func (m convertModel) Init() tea.Cmd { return m.spinner.Tick }

func (m convertModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case textMsg:
		m.text = string(msg)
	case doneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
			m.cancel()
		}
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m convertModel) View() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(m.header))
	b.WriteString("\n\n")
	b.WriteString(m.text)
	b.WriteString("\n")
	switch {
	case m.err != nil:
		b.WriteString(errStyle.Render("error: " + m.err.Error()))
		b.WriteString("\n")
	case !m.done:
		b.WriteString(m.spinner.View() + statusStyle.Render(" streaming… (esc to cancel)"))
		b.WriteString("\n")
	}
	return b.String()
}

func streamConvert(ctx context.Context, c *converter.Converter, req converter.Request) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Log lines would tear the view.
	prev := log.Writer()
	log.SetOutput(io.Discard)
	defer log.SetOutput(prev)

	m := newConvertModel(fmt.Sprintf("%s → %s · %s", req.SourceLang, req.DestLang, req.Backend), cancel)
	p := tea.NewProgram(m, tea.WithContext(ctx))

	go func() {
		_, err := c.Convert(ctx, req, func(text string) error {
			p.Send(textMsg(text))
			return nil
		})
		p.Send(doneMsg{err: err})
	}()

	final, err := p.Run()
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("running view: %w", err)
	}
	if fm, ok := final.(convertModel); ok && fm.err != nil {
		return fm.err
	}
	return ctx.Err()
}

// backendNames lists the selector values for help text.
func backendNames() string {
	return strings.Join([]string{string(llm.BackendGPT), string(llm.BackendClaude)}, ", ")
}
