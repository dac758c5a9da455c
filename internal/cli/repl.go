// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/peterh/liner"

	"github.com/lumia-app/mia-tui/internal/chat"
	"github.com/lumia-app/mia-tui/internal/config"
	"github.com/lumia-app/mia-tui/internal/lmstudio"
	"github.com/lumia-app/mia-tui/internal/model"
	"github.com/lumia-app/mia-tui/internal/store"
	"github.com/lumia-app/mia-tui/internal/ui/styles"
	"github.com/lumia-app/mia-tui/internal/util"
)

// ============================================================================
// STYLES
// ============================================================================

var (
	promptStyle  = lipgloss.NewStyle().Foreground(styles.ColorPurple).Bold(true)
	welcomeStyle = lipgloss.NewStyle().Foreground(styles.ColorCyan)
	infoStyle    = lipgloss.NewStyle().Foreground(styles.ColorSubtext)
	warningStyle = lipgloss.NewStyle().Foreground(styles.ColorAmber)
	errorStyle   = lipgloss.NewStyle().Foreground(styles.ColorRose)
)

// markdownRenderer renders assistant markdown for TTY output. A nil
// renderer means fall back to plain text.
var markdownRenderer *glamour.TermRenderer

func init() {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err == nil {
		markdownRenderer = r
	}
}

// renderMarkdown renders content as markdown, falling back to the raw
// text when rendering is unavailable.
func renderMarkdown(content string) string {
	if markdownRenderer == nil {
		return content
	}
	out, err := markdownRenderer.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(out, "\n") + "\n"
}

// ============================================================================
// LINE EDITOR
// ============================================================================

// replHistoryFile sits next to the config file and persists the REPL's
// input history between runs.
const replHistoryFile = "repl_history"

// ChatREPL wraps the line editor with persistent input history.
type ChatREPL struct {
	line        *liner.State
	historyPath string
}

// NewChatREPL creates the line editor and loads prior input history.
func NewChatREPL() *ChatREPL {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	r := &ChatREPL{line: line}
	if dir, err := config.ConfigDir(); err == nil {
		r.historyPath = filepath.Join(dir, replHistoryFile)
		if f, err := os.Open(r.historyPath); err == nil {
			r.line.ReadHistory(f)
			f.Close()
		}
	}
	return r
}

// ReadInput prompts for one line of input.
func (r *ChatREPL) ReadInput(prompt string) (string, error) {
	input, err := r.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		r.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves input history and releases the terminal.
func (r *ChatREPL) Close() {
	if r.historyPath != "" {
		if f, err := os.OpenFile(r.historyPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			r.line.WriteHistory(f)
			f.Close()
		}
	}
	r.line.Close()
}

// ============================================================================
// STREAM PRINTER
// ============================================================================

// streamPrinter echoes live-buffer growth to stdout as tokens arrive.
type streamPrinter struct {
	mu      sync.Mutex
	printed int
}

func (p *streamPrinter) update(ctrl *chat.Controller) {
	p.mu.Lock()
	defer p.mu.Unlock()
	live := ctrl.Live()
	if len(live) > p.printed {
		fmt.Print(live[p.printed:])
		p.printed = len(live)
	}
}

func (p *streamPrinter) reset() {
	p.mu.Lock()
	p.printed = 0
	p.mu.Unlock()
}

// ============================================================================
// REPL LOOP
// ============================================================================

// RunChat runs the line-based chat loop until the user quits. Ctrl+C
// during a response cancels it; Ctrl+C at the prompt exits.
func RunChat(st *store.Store, client chat.Completer, cfg *config.Config, plain bool) error {
	printer := &streamPrinter{}
	var ctrl *chat.Controller
	ctrl = chat.NewController(st, client, chat.Config{
		Policy:   PolicyFromConfig(cfg),
		Options:  OptionsFromConfig(cfg),
		Greeting: greetingEnabled(cfg),
		OnUpdate: func() {
			printer.update(ctrl)
		},
	})

	session := st.EnsureActive()
	if greetingEnabled(cfg) && session.IsEmpty() {
		_ = st.AddMessage(session.ID, model.NewAssistantMessage(chat.AssistantGreeting))
	}
	markdown := !plain && IsStdoutTTY()

	repl := NewChatREPL()
	defer repl.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)
	go func() {
		for range sigCh {
			ctrl.CancelActive()
		}
	}()

	fmt.Println(welcomeStyle.Render("mia chat - " + session.Title))
	fmt.Println(infoStyle.Render("Type /help for commands, /quit to exit."))
	fmt.Println()

	for {
		input, err := repl.ReadInput(promptStyle.Render("you> "))
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, liner.ErrNotTerminalOutput) {
				fmt.Println()
				return nil
			}
			// EOF from a closed stdin also ends the session.
			fmt.Println()
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if quit := handleSlashCommand(ctrl, input, markdown); quit {
				return nil
			}
			continue
		}

		printer.reset()
		fmt.Print(promptStyle.Render("mia> "))
		err = ctrl.Send(context.Background(), input)
		fmt.Println()
		switch {
		case err == nil:
		case errors.Is(err, context.Canceled):
			fmt.Println(warningStyle.Render("(cancelled)"))
		case errors.Is(err, chat.ErrBusy):
			fmt.Println(warningStyle.Render("(still responding)"))
		default:
			// The transcript already carries the error message.
			fmt.Println(errorStyle.Render("(request failed: " + err.Error() + ")"))
		}
		fmt.Println()
	}
}

// greetingEnabled reports whether a new session should open with the
// canned assistant greeting. Only the alternating surface carries it:
// there the assembly policy keeps it out of the payload, and a seeded
// message on the full-history page would stop the session from taking
// its title from the first user message.
func greetingEnabled(cfg *config.Config) bool {
	return cfg != nil && cfg.Chat.Greeting && cfg.Chat.Policy == "alternating"
}

// PolicyFromConfig maps the configured policy name to an assembler.
func PolicyFromConfig(cfg *config.Config) chat.Policy {
	if cfg != nil && cfg.Chat.Policy == "alternating" {
		return chat.NewAlternatingPolicy()
	}
	return chat.NewFullHistoryPolicy()
}

// OptionsFromConfig builds generation options from the configured
// profile, falling back to the assistant defaults when unset.
func OptionsFromConfig(cfg *config.Config) lmstudio.Options {
	if cfg == nil || (cfg.Chat.Temperature == 0 && cfg.Chat.MaxTokens == 0) {
		return lmstudio.AssistantOptions()
	}
	return lmstudio.Options{
		Temperature: cfg.Chat.Temperature,
		MaxTokens:   cfg.Chat.MaxTokens,
	}
}

// ============================================================================
// SLASH COMMANDS
// ============================================================================

func handleSlashCommand(ctrl *chat.Controller, input string, markdown bool) (quit bool) {
	st := ctrl.Store()
	cmd, rest, _ := strings.Cut(input, " ")
	rest = strings.TrimSpace(rest)

	switch cmd {
	case "/help":
		fmt.Println(infoStyle.Render(`Commands:
  /new            Start a new session
  /sessions       List sessions
  /switch <n>     Switch to session number n
  /title <text>   Rename the current session
  /history        Show the current transcript
  /clear          Clear the screen
  /quit           Exit`))

	case "/new":
		s := ctrl.NewSession()
		fmt.Println(infoStyle.Render("Started new session: " + s.Title))

	case "/sessions":
		printSessionList(st)

	case "/switch":
		n, err := strconv.Atoi(rest)
		sessions := st.Sessions()
		if err != nil || n < 1 || n > len(sessions) {
			fmt.Println(warningStyle.Render("Usage: /switch <n> (see /sessions)"))
			break
		}
		st.SetActiveChat(sessions[n-1].ID)
		fmt.Println(infoStyle.Render("Switched to: " + sessions[n-1].Title))

	case "/title":
		if err := ctrl.RenameSession(st.ActiveChatID(), rest); err != nil {
			fmt.Println(warningStyle.Render("Usage: /title <new title>"))
			break
		}
		fmt.Println(infoStyle.Render("Renamed to: " + rest))

	case "/history":
		printTranscript(st, markdown)

	case "/clear":
		fmt.Print("\033[2J\033[H")

	case "/quit", "/exit":
		return true

	default:
		fmt.Println(warningStyle.Render("Unknown command " + cmd + ", try /help"))
	}
	return false
}

func printSessionList(st *store.Store) {
	active := st.ActiveChatID()
	for i, s := range st.Sessions() {
		marker := "  "
		if s.ID == active {
			marker = "* "
		}
		line := fmt.Sprintf("%s%2d. %s (%d messages)", marker, i+1,
			util.TruncateString(s.Title, 50), len(s.Messages))
		fmt.Println(infoStyle.Render(line))
	}
}

func printTranscript(st *store.Store, markdown bool) {
	s := st.Session(st.ActiveChatID())
	if s == nil || len(s.Messages) == 0 {
		fmt.Println(infoStyle.Render("(empty transcript)"))
		return
	}
	for _, msg := range s.Messages {
		label := promptStyle.Render(msg.Role.DisplayName() + ":")
		fmt.Println(label)
		if markdown && msg.Role == model.RoleAssistant {
			fmt.Print(renderMarkdown(msg.Content))
		} else {
			fmt.Println(msg.Content)
		}
		fmt.Println()
	}
}
