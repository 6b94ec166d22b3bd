package events

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

var (
	dimColor     = lipgloss.Color("7")
	accentColor  = lipgloss.Color("12")
	successColor = lipgloss.Color("10")
	warningColor = lipgloss.Color("11")
	dangerColor  = lipgloss.Color("9")

	// User prompt echo
	UserStyle = lipgloss.NewStyle().
			Foreground(successColor).
			Bold(true)

	// Streamed assistant text
	AssistantStyle = lipgloss.NewStyle().
			Foreground(accentColor)

	ToolStyle = lipgloss.NewStyle().
			Foreground(warningColor)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(dangerColor).
			Bold(true)

	// Lifecycle and info lines
	DimStyle = lipgloss.NewStyle().
			Foreground(dimColor)
)

// TerminalSink is a LocalSink that renders events as styled lines on a
// terminal. It is the local front-end of the run command.
type TerminalSink struct {
	mu        sync.Mutex
	out       io.Writer
	verbose   bool
	closed    bool
	streaming bool
}

// NewTerminalSink renders to out. When verbose is false, chunk and tool
// argument detail is hidden.
func NewTerminalSink(out io.Writer, verbose bool) *TerminalSink {
	return &TerminalSink{out: out, verbose: verbose}
}

// Closed reports whether Close was called.
func (t *TerminalSink) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// Close stops rendering. Later events are ignored by the gateway.
func (t *TerminalSink) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.streaming {
		fmt.Fprintln(t.out)
		t.streaming = false
	}
	t.closed = true
}

// Send renders a single event.
func (t *TerminalSink) Send(eventType string, data any) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return
	}

	switch d := data.(type) {
	case ResponseChunkData:
		fmt.Fprint(t.out, AssistantStyle.Render(d.Chunk))
		t.streaming = true
		return
	case ResponseCompletedData:
		t.endStream()
		if d.UsageReport != nil && t.verbose {
			t.line(DimStyle.Render(fmt.Sprintf("tokens: %d sent, %d received", d.UsageReport.SentTokens, d.UsageReport.ReceivedTokens)))
		}
		return
	}

	t.endStream()

	switch d := data.(type) {
	case UserMessageData:
		t.line(UserStyle.Render("> " + d.Content))
	case ToolData:
		t.line(renderTool(d, t.verbose))
	case QuestionData:
		t.line(ToolStyle.Render("? " + d.Text + " " + renderAnswers(d.Answers)))
	case LogData:
		switch d.Level {
		case LogError:
			t.line(ErrorStyle.Render(d.Message))
		case LogWarning:
			t.line(ToolStyle.Render(d.Message))
		default:
			t.line(DimStyle.Render(d.Message))
		}
	case TaskData:
		text := fmt.Sprintf("[%s] %s", eventType, d.Name)
		if d.Error != "" {
			t.line(ErrorStyle.Render(text + ": " + d.Error))
			return
		}
		t.line(DimStyle.Render(text))
	default:
		if t.verbose {
			t.line(DimStyle.Render("[" + eventType + "]"))
		}
	}
}

func (t *TerminalSink) endStream() {
	if t.streaming {
		fmt.Fprintln(t.out)
		t.streaming = false
	}
}

func (t *TerminalSink) line(s string) {
	fmt.Fprintln(t.out, s)
}

func renderTool(d ToolData, verbose bool) string {
	name := d.ServerName + "/" + d.ToolName
	if d.Response == "" {
		label := ToolStyle.Render("tool " + name)
		if verbose && len(d.Args) > 0 {
			args := make([]string, 0, len(d.Args))
			for k, v := range d.Args {
				args = append(args, fmt.Sprintf("%s=%v", k, v))
			}
			label += " " + DimStyle.Render(strings.Join(args, " "))
		}
		return label
	}

	response := d.Response
	if !verbose {
		if i := strings.IndexByte(response, '\n'); i >= 0 {
			response = response[:i] + " ..."
		}
	}
	return DimStyle.Render(name + " -> " + response)
}

func renderAnswers(answers []Answer) string {
	keys := make([]string, 0, len(answers))
	for _, a := range answers {
		keys = append(keys, a.Shortkey)
	}
	return "[" + strings.Join(keys, "/") + "]"
}
