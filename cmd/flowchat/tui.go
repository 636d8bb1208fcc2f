package main

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/metalagman/flowchat/internal/pipeline"
)

type exchange struct {
	message string
	reply   string
	tool    string
	failed  bool
}

type replyMsg struct {
	message string
	result  pipeline.Result[pipeline.ChatReply]
}

type chatModel struct {
	ctx     context.Context
	ask     askFunc
	render  func(string) string
	title   string
	input   textinput.Model
	spinner spinner.Model
	waiting bool
	history []exchange
}

func newChatModel(ctx context.Context, ask askFunc, render func(string) string, title string) chatModel {
	input := textinput.New()
	input.Placeholder = "Type a message, Enter to send, Esc to quit"
	input.CharLimit = 2000
	input.Focus()

	return chatModel{
		ctx:     ctx,
		ask:     ask,
		render:  render,
		title:   title,
		input:   input,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(mutedStyle)),
	}
}

func runChatTUI(ctx context.Context, ask askFunc, render func(string) string, title string) error {
	_, err := tea.NewProgram(newChatModel(ctx, ask, render, title), tea.WithContext(ctx)).Run()
	return err
}

func (m chatModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			text := strings.TrimSpace(m.input.Value())
			if m.waiting || text == "" {
				return m, nil
			}
			m.input.Reset()
			m.waiting = true
			return m, tea.Batch(m.spinner.Tick, m.send(text))
		}
	case replyMsg:
		m.waiting = false
		ex := exchange{message: msg.message}
		if msg.result.OK() {
			ex.reply = msg.result.Payload.Reply
			ex.tool = msg.result.Payload.ToolName
		} else {
			ex.reply = msg.result.Failure.Message
			ex.failed = true
		}
		m.history = append(m.history, ex)
		return m, nil
	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m chatModel) send(text string) tea.Cmd {
	return func() tea.Msg {
		return replyMsg{message: text, result: m.ask(m.ctx, text)}
	}
}

func (m chatModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")
	for _, ex := range m.history {
		b.WriteString(userStyle.Render("you: "))
		b.WriteString(ex.message)
		b.WriteString("\n")
		if ex.failed {
			b.WriteString(errorStyle.Render(ex.reply))
		} else {
			b.WriteString(m.render(ex.reply))
		}
		b.WriteString("\n")
		if ex.tool != "" {
			b.WriteString(mutedStyle.Render("tool: " + ex.tool))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	if m.waiting {
		b.WriteString(m.spinner.View())
		b.WriteString(" thinking...\n")
	} else {
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}
	return b.String()
}
