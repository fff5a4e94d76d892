package view

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type (
	spinnerStartMsg struct{}
	spinnerStopMsg  struct{}
	statusMsg       struct{ header, message string }
	hideStatusMsg   struct{}
	showResultsMsg  struct{}
)

var (
	statusHeaderStyle  = lipgloss.NewStyle().Bold(true)
	statusMessageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// statusModel 状态显示区域的 bubbletea 模型.
type statusModel struct {
	user     string
	spinner  spinner.Model
	spinning bool
	header   string
	message  string
	// hidden 后不再渲染任何内容
	hidden      bool
	interrupted bool
	onInterrupt func()
}

func newStatusModel(user string, onInterrupt func()) statusModel {
	return statusModel{
		user:        user,
		spinner:     spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("39")))),
		header:      "Loading",
		onInterrupt: onInterrupt,
	}
}

func (m statusModel) Init() tea.Cmd { return nil }

func (m statusModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.interrupted = true
			if m.onInterrupt != nil {
				m.onInterrupt()
			}

			return m, tea.Quit
		}
	case spinnerStartMsg:
		if m.spinning {
			return m, nil
		}

		m.spinning = true

		return m, m.spinner.Tick
	case spinnerStopMsg:
		m.spinning = false
		// 错误为终态，保留最后的状态后退出
		return m, tea.Quit
	case statusMsg:
		m.header, m.message = msg.header, msg.message
	case hideStatusMsg:
		m.hidden = true
		m.spinning = false
	case showResultsMsg:
		return m, tea.Quit
	case spinner.TickMsg:
		if !m.spinning {
			return m, nil
		}

		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd
	}

	return m, nil
}

func (m statusModel) View() string {
	if m.hidden {
		return ""
	}

	line := statusHeaderStyle.Render(m.header)
	if m.spinning {
		line = m.spinner.View() + " " + line
	}

	if m.message != "" {
		line += "  " + statusMessageStyle.Render(m.message)
	}

	return "@" + m.user + "\n" + line + "\n"
}

// TUI 交互式状态显示，实现 poller.View.
//
// Run 在主 goroutine 中运行 bubbletea 循环，轮询在另一个 goroutine 中通过
// Program.Send 推送状态；完成或失败后程序自行退出.
type TUI struct {
	program *tea.Program
}

// NewTUI 创建 TUI，用户按下 ctrl+c/q/esc 时调用 onInterrupt.
func NewTUI(user string, onInterrupt func(), opts ...tea.ProgramOption) *TUI {
	return &TUI{program: tea.NewProgram(newStatusModel(user, onInterrupt), opts...)}
}

// Run 阻塞直到程序退出，返回是否被用户中断.
func (t *TUI) Run() (interrupted bool, err error) {
	final, err := t.program.Run()
	if err != nil {
		return false, err
	}

	m, ok := final.(statusModel)

	return ok && m.interrupted, nil
}

// Quit 从外部结束程序, 轮询任务结束后调用, 程序已退出时无效果.
func (t *TUI) Quit() { t.program.Quit() }

func (t *TUI) StartSpinner() { t.program.Send(spinnerStartMsg{}) }

func (t *TUI) StopSpinner() { t.program.Send(spinnerStopMsg{}) }

func (t *TUI) SetStatus(header, message string) {
	t.program.Send(statusMsg{header: header, message: message})
}

func (t *TUI) HideStatus() { t.program.Send(hideStatusMsg{}) }

func (t *TUI) ShowResults() { t.program.Send(showResultsMsg{}) }
