//go:build !no_bubbletea

package upload

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	uploader "github.com/krau/fileopener/upload"
)

var (
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
)

// stateMsg carries a controller state into the UI loop
type stateMsg uploader.State

type uploadModel struct {
	progress progress.Model
	fileName string
	fileSize int64
	state    uploader.State
	width    int
}

func newUploadModel(fileName string, fileSize int64) uploadModel {
	p := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(50),
	)
	return uploadModel{
		progress: p,
		fileName: fileName,
		fileSize: fileSize,
	}
}

func (m uploadModel) Init() tea.Cmd {
	return nil
}

func (m uploadModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progress.Width = min(msg.Width-10, 80)
		return m, nil

	case stateMsg:
		m.state = uploader.State(msg)
		switch m.state.Phase() {
		case uploader.PhaseInProgress:
			return m, m.progress.SetPercent(float64(m.state.Percent()) / 100)
		case uploader.PhaseSucceeded:
			m.progress.SetPercent(1.0)
			return m, tea.Quit
		case uploader.PhaseFailed:
			return m, tea.Quit
		}
		return m, nil

	case progress.FrameMsg:
		if m.state.Phase().Terminal() {
			return m, nil
		}
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		return m, cmd
	}

	return m, nil
}

func (m uploadModel) View() string {
	if m.state.Phase() == uploader.PhaseFailed {
		return errorStyle.Render(fmt.Sprintf("\n  ❌ Error: %s\n\n", m.state.Err().Error()))
	}

	var sb strings.Builder
	sb.WriteString("\n")

	sb.WriteString(fmt.Sprintf("  📁 %s\n", m.fileName))
	if m.fileSize >= 0 {
		sent := m.fileSize * int64(m.state.Percent()) / 100
		sb.WriteString(fmt.Sprintf("  📊 %s / %s\n\n",
			humanize.Bytes(uint64(sent)),
			humanize.Bytes(uint64(m.fileSize)),
		))
	} else {
		sb.WriteString("  📊 size unknown\n\n")
	}

	sb.WriteString("  ")
	sb.WriteString(m.progress.View())
	sb.WriteString("\n\n")

	if m.state.Phase() == uploader.PhaseSucceeded {
		sb.WriteString(fmt.Sprintf("  √ Upload complete: %s\n\n", m.state.FilePath()))
	} else {
		sb.WriteString(helpStyle.Render("  Press Ctrl+C to cancel"))
		sb.WriteString("\n\n")
	}

	return sb.String()
}

// UploadProgress renders controller states as a progress bar
type UploadProgress struct {
	program *tea.Program
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewUploadProgress creates a new upload progress tracker. fileSize may be
// selection.UnknownSize.
func NewUploadProgress(ctx context.Context, fileName string, fileSize int64) *UploadProgress {
	model := newUploadModel(fileName, fileSize)
	ctx, cancel := context.WithCancel(ctx)
	p := tea.NewProgram(
		model,
		tea.WithoutSignalHandler(),
		tea.WithContext(ctx),
		tea.WithInput(nil), // Disable keyboard input, rely on context cancellation
	)
	return &UploadProgress{
		program: p,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start starts the progress UI in a goroutine and returns immediately
func (up *UploadProgress) Start() {
	go func() {
		up.program.Run()
		up.cancel()
	}()
}

// Update forwards a controller state. It is meant to be registered with
// upload.WithObserver.
func (up *UploadProgress) Update(s uploader.State) {
	up.program.Send(stateMsg(s))
}

// Wait waits for the progress UI to finish
func (up *UploadProgress) Wait() {
	up.program.Wait()
}

// Quit quits the progress UI
func (up *UploadProgress) Quit() {
	up.program.Quit()
}
