package agent

import (
	"context"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

// Opener opens a stored file with a desktop application.
type Opener interface {
	Open(ctx context.Context, path string) error
}

// ExecOpener picks an application by file extension and starts it without
// waiting for it to exit.
type ExecOpener struct {
	// Apps maps a dotted, lower-case extension to an application.
	Apps    map[string]string
	Default string

	lookPath func(string) (string, error)
	start    func(*exec.Cmd) error
}

func NewExecOpener(apps map[string]string, defaultApp string) *ExecOpener {
	return &ExecOpener{
		Apps:     apps,
		Default:  defaultApp,
		lookPath: exec.LookPath,
		start:    startDetached,
	}
}

// App returns the application for path, falling back to Default when the
// mapped one is not installed.
func (o *ExecOpener) App(path string) string {
	app, ok := o.Apps[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return o.Default
	}
	if _, err := o.lookPath(app); err != nil {
		return o.Default
	}
	return app
}

// Command builds the command that opens path with app.
func (o *ExecOpener) Command(app, path string) *exec.Cmd {
	switch app {
	case "xarchiver":
		return exec.Command(app, "--extract-to="+filepath.Dir(path), path)
	case "vlc":
		return exec.Command(app, "--no-video-title-show", path)
	default:
		return exec.Command(app, path)
	}
}

// startDetached starts cmd and reaps it in the background.
func startDetached(cmd *exec.Cmd) error {
	if err := cmd.Start(); err != nil {
		return err
	}
	go cmd.Wait()
	return nil
}

func (o *ExecOpener) Open(ctx context.Context, path string) error {
	logger := log.FromContext(ctx).WithPrefix("opener")

	app := o.App(path)
	if app != o.Default {
		err := o.start(o.Command(app, path))
		if err == nil {
			logger.Info("Opened file", "path", path, "app", app)
			return nil
		}
		logger.Warn("Failed to open file, trying default opener", "path", path, "app", app, "error", err)
	}
	if err := o.start(o.Command(o.Default, path)); err != nil {
		logger.Error("Failed to open file", "path", path, "app", o.Default, "error", err)
		return err
	}
	logger.Info("Opened file", "path", path, "app", o.Default)
	return nil
}
