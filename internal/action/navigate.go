package action

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nerrad567/autofill-core/internal/step"
)

// ChangeURLExecutor navigates the page to the step value.
type ChangeURLExecutor struct {
	page Page
}

func (e *ChangeURLExecutor) Kinds() []step.ActionKind {
	return []step.ActionKind{step.ActionChangeURL}
}

func (e *ChangeURLExecutor) Execute(ctx context.Context, req Request) Result {
	target := strings.TrimSpace(req.Value)
	if target == "" {
		return rejected("change_url step needs a URL")
	}
	u, err := url.Parse(target)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return rejected("invalid URL %q", target)
	}

	if err := e.page.Navigate(ctx, u.String()); err != nil {
		return failed("navigate to %s: %v", u.Redacted(), err)
	}
	return succeeded("navigated to %s", u.Redacted())
}

// screenshotTimeLayout is appended to screenshot names: YYYYMMDDhhmm.
const screenshotTimeLayout = "200601021504"

// ScreenshotExecutor captures the viewport to {name}_YYYYMMDDhhmm.png in
// the artifact directory.
type ScreenshotExecutor struct {
	page Page
	dir  string
	now  func() time.Time
}

func (e *ScreenshotExecutor) Kinds() []step.ActionKind {
	return []step.ActionKind{step.ActionScreenshot}
}

func (e *ScreenshotExecutor) Execute(ctx context.Context, req Request) Result {
	name := strings.TrimSpace(req.Value)
	if name == "" {
		return rejected("screenshot step needs a file name")
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return rejected("screenshot name %q must not contain a path", name)
	}

	png, err := e.page.Screenshot(ctx)
	if err != nil {
		return failed("capture screenshot: %v", err)
	}

	path, err := e.save(name, png)
	if err != nil {
		return failed("save screenshot: %v", err)
	}

	res := succeeded("screenshot saved: %s", filepath.Base(path))
	res.Artifact = path
	return res
}

// ScreenshotFileName returns the file name a screenshot named name taken
// at t is saved under.
func ScreenshotFileName(name string, t time.Time) string {
	return name + "_" + t.Format(screenshotTimeLayout) + ".png"
}

func (e *ScreenshotExecutor) save(name string, data []byte) (string, error) {
	dir := e.dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("creating %s: %w", dir, err)
	}
	path := filepath.Join(dir, ScreenshotFileName(name, e.now()))
	if err := os.WriteFile(path, data, 0o640); err != nil { //nolint:gosec // artifact directory is operator-configured
		return "", err
	}
	return path, nil
}
