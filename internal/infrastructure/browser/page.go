package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/chromedp"

	"github.com/nerrad567/autofill-core/internal/action"
)

// Page drives one browser tab. It implements action.Page; every locator
// is an XPath expression.
type Page struct {
	ctx        context.Context // tab context from chromedp.NewContext
	navTimeout time.Duration
}

var _ action.Page = (*Page)(nil)

// run executes actions on the tab, bounded by the caller's cancellation
// and deadline. The tab itself outlives ctx.
func (p *Page) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(p.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}

// evaluate waits for the element to exist, then runs script.
func (p *Page) evaluate(ctx context.Context, xpath, script string, res any) error {
	return p.run(ctx,
		chromedp.WaitReady(xpath, chromedp.BySearch),
		chromedp.Evaluate(script, res),
	)
}

// Navigate loads url and waits for the body to be ready, bounded by the
// navigation timeout.
func (p *Page) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, p.navTimeout)
	defer cancel()
	return p.run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// Click uses a real mouse click on the visible element by default and a
// script-level click in basic mode, which also reaches hidden elements.
func (p *Page) Click(ctx context.Context, locator string, mode action.InputMode) error {
	if mode.Basic() {
		script, err := clickScript(locator)
		if err != nil {
			return err
		}
		return p.evaluate(ctx, locator, script, nil)
	}
	return p.run(ctx,
		chromedp.WaitVisible(locator, chromedp.BySearch),
		chromedp.ScrollIntoView(locator, chromedp.BySearch),
		chromedp.Click(locator, chromedp.BySearch),
	)
}

func (p *Page) Type(ctx context.Context, locator, text string, mode action.InputMode) error {
	script, err := typeScript(locator, text, mode)
	if err != nil {
		return err
	}
	return p.evaluate(ctx, locator, script, nil)
}

func (p *Page) SetChecked(ctx context.Context, locator string, checked bool, mode action.InputMode) error {
	script, err := checkScript(locator, checked, mode)
	if err != nil {
		return err
	}
	var state bool
	if err := p.evaluate(ctx, locator, script, &state); err != nil {
		return err
	}
	if state != checked {
		return fmt.Errorf("element state is %t after setting %t", state, checked)
	}
	return nil
}

func (p *Page) Select(ctx context.Context, locator string, opt action.SelectOption) error {
	script, err := selectScript(locator, opt)
	if err != nil {
		return err
	}
	var text string
	return p.evaluate(ctx, locator, script, &text)
}

func (p *Page) Value(ctx context.Context, locator string) (string, error) {
	script, err := valueScript(locator)
	if err != nil {
		return "", err
	}
	var v string
	if err := p.evaluate(ctx, locator, script, &v); err != nil {
		return "", err
	}
	return v, nil
}

func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := p.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, err
	}
	return buf, nil
}

// HTML returns the serialized document of the current page.
func (p *Page) HTML(ctx context.Context) (string, error) {
	var html string
	err := p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		node, err := dom.GetDocument().Do(ctx)
		if err != nil {
			return err
		}
		html, err = dom.GetOuterHTML().WithNodeID(node.NodeID).Do(ctx)
		return err
	}))
	if err != nil {
		return "", err
	}
	return html, nil
}
