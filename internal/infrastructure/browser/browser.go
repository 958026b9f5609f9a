package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/nerrad567/autofill-core/internal/action"
	"github.com/nerrad567/autofill-core/internal/infrastructure/config"
	"github.com/nerrad567/autofill-core/internal/replay"
)

const defaultNavigationTimeout = 60 * time.Second

// Logger is the subset of logging.Logger the browser needs.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Browser owns one Chrome process (or a remote DevTools connection) and
// hands out isolated tabs.
//
// Thread Safety:
//   - Open and Close are safe for concurrent use.
//   - Each Page must be driven by one run at a time.
type Browser struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	width, height int
	navTimeout    time.Duration
	actionOpts    action.Options
	logger        Logger

	mu     sync.Mutex
	closed bool
	tabs   int
}

// Launch starts Chrome, or attaches to cfg.RemoteURL when set, and waits
// until the first target is ready. opts configures the executors built
// for every opened tab.
func Launch(ctx context.Context, cfg config.BrowserConfig, opts action.Options) (*Browser, error) {
	var (
		allocCtx    context.Context
		allocCancel context.CancelFunc
	)
	if cfg.RemoteURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(ctx, cfg.RemoteURL)
	} else {
		allocCtx, allocCancel = chromedp.NewExecAllocator(ctx, allocatorOptions(cfg)...)
	}

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("%w: %w", ErrLaunchFailed, err)
	}

	navTimeout := time.Duration(cfg.NavigationTimeout) * time.Second
	if navTimeout <= 0 {
		navTimeout = defaultNavigationTimeout
	}

	return &Browser{
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		width:         cfg.WindowWidth,
		height:        cfg.WindowHeight,
		navTimeout:    navTimeout,
		actionOpts:    opts,
		logger:        noopLogger{},
	}, nil
}

// allocatorOptions builds the flags for a locally launched Chrome.
func allocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
	)
	if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
		opts = append(opts, chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	if cfg.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(cfg.UserDataDir))
	}
	return opts
}

// SetLogger sets the logger for tab lifecycle messages.
func (b *Browser) SetLogger(logger Logger) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logger = logger
}

// NewPage opens a fresh tab. The returned close function closes the tab
// and is safe to call more than once.
func (b *Browser) NewPage(ctx context.Context) (*Page, func(), error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, nil, ErrClosed
	}
	logger := b.logger
	b.mu.Unlock()

	tabCtx, tabCancel := chromedp.NewContext(b.browserCtx)
	page := &Page{ctx: tabCtx, navTimeout: b.navTimeout}

	// The first Run creates the target and must use the tab context itself:
	// a derived context would close the tab when it is cancelled.
	var setup []chromedp.Action
	if b.width > 0 && b.height > 0 {
		setup = append(setup, chromedp.EmulateViewport(int64(b.width), int64(b.height)))
	}
	stop := context.AfterFunc(ctx, tabCancel)
	err := chromedp.Run(tabCtx, setup...)
	if !stop() && err == nil {
		err = ctx.Err()
	}
	if err != nil {
		tabCancel()
		return nil, nil, fmt.Errorf("opening tab: %w", err)
	}

	b.mu.Lock()
	b.tabs++
	open := b.tabs
	b.mu.Unlock()
	logger.Info("tab opened", "open_tabs", open)

	var once sync.Once
	closeTab := func() {
		once.Do(func() {
			tabCancel()
			b.mu.Lock()
			b.tabs--
			open := b.tabs
			b.mu.Unlock()
			logger.Info("tab closed", "open_tabs", open)
		})
	}
	return page, closeTab, nil
}

// Open implements replay.SessionProvider: every run gets its own tab and
// a dispatcher bound to it.
func (b *Browser) Open(ctx context.Context, websiteID string) (replay.Dispatcher, func(), error) {
	page, closeTab, err := b.NewPage(ctx)
	if err != nil {
		return nil, nil, err
	}
	d, err := action.NewDefaultDispatcher(page, b.actionOpts)
	if err != nil {
		closeTab()
		return nil, nil, fmt.Errorf("building dispatcher for %s: %w", websiteID, err)
	}
	return d, closeTab, nil
}

// OpenTabs returns the number of tabs currently open.
func (b *Browser) OpenTabs() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tabs
}

// Close shuts down every tab and the browser. Safe to call on nil and
// more than once.
func (b *Browser) Close() error {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	b.browserCancel()
	b.allocCancel()
	return nil
}
