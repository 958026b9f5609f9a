// Package browser implements the action.Page capability on Chrome via
// the DevTools protocol (chromedp).
//
// A Browser owns the Chrome process, or a connection to a remote one, and
// opens one tab per replay run, so concurrent runs for different websites
// never share page state. Browser.Open satisfies replay.SessionProvider:
//
//	b, err := browser.Launch(ctx, cfg.Browser, action.Options{ScreenshotDir: cfg.Replay.ArtifactDir})
//	if err != nil {
//	    return err
//	}
//	defer b.Close()
//
//	engine := replay.NewEngine(replay.Deps{Steps: registry, Sessions: b, Results: results})
//
// Locators are XPath expressions. Elements are awaited with a DOM search
// and then driven by small injected scripts, so form values propagate to
// pages built with React or jQuery the same way typed input would.
package browser
