// Package action executes single replay steps against a page.
//
// Each action kind has one Executor. The Dispatcher is a table from
// action kind to executor, built once and checked for completeness, so a
// step is routed with a single map lookup instead of a scan.
//
// Executors never touch the browser directly; they call the Page
// capability, which resolves a locator string to a live element and
// performs the interaction. The replay engine only sees the Result.
//
// # Usage
//
//	d, err := action.NewDefaultDispatcher(page, action.Options{ScreenshotDir: "./artifacts"})
//	exec, err := d.Lookup(s.Action)
//	res := exec.Execute(ctx, action.Request{Step: s, Value: value, Locator: s.Locator()})
package action
