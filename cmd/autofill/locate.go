package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nerrad567/autofill-core/internal/selector"
)

type locateOptions struct {
	file string
	url  string
	css  string
}

func newLocateCmd(opts *options) *cobra.Command {
	lo := &locateOptions{}

	cmd := &cobra.Command{
		Use:   "locate",
		Short: "Print the XPath locators of an element",
		Long: `Print the absolute, short and smart XPath locators of the first element
matching a CSS selector, read from a saved HTML file or a live page.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				loc selector.Locators
				err error
			)
			switch {
			case lo.file != "" && lo.url != "":
				return fmt.Errorf("--file and --url are mutually exclusive")
			case lo.file != "":
				loc, err = locateInFile(lo.file, lo.css)
			case lo.url != "":
				loc, err = locateOnPage(cmd.Context(), opts, lo.url, lo.css)
			default:
				return fmt.Errorf("one of --file or --url is required")
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), loc)
		},
	}

	f := cmd.Flags()
	f.StringVar(&lo.file, "file", "", "saved HTML page ('-' reads stdin)")
	f.StringVar(&lo.url, "url", "", "page to load in the browser")
	f.StringVar(&lo.css, "css", "", "CSS selector of the element (required)")
	_ = cmd.MarkFlagRequired("css")
	return cmd
}

func locateInFile(path, css string) (selector.Locators, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return selector.Locators{}, fmt.Errorf("opening page: %w", err)
		}
		defer f.Close()
		r = f
	}
	return selector.FromHTML(r, css)
}

// locateOnPage renders url in the configured browser so elements added by
// scripts are found too.
func locateOnPage(ctx context.Context, opts *options, url, css string) (selector.Locators, error) {
	cfg, log, err := opts.load()
	if err != nil {
		return selector.Locators{}, err
	}

	b, err := launchBrowser(ctx, cfg, log)
	if err != nil {
		return selector.Locators{}, err
	}
	defer closeWithLog(log, "browser", b.Close)

	page, closeTab, err := b.NewPage(ctx)
	if err != nil {
		return selector.Locators{}, fmt.Errorf("opening tab: %w", err)
	}
	defer closeTab()

	if err := page.Navigate(ctx, url); err != nil {
		return selector.Locators{}, fmt.Errorf("loading %s: %w", url, err)
	}
	html, err := page.HTML(ctx)
	if err != nil {
		return selector.Locators{}, fmt.Errorf("reading page: %w", err)
	}
	return selector.FromHTML(strings.NewReader(html), css)
}
