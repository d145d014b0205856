package workspace

import (
	"net/url"
	"strings"

	"github.com/pkg/browser"
)

// OpenOptions mirrors how the notes app opens a file.
type OpenOptions struct {
	PaneType  string // tab, split or window
	Direction string // horizontal or vertical, split only
	Mode      string // source, preview or default
	Focus     bool
}

// DefaultOpenOptions opens in a focused tab.
func DefaultOpenOptions() OpenOptions {
	return OpenOptions{PaneType: "tab", Mode: "default", Focus: true}
}

// OpenURI builds an obsidian://open link for a note. The URI scheme has no
// parameters for split direction or view mode.
func (v *Vault) OpenURI(rel string, opts OpenOptions) string {
	q := url.Values{}
	q.Set("vault", v.Name())
	q.Set("file", strings.TrimSuffix(rel, ".md"))
	if opts.PaneType != "" {
		q.Set("paneType", opts.PaneType)
	}
	return "obsidian://open?" + strings.ReplaceAll(q.Encode(), "+", "%20")
}

// Opener launches a URI in the desktop handler.
type Opener func(uri string) error

// BrowserOpener hands the URI to the OS through pkg/browser.
func BrowserOpener(uri string) error {
	return browser.OpenURL(uri)
}
