package document

import (
	"strings"

	"go.lsp.dev/uri"
)

// NormalizeURI returns the store key for a client URI. File URIs are
// re-encoded from their filename so different percent-encodings of the same
// path share one entry; anything else is kept verbatim.
func NormalizeURI(raw string) string {
	if !strings.HasPrefix(raw, uri.FileScheme+":") {
		return raw
	}
	parsed, err := uri.Parse(raw)
	if err != nil || !strings.HasPrefix(string(parsed), uri.FileScheme+"://") {
		return raw
	}
	return string(uri.File(parsed.Filename()))
}
