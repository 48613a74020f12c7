package report

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var embedIDPattern = regexp.MustCompile(`(?i)[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}`)

// ExtractEmbeddedID returns the first 8-4-4-4-12 hex identifier in fragment.
// The match keeps the fragment's case.
func ExtractEmbeddedID(fragment string) (string, bool) {
	id := embedIDPattern.FindString(fragment)
	return id, id != ""
}

// DefaultViewerBase is the hosted report viewer.
const DefaultViewerBase = "https://app.powerbi.com/reportEmbed"

// Viewer builds links to the hosted report viewer.
type Viewer struct {
	BaseURL  string
	AutoAuth bool
	TenantID string
}

// URL returns {base}?reportId={id}&autoAuth={bool}&ctid={tenant}.
func (v Viewer) URL(embedID string) string {
	base := strings.TrimSpace(v.BaseURL)
	if base == "" {
		base = DefaultViewerBase
	}
	return base + "?reportId=" + url.QueryEscape(embedID) +
		"&autoAuth=" + strconv.FormatBool(v.AutoAuth) +
		"&ctid=" + url.QueryEscape(v.TenantID)
}
