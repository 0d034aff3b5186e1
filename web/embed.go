package web

import "embed"

// FS embeds the HTML templates (templates/) and static assets (static/).
//
//go:embed templates static
var FS embed.FS
