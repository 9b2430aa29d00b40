package web

import "embed"

// Templates embeds the declaration HTML templates.
//
//go:embed templates
var Templates embed.FS
