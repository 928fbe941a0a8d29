// Package web embeds the HTML templates and static assets of the directory frontend.
package web

import "embed"

// TemplatesFS holds every page and component template.
//
//go:embed templates
var TemplatesFS embed.FS

// StaticFS holds the stylesheet served under /static.
//
//go:embed static
var StaticFS embed.FS
