// Package web holds embedded static assets and templates for NewsWire.
package web

import "embed"

// TemplateFS contains all HTML templates.
//
//go:embed templates
var TemplateFS embed.FS

// StaticFS contains CSS, JS, and the default placeholder images.
//
//go:embed static
var StaticFS embed.FS
