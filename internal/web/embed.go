package web

import "embed"

// TemplatesFS embeds the HTML templates.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS embeds the page's script and stylesheet.
//
//go:embed static/*
var StaticFS embed.FS
