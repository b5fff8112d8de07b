// Package web holds the embedded single-page front end.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
)

//go:embed templates/*.html static/*
var assets embed.FS

// IndexTemplate is the name of the page template.
const IndexTemplate = "index.html"

// PageData is rendered into the page.
type PageData struct {
	Title                string
	AuthMode             string
	Provider             string
	MinDescriptionLength int
}

// Templates parses the embedded page templates.
func Templates() (*template.Template, error) {
	tmpl, err := template.ParseFS(assets, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return tmpl, nil
}

// Static serves the embedded scripts and styles.
func Static() (http.FileSystem, error) {
	sub, err := fs.Sub(assets, "static")
	if err != nil {
		return nil, fmt.Errorf("static assets: %w", err)
	}
	return http.FS(sub), nil
}
