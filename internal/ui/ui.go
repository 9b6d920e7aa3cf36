// Copyright (c) 2025 Pagesmith Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui serves the embedded single-page editor interface. Assets are
// minified once at startup and served from memory.
package ui

import (
	"embed"
	"io/fs"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
)

//go:embed assets
var rawFS embed.FS

var minified map[string][]byte

var mediaTypes = map[string]string{
	".html": "text/html",
	".js":   "application/javascript",
	".css":  "text/css",
}

func init() {
	m := minify.New()
	m.AddFunc("text/html", html.Minify)
	m.AddFunc("application/javascript", js.Minify)
	m.AddFunc("text/css", css.Minify)

	minified = make(map[string][]byte)

	_ = fs.WalkDir(rawFS, "assets", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		mediatype, ok := mediaTypes[strings.ToLower(filepath.Ext(path))]
		if !ok {
			return nil
		}
		raw, err := rawFS.ReadFile(path)
		if err != nil {
			return nil
		}
		key := strings.TrimPrefix(path, "assets/")
		out, err := m.Bytes(mediatype, raw)
		if err != nil {
			log.Printf("UI_MINIFY_WARNING | path=%s err=%v", path, err)
			minified[key] = raw
			return nil
		}
		minified[key] = out
		return nil
	})
}

// Handler serves the UI. "/" maps to index.html; other paths are served
// by name.
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/")
		if name == "" {
			name = "index.html"
		}
		data, ok := minified[name]
		if !ok {
			http.NotFound(w, r)
			return
		}
		ctype, ok := mediaTypes[strings.ToLower(filepath.Ext(name))]
		if !ok {
			ctype = "application/octet-stream"
		}
		w.Header().Set("Content-Type", ctype+"; charset=utf-8")
		w.Write(data)
	})
}
