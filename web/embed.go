// Package web embeds the browser gallery.
package web

import (
	"embed"
	"io/fs"
)

//go:embed static
var files embed.FS

// Static returns index.html, script.js and style.css rooted at "/".
func Static() fs.FS {
	sub, err := fs.Sub(files, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
