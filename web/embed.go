// Package web embeds the console page templates and static assets.
package web

import (
	"embed"
	"fmt"
	"io/fs"
)

//go:embed static templates
var content embed.FS

// StaticFS returns the asset tree served under /static/.
func StaticFS() fs.FS {
	return sub("static")
}

// TemplatesFS returns the page templates.
func TemplatesFS() fs.FS {
	return sub("templates")
}

// sub only fails for an invalid directory name.
func sub(dir string) fs.FS {
	f, err := fs.Sub(content, dir)
	if err != nil {
		panic(fmt.Sprintf("embedded %s: %v", dir, err))
	}
	return f
}
