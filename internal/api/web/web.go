// Package web embeds the browser pages: the editor shell and the detached
// preview window.
package web

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static
var static embed.FS

// Index returns the editor page
func Index() []byte {
	return mustRead("static/index.html")
}

// Preview returns the detached preview window page
func Preview() []byte {
	return mustRead("static/preview.html")
}

// Assets serves scripts and styles under /assets
func Assets() http.FileSystem {
	sub, err := fs.Sub(static, "static/assets")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}

func mustRead(name string) []byte {
	data, err := static.ReadFile(name)
	if err != nil {
		panic(err)
	}
	return data
}
