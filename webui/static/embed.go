// Package static bundles the page template and stylesheet into the binary.
package static

import (
	"embed"
	"io/fs"
)

// StaticFS holds templates/ (html/template sources) and css/.
//
//go:embed templates css
var StaticFS embed.FS

// GetFS returns the embedded filesystem.
func GetFS() fs.FS {
	return StaticFS
}

// MustGetSubFS returns the sub-filesystem rooted at dir and panics if it
// does not exist.
func MustGetSubFS(dir string) fs.FS {
	sub, err := fs.Sub(StaticFS, dir)
	if err != nil {
		panic("static: failed to get sub-filesystem: " + err.Error())
	}
	return sub
}

// ReadFile reads one embedded file.
func ReadFile(name string) ([]byte, error) {
	return StaticFS.ReadFile(name)
}
