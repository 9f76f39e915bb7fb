// Package appfs embeds the files shipped with the binaries: SQL migrations and email templates.
package appfs

import (
	"embed"
	"io/fs"
)

//go:embed migrations all:templates
var FS embed.FS

// Migrations returns the migrations directory of the given database engine (postgres | sqlite3).
func Migrations(engine string) string {
	return "migrations/" + engine
}

// EmailTemplates returns the email templates directory.
func EmailTemplates() fs.FS {
	sub, err := fs.Sub(FS, "templates/email")
	if err != nil {
		panic(err) // the directory is embedded
	}
	return sub
}
