// Package assets embeds the files the binaries ship with.
package assets

import "embed"

const (
	MigrationsDir   = "migrations"
	EmailTemplates  = "templates/email"
	CommonPasswords = "common-passwords.txt.gz"
)

//go:embed migrations/*.sql templates/email/* common-passwords.txt.gz
var FS embed.FS
