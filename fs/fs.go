package appfs

import "embed"

// FS holds the SQL migrations, the email templates and the common passwords list.
//go:embed migrations all:templates common-passwords.txt.gz
var FS embed.FS

const (
	MigrationsDir     = "migrations"
	EmailTemplatesDir = "templates/email"
	CommonPasswords   = "common-passwords.txt.gz"
)
