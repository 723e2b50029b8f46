// Package assets holds the files shipped inside the binaries.
package assets

import "embed"

//go:embed all:templates common-passwords.txt.gz
var FS embed.FS

const (
	EmailTemplatesDir   = "templates/email"
	CommonPasswordsPath = "common-passwords.txt.gz"
)
