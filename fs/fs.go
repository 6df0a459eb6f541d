// Package appfs exposes build-time assets embedded into the binary.
package appfs

import "embed"

//go:embed migrations/*.sql
var Migrations embed.FS

//go:embed templates/email
var EmailTemplates embed.FS

// EmailTemplatesRoot is the directory email templates live under in EmailTemplates.
const EmailTemplatesRoot = "templates/email"
