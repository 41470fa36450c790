// Package schema embeds the SQL that defines the log database.
//
// Importing this package for its side effect registers the files with the
// database package:
//
//	import _ "github.com/nerrad567/obdlog/schema"
package schema

import (
	"embed"

	"github.com/nerrad567/obdlog/internal/infrastructure/database"
)

//go:embed *.sql
var schemaFS embed.FS

func init() {
	database.SchemaFS = schemaFS
	database.SchemaDir = "." // Files are at root of embedded FS
}
