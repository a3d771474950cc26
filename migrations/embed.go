// Package migrations embeds the SQL schema files for every supported
// database. Files live under sqlite/ and postgres/ and are named NNN_name.sql.
package migrations

import "embed"

//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS
