package migrations

import "embed"

// PostgresFS holds the schema files for the relational audit store.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// ClickhouseFS holds the schema files for the tick archive.
//
//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS
