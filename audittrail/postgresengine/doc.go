// Package postgresengine implements the flexible trail query over Postgres.
//
// It builds parameterized SQL with goqu for three shapes of reads: the
// operational movement source (with its type overloads over the jsonb detail
// payload), the generic audit log source, and the synthesized repair-cycle
// feed derived from windowed comparison of adjacent equipment-state records.
// Both real sources are projected into one 18-column shape so they can be
// unioned, counted and paginated uniformly.
//
// The engine runs on any of the supported database clients (pgx pool, sqlx,
// database/sql) through the internal adapters package.
package postgresengine
