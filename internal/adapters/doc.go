// Package adapters isolates the concrete database client libraries behind a
// small adapter interface so that the storage engines can run unchanged on a
// pgx pool, a sqlx.DB, or a plain database/sql DB.
//
// All queries are parameterized: the engines pass the SQL text and the bound
// arguments separately, never interpolated values.
package adapters
