// Package config provides the environment-driven configuration of the
// inventory trail service: the Postgres connection (as a pgxpool.Pool,
// sql.DB or sqlx.DB, matching the three store factories) and the
// OpenTelemetry providers for the observability adapters.
//
// All settings come from INV_* environment variables with sensible
// defaults for local development.
package config
