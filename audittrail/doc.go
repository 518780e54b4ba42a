// Package audittrail contains the storage-agnostic building blocks for the
// flexible movement/audit trail of the inventory platform: the Query descriptor
// with its fluent builder, the UnifiedRecord projection shared by both record
// sources, typed codecs for the semi-structured movement detail payloads, and
// the observability interfaces implemented by engine adapters.
//
// Engines (e.g. postgresengine) translate a Query into the storage-specific
// query language and return one Page of UnifiedRecords ordered newest first.
package audittrail
