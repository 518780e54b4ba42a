package incidents

import "errors"

// ErrNilDatabaseConnection occurs when a Service factory gets a nil client.
var ErrNilDatabaseConnection = errors.New("database connection must not be nil")

// ErrBuildingQueryFailed occurs when the SQL query could not be built.
var ErrBuildingQueryFailed = errors.New("failed to build query")

// ErrQueryingIncidentsFailed occurs when an incident query fails in the database.
var ErrQueryingIncidentsFailed = errors.New("failed to query incidents")

// ErrScanningDBRowFailed occurs when a database row could not be scanned.
var ErrScanningDBRowFailed = errors.New("failed to scan database row")

// ErrIncidentNotFound occurs when the incident does not exist or is not
// visible to the caller. The two cases are deliberately indistinguishable.
var ErrIncidentNotFound = errors.New("incident not found")

// ErrInvalidStatus occurs when the status literal is not one of
// ABIERTA, EN_PROCESO, CERRADA.
var ErrInvalidStatus = errors.New("invalid incident status")

// ErrCloseForbidden occurs when a PRACTICANTE tries to close an incident.
var ErrCloseForbidden = errors.New("only ADMIN may close incidents")
