package users

import "errors"

// ErrNilDatabaseConnection occurs when a Service factory gets a nil client.
var ErrNilDatabaseConnection = errors.New("database connection must not be nil")

// ErrBuildingQueryFailed occurs when the SQL query could not be built.
var ErrBuildingQueryFailed = errors.New("failed to build query")

// ErrQueryingUsersFailed occurs when a user query fails in the database.
var ErrQueryingUsersFailed = errors.New("failed to query users")

// ErrScanningDBRowFailed occurs when a database row could not be scanned.
var ErrScanningDBRowFailed = errors.New("failed to scan database row")

// ErrUserNotFound occurs when the requested user does not exist.
var ErrUserNotFound = errors.New("user not found")

// ErrWrongPassword occurs when the password does not match the stored hash.
var ErrWrongPassword = errors.New("wrong password")

// ErrUserDisabled occurs when the account exists but is deactivated.
var ErrUserDisabled = errors.New("user disabled")

// ErrUnknownRole occurs when the requested role has no row in inv.roles.
var ErrUnknownRole = errors.New("unknown role")

// ErrNoFieldsToUpdate occurs when a partial update carries no changes.
var ErrNoFieldsToUpdate = errors.New("no fields to update")
