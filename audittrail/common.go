package audittrail

import (
	"errors"
)

var ErrNilDatabaseConnection = errors.New("nil database connection supplied")
var ErrEmptyTableName = errors.New("empty table name supplied")
var ErrUnknownSource = errors.New("unknown trail source supplied")
var ErrBuildingQueryFailed = errors.New("building the database query failed")
var ErrQueryingTrailFailed = errors.New("querying the trail failed")
var ErrCountingTrailFailed = errors.New("counting trail rows failed")
var ErrScanningDBRowFailed = errors.New("scanning the database row failed")
var ErrInvalidDetailJSON = errors.New("detail json is not valid")
