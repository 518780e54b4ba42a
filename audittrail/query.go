package audittrail

import (
	"strings"
	"time"
)

const (
	// DefaultPageSize is applied when no page size was requested.
	DefaultPageSize = 20

	// MaxPageSize caps the page size for trail queries.
	MaxPageSize = 200
)

// Query describes one read of the flexible trail: which source(s) to read,
// which optional filters to apply, and which page to return.
//
// All filters are optional and conjunctive; a missing filter simply does not
// constrain the result. Construct it with BuildTrailQuery, which sanitizes the
// input and clamps pagination.
type Query struct {
	source        Source
	movementType  string
	occurredFrom  time.Time
	occurredUntil time.Time
	searchText    string
	itemID        int64
	equipmentID   int64
	areaID        int64
	page          int
	size          int
}

func (q Query) Source() Source {
	return q.source
}

// MovementType returns the requested type tag (upper-cased), or "" when the
// query is not type-filtered. Only applied to the movement source.
func (q Query) MovementType() string {
	return q.movementType
}

func (q Query) OccurredFrom() time.Time {
	return q.occurredFrom
}

func (q Query) OccurredUntil() time.Time {
	return q.occurredUntil
}

// SearchText returns the free-text needle for case-insensitive substring
// matching, or "" when the query is not text-filtered.
func (q Query) SearchText() string {
	return q.searchText
}

func (q Query) ItemID() int64 {
	return q.itemID
}

func (q Query) EquipmentID() int64 {
	return q.equipmentID
}

func (q Query) AreaID() int64 {
	return q.areaID
}

func (q Query) Page() int {
	return q.page
}

func (q Query) Size() int {
	return q.size
}

// Offset returns the row offset implied by the clamped page and size.
func (q Query) Offset() int {
	return (q.page - 1) * q.size
}

// WantsRepairCycles reports whether the movement source must be replaced by
// the repair-cycle synthesis instead of literal type matching.
func (q Query) WantsRepairCycles() bool {
	return q.movementType == MovementTypeReparacion
}

// QueryBuilder builds a Query with sanitized filters.
//
// It is designed so that invalid input degrades to "no filter" instead of
// failing: empty or whitespace-only strings and non-positive ids are ignored,
// the type tag is upper-cased, and pagination is clamped on Finalize.
type QueryBuilder struct {
	query Query
}

// BuildTrailQuery starts a QueryBuilder for the given source, which must
// eventually be finalized with Finalize().
func BuildTrailQuery(source Source) QueryBuilder {
	return QueryBuilder{query: Query{source: source}}
}

// WithType filters the movement source by the given type tag (stored or
// virtual). The tag is trimmed and upper-cased; an empty tag is ignored.
func (qb QueryBuilder) WithType(movementType string) QueryBuilder {
	qb.query.movementType = strings.ToUpper(strings.TrimSpace(movementType))

	return qb
}

// OccurredFrom bounds the trail to events on or after the given calendar date.
// The time-of-day component is ignored by the engines.
func (qb QueryBuilder) OccurredFrom(from time.Time) QueryBuilder {
	qb.query.occurredFrom = from

	return qb
}

// OccurredUntil bounds the trail to events on or before the given calendar
// date. The time-of-day component is ignored by the engines.
func (qb QueryBuilder) OccurredUntil(until time.Time) QueryBuilder {
	qb.query.occurredUntil = until

	return qb
}

// MatchingText adds a case-insensitive substring filter across the searchable
// columns of each source. Whitespace-only needles are ignored.
func (qb QueryBuilder) MatchingText(needle string) QueryBuilder {
	qb.query.searchText = strings.TrimSpace(needle)

	return qb
}

// ForItem filters the movement source by item id; non-positive ids are ignored.
func (qb QueryBuilder) ForItem(itemID int64) QueryBuilder {
	if itemID > 0 {
		qb.query.itemID = itemID
	}

	return qb
}

// ForEquipment filters the movement source by equipment id; non-positive ids
// are ignored.
func (qb QueryBuilder) ForEquipment(equipmentID int64) QueryBuilder {
	if equipmentID > 0 {
		qb.query.equipmentID = equipmentID
	}

	return qb
}

// ForArea filters the movement source by area id, matching either the origin
// or the destination area; non-positive ids are ignored.
func (qb QueryBuilder) ForArea(areaID int64) QueryBuilder {
	if areaID > 0 {
		qb.query.areaID = areaID
	}

	return qb
}

// Page sets the 1-based page number; it is floored at 1 on Finalize.
func (qb QueryBuilder) Page(page int) QueryBuilder {
	qb.query.page = page

	return qb
}

// Size sets the page size; it is clamped to [1, MaxPageSize] on Finalize and
// defaults to DefaultPageSize when unset.
func (qb QueryBuilder) Size(size int) QueryBuilder {
	qb.query.size = size

	return qb
}

// Finalize clamps pagination and returns the immutable Query.
func (qb QueryBuilder) Finalize() Query {
	query := qb.query

	if query.page < 1 {
		query.page = 1
	}

	if query.size == 0 {
		query.size = DefaultPageSize
	}

	if query.size < 1 {
		query.size = 1
	}

	if query.size > MaxPageSize {
		query.size = MaxPageSize
	}

	return query
}
