package audittrail_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/invtrail/inventory-trail-go/audittrail"
)

func Test_BuildTrailQuery_sanitizes_type_and_text(t *testing.T) {
	query := audittrail.BuildTrailQuery(audittrail.SourceMovements).
		WithType("  prestamo ").
		MatchingText("  laptop  ").
		Finalize()

	assert.Equal(t, audittrail.MovementTypePrestamo, query.MovementType())
	assert.Equal(t, "laptop", query.SearchText())
}

func Test_BuildTrailQuery_ignores_non_positive_ids(t *testing.T) {
	query := audittrail.BuildTrailQuery(audittrail.SourceMovements).
		ForItem(0).
		ForEquipment(-5).
		ForArea(-1).
		Finalize()

	assert.Zero(t, query.ItemID())
	assert.Zero(t, query.EquipmentID())
	assert.Zero(t, query.AreaID())
}

func Test_Finalize_clamps_pagination(t *testing.T) {
	testCases := []struct {
		name         string
		page         int
		size         int
		expectedPage int
		expectedSize int
	}{
		{name: "defaults_apply_when_unset", page: 0, size: 0, expectedPage: 1, expectedSize: audittrail.DefaultPageSize},
		{name: "negative_page_floors_at_one", page: -3, size: 50, expectedPage: 1, expectedSize: 50},
		{name: "negative_size_floors_at_one", page: 2, size: -10, expectedPage: 2, expectedSize: 1},
		{name: "oversized_page_size_is_capped", page: 1, size: 5000, expectedPage: 1, expectedSize: audittrail.MaxPageSize},
		{name: "values_in_range_pass_through", page: 7, size: 25, expectedPage: 7, expectedSize: 25},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			query := audittrail.BuildTrailQuery(audittrail.SourceMixed).
				Page(tc.page).
				Size(tc.size).
				Finalize()

			assert.Equal(t, tc.expectedPage, query.Page())
			assert.Equal(t, tc.expectedSize, query.Size())
		})
	}
}

func Test_Offset_follows_clamped_pagination(t *testing.T) {
	query := audittrail.BuildTrailQuery(audittrail.SourceAudit).
		Page(3).
		Size(20).
		Finalize()

	assert.Equal(t, 40, query.Offset())
}

func Test_WantsRepairCycles_only_for_reparacion(t *testing.T) {
	repairQuery := audittrail.BuildTrailQuery(audittrail.SourceMovements).
		WithType("reparacion").
		Finalize()
	transferQuery := audittrail.BuildTrailQuery(audittrail.SourceMovements).
		WithType(audittrail.MovementTypeTraslado).
		Finalize()

	assert.True(t, repairQuery.WantsRepairCycles())
	assert.False(t, transferQuery.WantsRepairCycles())
}

func Test_Query_keeps_date_bounds(t *testing.T) {
	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)

	query := audittrail.BuildTrailQuery(audittrail.SourceMixed).
		OccurredFrom(from).
		OccurredUntil(until).
		Finalize()

	assert.Equal(t, from, query.OccurredFrom())
	assert.Equal(t, until, query.OccurredUntil())
}
