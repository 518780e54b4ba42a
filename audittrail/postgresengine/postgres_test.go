package postgresengine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invtrail/inventory-trail-go/audittrail"
	"github.com/invtrail/inventory-trail-go/internal/adapters"
)

/*** SQL shape ***/

func Test_movementDataset_projects_unified_shape(t *testing.T) {
	ts := newTestStore(t)
	query := audittrail.BuildTrailQuery(audittrail.SourceMovements).Finalize()

	sqlQuery, _, err := ts.movementDataset(query).ToSQL()

	require.NoError(t, err)
	assert.Contains(t, sqlQuery, `"inv"."movimientos"`)
	assert.Contains(t, sqlQuery, `LEFT JOIN "inv"."items"`)
	assert.Contains(t, sqlQuery, `LEFT JOIN "inv"."equipos"`)
	assert.Contains(t, sqlQuery, `false AS "es_audit"`)
}

func Test_movementDataset_applies_all_filters(t *testing.T) {
	ts := newTestStore(t)
	query := audittrail.BuildTrailQuery(audittrail.SourceMovements).
		OccurredFrom(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)).
		OccurredUntil(time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)).
		ForItem(7).
		ForEquipment(11).
		ForArea(3).
		MatchingText("laptop").
		Finalize()

	sqlQuery, _, err := ts.movementDataset(query).ToSQL()

	require.NoError(t, err)
	assert.Contains(t, sqlQuery, `m.mov_fecha::date >= '2025-01-01'::date`)
	assert.Contains(t, sqlQuery, `m.mov_fecha::date <= '2025-01-31'::date`)
	assert.Contains(t, sqlQuery, `"m"."mov_item_id" = 7`)
	assert.Contains(t, sqlQuery, `"m"."mov_equipo_id" = 11`)
	assert.Contains(t, sqlQuery, `"m"."mov_origen_area_id" = 3`)
	assert.Contains(t, sqlQuery, `"m"."mov_destino_area_id" = 3`)
	assert.Contains(t, sqlQuery, `ILIKE`)
	assert.Contains(t, sqlQuery, `m.mov_detalle::text`)
	assert.Contains(t, sqlQuery, `%laptop%`)
}

func Test_movementTypePredicate_maps_virtual_tags(t *testing.T) {
	ts := newTestStore(t)

	testCases := []struct {
		name             string
		movementType     string
		expectedFragment string
	}{
		{
			name:             "prestamo_requires_loan_flag_on_traslado",
			movementType:     audittrail.MovementTypePrestamo,
			expectedFragment: `COALESCE((m.mov_detalle->>'es_prestamo')::boolean, false) = true`,
		},
		{
			name:             "retorno_requires_return_flag_on_traslado",
			movementType:     audittrail.MovementTypeRetorno,
			expectedFragment: `COALESCE((m.mov_detalle->>'devolucion')::boolean, false) = true`,
		},
		{
			name:             "state_tag_also_matches_equipo_estado_transition",
			movementType:     audittrail.MovementTypeUso,
			expectedFragment: `(m.mov_detalle->>'after') = 'USO'`,
		},
		{
			name:             "plain_tag_matches_by_equality",
			movementType:     audittrail.MovementTypeTraslado,
			expectedFragment: `"m"."mov_tipo" = 'TRASLADO'`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			query := audittrail.BuildTrailQuery(audittrail.SourceMovements).
				WithType(tc.movementType).
				Finalize()

			sqlQuery, _, err := ts.movementDataset(query).ToSQL()

			require.NoError(t, err)
			assert.Contains(t, sqlQuery, tc.expectedFragment)
		})
	}
}

func Test_repairCycleDataset_replaces_movement_query(t *testing.T) {
	ts := newTestStore(t)
	query := audittrail.BuildTrailQuery(audittrail.SourceMovements).
		WithType(audittrail.MovementTypeReparacion).
		ForEquipment(11).
		ForArea(3).
		MatchingText("pc-01").
		Finalize()

	sqlQuery, _, err := ts.movementDataset(query).ToSQL()

	require.NoError(t, err)
	assert.Contains(t, sqlQuery, `WITH estados AS`)
	assert.Contains(t, sqlQuery, `LAG((m.mov_detalle->>'after')::text) OVER (PARTITION BY m.mov_equipo_id ORDER BY m.mov_fecha, m.mov_id)`)
	assert.Contains(t, sqlQuery, `LEAD((m.mov_detalle->>'after')::text) OVER (PARTITION BY m.mov_equipo_id ORDER BY m.mov_fecha, m.mov_id)`)
	assert.Contains(t, sqlQuery, `"s"."after" = 'MANTENIMIENTO'`)
	assert.Contains(t, sqlQuery, `"s"."prev_after" = 'USO'`)
	assert.Contains(t, sqlQuery, `"s"."next_after" = 'USO'`)
	assert.Contains(t, sqlQuery, `"s"."mov_equipo_id" = 11`)
	assert.Contains(t, sqlQuery, `"s"."equipo_area_id" = 3`)
	assert.Contains(t, sqlQuery, `'REPARACION'::text AS "mov_tipo"`)
	assert.Contains(t, sqlQuery, `jsonb_build_object('ciclo', 'USO->MANTENIMIENTO->USO'::text, 'before', s.before, 'after', s.after)`)
	assert.NotContains(t, sqlQuery, `LEFT JOIN`)
}

func Test_auditDataset_projects_unified_shape(t *testing.T) {
	ts := newTestStore(t)
	query := audittrail.BuildTrailQuery(audittrail.SourceAudit).
		MatchingText("login").
		Finalize()

	sqlQuery, _, err := ts.auditDataset(query).ToSQL()

	require.NoError(t, err)
	assert.Contains(t, sqlQuery, `"inv"."audit_log"`)
	assert.Contains(t, sqlQuery, `"a"."audit_id" AS "mov_id"`)
	assert.Contains(t, sqlQuery, `COALESCE(a.extra->>'proc', 'AUDIT') AS "mov_motivo"`)
	assert.Contains(t, sqlQuery, `true AS "es_audit"`)
	assert.Contains(t, sqlQuery, `COALESCE(a.entidad_id::text, '')`)
}

func Test_buildSourceDataset_mixed_unions_both_sources(t *testing.T) {
	ts := newTestStore(t)
	query := audittrail.BuildTrailQuery(audittrail.SourceMixed).Finalize()

	source, buildErr := ts.buildSourceDataset(query)
	require.NoError(t, buildErr)

	sqlQuery, _, err := source.ToSQL()

	require.NoError(t, err)
	assert.Contains(t, sqlQuery, `UNION ALL`)
	assert.Contains(t, sqlQuery, `"inv"."movimientos"`)
	assert.Contains(t, sqlQuery, `"inv"."audit_log"`)
}

func Test_buildSourceDataset_rejects_unknown_source(t *testing.T) {
	ts := newTestStore(t)
	query := audittrail.BuildTrailQuery(audittrail.Source("BOGUS")).Finalize()

	_, err := ts.buildSourceDataset(query)

	assert.ErrorIs(t, err, audittrail.ErrUnknownSource)
}

func Test_WithSchema_changes_table_qualification(t *testing.T) {
	ts, err := newTrailStore(&fakeDB{}, WithSchema("inventario"))
	require.NoError(t, err)

	query := audittrail.BuildTrailQuery(audittrail.SourceMovements).Finalize()

	sqlQuery, _, toSQLErr := ts.movementDataset(query).ToSQL()

	require.NoError(t, toSQLErr)
	assert.Contains(t, sqlQuery, `"inventario"."movimientos"`)
}

func Test_WithSchema_rejects_empty_schema(t *testing.T) {
	_, err := newTrailStore(&fakeDB{}, WithSchema(""))

	assert.ErrorIs(t, err, audittrail.ErrEmptyTableName)
}

/*** List over a scripted database ***/

func Test_List_returns_page_total_and_provenance(t *testing.T) {
	occurredAt := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	movementRow := []any{
		int64(42), sql.NullInt64{Int64: 7, Valid: true},
		sql.NullString{String: "IT-0007", Valid: true},
		sql.NullString{String: "EQUIPO", Valid: true},
		sql.NullString{String: "Laptop", Valid: true},
		"TRASLADO", occurredAt,
		sql.NullInt64{Int64: 1, Valid: true}, sql.NullString{String: "Almacen", Valid: true},
		sql.NullInt64{Int64: 2, Valid: true}, sql.NullString{String: "Sistemas", Valid: true},
		sql.NullInt64{}, sql.NullString{}, sql.NullString{},
		sql.NullString{String: "jperez", Valid: true},
		sql.NullString{String: "asignacion", Valid: true},
		[]byte(`{"es_prestamo": true}`), false,
	}
	auditRow := []any{
		int64(9001), sql.NullInt64{}, sql.NullString{}, sql.NullString{}, sql.NullString{},
		"LOGIN", occurredAt.Add(time.Hour),
		sql.NullInt64{}, sql.NullString{}, sql.NullInt64{}, sql.NullString{},
		sql.NullInt64{}, sql.NullString{}, sql.NullString{},
		sql.NullString{String: "admin", Valid: true},
		sql.NullString{String: "AUDIT", Valid: true},
		[]byte(`{"entidad": "usuarios"}`), true,
	}

	db := &fakeDB{results: []*fakeRows{
		{rows: [][]any{{2}}},
		{rows: [][]any{auditRow, movementRow}},
	}}
	ts, err := newTrailStore(db)
	require.NoError(t, err)

	query := audittrail.BuildTrailQuery(audittrail.SourceMixed).Page(1).Size(10).Finalize()

	page, listErr := ts.List(context.Background(), query)

	require.NoError(t, listErr)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 10, page.Size)
	require.Len(t, page.Items, 2)

	audit := page.Items[0]
	assert.True(t, audit.IsAudit)
	assert.Nil(t, audit.ItemID)
	assert.Nil(t, audit.EquipmentID)
	require.NotNil(t, audit.ActingUser)
	assert.Equal(t, "admin", *audit.ActingUser)

	movement := page.Items[1]
	assert.False(t, movement.IsAudit)
	require.NotNil(t, movement.ItemID)
	assert.Equal(t, int64(7), *movement.ItemID)
	require.NotNil(t, movement.DestinationAreaName)
	assert.Equal(t, "Sistemas", *movement.DestinationAreaName)
	assert.Nil(t, movement.EquipmentID)
	assert.JSONEq(t, `{"es_prestamo": true}`, string(movement.Detail))
}

func Test_List_issues_count_then_ordered_page(t *testing.T) {
	db := &fakeDB{results: []*fakeRows{
		{rows: [][]any{{0}}},
		{rows: [][]any{}},
	}}
	ts, err := newTrailStore(db)
	require.NoError(t, err)

	query := audittrail.BuildTrailQuery(audittrail.SourceMovements).Page(3).Size(25).Finalize()

	page, listErr := ts.List(context.Background(), query)

	require.NoError(t, listErr)
	assert.Zero(t, page.Total)
	assert.Empty(t, page.Items)
	require.Len(t, db.executed, 2)
	assert.Contains(t, db.executed[0].query, `COUNT(1)`)
	assert.Contains(t, db.executed[0].query, `) AS "x"`)
	assert.Contains(t, db.executed[1].query, `ORDER BY "mov_fecha" DESC, "mov_id" DESC`)
	assert.Contains(t, db.executed[1].query, `LIMIT`)
	assert.Contains(t, db.executed[1].query, `OFFSET`)
	assert.NotEmpty(t, db.executed[1].args)
}

func Test_List_propagates_count_failure(t *testing.T) {
	db := &fakeDB{errs: []error{errors.New("connection refused")}}
	ts, err := newTrailStore(db)
	require.NoError(t, err)

	query := audittrail.BuildTrailQuery(audittrail.SourceAudit).Finalize()

	_, listErr := ts.List(context.Background(), query)

	assert.ErrorIs(t, listErr, audittrail.ErrCountingTrailFailed)
}

func Test_List_propagates_fetch_failure(t *testing.T) {
	db := &fakeDB{
		results: []*fakeRows{{rows: [][]any{{5}}}},
		errs:    []error{nil, errors.New("connection reset")},
	}
	ts, err := newTrailStore(db)
	require.NoError(t, err)

	query := audittrail.BuildTrailQuery(audittrail.SourceMovements).Finalize()

	_, listErr := ts.List(context.Background(), query)

	assert.ErrorIs(t, listErr, audittrail.ErrQueryingTrailFailed)
}

func Test_List_fails_when_page_iteration_breaks_off(t *testing.T) {
	occurredAt := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	movementRow := []any{
		int64(42), sql.NullInt64{Int64: 7, Valid: true},
		sql.NullString{String: "IT-0007", Valid: true},
		sql.NullString{String: "EQUIPO", Valid: true},
		sql.NullString{String: "Laptop", Valid: true},
		"TRASLADO", occurredAt,
		sql.NullInt64{}, sql.NullString{}, sql.NullInt64{}, sql.NullString{},
		sql.NullInt64{}, sql.NullString{}, sql.NullString{},
		sql.NullString{String: "jperez", Valid: true},
		sql.NullString{}, []byte(`{}`), false,
	}

	db := &fakeDB{results: []*fakeRows{
		{rows: [][]any{{3}}},
		{rows: [][]any{movementRow}, iterErr: errors.New("connection reset mid-result-set")},
	}}
	ts, err := newTrailStore(db)
	require.NoError(t, err)

	query := audittrail.BuildTrailQuery(audittrail.SourceMovements).Finalize()

	_, listErr := ts.List(context.Background(), query)

	assert.ErrorIs(t, listErr, audittrail.ErrQueryingTrailFailed, "a truncated page must not pass as success")
}

func Test_List_fails_when_count_iteration_breaks_off(t *testing.T) {
	db := &fakeDB{results: []*fakeRows{
		{iterErr: errors.New("connection reset")},
	}}
	ts, err := newTrailStore(db)
	require.NoError(t, err)

	query := audittrail.BuildTrailQuery(audittrail.SourceAudit).Finalize()

	_, listErr := ts.List(context.Background(), query)

	assert.ErrorIs(t, listErr, audittrail.ErrCountingTrailFailed)
}

func Test_List_rejects_unknown_source(t *testing.T) {
	ts, err := newTrailStore(&fakeDB{})
	require.NoError(t, err)

	query := audittrail.BuildTrailQuery(audittrail.Source("TAPE")).Finalize()

	_, listErr := ts.List(context.Background(), query)

	assert.ErrorIs(t, listErr, audittrail.ErrUnknownSource)
}

func Test_NewTrailStore_factories_reject_nil_connections(t *testing.T) {
	_, pgxErr := NewTrailStoreFromPGXPool(nil)
	_, sqlErr := NewTrailStoreFromSQLDB(nil)
	_, sqlxErr := NewTrailStoreFromSQLX(nil)

	assert.ErrorIs(t, pgxErr, audittrail.ErrNilDatabaseConnection)
	assert.ErrorIs(t, sqlErr, audittrail.ErrNilDatabaseConnection)
	assert.ErrorIs(t, sqlxErr, audittrail.ErrNilDatabaseConnection)
}

/*** helpers ***/

func newTestStore(t *testing.T) TrailStore {
	t.Helper()

	ts, err := newTrailStore(&fakeDB{})
	require.NoError(t, err)

	return ts
}

type executedQuery struct {
	query string
	args  []any
}

// fakeDB is a scripted DBAdapter: Query consumes results and errs in order and
// records every executed statement for shape assertions.
type fakeDB struct {
	executed []executedQuery
	results  []*fakeRows
	errs     []error
	calls    int
}

func (f *fakeDB) Query(_ context.Context, query string, args ...any) (adapters.DBRows, error) {
	f.executed = append(f.executed, executedQuery{query: query, args: args})

	call := f.calls
	f.calls++

	if call < len(f.errs) && f.errs[call] != nil {
		return nil, f.errs[call]
	}

	if call < len(f.results) {
		return f.results[call], nil
	}

	return &fakeRows{}, nil
}

func (f *fakeDB) Exec(_ context.Context, query string, args ...any) (adapters.DBResult, error) {
	f.executed = append(f.executed, executedQuery{query: query, args: args})

	return nil, nil
}

func (f *fakeDB) Begin(_ context.Context) (adapters.DBTx, error) {
	return nil, errors.New("not supported")
}

// fakeRows serves scripted rows; a non-nil iterErr simulates a connection
// failure surfacing after Next returns false.
type fakeRows struct {
	rows    [][]any
	pos     int
	iterErr error
}

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.rows) {
		return false
	}

	r.pos++

	return true
}

func (r *fakeRows) Err() error {
	return r.iterErr
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.rows[r.pos-1]

	if len(dest) != len(row) {
		return fmt.Errorf("scan expects %d destinations, got %d", len(row), len(dest))
	}

	for i, value := range row {
		if err := assign(dest[i], value); err != nil {
			return err
		}
	}

	return nil
}

func (r *fakeRows) Close() error {
	return nil
}

func assign(dest any, value any) error {
	switch d := dest.(type) {
	case *int:
		*d = value.(int)
	case *int64:
		*d = value.(int64)
	case *string:
		*d = value.(string)
	case *bool:
		*d = value.(bool)
	case *time.Time:
		*d = value.(time.Time)
	case *[]byte:
		*d = value.([]byte)
	case *sql.NullInt64:
		*d = value.(sql.NullInt64)
	case *sql.NullString:
		*d = value.(sql.NullString)
	default:
		return fmt.Errorf("unsupported scan destination %T", dest)
	}

	return nil
}
