//go:build integration

package postgresengine_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invtrail/inventory-trail-go/audittrail"
	"github.com/invtrail/inventory-trail-go/audittrail/postgresengine"
	"github.com/invtrail/inventory-trail-go/config"
)

// These tests run the repair-cycle synthesis against a real Postgres so the
// window-function behavior is executed, not just inspected as SQL text.
// Run them with: go test -tags integration ./audittrail/postgresengine/...

const trailTablesDDL = `
CREATE SCHEMA IF NOT EXISTS inv;

CREATE TABLE IF NOT EXISTS inv.equipos (
	equipo_id      bigint PRIMARY KEY,
	equipo_codigo  text NOT NULL,
	equipo_nombre  text NOT NULL,
	equipo_area_id bigint
);

CREATE TABLE IF NOT EXISTS inv.movimientos (
	mov_id              bigint PRIMARY KEY,
	mov_item_id         bigint,
	mov_tipo            text NOT NULL,
	mov_fecha           timestamptz NOT NULL,
	mov_origen_area_id  bigint,
	mov_destino_area_id bigint,
	mov_equipo_id       bigint,
	mov_usuario_app     text,
	mov_motivo          text,
	mov_detalle         jsonb
);
`

func setupTrailTables(t *testing.T, ctx context.Context, pool *pgxpool.Pool) {
	t.Helper()

	_, err := pool.Exec(ctx, trailTablesDDL)
	require.NoError(t, err, "creating trail tables failed")

	_, err = pool.Exec(ctx, `TRUNCATE inv.movimientos, inv.equipos`)
	require.NoError(t, err, "cleaning trail tables failed")
}

func seedEquipment(t *testing.T, ctx context.Context, pool *pgxpool.Pool, id int64, code, name string, areaID int64) {
	t.Helper()

	_, err := pool.Exec(ctx,
		`INSERT INTO inv.equipos (equipo_id, equipo_codigo, equipo_nombre, equipo_area_id)
		 VALUES ($1, $2, $3, $4)`,
		id, code, name, areaID)
	require.NoError(t, err, "seeding equipment failed")
}

func seedStateChange(
	t *testing.T,
	ctx context.Context,
	pool *pgxpool.Pool,
	movID int64,
	equipmentID int64,
	occurredAt time.Time,
	before string,
	after string,
) {
	t.Helper()

	_, err := pool.Exec(ctx,
		`INSERT INTO inv.movimientos (mov_id, mov_tipo, mov_fecha, mov_equipo_id, mov_detalle)
		 VALUES ($1, $2, $3, $4, jsonb_build_object('before', $5::text, 'after', $6::text))`,
		movID, audittrail.MovementTypeEquipmentState, occurredAt, equipmentID, before, after)
	require.NoError(t, err, "seeding state change failed")
}

func Test_List_synthesizes_one_record_per_completed_repair_cycle(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, config.PostgresTestDSN())
	require.NoError(t, err, "connecting to the test database failed")
	defer pool.Close()

	store, err := postgresengine.NewTrailStoreFromPGXPool(pool)
	require.NoError(t, err, "creating the trail store failed")

	// arrange
	setupTrailTables(t, ctx, pool)
	seedEquipment(t, ctx, pool, 1, "EQ-001", "Torno CNC", 7)

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	seedStateChange(t, ctx, pool, 1, 1, base, "ALMACEN", "USO")
	seedStateChange(t, ctx, pool, 2, 1, base.Add(1*time.Hour), "USO", "MANTENIMIENTO")
	seedStateChange(t, ctx, pool, 3, 1, base.Add(2*time.Hour), "MANTENIMIENTO", "USO")
	seedStateChange(t, ctx, pool, 4, 1, base.Add(3*time.Hour), "USO", "MANTENIMIENTO")
	seedStateChange(t, ctx, pool, 5, 1, base.Add(4*time.Hour), "MANTENIMIENTO", "MANTENIMIENTO")

	query := audittrail.BuildTrailQuery(audittrail.SourceMovements).
		WithType(audittrail.MovementTypeReparacion).
		Finalize()

	// act
	page, listErr := store.List(ctx, query)

	// assert
	require.NoError(t, listErr, "listing repair cycles failed")
	assert.Equal(t, 1, page.Total, "only the completed maintenance round-trip counts")
	require.Len(t, page.Items, 1)

	record := page.Items[0]
	assert.Equal(t, int64(2), record.ID, "the cycle carries the id of its maintenance entry")
	assert.Equal(t, audittrail.MovementTypeReparacion, record.Type)
	require.NotNil(t, record.EquipmentID)
	assert.Equal(t, int64(1), *record.EquipmentID)
	require.NotNil(t, record.EquipmentCode)
	assert.Equal(t, "EQ-001", *record.EquipmentCode)

	detail, decodeErr := audittrail.DecodeRepairCycleDetail(record.Detail)
	require.NoError(t, decodeErr)
	assert.Equal(t, audittrail.RepairCycleLabel, detail.Ciclo)
	assert.Equal(t, "USO", detail.Before)
	assert.Equal(t, audittrail.MovementTypeMantenimiento, detail.After)
}

func Test_List_never_emits_open_ended_repair_cycles(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, config.PostgresTestDSN())
	require.NoError(t, err, "connecting to the test database failed")
	defer pool.Close()

	store, err := postgresengine.NewTrailStoreFromPGXPool(pool)
	require.NoError(t, err, "creating the trail store failed")

	// arrange: one equipment still in maintenance, one whose maintenance
	// entry was not entered from USO
	setupTrailTables(t, ctx, pool)
	seedEquipment(t, ctx, pool, 1, "EQ-001", "Torno CNC", 7)
	seedEquipment(t, ctx, pool, 2, "EQ-002", "Fresadora", 7)

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	seedStateChange(t, ctx, pool, 1, 1, base, "ALMACEN", "USO")
	seedStateChange(t, ctx, pool, 2, 1, base.Add(1*time.Hour), "USO", "MANTENIMIENTO")

	seedStateChange(t, ctx, pool, 3, 2, base, "USO", "ALMACEN")
	seedStateChange(t, ctx, pool, 4, 2, base.Add(1*time.Hour), "ALMACEN", "MANTENIMIENTO")
	seedStateChange(t, ctx, pool, 5, 2, base.Add(2*time.Hour), "MANTENIMIENTO", "USO")

	query := audittrail.BuildTrailQuery(audittrail.SourceMovements).
		WithType(audittrail.MovementTypeReparacion).
		Finalize()

	// act
	page, listErr := store.List(ctx, query)

	// assert
	require.NoError(t, listErr, "listing repair cycles failed")
	assert.Equal(t, 0, page.Total)
	assert.Empty(t, page.Items)
}
