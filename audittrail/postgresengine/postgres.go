package postgresengine

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect import
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/invtrail/inventory-trail-go/audittrail"
	"github.com/invtrail/inventory-trail-go/internal/adapters"
)

const (
	defaultSchema = "inv"

	logMsgBuildQueryFailed = "failed to build trail query"
	logMsgDBQueryFailed    = "database query execution failed"
	logMsgCloseRowsFailed  = "failed to close database rows"
	logMsgScanRowFailed    = "failed to scan database row"
	logMsgListCompleted    = "trail list completed"
	logMsgSQLExecuted      = "executed sql for: "
	logMsgOperation        = "trail operation: "

	logAttrError      = "error"
	logAttrQuery      = "query"
	logAttrSource     = "source"
	logAttrRowCount   = "row_count"
	logAttrTotal      = "total"
	logAttrDurationMS = "duration_ms"

	logActionCount = "count"
	logActionList  = "list"

	tableMovements = "movimientos"
	tableAuditLog  = "audit_log"
	tableItems     = "items"
	tableItemTypes = "item_tipos"
	tableAreas     = "areas"
	tableEquipment = "equipos"

	colMovID      = "mov_id"
	colMovFecha   = "mov_fecha"
	colMovDetalle = "mov_detalle"
	colEsAudit    = "es_audit"

	cteStates     = "estados"
	dialectName   = "postgres"
	dateLayout    = "2006-01-02"
	unifiedAlias  = "t"
	countSubAlias = "x"
)

type (
	sqlQueryString = string
	boundArgs      = []any
)

// TrailStore reads the unified movement/audit trail from Postgres.
// It never mutates the underlying tables; all queries are read-only and
// parameterized. Use the factory functions to construct it.
type TrailStore struct {
	db               adapters.DBAdapter
	schema           string
	logger           Logger
	contextualLogger ContextualLogger
	metricsCollector MetricsCollector
	tracingCollector TracingCollector
}

// NewTrailStoreFromPGXPool creates a new TrailStore using a pgx pool with optional configuration.
func NewTrailStoreFromPGXPool(db *pgxpool.Pool, options ...Option) (TrailStore, error) {
	if db == nil {
		return TrailStore{}, audittrail.ErrNilDatabaseConnection
	}

	return newTrailStore(adapters.NewPGXAdapter(db), options...)
}

// NewTrailStoreFromSQLDB creates a new TrailStore using a sql.DB with optional configuration.
func NewTrailStoreFromSQLDB(db *sql.DB, options ...Option) (TrailStore, error) {
	if db == nil {
		return TrailStore{}, audittrail.ErrNilDatabaseConnection
	}

	return newTrailStore(adapters.NewSQLAdapter(db), options...)
}

// NewTrailStoreFromSQLX creates a new TrailStore using a sqlx.DB with optional configuration.
func NewTrailStoreFromSQLX(db *sqlx.DB, options ...Option) (TrailStore, error) {
	if db == nil {
		return TrailStore{}, audittrail.ErrNilDatabaseConnection
	}

	return newTrailStore(adapters.NewSQLXAdapter(db), options...)
}

func newTrailStore(db adapters.DBAdapter, options ...Option) (TrailStore, error) {
	ts := TrailStore{
		db:     db,
		schema: defaultSchema,
	}

	for _, option := range options {
		if err := option(&ts); err != nil {
			return TrailStore{}, err
		}
	}

	return ts, nil
}

// List returns one page of the trail selected by the given query: the matching
// rows ordered by event timestamp descending (id descending as tie-break), the
// total number of matching rows before pagination, and the clamped page/size.
//
// A query execution failure propagates as an error; no partial page is
// returned. An empty result set is not an error and yields total 0.
func (ts TrailStore) List(ctx context.Context, query audittrail.Query) (audittrail.Page, error) {
	var empty audittrail.Page

	tracing, ctx := ts.startListTracing(ctx, query)
	metrics := ts.startListMetrics(ctx)

	source, buildErr := ts.buildSourceDataset(query)
	if buildErr != nil {
		ts.logError(ctx, logMsgBuildQueryFailed, buildErr)
		tracing.finishError(errorTypeBuildQuery, 0)
		metrics.recordError(errorTypeBuildQuery, 0)

		return empty, buildErr
	}

	start := time.Now()

	total, countErr := ts.countRows(ctx, source)
	if countErr != nil {
		tracing.finishError(errorTypeCount, time.Since(start))
		metrics.recordError(errorTypeCount, time.Since(start))

		return empty, countErr
	}

	items, fetchErr := ts.fetchPage(ctx, source, query)
	if fetchErr != nil {
		tracing.finishError(errorTypeFetch, time.Since(start))
		metrics.recordError(errorTypeFetch, time.Since(start))

		return empty, fetchErr
	}

	duration := time.Since(start)

	ts.logOperation(ctx, logMsgListCompleted,
		logAttrSource, string(query.Source()),
		logAttrRowCount, len(items),
		logAttrTotal, total,
		logAttrDurationMS, toMilliseconds(duration))
	tracing.finishSuccess(len(items), total, duration)
	metrics.recordSuccess(len(items), duration)

	return audittrail.Page{
		Items: items,
		Total: total,
		Page:  query.Page(),
		Size:  query.Size(),
	}, nil
}

// buildSourceDataset assembles the filtered dataset for the selected source(s),
// projected into the shared 18-column shape.
func (ts TrailStore) buildSourceDataset(query audittrail.Query) (*goqu.SelectDataset, error) {
	switch query.Source() {
	case audittrail.SourceMovements:
		return ts.movementDataset(query), nil

	case audittrail.SourceAudit:
		return ts.auditDataset(query), nil

	case audittrail.SourceMixed:
		return ts.movementDataset(query).UnionAll(ts.auditDataset(query)), nil

	default:
		return nil, audittrail.ErrUnknownSource
	}
}

// movementDataset builds the movement-source select. When the query asks for
// REPARACION the literal movement query is replaced entirely by the
// repair-cycle synthesis; no literal REPARACION tag is ever stored.
func (ts TrailStore) movementDataset(query audittrail.Query) *goqu.SelectDataset {
	if query.WantsRepairCycles() {
		return ts.repairCycleDataset(query)
	}

	dataset := goqu.Dialect(dialectName).
		From(ts.table(tableMovements).As("m")).
		LeftJoin(ts.table(tableItems).As("i"), goqu.On(goqu.I("i.item_id").Eq(goqu.I("m.mov_item_id")))).
		LeftJoin(ts.table(tableItemTypes).As("it"), goqu.On(goqu.I("it.item_tipo_id").Eq(goqu.I("i.item_tipo_id")))).
		LeftJoin(ts.table(tableAreas).As("ao"), goqu.On(goqu.I("ao.area_id").Eq(goqu.I("m.mov_origen_area_id")))).
		LeftJoin(ts.table(tableAreas).As("ad"), goqu.On(goqu.I("ad.area_id").Eq(goqu.I("m.mov_destino_area_id")))).
		LeftJoin(ts.table(tableEquipment).As("e"), goqu.On(goqu.I("e.equipo_id").Eq(goqu.I("m.mov_equipo_id")))).
		Select(
			goqu.I("m.mov_id"),
			goqu.I("m.mov_item_id"),
			goqu.I("i.item_codigo"),
			goqu.I("it.clase"),
			goqu.I("it.nombre").As("item_tipo"),
			goqu.I("m.mov_tipo"),
			goqu.I("m.mov_fecha"),
			goqu.I("m.mov_origen_area_id"),
			goqu.I("ao.area_nombre").As("origen_area_nombre"),
			goqu.I("m.mov_destino_area_id"),
			goqu.I("ad.area_nombre").As("destino_area_nombre"),
			goqu.I("m.mov_equipo_id"),
			goqu.I("e.equipo_codigo"),
			goqu.I("e.equipo_nombre"),
			goqu.I("m.mov_usuario_app"),
			goqu.I("m.mov_motivo"),
			goqu.I("m.mov_detalle"),
			goqu.L("false").As(colEsAudit),
		)

	return dataset.Where(ts.movementPredicates(query)...)
}

// movementPredicates translates the optional filters into conjunctive
// expressions over the movement source. Missing filters are simply omitted.
func (ts TrailStore) movementPredicates(query audittrail.Query) []exp.Expression {
	predicates := make([]exp.Expression, 0)

	// date bounds compare calendar dates, time-of-day ignored
	if !query.OccurredFrom().IsZero() {
		predicates = append(predicates, goqu.L("m.mov_fecha::date >= ?::date", query.OccurredFrom().Format(dateLayout)))
	}

	if !query.OccurredUntil().IsZero() {
		predicates = append(predicates, goqu.L("m.mov_fecha::date <= ?::date", query.OccurredUntil().Format(dateLayout)))
	}

	if query.ItemID() > 0 {
		predicates = append(predicates, goqu.I("m.mov_item_id").Eq(query.ItemID()))
	}

	if query.EquipmentID() > 0 {
		predicates = append(predicates, goqu.I("m.mov_equipo_id").Eq(query.EquipmentID()))
	}

	if query.AreaID() > 0 {
		predicates = append(predicates, goqu.Or(
			goqu.I("m.mov_origen_area_id").Eq(query.AreaID()),
			goqu.I("m.mov_destino_area_id").Eq(query.AreaID()),
		))
	}

	if typePredicate := ts.movementTypePredicate(query.MovementType()); typePredicate != nil {
		predicates = append(predicates, typePredicate)
	}

	if query.SearchText() != "" {
		needle := likePattern(query.SearchText())
		predicates = append(predicates, goqu.Or(
			goqu.I("i.item_codigo").ILike(needle),
			goqu.I("it.nombre").ILike(needle),
			goqu.L("COALESCE(e.equipo_codigo, '')").ILike(needle),
			goqu.L("COALESCE(e.equipo_nombre, '')").ILike(needle),
			goqu.L("COALESCE(m.mov_usuario_app, '')").ILike(needle),
			goqu.L("COALESCE(m.mov_motivo, '')").ILike(needle),
			goqu.L("m.mov_detalle::text").ILike(needle),
		))
	}

	return predicates
}

// movementTypePredicate maps the requested type tag onto the stored data:
//
//   - PRESTAMO and RETORNO are TRASLADO movements whose detail payload carries
//     the respective flag; an absent flag never matches.
//   - The equipment states USO/ALMACEN/MANTENIMIENTO/BAJA match the literal
//     tag or an EQUIPO_ESTADO transition into that state.
//   - Any other tag matches by direct equality. REPARACION never reaches this
//     predicate (the movement query is replaced by the cycle synthesis).
func (ts TrailStore) movementTypePredicate(movementType string) exp.Expression {
	switch movementType {
	case "", audittrail.MovementTypeReparacion:
		return nil

	case audittrail.MovementTypePrestamo:
		return goqu.And(
			goqu.I("m.mov_tipo").Eq(audittrail.MovementTypeTraslado),
			goqu.L("COALESCE((m.mov_detalle->>'es_prestamo')::boolean, false) = true"),
		)

	case audittrail.MovementTypeRetorno:
		return goqu.And(
			goqu.I("m.mov_tipo").Eq(audittrail.MovementTypeTraslado),
			goqu.L("COALESCE((m.mov_detalle->>'devolucion')::boolean, false) = true"),
		)

	case audittrail.MovementTypeUso,
		audittrail.MovementTypeAlmacen,
		audittrail.MovementTypeMantenimiento,
		audittrail.MovementTypeBaja:
		return goqu.Or(
			goqu.I("m.mov_tipo").Eq(movementType),
			goqu.And(
				goqu.I("m.mov_tipo").Eq(audittrail.MovementTypeEquipmentState),
				goqu.L("(m.mov_detalle->>'after') = ?", movementType),
			),
		)

	default:
		return goqu.I("m.mov_tipo").Eq(movementType)
	}
}

// repairCycleDataset synthesizes one record per completed maintenance
// round-trip: an EQUIPO_ESTADO transition into MANTENIMIENTO whose immediate
// predecessor and successor (per equipment, ordered by timestamp then id) both
// carry the USO state. Open-ended cycles are never emitted.
func (ts TrailStore) repairCycleDataset(query audittrail.Query) *goqu.SelectDataset {
	states := goqu.Dialect(dialectName).
		From(ts.table(tableMovements).As("m")).
		Join(ts.table(tableEquipment).As("e"), goqu.On(goqu.I("e.equipo_id").Eq(goqu.I("m.mov_equipo_id")))).
		Select(
			goqu.I("m.mov_id"),
			goqu.I("m.mov_fecha"),
			goqu.I("m.mov_equipo_id"),
			goqu.I("e.equipo_codigo"),
			goqu.I("e.equipo_nombre"),
			goqu.I("e.equipo_area_id"),
			goqu.L("(m.mov_detalle->>'before')::text").As("before"),
			goqu.L("(m.mov_detalle->>'after')::text").As("after"),
			goqu.L("LAG((m.mov_detalle->>'after')::text) OVER (PARTITION BY m.mov_equipo_id ORDER BY m.mov_fecha, m.mov_id)").As("prev_after"),
			goqu.L("LEAD((m.mov_detalle->>'after')::text) OVER (PARTITION BY m.mov_equipo_id ORDER BY m.mov_fecha, m.mov_id)").As("next_after"),
		).
		Where(goqu.I("m.mov_tipo").Eq(audittrail.MovementTypeEquipmentState))

	predicates := []exp.Expression{
		goqu.I("s.after").Eq(audittrail.MovementTypeMantenimiento),
		goqu.I("s.prev_after").Eq(audittrail.MovementTypeUso),
		goqu.I("s.next_after").Eq(audittrail.MovementTypeUso),
	}

	if !query.OccurredFrom().IsZero() {
		predicates = append(predicates, goqu.L("s.mov_fecha::date >= ?::date", query.OccurredFrom().Format(dateLayout)))
	}

	if !query.OccurredUntil().IsZero() {
		predicates = append(predicates, goqu.L("s.mov_fecha::date <= ?::date", query.OccurredUntil().Format(dateLayout)))
	}

	if query.EquipmentID() > 0 {
		predicates = append(predicates, goqu.I("s.mov_equipo_id").Eq(query.EquipmentID()))
	}

	if query.AreaID() > 0 {
		predicates = append(predicates, goqu.I("s.equipo_area_id").Eq(query.AreaID()))
	}

	if query.SearchText() != "" {
		needle := likePattern(query.SearchText())
		predicates = append(predicates, goqu.Or(
			goqu.I("s.equipo_codigo").ILike(needle),
			goqu.I("s.equipo_nombre").ILike(needle),
		))
	}

	return goqu.Dialect(dialectName).
		From(goqu.T(cteStates).As("s")).
		With(cteStates, states).
		Select(
			goqu.I("s.mov_id"),
			goqu.L("NULL::bigint").As("mov_item_id"),
			goqu.L("NULL::text").As("item_codigo"),
			goqu.L("NULL::text").As("clase"),
			goqu.L("NULL::text").As("item_tipo"),
			goqu.L("?::text", audittrail.MovementTypeReparacion).As("mov_tipo"),
			goqu.I("s.mov_fecha"),
			goqu.L("NULL::bigint").As("mov_origen_area_id"),
			goqu.L("NULL::text").As("origen_area_nombre"),
			goqu.L("NULL::bigint").As("mov_destino_area_id"),
			goqu.L("NULL::text").As("destino_area_nombre"),
			goqu.I("s.mov_equipo_id"),
			goqu.I("s.equipo_codigo"),
			goqu.I("s.equipo_nombre"),
			goqu.L("NULL::text").As("mov_usuario_app"),
			goqu.L("?::text", repairCycleMotive).As("mov_motivo"),
			goqu.L("jsonb_build_object('ciclo', ?::text, 'before', s.before, 'after', s.after)", audittrail.RepairCycleLabel).As("mov_detalle"),
			goqu.L("false").As(colEsAudit),
		).
		Where(predicates...)
}

// auditDataset builds the audit-log select projected into the shared shape.
// Type/item/equipment/area filters do not apply to this source.
func (ts TrailStore) auditDataset(query audittrail.Query) *goqu.SelectDataset {
	predicates := make([]exp.Expression, 0)

	if !query.OccurredFrom().IsZero() {
		predicates = append(predicates, goqu.L("a.created_at::date >= ?::date", query.OccurredFrom().Format(dateLayout)))
	}

	if !query.OccurredUntil().IsZero() {
		predicates = append(predicates, goqu.L("a.created_at::date <= ?::date", query.OccurredUntil().Format(dateLayout)))
	}

	if query.SearchText() != "" {
		needle := likePattern(query.SearchText())
		predicates = append(predicates, goqu.Or(
			goqu.I("a.actor_user").ILike(needle),
			goqu.I("a.accion").ILike(needle),
			goqu.I("a.entidad").ILike(needle),
			goqu.L("COALESCE(a.entidad_id::text, '')").ILike(needle),
			goqu.L("COALESCE(a.extra::text, '')").ILike(needle),
			goqu.L("COALESCE(a.antes::text, '')").ILike(needle),
			goqu.L("COALESCE(a.despues::text, '')").ILike(needle),
		))
	}

	return goqu.Dialect(dialectName).
		From(ts.table(tableAuditLog).As("a")).
		Select(
			goqu.I("a.audit_id").As("mov_id"),
			goqu.L("NULL::bigint").As("mov_item_id"),
			goqu.L("NULL::text").As("item_codigo"),
			goqu.L("NULL::text").As("clase"),
			goqu.L("NULL::text").As("item_tipo"),
			goqu.I("a.accion").As("mov_tipo"),
			goqu.I("a.created_at").As("mov_fecha"),
			goqu.L("NULL::bigint").As("mov_origen_area_id"),
			goqu.L("NULL::text").As("origen_area_nombre"),
			goqu.L("NULL::bigint").As("mov_destino_area_id"),
			goqu.L("NULL::text").As("destino_area_nombre"),
			goqu.L("NULL::bigint").As("mov_equipo_id"),
			goqu.L("NULL::text").As("equipo_codigo"),
			goqu.L("NULL::text").As("equipo_nombre"),
			goqu.I("a.actor_user").As("mov_usuario_app"),
			goqu.L("COALESCE(a.extra->>'proc', 'AUDIT')").As("mov_motivo"),
			goqu.L("jsonb_build_object('entidad', a.entidad, 'entidad_id', a.entidad_id, 'antes', a.antes, 'despues', a.despues, 'extra', a.extra)").As("mov_detalle"),
			goqu.L("true").As(colEsAudit),
		).
		Where(predicates...)
}

// countRows counts all rows matching the source dataset, independently of the
// page fetch but with the very same filter expressions.
func (ts TrailStore) countRows(ctx context.Context, source *goqu.SelectDataset) (int, error) {
	countStmt := goqu.Dialect(dialectName).
		From(source.As(countSubAlias)).
		Select(goqu.COUNT(goqu.L("1")))

	sqlQuery, args, toSQLErr := countStmt.Prepared(true).ToSQL()
	if toSQLErr != nil {
		ts.logError(ctx, logMsgBuildQueryFailed, toSQLErr)
		return 0, errors.Join(audittrail.ErrBuildingQueryFailed, toSQLErr)
	}

	rows, _, queryErr := ts.executeQuery(ctx, sqlQuery, args, logActionCount)
	if queryErr != nil {
		return 0, errors.Join(audittrail.ErrCountingTrailFailed, queryErr)
	}
	defer ts.closeRows(rows)

	total := 0

	if rows.Next() {
		if scanErr := rows.Scan(&total); scanErr != nil {
			ts.logError(ctx, logMsgScanRowFailed, scanErr)
			return 0, errors.Join(audittrail.ErrScanningDBRowFailed, scanErr)
		}
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		ts.logError(ctx, logMsgDBQueryFailed, rowsErr)
		return 0, errors.Join(audittrail.ErrCountingTrailFailed, rowsErr)
	}

	return total, nil
}

// fetchPage fetches one ordered page of the source dataset and maps the rows
// into UnifiedRecords.
func (ts TrailStore) fetchPage(
	ctx context.Context,
	source *goqu.SelectDataset,
	query audittrail.Query,
) ([]audittrail.UnifiedRecord, error) {

	pageStmt := goqu.Dialect(dialectName).
		From(source.As(unifiedAlias)).
		Select(goqu.Star()).
		Order(
			goqu.I(colMovFecha).Desc(),
			goqu.I(colMovID).Desc(),
		).
		Limit(uint(query.Size())).
		Offset(uint(query.Offset()))

	sqlQuery, args, toSQLErr := pageStmt.Prepared(true).ToSQL()
	if toSQLErr != nil {
		ts.logError(ctx, logMsgBuildQueryFailed, toSQLErr)
		return nil, errors.Join(audittrail.ErrBuildingQueryFailed, toSQLErr)
	}

	rows, _, queryErr := ts.executeQuery(ctx, sqlQuery, args, logActionList)
	if queryErr != nil {
		return nil, errors.Join(audittrail.ErrQueryingTrailFailed, queryErr)
	}
	defer ts.closeRows(rows)

	return ts.scanRecords(ctx, rows)
}

// executeQuery executes the SQL query and returns rows with timing information.
func (ts TrailStore) executeQuery(
	ctx context.Context,
	sqlQuery sqlQueryString,
	args boundArgs,
	action string,
) (adapters.DBRows, time.Duration, error) {

	start := time.Now()
	rows, queryErr := ts.db.Query(ctx, sqlQuery, args...)
	duration := time.Since(start)
	ts.logQueryWithDuration(ctx, sqlQuery, action, duration)

	if queryErr != nil {
		ts.logError(ctx, logMsgDBQueryFailed, queryErr, logAttrQuery, sqlQuery)
		return nil, duration, queryErr
	}

	return rows, duration, nil
}

// closeRows safely closes database rows and logs any errors.
func (ts TrailStore) closeRows(rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		if ts.logger != nil {
			ts.logger.Warn(logMsgCloseRowsFailed, logAttrError, closeErr.Error())
		}
	}
}

// scanRecords maps the 18-column result shape into UnifiedRecords, converting
// the NULL-able columns into nil pointers.
func (ts TrailStore) scanRecords(ctx context.Context, rows adapters.DBRows) ([]audittrail.UnifiedRecord, error) {
	records := make([]audittrail.UnifiedRecord, 0)

	for rows.Next() {
		var (
			id              int64
			itemID          sql.NullInt64
			itemCode        sql.NullString
			itemClass       sql.NullString
			itemType        sql.NullString
			movType         string
			occurredAt      time.Time
			originAreaID    sql.NullInt64
			originAreaName  sql.NullString
			destAreaID      sql.NullInt64
			destAreaName    sql.NullString
			equipmentID     sql.NullInt64
			equipmentCode   sql.NullString
			equipmentName   sql.NullString
			actingUser      sql.NullString
			motive          sql.NullString
			detail          []byte
			isAudit         bool
		)

		scanErr := rows.Scan(
			&id, &itemID, &itemCode, &itemClass, &itemType, &movType, &occurredAt,
			&originAreaID, &originAreaName, &destAreaID, &destAreaName,
			&equipmentID, &equipmentCode, &equipmentName,
			&actingUser, &motive, &detail, &isAudit,
		)
		if scanErr != nil {
			ts.logError(ctx, logMsgScanRowFailed, scanErr)
			return nil, errors.Join(audittrail.ErrScanningDBRowFailed, scanErr)
		}

		records = append(records, audittrail.UnifiedRecord{
			ID:                  id,
			ItemID:              nullInt64Ptr(itemID),
			ItemCode:            nullStringPtr(itemCode),
			ItemClass:           nullStringPtr(itemClass),
			ItemType:            nullStringPtr(itemType),
			Type:                movType,
			OccurredAt:          occurredAt,
			OriginAreaID:        nullInt64Ptr(originAreaID),
			OriginAreaName:      nullStringPtr(originAreaName),
			DestinationAreaID:   nullInt64Ptr(destAreaID),
			DestinationAreaName: nullStringPtr(destAreaName),
			EquipmentID:         nullInt64Ptr(equipmentID),
			EquipmentCode:       nullStringPtr(equipmentCode),
			EquipmentName:       nullStringPtr(equipmentName),
			ActingUser:          nullStringPtr(actingUser),
			Motive:              nullStringPtr(motive),
			Detail:              json.RawMessage(detail),
			IsAudit:             isAudit,
		})
	}

	// Next returning false can also mean the connection failed mid-result-set;
	// a truncated page must not pass as success.
	if rowsErr := rows.Err(); rowsErr != nil {
		ts.logError(ctx, logMsgDBQueryFailed, rowsErr)
		return nil, errors.Join(audittrail.ErrQueryingTrailFailed, rowsErr)
	}

	return records, nil
}

func (ts TrailStore) table(name string) exp.IdentifierExpression {
	return goqu.S(ts.schema).Table(name)
}

const repairCycleMotive = "ciclo_uso_mant_uso"

func likePattern(needle string) string {
	return "%" + needle + "%"
}

func nullInt64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}

	value := v.Int64

	return &value
}

func nullStringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}

	value := v.String

	return &value
}
