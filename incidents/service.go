// Package incidents implements the incident workflow on top of Postgres:
// reporting, role-scoped listing and detail, the conversation thread,
// assignment, the status machine and the notification feed.
//
// Every mutating operation runs in one transaction and rolls back as a whole
// on any failure. Mail notifications are strictly best-effort: they go out
// after the transaction committed and can never fail the operation.
package incidents

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect import
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/invtrail/inventory-trail-go/audittrail"
	"github.com/invtrail/inventory-trail-go/internal/adapters"
	"github.com/invtrail/inventory-trail-go/mailer"
	"github.com/invtrail/inventory-trail-go/users"
)

const (
	defaultSchema = "inv"
	dialectName   = "postgres"

	tableIncidents = "incidencias"
	tableMessages  = "incidencia_mensajes"
	tableUsers     = "usuarios"
	tableRoles     = "roles"
	tableEquipment = "equipos"
	tableAreas     = "areas"
)

// Notifier sends one notification mail and reports whether it went out.
// *mailer.Mailer implements it; a nil notifier disables mail entirely.
type Notifier interface {
	Send(msg mailer.Message) bool
}

// Service runs the incident operations against Postgres.
type Service struct {
	db       adapters.DBAdapter
	schema   string
	logger   audittrail.Logger
	notifier Notifier
}

// Option configures a Service.
type Option func(*Service)

// WithSchema overrides the default "inv" schema.
func WithSchema(schema string) Option {
	return func(s *Service) {
		if schema != "" {
			s.schema = schema
		}
	}
}

// WithLogger sets the logger for non-critical failures.
func WithLogger(logger audittrail.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithNotifier enables mail notifications through the given Notifier.
func WithNotifier(notifier Notifier) Option {
	return func(s *Service) {
		s.notifier = notifier
	}
}

// NewServiceFromPGXPool creates a Service using a pgx pool.
func NewServiceFromPGXPool(db *pgxpool.Pool, options ...Option) (Service, error) {
	if db == nil {
		return Service{}, ErrNilDatabaseConnection
	}

	return newService(adapters.NewPGXAdapter(db), options...), nil
}

// NewServiceFromSQLDB creates a Service using a sql.DB.
func NewServiceFromSQLDB(db *sql.DB, options ...Option) (Service, error) {
	if db == nil {
		return Service{}, ErrNilDatabaseConnection
	}

	return newService(adapters.NewSQLAdapter(db), options...), nil
}

// NewServiceFromSQLX creates a Service using a sqlx.DB.
func NewServiceFromSQLX(db *sqlx.DB, options ...Option) (Service, error) {
	if db == nil {
		return Service{}, ErrNilDatabaseConnection
	}

	return newService(adapters.NewSQLXAdapter(db), options...), nil
}

func newService(db adapters.DBAdapter, options ...Option) Service {
	s := Service{
		db:     db,
		schema: defaultSchema,
	}

	for _, option := range options {
		option(&s)
	}

	return s
}

// Create opens a new incident reported by actor: the header row (status
// ABIERTA, area taken from the equipment, else from the reporter), the
// system NEW_INC staff message, and a notification mail to the admins with
// Reply-To pointing at the reporter.
func (s Service) Create(ctx context.Context, actor string, params CreateParams) (int64, error) {
	tx, beginErr := s.db.Begin(ctx)
	if beginErr != nil {
		return 0, errors.Join(ErrQueryingIncidentsFailed, beginErr)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var (
		areaID        *int64
		equipmentCode string
		areaName      string
	)

	if params.EquipmentID != nil {
		code, eqAreaID, eqAreaName, lookupErr := s.equipmentArea(ctx, tx, *params.EquipmentID)
		if lookupErr != nil {
			return 0, lookupErr
		}

		equipmentCode, areaName = code, eqAreaName
		areaID = eqAreaID
	}

	if areaID == nil {
		reporterArea, lookupErr := s.reporterAreaID(ctx, tx, actor)
		if lookupErr != nil {
			return 0, lookupErr
		}

		areaID = reporterArea
	}

	insert := goqu.Dialect(dialectName).
		Insert(s.table(tableIncidents)).
		Prepared(true).
		Rows(goqu.Record{
			"equipo_id":     params.EquipmentID,
			"area_id":       areaID,
			"reportado_por": actor,
			"titulo":        params.Title,
			"descripcion":   params.Description,
			"estado":        StatusOpen,
		}).
		Returning("inc_id")

	incID, insertErr := s.insertReturningID(ctx, tx, insert)
	if insertErr != nil {
		return 0, insertErr
	}

	if msgErr := s.insertSystemMessage(ctx, tx, incID, "Nueva incidencia creada por "+actor, systemAuthor, KindNewIncident); msgErr != nil {
		return 0, msgErr
	}

	replyTo := params.ReporterEmail
	if replyTo == "" {
		email, emailErr := s.userEmail(ctx, tx, actor)
		if emailErr != nil {
			return 0, emailErr
		}

		replyTo = email
	}

	admins, adminsErr := s.adminEmails(ctx, tx)
	if adminsErr != nil {
		return 0, adminsErr
	}

	if commitErr := tx.Commit(ctx); commitErr != nil {
		return 0, errors.Join(ErrQueryingIncidentsFailed, commitErr)
	}

	s.send(newIncidentMail(incID, params.Title, params.Description, actor, replyTo, equipmentCode, areaName, admins))

	return incID, nil
}

// List returns one page of incidents visible to the actor: USUARIO sees own
// reports, PRACTICANTE sees assigned ones, ADMIN sees everything (or only own
// reports with Mine). Newest first, total from a window count.
func (s Service) List(ctx context.Context, actor string, filter ListFilter) (Page, error) {
	var empty Page

	page, size := clampPaging(filter.Page, filter.Size)

	role, roleErr := s.userRole(ctx, s.db, actor)
	if roleErr != nil {
		return empty, roleErr
	}

	stmt := goqu.Dialect(dialectName).
		From(s.table(tableIncidents).As("i")).
		LeftJoin(s.table(tableEquipment).As("e"), goqu.On(goqu.I("e.equipo_id").Eq(goqu.I("i.equipo_id")))).
		LeftJoin(s.table(tableAreas).As("a"), goqu.On(goqu.I("a.area_id").Eq(goqu.I("i.area_id")))).
		Select(
			goqu.I("i.inc_id"),
			goqu.I("i.titulo"),
			goqu.I("i.descripcion"),
			goqu.I("i.estado"),
			goqu.I("i.reportado_por"),
			goqu.I("i.equipo_id"),
			goqu.I("e.equipo_codigo"),
			goqu.I("i.area_id"),
			goqu.I("a.area_nombre"),
			goqu.I("i.created_at"),
			goqu.I("i.asignado_a"),
			goqu.L("COUNT(*) OVER()").As("total_rows"),
		)

	switch role {
	case users.RoleUsuario:
		stmt = stmt.Where(goqu.I("i.reportado_por").Eq(actor))
	case users.RolePracticante:
		stmt = stmt.Where(goqu.I("i.asignado_a").Eq(actor))
	default:
		if filter.Mine {
			stmt = stmt.Where(goqu.I("i.reportado_por").Eq(actor))
		}
	}

	if filter.Status != "" {
		stmt = stmt.Where(goqu.I("i.estado").Eq(strings.ToUpper(strings.TrimSpace(filter.Status))))
	}

	if filter.AreaID > 0 {
		stmt = stmt.Where(goqu.I("i.area_id").Eq(filter.AreaID))
	}

	if filter.Text != "" {
		needle := "%" + filter.Text + "%"
		stmt = stmt.Where(goqu.Or(
			goqu.I("i.titulo").ILike(needle),
			goqu.I("i.descripcion").ILike(needle),
			goqu.L("COALESCE(e.equipo_codigo, '')").ILike(needle),
		))
	}

	stmt = stmt.
		Order(goqu.I("i.inc_id").Desc()).
		Limit(uint(size)).
		Offset(uint((page - 1) * size))

	sqlQuery, args, toSQLErr := stmt.Prepared(true).ToSQL()
	if toSQLErr != nil {
		return empty, errors.Join(ErrBuildingQueryFailed, toSQLErr)
	}

	rows, queryErr := s.db.Query(ctx, sqlQuery, args...)
	if queryErr != nil {
		return empty, errors.Join(ErrQueryingIncidentsFailed, queryErr)
	}
	defer func() { _ = rows.Close() }()

	items := make([]Incident, 0)
	total := 0

	for rows.Next() {
		var (
			incident      Incident
			equipmentID   sql.NullInt64
			equipmentCode sql.NullString
			areaID        sql.NullInt64
			areaName      sql.NullString
			assignedTo    sql.NullString
			rowTotal      int
		)

		if scanErr := rows.Scan(
			&incident.ID, &incident.Title, &incident.Description, &incident.Status,
			&incident.ReportedBy, &equipmentID, &equipmentCode,
			&areaID, &areaName, &incident.CreatedAt, &assignedTo, &rowTotal,
		); scanErr != nil {
			return empty, errors.Join(ErrScanningDBRowFailed, scanErr)
		}

		incident.EquipmentID = nullInt64Ptr(equipmentID)
		incident.EquipmentCode = nullStringPtr(equipmentCode)
		incident.AreaID = nullInt64Ptr(areaID)
		incident.AreaName = nullStringPtr(areaName)
		incident.AssignedTo = nullStringPtr(assignedTo)

		total = rowTotal
		items = append(items, incident)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return empty, errors.Join(ErrQueryingIncidentsFailed, rowsErr)
	}

	return Page{Items: items, Total: total, Page: page, Size: size}, nil
}

// Get returns the incident with its messages, scoped to the caller: a USUARIO
// only reaches own incidents and only sees PUBLIC MSG entries, a PRACTICANTE
// only assigned incidents (all messages), an ADMIN everything. An incident
// outside the caller's scope is reported as not found.
func (s Service) Get(ctx context.Context, actor string, incID int64) (Detail, error) {
	var empty Detail

	incident, found, headErr := s.incidentByID(ctx, incID)
	if headErr != nil {
		return empty, headErr
	}

	if !found {
		return empty, ErrIncidentNotFound
	}

	role, roleErr := s.userRole(ctx, s.db, actor)
	if roleErr != nil {
		return empty, roleErr
	}

	publicOnly := false

	switch role {
	case users.RoleUsuario:
		if !strings.EqualFold(actor, incident.ReportedBy) {
			return empty, ErrIncidentNotFound
		}

		publicOnly = true
	case users.RolePracticante:
		if incident.AssignedTo == nil || !strings.EqualFold(actor, *incident.AssignedTo) {
			return empty, ErrIncidentNotFound
		}
	}

	messages, msgErr := s.incidentMessages(ctx, incID, publicOnly)
	if msgErr != nil {
		return empty, msgErr
	}

	return Detail{Incident: incident, Messages: messages}, nil
}

// AddMessage appends a conversation message with the given visibility and
// mails the involved parties, never the sender: staff-only messages go to the
// assignee and the admins, public ones additionally to the reporter.
func (s Service) AddMessage(ctx context.Context, actor string, incID int64, body string, staffOnly bool) (int64, error) {
	tx, beginErr := s.db.Begin(ctx)
	if beginErr != nil {
		return 0, errors.Join(ErrQueryingIncidentsFailed, beginErr)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	hdr, found, headErr := s.incidentHeader(ctx, tx, incID)
	if headErr != nil {
		return 0, headErr
	}

	if !found {
		return 0, ErrIncidentNotFound
	}

	visibility := VisibilityPublic
	if staffOnly {
		visibility = VisibilityStaff
	}

	insert := goqu.Dialect(dialectName).
		Insert(s.table(tableMessages)).
		Prepared(true).
		Rows(goqu.Record{
			"inc_id":      incID,
			"mensaje":     body,
			"usuario":     actor,
			"visibilidad": visibility,
			"tipo":        KindMessage,
		}).
		Returning("msg_id")

	msgID, insertErr := s.insertReturningID(ctx, tx, insert)
	if insertErr != nil {
		return 0, insertErr
	}

	senderEmail, senderErr := s.userEmail(ctx, tx, actor)
	if senderErr != nil {
		return 0, senderErr
	}

	ownerEmail, ownerErr := s.userEmail(ctx, tx, hdr.reportedBy)
	if ownerErr != nil {
		return 0, ownerErr
	}

	assigneeEmail, assigneeErr := s.assigneeEmail(ctx, tx, hdr)
	if assigneeErr != nil {
		return 0, assigneeErr
	}

	admins, adminsErr := s.adminEmails(ctx, tx)
	if adminsErr != nil {
		return 0, adminsErr
	}

	if commitErr := tx.Commit(ctx); commitErr != nil {
		return 0, errors.Join(ErrQueryingIncidentsFailed, commitErr)
	}

	var recipients []string
	if staffOnly {
		recipients = dedupRecipients(append([]string{assigneeEmail}, admins...), senderEmail)
	} else {
		recipients = dedupRecipients(append([]string{ownerEmail, assigneeEmail}, admins...), senderEmail)
	}

	if len(recipients) > 0 {
		s.send(messageMail(hdr, actor, body, staffOnly, senderEmail, recipients))
	}

	return msgID, nil
}

// Assign hands the incident to a user, moves it to EN_PROCESO, records the
// system ASSIGNED staff message and mails the assignee plus the admins.
func (s Service) Assign(ctx context.Context, actor string, incID int64, assignee string) error {
	tx, beginErr := s.db.Begin(ctx)
	if beginErr != nil {
		return errors.Join(ErrQueryingIncidentsFailed, beginErr)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	update := goqu.Dialect(dialectName).
		Update(s.table(tableIncidents)).
		Prepared(true).
		Set(goqu.Record{
			"asignado_a": assignee,
			"estado":     StatusInProgress,
		}).
		Where(goqu.I("inc_id").Eq(incID))

	affected, execErr := s.exec(ctx, tx, update)
	if execErr != nil {
		return execErr
	}

	if affected == 0 {
		return ErrIncidentNotFound
	}

	if msgErr := s.insertSystemMessage(ctx, tx, incID, "Incidencia asignada a "+assignee, actor, KindAssigned); msgErr != nil {
		return msgErr
	}

	hdr, _, headErr := s.incidentHeader(ctx, tx, incID)
	if headErr != nil {
		return headErr
	}

	assigneeEmail, emailErr := s.userEmail(ctx, tx, assignee)
	if emailErr != nil {
		return emailErr
	}

	admins, adminsErr := s.adminEmails(ctx, tx)
	if adminsErr != nil {
		return adminsErr
	}

	if commitErr := tx.Commit(ctx); commitErr != nil {
		return errors.Join(ErrQueryingIncidentsFailed, commitErr)
	}

	recipients := dedupRecipients(append([]string{assigneeEmail}, admins...), "")
	if len(recipients) > 0 {
		s.send(assignedMail(hdr, actor, recipients))
	}

	return nil
}

// SetStatus moves the incident to the given status. A PRACTICANTE may not
// close; closing mails the reporter, the assignee and the admins.
func (s Service) SetStatus(ctx context.Context, actor string, incID int64, status string) error {
	status = strings.ToUpper(strings.TrimSpace(status))
	if !ValidStatus(status) {
		return ErrInvalidStatus
	}

	role, roleErr := s.userRole(ctx, s.db, actor)
	if roleErr != nil {
		return roleErr
	}

	if role == users.RolePracticante && status == StatusClosed {
		return ErrCloseForbidden
	}

	tx, beginErr := s.db.Begin(ctx)
	if beginErr != nil {
		return errors.Join(ErrQueryingIncidentsFailed, beginErr)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	update := goqu.Dialect(dialectName).
		Update(s.table(tableIncidents)).
		Prepared(true).
		Set(goqu.Record{"estado": status}).
		Where(goqu.I("inc_id").Eq(incID))

	affected, execErr := s.exec(ctx, tx, update)
	if execErr != nil {
		return execErr
	}

	if affected == 0 {
		return ErrIncidentNotFound
	}

	var (
		hdr        incidentHeaderRow
		recipients []string
		replyTo    string
	)

	if status == StatusClosed {
		header, found, headErr := s.incidentHeader(ctx, tx, incID)
		if headErr != nil {
			return headErr
		}

		if found {
			hdr = header

			ownerEmail, ownerErr := s.userEmail(ctx, tx, hdr.reportedBy)
			if ownerErr != nil {
				return ownerErr
			}

			assigneeEmail, assigneeErr := s.assigneeEmail(ctx, tx, hdr)
			if assigneeErr != nil {
				return assigneeErr
			}

			admins, adminsErr := s.adminEmails(ctx, tx)
			if adminsErr != nil {
				return adminsErr
			}

			actorEmail, actorErr := s.userEmail(ctx, tx, actor)
			if actorErr != nil {
				return actorErr
			}

			replyTo = actorEmail
			recipients = dedupRecipients(append([]string{ownerEmail, assigneeEmail}, admins...), "")
		}
	}

	if commitErr := tx.Commit(ctx); commitErr != nil {
		return errors.Join(ErrQueryingIncidentsFailed, commitErr)
	}

	if len(recipients) > 0 {
		s.send(closedMail(hdr, actor, replyTo, recipients))
	}

	return nil
}

// ListUpdates returns the notification feed: messages after sinceID, written
// by someone else, scoped like Get, ascending by id and capped at one batch.
// When the feed is empty on a fresh cursor the current high-water mark is
// returned so pollers do not replay history.
func (s Service) ListUpdates(ctx context.Context, actor string, sinceID int64) (UpdatesFeed, error) {
	var empty UpdatesFeed

	role, roleErr := s.userRole(ctx, s.db, actor)
	if roleErr != nil {
		return empty, roleErr
	}

	stmt := goqu.Dialect(dialectName).
		From(s.table(tableMessages).As("m")).
		Join(s.table(tableIncidents).As("i"), goqu.On(goqu.I("i.inc_id").Eq(goqu.I("m.inc_id")))).
		Select(
			goqu.I("m.msg_id"),
			goqu.I("m.inc_id"),
			goqu.I("m.mensaje"),
			goqu.I("m.usuario"),
			goqu.I("m.created_at"),
			goqu.I("m.visibilidad"),
			goqu.I("m.tipo"),
			goqu.I("i.titulo"),
			goqu.I("i.estado"),
		).
		Where(
			goqu.I("m.msg_id").Gt(sinceID),
			goqu.L("LOWER(m.usuario) <> LOWER(?)", actor),
		)

	switch role {
	case users.RoleUsuario:
		stmt = stmt.Where(
			goqu.I("i.reportado_por").Eq(actor),
			goqu.I("m.visibilidad").Eq(VisibilityPublic),
			goqu.I("m.tipo").Eq(KindMessage),
		)
	case users.RolePracticante:
		stmt = stmt.Where(goqu.I("i.asignado_a").Eq(actor))
	}

	stmt = stmt.Order(goqu.I("m.msg_id").Asc()).Limit(updatesFeedLimit)

	sqlQuery, args, toSQLErr := stmt.Prepared(true).ToSQL()
	if toSQLErr != nil {
		return empty, errors.Join(ErrBuildingQueryFailed, toSQLErr)
	}

	rows, queryErr := s.db.Query(ctx, sqlQuery, args...)
	if queryErr != nil {
		return empty, errors.Join(ErrQueryingIncidentsFailed, queryErr)
	}
	defer func() { _ = rows.Close() }()

	items := make([]UpdateItem, 0)
	lastID := sinceID

	for rows.Next() {
		var item UpdateItem

		if scanErr := rows.Scan(
			&item.MsgID, &item.IncID, &item.Body, &item.Author, &item.CreatedAt,
			&item.Visibility, &item.Kind, &item.Title, &item.Status,
		); scanErr != nil {
			return empty, errors.Join(ErrScanningDBRowFailed, scanErr)
		}

		if item.MsgID > lastID {
			lastID = item.MsgID
		}

		items = append(items, item)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return empty, errors.Join(ErrQueryingIncidentsFailed, rowsErr)
	}

	if len(items) == 0 && sinceID == 0 {
		highWater, hwErr := s.messagesHighWaterMark(ctx)
		if hwErr != nil {
			return empty, hwErr
		}

		lastID = highWater
	}

	return UpdatesFeed{Items: items, LastID: lastID}, nil
}

/*** internals ***/

type querier interface {
	Query(ctx context.Context, query string, args ...any) (adapters.DBRows, error)
	Exec(ctx context.Context, query string, args ...any) (adapters.DBResult, error)
}

// incidentHeaderRow is the subset of the incident used for mail composition.
type incidentHeaderRow struct {
	id            int64
	title         string
	description   string
	status        string
	reportedBy    string
	assignedTo    *string
	equipmentCode string
	areaName      string
	createdAt     time.Time
}

func clampPaging(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}

	if size == 0 {
		size = DefaultPageSize
	}

	if size < 1 {
		size = 1
	}

	if size > MaxPageSize {
		size = MaxPageSize
	}

	return page, size
}

func (s Service) userRole(ctx context.Context, q querier, username string) (string, error) {
	stmt := goqu.Dialect(dialectName).
		From(s.table(tableUsers).As("u")).
		Join(s.table(tableRoles).As("r"), goqu.On(goqu.I("r.rol_id").Eq(goqu.I("u.rol_id")))).
		Select(goqu.I("r.rol_nombre")).
		Where(goqu.I("u.usuario_username").Eq(username))

	sqlQuery, args, toSQLErr := stmt.Prepared(true).ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(ErrBuildingQueryFailed, toSQLErr)
	}

	rows, queryErr := q.Query(ctx, sqlQuery, args...)
	if queryErr != nil {
		return "", errors.Join(ErrQueryingIncidentsFailed, queryErr)
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		if rowsErr := rows.Err(); rowsErr != nil {
			return "", errors.Join(ErrQueryingIncidentsFailed, rowsErr)
		}

		return users.RoleUsuario, nil
	}

	var role string
	if scanErr := rows.Scan(&role); scanErr != nil {
		return "", errors.Join(ErrScanningDBRowFailed, scanErr)
	}

	return users.NormalizeRole(role), nil
}

func (s Service) userEmail(ctx context.Context, q querier, username string) (string, error) {
	if username == "" {
		return "", nil
	}

	stmt := goqu.Dialect(dialectName).
		From(s.table(tableUsers)).
		Select(goqu.L("COALESCE(usuario_email, '')")).
		Where(goqu.I("usuario_username").Eq(username))

	sqlQuery, args, toSQLErr := stmt.Prepared(true).ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(ErrBuildingQueryFailed, toSQLErr)
	}

	rows, queryErr := q.Query(ctx, sqlQuery, args...)
	if queryErr != nil {
		return "", errors.Join(ErrQueryingIncidentsFailed, queryErr)
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		if rowsErr := rows.Err(); rowsErr != nil {
			return "", errors.Join(ErrQueryingIncidentsFailed, rowsErr)
		}

		return "", nil
	}

	var email string
	if scanErr := rows.Scan(&email); scanErr != nil {
		return "", errors.Join(ErrScanningDBRowFailed, scanErr)
	}

	return email, nil
}

func (s Service) assigneeEmail(ctx context.Context, q querier, hdr incidentHeaderRow) (string, error) {
	if hdr.assignedTo == nil {
		return "", nil
	}

	return s.userEmail(ctx, q, *hdr.assignedTo)
}

func (s Service) adminEmails(ctx context.Context, q querier) ([]string, error) {
	stmt := goqu.Dialect(dialectName).
		From(s.table(tableUsers).As("u")).
		Join(s.table(tableRoles).As("r"), goqu.On(goqu.I("r.rol_id").Eq(goqu.I("u.rol_id")))).
		Select(goqu.I("u.usuario_email")).
		Where(
			goqu.L("UPPER(r.rol_nombre)").Eq(users.RoleAdmin),
			goqu.I("u.usuario_email").IsNotNull(),
			goqu.I("u.usuario_email").Neq(""),
		)

	sqlQuery, args, toSQLErr := stmt.Prepared(true).ToSQL()
	if toSQLErr != nil {
		return nil, errors.Join(ErrBuildingQueryFailed, toSQLErr)
	}

	rows, queryErr := q.Query(ctx, sqlQuery, args...)
	if queryErr != nil {
		return nil, errors.Join(ErrQueryingIncidentsFailed, queryErr)
	}
	defer func() { _ = rows.Close() }()

	emails := make([]string, 0)

	for rows.Next() {
		var email string
		if scanErr := rows.Scan(&email); scanErr != nil {
			return nil, errors.Join(ErrScanningDBRowFailed, scanErr)
		}

		emails = append(emails, email)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, errors.Join(ErrQueryingIncidentsFailed, rowsErr)
	}

	return emails, nil
}

func (s Service) equipmentArea(ctx context.Context, q querier, equipmentID int64) (string, *int64, string, error) {
	stmt := goqu.Dialect(dialectName).
		From(s.table(tableEquipment).As("e")).
		LeftJoin(s.table(tableAreas).As("a"), goqu.On(goqu.I("a.area_id").Eq(goqu.I("e.equipo_area_id")))).
		Select(
			goqu.L("COALESCE(e.equipo_codigo, '')"),
			goqu.I("e.equipo_area_id"),
			goqu.L("COALESCE(a.area_nombre, '')"),
		).
		Where(goqu.I("e.equipo_id").Eq(equipmentID))

	sqlQuery, args, toSQLErr := stmt.Prepared(true).ToSQL()
	if toSQLErr != nil {
		return "", nil, "", errors.Join(ErrBuildingQueryFailed, toSQLErr)
	}

	rows, queryErr := q.Query(ctx, sqlQuery, args...)
	if queryErr != nil {
		return "", nil, "", errors.Join(ErrQueryingIncidentsFailed, queryErr)
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		if rowsErr := rows.Err(); rowsErr != nil {
			return "", nil, "", errors.Join(ErrQueryingIncidentsFailed, rowsErr)
		}

		return "", nil, "", nil
	}

	var (
		code     string
		areaID   sql.NullInt64
		areaName string
	)

	if scanErr := rows.Scan(&code, &areaID, &areaName); scanErr != nil {
		return "", nil, "", errors.Join(ErrScanningDBRowFailed, scanErr)
	}

	return code, nullInt64Ptr(areaID), areaName, nil
}

func (s Service) reporterAreaID(ctx context.Context, q querier, username string) (*int64, error) {
	stmt := goqu.Dialect(dialectName).
		From(s.table(tableUsers)).
		Select(goqu.I("usuario_area_id")).
		Where(goqu.I("usuario_username").Eq(username))

	sqlQuery, args, toSQLErr := stmt.Prepared(true).ToSQL()
	if toSQLErr != nil {
		return nil, errors.Join(ErrBuildingQueryFailed, toSQLErr)
	}

	rows, queryErr := q.Query(ctx, sqlQuery, args...)
	if queryErr != nil {
		return nil, errors.Join(ErrQueryingIncidentsFailed, queryErr)
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		if rowsErr := rows.Err(); rowsErr != nil {
			return nil, errors.Join(ErrQueryingIncidentsFailed, rowsErr)
		}

		return nil, nil
	}

	var areaID sql.NullInt64
	if scanErr := rows.Scan(&areaID); scanErr != nil {
		return nil, errors.Join(ErrScanningDBRowFailed, scanErr)
	}

	return nullInt64Ptr(areaID), nil
}

func (s Service) incidentHeader(ctx context.Context, q querier, incID int64) (incidentHeaderRow, bool, error) {
	var empty incidentHeaderRow

	stmt := goqu.Dialect(dialectName).
		From(s.table(tableIncidents).As("i")).
		LeftJoin(s.table(tableEquipment).As("e"), goqu.On(goqu.I("e.equipo_id").Eq(goqu.I("i.equipo_id")))).
		LeftJoin(s.table(tableAreas).As("a"), goqu.On(goqu.I("a.area_id").Eq(goqu.I("i.area_id")))).
		Select(
			goqu.I("i.inc_id"),
			goqu.I("i.titulo"),
			goqu.I("i.descripcion"),
			goqu.I("i.estado"),
			goqu.I("i.reportado_por"),
			goqu.I("i.asignado_a"),
			goqu.L("COALESCE(e.equipo_codigo, '')"),
			goqu.L("COALESCE(a.area_nombre, '')"),
			goqu.I("i.created_at"),
		).
		Where(goqu.I("i.inc_id").Eq(incID))

	sqlQuery, args, toSQLErr := stmt.Prepared(true).ToSQL()
	if toSQLErr != nil {
		return empty, false, errors.Join(ErrBuildingQueryFailed, toSQLErr)
	}

	rows, queryErr := q.Query(ctx, sqlQuery, args...)
	if queryErr != nil {
		return empty, false, errors.Join(ErrQueryingIncidentsFailed, queryErr)
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		if rowsErr := rows.Err(); rowsErr != nil {
			return empty, false, errors.Join(ErrQueryingIncidentsFailed, rowsErr)
		}

		return empty, false, nil
	}

	var (
		hdr        incidentHeaderRow
		assignedTo sql.NullString
	)

	if scanErr := rows.Scan(
		&hdr.id, &hdr.title, &hdr.description, &hdr.status,
		&hdr.reportedBy, &assignedTo, &hdr.equipmentCode, &hdr.areaName, &hdr.createdAt,
	); scanErr != nil {
		return empty, false, errors.Join(ErrScanningDBRowFailed, scanErr)
	}

	hdr.assignedTo = nullStringPtr(assignedTo)

	return hdr, true, nil
}

func (s Service) incidentByID(ctx context.Context, incID int64) (Incident, bool, error) {
	var empty Incident

	hdr, found, headErr := s.incidentHeader(ctx, s.db, incID)
	if headErr != nil || !found {
		return empty, found, headErr
	}

	incident := Incident{
		ID:          hdr.id,
		Title:       hdr.title,
		Description: hdr.description,
		Status:      hdr.status,
		ReportedBy:  hdr.reportedBy,
		CreatedAt:   hdr.createdAt,
		AssignedTo:  hdr.assignedTo,
	}

	if hdr.equipmentCode != "" {
		incident.EquipmentCode = &hdr.equipmentCode
	}

	if hdr.areaName != "" {
		incident.AreaName = &hdr.areaName
	}

	return incident, true, nil
}

func (s Service) incidentMessages(ctx context.Context, incID int64, publicOnly bool) ([]Message, error) {
	stmt := goqu.Dialect(dialectName).
		From(s.table(tableMessages)).
		Select(
			goqu.I("msg_id"),
			goqu.I("mensaje"),
			goqu.I("usuario"),
			goqu.I("created_at"),
			goqu.I("visibilidad"),
		).
		Where(goqu.I("inc_id").Eq(incID))

	if publicOnly {
		stmt = stmt.Where(
			goqu.I("visibilidad").Eq(VisibilityPublic),
			goqu.I("tipo").Eq(KindMessage),
		)
	}

	stmt = stmt.Order(goqu.I("created_at").Asc())

	sqlQuery, args, toSQLErr := stmt.Prepared(true).ToSQL()
	if toSQLErr != nil {
		return nil, errors.Join(ErrBuildingQueryFailed, toSQLErr)
	}

	rows, queryErr := s.db.Query(ctx, sqlQuery, args...)
	if queryErr != nil {
		return nil, errors.Join(ErrQueryingIncidentsFailed, queryErr)
	}
	defer func() { _ = rows.Close() }()

	messages := make([]Message, 0)

	for rows.Next() {
		var (
			message    Message
			visibility string
		)

		if scanErr := rows.Scan(&message.ID, &message.Body, &message.Author, &message.CreatedAt, &visibility); scanErr != nil {
			return nil, errors.Join(ErrScanningDBRowFailed, scanErr)
		}

		message.StaffOnly = visibility == VisibilityStaff
		messages = append(messages, message)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, errors.Join(ErrQueryingIncidentsFailed, rowsErr)
	}

	return messages, nil
}

func (s Service) insertSystemMessage(ctx context.Context, q querier, incID int64, body, author, kind string) error {
	insert := goqu.Dialect(dialectName).
		Insert(s.table(tableMessages)).
		Prepared(true).
		Rows(goqu.Record{
			"inc_id":      incID,
			"mensaje":     body,
			"usuario":     author,
			"visibilidad": VisibilityStaff,
			"tipo":        kind,
		})

	_, execErr := s.exec(ctx, q, insert)

	return execErr
}

func (s Service) messagesHighWaterMark(ctx context.Context) (int64, error) {
	stmt := goqu.Dialect(dialectName).
		From(s.table(tableMessages)).
		Select(goqu.L("COALESCE(MAX(msg_id), 0)"))

	sqlQuery, args, toSQLErr := stmt.Prepared(true).ToSQL()
	if toSQLErr != nil {
		return 0, errors.Join(ErrBuildingQueryFailed, toSQLErr)
	}

	rows, queryErr := s.db.Query(ctx, sqlQuery, args...)
	if queryErr != nil {
		return 0, errors.Join(ErrQueryingIncidentsFailed, queryErr)
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		if rowsErr := rows.Err(); rowsErr != nil {
			return 0, errors.Join(ErrQueryingIncidentsFailed, rowsErr)
		}

		return 0, nil
	}

	var highWater int64
	if scanErr := rows.Scan(&highWater); scanErr != nil {
		return 0, errors.Join(ErrScanningDBRowFailed, scanErr)
	}

	return highWater, nil
}

func (s Service) insertReturningID(ctx context.Context, q querier, stmt *goqu.InsertDataset) (int64, error) {
	sqlQuery, args, toSQLErr := stmt.ToSQL()
	if toSQLErr != nil {
		return 0, errors.Join(ErrBuildingQueryFailed, toSQLErr)
	}

	rows, queryErr := q.Query(ctx, sqlQuery, args...)
	if queryErr != nil {
		return 0, errors.Join(ErrQueryingIncidentsFailed, queryErr)
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		if rowsErr := rows.Err(); rowsErr != nil {
			return 0, errors.Join(ErrQueryingIncidentsFailed, rowsErr)
		}

		return 0, ErrQueryingIncidentsFailed
	}

	var id int64
	if scanErr := rows.Scan(&id); scanErr != nil {
		return 0, errors.Join(ErrScanningDBRowFailed, scanErr)
	}

	return id, nil
}

type sqlBuilder interface {
	ToSQL() (string, []any, error)
}

func (s Service) exec(ctx context.Context, q querier, stmt sqlBuilder) (int64, error) {
	sqlQuery, args, toSQLErr := stmt.ToSQL()
	if toSQLErr != nil {
		return 0, errors.Join(ErrBuildingQueryFailed, toSQLErr)
	}

	result, execErr := q.Exec(ctx, sqlQuery, args...)
	if execErr != nil {
		return 0, errors.Join(ErrQueryingIncidentsFailed, execErr)
	}

	affected, affectedErr := result.RowsAffected()
	if affectedErr != nil {
		return 0, errors.Join(ErrQueryingIncidentsFailed, affectedErr)
	}

	return affected, nil
}

// send forwards a notification; failures are already swallowed by the mailer.
func (s Service) send(msg mailer.Message) {
	if s.notifier == nil {
		return
	}

	if !s.notifier.Send(msg) && s.logger != nil {
		s.logger.Warn("incident notification was not sent", "subject", msg.Subject)
	}
}

func (s Service) table(name string) exp.IdentifierExpression {
	return goqu.S(s.schema).Table(name)
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
