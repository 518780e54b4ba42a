// Package users manages application accounts: authentication, the user CRUD
// and the auto-provisioned per-equipment accounts.
//
// Passwords never leave the database: hashing and verification are delegated
// to pgcrypto (crypt with a blowfish salt), so the package only ever moves the
// raw password into a parameter of the statement that hashes or checks it.
package users

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
)

const (
	defaultSchema = "inv"
	dialectName   = "postgres"

	tableUsers = "usuarios"
	tableRoles = "roles"

	logMsgTouchLoginFailed = "failed to record last login"
)

// Account is one application user as exposed to callers. The password hash is
// never part of it.
type Account struct {
	ID        int64      `json:"id"`
	Username  string     `json:"username"`
	Active    bool       `json:"activo"`
	AreaID    *int64     `json:"area_id"`
	Role      string     `json:"rol"`
	LastLogin *time.Time `json:"ultimo_login"`
}

// Filter narrows List: Text matches the username case-insensitively, Role
// filters by the normalized role literal. Empty fields do not constrain.
type Filter struct {
	Text string
	Role string
}

// Changes describes a partial update; nil fields stay untouched.
type Changes struct {
	Password *string
	Role     *string
	AreaID   *int64
	Active   *bool
}

// Service runs the user operations against Postgres.
type Service struct {
	db     adapters.DBAdapter
	schema string
	logger audittrail.Logger
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

// Authenticate checks the credentials against the stored bcrypt hash and, on
// success, touches the last-login timestamp (best effort) and returns the
// account. The failure modes are distinguishable: ErrUserNotFound,
// ErrWrongPassword, ErrUserDisabled.
func (s Service) Authenticate(ctx context.Context, username, password string) (Account, error) {
	var empty Account

	stmt := goqu.Dialect(dialectName).
		From(s.table(tableUsers).As("u")).
		Join(s.table(tableRoles).As("r"), goqu.On(goqu.I("r.rol_id").Eq(goqu.I("u.rol_id")))).
		Select(
			goqu.I("u.usuario_id"),
			goqu.I("u.usuario_username"),
			goqu.I("u.usuario_area_id"),
			goqu.I("r.rol_nombre"),
			goqu.L("COALESCE(u.usuario_activo, true)").As("activo"),
			goqu.L("u.usuario_password_bcrypt = crypt(?, u.usuario_password_bcrypt)", password).As("password_ok"),
		).
		Where(goqu.I("u.usuario_username").Eq(username))

	sqlQuery, args, toSQLErr := stmt.Prepared(true).ToSQL()
	if toSQLErr != nil {
		return empty, errors.Join(ErrBuildingQueryFailed, toSQLErr)
	}

	rows, queryErr := s.db.Query(ctx, sqlQuery, args...)
	if queryErr != nil {
		return empty, errors.Join(ErrQueryingUsersFailed, queryErr)
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		if rowsErr := rows.Err(); rowsErr != nil {
			return empty, errors.Join(ErrQueryingUsersFailed, rowsErr)
		}

		return empty, ErrUserNotFound
	}

	var (
		id         int64
		uname      string
		areaID     sql.NullInt64
		role       string
		active     bool
		passwordOK bool
	)

	if scanErr := rows.Scan(&id, &uname, &areaID, &role, &active, &passwordOK); scanErr != nil {
		return empty, errors.Join(ErrScanningDBRowFailed, scanErr)
	}

	if !passwordOK {
		return empty, ErrWrongPassword
	}

	if !active {
		return empty, ErrUserDisabled
	}

	s.touchLastLogin(ctx, id)

	return Account{
		ID:       id,
		Username: uname,
		Active:   true,
		AreaID:   nullInt64Ptr(areaID),
		Role:     NormalizeRole(role),
	}, nil
}

// List returns the accounts matching the filter, newest first.
func (s Service) List(ctx context.Context, filter Filter) ([]Account, error) {
	stmt := s.accountQuery()

	if filter.Text != "" {
		stmt = stmt.Where(goqu.I("u.usuario_username").ILike("%" + filter.Text + "%"))
	}

	if filter.Role != "" {
		stmt = stmt.Where(goqu.I("r.rol_nombre").Eq(NormalizeRole(filter.Role)))
	}

	stmt = stmt.Order(goqu.I("u.usuario_id").Desc())

	return s.queryAccounts(ctx, stmt)
}

// Get returns the account with the given id, or ErrUserNotFound.
func (s Service) Get(ctx context.Context, userID int64) (Account, error) {
	accounts, err := s.queryAccounts(ctx, s.accountQuery().Where(goqu.I("u.usuario_id").Eq(userID)))
	if err != nil {
		return Account{}, err
	}

	if len(accounts) == 0 {
		return Account{}, ErrUserNotFound
	}

	return accounts[0], nil
}

// Create inserts an active account with the given role and area and returns
// its id. The role must exist in inv.roles.
func (s Service) Create(ctx context.Context, username, password, role string, areaID int64) (int64, error) {
	roleID, found, roleErr := s.roleID(ctx, s.db, NormalizeRole(role))
	if roleErr != nil {
		return 0, roleErr
	}

	if !found {
		return 0, ErrUnknownRole
	}

	stmt := goqu.Dialect(dialectName).
		Insert(s.table(tableUsers)).
		Rows(goqu.Record{
			"usuario_username":        username,
			"usuario_password_bcrypt": goqu.L("crypt(?, gen_salt('bf'))", password),
			"rol_id":                  roleID,
			"usuario_area_id":         areaID,
			"usuario_activo":          true,
		}).
		Returning("usuario_id")

	return s.insertReturningID(ctx, s.db, stmt)
}

// Update applies the non-nil changes to the account. An empty change set is
// rejected with ErrNoFieldsToUpdate.
func (s Service) Update(ctx context.Context, userID int64, changes Changes) error {
	record := goqu.Record{}

	if changes.Password != nil && *changes.Password != "" {
		record["usuario_password_bcrypt"] = goqu.L("crypt(?, gen_salt('bf'))", *changes.Password)
	}

	if changes.Role != nil && *changes.Role != "" {
		roleID, found, roleErr := s.roleID(ctx, s.db, NormalizeRole(*changes.Role))
		if roleErr != nil {
			return roleErr
		}

		if !found {
			return ErrUnknownRole
		}

		record["rol_id"] = roleID
	}

	if changes.AreaID != nil {
		record["usuario_area_id"] = *changes.AreaID
	}

	if changes.Active != nil {
		record["usuario_activo"] = *changes.Active
	}

	if len(record) == 0 {
		return ErrNoFieldsToUpdate
	}

	stmt := goqu.Dialect(dialectName).
		Update(s.table(tableUsers)).
		Prepared(true).
		Set(record).
		Where(goqu.I("usuario_id").Eq(userID))

	affected, execErr := s.exec(ctx, s.db, stmt)
	if execErr != nil {
		return execErr
	}

	if affected == 0 {
		return ErrUserNotFound
	}

	return nil
}

// Delete removes the account with the given id.
func (s Service) Delete(ctx context.Context, userID int64) error {
	stmt := goqu.Dialect(dialectName).
		Delete(s.table(tableUsers)).
		Prepared(true).
		Where(goqu.I("usuario_id").Eq(userID))

	affected, execErr := s.exec(ctx, s.db, stmt)
	if execErr != nil {
		return execErr
	}

	if affected == 0 {
		return ErrUserNotFound
	}

	return nil
}

// EnsureEquipmentUser upserts the login account tied to an equipment record,
// always with the USUARIO role. The role row is created when missing. An empty
// username is a no-op; a missing password defaults to the username on insert
// and stays untouched on update. Runs in one transaction.
func (s Service) EnsureEquipmentUser(ctx context.Context, username, rawPassword string, areaID *int64) error {
	uname := strings.TrimSpace(username)
	if uname == "" {
		return nil
	}

	tx, beginErr := s.db.Begin(ctx)
	if beginErr != nil {
		return errors.Join(ErrQueryingUsersFailed, beginErr)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	roleID, found, roleErr := s.roleID(ctx, tx, RoleUsuario)
	if roleErr != nil {
		return roleErr
	}

	if !found {
		insertRole := goqu.Dialect(dialectName).
			Insert(s.table(tableRoles)).
			Rows(goqu.Record{"rol_nombre": RoleUsuario}).
			Returning("rol_id")

		var insertErr error
		roleID, insertErr = s.insertReturningID(ctx, tx, insertRole)
		if insertErr != nil {
			return insertErr
		}
	}

	userID, exists, lookupErr := s.userID(ctx, tx, uname)
	if lookupErr != nil {
		return lookupErr
	}

	if exists {
		record := goqu.Record{"rol_id": roleID}

		if rawPassword != "" {
			record["usuario_password_bcrypt"] = goqu.L("crypt(?, gen_salt('bf'))", rawPassword)
		}

		if areaID != nil {
			record["usuario_area_id"] = *areaID
		}

		update := goqu.Dialect(dialectName).
			Update(s.table(tableUsers)).
			Prepared(true).
			Set(record).
			Where(goqu.I("usuario_id").Eq(userID))

		if _, execErr := s.exec(ctx, tx, update); execErr != nil {
			return execErr
		}
	} else {
		password := rawPassword
		if password == "" {
			password = uname
		}

		record := goqu.Record{
			"usuario_username":        uname,
			"usuario_password_bcrypt": goqu.L("crypt(?, gen_salt('bf'))", password),
			"rol_id":                  roleID,
			"usuario_activo":          true,
		}

		if areaID != nil {
			record["usuario_area_id"] = *areaID
		}

		insert := goqu.Dialect(dialectName).
			Insert(s.table(tableUsers)).
			Prepared(true).
			Rows(record)

		if _, execErr := s.exec(ctx, tx, insert); execErr != nil {
			return execErr
		}
	}

	if commitErr := tx.Commit(ctx); commitErr != nil {
		return errors.Join(ErrQueryingUsersFailed, commitErr)
	}

	return nil
}

/*** internals ***/

// querier is the subset shared by the adapter and its transactions.
type querier interface {
	Query(ctx context.Context, query string, args ...any) (adapters.DBRows, error)
	Exec(ctx context.Context, query string, args ...any) (adapters.DBResult, error)
}

func (s Service) accountQuery() *goqu.SelectDataset {
	return goqu.Dialect(dialectName).
		From(s.table(tableUsers).As("u")).
		Join(s.table(tableRoles).As("r"), goqu.On(goqu.I("r.rol_id").Eq(goqu.I("u.rol_id")))).
		Select(
			goqu.I("u.usuario_id"),
			goqu.I("u.usuario_username"),
			goqu.L("COALESCE(u.usuario_activo, true)").As("activo"),
			goqu.I("u.usuario_area_id"),
			goqu.I("r.rol_nombre"),
			goqu.I("u.usuario_ultimo_login"),
		)
}

func (s Service) queryAccounts(ctx context.Context, stmt *goqu.SelectDataset) ([]Account, error) {
	sqlQuery, args, toSQLErr := stmt.Prepared(true).ToSQL()
	if toSQLErr != nil {
		return nil, errors.Join(ErrBuildingQueryFailed, toSQLErr)
	}

	rows, queryErr := s.db.Query(ctx, sqlQuery, args...)
	if queryErr != nil {
		return nil, errors.Join(ErrQueryingUsersFailed, queryErr)
	}
	defer func() { _ = rows.Close() }()

	accounts := make([]Account, 0)

	for rows.Next() {
		var (
			id        int64
			uname     string
			active    bool
			areaID    sql.NullInt64
			role      string
			lastLogin sql.NullTime
		)

		if scanErr := rows.Scan(&id, &uname, &active, &areaID, &role, &lastLogin); scanErr != nil {
			return nil, errors.Join(ErrScanningDBRowFailed, scanErr)
		}

		accounts = append(accounts, Account{
			ID:        id,
			Username:  uname,
			Active:    active,
			AreaID:    nullInt64Ptr(areaID),
			Role:      NormalizeRole(role),
			LastLogin: nullTimePtr(lastLogin),
		})
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, errors.Join(ErrQueryingUsersFailed, rowsErr)
	}

	return accounts, nil
}

func (s Service) roleID(ctx context.Context, q querier, role string) (int64, bool, error) {
	stmt := goqu.Dialect(dialectName).
		From(s.table(tableRoles)).
		Select(goqu.I("rol_id")).
		Where(goqu.L("upper(rol_nombre)").Eq(role))

	sqlQuery, args, toSQLErr := stmt.Prepared(true).ToSQL()
	if toSQLErr != nil {
		return 0, false, errors.Join(ErrBuildingQueryFailed, toSQLErr)
	}

	rows, queryErr := q.Query(ctx, sqlQuery, args...)
	if queryErr != nil {
		return 0, false, errors.Join(ErrQueryingUsersFailed, queryErr)
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		if rowsErr := rows.Err(); rowsErr != nil {
			return 0, false, errors.Join(ErrQueryingUsersFailed, rowsErr)
		}

		return 0, false, nil
	}

	var id int64
	if scanErr := rows.Scan(&id); scanErr != nil {
		return 0, false, errors.Join(ErrScanningDBRowFailed, scanErr)
	}

	return id, true, nil
}

func (s Service) userID(ctx context.Context, q querier, username string) (int64, bool, error) {
	stmt := goqu.Dialect(dialectName).
		From(s.table(tableUsers)).
		Select(goqu.I("usuario_id")).
		Where(goqu.I("usuario_username").Eq(username))

	sqlQuery, args, toSQLErr := stmt.Prepared(true).ToSQL()
	if toSQLErr != nil {
		return 0, false, errors.Join(ErrBuildingQueryFailed, toSQLErr)
	}

	rows, queryErr := q.Query(ctx, sqlQuery, args...)
	if queryErr != nil {
		return 0, false, errors.Join(ErrQueryingUsersFailed, queryErr)
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		if rowsErr := rows.Err(); rowsErr != nil {
			return 0, false, errors.Join(ErrQueryingUsersFailed, rowsErr)
		}

		return 0, false, nil
	}

	var id int64
	if scanErr := rows.Scan(&id); scanErr != nil {
		return 0, false, errors.Join(ErrScanningDBRowFailed, scanErr)
	}

	return id, true, nil
}

func (s Service) insertReturningID(ctx context.Context, q querier, stmt *goqu.InsertDataset) (int64, error) {
	sqlQuery, args, toSQLErr := stmt.Prepared(true).ToSQL()
	if toSQLErr != nil {
		return 0, errors.Join(ErrBuildingQueryFailed, toSQLErr)
	}

	rows, queryErr := q.Query(ctx, sqlQuery, args...)
	if queryErr != nil {
		return 0, errors.Join(ErrQueryingUsersFailed, queryErr)
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		if rowsErr := rows.Err(); rowsErr != nil {
			return 0, errors.Join(ErrQueryingUsersFailed, rowsErr)
		}

		return 0, ErrQueryingUsersFailed
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
		return 0, errors.Join(ErrQueryingUsersFailed, execErr)
	}

	affected, affectedErr := result.RowsAffected()
	if affectedErr != nil {
		return 0, errors.Join(ErrQueryingUsersFailed, affectedErr)
	}

	return affected, nil
}

// touchLastLogin is best effort; a failure only logs.
func (s Service) touchLastLogin(ctx context.Context, userID int64) {
	stmt := goqu.Dialect(dialectName).
		Update(s.table(tableUsers)).
		Prepared(true).
		Set(goqu.Record{"usuario_ultimo_login": goqu.L("now()")}).
		Where(goqu.I("usuario_id").Eq(userID))

	if _, execErr := s.exec(ctx, s.db, stmt); execErr != nil {
		if s.logger != nil {
			s.logger.Warn(logMsgTouchLoginFailed, "error", execErr.Error())
		}
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

func nullTimePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}

	value := v.Time

	return &value
}
