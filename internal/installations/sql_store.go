package installations

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ghl-oauth-manager/internal/common/errors"
	"ghl-oauth-manager/internal/crypto"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// Dialect selects SQL syntax differences between the supported databases
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

const installationColumns = `id, access_token, refresh_token, token_type, expires_at, scopes,
	location_id, company_id, user_id, auth_class, user_type, token_status,
	last_refresh, last_error, created_at, updated_at`

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS installations (
		id TEXT PRIMARY KEY,
		access_token TEXT NOT NULL DEFAULT '',
		refresh_token TEXT NOT NULL DEFAULT '',
		token_type TEXT NOT NULL DEFAULT '',
		expires_at BIGINT NOT NULL DEFAULT 0,
		scopes TEXT NOT NULL DEFAULT '',
		location_id TEXT NOT NULL DEFAULT '',
		company_id TEXT NOT NULL DEFAULT '',
		user_id TEXT NOT NULL DEFAULT '',
		auth_class TEXT NOT NULL DEFAULT '',
		user_type TEXT NOT NULL DEFAULT '',
		token_status TEXT NOT NULL DEFAULT '',
		last_refresh BIGINT,
		last_error TEXT NOT NULL DEFAULT '',
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_installations_expires_at ON installations(expires_at)`,
	`CREATE INDEX IF NOT EXISTS idx_installations_status ON installations(token_status)`,
	`CREATE TABLE IF NOT EXISTS refresh_leases (
		lease_key TEXT PRIMARY KEY,
		owner TEXT NOT NULL,
		expires_at BIGINT NOT NULL
	)`,
}

// SQLStore persists installations with database/sql. Times are stored as
// unix milliseconds so both dialects share one schema.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	secrets secrets
	now     func() time.Time
}

// OpenSQLite opens (and migrates) a SQLite database file.
func OpenSQLite(path string, cipher crypto.TokenCipher) (*SQLStore, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, errors.ConnectionError("failed to open SQLite database", err)
	}
	// one writer at a time keeps Update transactions serialized
	db.SetMaxOpenConns(1)
	return newSQLStore(db, DialectSQLite, cipher)
}

// PostgresDSN builds a connection string from its parts
func PostgresDSN(host, port, database, user, password, sslMode string) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, password, host, port, database, sslMode)
}

// OpenPostgres connects through pgx's database/sql driver and migrates.
func OpenPostgres(dsn string, cipher crypto.TokenCipher) (*SQLStore, error) {
	connConfig, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, errors.ConfigError("invalid PostgreSQL connection settings").WithCause(err)
	}
	db := stdlib.OpenDB(*connConfig)
	return newSQLStore(db, DialectPostgres, cipher)
}

func newSQLStore(db *sql.DB, dialect Dialect, cipher crypto.TokenCipher) (*SQLStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.ConnectionError(fmt.Sprintf("failed to connect to %s database", dialect), err)
	}
	for _, query := range migrations {
		if _, err := db.ExecContext(ctx, query); err != nil {
			db.Close()
			return nil, errors.InternalError("failed to run installation migrations", err)
		}
	}

	return &SQLStore{
		db:      db,
		dialect: dialect,
		secrets: newSecrets(cipher),
		now:     time.Now,
	}, nil
}

// rebind rewrites ? placeholders to $n for PostgreSQL
func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (s *SQLStore) scan(row rowScanner) (*Installation, error) {
	var (
		inst                            Installation
		expiresAt, createdAt, updatedAt int64
		lastRefresh                     sql.NullInt64
		scopes, status                  string
	)
	err := row.Scan(&inst.ID, &inst.AccessToken, &inst.RefreshToken, &inst.TokenType, &expiresAt, &scopes,
		&inst.LocationID, &inst.CompanyID, &inst.UserID, &inst.AuthClass, &inst.UserType, &status,
		&lastRefresh, &inst.LastError, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	inst.ExpiresAt = fromMillis(expiresAt)
	inst.CreatedAt = fromMillis(createdAt)
	inst.UpdatedAt = fromMillis(updatedAt)
	inst.TokenStatus = TokenStatus(status)
	if scopes != "" {
		inst.Scopes = strings.Fields(scopes)
	}
	if lastRefresh.Valid {
		t := fromMillis(lastRefresh.Int64)
		inst.LastRefresh = &t
	}
	return s.secrets.open(&inst)
}

func (s *SQLStore) values(inst *Installation) ([]interface{}, error) {
	sealed, err := s.secrets.seal(inst)
	if err != nil {
		return nil, err
	}
	var lastRefresh sql.NullInt64
	if sealed.LastRefresh != nil {
		lastRefresh = sql.NullInt64{Int64: sealed.LastRefresh.UnixMilli(), Valid: true}
	}
	return []interface{}{
		sealed.ID, sealed.AccessToken, sealed.RefreshToken, sealed.TokenType, toMillis(sealed.ExpiresAt),
		sealed.ScopeString(), sealed.LocationID, sealed.CompanyID, sealed.UserID, sealed.AuthClass,
		sealed.UserType, string(sealed.TokenStatus), lastRefresh, sealed.LastError,
		toMillis(sealed.CreatedAt), toMillis(sealed.UpdatedAt),
	}, nil
}

func (s *SQLStore) Create(ctx context.Context, inst *Installation) (string, error) {
	c, err := prepareCreate(inst, s.now())
	if err != nil {
		return "", err
	}
	args, err := s.values(c)
	if err != nil {
		return "", err
	}

	query := s.rebind(`INSERT INTO installations (` + installationColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		if s.isDuplicate(err) {
			return "", duplicateError(c.ID)
		}
		return "", errors.ConnectionError("failed to insert installation", err)
	}
	return c.ID, nil
}

func (s *SQLStore) isDuplicate(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

func (s *SQLStore) Get(ctx context.Context, id string) (*Installation, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+installationColumns+` FROM installations WHERE id = ?`), id)
	inst, err := s.scan(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.InstallationNotFound(id)
	}
	if err != nil {
		if _, ok := errors.As(err); ok {
			return nil, err
		}
		return nil, errors.ConnectionError("failed to load installation", err)
	}
	return inst, nil
}

func (s *SQLStore) Update(ctx context.Context, id string, mutate func(*Installation) error) (*Installation, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.ConnectionError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	query := `SELECT ` + installationColumns + ` FROM installations WHERE id = ?`
	if s.dialect == DialectPostgres {
		query += ` FOR UPDATE`
	}

	current, err := s.scan(tx.QueryRowContext(ctx, s.rebind(query), id))
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.InstallationNotFound(id)
	}
	if err != nil {
		if _, ok := errors.As(err); ok {
			return nil, err
		}
		return nil, errors.ConnectionError("failed to load installation", err)
	}

	if err := mutate(current); err != nil {
		return nil, err
	}
	current.ID = id

	args, err := s.values(current)
	if err != nil {
		return nil, err
	}
	update := s.rebind(`UPDATE installations SET access_token = ?, refresh_token = ?, token_type = ?,
		expires_at = ?, scopes = ?, location_id = ?, company_id = ?, user_id = ?, auth_class = ?,
		user_type = ?, token_status = ?, last_refresh = ?, last_error = ?, created_at = ?, updated_at = ?
		WHERE id = ?`)
	if _, err := tx.ExecContext(ctx, update, append(args[1:], id)...); err != nil {
		return nil, errors.ConnectionError("failed to update installation", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.ConnectionError("failed to commit installation update", err)
	}
	return current, nil
}

func (s *SQLStore) List(ctx context.Context, filter Filter) ([]*Installation, error) {
	now := filter.now()
	var where []string
	var args []interface{}

	if filter.Expired {
		where = append(where, "expires_at <= ?")
		args = append(args, toMillis(now))
	}
	if filter.ExpiringWithin > 0 {
		where = append(where, "expires_at > ?", "expires_at <= ?")
		args = append(args, toMillis(now), toMillis(now.Add(filter.ExpiringWithin)))
	}
	if !filter.UpdatedBefore.IsZero() {
		where = append(where, "updated_at < ?")
		args = append(args, toMillis(filter.UpdatedBefore))
	}
	if len(filter.Statuses) > 0 {
		marks := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			marks[i] = "?"
			args = append(args, string(status))
		}
		where = append(where, "token_status IN ("+strings.Join(marks, ", ")+")")
	}

	query := `SELECT ` + installationColumns + ` FROM installations`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY expires_at ASC, id ASC`
	if filter.Limit > 0 {
		query += ` LIMIT ` + strconv.Itoa(filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, errors.ConnectionError("failed to list installations", err)
	}
	defer rows.Close()

	result := []*Installation{}
	for rows.Next() {
		inst, err := s.scan(rows)
		if err != nil {
			return nil, errors.InternalError("failed to read installation row", err)
		}
		result = append(result, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.ConnectionError("failed to list installations", err)
	}
	return result, nil
}

func (s *SQLStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM installations WHERE id = ?`), id)
	if err != nil {
		return errors.ConnectionError("failed to delete installation", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.InstallationNotFound(id)
	}
	return nil
}

func (s *SQLStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

var _ Store = (*SQLStore)(nil)
