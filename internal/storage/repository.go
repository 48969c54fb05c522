package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"halya/internal/core"
	"halya/internal/store"
)

// ErrReadOnly is returned when a write is attempted on the hosted database.
var ErrReadOnly = errors.New("repository is read only")

type dialect struct {
	name        string
	placeholder func(n int) string
}

var (
	dialectSQLite   = dialect{name: "sqlite", placeholder: func(int) string { return "?" }}
	dialectPostgres = dialect{name: "postgres", placeholder: func(n int) string { return "$" + strconv.Itoa(n) }}
)

// Repository reads residents and payments over database/sql. The same
// queries serve the local SQLite mirror and the hosted Postgres database.
type Repository struct {
	db      *sql.DB
	dialect dialect
	schema  uint
}

var _ store.Store = (*Repository)(nil)

// NewSQLiteRepository opens (and migrates) a local SQLite mirror.
func NewSQLiteRepository(dbPath string) (*Repository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db, dialect: dialectSQLite, schema: version}, nil
}

// NewPostgresRepository connects to the hosted Postgres database. The
// schema is owned by the hosted project, so no migrations run here.
func NewPostgresRepository(ctx context.Context, dsn string) (*Repository, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("postgres dsn is empty: %w", store.ErrNotConfigured)
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres database: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Repository{db: db, dialect: dialectPostgres}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SchemaVersion is the migration version of a SQLite mirror; zero for the
// hosted database, whose schema is not managed here.
func (r *Repository) SchemaVersion() uint {
	return r.schema
}

// Dialect returns "sqlite" or "postgres".
func (r *Repository) Dialect() string {
	return r.dialect.name
}

func (r *Repository) AlleyValues(ctx context.Context) ([]string, error) {
	query, args := buildSelect(store.AlleysQuery(), r.dialect)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list alleys: %w", err)
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var alley sql.NullString
		if err := rows.Scan(&alley); err != nil {
			return nil, fmt.Errorf("scan alley: %w", err)
		}
		if alley.Valid {
			out = append(out, alley.String)
		}
	}
	return out, rows.Err()
}

func (r *Repository) ResidentsByAlley(ctx context.Context, alley string) ([]core.Resident, error) {
	out, err := r.queryResidents(ctx, store.ResidentsByAlleyQuery(alley))
	if err != nil {
		return nil, fmt.Errorf("list residents of alley %s: %w", alley, err)
	}
	return out, nil
}

func (r *Repository) Resident(ctx context.Context, residentID string) (core.Resident, error) {
	out, err := r.queryResidents(ctx, store.ResidentQuery(residentID))
	if err != nil {
		return core.Resident{}, fmt.Errorf("get resident %s: %w", residentID, err)
	}
	if len(out) == 0 {
		return core.Resident{}, core.ErrResidentNotFound
	}
	return out[0], nil
}

func (r *Repository) PaymentsByResident(ctx context.Context, residentID string) ([]core.Payment, error) {
	query, args := buildSelect(store.PaymentsByResidentQuery(residentID), r.dialect)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list payments of %s: %w", residentID, err)
	}
	defer rows.Close()

	out := make([]core.Payment, 0)
	for rows.Next() {
		var (
			p         core.Payment
			amount    decimal.Decimal
			year      sql.NullInt64
			date      sql.NullString
			sheetName sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.ResidentID, &p.Description, &amount, &year, &date, &sheetName); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		p.Amount = amount
		p.SheetName = sheetName.String
		if year.Valid {
			y := int(year.Int64)
			p.Year = &y
		}
		if date.Valid && date.String != "" {
			d, err := core.ParseDate(date.String)
			if err != nil {
				return nil, fmt.Errorf("payment %d: %w", p.ID, err)
			}
			p.PaymentDate = &d
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repository) queryResidents(ctx context.Context, q store.Query) ([]core.Resident, error) {
	query, args := buildSelect(q, r.dialect)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]core.Resident, 0)
	for rows.Next() {
		var (
			res       core.Resident
			name      sql.NullString
			sheetName sql.NullString
		)
		if err := rows.Scan(&res.ResidentID, &name, &res.Alley, &res.HouseNumber, &sheetName); err != nil {
			return nil, fmt.Errorf("scan resident: %w", err)
		}
		res.ResidentName = name.String
		res.SheetName = sheetName.String
		out = append(out, res)
	}
	return out, rows.Err()
}

// ImportSnapshot replaces the contents of the local SQLite mirror with
// the given residents and payments in one transaction.
func (r *Repository) ImportSnapshot(ctx context.Context, residents []core.Resident, payments []core.Payment) error {
	if r.dialect.name != dialectSQLite.name {
		return ErrReadOnly
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM payments`); err != nil {
		return fmt.Errorf("clear payments: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM residents`); err != nil {
		return fmt.Errorf("clear residents: %w", err)
	}

	for _, res := range residents {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO residents (resident_id, alley, house_number, resident_name, sheet_name) VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(resident_id) DO NOTHING`,
			res.ResidentID, res.Alley, res.HouseNumber, res.ResidentName, res.SheetName); err != nil {
			return fmt.Errorf("insert resident %s: %w", res.ResidentID, err)
		}
	}
	for _, p := range payments {
		var year, date any
		if p.Year != nil {
			year = *p.Year
		}
		if p.PaymentDate != nil && !p.PaymentDate.IsZero() {
			date = p.PaymentDate.String()
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO payments (resident_id, payment_date, description, amount, year, sheet_name) VALUES (?, ?, ?, ?, ?, ?)`,
			p.ResidentID, date, p.Description, p.Amount.StringFixed(2), year, p.SheetName); err != nil {
			return fmt.Errorf("insert payment for %s: %w", p.ResidentID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	slog.InfoContext(ctx, "Snapshot imported into SQLite",
		"residents", len(residents),
		"payments", len(payments))
	return nil
}

// buildSelect renders q as a SELECT statement for the dialect.
func buildSelect(q store.Query, d dialect) (string, []any) {
	var b strings.Builder
	cols := "*"
	if len(q.Columns) > 0 {
		cols = strings.Join(q.Columns, ", ")
	}
	fmt.Fprintf(&b, "SELECT %s FROM %s", cols, q.Table)

	args := make([]any, 0, len(q.Filters))
	for i, f := range q.Filters {
		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		args = append(args, f.Value)
		fmt.Fprintf(&b, "%s = %s", f.Column, d.placeholder(len(args)))
	}

	for i, o := range q.Orders {
		if i == 0 {
			b.WriteString(" ORDER BY ")
		} else {
			b.WriteString(", ")
		}
		b.WriteString(o.Column)
		if o.Desc {
			b.WriteString(" DESC")
		} else {
			b.WriteString(" ASC")
		}
		if o.NullsLast {
			b.WriteString(" NULLS LAST")
		}
	}

	if q.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", q.Limit)
	}
	return b.String(), args
}
