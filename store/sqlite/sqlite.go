/*
Package sqlite provides the SQLite-backed implementation of timeoff.Store
and compoff.Store.

PURPOSE:
  One relational database holds every table of the leave engine. All
  mutating workflows run through WithTx (or WithCompOffTx) so the checks
  they perform and the writes that follow commit atomically.

KEY TABLES:
  departments           Master data, name unique (case-insensitive)
  employees             Master data, reporting tree, last_accrual_month
  manager_departments   (manager, department) pairs a manager oversees
  policy_settings       One row per year
  leave_balances        (employee, year, leave_type) unique, mutable
  leave_transactions    Wallet trail, append-only, idempotency_key unique
  leave_requests        Lifecycle + paid/LWP split
  leave_approvals       Decision history
  compoff_requests      Earn requests, (employee, worked_date) unique
  compoff_ledger        Append-only CREDIT/DEBIT/REVERSAL entries
  holidays              (year, date) unique
  restricted_holidays   (year, date) unique
  company_events        (year, date) unique
  hr_policy_actions     HR action log
  wfh_requests          (employee, date) unique
  attendance_sessions   One OPEN session per (employee, work_date)
  audit_log             Who did what, when

CONCURRENCY:
  Opened with _txlock=immediate, WAL and a busy timeout; the pool is capped
  at one connection. A write transaction takes the database write lock at
  BEGIN, so two approvals for the same employee serialise and the second
  re-reads the balance the first one committed. An in-process mutex keeps
  writers of this process ordered without hitting the busy timeout.

  Inside WithTx, fn must use only the store it is handed.

VALUES:
  Days are decimal strings, dates "YYYY-MM-DD", timestamps RFC 3339 (UTC).

USAGE:
  store, err := sqlite.New("./data/leave.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - timeoff/store.go, compoff/types.go: Interface definitions
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/warp/leave-engine/compoff"
	"github.com/warp/leave-engine/timeoff"
)

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// repo implements every read and write against a queryer.
type repo struct {
	q queryer
}

// Store is the database handle.
type Store struct {
	*repo
	db *sql.DB
	mu sync.Mutex
}

var (
	_ timeoff.Store = (*Store)(nil)
	_ compoff.Store = (*Store)(nil)
)

// Option tunes New.
type Option func(*options)

type options struct {
	busyTimeoutMs int
}

// WithBusyTimeout sets how long a writer waits for the database lock.
func WithBusyTimeout(ms int) Option {
	return func(o *options) { o.busyTimeoutMs = ms }
}

// New opens (and migrates) the database at path. Use ":memory:" for tests.
func New(path string, opts ...Option) (*Store, error) {
	o := options{busyTimeoutMs: 5000}
	for _, opt := range opts {
		opt(&o)
	}
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_txlock=immediate&_busy_timeout=%d", path, o.busyTimeoutMs)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	// one connection: keeps ":memory:" alive and serialises writers
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{repo: &repo{q: db}, db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "migrate database")
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func (s *Store) withTx(ctx context.Context, fn func(*txStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{repo: &repo{q: sqlTx}}); err != nil {
		return err
	}
	return errors.Wrap(sqlTx.Commit(), "commit transaction")
}

// WithTx runs fn in one immediate transaction.
func (s *Store) WithTx(ctx context.Context, fn func(timeoff.Store) error) error {
	return s.withTx(ctx, func(ts *txStore) error { return fn(ts) })
}

// WithCompOffTx is WithTx for comp-off workflows.
func (s *Store) WithCompOffTx(ctx context.Context, fn func(compoff.Store) error) error {
	return s.withTx(ctx, func(ts *txStore) error { return fn(ts) })
}

// txStore is the store handed to fn; nested transactions join the outer one.
type txStore struct {
	*repo
}

func (ts *txStore) WithTx(_ context.Context, fn func(timeoff.Store) error) error {
	return fn(ts)
}

func (ts *txStore) WithCompOffTx(_ context.Context, fn func(compoff.Store) error) error {
	return fn(ts)
}

// =============================================================================
// SCHEMA
// =============================================================================

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS departments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL COLLATE NOCASE UNIQUE,
		active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS employees (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		emp_code TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL,
		department_id INTEGER REFERENCES departments(id),
		join_date TEXT NOT NULL,
		reporting_manager_id INTEGER REFERENCES employees(id),
		active INTEGER NOT NULL DEFAULT 1,
		last_accrual_month TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_employees_manager ON employees(reporting_manager_id);
	CREATE INDEX IF NOT EXISTS idx_employees_department ON employees(department_id);

	CREATE TABLE IF NOT EXISTS manager_departments (
		manager_id INTEGER NOT NULL REFERENCES employees(id),
		department_id INTEGER NOT NULL REFERENCES departments(id),
		PRIMARY KEY (manager_id, department_id)
	);

	CREATE TABLE IF NOT EXISTS policy_settings (
		year INTEGER PRIMARY KEY,
		annual_pl TEXT NOT NULL,
		annual_cl TEXT NOT NULL,
		annual_sl TEXT NOT NULL,
		annual_rh TEXT NOT NULL,
		public_holiday_total INTEGER NOT NULL,
		monthly_credit_pl TEXT NOT NULL,
		monthly_credit_cl TEXT NOT NULL,
		monthly_credit_sl TEXT NOT NULL,
		pl_eligibility_months INTEGER NOT NULL,
		backdated_max_days INTEGER NOT NULL,
		carry_forward_pl_max TEXT NOT NULL,
		wfh_max_days INTEGER NOT NULL,
		wfh_day_value TEXT NOT NULL,
		cl_pl_notice_days INTEGER NOT NULL,
		cl_pl_monthly_cap TEXT NOT NULL,
		enforce_monthly_cap INTEGER NOT NULL,
		enforce_notice_days INTEGER NOT NULL,
		enforce_sick_intimation INTEGER NOT NULL,
		sick_intimation_min_minutes INTEGER NOT NULL,
		weekly_off_day INTEGER NOT NULL,
		sandwich_enabled INTEGER NOT NULL,
		sandwich_include_weekly_off INTEGER NOT NULL,
		sandwich_include_holidays INTEGER NOT NULL,
		sandwich_include_rh INTEGER NOT NULL,
		treat_event_as_non_working_for_sandwich INTEGER NOT NULL,
		block_leave_on_company_events INTEGER NOT NULL,
		allow_hr_override INTEGER NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS leave_balances (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		employee_id INTEGER NOT NULL REFERENCES employees(id),
		year INTEGER NOT NULL,
		leave_type TEXT NOT NULL,
		opening TEXT NOT NULL,
		accrued TEXT NOT NULL,
		used TEXT NOT NULL,
		remaining TEXT NOT NULL,
		carry_forward TEXT NOT NULL,
		rh_used TEXT NOT NULL,
		pl_carried_forward TEXT NOT NULL,
		pl_encash_days TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE (employee_id, year, leave_type)
	);

	CREATE TABLE IF NOT EXISTS leave_transactions (
		id TEXT PRIMARY KEY,
		employee_id INTEGER NOT NULL REFERENCES employees(id),
		leave_request_id INTEGER,
		year INTEGER NOT NULL,
		leave_type TEXT NOT NULL,
		delta_days TEXT NOT NULL,
		action TEXT NOT NULL,
		remarks TEXT NOT NULL DEFAULT '',
		actor_id INTEGER NOT NULL DEFAULT 0,
		idempotency_key TEXT UNIQUE,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_leave_transactions_emp_year ON leave_transactions(employee_id, year);

	CREATE TABLE IF NOT EXISTS leave_requests (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		employee_id INTEGER NOT NULL REFERENCES employees(id),
		leave_type TEXT NOT NULL,
		original_leave_type TEXT NOT NULL DEFAULT '',
		from_date TEXT NOT NULL,
		to_date TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		computed_days TEXT NOT NULL,
		computed_days_by_month TEXT NOT NULL DEFAULT '{}',
		paid_days TEXT NOT NULL DEFAULT '0',
		lwp_days TEXT NOT NULL DEFAULT '0',
		override_policy INTEGER NOT NULL DEFAULT 0,
		override_remark TEXT NOT NULL DEFAULT '',
		auto_converted_to_lwp INTEGER NOT NULL DEFAULT 0,
		auto_lwp_reason TEXT NOT NULL DEFAULT '',
		applied_by INTEGER NOT NULL DEFAULT 0,
		approved_by INTEGER NOT NULL DEFAULT 0,
		approved_at TEXT,
		approved_remark TEXT NOT NULL DEFAULT '',
		rejected_by INTEGER NOT NULL DEFAULT 0,
		rejected_at TEXT,
		rejected_remark TEXT NOT NULL DEFAULT '',
		cancelled_by INTEGER NOT NULL DEFAULT 0,
		cancelled_at TEXT,
		cancel_remark TEXT NOT NULL DEFAULT '',
		recredited INTEGER NOT NULL DEFAULT 0,
		applied_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_leave_requests_emp_dates ON leave_requests(employee_id, from_date, to_date);
	CREATE INDEX IF NOT EXISTS idx_leave_requests_status ON leave_requests(status);

	CREATE TABLE IF NOT EXISTS leave_approvals (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		leave_request_id INTEGER NOT NULL REFERENCES leave_requests(id),
		action TEXT NOT NULL,
		actor_id INTEGER NOT NULL,
		remarks TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS compoff_requests (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		employee_id INTEGER NOT NULL REFERENCES employees(id),
		worked_date TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		decided_by INTEGER NOT NULL DEFAULT 0,
		decided_at TEXT,
		remarks TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		UNIQUE (employee_id, worked_date)
	);

	CREATE TABLE IF NOT EXISTS compoff_ledger (
		id TEXT PRIMARY KEY,
		employee_id INTEGER NOT NULL REFERENCES employees(id),
		kind TEXT NOT NULL,
		days TEXT NOT NULL,
		worked_date TEXT,
		expires_on TEXT,
		leave_request_id INTEGER,
		reference_id TEXT NOT NULL DEFAULT '',
		idempotency_key TEXT UNIQUE,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_compoff_ledger_emp ON compoff_ledger(employee_id, created_at);

	CREATE TABLE IF NOT EXISTS holidays (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		year INTEGER NOT NULL,
		date TEXT NOT NULL,
		name TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		UNIQUE (year, date)
	);
	CREATE TABLE IF NOT EXISTS restricted_holidays (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		year INTEGER NOT NULL,
		date TEXT NOT NULL,
		name TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		UNIQUE (year, date)
	);
	CREATE TABLE IF NOT EXISTS company_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		year INTEGER NOT NULL,
		date TEXT NOT NULL,
		name TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		UNIQUE (year, date)
	);

	CREATE TABLE IF NOT EXISTS hr_policy_actions (
		id TEXT PRIMARY KEY,
		employee_id INTEGER NOT NULL REFERENCES employees(id),
		action_type TEXT NOT NULL,
		reference_entity TEXT NOT NULL DEFAULT '',
		reference_id TEXT NOT NULL DEFAULT '',
		meta_json TEXT NOT NULL DEFAULT '{}',
		action_by INTEGER NOT NULL,
		remarks TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_hr_policy_actions_emp ON hr_policy_actions(employee_id);

	CREATE TABLE IF NOT EXISTS wfh_requests (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		employee_id INTEGER NOT NULL REFERENCES employees(id),
		date TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		day_value TEXT NOT NULL,
		status TEXT NOT NULL,
		decided_by INTEGER NOT NULL DEFAULT 0,
		decided_at TEXT,
		remarks TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		UNIQUE (employee_id, date)
	);

	CREATE TABLE IF NOT EXISTS attendance_sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		employee_id INTEGER NOT NULL REFERENCES employees(id),
		work_date TEXT NOT NULL,
		punch_in_at TEXT,
		punch_out_at TEXT,
		status TEXT NOT NULL,
		punch_in_source TEXT NOT NULL DEFAULT '',
		punch_out_source TEXT NOT NULL DEFAULT '',
		punch_in_ip TEXT NOT NULL DEFAULT '',
		punch_out_ip TEXT NOT NULL DEFAULT '',
		punch_in_device_id TEXT NOT NULL DEFAULT '',
		punch_out_device_id TEXT NOT NULL DEFAULT '',
		punch_in_geo TEXT,
		punch_out_geo TEXT,
		remarks TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_attendance_emp_date ON attendance_sessions(employee_id, work_date);
	CREATE UNIQUE INDEX IF NOT EXISTS uq_attendance_open_session
		ON attendance_sessions(employee_id, work_date) WHERE status = 'OPEN';

	CREATE TABLE IF NOT EXISTS audit_log (
		id TEXT PRIMARY KEY,
		actor_id INTEGER NOT NULL DEFAULT 0,
		action TEXT NOT NULL,
		entity_type TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		meta_json TEXT NOT NULL DEFAULT '{}',
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_audit_log_entity ON audit_log(entity_type, entity_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Reset deletes every row. Used by the demo scenario loader.
func (s *Store) Reset(ctx context.Context) error {
	return s.withTx(ctx, func(ts *txStore) error {
		tables := []string{
			"audit_log", "attendance_sessions", "manager_departments",
			"wfh_requests", "hr_policy_actions",
			"company_events", "restricted_holidays", "holidays",
			"compoff_ledger", "compoff_requests",
			"leave_approvals", "leave_requests", "leave_transactions", "leave_balances",
			"policy_settings", "employees", "departments",
		}
		for _, t := range tables {
			if _, err := ts.q.ExecContext(ctx, "DELETE FROM "+t); err != nil {
				return errors.Wrapf(err, "reset %s", t)
			}
		}
		return nil
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// inClause returns "(?, ?, ?)" and the args for a slice.
func inClause[T any](vals []T) (string, []any) {
	marks := make([]string, len(vals))
	args := make([]any, len(vals))
	for i, v := range vals {
		marks[i] = "?"
		args[i] = v
	}
	return "(" + strings.Join(marks, ", ") + ")", args
}
