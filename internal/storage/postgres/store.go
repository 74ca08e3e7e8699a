package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hongminglow/syncink-attendance/internal/models"
	"github.com/hongminglow/syncink-attendance/internal/storage"
)

// Ensure Store satisfies the storage.Store interface at compile time.
var _ storage.Store = (*Store)(nil)

// Store provides Postgres-backed persistence for users, entries, requests, and settings.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store and runs migrations.
func NewStore(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

// Close releases database resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT UNIQUE NOT NULL,
			name TEXT NOT NULL,
			role TEXT NOT NULL CHECK (role IN ('admin', 'manager', 'employee')),
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			last_login TIMESTAMPTZ
		);`,
		`CREATE TABLE IF NOT EXISTS work_entries (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			date DATE NOT NULL,
			attendance TEXT NOT NULL CHECK (attendance IN ('Present', 'Absent', 'Auto-Absent')),
			seconds_done BIGINT,
			remarks TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			submitted_at TIMESTAMPTZ NOT NULL,
			is_late BOOLEAN NOT NULL DEFAULT FALSE,
			request_id TEXT,
			CHECK ((attendance = 'Present') = (seconds_done IS NOT NULL)),
			CHECK (attendance = 'Present' OR remarks IS NULL)
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS work_entries_user_date_idx ON work_entries (user_id, date);`,
		`CREATE INDEX IF NOT EXISTS work_entries_date_idx ON work_entries (date);`,
		`CREATE TABLE IF NOT EXISTS retroactive_requests (
			id TEXT PRIMARY KEY,
			entry_id TEXT NOT NULL REFERENCES work_entries(id) ON DELETE CASCADE,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			requested_by TEXT NOT NULL,
			request_date TIMESTAMPTZ NOT NULL,
			reason TEXT NOT NULL CHECK (btrim(reason) <> ''),
			original_attendance TEXT NOT NULL,
			requested_attendance TEXT NOT NULL CHECK (requested_attendance IN ('Present', 'Absent')),
			requested_seconds_done BIGINT,
			requested_remarks TEXT,
			status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'rejected')),
			reviewed_by TEXT NOT NULL DEFAULT '',
			reviewed_at TIMESTAMPTZ,
			review_comments TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS retroactive_requests_pending_entry_idx ON retroactive_requests (entry_id) WHERE status = 'pending';`,
		`CREATE INDEX IF NOT EXISTS retroactive_requests_status_idx ON retroactive_requests (status);`,
		`CREATE INDEX IF NOT EXISTS retroactive_requests_user_idx ON retroactive_requests (user_id);`,
		`CREATE TABLE IF NOT EXISTS attendance_settings (
			id SMALLINT PRIMARY KEY CHECK (id = 1),
			daily_deadline TEXT NOT NULL,
			time_zone TEXT NOT NULL,
			allow_retroactive BOOLEAN NOT NULL,
			retroactive_requires_approval BOOLEAN NOT NULL,
			auto_absent_after_deadline BOOLEAN NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}
	return nil
}

const userColumns = `id, email, name, role, password_hash, created_at, last_login`

// CreateUser inserts a new user row.
func (s *Store) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	const query = `
		INSERT INTO users (id, email, name, role, password_hash, created_at, last_login)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + userColumns
	row := s.pool.QueryRow(ctx, query, user.ID, user.Email, user.Name, string(user.Role), user.PasswordHash, user.CreatedAt, user.LastLogin)
	created, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, storage.ErrAlreadyExists
		}
		return models.User{}, err
	}
	return created, nil
}

// UpdateUser overwrites the mutable columns of a user row.
func (s *Store) UpdateUser(ctx context.Context, user models.User) (models.User, error) {
	const query = `
		UPDATE users SET email = $2, name = $3, role = $4, password_hash = $5, last_login = $6
		WHERE id = $1
		RETURNING ` + userColumns
	row := s.pool.QueryRow(ctx, query, user.ID, user.Email, user.Name, string(user.Role), user.PasswordHash, user.LastLogin)
	updated, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, storage.ErrAlreadyExists
		}
		return models.User{}, err
	}
	return updated, nil
}

// FindUserByID fetches a user by id.
func (s *Store) FindUserByID(ctx context.Context, id string) (models.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// FindUserByEmail fetches a user by email address.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (models.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// ListUsers returns every user ordered by creation time.
func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, user)
	}
	return out, rows.Err()
}

// DeleteUser removes the user and everything referencing them in one transaction.
func (s *Store) DeleteUser(ctx context.Context, id string) (storage.CascadeResult, error) {
	var res storage.CascadeResult
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			DELETE FROM retroactive_requests
			WHERE user_id = $1 OR entry_id IN (SELECT id FROM work_entries WHERE user_id = $1)`, id)
		if err != nil {
			return fmt.Errorf("delete requests: %w", err)
		}
		res.Requests = int(tag.RowsAffected())

		tag, err = tx.Exec(ctx, `DELETE FROM work_entries WHERE user_id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete entries: %w", err)
		}
		res.Entries = int(tag.RowsAffected())

		tag, err = tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return storage.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return storage.CascadeResult{}, err
	}
	return res, nil
}

const entryColumns = `id, user_id, to_char(date, 'YYYY-MM-DD'), attendance, seconds_done, remarks, created_at, submitted_at, is_late, COALESCE(request_id, '')`

// CreateEntry inserts a work entry; the (user_id, date) index rejects duplicates.
func (s *Store) CreateEntry(ctx context.Context, entry models.WorkEntry) (models.WorkEntry, error) {
	kind, seconds, remarks := entry.Report.Fields()
	query := `
		INSERT INTO work_entries (id, user_id, date, attendance, seconds_done, remarks, created_at, submitted_at, is_late, request_id)
		VALUES ($1, $2, $3::date, $4, $5, $6, $7, $8, $9, NULLIF($10, ''))
		RETURNING ` + entryColumns
	row := s.pool.QueryRow(ctx, query, entry.ID, entry.UserID, entry.Date, string(kind), seconds, remarks,
		entry.CreatedAt, entry.SubmittedAt, entry.IsLate, entry.RequestID)
	created, err := scanEntry(row)
	if err != nil {
		if isUniqueViolation(err) {
			return models.WorkEntry{}, storage.ErrAlreadyExists
		}
		return models.WorkEntry{}, err
	}
	return created, nil
}

// FindEntryByID fetches an entry by id.
func (s *Store) FindEntryByID(ctx context.Context, id string) (models.WorkEntry, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+entryColumns+` FROM work_entries WHERE id = $1`, id)
	return scanEntry(row)
}

// FindEntryByUserDate fetches the entry a user recorded for a date.
func (s *Store) FindEntryByUserDate(ctx context.Context, userID, date string) (models.WorkEntry, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+entryColumns+` FROM work_entries WHERE user_id = $1 AND date = $2::date`, userID, date)
	return scanEntry(row)
}

// ListEntries returns matching entries ordered by date then creation time.
func (s *Store) ListEntries(ctx context.Context, filter storage.EntryFilter) ([]models.WorkEntry, error) {
	var (
		conds []string
		args  []any
	)
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.From != "" {
		args = append(args, filter.From)
		conds = append(conds, fmt.Sprintf("date >= $%d::date", len(args)))
	}
	if filter.To != "" {
		args = append(args, filter.To)
		conds = append(conds, fmt.Sprintf("date <= $%d::date", len(args)))
	}
	query := `SELECT ` + entryColumns + ` FROM work_entries` + where(conds) + ` ORDER BY date, created_at, id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var out []models.WorkEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

const requestColumns = `id, entry_id, user_id, requested_by, request_date, reason, original_attendance,
	requested_attendance, requested_seconds_done, requested_remarks, status, reviewed_by, reviewed_at, review_comments`

// CreateRequest inserts a request; the partial pending index rejects a second open request.
func (s *Store) CreateRequest(ctx context.Context, req models.RetroactiveRequest) (models.RetroactiveRequest, error) {
	kind, seconds, remarks := req.Requested.Fields()
	query := `
		INSERT INTO retroactive_requests (id, entry_id, user_id, requested_by, request_date, reason, original_attendance,
			requested_attendance, requested_seconds_done, requested_remarks, status, reviewed_by, reviewed_at, review_comments)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING ` + requestColumns
	row := s.pool.QueryRow(ctx, query, req.ID, req.EntryID, req.UserID, req.RequestedBy, req.RequestDate, req.Reason,
		string(req.OriginalAttendance), string(kind), seconds, remarks, string(req.Status), req.ReviewedBy, req.ReviewedAt, req.ReviewComments)
	created, err := scanRequest(row)
	if err != nil {
		if isUniqueViolation(err) {
			return models.RetroactiveRequest{}, storage.ErrAlreadyExists
		}
		return models.RetroactiveRequest{}, err
	}
	return created, nil
}

// FindRequestByID fetches a request by id.
func (s *Store) FindRequestByID(ctx context.Context, id string) (models.RetroactiveRequest, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+requestColumns+` FROM retroactive_requests WHERE id = $1`, id)
	return scanRequest(row)
}

// ListRequests returns matching requests ordered by request date.
func (s *Store) ListRequests(ctx context.Context, filter storage.RequestFilter) ([]models.RetroactiveRequest, error) {
	var (
		conds []string
		args  []any
	)
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.EntryID != "" {
		args = append(args, filter.EntryID)
		conds = append(conds, fmt.Sprintf("entry_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	query := `SELECT ` + requestColumns + ` FROM retroactive_requests` + where(conds) + ` ORDER BY request_date, id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	var out []models.RetroactiveRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

// SaveReview finalizes a pending request and applies its correction in one transaction.
func (s *Store) SaveReview(ctx context.Context, req models.RetroactiveRequest, entry *models.WorkEntry) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE retroactive_requests
			SET status = $2, reviewed_by = $3, reviewed_at = $4, review_comments = $5
			WHERE id = $1 AND status = 'pending'`,
			req.ID, string(req.Status), req.ReviewedBy, req.ReviewedAt, req.ReviewComments)
		if err != nil {
			return fmt.Errorf("update request: %w", err)
		}
		if tag.RowsAffected() == 0 {
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM retroactive_requests WHERE id = $1)`, req.ID).Scan(&exists); err != nil {
				return fmt.Errorf("check request: %w", err)
			}
			if !exists {
				return storage.ErrNotFound
			}
			return storage.ErrConflict
		}
		if entry == nil {
			return nil
		}

		kind, seconds, remarks := entry.Report.Fields()
		tag, err = tx.Exec(ctx, `
			UPDATE work_entries
			SET attendance = $2, seconds_done = $3, remarks = $4, request_id = NULLIF($5, '')
			WHERE id = $1`,
			entry.ID, string(kind), seconds, remarks, entry.RequestID)
		if err != nil {
			return fmt.Errorf("update entry: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return storage.ErrNotFound
		}
		return nil
	})
}

// CreateAppliedRequest inserts a reviewed request and applies it to its entry
// in one transaction.
func (s *Store) CreateAppliedRequest(ctx context.Context, req models.RetroactiveRequest, entry models.WorkEntry) (models.RetroactiveRequest, error) {
	var created models.RetroactiveRequest
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var pending bool
		if err := tx.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM retroactive_requests WHERE entry_id = $1 AND status = 'pending')`,
			req.EntryID).Scan(&pending); err != nil {
			return fmt.Errorf("check pending: %w", err)
		}
		if pending {
			return storage.ErrAlreadyExists
		}

		kind, seconds, remarks := req.Requested.Fields()
		row := tx.QueryRow(ctx, `
			INSERT INTO retroactive_requests (id, entry_id, user_id, requested_by, request_date, reason, original_attendance,
				requested_attendance, requested_seconds_done, requested_remarks, status, reviewed_by, reviewed_at, review_comments)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			RETURNING `+requestColumns,
			req.ID, req.EntryID, req.UserID, req.RequestedBy, req.RequestDate, req.Reason,
			string(req.OriginalAttendance), string(kind), seconds, remarks, string(req.Status), req.ReviewedBy, req.ReviewedAt, req.ReviewComments)
		var err error
		created, err = scanRequest(row)
		if err != nil {
			if isUniqueViolation(err) {
				return storage.ErrAlreadyExists
			}
			if isForeignKeyViolation(err) {
				return storage.ErrNotFound
			}
			return fmt.Errorf("insert request: %w", err)
		}

		kind, seconds, remarks = entry.Report.Fields()
		tag, err := tx.Exec(ctx, `
			UPDATE work_entries
			SET attendance = $2, seconds_done = $3, remarks = $4, request_id = NULLIF($5, '')
			WHERE id = $1`,
			entry.ID, string(kind), seconds, remarks, entry.RequestID)
		if err != nil {
			return fmt.Errorf("update entry: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return storage.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return models.RetroactiveRequest{}, err
	}
	return created, nil
}

// GetSettings returns the single settings row.
func (s *Store) GetSettings(ctx context.Context) (models.AttendanceSettings, error) {
	var out models.AttendanceSettings
	err := s.pool.QueryRow(ctx, `
		SELECT daily_deadline, time_zone, allow_retroactive, retroactive_requires_approval, auto_absent_after_deadline
		FROM attendance_settings WHERE id = 1`).
		Scan(&out.DailyDeadline, &out.TimeZone, &out.AllowRetroactive, &out.RetroactiveRequiresApproval, &out.AutoAbsentAfterDeadline)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.AttendanceSettings{}, storage.ErrNotFound
		}
		return models.AttendanceSettings{}, err
	}
	return out, nil
}

// PutSettings upserts the single settings row.
func (s *Store) PutSettings(ctx context.Context, settings models.AttendanceSettings) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO attendance_settings (id, daily_deadline, time_zone, allow_retroactive, retroactive_requires_approval, auto_absent_after_deadline)
		VALUES (1, $1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			daily_deadline = EXCLUDED.daily_deadline,
			time_zone = EXCLUDED.time_zone,
			allow_retroactive = EXCLUDED.allow_retroactive,
			retroactive_requires_approval = EXCLUDED.retroactive_requires_approval,
			auto_absent_after_deadline = EXCLUDED.auto_absent_after_deadline`,
		settings.DailyDeadline, settings.TimeZone, settings.AllowRetroactive, settings.RetroactiveRequiresApproval, settings.AutoAbsentAfterDeadline)
	if err != nil {
		return fmt.Errorf("put settings: %w", err)
	}
	return nil
}

func where(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	var role string
	if err := row.Scan(&user.ID, &user.Email, &user.Name, &role, &user.PasswordHash, &user.CreatedAt, &user.LastLogin); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrNotFound
		}
		return models.User{}, err
	}
	user.Role = models.Role(role)
	return user, nil
}

func scanEntry(row pgx.Row) (models.WorkEntry, error) {
	var (
		entry   models.WorkEntry
		kind    string
		seconds *int64
		remarks *string
	)
	if err := row.Scan(&entry.ID, &entry.UserID, &entry.Date, &kind, &seconds, &remarks,
		&entry.CreatedAt, &entry.SubmittedAt, &entry.IsLate, &entry.RequestID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.WorkEntry{}, storage.ErrNotFound
		}
		return models.WorkEntry{}, err
	}
	report, err := models.NewReport(models.Attendance(kind), seconds, remarks)
	if err != nil {
		return models.WorkEntry{}, fmt.Errorf("entry %s: %w", entry.ID, err)
	}
	entry.Report = report
	return entry, nil
}

func scanRequest(row pgx.Row) (models.RetroactiveRequest, error) {
	var (
		req      models.RetroactiveRequest
		original string
		kind     string
		status   string
		seconds  *int64
		remarks  *string
	)
	if err := row.Scan(&req.ID, &req.EntryID, &req.UserID, &req.RequestedBy, &req.RequestDate, &req.Reason, &original,
		&kind, &seconds, &remarks, &status, &req.ReviewedBy, &req.ReviewedAt, &req.ReviewComments); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.RetroactiveRequest{}, storage.ErrNotFound
		}
		return models.RetroactiveRequest{}, err
	}
	requested, err := models.NewReport(models.Attendance(kind), seconds, remarks)
	if err != nil {
		return models.RetroactiveRequest{}, fmt.Errorf("request %s: %w", req.ID, err)
	}
	req.OriginalAttendance = models.Attendance(original)
	req.Requested = requested
	req.Status = models.RequestStatus(status)
	return req, nil
}
