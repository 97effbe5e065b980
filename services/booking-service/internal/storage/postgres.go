package storage

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/salonmonarch/booking/libs/db"
	"github.com/salonmonarch/booking/services/booking-service/internal/model"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrations returns the SQL migrations for the Postgres backend.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

const appointmentColumns = `id::text, customer_name, customer_email, customer_phone, service,
	slot_date, slot_time, status, created_at, updated_at`

// PostgresStore persists appointments in Postgres. The partial unique index
// appointments_one_approved_per_slot enforces one approved appointment per slot.
type PostgresStore struct {
	pool *db.Pool
}

func NewPostgresStore(pool *db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Create(ctx context.Context, a model.Appointment) (model.Appointment, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO appointments
			(id, customer_name, customer_email, customer_phone, service, slot_date, slot_time, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+appointmentColumns,
		a.ID, a.CustomerName, a.CustomerEmail, a.CustomerPhone, string(a.Service),
		a.Date, a.Time, string(a.Status), a.CreatedAt, a.UpdatedAt)
	out, err := scanAppointment(row)
	if err != nil {
		return model.Appointment{}, pgError("create appointment", err)
	}
	return out, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (model.Appointment, error) {
	if !validUUID(id) {
		return model.Appointment{}, pgError("get appointment", pgx.ErrNoRows)
	}
	row := s.pool.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id)
	a, err := scanAppointment(row)
	if err != nil {
		return model.Appointment{}, pgError("get appointment", err)
	}
	return a, nil
}

func (s *PostgresStore) List(ctx context.Context, f model.Filter) ([]model.Appointment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE ($1 = '' OR status = $1)
			AND ($2 = '' OR slot_date = $2)
		ORDER BY slot_date ASC, slot_time ASC, created_at ASC, id ASC
	`, string(f.Status), f.Date)
	if err != nil {
		return nil, pgError("list appointments", err)
	}
	defer rows.Close()

	var out []model.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, pgError("list appointments", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, pgError("list appointments", err)
	}
	return out, nil
}

// Update locks the row, applies the patch and writes it back in one
// transaction. A unique violation on the approved-slot index rolls back.
func (s *PostgresStore) Update(ctx context.Context, id string, p model.Patch, now time.Time) (model.Appointment, model.Appointment, error) {
	if !validUUID(id) {
		return model.Appointment{}, model.Appointment{}, pgError("update appointment", pgx.ErrNoRows)
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return model.Appointment{}, model.Appointment{}, pgError("update appointment", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	before, err := scanAppointment(tx.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return model.Appointment{}, model.Appointment{}, pgError("update appointment", err)
	}

	after := p.Apply(before)
	after.UpdatedAt = now
	after, err = scanAppointment(tx.QueryRow(ctx, `
		UPDATE appointments
		SET customer_name = $2,
			customer_email = $3,
			customer_phone = $4,
			service = $5,
			slot_date = $6,
			slot_time = $7,
			status = $8,
			updated_at = $9
		WHERE id = $1
		RETURNING `+appointmentColumns,
		id, after.CustomerName, after.CustomerEmail, after.CustomerPhone, string(after.Service),
		after.Date, after.Time, string(after.Status), after.UpdatedAt))
	if err != nil {
		return model.Appointment{}, model.Appointment{}, pgError("update appointment", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, model.Appointment{}, pgError("update appointment", err)
	}
	return before, after, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) (model.Appointment, error) {
	if !validUUID(id) {
		return model.Appointment{}, pgError("delete appointment", pgx.ErrNoRows)
	}
	row := s.pool.QueryRow(ctx, `DELETE FROM appointments WHERE id = $1 RETURNING `+appointmentColumns, id)
	a, err := scanAppointment(row)
	if err != nil {
		return model.Appointment{}, pgError("delete appointment", err)
	}
	return a, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var (
		a       model.Appointment
		service string
		status  string
	)
	err := row.Scan(
		&a.ID,
		&a.CustomerName,
		&a.CustomerEmail,
		&a.CustomerPhone,
		&service,
		&a.Date,
		&a.Time,
		&status,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return model.Appointment{}, err
	}
	a.Service = model.Service(service)
	a.Status = model.Status(status)
	return a, nil
}

// PostgresAdminStore persists admin accounts.
type PostgresAdminStore struct {
	pool *db.Pool
}

func NewPostgresAdminStore(pool *db.Pool) *PostgresAdminStore {
	return &PostgresAdminStore{pool: pool}
}

func (s *PostgresAdminStore) CreateAdmin(ctx context.Context, a model.Admin) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO admins (id, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
	`, a.ID, a.Email, a.PasswordHash, a.CreatedAt)
	return pgError("create admin", err)
}

func (s *PostgresAdminStore) AdminByEmail(ctx context.Context, email string) (model.Admin, error) {
	return s.adminWhere(ctx, "admin by email", `email = $1`, email)
}

func (s *PostgresAdminStore) AdminByID(ctx context.Context, id string) (model.Admin, error) {
	if !validUUID(id) {
		return model.Admin{}, model.ErrAdminNotFound
	}
	return s.adminWhere(ctx, "admin by id", `id = $1`, id)
}

func (s *PostgresAdminStore) adminWhere(ctx context.Context, op, cond string, arg string) (model.Admin, error) {
	var a model.Admin
	err := s.pool.QueryRow(ctx, `SELECT id::text, email, password_hash, created_at FROM admins WHERE `+cond, arg).
		Scan(&a.ID, &a.Email, &a.PasswordHash, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Admin{}, model.ErrAdminNotFound
	}
	if err != nil {
		return model.Admin{}, pgError(op, err)
	}
	return a, nil
}

// validUUID short-circuits lookups that Postgres would reject with a cast error.
func validUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
