package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/transmeralda/fleetdocs/internal/entity"
)

var (
	// ErrDriverNotFound is returned when no driver row matches.
	ErrDriverNotFound = errors.New("driver not found")
	// ErrDuplicateDriver is returned when the identity number is taken.
	ErrDuplicateDriver = errors.New("driver with this identity number already exists")
	// ErrStaleRecord is returned when the row changed since it was read.
	ErrStaleRecord = errors.New("driver record was modified concurrently")
)

const uniqueViolation = "23505"

// DriverRepository persists driver records in the drivers table.
type DriverRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewDriverRepository(pool *pgxpool.Pool, logger *slog.Logger) *DriverRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &DriverRepository{pool: pool, logger: logger}
}

const driverColumns = `id, first_name, last_name, id_type, identity_number, email, phone,
	birth_date, gender, blood_type, address, hire_date, base_salary, contract_term,
	termination_date, work_site, permit, status, created_at, created_by, updated_at`

func (r *DriverRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Driver, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+driverColumns+` FROM drivers WHERE id = $1`, id)
	return scanDriver(row)
}

func (r *DriverRepository) GetByIdentityNumber(ctx context.Context, identityNumber string) (*entity.Driver, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+driverColumns+` FROM drivers WHERE identity_number = $1`, identityNumber)
	return scanDriver(row)
}

// Create inserts the driver. The caller owns ID generation; created_at
// and updated_at are stamped here.
func (r *DriverRepository) Create(ctx context.Context, d *entity.Driver) error {
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now

	permit, err := permitParam(d.Permit)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO drivers (
			id, first_name, last_name, id_type, identity_number, email, phone,
			birth_date, gender, blood_type, address, hire_date, base_salary,
			contract_term, termination_date, work_site, permit, status,
			created_at, created_by, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)`,
		d.ID, d.FirstName, d.LastName, d.IDType, d.IdentityNumber,
		nullStr(d.Email), nullStr(d.Phone),
		dateParam(d.BirthDate), nullStr(d.Gender), nullStr(d.BloodType), nullStr(d.Address),
		dateParam(d.HireDate), d.BaseSalary, nullStr(d.ContractTerm),
		dateParam(d.TerminationDate), nullStr(d.WorkSite), permit, d.Status,
		d.CreatedAt, d.CreatedBy, d.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicateDriver
		}
		return fmt.Errorf("insert driver: %w", err)
	}
	r.logger.Info("driver created", "driver_id", d.ID, "identity_number", d.IdentityNumber)
	return nil
}

// Update writes the driver row only if it has not changed since
// expectedUpdatedAt was read. Identity columns are never touched.
func (r *DriverRepository) Update(ctx context.Context, d *entity.Driver, expectedUpdatedAt time.Time) error {
	permit, err := permitParam(d.Permit)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	tag, err := r.pool.Exec(ctx, `
		UPDATE drivers SET
			first_name = $1, last_name = $2, id_type = $3, email = $4, phone = $5,
			birth_date = $6, gender = $7, blood_type = $8, address = $9,
			hire_date = $10, base_salary = $11, contract_term = $12,
			termination_date = $13, work_site = $14, permit = $15, status = $16,
			updated_at = $17
		WHERE id = $18 AND updated_at = $19`,
		d.FirstName, d.LastName, d.IDType, nullStr(d.Email), nullStr(d.Phone),
		dateParam(d.BirthDate), nullStr(d.Gender), nullStr(d.BloodType), nullStr(d.Address),
		dateParam(d.HireDate), d.BaseSalary, nullStr(d.ContractTerm),
		dateParam(d.TerminationDate), nullStr(d.WorkSite), permit, d.Status,
		now, d.ID, expectedUpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update driver: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, gerr := r.GetByID(ctx, d.ID); errors.Is(gerr, ErrDriverNotFound) {
			return ErrDriverNotFound
		}
		return ErrStaleRecord
	}
	d.UpdatedAt = now
	r.logger.Info("driver updated", "driver_id", d.ID)
	return nil
}

// Delete removes the driver row. Used to roll back a create whose
// document upload failed.
func (r *DriverRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM drivers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete driver: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDriverNotFound
	}
	return nil
}

// List returns all drivers ordered by last name, for export.
func (r *DriverRepository) List(ctx context.Context) ([]*entity.Driver, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+driverColumns+` FROM drivers ORDER BY last_name, first_name`)
	if err != nil {
		return nil, fmt.Errorf("list drivers: %w", err)
	}
	defer rows.Close()

	var out []*entity.Driver
	for rows.Next() {
		d, err := scanDriver(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDriver(row rowScanner) (*entity.Driver, error) {
	var (
		d                     entity.Driver
		email, phone, gender  *string
		bloodType, address    *string
		contractTerm, site    *string
		birth, hire, termDate *time.Time
		permitRaw             []byte
	)
	err := row.Scan(
		&d.ID, &d.FirstName, &d.LastName, &d.IDType, &d.IdentityNumber,
		&email, &phone, &birth, &gender, &bloodType, &address,
		&hire, &d.BaseSalary, &contractTerm, &termDate, &site,
		&permitRaw, &d.Status, &d.CreatedAt, &d.CreatedBy, &d.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrDriverNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan driver: %w", err)
	}

	d.Email = deref(email)
	d.Phone = deref(phone)
	d.Gender = deref(gender)
	d.BloodType = deref(bloodType)
	d.Address = deref(address)
	d.ContractTerm = deref(contractTerm)
	d.WorkSite = deref(site)
	d.BirthDate = dateString(birth)
	d.HireDate = dateString(hire)
	d.TerminationDate = dateString(termDate)

	if len(permitRaw) > 0 {
		var p entity.Permit
		if err := json.Unmarshal(permitRaw, &p); err != nil {
			return nil, fmt.Errorf("decode permit block: %w", err)
		}
		d.Permit = &p
	}
	return &d, nil
}

func nullStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// dateParam converts the YYYY-MM-DD wire format to a DATE parameter.
// Empty means NULL; malformed dates never reach this layer.
func dateParam(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &t
}

func dateString(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func permitParam(p *entity.Permit) ([]byte, error) {
	if p == nil {
		return nil, nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode permit block: %w", err)
	}
	return b, nil
}
