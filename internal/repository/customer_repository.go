package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/repair-service/internal/domain"
)

// CustomerRepository persists customers keyed by phone.
type CustomerRepository interface {
	Create(ctx context.Context, customer *domain.Customer) error
	GetByID(ctx context.Context, id string) (*domain.Customer, error)
	GetByPhone(ctx context.Context, phone string) (*domain.Customer, error)
	List(ctx context.Context, filter CustomerFilter) ([]domain.Customer, int, error)
}

// DeviceRepository persists devices keyed by serial number and model.
type DeviceRepository interface {
	Create(ctx context.Context, device *domain.Device) error
	GetByID(ctx context.Context, id string) (*domain.Device, error)
	FindBySerialModel(ctx context.Context, serial, model string) (*domain.Device, error)
	ListByCustomer(ctx context.Context, customerID string) ([]domain.Device, error)
}

type customerRepository struct {
	db DBTX
}

const customerColumns = `id, name, phone, address, notes, created_at, updated_at`

func (r *customerRepository) Create(ctx context.Context, customer *domain.Customer) error {
	const query = `
        INSERT INTO customers (name, phone, address, notes)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	return mapPgError(r.db.QueryRow(ctx, query,
		customer.Name,
		customer.Phone,
		customer.Address,
		customer.Notes,
	).Scan(&customer.ID, &customer.CreatedAt, &customer.UpdatedAt))
}

func (r *customerRepository) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	return r.fetchSingle(ctx, `SELECT `+customerColumns+` FROM customers WHERE id=$1`, id)
}

func (r *customerRepository) GetByPhone(ctx context.Context, phone string) (*domain.Customer, error) {
	return r.fetchSingle(ctx, `SELECT `+customerColumns+` FROM customers WHERE phone=$1`, phone)
}

func (r *customerRepository) List(ctx context.Context, filter CustomerFilter) ([]domain.Customer, int, error) {
	where := &whereBuilder{}
	where.search(filter.SearchTerm, "name", "phone")

	total, err := count(ctx, r.db, "customers", where)
	if err != nil {
		return nil, 0, mapPgError(err)
	}

	query := fmt.Sprintf(`SELECT %s FROM customers%s ORDER BY name ASC, id%s`,
		customerColumns, where.sql(), filter.Page.sql())
	rows, err := r.db.Query(ctx, query, where.args...)
	if err != nil {
		return nil, 0, mapPgError(err)
	}
	defer rows.Close()

	var result []domain.Customer
	for rows.Next() {
		customer, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, mapPgError(err)
		}
		result = append(result, *customer)
	}
	return result, total, rows.Err()
}

func (r *customerRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Customer, error) {
	customer, err := scanCustomer(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, mapPgError(err)
	}
	return customer, nil
}

func scanCustomer(row pgx.Row) (*domain.Customer, error) {
	var c domain.Customer
	if err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.Address, &c.Notes, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

type deviceRepository struct {
	db DBTX
}

const deviceColumns = `id, customer_id, brand, model, serial_number, type, description, created_at, updated_at`

func (r *deviceRepository) Create(ctx context.Context, device *domain.Device) error {
	const query = `
        INSERT INTO devices (customer_id, brand, model, serial_number, type, description)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	return mapPgError(r.db.QueryRow(ctx, query,
		device.CustomerID,
		device.Brand,
		device.Model,
		device.SerialNumber,
		device.Type,
		device.Description,
	).Scan(&device.ID, &device.CreatedAt, &device.UpdatedAt))
}

func (r *deviceRepository) GetByID(ctx context.Context, id string) (*domain.Device, error) {
	return scanDeviceRow(r.db.QueryRow(ctx, `SELECT `+deviceColumns+` FROM devices WHERE id=$1`, id))
}

func (r *deviceRepository) FindBySerialModel(ctx context.Context, serial, model string) (*domain.Device, error) {
	return scanDeviceRow(r.db.QueryRow(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE serial_number=$1 AND model=$2`, serial, model))
}

func (r *deviceRepository) ListByCustomer(ctx context.Context, customerID string) ([]domain.Device, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE customer_id=$1 ORDER BY created_at ASC`, customerID)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	var result []domain.Device
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, mapPgError(err)
		}
		result = append(result, *device)
	}
	return result, rows.Err()
}

func scanDeviceRow(row pgx.Row) (*domain.Device, error) {
	device, err := scanDevice(row)
	if err != nil {
		return nil, mapPgError(err)
	}
	return device, nil
}

func scanDevice(row pgx.Row) (*domain.Device, error) {
	var d domain.Device
	if err := row.Scan(
		&d.ID,
		&d.CustomerID,
		&d.Brand,
		&d.Model,
		&d.SerialNumber,
		&d.Type,
		&d.Description,
		&d.CreatedAt,
		&d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &d, nil
}
