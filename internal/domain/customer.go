package domain

import "time"

// Customer owns devices brought in for repair. Phone is the natural key.
type Customer struct {
	ID        string
	Name      string
	Phone     string
	Address   string
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Device is identified by serial number and model.
type Device struct {
	ID           string
	CustomerID   string
	Brand        string
	Model        string
	SerialNumber string
	Type         string
	Description  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
