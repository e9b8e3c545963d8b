package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PartCategory groups stocked parts.
type PartCategory string

const (
	PartCategoryCPU         PartCategory = "cpu"
	PartCategoryMotherboard PartCategory = "motherboard"
	PartCategoryRAM         PartCategory = "ram"
	PartCategoryStorage     PartCategory = "storage"
	PartCategoryGPU         PartCategory = "gpu"
	PartCategoryPSU         PartCategory = "psu"
	PartCategoryCase        PartCategory = "case"
	PartCategoryCooler      PartCategory = "cooler"
	PartCategoryNIC         PartCategory = "nic"
	PartCategoryOthers      PartCategory = "others"
)

// PartStatus is the catalogue lifecycle of a part.
type PartStatus string

const (
	PartStatusActive       PartStatus = "active"
	PartStatusInactive     PartStatus = "inactive"
	PartStatusDiscontinued PartStatus = "discontinued"
)

// Part is a stocked inventory item. Stock is a cached total of the ledger.
type Part struct {
	ID        string
	Name      string
	SKU       string
	Category  PartCategory
	Vendor    string
	Unit      string
	Stock     int
	MinStock  int
	Location  string
	Price     decimal.Decimal
	Status    PartStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BelowMinimum reports whether stock dropped under the reorder threshold.
func (p *Part) BelowMinimum() bool {
	return p.MinStock > 0 && p.Stock < p.MinStock
}
