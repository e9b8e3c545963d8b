package service

import (
	"context"

	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/repository"
	apperrors "github.com/spec-kit/repair-service/pkg/util"
)

// CustomerService exposes customers and their devices. Records are created
// as a side effect of ticket intake.
type CustomerService struct {
	store repository.Store
}

// NewCustomerService constructs the service.
func NewCustomerService(store repository.Store) *CustomerService {
	return &CustomerService{store: store}
}

// CustomerDetail is a customer with every registered device.
type CustomerDetail struct {
	Customer *domain.Customer
	Devices  []domain.Device
}

// Get fetches a customer with devices.
func (s *CustomerService) Get(ctx context.Context, customerID string) (*CustomerDetail, error) {
	repos := s.store.Repositories()
	customer, err := repos.Customers.GetByID(ctx, customerID)
	if err != nil {
		return nil, mapRepoError(err, "customer", map[string]any{"customer_id": customerID})
	}
	devices, err := repos.Devices.ListByCustomer(ctx, customer.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &CustomerDetail{Customer: customer, Devices: nonNil(devices)}, nil
}

// List returns a page of customers matching the search term.
func (s *CustomerService) List(ctx context.Context, searchTerm string, pagination Pagination) (PageResult[domain.Customer], error) {
	page := pagination.page()
	customers, total, err := s.store.Repositories().Customers.List(ctx, repository.CustomerFilter{
		SearchTerm: searchTerm,
		Page:       page,
	})
	if err != nil {
		return PageResult[domain.Customer]{}, apperrors.MapError(err)
	}
	return newPageResult(customers, total, page), nil
}
