package service

import (
	"context"
	"time"

	"github.com/finvoice/finvoice/internal/api/dto"
	"github.com/finvoice/finvoice/internal/domain/customer"
	"github.com/samber/lo"
)

// CustomerService owns customer records referenced by invoices
type CustomerService interface {
	CreateCustomer(ctx context.Context, req dto.CreateCustomerRequest) (*dto.CustomerResponse, error)
	GetCustomer(ctx context.Context, id string) (*dto.CustomerResponse, error)
	ListCustomers(ctx context.Context) (*dto.ListCustomersResponse, error)
	UpdateCustomer(ctx context.Context, id string, req dto.UpdateCustomerRequest) (*dto.CustomerResponse, error)
	DeleteCustomer(ctx context.Context, id string) error
}

type customerService struct {
	ServiceParams
}

// NewCustomerService creates a new instance of CustomerService
func NewCustomerService(params ServiceParams) CustomerService {
	return &customerService{
		ServiceParams: params,
	}
}

func (s *customerService) CreateCustomer(ctx context.Context, req dto.CreateCustomerRequest) (*dto.CustomerResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	cust := req.ToCustomer()
	if err := cust.Validate(); err != nil {
		return nil, err
	}
	if err := s.CustomerRepo.Create(ctx, cust); err != nil {
		s.Logger.Errorw("failed to create customer",
			"error", err,
			"customer_id", cust.ID)
		return nil, err
	}

	s.Logger.Infow("created customer",
		"customer_id", cust.ID,
		"state_code", cust.StateCode)
	return &dto.CustomerResponse{Customer: cust}, nil
}

func (s *customerService) GetCustomer(ctx context.Context, id string) (*dto.CustomerResponse, error) {
	cust, err := s.CustomerRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.CustomerResponse{Customer: cust}, nil
}

func (s *customerService) ListCustomers(ctx context.Context) (*dto.ListCustomersResponse, error) {
	customers, err := s.CustomerRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.ListCustomersResponse{
		Items: lo.Map(customers, func(c *customer.Customer, _ int) *dto.CustomerResponse {
			return &dto.CustomerResponse{Customer: c}
		}),
		Total: len(customers),
	}, nil
}

func (s *customerService) UpdateCustomer(ctx context.Context, id string, req dto.UpdateCustomerRequest) (*dto.CustomerResponse, error) {
	cust, err := s.CustomerRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		cust.Name = *req.Name
	}
	if req.Email != nil {
		cust.Email = *req.Email
	}
	if req.Phone != nil {
		cust.Phone = *req.Phone
	}
	if req.GSTIN != nil {
		cust.GSTIN = *req.GSTIN
	}
	if req.StateCode != nil {
		cust.StateCode = *req.StateCode
	}
	if req.Address != nil {
		cust.Address = *req.Address
	}
	if req.Metadata != nil {
		cust.Metadata = cust.Metadata.Merge(req.Metadata)
	}

	if err := cust.Validate(); err != nil {
		return nil, err
	}

	cust.UpdatedAt = time.Now().UTC()
	if err := s.CustomerRepo.Update(ctx, cust); err != nil {
		return nil, err
	}
	return &dto.CustomerResponse{Customer: cust}, nil
}

func (s *customerService) DeleteCustomer(ctx context.Context, id string) error {
	return s.CustomerRepo.Delete(ctx, id)
}
