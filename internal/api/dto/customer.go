package dto

import (
	"github.com/finvoice/finvoice/internal/domain/customer"
	ierr "github.com/finvoice/finvoice/internal/errors"
	"github.com/finvoice/finvoice/internal/types"
)

// CreateCustomerRequest creates a customer
type CreateCustomerRequest struct {
	Name      string         `json:"name" binding:"required"`
	Email     string         `json:"email" binding:"required"`
	Phone     string         `json:"phone,omitempty"`
	GSTIN     string         `json:"gstin,omitempty"`
	StateCode string         `json:"state_code" binding:"required"`
	Address   string         `json:"address,omitempty"`
	Metadata  types.Metadata `json:"metadata,omitempty"`
}

// Validate validates the customer creation request
func (r *CreateCustomerRequest) Validate() error {
	if r.Name == "" {
		return ierr.NewError("customer name is required").
			WithHint("Name is required").
			Mark(ierr.ErrValidation)
	}
	if r.Email == "" {
		return ierr.NewError("customer email is required").
			WithHint("Email is required").
			Mark(ierr.ErrValidation)
	}
	if r.StateCode == "" {
		return ierr.NewError("customer state code is required").
			WithHint("GST state code is required").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// ToCustomer converts the request to a domain customer
func (r *CreateCustomerRequest) ToCustomer() *customer.Customer {
	return &customer.Customer{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CUSTOMER),
		Name:      r.Name,
		Email:     r.Email,
		Phone:     r.Phone,
		GSTIN:     r.GSTIN,
		StateCode: r.StateCode,
		Address:   r.Address,
		Metadata:  r.Metadata,
		BaseModel: types.GetDefaultBaseModel(),
	}
}

// UpdateCustomerRequest updates mutable customer fields
type UpdateCustomerRequest struct {
	Name      *string        `json:"name,omitempty"`
	Email     *string        `json:"email,omitempty"`
	Phone     *string        `json:"phone,omitempty"`
	GSTIN     *string        `json:"gstin,omitempty"`
	StateCode *string        `json:"state_code,omitempty"`
	Address   *string        `json:"address,omitempty"`
	Metadata  types.Metadata `json:"metadata,omitempty"`
}

// CustomerResponse wraps the customer domain model
type CustomerResponse struct {
	*customer.Customer
}

// ListCustomersResponse is the listing envelope
type ListCustomersResponse struct {
	Items []*CustomerResponse `json:"items"`
	Total int                 `json:"total"`
}
