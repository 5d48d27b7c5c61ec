package customer

import (
	ierr "github.com/finvoice/finvoice/internal/errors"
	"github.com/finvoice/finvoice/internal/types"
)

// Customer represents the buyer on an invoice. The GST state code is compared
// against the seller's configured state code to decide the tax split.
type Customer struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Email     string         `json:"email"`
	Phone     string         `json:"phone,omitempty"`
	GSTIN     string         `json:"gstin,omitempty"`
	StateCode string         `json:"state_code"`
	Address   string         `json:"address,omitempty"`
	Metadata  types.Metadata `json:"metadata,omitempty"`

	types.BaseModel
}

// Validate validates the customer
func (c *Customer) Validate() error {
	if c.Name == "" {
		return ierr.NewError("customer name is required").
			WithHint("Customer name is required").
			Mark(ierr.ErrValidation)
	}
	if c.Email == "" {
		return ierr.NewError("customer email is required").
			WithHint("Customer email is required").
			Mark(ierr.ErrValidation)
	}
	if c.StateCode == "" {
		return ierr.NewError("customer state code is required").
			WithHint("GST state code is required to compute the tax split").
			Mark(ierr.ErrValidation)
	}
	return nil
}
