package service

import (
	"testing"

	"github.com/finvoice/finvoice/internal/api/dto"
	ierr "github.com/finvoice/finvoice/internal/errors"
	"github.com/finvoice/finvoice/internal/testutil"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

type CustomerServiceSuite struct {
	testutil.BaseServiceTestSuite
	service CustomerService
}

func TestCustomerService(t *testing.T) {
	suite.Run(t, new(CustomerServiceSuite))
}

func (s *CustomerServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewCustomerService(ServiceParams{
		Logger:       s.GetLogger(),
		Config:       s.GetConfig(),
		CustomerRepo: s.GetStores().CustomerRepo,
	})
}

func (s *CustomerServiceSuite) TestCreateCustomer() {
	resp, err := s.service.CreateCustomer(s.GetContext(), dto.CreateCustomerRequest{
		Name:      "Acme Traders",
		Email:     "billing@acmetraders.example",
		GSTIN:     "27AAACA1234A1Z5",
		StateCode: "27",
	})
	s.NoError(err)
	s.NotEmpty(resp.ID)
	s.Equal("Acme Traders", resp.Name)
	s.Equal("27", resp.StateCode)

	stored, err := s.GetStores().CustomerRepo.Get(s.GetContext(), resp.ID)
	s.NoError(err)
	s.Equal(resp.Email, stored.Email)
}

func (s *CustomerServiceSuite) TestCreateCustomerValidation() {
	_, err := s.service.CreateCustomer(s.GetContext(), dto.CreateCustomerRequest{
		Name:  "No Email",
		Email: "",
	})
	s.True(ierr.IsValidation(err))

	_, err = s.service.CreateCustomer(s.GetContext(), dto.CreateCustomerRequest{
		Name:  "No State",
		Email: "no-state@example.com",
	})
	s.True(ierr.IsValidation(err))
}

func (s *CustomerServiceSuite) TestGetCustomerNotFound() {
	_, err := s.service.GetCustomer(s.GetContext(), "cust_missing")
	s.True(ierr.IsNotFound(err))
}

func (s *CustomerServiceSuite) TestUpdateCustomer() {
	resp, err := s.service.CreateCustomer(s.GetContext(), dto.CreateCustomerRequest{
		Name:      "Acme Traders",
		Email:     "billing@acmetraders.example",
		StateCode: "27",
	})
	s.NoError(err)

	updated, err := s.service.UpdateCustomer(s.GetContext(), resp.ID, dto.UpdateCustomerRequest{
		Name:      lo.ToPtr("Acme Traders Pvt Ltd"),
		StateCode: lo.ToPtr("29"),
	})
	s.NoError(err)
	s.Equal("Acme Traders Pvt Ltd", updated.Name)
	s.Equal("29", updated.StateCode)
	s.Equal("billing@acmetraders.example", updated.Email)
}

func (s *CustomerServiceSuite) TestUpdateCustomerRejectsEmptyName() {
	resp, err := s.service.CreateCustomer(s.GetContext(), dto.CreateCustomerRequest{
		Name:      "Acme Traders",
		Email:     "billing@acmetraders.example",
		StateCode: "27",
	})
	s.NoError(err)

	_, err = s.service.UpdateCustomer(s.GetContext(), resp.ID, dto.UpdateCustomerRequest{
		Name: lo.ToPtr(""),
	})
	s.True(ierr.IsValidation(err))
}

func (s *CustomerServiceSuite) TestListAndDeleteCustomers() {
	for _, name := range []string{"First", "Second"} {
		_, err := s.service.CreateCustomer(s.GetContext(), dto.CreateCustomerRequest{
			Name:      name,
			Email:     name + "@example.com",
			StateCode: "29",
		})
		s.NoError(err)
	}

	list, err := s.service.ListCustomers(s.GetContext())
	s.NoError(err)
	s.Equal(2, list.Total)

	s.NoError(s.service.DeleteCustomer(s.GetContext(), list.Items[0].ID))

	list, err = s.service.ListCustomers(s.GetContext())
	s.NoError(err)
	s.Equal(1, list.Total)
}
