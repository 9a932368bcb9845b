package service

import (
	"context"
	"fmt"

	"github.com/lovingyourskin/commerce-api/internal/model"
	"github.com/lovingyourskin/commerce-api/internal/payment"
)

// CustomerService manages processor-side customer records.
type CustomerService struct {
	payments PaymentClientInterface
}

// NewCustomerService creates a new CustomerService.
func NewCustomerService(payments PaymentClientInterface) *CustomerService {
	return &CustomerService{payments: payments}
}

// Upsert creates or updates a customer, matching by id when given and by
// email otherwise.
func (s *CustomerService) Upsert(ctx context.Context, req *model.UpsertCustomerRequest) (*model.CustomerResponse, error) {
	if req == nil || (req.Email == "" && req.CustomerID == "") {
		return nil, ErrInvalidRequest
	}
	resp, err := s.payments.UpsertCustomer(ctx, payment.CustomerInput{
		CustomerID: req.CustomerID,
		Email:      req.Email,
		Name:       req.Name,
		Metadata:   req.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("upsert customer: %w", err)
	}
	return resp, nil
}

// Get retrieves a customer with stored card summaries. Returns
// ErrCustomerNotFound when neither the id nor the email matches.
func (s *CustomerService) Get(ctx context.Context, customerID, email string) (*model.CustomerResponse, error) {
	if customerID == "" && email == "" {
		return nil, ErrInvalidRequest
	}
	resp, err := s.payments.GetCustomer(ctx, customerID, email)
	if err != nil {
		return nil, fmt.Errorf("get customer: %w", err)
	}
	if resp == nil {
		return nil, ErrCustomerNotFound
	}
	return resp, nil
}
