package service

import "errors"

// Discount code errors. Validation failures are ordered: lookup, active flag,
// time window, global cap, per-customer cap, conditions.
var (
	// ErrCodeExists is returned when creating a code that already exists.
	ErrCodeExists = errors.New("discount code already exists")

	// ErrCodeNotFound is returned when no matching code exists.
	ErrCodeNotFound = errors.New("discount code not found")

	// ErrCodeInactive is returned when the code's active flag is false.
	ErrCodeInactive = errors.New("discount code is not active")

	// ErrCodeOutOfWindow is returned when now is outside [validFrom, validUntil].
	ErrCodeOutOfWindow = errors.New("discount code is outside its validity window")

	// ErrUsageExceeded is returned when currentUses has reached maxUses.
	ErrUsageExceeded = errors.New("discount code usage limit reached")

	// ErrPerCustomerExceeded is returned when the customer has exhausted their
	// personal cap for this code.
	ErrPerCustomerExceeded = errors.New("discount code already used by this customer")

	// ErrConditionsNotMet is returned when a conditions predicate fails.
	ErrConditionsNotMet = errors.New("discount code conditions not met")

	// ErrInvalidRequest is returned when request data is nil or incomplete.
	ErrInvalidRequest = errors.New("invalid request")
)

// Affiliate errors.
var (
	// ErrAffiliateNotFound is returned when an affiliate cannot be found.
	ErrAffiliateNotFound = errors.New("affiliate not found")

	// ErrAffiliateExists is returned when registering a duplicate email or
	// linking a discount code that already has an affiliate.
	ErrAffiliateExists = errors.New("affiliate already exists")

	// ErrInvalidTransition is returned for a disallowed status change.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrCommissionNotFound is returned when a ledger record cannot be found.
	ErrCommissionNotFound = errors.New("commission record not found")
)

// Payout errors.
var (
	// ErrPayoutNotFound is returned when a payout cannot be found.
	ErrPayoutNotFound = errors.New("payout not found")

	// ErrNothingToPayOut is returned when a payout period covers no pending
	// commission ledger entries.
	ErrNothingToPayOut = errors.New("no pending commission in period")
)

// Order and catalog errors.
var (
	// ErrOrderNotFound is returned when an order cannot be found.
	ErrOrderNotFound = errors.New("order not found")

	// ErrPreorderNotFound is returned when a preorder cannot be found.
	ErrPreorderNotFound = errors.New("preorder not found")

	// ErrProductNotFound is returned when a product cannot be found.
	ErrProductNotFound = errors.New("product not found")

	// ErrBrandNotFound is returned when a brand cannot be found.
	ErrBrandNotFound = errors.New("brand not found")

	// ErrCustomerNotFound is returned when no processor-side customer matches.
	ErrCustomerNotFound = errors.New("customer not found")
)

// Auth errors.
var (
	// ErrInvalidCredentials is returned on a failed admin login.
	ErrInvalidCredentials = errors.New("invalid email or password")
)
