package usecase

import "github.com/google/uuid"

// Role is the caller's role as asserted by the auth layer.
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleAdmin    Role = "ADMIN"
)

// Requester identifies who initiated an operation.
type Requester struct {
	CustomerID uuid.UUID
	Role       Role
}
