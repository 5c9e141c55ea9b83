package model

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
)

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusActive    BookingStatus = "ACTIVE"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

func (s *BookingStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*s = BookingStatus(v)
	case []byte:
		*s = BookingStatus(v)
	default:
		*s = BookingStatusPending
	}
	return nil
}

func (s BookingStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// PaymentSource records how a booking is paid for.
type PaymentSource string

const (
	PaymentSourceSubscription PaymentSource = "SUBSCRIPTION"
	PaymentSourceSingle       PaymentSource = "SINGLE"
)

// Booking reserves a tour or room for a customer. Settlement state is owned
// by the webhook path; the synchronous path only ever creates PENDING rows
// for single payments.
type Booking struct {
	ID            uuid.UUID     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CustomerID    uuid.UUID     `gorm:"type:uuid;not null;index" json:"customer_id"`
	ResourceKind  ResourceKind  `gorm:"size:10;not null" json:"resource_kind"`
	ResourceID    uuid.UUID     `gorm:"type:uuid;not null" json:"resource_id"`
	PaymentSource PaymentSource `gorm:"size:20;not null" json:"payment_source"`
	Status        BookingStatus `gorm:"size:20;not null;default:'PENDING'" json:"status"`
	IsPaid        bool          `gorm:"not null;default:false" json:"is_paid"`
	IsCancelled   bool          `gorm:"not null;default:false" json:"is_cancelled"`
	CancelReason  string        `gorm:"size:500" json:"cancel_reason,omitempty"`
	CreatedAt     time.Time     `gorm:"default:now()" json:"created_at"`
	UpdatedAt     time.Time     `gorm:"default:now()" json:"updated_at"`

	// Relations
	Guests       []Guest       `gorm:"foreignKey:BookingID" json:"guests,omitempty"`
	Transactions []Transaction `gorm:"foreignKey:BookingID" json:"transactions,omitempty"`
}

func (Booking) TableName() string {
	return "bookings"
}

// Guest is a traveller attached to a booking.
type Guest struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	BookingID uuid.UUID `gorm:"type:uuid;not null;index" json:"booking_id"`
	FirstName string    `gorm:"size:100;not null" json:"first_name"`
	LastName  string    `gorm:"size:100;not null" json:"last_name"`
	Age       int       `json:"age"`
	CreatedAt time.Time `gorm:"default:now()" json:"created_at"`
}

func (Guest) TableName() string {
	return "guests"
}
