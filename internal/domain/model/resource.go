package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ResourceKind distinguishes the bookable resource variants.
type ResourceKind string

const (
	ResourceKindTour ResourceKind = "TOUR"
	ResourceKindRoom ResourceKind = "ROOM"
)

// Reservable is the capability a resource needs to be booked: an identity
// and a point-of-sale price. Tour and hotel packages both satisfy it, so a
// single coordinator serves both variants.
type Reservable interface {
	ReservableID() uuid.UUID
	ReservablePrice() decimal.Decimal
}

// TourPackage is a bookable tour offering.
type TourPackage struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Title       string          `gorm:"size:255;not null" json:"title"`
	Slug        string          `gorm:"uniqueIndex;size:255;not null" json:"slug"`
	Description string          `gorm:"type:text" json:"description"`
	Location    string          `gorm:"size:255" json:"location"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	CreatedAt   time.Time       `gorm:"default:now()" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"default:now()" json:"updated_at"`
}

func (p *TourPackage) ReservableID() uuid.UUID { return p.ID }
func (p *TourPackage) ReservablePrice() decimal.Decimal { return p.Price }

func (TourPackage) TableName() string {
	return "tour_packages"
}

// HotelPackage is a bookable room offering.
type HotelPackage struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Title       string          `gorm:"size:255;not null" json:"title"`
	Slug        string          `gorm:"uniqueIndex;size:255;not null" json:"slug"`
	Description string          `gorm:"type:text" json:"description"`
	Location    string          `gorm:"size:255" json:"location"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	CreatedAt   time.Time       `gorm:"default:now()" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"default:now()" json:"updated_at"`
}

func (p *HotelPackage) ReservableID() uuid.UUID { return p.ID }
func (p *HotelPackage) ReservablePrice() decimal.Decimal { return p.Price }

func (HotelPackage) TableName() string {
	return "hotel_packages"
}
