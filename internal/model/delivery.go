package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/nurpe/delivery-billing/internal/money"
)

type DeliveryStatus string

const (
	DeliveryCreated   DeliveryStatus = "CREATED"
	DeliveryAssigned  DeliveryStatus = "ASSIGNED"
	DeliveryPickedUp  DeliveryStatus = "PICKED_UP"
	DeliveryDelivered DeliveryStatus = "DELIVERED"
	DeliveryCancelled DeliveryStatus = "CANCELLED"
)

// Shares is the split of one delivery price between the funding parties.
type Shares struct {
	Client      money.Money
	Shop        money.Money
	City        money.Money
	AdminRegion money.Money
}

func (s Shares) Total() money.Money {
	return money.Sum(s.Client, s.Shop, s.City, s.AdminRegion)
}

type Delivery struct {
	ID              uuid.UUID
	ShopID          uuid.UUID
	ClientID        uuid.UUID
	DeliveryDate    time.Time
	Bags            int
	OrderAmount     *money.Money
	IsCMS           bool
	Status          DeliveryStatus
	StatusUpdatedAt time.Time
	DeliveredAt     *time.Time
	// Priced snapshot taken when the delivery was last created or edited.
	TotalPrice money.Money
	Shares     Shares
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type PricedDelivery struct {
	Delivery        Delivery
	TariffVersionID uuid.UUID
	TotalPrice      money.Money
	Shares          Shares
}

type Shop struct {
	ID       uuid.UUID
	RegionID uuid.UUID
	HQID     *uuid.UUID
	Name     string
}

type Client struct {
	ID      uuid.UUID
	CityID  *uuid.UUID
	Name    string
	Address string
}

// BillingDelivery is a delivery joined with the shop and client attributes
// that decide its billing recipients.
type BillingDelivery struct {
	Delivery
	RegionID      uuid.UUID
	HQID          *uuid.UUID
	CityID        *uuid.UUID
	ClientName    string
	ClientAddress string
}

type Cancellation struct {
	DeliveryID   uuid.UUID
	CancelledAt  time.Time
	CancelledBy  string
	Reason       string
	PeriodFrozen bool
}
