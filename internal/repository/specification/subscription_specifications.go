package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ByCustomerID filters subscriptions owned by a customer
type ByCustomerID struct {
	CustomerID uuid.UUID
}

func (s ByCustomerID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("customer_id = ?", s.CustomerID)
}

// ByStatus filters by lifecycle status
type ByStatus struct {
	Status string
}

func (s ByStatus) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", s.Status)
}

// ByAssignedDelivery filters subscriptions handled by a delivery agent
type ByAssignedDelivery struct {
	DeliveryID uuid.UUID
}

func (s ByAssignedDelivery) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("assigned_delivery_id = ?", s.DeliveryID)
}
