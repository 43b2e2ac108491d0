package models

import "time"

// Load lifecycle states relevant to the gateway: a driver may only log in
// while an order for their phone number is in one of the live states.
const (
	StatusCreated   = "CREATED"
	StatusActivated = "ACTIVATED"
	StatusStarted   = "STARTED"
	StatusCancelled = "CANCELLED"
	StatusCompleted = "COMPLETED"
)

// LiveStatuses are the load states that count as an active order.
var LiveStatuses = []string{StatusCreated, StatusActivated, StatusStarted}

// Master record of a load. The engine owns the full row; the gateway only
// reads the columns needed for the login precondition.
type LoadMaster struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	LoadID      string    `gorm:"index;not null" json:"load_id"`
	LoadStatus  string    `gorm:"index;not null" json:"load_status"`
	BrokerName  string    `json:"broker_name"`
	DriverName  string    `json:"driver_name"`
	PhoneNumber string    `gorm:"index" json:"phone_number"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (LoadMaster) TableName() string {
	return "load_master"
}
