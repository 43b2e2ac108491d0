package models

import "time"

// Represents one request that passed through the gateway.
type RequestLog struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Timestamp      time.Time `gorm:"index" json:"timestamp"`
	Phone          string    `gorm:"index" json:"phone,omitempty"`
	Role           string    `json:"role,omitempty"`
	Method         string    `json:"method"`
	Path           string    `gorm:"index" json:"path"`
	StatusCode     int       `gorm:"index" json:"status_code"`
	ResponseTimeMs int       `json:"response_time_ms"`
	IPAddress      string    `json:"ip_address"`
	UserAgent      string    `json:"user_agent"`
	BackendServer  string    `json:"backend_server,omitempty"`
}

func (RequestLog) TableName() string {
	return "request_logs"
}
