package models

import "time"

// DLQ holds outbox events the search sync could not apply.
type DLQ struct {
	ID         int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	OutboxID   int64      `gorm:"index" json:"outboxId"`
	EntityType string     `json:"entityType"`
	EntityID   string     `json:"entityId"`
	Op         string     `json:"op"`
	ErrorMsg   string     `json:"errorMsg"`
	Payload    []byte     `json:"-"`
	CreatedAt  time.Time  `json:"createdAt"`
	RetriedAt  *time.Time `json:"retriedAt"`
	Resolved   bool       `gorm:"default:false" json:"resolved"`
}
