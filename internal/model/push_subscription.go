package model

import "time"

// PushSubscription holds the information for a browser push subscription
// that wants change notifications for one event.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	EventID   string    `gorm:"size:36;not null;index"`
	CreatedAt time.Time `gorm:"not null"`
}
