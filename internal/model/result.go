package model

import "time"

// ResultRecord is an archived result snapshot.
type ResultRecord struct {
	ID         uint `gorm:"primarykey"`
	CreatedAt  time.Time
	Question   string    `gorm:"not null"`
	Round      int       `gorm:"not null"`
	Yes        int       `gorm:"not null"`
	No         int       `gorm:"not null"`
	Pending    int       `gorm:"not null"`
	ComputedAt time.Time `gorm:"not null;index"`
}
