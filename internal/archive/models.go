/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package archive

import (
	"time"

	"gorm.io/datatypes"
)

type Game struct {
	ID         uint      `gorm:"primaryKey"`
	RoomCode   string    `gorm:"size:8;index;not null"`
	Version    uint64    `gorm:"not null"`
	Players    int       `gorm:"not null"`
	FinishedAt time.Time `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null"`
	Standings  []Standing
	Events     []Event
}

type Standing struct {
	ID         uint      `gorm:"primaryKey"`
	GameID     uint      `gorm:"index;not null"`
	PlayerID   string    `gorm:"size:64;not null"`
	Name       string    `gorm:"size:64;not null"`
	IsHost     bool      `gorm:"not null;default:false"`
	Rank       int       `gorm:"not null"`
	QuizScore  int       `gorm:"not null"`
	ThumbsUp   int       `gorm:"not null"`
	ThumbsDown int       `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null"`
}

type Event struct {
	ID        uint           `gorm:"primaryKey"`
	GameID    uint           `gorm:"index;not null"`
	Type      string         `gorm:"size:64;not null"`
	Payload   datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"not null"`
}
