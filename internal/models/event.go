package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Event struct {
	bun.BaseModel `bun:"table:events"`

	EventID   string    `bun:"event_id,pk" json:"event_id"`
	Name      string    `bun:"name,notnull" json:"name"`
	Venue     string    `bun:"venue" json:"venue"`
	StartDate time.Time `bun:"start_date" json:"start_date"`
	EndDate   time.Time `bun:"end_date" json:"end_date"`
	CreatedAt time.Time `bun:"created_at" json:"created_at"`
}
