package models

import "time"

type Todo struct {
	ID            int64
	OwnerID       int64
	Title         string
	Description   string
	Completed     bool
	AttachmentKey string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
