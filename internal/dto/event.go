package dto

import (
	"time"

	"github.com/bridgekit/custody-schedule-api/internal/models"
)

// CreateEventRequest is the payload for adding a calendar entry.
type CreateEventRequest struct {
	Title     string             `json:"title" validate:"required"`
	Date      time.Time          `json:"date" validate:"required"`
	Type      models.EventType   `json:"type" validate:"required,eventtype"`
	Owner     *models.ParentRole `json:"owner,omitempty"`
	Swappable bool               `json:"swappable"`
}

// EventQuery scopes calendar listings to a month.
type EventQuery struct {
	Year  int
	Month time.Month
}
