package core

import (
	"context"
	"time"

	"github.com/Lin-Jiong-HDU/jarvis/internal/core/security"
)

// PowerGrace is how long a confirmed shutdown or restart waits before it
// takes effect.
const PowerGrace = 10 * time.Second

// Confirmer asks the operator to authorize a sensitive action. It writes
// its own audit record and reports whether the action may proceed.
type Confirmer interface {
	Confirm(ctx context.Context, req security.ConfirmRequest) bool
}

// WeatherService reports current conditions for a city as a sentence.
type WeatherService interface {
	Current(ctx context.Context, city string) (string, error)
}

// ReminderScheduler fires a reminder after delay.
type ReminderScheduler interface {
	Schedule(text string, delay time.Duration) error
}
