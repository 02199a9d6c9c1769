// Package services – order notifications
//
// Notifier abstracts how the kitchen hears about a submitted order (SMS
// gateway, printer bridge, dashboard push). The default implementation only
// logs, which keeps local and test environments quiet.
package services

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Notifier delivers an order notification to the restaurant.
type Notifier interface {
	NotifyOrder(ctx context.Context, restaurantID int, subject, body string) error
}

// LogNotifier writes notifications to the structured log instead of an
// external channel.
type LogNotifier struct{}

// NotifyOrder logs the notification at info level.
func (LogNotifier) NotifyOrder(_ context.Context, restaurantID int, subject, body string) error {
	log.Info().
		Int("restaurant_id", restaurantID).
		Str("subject", subject).
		Str("body", body).
		Msg("order notification")
	return nil
}
