package notify

import (
	"context"

	"dcpr.org/internal/obs"
)

var _ Notifier = (*LogNotifier)(nil)

// LogNotifier records deliveries on the structured log. It stands in for the
// email transport, which is outside the workflow core.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, activityID string) error {
	obs.Logger().WithFields(map[string]any{
		"type":        "notification",
		"activity_id": activityID,
	}).Info("dcpr.notification.delivered")
	return nil
}
