package notifications

import (
	"time"

	"tagarr/internal/database/models"
	"tagarr/internal/utils"
)

// LogNotifier writes notifications to the log. It is used when no push
// service is configured so notify-test still has something to exercise.
type LogNotifier struct {
	logger *utils.Logger
}

func NewLogNotifier(logger *utils.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifyCycleComplete(run *models.Run) {
	title, _ := CompleteMessage(run)
	n.logger.Debug("Notification:", title)
}

func (n *LogNotifier) NotifyCycleFailed(run *models.Run, retryIn time.Duration) {
	n.logger.Debug("Notification: cycle failed:", run.Error, "- retrying in", retryIn)
}

func (n *LogNotifier) Test() error {
	n.logger.Info("Test notification: no push service configured, logging only")
	return nil
}
