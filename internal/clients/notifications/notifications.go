package notifications

import (
	"time"

	"tagarr/internal/database/models"
)

type Notifier interface {
	NotifyCycleComplete(run *models.Run)
	NotifyCycleFailed(run *models.Run, retryIn time.Duration)
	Test() error
}
