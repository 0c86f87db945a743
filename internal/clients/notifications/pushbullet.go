package notifications

import (
	"fmt"
	"strings"
	"time"

	"tagarr/internal/database/models"
	"tagarr/internal/utils"

	"github.com/xconstruct/go-pushbullet"
)

// PushbulletClient implements the Notifier interface for Pushbullet.
type PushbulletClient struct {
	pb     *pushbullet.Client
	logger *utils.Logger
}

// NewPushbulletClient creates a new client for sending Pushbullet notifications.
func NewPushbulletClient(apiKey string, logger *utils.Logger) *PushbulletClient {
	return &PushbulletClient{
		pb:     pushbullet.New(apiKey),
		logger: logger,
	}
}

// sendPush sends a note to all of the user's devices.
func (c *PushbulletClient) sendPush(title, body string) error {
	// The first argument to PushNote is the device iden. Empty means all devices.
	return c.pb.PushNote("", title, body)
}

// NotifyCycleComplete reports how many entities were retagged.
func (c *PushbulletClient) NotifyCycleComplete(run *models.Run) {
	title, body := CompleteMessage(run)
	if err := c.sendPush(title, body); err != nil {
		c.logger.Error("Error sending Pushbullet notification:", err)
	}
}

func (c *PushbulletClient) NotifyCycleFailed(run *models.Run, retryIn time.Duration) {
	title := "tagarr: cycle failed"
	body := fmt.Sprintf("%s\nRetrying in %s", run.Error, retryIn)
	if err := c.sendPush(title, body); err != nil {
		c.logger.Error("Error sending Pushbullet failure notification:", err)
	}
}

// Test verifies the API key is valid by fetching user info.
func (c *PushbulletClient) Test() error {
	if _, err := c.pb.Me(); err != nil {
		return fmt.Errorf("pushbullet authentication failed: %w", err)
	}
	return nil
}

// CompleteMessage builds the title and body for a finished cycle.
func CompleteMessage(run *models.Run) (string, string) {
	title := fmt.Sprintf("tagarr: updated %d/%d %s", run.Updated, run.Total, utils.Plural(run.Kind))
	var b strings.Builder
	for i, rec := range run.Records {
		if i == 10 {
			fmt.Fprintf(&b, "... and %d more\n", len(run.Records)-i)
			break
		}
		status := "ok"
		if !rec.Success {
			status = "failed"
		}
		fmt.Fprintf(&b, "%s: %s (%s)\n", rec.Title, strings.Join(rec.NewTags, ", "), status)
	}
	if b.Len() == 0 {
		b.WriteString("No tag changes")
	}
	return title, strings.TrimRight(b.String(), "\n")
}
