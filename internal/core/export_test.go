package core

import (
	"context"
	"time"
)

// SetWait replaces the loop's sleep so tests control time.
func (m *Manager) SetWait(wait func(ctx context.Context, d time.Duration, wake <-chan struct{}) error) {
	m.wait = wait
}
