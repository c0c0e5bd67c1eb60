package settle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDedup_MarkThenSeen(t *testing.T) {
	d := NewDedup(time.Hour)

	assert.False(t, d.Seen("pay-1"))
	d.Mark("pay-1")
	assert.True(t, d.Seen("pay-1"))
	assert.False(t, d.Seen("pay-2"))
}

func TestDedup_ExpiredEntriesNotSeen(t *testing.T) {
	d := NewDedup(time.Nanosecond)

	d.Mark("pay-1")
	time.Sleep(time.Millisecond)
	assert.False(t, d.Seen("pay-1"))
}

func TestDedup_CleanupDropsExpired(t *testing.T) {
	d := NewDedup(time.Nanosecond)

	d.Mark("pay-1")
	d.Mark("pay-2")
	time.Sleep(time.Millisecond)
	d.Cleanup()

	d.mu.Lock()
	defer d.mu.Unlock()
	assert.Empty(t, d.settled)
}
