package sequence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShardKeyHourly(t *testing.T) {
	date := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "2026031400", ShardKey(date, 0, false))
	assert.Equal(t, "2026031409", ShardKey(date, 9, false))
	assert.Equal(t, "2026031423", ShardKey(date, 23, false))
}

func TestShardKeyDaily(t *testing.T) {
	date := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "20260314", ShardKey(date, 15, true))
}

func TestShardKeyUsesBusinessDateNotWallClock(t *testing.T) {
	// 2 AM on March 15 belongs to March 14's business day; the key must
	// carry the business date it was resolved to.
	businessDate := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "2026031402", ShardKey(businessDate, 2, false))
}
