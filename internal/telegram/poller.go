package telegram

import (
	"context"
	"strconv"
	"time"

	"group-access-api/internal/database"
	"group-access-api/pkg/logging"
)

// pollOffsetKey stores the next update id to request, so a restart does
// not replay updates the previous process already handled.
const pollOffsetKey = "telegram:poll_offset"

func loadPollOffset() int {
	if database.RedisClient == nil {
		return 0
	}
	raw, err := database.GetCache(context.Background(), pollOffsetKey)
	if err != nil || raw == "" {
		return 0
	}
	offset, err := strconv.Atoi(raw)
	if err != nil {
		logging.Warnf("Ignoring malformed poll offset %q", raw)
		return 0
	}
	return offset
}

func savePollOffset(offset int) {
	if database.RedisClient == nil {
		return
	}
	if err := database.SetCache(context.Background(), pollOffsetKey, strconv.Itoa(offset), 30*24*time.Hour); err != nil {
		logging.Warnf("Failed to persist poll offset: %v", err)
	}
}
