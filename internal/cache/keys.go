package cache

import (
	"fmt"

	"github.com/google/uuid"
)

func RecordingKey(recordingID uuid.UUID) string {
	return fmt.Sprintf("recording:%s", recordingID)
}

func RateLimitKey(clientKey string) string {
	return fmt.Sprintf("ratelimit:%s", clientKey)
}
