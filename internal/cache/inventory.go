package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	TokenDisplayKeyPrefix    = "token_display:%s"
	MentionDebounceKeyPrefix = "mention_debounce:%d:%s:%d"
	ImportStatusKeyPrefix    = "board_import:%s"
	LabelCatalogKey          = "labels:all"
)

const (
	ImportStatusTTL = 24 * time.Hour
	LabelCatalogTTL = 5 * time.Minute
)

func TokenDisplayKey(displayID string) string {
	return fmt.Sprintf(TokenDisplayKeyPrefix, displayID)
}

// MentionDebounceKey identifies the quiet period of mention notifications for one user on one target.
func MentionDebounceKey(userID uint, targetType string, targetID uint) string {
	return fmt.Sprintf(MentionDebounceKeyPrefix, userID, targetType, targetID)
}

func ImportStatusKey(runID string) string {
	return fmt.Sprintf(ImportStatusKeyPrefix, runID)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateLabels(ctx context.Context) {
	Invalidate(ctx, LabelCatalogKey)
}
