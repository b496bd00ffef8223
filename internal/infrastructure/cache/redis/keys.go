package redis

import (
	"fmt"
	"time"
)

// SnapshotKey ключ последнего снимка feed
func SnapshotKey(feedName string) string {
	return "devex:feed:" + feedName + ":snapshot"
}

// HistoryKey ключ кеша запроса истории.
// Время округляется до минуты для лучшего hit rate.
func HistoryKey(source string, duration time.Duration, now time.Time) string {
	bucket := now.Truncate(time.Minute).Unix()
	return fmt.Sprintf("devex:history:%s:%s:%d", source, duration, bucket)
}

// HistoryPattern шаблон всех ключей истории
const HistoryPattern = "devex:history:*"
