package keybuilder

import (
	"fmt"

	"github.com/mihdan/recrawler/internal/domain/model"
)

const (
	prefix    = "recrawler"
	rateLimit = "ratelimit"
	backlog   = "backlog"
)

// RateLimitKey identifies the last-attempt record of a (url, provider) pair.
func RateLimitKey(url string, slug model.Slug) string {
	return fmt.Sprintf("%s:%s:%s:%s", prefix, rateLimit, slug, url)
}

// BacklogKey is the sorted set holding throttled pings until their ready time.
func BacklogKey() string {
	return fmt.Sprintf("%s:%s", prefix, backlog)
}
