// Package events defines the facts and jobs the engine exchanges with its
// collaborators over the message bus.
package events

import "time"

// Topics.
const (
	// TopicLinkClicked carries best-effort click facts for downstream
	// consumers. Nothing in the redirect path depends on delivery.
	TopicLinkClicked = "link.clicked"

	// TopicShortenRequested carries deferred creation work from the API to
	// the background worker.
	TopicShortenRequested = "shorten.requested"
)

// LinkClickedEvent is published after a successful resolution.
type LinkClickedEvent struct {
	Code        string    `json:"code"`
	OriginalURL string    `json:"originalUrl"`
	TenantID    int64     `json:"tenantId"`
	ClientIP    string    `json:"clientIp,omitempty"`
	UserAgent   string    `json:"userAgent,omitempty"`
	Referrer    string    `json:"referrer,omitempty"`
	ClickedAt   time.Time `json:"clickedAt"`
}

// ShortenRequestedJob is the deferred unit of work scheduled by the async
// shorten path. The lock key travels with the job so the worker can release
// it once the mapping is durable.
type ShortenRequestedJob struct {
	TenantID    int64     `json:"tenantId"`
	URL         string    `json:"url"`
	Code        string    `json:"code"`
	LockKey     string    `json:"lockKey"`
	RequestedAt time.Time `json:"requestedAt"`
}
