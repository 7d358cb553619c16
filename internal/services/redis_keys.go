package services

import "time"

const (
	KeySession     = "session:%s:info"
	KeyProgress    = "hunt:%s:progress"
	KeySubmissions = "hunt:%s:submissions"
	KeyFinalDoc    = "hunt:%s:final"
	KeyFinalPhoto  = "hunt:%s:photo"
	KeyRateLimit   = "ratelimit:%s:%s"

	TTLSession  = 30 * 24 * time.Hour // 30 days
	TTLProgress = 30 * 24 * time.Hour // progress survives reloads for a month
	TTLFinalDoc = 30 * 24 * time.Hour
	TTLPhoto    = 7 * 24 * time.Hour

	// Keep only the most recent attempts per session.
	SubmissionLogSize = 50

	DefaultRateLimitSubmits = 60 // max 60 answer submissions per minute
)
