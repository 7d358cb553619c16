package services

import (
	"skattjakt-backend/internal/models"
)

// ProgressStore is the durable state the hunt engine needs. RedisService is
// the production implementation; tests use an in-memory fake.
type ProgressStore interface {
	// LoadProgress returns (nil, nil) when no record exists, which means a
	// fresh, not-yet-started hunt.
	LoadProgress(sessionID string) (*models.HuntProgress, error)
	SaveProgress(progress *models.HuntProgress) error
	// AdvanceIndex moves the stored index from 'from' to 'to' atomically and
	// reports false when the stored index no longer matches 'from'.
	AdvanceIndex(sessionID string, from, to int) (bool, error)
	ClearProgress(sessionID string) error

	RecordSubmission(rec *models.SubmissionRecord) error
	SaveFinalDocument(doc *models.FinalDocument, photo []byte) error
	GetFinalDocument(sessionID string) (*models.FinalDocument, error)
}

type Cue string

const (
	CueCorrect Cue = "correct"
	CueWrong   Cue = "wrong"
	CueFinish  Cue = "finish"
)

// FeedbackSink delivers audible/haptic cues to a session. Delivery is purely
// advisory: implementations swallow failures and the engine never waits on it.
type FeedbackSink interface {
	PlayCue(sessionID string, cue Cue)
}
