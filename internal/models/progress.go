package models

import "time"

type HuntPhase string

const (
	PhaseNotStarted HuntPhase = "not_started"
	PhaseActive     HuntPhase = "active"
	PhaseFinal      HuntPhase = "final"
	PhaseComplete   HuntPhase = "complete"
)

// HuntProgress is the durable per-session record. Absent record means a
// fresh, not-yet-started hunt. The record is kept after completion so a
// reload shows the summary screen again; CompletedAt stays 0 until then.
type HuntProgress struct {
	SessionID      string `json:"session_id" redis:"session_id"`
	Started        bool   `json:"started" redis:"started"`
	StartTimestamp int64  `json:"start_timestamp" redis:"start_timestamp"` // epoch millis
	CurrentIndex   int    `json:"current_index" redis:"current_index"`
	CompletedAt    int64  `json:"completed_at,omitempty" redis:"completed_at"` // epoch millis
}

// Elapsed derives wall-clock elapsed time from the stored start timestamp.
// After completion the value is frozen at CompletedAt - StartTimestamp.
func (p *HuntProgress) Elapsed(now time.Time) time.Duration {
	if p == nil || !p.Started {
		return 0
	}
	if p.CompletedAt > 0 {
		return time.Duration(p.CompletedAt-p.StartTimestamp) * time.Millisecond
	}
	return time.Duration(now.UnixMilli()-p.StartTimestamp) * time.Millisecond
}

type RejectionReason string

const (
	RejectionNone              RejectionReason = ""
	RejectionIncompleteInput   RejectionReason = "incomplete_input"
	RejectionNotYetPrimeMinute RejectionReason = "not_yet_prime_minute"
	RejectionEmptyGrid         RejectionReason = "empty_grid"
)

// SubmissionResult is the transient outcome of one answer submission. The
// validator fills Correct and Rejection; the engine adds RevealHint, Hint and
// the user-facing Message copy.
type SubmissionResult struct {
	Correct    bool            `json:"correct"`
	Rejection  RejectionReason `json:"rejection,omitempty"`
	RevealHint bool            `json:"reveal_hint"`
	Hint       string          `json:"hint,omitempty"`
	Message    string          `json:"message,omitempty"`
	Cue        string          `json:"cue,omitempty"`
}

// SubmissionRecord is one entry of the per-session attempt log.
type SubmissionRecord struct {
	SessionID   string          `json:"session_id" redis:"session_id"`
	PuzzleIndex int             `json:"puzzle_index" redis:"puzzle_index"`
	Kind        PuzzleKind      `json:"kind" redis:"kind"`
	Answer      string          `json:"answer" redis:"answer"`
	Correct     bool            `json:"correct" redis:"correct"`
	Rejection   RejectionReason `json:"rejection,omitempty" redis:"rejection"`
	ElapsedMS   int64           `json:"elapsed_ms" redis:"elapsed_ms"`
	CreatedAt   time.Time       `json:"created_at" redis:"created_at"`
}

// FinalDocument is the completion record: one photo plus the two free-text
// fields, with the frozen elapsed time.
type FinalDocument struct {
	ID               string    `json:"id" redis:"id"`
	SessionID        string    `json:"session_id" redis:"session_id"`
	LatinName        string    `json:"latin_name" redis:"latin_name"`
	TeamName         string    `json:"team_name" redis:"team_name"`
	PhotoName        string    `json:"photo_name" redis:"photo_name"`
	PhotoSize        int64     `json:"photo_size" redis:"photo_size"`
	PhotoContentType string    `json:"photo_content_type" redis:"photo_content_type"`
	ElapsedMS        int64     `json:"elapsed_ms" redis:"elapsed_ms"`
	CreatedAt        time.Time `json:"created_at" redis:"created_at"`
}

// SessionRecord identifies one anonymous browser session.
type SessionRecord struct {
	ID           string    `json:"id" redis:"id"`
	CreatedAt    time.Time `json:"created_at" redis:"created_at"`
	LastAccessed time.Time `json:"last_accessed" redis:"last_accessed"`
}
