package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"skattjakt-backend/internal/models"
)

// User-facing copy, mirrored by the page.
const (
	MsgWrong        = "❌ Fel – försök igen!"
	MsgWaitPrime    = "⏳ Vänta primtal-minut"
	MsgFillAllCells = "Fyll alla rutor"

	introWelcome  = "Välkommen till tävlingen!"
	introStart    = "Starta tävlingen"
	finalRequired = "Foto, latinskt namn och lagnamn krävs"
	summaryNote   = "Sammanfattning – ta skärmdump!"
)

// hintRevealThreshold is the number of wrong attempts after which the hint
// is shown.
const hintRevealThreshold = 2

// HuntEngine owns the hunt state machine: NotStarted -> Active(i) -> Final
// -> Complete. Durable progress lives in the ProgressStore; the per-puzzle
// attempt state (fail counter, hint flag) is in-memory and resets whenever
// the displayed puzzle changes.
type HuntEngine struct {
	store     ProgressStore
	catalog   *models.Catalog
	validator *Validator
	feedback  FeedbackSink

	mu       sync.Mutex
	attempts map[string]*attemptState
}

type attemptState struct {
	Index        int
	FailCount    int
	HintRevealed bool
	LastTouched  time.Time
}

func NewHuntEngine(store ProgressStore, catalog *models.Catalog) *HuntEngine {
	return &HuntEngine{
		store:     store,
		catalog:   catalog,
		validator: NewValidator(catalog.ValidNames),
		attempts:  make(map[string]*attemptState),
	}
}

// SetFeedbackSink wires the cue side-channel. The engine works without one;
// cues are advisory.
func (e *HuntEngine) SetFeedbackSink(sink FeedbackSink) {
	e.feedback = sink
}

func (e *HuntEngine) Catalog() *models.Catalog {
	return e.catalog
}

// Start begins the hunt for a session: records the start timestamp and puts
// the session on puzzle 0.
func (e *HuntEngine) Start(ctx context.Context, sessionID string) (*models.HuntState, error) {
	progress, err := e.store.LoadProgress(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %v", err)
	}
	if progress != nil && progress.Started {
		return nil, fmt.Errorf("hunt already started")
	}

	progress = &models.HuntProgress{
		SessionID:      sessionID,
		Started:        true,
		StartTimestamp: time.Now().UnixMilli(),
		CurrentIndex:   0,
	}
	if err := e.store.SaveProgress(progress); err != nil {
		return nil, fmt.Errorf("failed to save progress: %v", err)
	}

	e.resetAttempt(sessionID, 0)

	return e.buildState(progress), nil
}

// State reconstructs the current render state. A started record resumes
// directly into Active/Final/Complete; elapsed time is always wall-clock
// derived from the stored start timestamp.
func (e *HuntEngine) State(ctx context.Context, sessionID string) (*models.HuntState, error) {
	progress, err := e.store.LoadProgress(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %v", err)
	}
	return e.buildState(progress), nil
}

// Submit validates one answer attempt against the current puzzle. Correct
// answers advance the index atomically; wrong answers bump the fail counter
// and may reveal the hint. Form and timing rejections (incomplete grid,
// non-prime minute) touch neither counter nor cue.
func (e *HuntEngine) Submit(ctx context.Context, sessionID string, req *models.SubmitAnswerRequest) (*models.SubmissionResult, *models.HuntState, error) {
	progress, err := e.store.LoadProgress(sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load progress: %v", err)
	}

	switch e.phaseFor(progress) {
	case models.PhaseNotStarted:
		return nil, nil, fmt.Errorf("hunt not started")
	case models.PhaseFinal:
		return nil, nil, fmt.Errorf("all puzzles solved, submit the final document")
	case models.PhaseComplete:
		return nil, nil, fmt.Errorf("hunt already completed")
	}

	idx := progress.CurrentIndex
	puzzle := &e.catalog.Puzzles[idx]
	if err := req.Validate(puzzle.Kind); err != nil {
		return nil, nil, err
	}

	elapsed := progress.Elapsed(time.Now())
	result := e.validator.Validate(puzzle, req, elapsed)

	if err := e.store.RecordSubmission(&models.SubmissionRecord{
		SessionID:   sessionID,
		PuzzleIndex: idx,
		Kind:        puzzle.Kind,
		Answer:      strings.TrimSpace(req.Answer),
		Correct:     result.Correct,
		Rejection:   result.Rejection,
		ElapsedMS:   elapsed.Milliseconds(),
		CreatedAt:   time.Now(),
	}); err != nil {
		log.Printf("failed to record submission for %s: %v", sessionID, err)
	}

	switch {
	case result.Rejection == models.RejectionNotYetPrimeMinute:
		result.Message = MsgWaitPrime

	case result.Rejection != models.RejectionNone:
		result.Message = MsgFillAllCells

	case result.Correct:
		to := idx + 1
		moved, err := e.store.AdvanceIndex(sessionID, idx, to)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to advance: %v", err)
		}
		if moved {
			progress.CurrentIndex = to
			e.resetAttempt(sessionID, to)

			cue := CueCorrect
			if to >= e.catalog.FinalIndex() {
				cue = CueFinish
			}
			e.playCue(sessionID, cue)
			result.Cue = string(cue)
		} else {
			// A replayed submit lost the advance race; the store already
			// holds the newer index, so report state from there.
			latest, lerr := e.store.LoadProgress(sessionID)
			if lerr == nil && latest != nil {
				progress = latest
			}
		}

	default:
		att := e.attempt(sessionID, idx)
		att.FailCount++
		if att.FailCount >= hintRevealThreshold {
			att.HintRevealed = true
		}
		result.RevealHint = att.HintRevealed
		if att.HintRevealed {
			result.Hint = puzzle.Hint
		}
		result.Message = MsgWrong
		e.playCue(sessionID, CueWrong)
		result.Cue = string(CueWrong)
	}

	return &result, e.buildState(progress), nil
}

// SubmitFinalDocument handles the documentation step: exactly one photo plus
// the two non-empty text fields. On success the elapsed time is frozen and
// the hunt transitions to Complete. The progress record is kept so a reload
// shows the summary again; Reset starts over.
func (e *HuntEngine) SubmitFinalDocument(ctx context.Context, sessionID, latinName, teamName, photoName, contentType string, photo []byte) (*models.HuntState, error) {
	progress, err := e.store.LoadProgress(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %v", err)
	}

	switch e.phaseFor(progress) {
	case models.PhaseNotStarted, models.PhaseActive:
		return nil, fmt.Errorf("final document not accepted yet")
	case models.PhaseComplete:
		return nil, fmt.Errorf("hunt already completed")
	}

	now := time.Now()
	doc := &models.FinalDocument{
		ID:               models.GenerateDocumentID(),
		SessionID:        sessionID,
		LatinName:        strings.TrimSpace(latinName),
		TeamName:         strings.TrimSpace(teamName),
		PhotoName:        photoName,
		PhotoSize:        int64(len(photo)),
		PhotoContentType: contentType,
		ElapsedMS:        now.UnixMilli() - progress.StartTimestamp,
		CreatedAt:        now,
	}
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %v", finalRequired, err)
	}

	if err := e.store.SaveFinalDocument(doc, photo); err != nil {
		return nil, fmt.Errorf("failed to save final document: %v", err)
	}

	progress.CompletedAt = now.UnixMilli()
	if err := e.store.SaveProgress(progress); err != nil {
		return nil, fmt.Errorf("failed to save progress: %v", err)
	}

	e.dropAttempt(sessionID)

	return e.buildState(progress), nil
}

// Reset clears a session's hunt state entirely.
func (e *HuntEngine) Reset(ctx context.Context, sessionID string) error {
	if err := e.store.ClearProgress(sessionID); err != nil {
		return fmt.Errorf("failed to clear progress: %v", err)
	}
	e.dropAttempt(sessionID)
	return nil
}

// CleanupStaleAttempts prunes in-memory attempt state for sessions idle
// longer than maxAge. Durable progress is untouched.
func (e *HuntEngine) CleanupStaleAttempts(maxAge time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for id, att := range e.attempts {
		if time.Since(att.LastTouched) > maxAge {
			delete(e.attempts, id)
		}
	}
}

func (e *HuntEngine) phaseFor(progress *models.HuntProgress) models.HuntPhase {
	if progress == nil || !progress.Started {
		return models.PhaseNotStarted
	}
	if progress.CompletedAt > 0 {
		return models.PhaseComplete
	}
	if progress.CurrentIndex >= e.catalog.FinalIndex() {
		return models.PhaseFinal
	}
	return models.PhaseActive
}

func (e *HuntEngine) buildState(progress *models.HuntProgress) *models.HuntState {
	phase := e.phaseFor(progress)
	elapsed := progress.Elapsed(time.Now())

	state := &models.HuntState{
		Phase:       phase,
		PuzzleCount: e.catalog.PlayableCount(),
		ElapsedMS:   elapsed.Milliseconds(),
		Elapsed:     models.FormatElapsed(elapsed),
	}

	switch phase {
	case models.PhaseNotStarted:
		state.Intro = &models.IntroCard{
			WelcomeText: introWelcome,
			StartLabel:  introStart,
			IconRef:     "assets/icons/icon-512.png",
		}

	case models.PhaseActive:
		idx := progress.CurrentIndex
		state.PuzzleIndex = idx
		state.ProgressLabel = models.ProgressLabel(idx, e.catalog.PlayableCount())
		state.Card = e.buildCard(progress.SessionID, idx)

	case models.PhaseFinal:
		state.PuzzleIndex = e.catalog.FinalIndex()
		final := e.catalog.Puzzles[e.catalog.FinalIndex()]
		state.FinalForm = &models.FinalForm{
			Prompt:          final.Prompt,
			PhotoField:      "photo",
			LatinNameField:  "latin_name",
			TeamNameField:   "team_name",
			SubmitLabel:     "Skicka",
			RequiredMessage: finalRequired,
		}

	case models.PhaseComplete:
		state.PuzzleIndex = e.catalog.FinalIndex()
		summary := &models.CompletionSummary{
			ElapsedMS: elapsed.Milliseconds(),
			Elapsed:   models.FormatElapsed(elapsed),
			Note:      summaryNote,
		}
		if doc, err := e.store.GetFinalDocument(progress.SessionID); err == nil && doc != nil {
			summary.LatinName = doc.LatinName
			summary.TeamName = doc.TeamName
			summary.PhotoName = doc.PhotoName
		}
		state.Summary = summary
	}

	return state
}

func (e *HuntEngine) buildCard(sessionID string, idx int) *models.PuzzleCard {
	p := &e.catalog.Puzzles[idx]
	att := e.attempt(sessionID, idx)

	card := &models.PuzzleCard{
		Kind:      p.Kind,
		Prompt:    p.Prompt,
		FailCount: att.FailCount,
	}
	if att.HintRevealed {
		card.Hint = p.Hint
	}

	switch p.Kind {
	case models.KindNumeric, models.KindCount:
		card.ImageRef = p.ImageRef
	case models.KindSteganographic:
		// The page ships the image blacked out until tapped.
		card.ImageRef = p.ImageRef
		card.Revealable = true
	case models.KindAudioReversed, models.KindMorse:
		card.AudioRef = p.AudioRef
	case models.KindMagicSquare:
		card.Size = p.Size
		card.Target = p.Target
		card.Grid = p.Grid
	}

	return card
}

func (e *HuntEngine) attempt(sessionID string, idx int) *attemptState {
	e.mu.Lock()
	defer e.mu.Unlock()

	att, ok := e.attempts[sessionID]
	if !ok || att.Index != idx {
		att = &attemptState{Index: idx}
		e.attempts[sessionID] = att
	}
	att.LastTouched = time.Now()
	return att
}

func (e *HuntEngine) resetAttempt(sessionID string, idx int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.attempts[sessionID] = &attemptState{Index: idx, LastTouched: time.Now()}
}

func (e *HuntEngine) dropAttempt(sessionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.attempts, sessionID)
}

func (e *HuntEngine) playCue(sessionID string, cue Cue) {
	if e.feedback != nil {
		e.feedback.PlayCue(sessionID, cue)
	}
}
