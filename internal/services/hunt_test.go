package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"skattjakt-backend/internal/models"
	"skattjakt-backend/internal/services"
)

// fakeStore is an in-memory ProgressStore for engine tests.
type fakeStore struct {
	progress    map[string]*models.HuntProgress
	submissions []*models.SubmissionRecord
	docs        map[string]*models.FinalDocument
	photos      map[string][]byte
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		progress: make(map[string]*models.HuntProgress),
		docs:     make(map[string]*models.FinalDocument),
		photos:   make(map[string][]byte),
	}
}

func (s *fakeStore) LoadProgress(sessionID string) (*models.HuntProgress, error) {
	p, ok := s.progress[sessionID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (s *fakeStore) SaveProgress(p *models.HuntProgress) error {
	cp := *p
	s.progress[p.SessionID] = &cp
	return nil
}

func (s *fakeStore) AdvanceIndex(sessionID string, from, to int) (bool, error) {
	p, ok := s.progress[sessionID]
	if !ok {
		return false, fmt.Errorf("progress not found")
	}
	if p.CurrentIndex != from {
		return false, nil
	}
	p.CurrentIndex = to
	return true, nil
}

func (s *fakeStore) ClearProgress(sessionID string) error {
	delete(s.progress, sessionID)
	delete(s.docs, sessionID)
	delete(s.photos, sessionID)
	return nil
}

func (s *fakeStore) RecordSubmission(rec *models.SubmissionRecord) error {
	s.submissions = append(s.submissions, rec)
	return nil
}

func (s *fakeStore) SaveFinalDocument(doc *models.FinalDocument, photo []byte) error {
	s.docs[doc.SessionID] = doc
	s.photos[doc.SessionID] = photo
	return nil
}

func (s *fakeStore) GetFinalDocument(sessionID string) (*models.FinalDocument, error) {
	doc, ok := s.docs[sessionID]
	if !ok {
		return nil, fmt.Errorf("final document not found")
	}
	return doc, nil
}

type fakeSink struct {
	cues []services.Cue
}

func (f *fakeSink) PlayCue(sessionID string, cue services.Cue) {
	f.cues = append(f.cues, cue)
}

func (f *fakeSink) last() services.Cue {
	if len(f.cues) == 0 {
		return ""
	}
	return f.cues[len(f.cues)-1]
}

func testCatalog() *models.Catalog {
	blank := models.MagicCell{Blank: true}
	fixed := func(v int) models.MagicCell { return models.MagicCell{Value: v} }

	return &models.Catalog{
		Puzzles: []models.PuzzleDefinition{
			{Kind: models.KindFreeText, Prompt: "Vad heter trädet?", Hint: "Vit stam", Answer: "björk"},
			{Kind: models.KindName, Prompt: "Vem hittade lappen?", Hint: "Börjar på A"},
			{Kind: models.KindMorse, Prompt: "Lyssna på koden", AudioRef: "assets/audio/morse.mp3", AnswerVariants: []string{"sos", "s o s"}},
			{
				Kind: models.KindMagicSquare, Prompt: "Fyll i kvadraten", Hint: "Summan är 15",
				Size: 3, Target: 15,
				Grid: [][]models.MagicCell{
					{blank, fixed(7), fixed(6)},
					{fixed(9), fixed(5), fixed(1)},
					{fixed(4), fixed(3), blank},
				},
			},
			{Kind: models.KindFinal, Prompt: "Fota lagets fynd och fyll i uppgifterna"},
		},
		StaticPages: map[string]models.StaticPage{
			"help": {Title: "Hjälp", Text: "Fråga funktionären.", IconRef: "assets/icons/help.png"},
		},
		ValidNames: []string{"anna"},
	}
}

func newTestEngine() (*services.HuntEngine, *fakeStore, *fakeSink) {
	store := newFakeStore()
	engine := services.NewHuntEngine(store, testCatalog())
	sink := &fakeSink{}
	engine.SetFeedbackSink(sink)
	return engine, store, sink
}

func TestStartTransition(t *testing.T) {
	engine, store, _ := newTestEngine()
	ctx := context.Background()

	state, err := engine.Start(ctx, "s1")
	if err != nil {
		t.Fatalf("failed to start: %v", err)
	}
	if state.Phase != models.PhaseActive || state.PuzzleIndex != 0 {
		t.Errorf("start should land on Active(0), got %s(%d)", state.Phase, state.PuzzleIndex)
	}
	if state.Card == nil || state.Card.Kind != models.KindFreeText {
		t.Errorf("active state should carry the puzzle card, got %+v", state.Card)
	}
	if state.ProgressLabel != "Gåta 1 av 4" {
		t.Errorf("unexpected progress label %q", state.ProgressLabel)
	}

	p := store.progress["s1"]
	if p == nil || !p.Started || p.CurrentIndex != 0 || p.StartTimestamp == 0 {
		t.Errorf("progress not persisted correctly: %+v", p)
	}

	if _, err := engine.Start(ctx, "s1"); err == nil {
		t.Error("starting twice should fail")
	}
}

func TestFreshSessionIsNotStarted(t *testing.T) {
	engine, _, _ := newTestEngine()

	state, err := engine.State(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("failed to get state: %v", err)
	}
	if state.Phase != models.PhaseNotStarted {
		t.Errorf("fresh session should be not_started, got %s", state.Phase)
	}
	if state.Intro == nil {
		t.Error("not_started state should carry the intro card")
	}
	if state.Elapsed != "00:00" {
		t.Errorf("not_started elapsed should render 00:00, got %q", state.Elapsed)
	}
}

func TestResumeFromStoredProgress(t *testing.T) {
	engine, store, _ := newTestEngine()
	start := time.Now().Add(-5 * time.Minute)

	store.SaveProgress(&models.HuntProgress{
		SessionID:      "s1",
		Started:        true,
		StartTimestamp: start.UnixMilli(),
		CurrentIndex:   3,
	})

	state, err := engine.State(context.Background(), "s1")
	if err != nil {
		t.Fatalf("failed to get state: %v", err)
	}
	if state.Phase != models.PhaseActive || state.PuzzleIndex != 3 {
		t.Errorf("resume should land on Active(3), got %s(%d)", state.Phase, state.PuzzleIndex)
	}
	if state.ElapsedMS < (5*time.Minute - time.Second).Milliseconds() {
		t.Errorf("elapsed should reflect the stored start timestamp, got %dms", state.ElapsedMS)
	}

	// An index past the last playable puzzle resumes into Final.
	store.SaveProgress(&models.HuntProgress{
		SessionID:      "s2",
		Started:        true,
		StartTimestamp: start.UnixMilli(),
		CurrentIndex:   4,
	})
	state, err = engine.State(context.Background(), "s2")
	if err != nil {
		t.Fatalf("failed to get state: %v", err)
	}
	if state.Phase != models.PhaseFinal || state.FinalForm == nil {
		t.Errorf("index past last playable should resume into Final, got %s", state.Phase)
	}
}

func TestWrongAnswerCountsAndRevealsHint(t *testing.T) {
	engine, _, sink := newTestEngine()
	ctx := context.Background()
	engine.Start(ctx, "s1")

	res, state, err := engine.Submit(ctx, "s1", &models.SubmitAnswerRequest{Answer: "gran"})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if res.Correct || res.RevealHint {
		t.Errorf("first wrong attempt should not reveal the hint, got %+v", res)
	}
	if res.Message != services.MsgWrong {
		t.Errorf("unexpected message %q", res.Message)
	}
	if sink.last() != services.CueWrong {
		t.Errorf("wrong answer should cue wrong, got %q", sink.last())
	}
	if state.Card.FailCount != 1 {
		t.Errorf("fail count should be 1, got %d", state.Card.FailCount)
	}

	res, state, _ = engine.Submit(ctx, "s1", &models.SubmitAnswerRequest{Answer: "gran"})
	if !res.RevealHint || res.Hint != "Vit stam" {
		t.Errorf("second wrong attempt should reveal the hint, got %+v", res)
	}
	if state.Card.FailCount != 2 || state.Card.Hint != "Vit stam" {
		t.Errorf("card should show the revealed hint, got %+v", state.Card)
	}

	// Index must not move on wrong answers.
	if state.PuzzleIndex != 0 {
		t.Errorf("wrong answers must not advance, got index %d", state.PuzzleIndex)
	}
}

func TestCorrectAnswerAdvancesAndResetsCounter(t *testing.T) {
	engine, _, sink := newTestEngine()
	ctx := context.Background()
	engine.Start(ctx, "s1")

	engine.Submit(ctx, "s1", &models.SubmitAnswerRequest{Answer: "fel"})

	res, state, err := engine.Submit(ctx, "s1", &models.SubmitAnswerRequest{Answer: " BJÖRK "})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if !res.Correct || res.Cue != string(services.CueCorrect) {
		t.Errorf("correct answer should advance with a correct cue, got %+v", res)
	}
	if sink.last() != services.CueCorrect {
		t.Errorf("expected correct cue, got %q", sink.last())
	}
	if state.Phase != models.PhaseActive || state.PuzzleIndex != 1 {
		t.Errorf("should be on Active(1), got %s(%d)", state.Phase, state.PuzzleIndex)
	}
	if state.Card.FailCount != 0 {
		t.Errorf("fail counter should reset on advance, got %d", state.Card.FailCount)
	}
}

func TestRejectionsDoNotConsumeAttempts(t *testing.T) {
	engine, store, sink := newTestEngine()
	ctx := context.Background()
	engine.Start(ctx, "s1")
	// Jump to the magic square.
	store.progress["s1"].CurrentIndex = 3

	res, state, err := engine.Submit(ctx, "s1", &models.SubmitAnswerRequest{Cells: []string{"2", "x"}})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if res.Rejection != models.RejectionIncompleteInput || res.Message != services.MsgFillAllCells {
		t.Errorf("unparseable cell should be a form error, got %+v", res)
	}
	if state.Card.FailCount != 0 {
		t.Errorf("form errors must not consume attempts, got fail count %d", state.Card.FailCount)
	}
	if len(sink.cues) != 0 {
		t.Errorf("form errors must not cue, got %v", sink.cues)
	}

	// A correct grid still works right after a rejection.
	res, state, _ = engine.Submit(ctx, "s1", &models.SubmitAnswerRequest{Cells: []string{"2", "8"}})
	if !res.Correct {
		t.Errorf("valid grid should be accepted, got %+v", res)
	}
	if state.Phase != models.PhaseFinal {
		t.Errorf("last playable puzzle should advance into Final, got %s", state.Phase)
	}
	if sink.last() != services.CueFinish {
		t.Errorf("advancing into Final should cue finish, got %q", sink.last())
	}
}

func TestPrimeMinuteRejectionDoesNotCount(t *testing.T) {
	engine, store, sink := newTestEngine()
	ctx := context.Background()

	// Started two minutes ago puts the session at minute 2, which is prime;
	// started one minute ago is minute 1, which is not.
	store.SaveProgress(&models.HuntProgress{
		SessionID:      "s1",
		Started:        true,
		StartTimestamp: time.Now().Add(-70 * time.Second).UnixMilli(),
		CurrentIndex:   0,
	})
	catalog := engine.Catalog()
	catalog.Puzzles[0] = models.PuzzleDefinition{Kind: models.KindPrimeMinute, Prompt: "Skriv primtalet"}

	res, state, err := engine.Submit(ctx, "s1", &models.SubmitAnswerRequest{Answer: "1"})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if res.Rejection != models.RejectionNotYetPrimeMinute || res.Message != services.MsgWaitPrime {
		t.Errorf("minute 1 should reject with wait message, got %+v", res)
	}
	if state.Card.FailCount != 0 || len(sink.cues) != 0 {
		t.Error("prime-minute rejection must not consume an attempt or cue")
	}
}

func TestEndToEndCompletion(t *testing.T) {
	engine, store, sink := newTestEngine()
	ctx := context.Background()

	if _, _, err := engine.Submit(ctx, "s1", &models.SubmitAnswerRequest{Answer: "björk"}); err == nil {
		t.Error("submitting before start should fail")
	}

	engine.Start(ctx, "s1")

	steps := []*models.SubmitAnswerRequest{
		{Answer: "björk"},
		{Answer: "  Anna  "},
		{Answer: "S O S"},
		{Cells: []string{"2", "8"}},
	}
	for i, req := range steps {
		res, _, err := engine.Submit(ctx, "s1", req)
		if err != nil {
			t.Fatalf("step %d failed: %v", i, err)
		}
		if !res.Correct {
			t.Fatalf("step %d should be correct, got %+v", i, res)
		}
	}

	state, err := engine.State(ctx, "s1")
	if err != nil {
		t.Fatalf("failed to get state: %v", err)
	}
	if state.Phase != models.PhaseFinal {
		t.Fatalf("all puzzles solved should reach Final, got %s", state.Phase)
	}
	if sink.last() != services.CueFinish {
		t.Errorf("reaching Final should cue finish, got %q", sink.last())
	}

	// Incomplete documents are refused.
	if _, err := engine.SubmitFinalDocument(ctx, "s1", "", "Lag 3", "fynd.jpg", "image/jpeg", []byte{1}); err == nil {
		t.Error("missing latin name should be refused")
	}
	if _, err := engine.SubmitFinalDocument(ctx, "s1", "Betula pendula", "Lag 3", "fynd.jpg", "image/jpeg", nil); err == nil {
		t.Error("missing photo should be refused")
	}

	state, err = engine.SubmitFinalDocument(ctx, "s1", "Betula pendula", "Lag 3", "fynd.jpg", "image/jpeg", []byte("jpegdata"))
	if err != nil {
		t.Fatalf("final document failed: %v", err)
	}
	if state.Phase != models.PhaseComplete || state.Summary == nil {
		t.Fatalf("complete document should reach Complete, got %+v", state)
	}
	if state.Summary.LatinName != "Betula pendula" || state.Summary.TeamName != "Lag 3" {
		t.Errorf("summary should carry the document fields, got %+v", state.Summary)
	}

	p := store.progress["s1"]
	doc := store.docs["s1"]
	if p.CompletedAt == 0 || doc == nil {
		t.Fatal("completion should persist the timestamp and document")
	}
	if doc.ElapsedMS != p.CompletedAt-p.StartTimestamp {
		t.Errorf("frozen elapsed should equal completion minus start, got %d", doc.ElapsedMS)
	}

	// A reload after finishing shows Complete again, with the frozen time.
	state, _ = engine.State(ctx, "s1")
	if state.Phase != models.PhaseComplete {
		t.Errorf("reload after completion should stay Complete, got %s", state.Phase)
	}
	if state.ElapsedMS != p.CompletedAt-p.StartTimestamp {
		t.Errorf("elapsed should stay frozen after completion, got %d", state.ElapsedMS)
	}

	if _, _, err := engine.Submit(ctx, "s1", &models.SubmitAnswerRequest{Answer: "x"}); err == nil {
		t.Error("submitting after completion should fail")
	}
}

// racingStore lets another submit advance the index between the engine's
// read and its own advance attempt, as two tabs replaying the same answer
// would.
type racingStore struct {
	*fakeStore
	raced bool
}

func (s *racingStore) LoadProgress(sessionID string) (*models.HuntProgress, error) {
	p, err := s.fakeStore.LoadProgress(sessionID)
	if err == nil && p != nil && p.Started && !s.raced {
		s.raced = true
		s.fakeStore.AdvanceIndex(sessionID, p.CurrentIndex, p.CurrentIndex+1)
	}
	return p, err
}

func TestLostAdvanceRaceReportsStoredState(t *testing.T) {
	store := &racingStore{fakeStore: newFakeStore()}
	engine := services.NewHuntEngine(store, testCatalog())
	ctx := context.Background()

	if _, err := engine.Start(ctx, "s1"); err != nil {
		t.Fatalf("failed to start: %v", err)
	}

	res, state, err := engine.Submit(ctx, "s1", &models.SubmitAnswerRequest{Answer: "björk"})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if !res.Correct {
		t.Errorf("the answer was correct, got %+v", res)
	}
	if res.Cue != "" {
		t.Errorf("a lost advance race must not emit a second cue, got %q", res.Cue)
	}
	if state.PuzzleIndex != 1 {
		t.Errorf("state should reflect the stored index, got %d", state.PuzzleIndex)
	}
	if store.progress["s1"].CurrentIndex != 1 {
		t.Errorf("store should have advanced exactly once, got %d", store.progress["s1"].CurrentIndex)
	}
}

func TestResetClearsSession(t *testing.T) {
	engine, _, _ := newTestEngine()
	ctx := context.Background()

	engine.Start(ctx, "s1")
	if err := engine.Reset(ctx, "s1"); err != nil {
		t.Fatalf("reset failed: %v", err)
	}

	state, _ := engine.State(ctx, "s1")
	if state.Phase != models.PhaseNotStarted {
		t.Errorf("reset session should be not_started, got %s", state.Phase)
	}
}
