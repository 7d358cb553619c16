package services_test

import (
	"testing"
	"time"

	"skattjakt-backend/internal/config"
	"skattjakt-backend/internal/models"
	"skattjakt-backend/internal/services"
)

func setupRedis(t *testing.T) *services.RedisService {
	t.Helper()

	cfg := &config.Config{
		RedisURL: "localhost:6379",
		RedisDB:  1,
	}

	svc, err := services.NewRedisService(cfg)
	if err != nil {
		t.Skipf("Redis not available, skipping: %v", err)
	}

	t.Cleanup(func() {
		svc.Close()
	})

	return svc
}

func TestProgressRoundtrip(t *testing.T) {
	svc := setupRedis(t)
	sessionID := "test-progress-roundtrip"
	defer svc.ClearProgress(sessionID)

	// Absent progress is a fresh hunt, not an error.
	progress, err := svc.LoadProgress(sessionID)
	if err != nil {
		t.Fatalf("load on absent key failed: %v", err)
	}
	if progress != nil {
		t.Fatalf("absent progress should be nil, got %+v", progress)
	}

	saved := &models.HuntProgress{
		SessionID:      sessionID,
		Started:        true,
		StartTimestamp: time.Now().UnixMilli(),
		CurrentIndex:   2,
	}
	if err := svc.SaveProgress(saved); err != nil {
		t.Fatalf("failed to save progress: %v", err)
	}

	progress, err = svc.LoadProgress(sessionID)
	if err != nil {
		t.Fatalf("failed to load progress: %v", err)
	}
	if progress == nil || progress.CurrentIndex != 2 || !progress.Started {
		t.Errorf("loaded progress does not match saved: %+v", progress)
	}
	if progress.StartTimestamp != saved.StartTimestamp {
		t.Errorf("start timestamp changed across the roundtrip: %d vs %d",
			progress.StartTimestamp, saved.StartTimestamp)
	}
}

func TestAdvanceIndexIsAtomic(t *testing.T) {
	svc := setupRedis(t)
	sessionID := "test-advance-index"
	defer svc.ClearProgress(sessionID)

	svc.SaveProgress(&models.HuntProgress{
		SessionID:      sessionID,
		Started:        true,
		StartTimestamp: time.Now().UnixMilli(),
		CurrentIndex:   3,
	})

	moved, err := svc.AdvanceIndex(sessionID, 3, 4)
	if err != nil {
		t.Fatalf("advance failed: %v", err)
	}
	if !moved {
		t.Fatal("first advance should move the index")
	}

	// A replayed submission carries the stale 'from' and must be a no-op.
	moved, err = svc.AdvanceIndex(sessionID, 3, 4)
	if err != nil {
		t.Fatalf("stale advance failed: %v", err)
	}
	if moved {
		t.Error("stale advance should not move the index")
	}

	progress, _ := svc.LoadProgress(sessionID)
	if progress.CurrentIndex != 4 {
		t.Errorf("index should be 4 after one advance, got %d", progress.CurrentIndex)
	}
}

func TestAdvanceIndexWithoutProgress(t *testing.T) {
	svc := setupRedis(t)

	if _, err := svc.AdvanceIndex("test-advance-missing", 0, 1); err == nil {
		t.Error("advancing a nonexistent session should fail")
	}
}

func TestSubmissionLog(t *testing.T) {
	svc := setupRedis(t)
	sessionID := "test-submission-log"
	defer svc.ClearProgress(sessionID)

	for i := 0; i < 3; i++ {
		err := svc.RecordSubmission(&models.SubmissionRecord{
			SessionID:   sessionID,
			PuzzleIndex: i,
			Kind:        models.KindFreeText,
			Answer:      "gissning",
			Correct:     i == 2,
			CreatedAt:   time.Now(),
		})
		if err != nil {
			t.Fatalf("failed to record submission %d: %v", i, err)
		}
	}

	records, err := svc.GetSubmissions(sessionID, 10)
	if err != nil {
		t.Fatalf("failed to get submissions: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	// Newest first.
	if records[0].PuzzleIndex != 2 || !records[0].Correct {
		t.Errorf("latest record should be the correct one, got %+v", records[0])
	}
}

func TestFinalDocumentRoundtrip(t *testing.T) {
	svc := setupRedis(t)
	sessionID := "test-final-doc"
	defer svc.ClearProgress(sessionID)

	doc := &models.FinalDocument{
		ID:               models.GenerateDocumentID(),
		SessionID:        sessionID,
		LatinName:        "Betula pendula",
		TeamName:         "Lag 3",
		PhotoName:        "fynd.jpg",
		PhotoSize:        8,
		PhotoContentType: "image/jpeg",
		ElapsedMS:        754000,
		CreatedAt:        time.Now(),
	}
	if err := svc.SaveFinalDocument(doc, []byte("jpegdata")); err != nil {
		t.Fatalf("failed to save final document: %v", err)
	}

	loaded, err := svc.GetFinalDocument(sessionID)
	if err != nil {
		t.Fatalf("failed to get final document: %v", err)
	}
	if loaded.LatinName != doc.LatinName || loaded.ElapsedMS != doc.ElapsedMS {
		t.Errorf("loaded document does not match: %+v", loaded)
	}

	photo, err := svc.GetFinalPhoto(sessionID)
	if err != nil {
		t.Fatalf("failed to get photo: %v", err)
	}
	if string(photo) != "jpegdata" {
		t.Errorf("photo bytes do not match, got %q", photo)
	}
}

func TestClearProgressRemovesEverything(t *testing.T) {
	svc := setupRedis(t)
	sessionID := "test-clear"

	svc.SaveProgress(&models.HuntProgress{SessionID: sessionID, Started: true, StartTimestamp: 1, CurrentIndex: 1})
	svc.RecordSubmission(&models.SubmissionRecord{SessionID: sessionID, CreatedAt: time.Now()})
	svc.SaveFinalDocument(&models.FinalDocument{SessionID: sessionID, LatinName: "x", TeamName: "y", PhotoSize: 1}, []byte{1})

	if err := svc.ClearProgress(sessionID); err != nil {
		t.Fatalf("failed to clear: %v", err)
	}

	if progress, _ := svc.LoadProgress(sessionID); progress != nil {
		t.Error("progress should be gone after clear")
	}
	if records, _ := svc.GetSubmissions(sessionID, 10); len(records) != 0 {
		t.Error("submission log should be gone after clear")
	}
	if _, err := svc.GetFinalDocument(sessionID); err == nil {
		t.Error("final document should be gone after clear")
	}
}

func TestRateLimit(t *testing.T) {
	svc := setupRedis(t)
	sessionID := "test-rate-limit"
	action := "/api/hunt/submit"
	defer svc.ClearRateLimit(sessionID, action)

	for i := 0; i < 3; i++ {
		allowed, err := svc.CheckRateLimit(sessionID, action, 3, time.Minute)
		if err != nil {
			t.Fatalf("rate limit check %d failed: %v", i, err)
		}
		if !allowed {
			t.Fatalf("request %d should be within the limit", i)
		}
	}

	allowed, err := svc.CheckRateLimit(sessionID, action, 3, time.Minute)
	if err != nil {
		t.Fatalf("rate limit check failed: %v", err)
	}
	if allowed {
		t.Error("fourth request should exceed the limit of 3")
	}
}

func TestSessionRoundtrip(t *testing.T) {
	svc := setupRedis(t)
	sessionID := "test-session-roundtrip"
	defer svc.DeleteSession(sessionID)

	now := time.Now()
	err := svc.StoreSession(&models.SessionRecord{
		ID:           sessionID,
		CreatedAt:    now,
		LastAccessed: now,
	})
	if err != nil {
		t.Fatalf("failed to store session: %v", err)
	}

	session, err := svc.GetSession(sessionID)
	if err != nil {
		t.Fatalf("failed to get session: %v", err)
	}
	if session.ID != sessionID {
		t.Errorf("session ID mismatch: %s", session.ID)
	}
}
