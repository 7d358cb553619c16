package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"skattjakt-backend/internal/config"
	"skattjakt-backend/internal/models"

	"github.com/redis/go-redis/v9"
)

type RedisService struct {
	client *redis.Client
	ctx    context.Context
}

func NewRedisService(cfg *config.Config) (*RedisService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	ctx := context.Background()

	_, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %v", err)
	}

	return &RedisService{
		client: client,
		ctx:    ctx,
	}, nil
}

func (s *RedisService) Close() error {
	return s.client.Close()
}

func (s *RedisService) StoreSession(session *models.SessionRecord) error {
	key := fmt.Sprintf(KeySession, session.ID)

	data, err := json.Marshal(session)
	if err != nil {
		return err
	}

	return s.client.Set(s.ctx, key, data, TTLSession).Err()
}

func (s *RedisService) GetSession(sessionID string) (*models.SessionRecord, error) {
	key := fmt.Sprintf(KeySession, sessionID)

	data, err := s.client.Get(s.ctx, key).Result()
	if err != nil {
		return nil, err
	}

	var session models.SessionRecord
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, err
	}

	session.LastAccessed = time.Now()
	updatedData, _ := json.Marshal(session)
	s.client.Set(s.ctx, key, updatedData, TTLSession)

	return &session, nil
}

// LoadProgress returns (nil, nil) when no record exists: a fresh hunt.
func (s *RedisService) LoadProgress(sessionID string) (*models.HuntProgress, error) {
	key := fmt.Sprintf(KeyProgress, sessionID)

	data, err := s.client.Get(s.ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get progress: %v", err)
	}

	var progress models.HuntProgress
	if err := json.Unmarshal([]byte(data), &progress); err != nil {
		return nil, fmt.Errorf("failed to unmarshal progress: %v", err)
	}

	return &progress, nil
}

func (s *RedisService) SaveProgress(progress *models.HuntProgress) error {
	key := fmt.Sprintf(KeyProgress, progress.SessionID)

	data, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("failed to marshal progress: %v", err)
	}

	return s.client.Set(s.ctx, key, data, TTLProgress).Err()
}

// advanceIndexScript moves current_index from ARGV[1] to ARGV[2] only when
// the stored value still matches, so a double submission advances at most
// once.
var advanceIndexScript = redis.NewScript(`
	local key = KEYS[1]
	local from = tonumber(ARGV[1])
	local to = tonumber(ARGV[2])

	local data = redis.call("GET", key)
	if not data then
		return redis.error_reply("progress not found")
	end

	local progress = cjson.decode(data)
	if progress.current_index ~= from then
		return 0
	end

	progress.current_index = to
	redis.call("SET", key, cjson.encode(progress), "KEEPTTL")

	return 1
`)

func (s *RedisService) AdvanceIndex(sessionID string, from, to int) (bool, error) {
	key := fmt.Sprintf(KeyProgress, sessionID)

	moved, err := advanceIndexScript.Run(s.ctx, s.client, []string{key}, from, to).Int()
	if err != nil {
		return false, fmt.Errorf("failed to advance index: %v", err)
	}

	return moved == 1, nil
}

func (s *RedisService) ClearProgress(sessionID string) error {
	keys := []string{
		fmt.Sprintf(KeyProgress, sessionID),
		fmt.Sprintf(KeySubmissions, sessionID),
		fmt.Sprintf(KeyFinalDoc, sessionID),
		fmt.Sprintf(KeyFinalPhoto, sessionID),
	}
	return s.client.Del(s.ctx, keys...).Err()
}

func (s *RedisService) RecordSubmission(rec *models.SubmissionRecord) error {
	key := fmt.Sprintf(KeySubmissions, rec.SessionID)

	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	s.client.LPush(s.ctx, key, data)
	s.client.LTrim(s.ctx, key, 0, SubmissionLogSize-1)
	s.client.Expire(s.ctx, key, TTLProgress)

	return nil
}

func (s *RedisService) GetSubmissions(sessionID string, limit int64) ([]*models.SubmissionRecord, error) {
	if limit <= 0 || limit > SubmissionLogSize {
		limit = SubmissionLogSize
	}

	key := fmt.Sprintf(KeySubmissions, sessionID)

	entries, err := s.client.LRange(s.ctx, key, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get submissions: %v", err)
	}

	var records []*models.SubmissionRecord
	for _, entry := range entries {
		var rec models.SubmissionRecord
		if err := json.Unmarshal([]byte(entry), &rec); err != nil {
			continue
		}
		records = append(records, &rec)
	}

	return records, nil
}

func (s *RedisService) SaveFinalDocument(doc *models.FinalDocument, photo []byte) error {
	docKey := fmt.Sprintf(KeyFinalDoc, doc.SessionID)

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal final document: %v", err)
	}

	if err := s.client.Set(s.ctx, docKey, data, TTLFinalDoc).Err(); err != nil {
		return fmt.Errorf("failed to save final document: %v", err)
	}

	photoKey := fmt.Sprintf(KeyFinalPhoto, doc.SessionID)
	if err := s.client.Set(s.ctx, photoKey, photo, TTLPhoto).Err(); err != nil {
		return fmt.Errorf("failed to save photo: %v", err)
	}

	return nil
}

func (s *RedisService) GetFinalDocument(sessionID string) (*models.FinalDocument, error) {
	key := fmt.Sprintf(KeyFinalDoc, sessionID)

	data, err := s.client.Get(s.ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("final document not found for %s", sessionID)
		}
		return nil, fmt.Errorf("failed to get final document: %v", err)
	}

	var doc models.FinalDocument
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal final document: %v", err)
	}

	return &doc, nil
}

func (s *RedisService) GetFinalPhoto(sessionID string) ([]byte, error) {
	key := fmt.Sprintf(KeyFinalPhoto, sessionID)

	data, err := s.client.Get(s.ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("photo not found for %s", sessionID)
		}
		return nil, fmt.Errorf("failed to get photo: %v", err)
	}

	return data, nil
}

func (s *RedisService) CheckRateLimit(sessionID, action string, limit int, window time.Duration) (bool, error) {
	key := fmt.Sprintf(KeyRateLimit, sessionID, action)

	count, err := s.client.Incr(s.ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit: %v", err)
	}

	if count == 1 {
		s.client.Expire(s.ctx, key, window)
	}

	return count <= int64(limit), nil
}

func (s *RedisService) DeleteSession(sessionID string) error {
	key := fmt.Sprintf(KeySession, sessionID)
	return s.client.Del(s.ctx, key).Err()
}

func (s *RedisService) ClearRateLimit(sessionID, action string) error {
	key := fmt.Sprintf(KeyRateLimit, sessionID, action)
	return s.client.Del(s.ctx, key).Err()
}
