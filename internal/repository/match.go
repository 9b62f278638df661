package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/playgrid/reversi-backend/internal/entity"
)

var ErrMatchNotFound = errors.New("match not found")

// recentMatchesKey holds the keys of the most recently finished matches.
const (
	recentMatchesKey = "matches:recent"
	recentMatchesMax = 100
)

type MatchRepository interface {
	Record(ctx context.Context, record *entity.MatchRecord) error
	GetByKey(ctx context.Context, key string) (*entity.MatchRecord, error)
	Recent(ctx context.Context, limit int64) ([]string, error)
}

type dbMatch struct {
	client *redis.Client
}

func NewMatchRepository(client *redis.Client) MatchRepository {
	return &dbMatch{
		client: client,
	}
}

func (that *dbMatch) Record(ctx context.Context, record *entity.MatchRecord) error {
	recordJSON, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal match record: %w", err)
	}

	matchKey := "match:" + record.Key
	if err = that.client.Set(ctx, matchKey, recordJSON, 0).Err(); err != nil {
		return fmt.Errorf("failed to set match record: %w", err)
	}

	if err = that.client.LPush(ctx, recentMatchesKey, record.Key).Err(); err != nil {
		return fmt.Errorf("failed to push recent match: %w", err)
	}

	if err = that.client.LTrim(ctx, recentMatchesKey, 0, recentMatchesMax-1).Err(); err != nil {
		return fmt.Errorf("failed to trim recent matches: %w", err)
	}

	return nil
}

func (that *dbMatch) GetByKey(ctx context.Context, key string) (*entity.MatchRecord, error) {
	matchKey := "match:" + key

	response, err := that.client.Get(ctx, matchKey).Result()

	if errors.Is(err, redis.Nil) {
		return nil, ErrMatchNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get match record: %w", err)
	}

	var record entity.MatchRecord
	if err = json.Unmarshal([]byte(response), &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal match record: %w", err)
	}

	return &record, nil
}

func (that *dbMatch) Recent(ctx context.Context, limit int64) ([]string, error) {
	keys, err := that.client.LRange(ctx, recentMatchesKey, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list recent matches: %w", err)
	}

	return keys, nil
}
