package cache

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/strovahq/challenge-engine/internal/core/domain"
)

// LeaderboardTTL keeps boards fresh without recomputing on every read.
// Writes to any linked habit invalidate the board eagerly, so the TTL only
// covers clock-driven drift (a challenge window closing mid-cache).
const LeaderboardTTL = 30 * time.Second

type RedisLeaderboardCache struct {
	client *redis.Client
}

func NewRedisLeaderboardCache(client *redis.Client) *RedisLeaderboardCache {
	return &RedisLeaderboardCache{client: client}
}

func boardKey(challengeID string) string {
	return "leaderboard:" + challengeID
}

func (c *RedisLeaderboardCache) Get(ctx context.Context, challengeID string) (*domain.Leaderboard, bool) {
	payload, err := c.client.Get(ctx, boardKey(challengeID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("Leaderboard cache: read failed for %s: %v", challengeID, err)
		}
		return nil, false
	}

	var board domain.Leaderboard
	if err := json.Unmarshal(payload, &board); err != nil {
		log.Printf("Leaderboard cache: corrupt payload for %s: %v", challengeID, err)
		return nil, false
	}

	return &board, true
}

// Set is best effort: a cache write failure degrades to recomputation on
// the next read, never to a wrong board.
func (c *RedisLeaderboardCache) Set(ctx context.Context, board *domain.Leaderboard) {
	payload, err := json.Marshal(board)
	if err != nil {
		log.Printf("Leaderboard cache: marshal failed for %s: %v", board.ChallengeID, err)
		return
	}

	if err := c.client.Set(ctx, boardKey(board.ChallengeID), payload, LeaderboardTTL).Err(); err != nil {
		log.Printf("Leaderboard cache: write failed for %s: %v", board.ChallengeID, err)
	}
}

func (c *RedisLeaderboardCache) Invalidate(ctx context.Context, challengeID string) error {
	return c.client.Del(ctx, boardKey(challengeID)).Err()
}
