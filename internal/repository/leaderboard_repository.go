package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/go-redis/redis/v8"
)

const (
	leaderboardKey     = "dashboard:top_learners"
	leaderboardTempKey = "dashboard:top_learners:building"
)

// Rank 用户在排行榜中的位置；Position 为严格高于该用户分数的人数
type Rank struct {
	Score    float64
	Position int
	Total    int
}

// LeaderboardRepository 综合分排行榜。rdb 为 nil 时退化为进程内存储
type LeaderboardRepository struct {
	Redis *redis.Client

	mu     sync.RWMutex
	scores map[uint]float64
}

func NewLeaderboardRepository(rdb *redis.Client) *LeaderboardRepository {
	return &LeaderboardRepository{Redis: rdb, scores: make(map[uint]float64)}
}

// ReplaceScores 整体替换排行榜内容
func (r *LeaderboardRepository) ReplaceScores(ctx context.Context, scores map[uint]float64) error {
	if r.Redis == nil {
		copied := make(map[uint]float64, len(scores))
		for id, s := range scores {
			copied[id] = s
		}
		r.mu.Lock()
		r.scores = copied
		r.mu.Unlock()
		return nil
	}

	if len(scores) == 0 {
		return r.Redis.Del(ctx, leaderboardKey).Err()
	}

	members := make([]*redis.Z, 0, len(scores))
	for id, s := range scores {
		members = append(members, &redis.Z{Score: s, Member: strconv.FormatUint(uint64(id), 10)})
	}

	// 先写临时 key 再 RENAME，读者不会看到半成品
	_, err := r.Redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, leaderboardTempKey)
		pipe.ZAdd(ctx, leaderboardTempKey, members...)
		pipe.Rename(ctx, leaderboardTempKey, leaderboardKey)
		return nil
	})
	return err
}

// Position 返回用户排名；用户不在榜上时 ok 为 false
func (r *LeaderboardRepository) Position(ctx context.Context, userID uint) (Rank, bool, error) {
	if r.Redis == nil {
		r.mu.RLock()
		defer r.mu.RUnlock()
		score, ok := r.scores[userID]
		if !ok {
			return Rank{}, false, nil
		}
		above := 0
		for _, s := range r.scores {
			if s > score {
				above++
			}
		}
		return Rank{Score: score, Position: above, Total: len(r.scores)}, true, nil
	}

	member := strconv.FormatUint(uint64(userID), 10)
	score, err := r.Redis.ZScore(ctx, leaderboardKey, member).Result()
	if errors.Is(err, redis.Nil) {
		return Rank{}, false, nil
	}
	if err != nil {
		return Rank{}, false, err
	}

	pipe := r.Redis.Pipeline()
	above := pipe.ZCount(ctx, leaderboardKey, fmt.Sprintf("(%s", strconv.FormatFloat(score, 'f', -1, 64)), "+inf")
	total := pipe.ZCard(ctx, leaderboardKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return Rank{}, false, err
	}
	return Rank{Score: score, Position: int(above.Val()), Total: int(total.Val())}, true, nil
}
