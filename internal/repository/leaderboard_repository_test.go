package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeaderboardInMemory(t *testing.T) {
	ctx := context.Background()
	board := NewLeaderboardRepository(nil)

	_, ok, err := board.Position(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	scores := map[uint]float64{1: 300, 2: 100, 3: 100, 4: 0}
	require.NoError(t, board.ReplaceScores(ctx, scores))

	rank, ok, err := board.Position(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Rank{Score: 300, Position: 0, Total: 4}, rank)

	// 同分用户排名相同
	r2, _, _ := board.Position(ctx, 2)
	r3, _, _ := board.Position(ctx, 3)
	assert.Equal(t, 1, r2.Position)
	assert.Equal(t, r2.Position, r3.Position)

	r4, _, _ := board.Position(ctx, 4)
	assert.Equal(t, 3, r4.Position)

	// 调用方修改原 map 不影响排行榜
	scores[4] = 1000
	r4, _, _ = board.Position(ctx, 4)
	assert.Equal(t, 3, r4.Position)

	require.NoError(t, board.ReplaceScores(ctx, map[uint]float64{9: 1}))
	_, ok, err = board.Position(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}
