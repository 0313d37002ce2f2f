package notify

import (
	"context"
	"testing"
	"time"

	"github.com/hoshinoya/ponghub/server/model"
	"github.com/hoshinoya/ponghub/server/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func nop() *zap.Logger { l, _ := zap.NewDevelopment(); return l }

func TestRecordAndList(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := NewService(db, nop())
	ctx := context.Background()

	svc.Record(ctx, 2, 1, "friend_request", map[string]int64{"from_user_id": 1})
	svc.Record(ctx, 2, 3, "friend_accept", map[string]int64{"from_user_id": 3})
	svc.Record(ctx, 4, 1, "friend_request", nil)

	rows, err := svc.ListFor(ctx, 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	// Newest first.
	assert.Equal(t, "friend_accept", rows[0].Kind)
	assert.Equal(t, "friend_request", rows[1].Kind)

	rows, err = svc.ListFor(ctx, 4)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestAck(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := NewService(db, nop())
	ctx := context.Background()

	svc.Record(ctx, 2, 1, "friend_request", nil)
	rows, err := svc.ListFor(ctx, 2)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	require.NoError(t, svc.Ack(ctx, 2, rows[0].ID))

	rows, err = svc.ListFor(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestAck_WrongOwner(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := NewService(db, nop())
	ctx := context.Background()

	svc.Record(ctx, 2, 1, "friend_request", nil)
	rows, err := svc.ListFor(ctx, 2)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.ErrorIs(t, svc.Ack(ctx, 3, rows[0].ID), ErrNotFound)
	assert.ErrorIs(t, svc.Ack(ctx, 2, 999), ErrNotFound)
}

func TestPurgeOlderThan(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := NewService(db, nop())
	ctx := context.Background()

	old := &model.Notification{
		UserID: 2, FromUserID: 1, Kind: "friend_request",
		CreatedAt: time.Now().Add(-48 * time.Hour),
	}
	require.NoError(t, db.Create(old).Error)
	svc.Record(ctx, 2, 1, "friend_accept", nil)

	n, err := svc.PurgeOlderThan(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	rows, err := svc.ListFor(ctx, 2)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "friend_accept", rows[0].Kind)
}
