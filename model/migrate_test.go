package model_test

import (
	"testing"

	"github.com/hoshinoya/ponghub/server/model"
	"github.com/hoshinoya/ponghub/server/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestAutoMigrate_InsertAndQuery(t *testing.T) {
	db := testutil.SetupTestDB(t)

	// User
	u := &model.User{Username: "test_user", PasswordHash: "hash", Status: model.StatusOnline}
	require.NoError(t, db.Create(u).Error)
	assert.Greater(t, u.ID, int64(0))

	var found model.User
	require.NoError(t, db.First(&found, u.ID).Error)
	assert.Equal(t, "test_user", found.Username)

	// Friendship
	peer := &model.User{Username: "peer", PasswordHash: "hash"}
	require.NoError(t, db.Create(peer).Error)
	f := &model.Friendship{RequesterID: u.ID, TargetID: peer.ID, Status: model.FriendshipPending}
	require.NoError(t, db.Create(f).Error)
	assert.Greater(t, f.ID, int64(0))

	// Notification
	n := &model.Notification{
		UserID:     peer.ID,
		FromUserID: u.ID,
		Kind:       "friend_request",
		Payload:    datatypes.JSON(`{"from_user_id":1}`),
	}
	require.NoError(t, db.Create(n).Error)

	// AuditLog
	al := &model.AuditLog{TraceID: "trace-001", Action: "login"}
	require.NoError(t, db.Create(al).Error)
}

func TestUsernameUnique(t *testing.T) {
	db := testutil.SetupTestDB(t)

	require.NoError(t, db.Create(&model.User{Username: "dup", PasswordHash: "a"}).Error)
	err := db.Create(&model.User{Username: "dup", PasswordHash: "b"}).Error
	assert.Error(t, err)
}
