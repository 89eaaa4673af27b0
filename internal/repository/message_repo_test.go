package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/playhall/lobby-chat-api/internal/models"
)

func TestMessageRepositorySaveAssignsID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMessageRepository(db)

	message := models.ChatMessage{
		ChannelID:   "global:default",
		ChannelType: "global",
		SenderID:    "user-1",
		Body:        "hello",
	}
	require.NoError(t, repo.Save(context.Background(), &message))
	require.NotEmpty(t, message.ID)

	explicit := models.ChatMessage{
		ID:          "msg-1",
		ChannelID:   "global:default",
		ChannelType: "global",
		SenderID:    "user-1",
		Body:        "again",
	}
	require.NoError(t, repo.Save(context.Background(), &explicit))
	require.Equal(t, "msg-1", explicit.ID)
}

func TestMessageRepositoryRecentByChannelReturnsAscending(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMessageRepository(db)

	base := time.Now().Add(-time.Hour).UTC()
	for i, body := range []string{"first", "second", "third"} {
		message := models.ChatMessage{
			ChannelID:   "game:pacman",
			ChannelType: "game",
			SenderID:    "user-1",
			Body:        body,
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}
		message = seeded(message)
		require.NoError(t, db.Create(&message).Error)
	}

	messages, err := repo.RecentByChannel(context.Background(), "game:pacman", 10)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	require.Equal(t, "first", messages[0].Body)
	require.Equal(t, "third", messages[2].Body)
}

func TestMessageRepositoryRecentByChannelHonoursLimit(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMessageRepository(db)

	base := time.Now().Add(-time.Hour).UTC()
	for i, body := range []string{"oldest", "middle", "newest"} {
		message := models.ChatMessage{
			ChannelID:   "global:default",
			ChannelType: "global",
			SenderID:    "user-1",
			Body:        body,
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}
		message = seeded(message)
		require.NoError(t, db.Create(&message).Error)
	}

	messages, err := repo.RecentByChannel(context.Background(), "global:default", 2)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	require.Equal(t, "middle", messages[0].Body, "expected the two most recent, oldest-first")
	require.Equal(t, "newest", messages[1].Body)
}

func TestMessageRepositoryListChannelIDsIsDistinct(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMessageRepository(db)

	for _, channelID := range []string{"global:default", "global:default", "direct:a--b", "game:pacman"} {
		message := models.ChatMessage{
			ChannelID:   channelID,
			ChannelType: "global",
			SenderID:    "user-1",
			Body:        "x",
		}
		require.NoError(t, repo.Save(context.Background(), &message))
	}

	channelIDs, err := repo.ListChannelIDs(context.Background())
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"global:default", "direct:a--b", "game:pacman"}, channelIDs)
}

func seeded(message models.ChatMessage) models.ChatMessage {
	if message.ID == "" {
		message.ID = message.ChannelID + "/" + message.Body
	}
	return message
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.ChatMessage{}, &models.User{}))
	return db
}
