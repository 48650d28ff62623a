package notification

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreAppendAndListNewestFirst(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		_, err := s.Append(ctx, &Notification{
			RecipientID: "acc-1",
			Category:    CategoryOrderCreated,
			Message:     fmt.Sprintf("message %d", i),
		})
		require.NoError(t, err)
	}
	_, err := s.Append(ctx, &Notification{
		RecipientID: "acc-2",
		Category:    CategoryOrderCreated,
		Message:     "other recipient",
	})
	require.NoError(t, err)

	list, err := s.ListByRecipient(ctx, "acc-1", false, 0)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "message 3", list[0].Message)
	assert.Equal(t, "message 1", list[2].Message)

	limited, err := s.ListByRecipient(ctx, "acc-1", false, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "message 3", limited[0].Message)
}

func TestMemoryStoreMarkReadIsIdempotent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	created, err := s.Append(ctx, &Notification{
		RecipientID: "acc-1",
		Category:    CategoryBuyerJoined,
		Message:     "joined",
	})
	require.NoError(t, err)
	assert.False(t, created.Read)

	read, err := s.MarkRead(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, read.Read)
	require.NotNil(t, read.ReadAt)

	// Second mark keeps the original timestamp.
	again, err := s.MarkRead(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, read.ReadAt, again.ReadAt)

	_, err = s.MarkRead(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreUnreadFilter(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	first, err := s.Append(ctx, &Notification{RecipientID: "acc-1", Category: CategoryOrderCompleted, Message: "a"})
	require.NoError(t, err)
	_, err = s.Append(ctx, &Notification{RecipientID: "acc-1", Category: CategoryOrderCompleted, Message: "b"})
	require.NoError(t, err)

	_, err = s.MarkRead(ctx, first.ID)
	require.NoError(t, err)

	unread, err := s.ListByRecipient(ctx, "acc-1", true, 0)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "b", unread[0].Message)
}

func TestMemoryStoreDeleteAndPurge(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	first, err := s.Append(ctx, &Notification{RecipientID: "acc-1", Category: CategoryOrderCancelled, Message: "a"})
	require.NoError(t, err)
	_, err = s.Append(ctx, &Notification{RecipientID: "acc-1", Category: CategoryOrderCancelled, Message: "b"})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, first.ID))
	assert.ErrorIs(t, s.Delete(ctx, first.ID), ErrNotFound)

	list, err := s.ListByRecipient(ctx, "acc-1", false, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	deleted, err := s.PurgeByRecipient(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	empty, err := s.ListByRecipient(ctx, "acc-1", false, 0)
	require.NoError(t, err)
	assert.Empty(t, empty)

	// Purging an empty mailbox is a zero, not an error.
	none, err := s.PurgeByRecipient(ctx, "acc-1")
	require.NoError(t, err)
	assert.Zero(t, none)
}
