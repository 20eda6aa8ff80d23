package service

import (
	"fmt"
	"testing"

	"chatrelay/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryWindow(t *testing.T) {
	tests := []struct {
		name      string
		total     int64
		page      int
		limit     int
		wantSkip  int64
		wantFetch int64
		wantPages int64
	}{
		{"first page of 45 by 20", 45, 1, 20, 25, 20, 3},
		{"second page of 45 by 20", 45, 2, 20, 5, 20, 3},
		{"last partial page of 45 by 20", 45, 3, 20, 0, 5, 3},
		{"page beyond the end", 45, 4, 20, 0, -15, 3},
		{"empty log", 0, 1, 20, 0, 0, 0},
		{"exact multiple", 40, 2, 20, 0, 20, 2},
		{"single page", 5, 1, 20, 0, 5, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			skip, fetch, pages := historyWindow(tt.total, tt.page, tt.limit)
			assert.Equal(t, tt.wantSkip, skip)
			assert.Equal(t, tt.wantFetch, fetch)
			assert.Equal(t, tt.wantPages, pages)
		})
	}
}

func TestHistoryPaginationDeterminism(t *testing.T) {
	db := newTestDB(t)
	convs := NewConversationService(db)
	store := NewMessageService(db)

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	conv, err := convs.CreatePrivate(alice.ID, bob.ID)
	require.NoError(t, err)

	const total, limit = 45, 20
	for i := 0; i < total; i++ {
		_, err := store.Append(conv.ID, &alice.ID, fmt.Sprintf("message %02d", i), false)
		require.NoError(t, err)
	}

	// Walking pages newest-block-first and prepending each block must
	// reproduce the full ascending log with no gaps or duplicates.
	var reassembled []model.Message
	page := 1
	for {
		history, err := store.History(conv.ID, page, limit)
		require.NoError(t, err)
		assert.Equal(t, int64(3), history.Pagination.TotalPages)
		assert.Equal(t, int64(total), history.Pagination.TotalMessages)

		if page > int(history.Pagination.TotalPages) {
			assert.Empty(t, history.Messages)
			break
		}
		reassembled = append(append([]model.Message{}, history.Messages...), reassembled...)
		page++
	}

	require.Len(t, reassembled, total)
	for i, msg := range reassembled {
		assert.Equal(t, fmt.Sprintf("message %02d", i), msg.Content)
	}

	first, err := store.History(conv.ID, 1, limit)
	require.NoError(t, err)
	require.Len(t, first.Messages, limit)
	assert.Equal(t, "message 25", first.Messages[0].Content)
	assert.Equal(t, "message 44", first.Messages[limit-1].Content)

	last, err := store.History(conv.ID, 3, limit)
	require.NoError(t, err)
	assert.Len(t, last.Messages, 5)
	assert.Equal(t, 5, last.Pagination.Limit)
}

func TestHistoryOrderingInvariant(t *testing.T) {
	db := newTestDB(t)
	convs := NewConversationService(db)
	store := NewMessageService(db)

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	conv, err := convs.CreatePrivate(alice.ID, bob.ID)
	require.NoError(t, err)

	// Appends land within the same wall-clock instant under load; the id
	// tie-break must still return them in append order.
	for i := 0; i < 30; i++ {
		_, err := store.Append(conv.ID, &alice.ID, fmt.Sprintf("burst %d", i), false)
		require.NoError(t, err)
	}

	history, err := store.History(conv.ID, 1, 30)
	require.NoError(t, err)
	require.Len(t, history.Messages, 30)
	for i := 1; i < len(history.Messages); i++ {
		prev, cur := history.Messages[i-1], history.Messages[i]
		assert.False(t, cur.SentAt.Before(prev.SentAt))
		assert.Greater(t, cur.ID, prev.ID)
	}
}

func TestAppendValidation(t *testing.T) {
	db := newTestDB(t)
	convs := NewConversationService(db)
	store := NewMessageService(db)

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	conv, err := convs.CreatePrivate(alice.ID, bob.ID)
	require.NoError(t, err)

	_, err = store.Append(conv.ID, &alice.ID, "   ", false)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = store.Append(9999, &alice.ID, "hello", false)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	count, err := store.CountFor(conv.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestEnrichResolvesSender(t *testing.T) {
	db := newTestDB(t)
	convs := NewConversationService(db)
	store := NewMessageService(db)

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	conv, err := convs.CreatePrivate(alice.ID, bob.ID)
	require.NoError(t, err)

	msg, err := store.Append(conv.ID, &alice.ID, "hello", false)
	require.NoError(t, err)
	assert.Nil(t, msg.Sender, "append must return the bare record")

	require.NoError(t, store.Enrich(msg))
	require.NotNil(t, msg.Sender)
	assert.Equal(t, "alice", msg.Sender.Username)
	assert.Equal(t, "alice@example.com", msg.Sender.Email)
	assert.Equal(t, "hello", msg.Content, "enrichment must not change content")
}
