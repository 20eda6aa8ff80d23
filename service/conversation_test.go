package service

import (
	"testing"

	"chatrelay/model"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePrivateIsIdempotentPerPair(t *testing.T) {
	db := newTestDB(t)
	convs := NewConversationService(db)

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")

	first, err := convs.CreatePrivate(alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, model.KindPrivate, first.Kind)
	assert.Len(t, first.Participants, 2)

	// Same pair, both argument orders, must resolve to the same conversation.
	again, err := convs.CreatePrivate(alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	reversed, err := convs.CreatePrivate(bob.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, reversed.ID)

	var count int64
	require.NoError(t, db.Model(&model.Conversation{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreatePrivateValidation(t *testing.T) {
	db := newTestDB(t)
	convs := NewConversationService(db)
	alice := seedUser(t, db, "alice")

	_, err := convs.CreatePrivate(alice.ID, alice.ID)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = convs.CreatePrivate(alice.ID, 9999)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestCreateGroupValidation(t *testing.T) {
	db := newTestDB(t)
	convs := NewConversationService(db)

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")

	_, err := convs.CreateGroup(alice.ID, "  ", []uint{bob.ID})
	assert.ErrorIs(t, err, ErrInvalidArgument, "empty name")

	_, err = convs.CreateGroup(alice.ID, "team", []uint{alice.ID})
	assert.ErrorIs(t, err, ErrInvalidArgument, "creator alone is not enough")

	_, err = convs.CreateGroup(alice.ID, "team", []uint{0})
	assert.ErrorIs(t, err, ErrInvalidArgument, "malformed id")

	_, err = convs.CreateGroup(alice.ID, "team", []uint{9999})
	assert.ErrorIs(t, err, ErrInvalidArgument, "unknown participant")

	conv, err := convs.CreateGroup(alice.ID, "team", []uint{bob.ID, bob.ID})
	require.NoError(t, err)
	assert.Equal(t, model.KindGroup, conv.Kind)
	assert.Equal(t, "team", conv.Name)
	assert.Len(t, conv.Participants, 2, "duplicates collapse")
}

func TestAddMembersIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	convs := NewConversationService(db)

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	carol := seedUser(t, db, "carol")

	conv, err := convs.CreateGroup(alice.ID, "team", []uint{bob.ID})
	require.NoError(t, err)

	grown, err := convs.AddMembers(conv.ID, alice.ID, []uint{carol.ID})
	require.NoError(t, err)
	assert.Len(t, grown.Participants, 3)

	// Re-adding an existing member succeeds without duplicating the entry.
	same, err := convs.AddMembers(conv.ID, alice.ID, []uint{carol.ID})
	require.NoError(t, err)
	assert.Len(t, same.Participants, 3)

	ids := lo.Map(same.Participants, func(u model.User, _ int) uint { return u.ID })
	assert.ElementsMatch(t, []uint{alice.ID, bob.ID, carol.ID}, ids)
}

func TestAddMembersGating(t *testing.T) {
	db := newTestDB(t)
	convs := NewConversationService(db)

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	mallory := seedUser(t, db, "mallory")
	dave := seedUser(t, db, "dave")

	conv, err := convs.CreateGroup(alice.ID, "team", []uint{bob.ID})
	require.NoError(t, err)

	_, err = convs.AddMembers(conv.ID, mallory.ID, []uint{dave.ID})
	assert.ErrorIs(t, err, ErrNotAuthorized)

	_, err = convs.AddMembers(9999, alice.ID, []uint{dave.ID})
	assert.ErrorIs(t, err, ErrNotFound)

	private, err := convs.CreatePrivate(alice.ID, bob.ID)
	require.NoError(t, err)
	_, err = convs.AddMembers(private.ID, alice.ID, []uint{dave.ID})
	assert.ErrorIs(t, err, ErrInvalidArgument, "private pairs are fixed at two")
}

func TestMembership(t *testing.T) {
	db := newTestDB(t)
	convs := NewConversationService(db)

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	mallory := seedUser(t, db, "mallory")

	conv, err := convs.CreatePrivate(alice.ID, bob.ID)
	require.NoError(t, err)

	for id, want := range map[uint]bool{alice.ID: true, bob.ID: true, mallory.ID: false} {
		member, err := convs.IsMember(conv.ID, id)
		require.NoError(t, err)
		assert.Equal(t, want, member)
	}
}

func TestResolveUnknownConversation(t *testing.T) {
	db := newTestDB(t)
	convs := NewConversationService(db)

	_, err := convs.Resolve(42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListForUser(t *testing.T) {
	db := newTestDB(t)
	convs := NewConversationService(db)

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	carol := seedUser(t, db, "carol")

	_, err := convs.CreatePrivate(alice.ID, bob.ID)
	require.NoError(t, err)
	_, err = convs.CreateGroup(alice.ID, "team", []uint{carol.ID})
	require.NoError(t, err)
	_, err = convs.CreatePrivate(bob.ID, carol.ID)
	require.NoError(t, err)

	mine, err := convs.ListForUser(alice.ID, 1, 20)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}
