package repositories_test

import (
	"context"
	"huddle/domain"
	"huddle/errors"
	"huddle/repositories"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGroupRepository_EnsureGroup_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := repositories.NewGroupRepository(openBadger(t))

	first, err := repository.EnsureGroup(ctx, "Fun Friday Group", "Weekly fun", true)
	req.NoError(err)
	req.NotEmpty(first.ID)
	req.True(first.IsAnonymous)

	// The second call keeps the original attributes
	second, err := repository.EnsureGroup(ctx, "Fun Friday Group", "changed", false)
	req.NoError(err)
	req.Equal(first, second)

	fetched, err := repository.GetGroup(ctx, first.ID)
	req.NoError(err)
	req.Equal(first, fetched)
}

func TestGroupRepository_GetGroup_Unknown(t *testing.T) {
	_, err := repositories.NewGroupRepository(openBadger(t)).GetGroup(context.Background(), "nope")
	require.ErrorIs(t, err, errors.ErrGroupNotFound)
}

func TestGroupRepository_Members(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := repositories.NewGroupRepository(openBadger(t))
	group, err := repository.EnsureGroup(ctx, "Fun Friday Group", "", true)
	req.NoError(err)
	other, err := repository.EnsureGroup(ctx, "Other", "", false)
	req.NoError(err)

	// Given bob then alice join, bob twice
	req.NoError(repository.AddMember(ctx, group.ID, "bob"))
	req.NoError(repository.AddMember(ctx, group.ID, "alice"))
	req.NoError(repository.AddMember(ctx, group.ID, "bob"))
	req.NoError(repository.AddMember(ctx, other.ID, "carol"))

	// Then both are listed once, in join order
	members, err := repository.GetMembers(ctx, group.ID)
	req.NoError(err)
	req.Len(members, 2)
	req.Equal("bob", members[0].UserID)
	req.Equal("alice", members[1].UserID)
	req.Equal(group.ID, members[0].GroupID)
	req.False(members[0].JoinedAt.After(members[1].JoinedAt))

	members, err = repository.GetMembers(ctx, other.ID)
	req.NoError(err)
	req.Len(members, 1)
	req.Equal("carol", members[0].UserID)
}

func TestGroupRepository_Members_Unknown_Group(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := repositories.NewGroupRepository(openBadger(t))

	req.ErrorIs(repository.AddMember(ctx, domain.GroupID("nope"), "alice"), errors.ErrGroupNotFound)
	_, err := repository.GetMembers(ctx, "nope")
	req.ErrorIs(err, errors.ErrGroupNotFound)
}
