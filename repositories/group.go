//go:generate go run go.uber.org/mock/mockgen -source=group.go -destination=../mocks/mock_group_repository.go -package=mocks
package repositories

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"huddle/domain"
	"huddle/errors"
	"slices"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IGroupRepository interface {
	EnsureGroup(ctx context.Context, name, description string, isAnonymous bool) (domain.Group, error)
	GetGroup(ctx context.Context, groupID domain.GroupID) (domain.Group, error)
	AddMember(ctx context.Context, groupID domain.GroupID, userID string) error
	GetMembers(ctx context.Context, groupID domain.GroupID) ([]domain.Membership, error)
}

type diskGroup struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsAnonymous bool      `json:"is_anonymous"`
	CreatedAt   time.Time `json:"created_at"`
}

type GroupRepository struct {
	db *badger.DB
}

func NewGroupRepository(db *badger.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

func groupKey(id domain.GroupID) []byte { return []byte("group:" + string(id)) }

func groupNameKey(name string) []byte { return []byte("groupname:" + name) }

// memberPrefix hex encodes the group like message keys do.
func memberPrefix(id domain.GroupID) []byte { return []byte(fmt.Sprintf("member:%x:", string(id))) }

func memberKey(id domain.GroupID, userID string) []byte {
	return append(memberPrefix(id), userID...)
}

// EnsureGroup returns the group with this name, creating it on first use.
func (g *GroupRepository) EnsureGroup(_ context.Context, name, description string, isAnonymous bool) (domain.Group, error) {
	var group diskGroup
	err := g.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(groupNameKey(name))
		switch {
		case err == nil:
			id, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			return readGroup(txn, domain.GroupID(id), &group)
		case !stderrors.Is(err, badger.ErrKeyNotFound):
			return err
		}

		group = diskGroup{
			ID:          uuid.NewString(),
			Name:        name,
			Description: description,
			IsAnonymous: isAnonymous,
			CreatedAt:   time.Now().UTC(),
		}
		data, err := json.Marshal(group)
		if err != nil {
			return err
		}
		if err := txn.Set(groupNameKey(name), []byte(group.ID)); err != nil {
			return err
		}
		return txn.Set(groupKey(domain.GroupID(group.ID)), data)
	})
	if err != nil {
		return domain.Group{}, err
	}
	return toDomainGroup(group), nil
}

func (g *GroupRepository) GetGroup(_ context.Context, groupID domain.GroupID) (domain.Group, error) {
	var group diskGroup
	err := g.db.View(func(txn *badger.Txn) error {
		return readGroup(txn, groupID, &group)
	})
	if err != nil {
		return domain.Group{}, err
	}
	return toDomainGroup(group), nil
}

// AddMember records the membership once, a second call keeps the first join date.
func (g *GroupRepository) AddMember(_ context.Context, groupID domain.GroupID, userID string) error {
	return g.db.Update(func(txn *badger.Txn) error {
		if err := readGroup(txn, groupID, &diskGroup{}); err != nil {
			return err
		}
		_, err := txn.Get(memberKey(groupID, userID))
		if err == nil {
			return nil
		}
		if !stderrors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		joinedAt, err := time.Now().UTC().MarshalText()
		if err != nil {
			return err
		}
		return txn.Set(memberKey(groupID, userID), joinedAt)
	})
}

// GetMembers lists the memberships of a group, oldest first.
func (g *GroupRepository) GetMembers(_ context.Context, groupID domain.GroupID) ([]domain.Membership, error) {
	var members []domain.Membership
	err := g.db.View(func(txn *badger.Txn) error {
		if err := readGroup(txn, groupID, &diskGroup{}); err != nil {
			return err
		}
		prefix := memberPrefix(groupID)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			member := domain.Membership{
				GroupID: groupID,
				UserID:  strings.TrimPrefix(string(item.Key()), string(prefix)),
			}
			err := item.Value(func(val []byte) error {
				return member.JoinedAt.UnmarshalText(val)
			})
			if err != nil {
				return err
			}
			members = append(members, member)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(members, func(a, b domain.Membership) int {
		return a.JoinedAt.Compare(b.JoinedAt)
	})
	return members, nil
}

func readGroup(txn *badger.Txn, groupID domain.GroupID, group *diskGroup) error {
	item, err := txn.Get(groupKey(groupID))
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return errors.ErrGroupNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, group)
	})
}

func toDomainGroup(g diskGroup) domain.Group {
	return domain.Group{
		ID:          domain.GroupID(g.ID),
		Name:        g.Name,
		Description: g.Description,
		IsAnonymous: g.IsAnonymous,
		CreatedAt:   g.CreatedAt,
	}
}
