//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"huddle/domain"
	"huddle/errors"
	"log/slog"
	"slices"
	"time"

	"github.com/abadojack/whatlanggo"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IMessageRepository interface {
	CreateMessage(ctx context.Context, groupID domain.GroupID, senderID, content string,
		messageType domain.MessageType, isAnonymous bool) (domain.Message, error)
	GetMessages(ctx context.Context, groupID domain.GroupID, limit int) ([]domain.Message, error)
	GetMessage(ctx context.Context, messageID uuid.UUID) (domain.Message, error)
	DeleteMessage(ctx context.Context, messageID uuid.UUID) error
}

type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) *MessageRepository {
	return &MessageRepository{db: db, log: log}
}

type DiskMessage struct {
	ID          uuid.UUID          `json:"id"`
	Group       string             `json:"group"`
	Sender      string             `json:"sender"`
	Content     string             `json:"content"`
	Type        domain.MessageType `json:"type"`
	IsAnonymous bool               `json:"is_anonymous"`
	Language    string             `json:"language,omitempty"`
	At          time.Time          `json:"at"`
}

// MessageKey is formatted as "msg:{hex_group}:{timestamp_padded}:{uuid}":
//  1. The group id is hex encoded, a ':' in it can't reach into another group's range.
//  2. 19-digit zero padding keeps lexicographical order chronological.
//  3. The UUID separates two messages stored in the same nanosecond.
func MessageKey(groupID domain.GroupID, at time.Time, id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("%s%019d:%s", groupPrefix(groupID), at.UnixNano(), id))
}

func groupPrefix(groupID domain.GroupID) []byte {
	return []byte(fmt.Sprintf("msg:%x:", string(groupID)))
}

// messageIDKey points from a message id to its MessageKey.
func messageIDKey(id uuid.UUID) []byte { return []byte("msgid:" + id.String()) }

// CreateMessage stores the message and returns it with its id and timestamp.
// The real sender is always stored, anonymity is a display concern.
func (m *MessageRepository) CreateMessage(_ context.Context, groupID domain.GroupID, senderID, content string,
	messageType domain.MessageType, isAnonymous bool) (domain.Message, error) {
	message := DiskMessage{
		ID:          uuid.New(),
		Group:       string(groupID),
		Sender:      senderID,
		Content:     content,
		Type:        messageType,
		IsAnonymous: isAnonymous,
		Language:    DetectLanguage(content),
		At:          time.Now().UTC(),
	}
	bytes, err := json.Marshal(message)
	if err != nil {
		return domain.Message{}, err
	}
	key := MessageKey(groupID, message.At, message.ID)
	err = m.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, bytes); err != nil {
			return err
		}
		return txn.Set(messageIDKey(message.ID), key)
	})
	if err != nil {
		return domain.Message{}, err
	}
	m.log.Debug("Message stored", "group", groupID, "id", message.ID, "language", message.Language)
	return toDomainMessage(message), nil
}

// GetMessages returns the latest messages of a group, oldest first.
// The scan walks the group prefix backwards from the newest key and stops at limit.
func (m *MessageRepository) GetMessages(_ context.Context, groupID domain.GroupID, limit int) ([]domain.Message, error) {
	var messages []domain.Message
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := groupPrefix(groupID)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// Past every padded timestamp of the group
		seekKey := append(append([]byte{}, prefix...), []byte("9999999999999999999")...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(messages) == limit {
				m.log.Debug(fmt.Sprintf("Maximum of %d messages reached", limit))
				break
			}
			err := it.Item().Value(func(val []byte) error {
				var dm DiskMessage
				if err := json.Unmarshal(val, &dm); err != nil {
					return err
				}
				messages = append(messages, toDomainMessage(dm))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Reverse(messages)
	return messages, nil
}

// GetMessage returns ErrMessageNotFound when the id is unknown.
func (m *MessageRepository) GetMessage(_ context.Context, messageID uuid.UUID) (domain.Message, error) {
	var message domain.Message
	err := m.db.View(func(txn *badger.Txn) error {
		_, dm, err := readMessage(txn, messageID)
		if err != nil {
			return err
		}
		message = toDomainMessage(dm)
		return nil
	})
	return message, err
}

// DeleteMessage removes the message and its id index in one transaction.
func (m *MessageRepository) DeleteMessage(_ context.Context, messageID uuid.UUID) error {
	err := m.db.Update(func(txn *badger.Txn) error {
		key, _, err := readMessage(txn, messageID)
		if err != nil {
			return err
		}
		if err := txn.Delete(key); err != nil {
			return err
		}
		return txn.Delete(messageIDKey(messageID))
	})
	if err != nil {
		return err
	}
	m.log.Debug("Message deleted", "id", messageID)
	return nil
}

func readMessage(txn *badger.Txn, messageID uuid.UUID) ([]byte, DiskMessage, error) {
	var dm DiskMessage
	item, err := txn.Get(messageIDKey(messageID))
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return nil, dm, errors.ErrMessageNotFound
	}
	if err != nil {
		return nil, dm, err
	}
	key, err := item.ValueCopy(nil)
	if err != nil {
		return nil, dm, err
	}
	item, err = txn.Get(key)
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return nil, dm, errors.ErrMessageNotFound
	}
	if err != nil {
		return nil, dm, err
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &dm)
	})
	return key, dm, err
}

// DetectLanguage tags a message with its ISO 639-1 code, empty when detection isn't reliable.
func DetectLanguage(content string) string {
	info := whatlanggo.Detect(content)
	if !info.IsReliable() {
		return ""
	}
	return info.Lang.Iso6391()
}

func toDomainMessage(dm DiskMessage) domain.Message {
	return domain.Message{
		ID:          dm.ID,
		GroupID:     domain.GroupID(dm.Group),
		SenderID:    dm.Sender,
		Content:     dm.Content,
		Type:        dm.Type,
		IsAnonymous: dm.IsAnonymous,
		Language:    dm.Language,
		CreatedAt:   dm.At,
	}
}
