package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"huddle/domain"
	"huddle/errors"
	"huddle/repositories"
	"slices"
	"time"

	"github.com/google/uuid"
)

// MessageRepository handles message persistence
type MessageRepository struct {
	db *sql.DB
}

func NewMessageRepository(db *sql.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// CreateMessage inserts the message with the real sender id
func (r *MessageRepository) CreateMessage(ctx context.Context, groupID domain.GroupID, senderID, content string,
	messageType domain.MessageType, isAnonymous bool) (domain.Message, error) {
	query := `
		INSERT INTO messages (id, group_id, sender_id, content, type, is_anonymous, language, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`

	message := domain.Message{
		ID:          uuid.New(),
		GroupID:     groupID,
		SenderID:    senderID,
		Content:     content,
		Type:        messageType,
		IsAnonymous: isAnonymous,
		Language:    repositories.DetectLanguage(content),
	}
	err := r.db.QueryRowContext(ctx, query,
		message.ID,
		string(groupID),
		senderID,
		content,
		string(messageType),
		isAnonymous,
		message.Language,
		time.Now().UTC(),
	).Scan(&message.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.Message{}, errors.ErrGroupNotFound
		}
		return domain.Message{}, fmt.Errorf("failed to create message: %w", err)
	}
	message.CreatedAt = message.CreatedAt.UTC()
	return message, nil
}

// GetMessages returns the latest messages of a group, oldest first
func (r *MessageRepository) GetMessages(ctx context.Context, groupID domain.GroupID, limit int) ([]domain.Message, error) {
	query := `
		SELECT id, group_id, sender_id, content, type, is_anonymous, language, created_at
		FROM messages
		WHERE group_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, string(groupID), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.GroupID, &m.SenderID, &m.Content, &m.Type,
			&m.IsAnonymous, &m.Language, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	slices.Reverse(messages)
	return messages, nil
}

func (r *MessageRepository) GetMessage(ctx context.Context, messageID uuid.UUID) (domain.Message, error) {
	query := `
		SELECT id, group_id, sender_id, content, type, is_anonymous, language, created_at
		FROM messages
		WHERE id = $1
	`

	var m domain.Message
	err := r.db.QueryRowContext(ctx, query, messageID).Scan(&m.ID, &m.GroupID, &m.SenderID, &m.Content, &m.Type,
		&m.IsAnonymous, &m.Language, &m.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Message{}, errors.ErrMessageNotFound
		}
		return domain.Message{}, fmt.Errorf("failed to get message: %w", err)
	}
	m.CreatedAt = m.CreatedAt.UTC()
	return m, nil
}

func (r *MessageRepository) DeleteMessage(ctx context.Context, messageID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE id = $1`, messageID)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return errors.ErrMessageNotFound
	}
	return nil
}

// GroupRepository handles group persistence
type GroupRepository struct {
	db *sql.DB
}

func NewGroupRepository(db *sql.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// EnsureGroup returns the group with this name, creating it on first use
func (r *GroupRepository) EnsureGroup(ctx context.Context, name, description string, isAnonymous bool) (domain.Group, error) {
	query := `
		INSERT INTO groups (id, name, description, is_anonymous, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name, description, is_anonymous, created_at
	`

	var group domain.Group
	err := r.db.QueryRowContext(ctx, query, uuid.NewString(), name, description, isAnonymous, time.Now().UTC()).Scan(
		&group.ID,
		&group.Name,
		&group.Description,
		&group.IsAnonymous,
		&group.CreatedAt,
	)
	if err != nil {
		return domain.Group{}, fmt.Errorf("failed to ensure group: %w", err)
	}
	return group, nil
}

func (r *GroupRepository) GetGroup(ctx context.Context, groupID domain.GroupID) (domain.Group, error) {
	query := `SELECT id, name, description, is_anonymous, created_at FROM groups WHERE id = $1`

	var group domain.Group
	err := r.db.QueryRowContext(ctx, query, string(groupID)).Scan(
		&group.ID,
		&group.Name,
		&group.Description,
		&group.IsAnonymous,
		&group.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Group{}, errors.ErrGroupNotFound
		}
		return domain.Group{}, fmt.Errorf("failed to get group: %w", err)
	}
	return group, nil
}

// AddMember keeps the first join date when the membership already exists
func (r *GroupRepository) AddMember(ctx context.Context, groupID domain.GroupID, userID string) error {
	query := `
		INSERT INTO group_members (group_id, user_id, joined_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (group_id, user_id) DO NOTHING
	`

	if _, err := r.db.ExecContext(ctx, query, string(groupID), userID, time.Now().UTC()); err != nil {
		if isForeignKeyViolation(err) {
			return errors.ErrGroupNotFound
		}
		return fmt.Errorf("failed to add member: %w", err)
	}
	return nil
}

// GetMembers returns the memberships of a group, oldest first
func (r *GroupRepository) GetMembers(ctx context.Context, groupID domain.GroupID) ([]domain.Membership, error) {
	if _, err := r.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	query := `
		SELECT group_id, user_id, joined_at
		FROM group_members
		WHERE group_id = $1
		ORDER BY joined_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, string(groupID))
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []domain.Membership
	for rows.Next() {
		var m domain.Membership
		if err := rows.Scan(&m.GroupID, &m.UserID, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		m.JoinedAt = m.JoinedAt.UTC()
		members = append(members, m)
	}
	return members, rows.Err()
}
