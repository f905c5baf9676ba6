//go:generate go run go.uber.org/mock/mockgen -source=chat_service.go -destination=../mocks/mock_chat_service.go -package=mocks
package services

import (
	"context"
	"fmt"
	"huddle/contract"
	"huddle/domain"
	"huddle/domain/event"
	"huddle/errors"
	"huddle/repositories"
	"log/slog"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

const defaultGroupDescription = "Anonymous chat group for Friday fun!"

type IChatService interface {
	DefaultGroup(ctx context.Context, userID string) (domain.Group, error)
	RecentMessages(ctx context.Context, groupID domain.GroupID) ([]event.MessagePosted, error)
	Members(ctx context.Context, groupID domain.GroupID, requesterID string) ([]domain.Member, error)
	DeleteMessage(ctx context.Context, messageID uuid.UUID, requesterID string) error
}

type ChatService struct {
	log               *slog.Logger
	groupRepository   repositories.IGroupRepository
	messageRepository repositories.IMessageRepository
	users             contract.UserDirectory
	defaultGroupName  string
	limitMessages     int
}

func NewChatService(log *slog.Logger, groups repositories.IGroupRepository, messages repositories.IMessageRepository,
	users contract.UserDirectory, defaultGroupName string, limitMessages int) IChatService {
	if defaultGroupName == "" {
		defaultGroupName = domain.DefaultGroupName
	}
	return &ChatService{
		log:               log,
		groupRepository:   groups,
		messageRepository: messages,
		users:             users,
		defaultGroupName:  defaultGroupName,
		limitMessages:     limitMessages,
	}
}

// DefaultGroup returns the shared group, creating it on first call,
// and records the user as a member.
func (s *ChatService) DefaultGroup(ctx context.Context, userID string) (domain.Group, error) {
	group, err := s.groupRepository.EnsureGroup(ctx, s.defaultGroupName, defaultGroupDescription, true)
	if err != nil {
		return domain.Group{}, fmt.Errorf("failed to get default group: %w", err)
	}
	if err := s.groupRepository.AddMember(ctx, group.ID, userID); err != nil {
		return domain.Group{}, fmt.Errorf("failed to join default group: %w", err)
	}
	return group, nil
}

// Members lists the stored members of a group with their online flag.
// Only a member may read the list.
func (s *ChatService) Members(ctx context.Context, groupID domain.GroupID, requesterID string) ([]domain.Member, error) {
	memberships, err := s.groupRepository.GetMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !lo.ContainsBy(memberships, func(m domain.Membership) bool { return m.UserID == requesterID }) {
		return nil, errors.ErrNotGroupMember
	}

	members := make([]domain.Member, 0, len(memberships))
	for _, m := range memberships {
		projection, err := s.users.GetUser(ctx, m.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve member: %w", err)
		}
		if projection == nil {
			s.log.Debug("Membership of a deleted user", "group", groupID, "user", m.UserID)
			continue
		}
		members = append(members, domain.Member{UserProjection: *projection, JoinedAt: m.JoinedAt})
	}
	return members, nil
}

// DeleteMessage removes a message on behalf of its sender only.
func (s *ChatService) DeleteMessage(ctx context.Context, messageID uuid.UUID, requesterID string) error {
	message, err := s.messageRepository.GetMessage(ctx, messageID)
	if err != nil {
		return err
	}
	if message.SenderID != requesterID {
		return fmt.Errorf("%w: %s", errors.ErrNotMessageSender, messageID)
	}
	if err := s.messageRepository.DeleteMessage(ctx, messageID); err != nil {
		return err
	}
	s.log.Info("Message deleted", "message", messageID, "group", message.GroupID, "user", requesterID)
	return nil
}

// RecentMessages returns the last messages of a group with the same shape as new-message,
// anonymous senders masked.
func (s *ChatService) RecentMessages(ctx context.Context, groupID domain.GroupID) ([]event.MessagePosted, error) {
	if _, err := s.groupRepository.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	messages, err := s.messageRepository.GetMessages(ctx, groupID, s.limitMessages)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	senders := make(map[string]domain.UserProjection)
	result := make([]event.MessagePosted, 0, len(messages))
	for _, m := range messages {
		sender, ok := senders[m.SenderID]
		if !ok {
			projection, err := s.users.GetUser(ctx, m.SenderID)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve sender: %w", err)
			}
			if projection == nil {
				s.log.Debug("Message from a deleted user", "message", m.ID, "sender", m.SenderID)
				projection = &domain.UserProjection{ID: m.SenderID, Username: "unknown"}
			}
			sender = *projection
			senders[m.SenderID] = sender
		}
		result = append(result, event.NewMessagePosted(m, sender))
	}
	return result, nil
}
