package runtime

import (
	"context"
	stderrors "errors"
	"fmt"
	"huddle/contract"
	"huddle/domain"
	"huddle/domain/event"
	"huddle/errors"
	"huddle/observability"
	"log/slog"
	"strings"
	"unicode/utf8"
)

type SendRequest struct {
	GroupID     domain.GroupID
	SenderID    string
	Content     string
	Type        domain.MessageType
	IsAnonymous bool
}

// Pipeline validates, persists and fans out chat messages.
// Nothing is broadcast unless the message has been stored.
type Pipeline struct {
	log        *slog.Logger
	messages   contract.MessageStore
	users      contract.UserDirectory
	groups     contract.GroupDirectory
	router     contract.IRouter
	filter     contract.ContentFilter
	monitoring *observability.MonitoringManager
}

func NewPipeline(log *slog.Logger, messages contract.MessageStore, users contract.UserDirectory,
	router contract.IRouter, monitoring *observability.MonitoringManager) *Pipeline {
	return &Pipeline{log: log, messages: messages, users: users, router: router, monitoring: monitoring}
}

// WithGroups rejects messages aimed at groups the store doesn't know.
func (p *Pipeline) WithGroups(groups contract.GroupDirectory) *Pipeline {
	p.groups = groups
	return p
}

// WithFilter censors content before it reaches the store.
func (p *Pipeline) WithFilter(filter contract.ContentFilter) *Pipeline {
	p.filter = filter
	return p
}

// Send stores the message then broadcasts new-message to the whole group, sender included.
// Errors are validation (ErrEmptyContent, ErrContentTooLong, ErrUnsupportedType),
// ErrGroupNotFound, ErrUnknownSender or ErrPersistence. Failed sends are never retried.
func (p *Pipeline) Send(ctx context.Context, req SendRequest) (domain.Message, error) {
	content, messageType, err := Validate(req.Content, req.Type)
	if err != nil {
		p.monitoring.IncrMessagesRejected()
		return domain.Message{}, err
	}

	if err := p.checkGroup(ctx, req.GroupID); err != nil {
		p.monitoring.IncrMessagesRejected()
		return domain.Message{}, err
	}

	sender, err := p.users.GetUser(ctx, req.SenderID)
	if err != nil {
		p.monitoring.IncrMessagesRejected()
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	if sender == nil {
		p.monitoring.IncrMessagesRejected()
		return domain.Message{}, fmt.Errorf("%w: %s", errors.ErrUnknownSender, req.SenderID)
	}

	if p.filter != nil {
		content = p.filter.Censor(content)
	}

	message, err := p.messages.CreateMessage(ctx, req.GroupID, req.SenderID, content, messageType, req.IsAnonymous)
	if err != nil {
		p.monitoring.IncrMessagesRejected()
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}

	p.router.Broadcast(ctx, req.GroupID, event.NewMessagePosted(message, *sender))
	p.monitoring.IncrMessagesSent()
	p.log.Debug("Message sent", "group", req.GroupID, "message", message.ID, "anonymous", message.IsAnonymous)
	return message, nil
}

func (p *Pipeline) checkGroup(ctx context.Context, groupID domain.GroupID) error {
	if p.groups == nil {
		return nil
	}
	_, err := p.groups.GetGroup(ctx, groupID)
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, errors.ErrGroupNotFound):
		return fmt.Errorf("%w: %s", errors.ErrGroupNotFound, groupID)
	default:
		return fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
}

// Validate trims the content and checks it together with the message type.
// An empty type means TEXT.
func Validate(content string, messageType domain.MessageType) (string, domain.MessageType, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "", "", errors.ErrEmptyContent
	}
	if utf8.RuneCountInString(trimmed) > domain.MaxContentLength {
		return "", "", fmt.Errorf("%w: max %d characters", errors.ErrContentTooLong, domain.MaxContentLength)
	}
	if messageType == "" {
		messageType = domain.TEXT
	}
	if !messageType.Valid() {
		return "", "", fmt.Errorf("%w: %s", errors.ErrUnsupportedType, messageType)
	}
	return trimmed, messageType, nil
}
