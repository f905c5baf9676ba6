package runtime

import (
	"context"
	"fmt"
	"huddle/domain"
	"huddle/domain/event"
	"huddle/errors"
	"huddle/mocks"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		messageType domain.MessageType
		expected    string
		expectedTyp domain.MessageType
		err         error
	}{
		{name: "Trimmed text", content: "  hello  ", expected: "hello", expectedTyp: domain.TEXT},
		{name: "Explicit type", content: "cat.png", messageType: domain.IMAGE, expected: "cat.png", expectedTyp: domain.IMAGE},
		{name: "Empty", content: "", err: errors.ErrEmptyContent},
		{name: "Whitespace only", content: " \n\t ", err: errors.ErrEmptyContent},
		{name: "Exactly 1000 characters", content: strings.Repeat("a", 1000), expected: strings.Repeat("a", 1000), expectedTyp: domain.TEXT},
		{name: "1000 multibyte characters", content: strings.Repeat("é", 1000), expected: strings.Repeat("é", 1000), expectedTyp: domain.TEXT},
		{name: "1001 characters", content: strings.Repeat("a", 1001), err: errors.ErrContentTooLong},
		{name: "Length is counted after trimming", content: "  " + strings.Repeat("a", 1000) + "  ", expected: strings.Repeat("a", 1000), expectedTyp: domain.TEXT},
		{name: "Unknown type", content: "hi", messageType: "VIDEO", err: errors.ErrUnsupportedType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			content, messageType, err := Validate(tt.content, tt.messageType)
			if tt.err != nil {
				req.ErrorIs(err, tt.err)
				return
			}
			req.NoError(err)
			req.Equal(tt.expected, content)
			req.Equal(tt.expectedTyp, messageType)
		})
	}
}

type pipelineFixture struct {
	pipeline *Pipeline
	messages *mocks.MockMessageStore
	users    *mocks.MockUserDirectory
	sender   *recordingSink
	member   *recordingSink
	outsider *recordingSink
}

func newPipelineFixture(t *testing.T) pipelineFixture {
	ctrl := gomock.NewController(t)
	router, monitoring := newTestRouter()
	f := pipelineFixture{
		messages: mocks.NewMockMessageStore(ctrl),
		users:    mocks.NewMockUserDirectory(ctrl),
		sender:   &recordingSink{},
		member:   &recordingSink{},
		outsider: &recordingSink{},
	}
	f.pipeline = NewPipeline(slog.Default(), f.messages, f.users, router, monitoring)

	router.Attach("s-alice", f.sender)
	router.Attach("s-bob", f.member)
	router.Attach("s-carol", f.outsider)
	router.Subscribe("s-alice", "g1")
	router.Subscribe("s-bob", "g1")
	router.Subscribe("s-carol", "g2")
	return f
}

func storedMessage(groupID domain.GroupID, senderID, content string, messageType domain.MessageType, anonymous bool) domain.Message {
	return domain.Message{
		ID:          uuid.New(),
		GroupID:     groupID,
		SenderID:    senderID,
		Content:     content,
		Type:        messageType,
		IsAnonymous: anonymous,
		CreatedAt:   time.Now().UTC(),
	}
}

func TestPipeline_Send_Broadcasts_To_Whole_Group(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newPipelineFixture(t)

	// Given alice exists
	f.users.EXPECT().GetUser(gomock.Any(), "alice").
		Return(&domain.UserProjection{ID: "alice", Username: "alice", Avatar: "a.png", IsOnline: true}, nil)
	f.messages.EXPECT().CreateMessage(gomock.Any(), domain.GroupID("g1"), "alice", "hello", domain.TEXT, false).
		DoAndReturn(func(_ context.Context, g domain.GroupID, s, c string, mt domain.MessageType, a bool) (domain.Message, error) {
			return storedMessage(g, s, c, mt, a), nil
		})

	// When she sends a padded message without type
	message, err := f.pipeline.Send(ctx, SendRequest{GroupID: "g1", SenderID: "alice", Content: "  hello "})

	// Then it is stored trimmed and everyone in g1 receives it, alice included
	req.NoError(err)
	req.Equal("hello", message.Content)
	for _, sink := range []*recordingSink{f.sender, f.member} {
		posted := sink.Named(event.NewMessage)
		req.Len(posted, 1)
		req.Equal("hello", posted[0].(event.MessagePosted).Content)
		req.Equal("alice", posted[0].(event.MessagePosted).Sender.Username)
	}
	req.Empty(f.outsider.Events())
}

func TestPipeline_Send_Anonymous_Masks_Username_Only(t *testing.T) {
	req := require.New(t)
	f := newPipelineFixture(t)

	f.users.EXPECT().GetUser(gomock.Any(), "alice").
		Return(&domain.UserProjection{ID: "alice", Username: "alice"}, nil)
	f.messages.EXPECT().CreateMessage(gomock.Any(), domain.GroupID("g1"), "alice", "psst", domain.TEXT, true).
		Return(storedMessage("g1", "alice", "psst", domain.TEXT, true), nil)

	_, err := f.pipeline.Send(context.Background(), SendRequest{GroupID: "g1", SenderID: "alice", Content: "psst", IsAnonymous: true})

	req.NoError(err)
	posted := f.member.Named(event.NewMessage)
	req.Len(posted, 1)
	sender := posted[0].(event.MessagePosted).Sender
	req.Equal(domain.AnonymousLabel, sender.Username)
	req.Equal("alice", sender.ID)
	req.True(posted[0].(event.MessagePosted).IsAnonymous)
}

func TestPipeline_Send_Failures(t *testing.T) {
	tests := []struct {
		name  string
		given func(f pipelineFixture)
		req   SendRequest
		err   error
	}{
		{
			name:  "Empty content never reaches the store",
			given: func(f pipelineFixture) {},
			req:   SendRequest{GroupID: "g1", SenderID: "alice", Content: "   "},
			err:   errors.ErrEmptyContent,
		},
		{
			name:  "Too long content",
			given: func(f pipelineFixture) {},
			req:   SendRequest{GroupID: "g1", SenderID: "alice", Content: strings.Repeat("x", 1001)},
			err:   errors.ErrContentTooLong,
		},
		{
			name: "Unknown sender",
			given: func(f pipelineFixture) {
				f.users.EXPECT().GetUser(gomock.Any(), "ghost").Return(nil, nil)
			},
			req: SendRequest{GroupID: "g1", SenderID: "ghost", Content: "boo"},
			err: errors.ErrUnknownSender,
		},
		{
			name: "User lookup failure",
			given: func(f pipelineFixture) {
				f.users.EXPECT().GetUser(gomock.Any(), "alice").Return(nil, fmt.Errorf("connection reset"))
			},
			req: SendRequest{GroupID: "g1", SenderID: "alice", Content: "hi"},
			err: errors.ErrPersistence,
		},
		{
			name: "Store failure",
			given: func(f pipelineFixture) {
				f.users.EXPECT().GetUser(gomock.Any(), "alice").Return(&domain.UserProjection{ID: "alice"}, nil)
				f.messages.EXPECT().CreateMessage(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Return(domain.Message{}, fmt.Errorf("disk full")).Times(1)
			},
			req: SendRequest{GroupID: "g1", SenderID: "alice", Content: "hi"},
			err: errors.ErrPersistence,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			f := newPipelineFixture(t)
			tt.given(f)

			_, err := f.pipeline.Send(context.Background(), tt.req)

			// Then nothing is broadcast
			req.ErrorIs(err, tt.err)
			req.Empty(f.sender.Events())
			req.Empty(f.member.Events())
		})
	}
}

func TestPipeline_Send_Filter_Runs_Before_Store(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	f := newPipelineFixture(t)
	filter := mocks.NewMockContentFilter(ctrl)
	f.pipeline.WithFilter(filter)

	f.users.EXPECT().GetUser(gomock.Any(), "alice").Return(&domain.UserProjection{ID: "alice"}, nil)
	filter.EXPECT().Censor("you badger").Return("you ******")
	f.messages.EXPECT().CreateMessage(gomock.Any(), domain.GroupID("g1"), "alice", "you ******", domain.TEXT, false).
		Return(storedMessage("g1", "alice", "you ******", domain.TEXT, false), nil)

	message, err := f.pipeline.Send(context.Background(), SendRequest{GroupID: "g1", SenderID: "alice", Content: "you badger"})

	req.NoError(err)
	req.Equal("you ******", message.Content)
}

func TestPipeline_Send_Checks_Group(t *testing.T) {
	tests := []struct {
		name    string
		lookup  error
		err     error
		created int
	}{
		{name: "Known group", created: 1},
		{name: "Unknown group", lookup: errors.ErrGroupNotFound, err: errors.ErrGroupNotFound},
		{name: "Group lookup failure", lookup: fmt.Errorf("connection reset"), err: errors.ErrPersistence},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			ctrl := gomock.NewController(t)
			f := newPipelineFixture(t)
			groups := mocks.NewMockGroupDirectory(ctrl)
			f.pipeline.WithGroups(groups)

			groups.EXPECT().GetGroup(gomock.Any(), domain.GroupID("g1")).Return(domain.Group{ID: "g1"}, tt.lookup).Times(1)
			f.users.EXPECT().GetUser(gomock.Any(), "alice").Return(&domain.UserProjection{ID: "alice"}, nil).Times(tt.created)
			f.messages.EXPECT().CreateMessage(gomock.Any(), domain.GroupID("g1"), "alice", "hi", domain.TEXT, false).
				Return(storedMessage("g1", "alice", "hi", domain.TEXT, false), nil).Times(tt.created)

			_, err := f.pipeline.Send(context.Background(), SendRequest{GroupID: "g1", SenderID: "alice", Content: "hi"})

			if tt.err != nil {
				req.ErrorIs(err, tt.err)
				req.Empty(f.member.Events())
				return
			}
			req.NoError(err)
			req.Len(f.member.Named(event.NewMessage), 1)
		})
	}
}
