package e2e

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
)

type testChatSuite struct {
	BaseChatSuite
}

func TestChatSuite(t *testing.T) {
	suite.Run(t, &testChatSuite{})
}

func (s *testChatSuite) TestTwoUsersChatInTheDefaultGroup() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	alice := s.Anonymous(ctx)
	bob := s.Anonymous(ctx)
	groupID := s.DefaultGroup(ctx, alice.Token)
	s.Equal(groupID, s.DefaultGroup(ctx, bob.Token))

	aliceConn := s.Dial(alice)
	defer aliceConn.Close()
	bobConn := s.Dial(bob)
	defer bobConn.Close()

	s.Run("Step 1: both users join, the first one sees the second arrive", func() {
		s.Step("join-group")
		s.Send(aliceConn, "join-group", map[string]string{"groupId": groupID, "userId": alice.User.ID, "username": alice.User.Username})
		s.Send(bobConn, "join-group", map[string]string{"groupId": groupID, "userId": bob.User.ID, "username": bob.User.Username})

		var joined struct {
			UserID string `json:"userId"`
		}
		s.Expect(aliceConn, "user-joined", &joined)
		s.Equal(bob.User.ID, joined.UserID)
	})

	var messageID string
	s.Run("Step 2: an anonymous message reaches both members masked", func() {
		s.Step("send-message")
		s.Send(aliceConn, "send-message", map[string]any{
			"content":     "  hello friday  ",
			"senderId":    alice.User.ID,
			"groupId":     groupID,
			"isAnonymous": true,
		})

		for _, conn := range []*websocket.Conn{aliceConn, bobConn} {
			var message struct {
				ID      string `json:"id"`
				Content string `json:"content"`
				Type    string `json:"type"`
				Sender  struct {
					ID       string `json:"id"`
					Username string `json:"username"`
				} `json:"sender"`
			}
			s.Expect(conn, "new-message", &message)
			s.Equal("hello friday", message.Content)
			s.Equal("TEXT", message.Type)
			s.Equal("Anonymous", message.Sender.Username)
			s.Equal(alice.User.ID, message.Sender.ID)
			messageID = message.ID
		}
	})

	s.Run("Step 3: typing is relayed to the others only", func() {
		s.Step("typing")
		s.Send(bobConn, "typing", map[string]any{"groupId": groupID, "userId": bob.User.ID, "username": bob.User.Username, "isTyping": true})

		var typing struct {
			UserID   string `json:"userId"`
			IsTyping bool   `json:"isTyping"`
		}
		s.Expect(aliceConn, "user-typing", &typing)
		s.Equal(bob.User.ID, typing.UserID)
		s.True(typing.IsTyping)
	})

	s.Run("Step 4: members are listed and only the sender deletes a message", func() {
		s.Step("members")
		s.Subset(s.Members(ctx, alice.Token, groupID), []string{alice.User.ID, bob.User.ID})

		s.Step("delete-message")
		path := "/api/chat/messages/" + messageID
		s.Equal(http.StatusForbidden, s.Status(ctx, http.MethodDelete, path, bob.Token))
		s.Equal(http.StatusOK, s.Status(ctx, http.MethodDelete, path, alice.Token))
		s.Equal(http.StatusNotFound, s.Status(ctx, http.MethodDelete, path, alice.Token))
	})

	s.Run("Step 5: closing a connection tells the group", func() {
		s.Step("disconnect")
		s.Require().NoError(bobConn.Close())

		var left struct {
			UserID string `json:"userId"`
		}
		s.Expect(aliceConn, "user-left", &left)
		s.Equal(bob.User.ID, left.UserID)
	})
}
