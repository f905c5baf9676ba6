package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
)

const frameTimeout = 5 * time.Second

type BaseChatSuite struct {
	suite.Suite
	Config Config
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseChatSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.HuddleAddr == "" {
		s.T().Skip("HUDDLE_ADDR not set")
	}
}

// Session is an authenticated user of the running server.
type Session struct {
	Token string
	User  struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	}
}

// Frame is a decoded server event.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func (s *BaseChatSuite) Step(name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
}

// Anonymous creates a throwaway account through the HTTP API.
func (s *BaseChatSuite) Anonymous(ctx context.Context) Session {
	var body struct {
		Success bool   `json:"success"`
		Token   string `json:"token"`
		User    struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		} `json:"user"`
	}
	s.call(ctx, http.MethodPost, "/api/auth/anonymous", "", &body)
	s.Require().True(body.Success)

	var session Session
	session.Token = body.Token
	session.User.ID = body.User.ID
	session.User.Username = body.User.Username
	return session
}

// DefaultGroup returns the id of the shared group.
func (s *BaseChatSuite) DefaultGroup(ctx context.Context, token string) string {
	var body struct {
		Group struct {
			ID string `json:"id"`
		} `json:"group"`
	}
	s.call(ctx, http.MethodGet, "/api/chat/groups/default", token, &body)
	s.Require().NotEmpty(body.Group.ID)
	return body.Group.ID
}

// Members returns the user ids listed for a group.
func (s *BaseChatSuite) Members(ctx context.Context, token, groupID string) []string {
	var body struct {
		Members []struct {
			ID string `json:"id"`
		} `json:"members"`
	}
	s.call(ctx, http.MethodGet, "/api/chat/groups/"+groupID+"/members", token, &body)
	ids := make([]string, 0, len(body.Members))
	for _, m := range body.Members {
		ids = append(ids, m.ID)
	}
	return ids
}

// Status sends a request without body and returns the status code only.
func (s *BaseChatSuite) Status(ctx context.Context, method, path, token string) int {
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(s.Config.HuddleAddr, "/")+path, nil)
	s.Require().NoError(err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	return resp.StatusCode
}

func (s *BaseChatSuite) call(ctx context.Context, method, path, token string, out any) {
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(s.Config.HuddleAddr, "/")+path, bytes.NewReader(nil))
	s.Require().NoError(err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Require().Less(resp.StatusCode, 300, "%s %s answered %d", method, path, resp.StatusCode)
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(out))
}

// Dial opens the websocket of a session.
func (s *BaseChatSuite) Dial(session Session) *websocket.Conn {
	u, err := url.Parse(s.Config.HuddleAddr)
	s.Require().NoError(err)
	u.Scheme = strings.Replace(u.Scheme, "http", "ws", 1)
	u.Path = "/ws"
	u.RawQuery = url.Values{"token": {session.Token}}.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	s.Require().NoError(err, "Failed to open websocket at "+u.String())
	return conn
}

func (s *BaseChatSuite) Send(conn *websocket.Conn, name string, data any) {
	payload, err := json.Marshal(data)
	s.Require().NoError(err)
	frame, err := json.Marshal(Frame{Event: name, Data: payload})
	s.Require().NoError(err)
	if s.Config.DebugJSON {
		s.T().Logf("SEND %s", frame)
	}
	s.Require().NoError(conn.WriteMessage(websocket.TextMessage, frame))
}

// Expect reads frames until one named name arrives, decoding its data into out.
func (s *BaseChatSuite) Expect(conn *websocket.Conn, name string, out any) {
	deadline := time.Now().Add(frameTimeout)
	s.Require().NoError(conn.SetReadDeadline(deadline))
	for {
		_, raw, err := conn.ReadMessage()
		s.Require().NoError(err, "no %s event before %s", name, deadline.Format(time.TimeOnly))
		if s.Config.DebugJSON {
			s.T().Logf("RECV %s", raw)
		}
		var frame Frame
		s.Require().NoError(json.Unmarshal(raw, &frame))
		if frame.Event != name {
			continue
		}
		if out != nil {
			s.Require().NoError(json.Unmarshal(frame.Data, out))
		}
		return
	}
}
