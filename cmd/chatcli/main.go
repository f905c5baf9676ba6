// Command chatcli is a terminal client: it logs in, joins the default group and
// prints the group traffic while sending each stdin line as a message.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"huddle/domain/event"
	"huddle/projection"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Addr      string `envconfig:"HUDDLE_ADDR" default:"http://localhost:3001"`
	Username  string `envconfig:"HUDDLE_USERNAME"`
	Password  string `envconfig:"HUDDLE_PASSWORD"`
	Anonymous bool   `envconfig:"HUDDLE_ANONYMOUS" default:"false"`
}

const historySize = 20

type user struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func main() {
	if err := run(); err != nil {
		color.Red.Printf("chatcli: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return err
	}

	token, me, err := login(cfg)
	if err != nil {
		return err
	}
	groupID, groupName, err := defaultGroup(cfg, token)
	if err != nil {
		return err
	}

	timeline := projection.NewTimeline(me.ID)
	past, err := history(cfg, token, groupID)
	if err != nil {
		return err
	}
	timeline.Load(past)
	for _, m := range timeline.Last(historySize) {
		printMessage(m, me.ID)
	}

	conn, err := dial(cfg.Addr, token)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := send(conn, "join-group", map[string]string{"groupId": groupID, "userId": me.ID, "username": me.Username}); err != nil {
		return err
	}
	color.Green.Printf("Joined %q as %s, type a message and press enter (/anon <text> to hide your name, /who, /quit)\n", groupName, me.Username)

	go printEvents(conn, timeline, me.ID)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		anonymous := false
		switch {
		case line == "/quit":
			return nil
		case line == "/who":
			color.Gray.Printf("* here: %s\n", strings.Join(timeline.Members(), ", "))
			if typing := timeline.Typing(); len(typing) > 0 {
				color.Gray.Printf("* typing: %s\n", strings.Join(typing, ", "))
			}
			continue
		case strings.HasPrefix(line, "/anon "):
			line, anonymous = strings.TrimPrefix(line, "/anon "), true
		}
		if err := send(conn, "send-message", map[string]any{
			"content":     line,
			"senderId":    me.ID,
			"groupId":     groupID,
			"isAnonymous": anonymous,
		}); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func printEvents(conn *websocket.Conn, timeline *projection.Timeline, myID string) {
	ctx := context.Background()
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			color.Red.Printf("connection closed: %v\n", err)
			os.Exit(0)
		}
		var f frame
		if err := json.Unmarshal(raw, &f); err != nil {
			continue
		}
		e, err := event.Decode(event.Name(f.Event), f.Data)
		if err != nil {
			continue
		}
		_ = timeline.Consume(ctx, e)

		switch evt := e.(type) {
		case event.MessagePosted:
			printMessage(evt, myID)
		case event.MemberJoined:
			color.Gray.Printf("* %s joined\n", evt.Username)
		case event.MemberLeft:
			color.Gray.Printf("* %s left\n", evt.Username)
		case event.TypingChanged:
			if evt.IsTyping {
				color.Gray.Printf("* %s is typing...\n", evt.Username)
			}
		case event.Failure:
			color.Red.Printf("! %s\n", evt.Message)
		}
	}
}

func printMessage(m event.MessagePosted, myID string) {
	name := color.Cyan.Sprint(m.Sender.Username)
	if m.Sender.ID == myID {
		name = color.Magenta.Sprint("me")
	}
	fmt.Printf("[%s] %s: %s\n", m.CreatedAt.Local().Format("15:04"), name, m.Content)
}

func history(cfg Config, token, groupID string) ([]event.MessagePosted, error) {
	var resp struct {
		Success  bool                  `json:"success"`
		Error    string                `json:"error"`
		Messages []event.MessagePosted `json:"messages"`
	}
	if err := call(http.MethodGet, cfg.Addr+"/api/chat/groups/"+url.PathEscape(groupID)+"/messages", token, nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("no history: %s", resp.Error)
	}
	return resp.Messages, nil
}

func login(cfg Config) (string, user, error) {
	path, body := "/api/auth/anonymous", map[string]string{}
	if !cfg.Anonymous && cfg.Username != "" {
		path, body = "/api/auth/login", map[string]string{"username": cfg.Username, "password": cfg.Password}
	}
	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
		Token   string `json:"token"`
		User    user   `json:"user"`
	}
	if err := call(http.MethodPost, cfg.Addr+path, "", body, &resp); err != nil {
		return "", user{}, err
	}
	if !resp.Success {
		return "", user{}, fmt.Errorf("login failed: %s", resp.Error)
	}
	return resp.Token, resp.User, nil
}

func defaultGroup(cfg Config, token string) (string, string, error) {
	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
		Group   struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"group"`
	}
	if err := call(http.MethodGet, cfg.Addr+"/api/chat/groups/default", token, nil, &resp); err != nil {
		return "", "", err
	}
	if !resp.Success {
		return "", "", fmt.Errorf("no default group: %s", resp.Error)
	}
	return resp.Group.ID, resp.Group.Name, nil
}

func call(method, target, token string, body, out any) error {
	var payload bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&payload).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequest(method, target, &payload)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(out)
}

func dial(addr, token string) (*websocket.Conn, error) {
	u, err := url.Parse(addr)
	if err != nil {
		return nil, err
	}
	u.Scheme = strings.Replace(u.Scheme, "http", "ws", 1)
	u.Path = "/ws"
	u.RawQuery = url.Values{"token": {token}}.Encode()
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	return conn, err
}

func send(conn *websocket.Conn, name string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return conn.WriteJSON(frame{Event: name, Data: payload})
}
