package internal

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// InspectRow is one badger entry as shown by the inspection tool and the debug endpoint.
// Values are summarized, never dumped: user records hold password hashes.
type InspectRow struct {
	Key       string `json:"key"`
	Kind      string `json:"kind"`
	Timestamp string `json:"timestamp"`
	EntityID  string `json:"entity_id"`
	Detail    string `json:"detail"`
}

type RowMapper func(key string, val []byte) InspectRow

// Scan walks the keys under prefix, at most limit rows when limit is positive.
func Scan(db *badger.DB, prefix string, limit int, mapper RowMapper) ([]InspectRow, error) {
	if mapper == nil {
		mapper = DescribeEntry
	}
	var rows []InspectRow
	err := db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			if limit > 0 && len(rows) >= limit {
				return nil
			}
			item := it.Item()
			key := string(item.Key())
			if err := item.Value(func(val []byte) error {
				rows = append(rows, mapper(key, val))
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	return rows, err
}

// DescribeEntry knows the key layouts of the chat store:
// user:<id>, username:<name>, email:<mail>, group:<id>, groupname:<name>, member:<hex group>:<user>,
// msg:<hex group>:<nanos>:<id>, msgid:<id>.
func DescribeEntry(key string, val []byte) InspectRow {
	row := InspectRow{
		Key:       key,
		Kind:      "RAW",
		Timestamp: "--:--:--",
		EntityID:  "--------",
		Detail:    "Size: " + strconv.Itoa(len(val)) + " bytes",
	}
	kind, rest, _ := strings.Cut(key, ":")

	switch kind {
	case "user":
		var user struct {
			Username  string    `json:"username"`
			IsOnline  bool      `json:"is_online"`
			UpdatedAt time.Time `json:"updated_at"`
		}
		row.Kind = "USER"
		row.EntityID = shortID(rest)
		if json.Unmarshal(val, &user) == nil {
			row.Timestamp = user.UpdatedAt.Format("15:04:05")
			row.Detail = user.Username + " online=" + strconv.FormatBool(user.IsOnline)
		}
	case "group":
		var group struct {
			Name      string    `json:"name"`
			CreatedAt time.Time `json:"created_at"`
		}
		row.Kind = "GROUP"
		row.EntityID = shortID(rest)
		if json.Unmarshal(val, &group) == nil {
			row.Timestamp = group.CreatedAt.Format("15:04:05")
			row.Detail = group.Name
		}
	case "username", "email", "groupname", "msgid":
		row.Kind = "INDEX"
		row.EntityID = shortID(string(val))
		row.Detail = kind + " " + rest
	case "member":
		row.Kind = "MEMBER"
		if group, userID, ok := strings.Cut(rest, ":"); ok {
			row.EntityID = shortID(userID)
			row.Detail = "group " + group
		}
		var joinedAt time.Time
		if joinedAt.UnmarshalText(val) == nil {
			row.Timestamp = joinedAt.Format("15:04:05")
		}
	case "msg":
		parts := strings.Split(rest, ":")
		row.Kind = "MSG"
		if len(parts) == 3 {
			if nanos, err := strconv.ParseInt(parts[1], 10, 64); err == nil {
				row.Timestamp = time.Unix(0, nanos).Format("15:04:05")
			}
			row.EntityID = shortID(parts[2])
		}
		var message struct {
			Type     string `json:"type"`
			Language string `json:"language"`
			Content  string `json:"content"`
		}
		if json.Unmarshal(val, &message) == nil {
			row.Detail = message.Type + " " + strconv.Itoa(len([]rune(message.Content))) + " runes"
			if message.Language != "" {
				row.Detail += " lang=" + message.Language
			}
		}
	}
	return row
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
