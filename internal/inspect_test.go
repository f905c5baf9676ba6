package internal

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func TestDescribeEntry(t *testing.T) {
	at := time.Date(2026, 1, 1, 12, 30, 45, 0, time.Local)
	user, _ := json.Marshal(map[string]any{"username": "alice", "is_online": true, "updated_at": at, "password_hash": "secret"})
	message, _ := json.Marshal(map[string]any{"type": "TEXT", "language": "en", "content": "héllo"})

	tests := []struct {
		name     string
		key      string
		val      []byte
		expected InspectRow
	}{
		{
			name:     "user hides the hash",
			key:      "user:0123456789abcdef",
			val:      user,
			expected: InspectRow{Key: "user:0123456789abcdef", Kind: "USER", Timestamp: "12:30:45", EntityID: "01234567", Detail: "alice online=true"},
		},
		{
			name:     "index",
			key:      "username:alice",
			val:      []byte("u1"),
			expected: InspectRow{Key: "username:alice", Kind: "INDEX", Timestamp: "--:--:--", EntityID: "u1", Detail: "username alice"},
		},
		{
			name:     "message",
			key:      "msg:6731:" + "0000000000000000000" + ":abcdef0123",
			val:      message,
			expected: InspectRow{Key: "msg:6731:0000000000000000000:abcdef0123", Kind: "MSG", Timestamp: time.Unix(0, 0).Format("15:04:05"), EntityID: "abcdef01", Detail: "TEXT 5 runes lang=en"},
		},
		{
			name:     "member",
			key:      "member:6731:0123456789abcdef",
			val:      []byte(at.Format(time.RFC3339)),
			expected: InspectRow{Key: "member:6731:0123456789abcdef", Kind: "MEMBER", Timestamp: "12:30:45", EntityID: "01234567", Detail: "group 6731"},
		},
		{
			name:     "message index",
			key:      "msgid:abcdef0123",
			val:      []byte("msg:6731:0000000000000000000:abcdef0123"),
			expected: InspectRow{Key: "msgid:abcdef0123", Kind: "INDEX", Timestamp: "--:--:--", EntityID: "msg:6731", Detail: "msgid abcdef0123"},
		},
		{
			name:     "unknown",
			key:      "other",
			val:      []byte("abc"),
			expected: InspectRow{Key: "other", Kind: "RAW", Timestamp: "--:--:--", EntityID: "--------", Detail: "Size: 3 bytes"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := DescribeEntry(tt.key, tt.val)
			require.Equal(t, tt.expected, row)
			require.NotContains(t, row.Detail, "secret")
		})
	}
}

func TestScan(t *testing.T) {
	req := require.New(t)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	defer db.Close()

	req.NoError(db.Update(func(txn *badger.Txn) error {
		for _, key := range []string{"msg:g1:1:a", "msg:g1:2:b", "msg:g1:3:c", "user:u1"} {
			if err := txn.Set([]byte(key), []byte("{}")); err != nil {
				return err
			}
		}
		return nil
	}))

	rows, err := Scan(db, "msg:", 2, nil)
	req.NoError(err)
	req.Len(rows, 2)
	req.Equal("msg:g1:1:a", rows[0].Key)

	rows, err = Scan(db, "user:", 0, func(key string, _ []byte) InspectRow { return InspectRow{Key: key, Kind: "CUSTOM"} })
	req.NoError(err)
	req.Equal([]InspectRow{{Key: "user:u1", Kind: "CUSTOM"}}, rows)
}
