package tools

import (
	"crypto/rand"
	"encoding/base64"
	"io"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
)

const ConnectionPrefix = "conn_"

var (
	nodeOnce sync.Once
	node     *snowflake.Node
)

// GetSnowflakeId returns a process-unique, time-ordered id for local messages.
func GetSnowflakeId() string {
	nodeOnce.Do(func() {
		// node 1 is always in range, error is impossible
		node, _ = snowflake.NewNode(1)
	})
	return node.Generate().String()
}

func GetRandomToken(length int) string {
	r := make([]byte, length)
	io.ReadFull(rand.Reader, r)
	return base64.URLEncoding.EncodeToString(r)
}

// NewConnectionId names a hub connection for logs and the signalr handshake.
func NewConnectionId() string {
	return ConnectionPrefix + uuid.New().String()
}

// FormatISO is the timestamp format carried in chat payloads.
func FormatISO(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseISO accepts RFC 3339 as well as the zone-less forms .NET and Python
// emit. Zone-less values are read as UTC.
func ParseISO(s string) (time.Time, bool) {
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
