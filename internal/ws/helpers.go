package ws

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

func newConnID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}

// roomKind maps a room id to its metrics label.
func roomKind(roomID string) string {
	if i := strings.IndexByte(roomID, ':'); i >= 0 {
		return roomID[:i]
	}
	return roomID
}
