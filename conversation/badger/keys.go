package badger

import (
	"encoding/binary"
	"time"
)

const (
	turnPrefix = "convturn:"
	turnSeq    = "convturnseq"
)

// makeSessionPrefix returns the key prefix shared by every turn of a session.
// Format: prefix + len(session) + session. The length keeps one session id
// from being a prefix of another.
func makeSessionPrefix(sessionID string) []byte {
	buf := make([]byte, 0, len(turnPrefix)+4+len(sessionID))
	buf = append(buf, turnPrefix...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(sessionID)))
	return append(buf, sessionID...)
}

// makeTurnKey generates a key for a turn.
// Format: session prefix + timestamp + sequence, BigEndian so keys sort
// chronologically.
func makeTurnKey(sessionID string, timestamp time.Time, seq uint64) []byte {
	buf := makeSessionPrefix(sessionID)
	buf = binary.BigEndian.AppendUint64(buf, uint64(timestamp.UnixNano()))
	return binary.BigEndian.AppendUint64(buf, seq)
}

// makeSessionEnd returns a key that sorts after every turn of a session.
func makeSessionEnd(sessionID string) []byte {
	buf := makeSessionPrefix(sessionID)
	for range 16 {
		buf = append(buf, 0xFF)
	}
	return buf
}
