package badger

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTurnKeysSortChronologically(t *testing.T) {
	ts := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	earlier := makeTurnKey("s", ts, 9)
	later := makeTurnKey("s", ts.Add(time.Nanosecond), 1)
	assert.Negative(t, bytes.Compare(earlier, later))

	sameTime := makeTurnKey("s", ts, 10)
	assert.Negative(t, bytes.Compare(earlier, sameTime))
	assert.Negative(t, bytes.Compare(sameTime, makeSessionEnd("s")))
}

func TestSessionPrefixIsUnambiguous(t *testing.T) {
	key := makeTurnKey("ab", time.Now(), 1)
	assert.False(t, bytes.HasPrefix(key, makeSessionPrefix("a")))
	assert.True(t, bytes.HasPrefix(key, makeSessionPrefix("ab")))
}
