package model

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/oklog/ulid/v2"
)

// Task and agent ids keep the original on-document format: a fixed prefix,
// the creation time in base 36 and a short random suffix. Uniqueness is
// probabilistic, which is fine at human-scale task and agent counts.
const (
	taskIDPrefix  = "task-"
	agentIDPrefix = "agent-"
	idSuffixLen   = 4
)

const base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewTaskID generates a new task id.
func NewTaskID(now time.Time) string {
	return taskIDPrefix + timestampedID(now)
}

// NewAgentID generates a new agent id.
func NewAgentID(now time.Time) string {
	return agentIDPrefix + timestampedID(now)
}

func timestampedID(now time.Time) string {
	ts := strconv.FormatInt(now.UnixMilli(), 36)
	return fmt.Sprintf("%s%s", ts, randomBase36(idSuffixLen))
}

func randomBase36(n int) string {
	max := big.NewInt(int64(len(base36Alphabet)))
	b := make([]byte, n)
	for i := range b {
		v, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand never fails on supported platforms.
			panic(err)
		}
		b[i] = base36Alphabet[v.Int64()]
	}
	return string(b)
}

// NewSessionToken generates an agent session token.
func NewSessionToken() string {
	return ulid.Make().String()
}

// NewSuggestionID generates a refactor suggestion id.
func NewSuggestionID() string {
	return "refactor-" + ulid.Make().String()
}

// NewModificationID generates a modification record id.
func NewModificationID() string {
	return "mod-" + ulid.Make().String()
}
