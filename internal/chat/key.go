package chat

import (
	"sort"
	"strings"
)

// Key identifies a two-party, job-scoped conversation. Both participants
// derive the same key without coordination: the poster id, accepted-user id
// and job id are sorted before joining, so argument order never matters.
// The key doubles as the relay room id.
type Key string

// DeriveKey computes the conversation key for a job-tied thread.
func DeriveKey(posterID, acceptedUserID, jobID string) Key {
	parts := []string{posterID, acceptedUserID, jobID}
	sort.Strings(parts)
	return Key(strings.Join(parts, "-"))
}

func (k Key) String() string { return string(k) }
