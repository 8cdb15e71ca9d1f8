package github

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"strconv"
)

// ReferrerParam is the query parameter GitHub uses to mark a
// notification as read when its link is followed.
const ReferrerParam = "notification_referrer_id"

// ReferrerStrategy selects how the referrer id is encoded.
type ReferrerStrategy string

const (
	// ReferrerThread encodes "018:NotificationThread<thread>:<user>".
	// This is the format GitHub's own web UI emits.
	ReferrerThread ReferrerStrategy = "thread"

	// ReferrerPacked is the older binary tuple encoding. GitHub no longer
	// accepts it for every account, so it is opt-in.
	ReferrerPacked ReferrerStrategy = "packed"

	// ReferrerNone leaves URLs untouched.
	ReferrerNone ReferrerStrategy = "none"
)

// ParseReferrerStrategy maps a config value to a strategy. The empty
// string selects ReferrerThread.
func ParseReferrerStrategy(s string) (ReferrerStrategy, error) {
	switch ReferrerStrategy(s) {
	case "", ReferrerThread:
		return ReferrerThread, nil
	case ReferrerPacked, ReferrerNone:
		return ReferrerStrategy(s), nil
	default:
		return "", fmt.Errorf("unknown referrer strategy %q", s)
	}
}

// Encode returns the referrer id for a thread and user. ok is false when
// the strategy is ReferrerNone, the user id is unknown or the thread id
// is not numeric for the packed encoding.
func (s ReferrerStrategy) Encode(threadID string, userID int64) (id string, ok bool) {
	if userID == 0 || threadID == "" {
		return "", false
	}

	switch s {
	case ReferrerThread, "":
		raw := fmt.Sprintf("018:NotificationThread%s:%d", threadID, userID)
		return "NT_" + base64.RawStdEncoding.EncodeToString([]byte(raw)), true

	case ReferrerPacked:
		nid, err := strconv.ParseUint(threadID, 10, 64)
		if err != nil {
			return "", false
		}
		// A three element msgpack array: [0, uint32 user, uint64 thread].
		buf := make([]byte, 0, 16)
		buf = append(buf, 0x93, 0x00, 0xce)
		buf = binary.BigEndian.AppendUint32(buf, uint32(userID))
		buf = append(buf, 0xcf)
		buf = binary.BigEndian.AppendUint64(buf, nid)
		return "NT_" + base64.RawStdEncoding.EncodeToString(buf), true

	default:
		return "", false
	}
}
