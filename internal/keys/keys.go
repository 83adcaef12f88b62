// Package keys derives and parses the physical keys of the dual event index:
// the identity and date partition keys, the reverse-chronological row key, and
// the content id that links a date row back to its identity row.
package keys

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/eventrail/eventrail/pkg/types"
	"github.com/google/uuid"
)

const (
	// IdentityPrefix prefixes identity partition keys.
	IdentityPrefix = "id:"

	// DatePrefix prefixes date partition keys.
	DatePrefix = "date:"

	// rowKeyBaseLen is the fixed width of the reversed-ticks prefix.
	rowKeyBaseLen = 19

	// ticksPerSecond is the number of 100ns ticks in one second.
	ticksPerSecond = 10_000_000

	// tickDuration is the wall-clock span of one tick.
	tickDuration = 100 * time.Nanosecond

	// unixEpochTicks is the tick offset of 1970-01-01T00:00:00Z from
	// 0001-01-01T00:00:00Z.
	unixEpochTicks = 62135596800 * ticksPerSecond

	// maxTicks is the tick value of 9999-12-31T23:59:59.9999999Z, the
	// latest representable instant; row-key prefixes count down from it.
	maxTicks = int64(3155378975999999999)
)

// reservedChars are forbidden in key-forming identifiers. They collide with
// the store's key syntax and path separators.
const reservedChars = "/\\#?"

// Normalize canonicalizes an identifier for key construction: lower-case,
// hyphens stripped. Two hyphenation/case variants of the same identifier map
// to the same partition key.
func Normalize(id string) string {
	return strings.ToLower(strings.ReplaceAll(id, "-", ""))
}

// ValidateID rejects identifiers that are empty, contain control characters
// or reserved key characters, or normalize to the empty string.
func ValidateID(id string) error {
	if id == "" {
		return types.NewValidationError("identifier is required")
	}
	for _, r := range id {
		if r < 0x20 || r == 0x7f {
			return types.NewValidationError("identifier contains control characters")
		}
		if strings.ContainsRune(reservedChars, r) {
			return types.NewValidationError("identifier contains reserved character %q", r)
		}
	}
	// Hyphens are stripped during normalization; an identifier made only of
	// hyphens would collapse to the shared partition key "id:".
	if Normalize(id) == "" {
		return types.NewValidationError("identifier must contain characters other than hyphens")
	}
	return nil
}

// PartitionKeyForID derives the identity partition key for an identifier.
func PartitionKeyForID(id string) (string, error) {
	if err := ValidateID(id); err != nil {
		return "", err
	}
	return IdentityPrefix + Normalize(id), nil
}

// PartitionKeyForDate derives the date partition key for the UTC calendar day
// of t.
func PartitionKeyForDate(t time.Time) string {
	return DatePrefix + t.UTC().Format("20060102")
}

// Ticks converts t to 100ns intervals since 0001-01-01T00:00:00Z.
func Ticks(t time.Time) int64 {
	u := t.UTC()
	return u.Unix()*ticksPerSecond + int64(u.Nanosecond())/100 + unixEpochTicks
}

// RowKeyBase returns the 19-digit zero-padded reversed-ticks prefix for t.
// The prefix decreases as t increases, so lexicographic ascending row-key
// order is reverse chronological. Deterministic for a given timestamp, which
// makes it usable as a range-comparison boundary without the random suffix.
func RowKeyBase(t time.Time) string {
	return fmt.Sprintf("%019d", maxTicks-Ticks(t)+1)
}

// RowKeyUpperBound returns a strict lexicographic upper bound admitting the
// row key of every event created at or after t. RowKeyBase(t) itself cannot
// serve as an inclusive bound: a full row key extends the base with a
// hyphenated suffix and therefore sorts after the bare base, so a row created
// exactly at t would fail a "<= base" comparison. The base of the tick before
// t sits strictly above every such key.
func RowKeyUpperBound(t time.Time) string {
	return RowKeyBase(t.Add(-tickDuration))
}

// RowKey returns a fresh row key for t: the reversed-ticks prefix plus a
// random suffix. The suffix guarantees uniqueness for same-timestamp events
// and carries no ordering meaning.
func RowKey(t time.Time) string {
	return RowKeyBase(t) + "-" + uuid.NewString()
}

// TimeFromRowKey recovers the creation timestamp encoded in a row key.
func TimeFromRowKey(rowKey string) (time.Time, error) {
	if len(rowKey) < rowKeyBaseLen {
		return time.Time{}, fmt.Errorf("keys: row key too short: %q", rowKey)
	}
	n, err := strconv.ParseInt(rowKey[:rowKeyBaseLen], 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("keys: malformed row key prefix: %w", err)
	}
	ticks := maxTicks - n + 1 - unixEpochTicks
	return time.Unix(ticks/ticksPerSecond, (ticks%ticksPerSecond)*100).UTC(), nil
}

// ContentID derives the blob/content key for an event: the normalized
// identifier joined to the row key. The normalized identifier contains no
// hyphen, so the id can be split back out of the content id unambiguously.
func ContentID(id, rowKey string) (string, error) {
	if err := ValidateID(id); err != nil {
		return "", err
	}
	return Normalize(id) + "-" + rowKey, nil
}

// ParseContentID splits a content id into the normalized identifier and the
// row key it was built from.
func ParseContentID(contentID string) (id, rowKey string, err error) {
	i := strings.IndexByte(contentID, '-')
	if i <= 0 || i == len(contentID)-1 {
		return "", "", fmt.Errorf("keys: malformed content id: %q", contentID)
	}
	id, rowKey = contentID[:i], contentID[i+1:]
	if len(rowKey) < rowKeyBaseLen {
		return "", "", fmt.Errorf("keys: malformed content id row key: %q", contentID)
	}
	return id, rowKey, nil
}
