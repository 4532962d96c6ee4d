package cache

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/purell"
)

const normalizeFlags = purell.FlagsSafe |
	purell.FlagRemoveDotSegments |
	purell.FlagRemoveDuplicateSlashes |
	purell.FlagRemoveFragment |
	purell.FlagSortQuery

// Key identifies a payload fetched from `Endpoint` on behalf of `Participant`
// during the calendar day `Day` (yyyymmdd).
type Key struct {
	Endpoint    string
	Participant string
	Day         string
}

// NewKey normalizes `endpoint` so equivalent urls (different query order,
// fragments, default ports, host casing) share the same key.
func NewKey(endpoint, participant, day string) (Key, error) {
	normalized, err := purell.NormalizeURLString(endpoint, normalizeFlags)
	if err != nil {
		return Key{}, fmt.Errorf("normalize endpoint %q: %w", endpoint, err)
	}
	if len(day) != 8 {
		return Key{}, fmt.Errorf("invalid day %q", day)
	}
	return Key{
		Endpoint:    normalized,
		Participant: participant,
		Day:         day,
	}, nil
}

// String is the badger key, entries of the same day share a prefix.
func (k Key) String() string {
	return k.Day + ":" + k.Participant + ":" + k.Endpoint
}

var participantReplacer = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	" ", "_",
	"..", "_",
)

func safeParticipant(participant string) string {
	if participant == "" {
		return "_"
	}
	return participantReplacer.Replace(participant)
}
