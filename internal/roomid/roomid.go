// Package roomid derives and parses the canonical identifier of a two-party
// chat room. A room id is "min(a,b):max(a,b)", so it is the same whichever
// participant computes it.
package roomid

import (
	"strings"

	"github.com/pkg/errors"
)

const separator = ":"

var (
	ErrInvalidIdentity = errors.New("identity must not be empty")
	ErrMalformedRoomID = errors.New("room id must be two non-empty identities separated by ':'")
)

// Derive returns the canonical room id for identities a and b.
func Derive(a, b string) (string, error) {
	if a == "" || b == "" {
		return "", ErrInvalidIdentity
	}
	if a < b {
		return a + separator + b, nil
	}
	return b + separator + a, nil
}

// Split returns both halves of a room id.
func Split(roomID string) (string, string, error) {
	parts := strings.Split(roomID, separator)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", errors.Wrapf(ErrMalformedRoomID, "room id %q", roomID)
	}
	return parts[0], parts[1], nil
}

// SplitCounterpart returns the half of roomID that is not self. When neither
// half equals self the first half is returned; callers that need to know
// whether self is a participant should use IsParticipant.
func SplitCounterpart(roomID, self string) (string, error) {
	first, second, err := Split(roomID)
	if err != nil {
		return "", err
	}
	if first == self {
		return second, nil
	}
	return first, nil
}

// IsParticipant reports whether identity is one of the halves of roomID.
func IsParticipant(roomID, identity string) bool {
	first, second, err := Split(roomID)
	if err != nil {
		return false
	}
	return first == identity || second == identity
}

// DisplayName names a room from self's point of view.
func DisplayName(roomID, self string) string {
	first, second, err := Split(roomID)
	if err != nil {
		return roomID
	}
	if first == second {
		return "Me"
	}
	if !IsParticipant(roomID, self) {
		return roomID
	}
	counterpart, _ := SplitCounterpart(roomID, self)
	return counterpart
}

// Target is how a room is entered: by an existing room id (from the room
// list) or by the identity of the other party (new conversation, post
// inquiry). RoomID wins when both are set.
type Target struct {
	RoomID   string
	Receiver string
}

// Resolve turns a Target into the room id and the counterpart identity.
func Resolve(self string, target Target) (string, string, error) {
	if self == "" {
		return "", "", ErrInvalidIdentity
	}
	if target.RoomID != "" {
		counterpart, err := SplitCounterpart(target.RoomID, self)
		if err != nil {
			return "", "", err
		}
		return target.RoomID, counterpart, nil
	}
	receiver := strings.TrimSpace(target.Receiver)
	roomID, err := Derive(self, receiver)
	if err != nil {
		return "", "", err
	}
	return roomID, receiver, nil
}
