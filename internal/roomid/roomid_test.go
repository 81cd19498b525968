package roomid

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDerive(t *testing.T) {
	tests := []struct {
		a, b     string
		expected string
	}{
		{"alice", "bob", "alice:bob"},
		{"bob", "alice", "alice:bob"},
		{"carol", "carol", "carol:carol"},
		{"Zed", "abe", "Zed:abe"},
		{"user10", "user9", "user10:user9"},
	}

	for i, tt := range tests {
		roomID, err := Derive(tt.a, tt.b)
		if err != nil {
			t.Errorf("Derive(%q, %q) failed (%d): %+v", tt.a, tt.b, i, err)
			continue
		}
		if roomID != tt.expected {
			t.Errorf("Unexpected room id (%d).\nexpected: %s\nreceived: %s",
				i, tt.expected, roomID)
		}
	}
}

// Tests that the room id does not depend on argument order.
func TestDerive_Symmetric(t *testing.T) {
	identities := []string{"alice", "bob", "carol", "x", "y", "Émile", "123", "a b"}
	for _, a := range identities {
		for _, b := range identities {
			ab, err := Derive(a, b)
			require.NoError(t, err)
			ba, err := Derive(b, a)
			require.NoError(t, err)
			assert.Equal(t, ab, ba, "Derive(%q, %q)", a, b)
		}
	}
}

func TestDerive_InvalidIdentity(t *testing.T) {
	for _, pair := range [][2]string{{"", "bob"}, {"alice", ""}, {"", ""}} {
		_, err := Derive(pair[0], pair[1])
		if !errors.Is(err, ErrInvalidIdentity) {
			t.Errorf("Derive(%q, %q) expected ErrInvalidIdentity, received %v",
				pair[0], pair[1], err)
		}
	}
}

func TestSplitCounterpart(t *testing.T) {
	counterpart, err := SplitCounterpart("x:y", "x")
	require.NoError(t, err)
	assert.Equal(t, "y", counterpart)

	counterpart, err = SplitCounterpart("x:y", "y")
	require.NoError(t, err)
	assert.Equal(t, "x", counterpart)

	// Neither half matches: the first half is returned.
	counterpart, err = SplitCounterpart("x:y", "z")
	require.NoError(t, err)
	assert.Equal(t, "x", counterpart)

	counterpart, err = SplitCounterpart("me:me", "me")
	require.NoError(t, err)
	assert.Equal(t, "me", counterpart)
}

func TestSplitCounterpart_Malformed(t *testing.T) {
	for _, roomID := range []string{"", "alice", "alice:", ":bob", "a:b:c", ":"} {
		_, err := SplitCounterpart(roomID, "alice")
		if !errors.Is(err, ErrMalformedRoomID) {
			t.Errorf("SplitCounterpart(%q) expected ErrMalformedRoomID, received %v",
				roomID, err)
		}
	}
}

func TestDeriveThenSplit(t *testing.T) {
	roomID, err := Derive("alice", "bob")
	require.NoError(t, err)
	require.Equal(t, "alice:bob", roomID)

	counterpart, err := SplitCounterpart(roomID, "bob")
	require.NoError(t, err)
	assert.Equal(t, "alice", counterpart)
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "bob", DisplayName("alice:bob", "alice"))
	assert.Equal(t, "alice", DisplayName("alice:bob", "bob"))
	assert.Equal(t, "Me", DisplayName("alice:alice", "alice"))
	assert.Equal(t, "alice:bob", DisplayName("alice:bob", "carol"))
	assert.Equal(t, "garbage", DisplayName("garbage", "alice"))
}

func TestIsParticipant(t *testing.T) {
	assert.True(t, IsParticipant("alice:bob", "bob"))
	assert.False(t, IsParticipant("alice:bob", "carol"))
	assert.False(t, IsParticipant("alice", "alice"))
}

func TestResolve(t *testing.T) {
	roomID, counterpart, err := Resolve("bob", Target{Receiver: " alice "})
	require.NoError(t, err)
	assert.Equal(t, "alice:bob", roomID)
	assert.Equal(t, "alice", counterpart)

	roomID, counterpart, err = Resolve("bob", Target{RoomID: "alice:bob", Receiver: "ignored"})
	require.NoError(t, err)
	assert.Equal(t, "alice:bob", roomID)
	assert.Equal(t, "alice", counterpart)

	_, _, err = Resolve("bob", Target{})
	assert.True(t, errors.Is(err, ErrInvalidIdentity))

	_, _, err = Resolve("", Target{Receiver: "alice"})
	assert.True(t, errors.Is(err, ErrInvalidIdentity))

	_, _, err = Resolve("bob", Target{RoomID: "nope"})
	assert.True(t, errors.Is(err, ErrMalformedRoomID))
}
