package session

import (
	"context"

	jww "github.com/spf13/jwalterweatherman"
)

// Reason is what caused a read receipt.
type Reason int

const (
	Enter Reason = iota
	Focus
	Leave
	Manual // marked read from the room list
)

func (r Reason) String() string {
	switch r {
	case Enter:
		return "enter"
	case Focus:
		return "focus"
	case Leave:
		return "leave"
	case Manual:
		return "manual"
	}
	return "unknown"
}

// MarkRead resets the unread counter of roomID for identity.
type MarkRead func(ctx context.Context, roomID, identity string) error

// Receipts fires read receipts for one identity in one room.
type Receipts struct {
	identity string
	roomID   string
	markRead MarkRead
}

func NewReceipts(identity, roomID string, markRead MarkRead) *Receipts {
	return &Receipts{identity: identity, roomID: roomID, markRead: markRead}
}

// Ready reports whether both the identity and the room are known.
func (r *Receipts) Ready() bool {
	return r != nil && r.identity != "" && r.roomID != "" && r.markRead != nil
}

// Fire sends one read receipt and reports whether it was accepted. It does
// nothing until the identity and room are known. A failure is logged and not
// retried.
func (r *Receipts) Fire(ctx context.Context, reason Reason) bool {
	if !r.Ready() {
		jww.DEBUG.Printf("Read receipt on %s skipped: room or identity unknown", reason)
		return false
	}

	if err := r.markRead(ctx, r.roomID, r.identity); err != nil {
		jww.WARN.Printf("Read receipt for %s in %s on %s failed: %+v", r.identity, r.roomID, reason, err)
		return false
	}

	jww.DEBUG.Printf("Marked %s read for %s on %s", r.roomID, r.identity, reason)
	return true
}
