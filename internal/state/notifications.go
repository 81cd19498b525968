package state

import "github.com/saravenpi/parley/internal/models"

// NotificationGroups groups notifications by sender. Senders are ordered by
// their most recent notification and each sender's list is most-recent-first.
// The zero value is an empty grouping.
type NotificationGroups struct {
	senders  []string
	bySender map[string][]models.Notification
}

// Senders returns the senders, most recent first.
func (g NotificationGroups) Senders() []string {
	out := make([]string, len(g.senders))
	copy(out, g.senders)
	return out
}

// For returns the notifications of one sender, most recent first.
func (g NotificationGroups) For(sender string) []models.Notification {
	list := g.bySender[sender]
	out := make([]models.Notification, len(list))
	copy(out, list)
	return out
}

// Len is the number of senders.
func (g NotificationGroups) Len() int { return len(g.senders) }

// Total is the number of notifications across all senders.
func (g NotificationGroups) Total() int {
	total := 0
	for _, list := range g.bySender {
		total += len(list)
	}
	return total
}

// ApplyNotification prepends n to its sender's list, creating the sender if
// needed, and moves the sender to the front.
func ApplyNotification(g NotificationGroups, n models.Notification) NotificationGroups {
	out := NotificationGroups{
		senders:  make([]string, 0, len(g.senders)+1),
		bySender: make(map[string][]models.Notification, len(g.bySender)+1),
	}
	for sender, list := range g.bySender {
		out.bySender[sender] = list
	}

	existing := g.bySender[n.Sender]
	list := make([]models.Notification, 0, len(existing)+1)
	list = append(list, n)
	list = append(list, existing...)
	out.bySender[n.Sender] = list

	out.senders = append(out.senders, n.Sender)
	for _, sender := range g.senders {
		if sender != n.Sender {
			out.senders = append(out.senders, sender)
		}
	}
	return out
}

// ClearAllNotifications returns an empty grouping.
func ClearAllNotifications(NotificationGroups) NotificationGroups {
	return NotificationGroups{}
}
