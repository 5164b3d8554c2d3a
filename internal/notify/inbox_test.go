package notify

import (
	"testing"

	"github.com/jpalmerr/halolight/internal/model"
)

func seed() []model.Notification {
	return []model.Notification{
		{ID: "1", Type: model.NotificationInfo, Title: "one"},
		{ID: "2", Type: model.NotificationSuccess, Title: "two", Read: true},
		{ID: "3", Type: model.NotificationWarning, Title: "three"},
	}
}

func TestInbox_SeedCountsUnread(t *testing.T) {
	b := NewInbox(seed(), WithInboxLogger(testLogger()))
	if got := b.UnreadCount(); got != 2 {
		t.Errorf("UnreadCount() = %d, want 2", got)
	}
}

func TestInbox_PushPrependsAndDedupes(t *testing.T) {
	b := NewInbox(seed(), WithInboxLogger(testLogger()))

	notified := 0
	defer b.Subscribe(func(InboxState) { notified++ })()

	b.Push(model.Notification{ID: "ws-1", Type: model.NotificationTask, Title: "new"})
	b.Push(model.Notification{ID: "ws-1", Type: model.NotificationTask, Title: "new"})

	got := b.Get()
	if len(got.Items) != 4 || got.Items[0].ID != "ws-1" {
		t.Errorf("items = %+v", got.Items)
	}
	if got.Unread != 3 {
		t.Errorf("unread = %d, want 3", got.Unread)
	}
	if notified != 1 {
		t.Errorf("notified %d times, want 1", notified)
	}
}

func TestInbox_CapacityDropsOldest(t *testing.T) {
	b := NewInbox(seed(), WithCapacity(3), WithInboxLogger(testLogger()))
	b.Push(model.Notification{ID: "4"})

	got := b.Get().Items
	if len(got) != 3 || got[0].ID != "4" || got[2].ID != "2" {
		t.Errorf("items = %+v", got)
	}
}

func TestInbox_MarkRead(t *testing.T) {
	b := NewInbox(seed(), WithInboxLogger(testLogger()))

	if !b.MarkRead("1") {
		t.Error("MarkRead(1) = false")
	}
	if b.MarkRead("missing") {
		t.Error("MarkRead(missing) = true")
	}
	if got := b.UnreadCount(); got != 1 {
		t.Errorf("UnreadCount() = %d, want 1", got)
	}

	notified := 0
	defer b.Subscribe(func(InboxState) { notified++ })()
	if !b.MarkRead("1") {
		t.Error("MarkRead on an already read item should still report found")
	}
	if notified != 0 {
		t.Errorf("re-marking notified %d times", notified)
	}
}

func TestInbox_MarkAllRead(t *testing.T) {
	b := NewInbox(seed(), WithInboxLogger(testLogger()))
	b.MarkAllRead()

	got := b.Get()
	if got.Unread != 0 {
		t.Errorf("unread = %d", got.Unread)
	}
	for _, it := range got.Items {
		if !it.Read {
			t.Errorf("item %s still unread", it.ID)
		}
	}
}

func TestInbox_GetReturnsCopy(t *testing.T) {
	b := NewInbox(seed(), WithInboxLogger(testLogger()))
	got := b.Get()
	got.Items[0].Read = true

	if b.Get().Items[0].Read {
		t.Error("Get() leaked internal slice")
	}
}
