package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/swapstay/swapsync/internal/backend"
	"github.com/swapstay/swapsync/internal/models"
)

func notification(id string, status models.NotificationStatus) models.Notification {
	n := models.Notification{
		ID:        id,
		UserID:    "user-1",
		Type:      models.NotificationSwapAccepted,
		Title:     "Swap Accepted",
		Status:    status,
		CreatedAt: time.Now(),
	}
	if status == models.NotificationRead {
		readAt := n.CreatedAt
		n.ReadAt = &readAt
	}
	return n
}

func TestAddDeduplicatesByID(t *testing.T) {
	store := NewStore(StoreOptions{})

	require.True(t, store.Add(notification("n-1", models.NotificationDelivered)))
	require.False(t, store.Add(notification("n-1", models.NotificationDelivered)))

	require.Equal(t, 1, store.Len())
	require.Equal(t, 1, store.Unread())
}

func TestAddPrependsMostRecentFirst(t *testing.T) {
	store := NewStore(StoreOptions{})

	store.Add(notification("n-1", models.NotificationDelivered))
	store.Add(notification("n-2", models.NotificationDelivered))

	items := store.List(0)
	require.Equal(t, "n-2", items[0].ID)
	require.Equal(t, "n-1", items[1].ID)
}

func TestUnreadTracksReadStatus(t *testing.T) {
	store := NewStore(StoreOptions{})

	store.Add(notification("n-1", models.NotificationDelivered))
	store.Add(notification("n-2", models.NotificationRead))
	require.Equal(t, 1, store.Unread())

	require.True(t, store.MarkRead("n-1"))
	require.Equal(t, 0, store.Unread())

	// idempotent
	require.False(t, store.MarkRead("n-1"))
	require.Equal(t, 0, store.Unread())

	items := store.List(0)
	for _, item := range items {
		require.True(t, item.IsRead())
		require.NotNil(t, item.ReadAt)
	}
}

func TestMarkAllRead(t *testing.T) {
	store := NewStore(StoreOptions{})
	store.Add(notification("n-1", models.NotificationDelivered))
	store.Add(notification("n-2", models.NotificationDelivered))
	store.Add(notification("n-3", models.NotificationRead))

	require.Equal(t, 2, store.MarkAllRead())
	require.Equal(t, 0, store.Unread())
	require.Equal(t, 0, store.MarkAllRead())
}

type stubPager struct {
	page *backend.NotificationPage
	err  error
}

func (p *stubPager) FetchNotificationPage(ctx context.Context, cursor string, limit int) (*backend.NotificationPage, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.page, nil
}

func TestLoadMoreAppendsOlderHistory(t *testing.T) {
	pager := &stubPager{page: &backend.NotificationPage{
		Items: []models.Notification{
			notification("old-1", models.NotificationRead),
			notification("old-2", models.NotificationDelivered),
		},
		NextCursor: "cur-2",
		HasMore:    false,
	}}
	store := NewStore(StoreOptions{Pager: pager})
	store.Add(notification("live-1", models.NotificationDelivered))

	require.NoError(t, store.LoadMore(context.Background()))

	items := store.List(0)
	require.Equal(t, []string{"live-1", "old-1", "old-2"}, []string{items[0].ID, items[1].ID, items[2].ID})
	require.Equal(t, 2, store.Unread())
	require.False(t, store.HasMore())
	require.NoError(t, store.LastError())
}

func TestLoadMoreFailurePreservesState(t *testing.T) {
	pager := &stubPager{err: errors.New("backend down")}
	store := NewStore(StoreOptions{Pager: pager})
	store.Add(notification("live-1", models.NotificationDelivered))

	err := store.LoadMore(context.Background())
	require.Error(t, err)

	// prior state untouched, error surfaced as a flag
	require.Equal(t, 1, store.Len())
	require.Equal(t, 1, store.Unread())
	require.Error(t, store.LastError())
	require.True(t, store.HasMore())

	// a later successful fetch clears the flag
	pager.err = nil
	pager.page = &backend.NotificationPage{HasMore: false}
	require.NoError(t, store.LoadMore(context.Background()))
	require.NoError(t, store.LastError())
}

func TestOnAddHookFires(t *testing.T) {
	var offered []string
	store := NewStore(StoreOptions{OnAdd: func(n models.Notification) {
		offered = append(offered, n.ID)
	}})

	store.Add(notification("n-1", models.NotificationDelivered))
	store.Add(notification("n-1", models.NotificationDelivered))

	require.Equal(t, []string{"n-1"}, offered)
}
