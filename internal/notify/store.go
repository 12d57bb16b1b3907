package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/swapstay/swapsync/internal/backend"
	"github.com/swapstay/swapsync/internal/models"
	"github.com/swapstay/swapsync/internal/monitoring"
	"github.com/swapstay/swapsync/pkg/logger"
)

// Pager fetches older notification pages from the backend.
type Pager interface {
	FetchNotificationPage(ctx context.Context, cursor string, limit int) (*backend.NotificationPage, error)
}

// StoreOptions configure a notification store.
type StoreOptions struct {
	// Pager backs LoadMore. Pagination is disabled when nil.
	Pager    Pager
	PageSize int
	// OnAdd runs after a notification is accepted, outside the store lock.
	// Used to offer the notification for toast admission.
	OnAdd func(models.Notification)
}

// Store is the single source of truth for notifications and their read state.
// The list is ordered most-recent-first.
type Store struct {
	opts StoreOptions
	log  *zap.Logger

	mu      sync.Mutex
	items   []models.Notification
	known   map[string]struct{}
	unread  int
	cursor  string
	hasMore bool
	loading bool
	loadErr error
}

// NewStore constructs an empty notification store.
func NewStore(opts StoreOptions) *Store {
	if opts.PageSize <= 0 {
		opts.PageSize = 25
	}
	return &Store{
		opts:    opts,
		log:     logger.WithModule("notify"),
		known:   map[string]struct{}{},
		hasMore: true,
	}
}

// Add accepts a notification into the store. Duplicates by id are ignored.
// Returns true when the notification was stored.
func (s *Store) Add(notification models.Notification) bool {
	if s == nil || notification.ID == "" {
		return false
	}

	s.mu.Lock()
	if _, exists := s.known[notification.ID]; exists {
		s.mu.Unlock()
		monitoring.RecordNotificationStored("duplicate")
		return false
	}
	s.known[notification.ID] = struct{}{}
	s.items = append([]models.Notification{notification}, s.items...)
	if !notification.IsRead() {
		s.unread++
	}
	unread := s.unread
	s.mu.Unlock()

	monitoring.RecordNotificationStored("stored")
	monitoring.SetUnreadCount(unread)

	if s.opts.OnAdd != nil {
		s.opts.OnAdd(notification)
	}
	return true
}

// MarkRead marks one notification read. Idempotent; returns true when state
// changed.
func (s *Store) MarkRead(id string) bool {
	if s == nil {
		return false
	}

	s.mu.Lock()
	changed := false
	for i := range s.items {
		if s.items[i].ID != id {
			continue
		}
		if !s.items[i].IsRead() {
			now := time.Now()
			s.items[i].Status = models.NotificationRead
			s.items[i].ReadAt = &now
			s.unread--
			changed = true
		}
		break
	}
	unread := s.unread
	s.mu.Unlock()

	if changed {
		monitoring.SetUnreadCount(unread)
	}
	return changed
}

// MarkAllRead marks every notification read and returns how many changed.
func (s *Store) MarkAllRead() int {
	if s == nil {
		return 0
	}

	s.mu.Lock()
	changed := 0
	now := time.Now()
	for i := range s.items {
		if s.items[i].IsRead() {
			continue
		}
		s.items[i].Status = models.NotificationRead
		readAt := now
		s.items[i].ReadAt = &readAt
		changed++
	}
	s.unread = 0
	s.mu.Unlock()

	if changed > 0 {
		monitoring.SetUnreadCount(0)
	}
	return changed
}

// LoadMore fetches the next page of history. A failed fetch leaves existing
// notifications untouched and surfaces the error via LastError.
func (s *Store) LoadMore(ctx context.Context) error {
	if s == nil {
		return nil
	}
	if s.opts.Pager == nil {
		return nil
	}

	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return nil
	}
	if !s.hasMore {
		s.mu.Unlock()
		return nil
	}
	s.loading = true
	cursor := s.cursor
	s.mu.Unlock()

	page, err := s.opts.Pager.FetchNotificationPage(ctx, cursor, s.opts.PageSize)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.loadErr = err
		s.log.Warn("notification page fetch failed", zap.Error(err))
		return fmt.Errorf("notify: load more: %w", err)
	}

	s.loadErr = nil
	for _, item := range page.Items {
		if item.ID == "" {
			continue
		}
		if _, exists := s.known[item.ID]; exists {
			continue
		}
		s.known[item.ID] = struct{}{}
		// history pages are older than what we hold; append in page order
		s.items = append(s.items, item)
		if !item.IsRead() {
			s.unread++
		}
	}
	s.cursor = page.NextCursor
	s.hasMore = page.HasMore
	monitoring.SetUnreadCount(s.unread)
	return nil
}

// List returns up to limit notifications, most recent first. A non-positive
// limit returns everything.
func (s *Store) List(limit int) []models.Notification {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	count := len(s.items)
	if limit > 0 && limit < count {
		count = limit
	}
	out := make([]models.Notification, count)
	copy(out, s.items[:count])
	return out
}

// Unread returns the current unread count.
func (s *Store) Unread() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread
}

// Len returns the number of stored notifications.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// HasMore reports whether older pages remain.
func (s *Store) HasMore() bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasMore
}

// LastError returns the error flag from the most recent failed fetch, cleared
// by the next successful one.
func (s *Store) LastError() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadErr
}
