package core

import (
	"context"
	"fmt"
	"sort"

	"rentcore/pkg/domain"
)

// Notifications lists a user's notifications newest first, optionally only unread ones.
func (s *Service) Notifications(ctx context.Context, userID string, unreadOnly bool) ([]Notification, error) {
	var out []Notification
	err := s.store.View(ctx, func(view TransactionView) error {
		for _, n := range view.ListNotifications() {
			if n.UserID == userID && (!unreadOnly || !n.Read) {
				out = append(out, n)
			}
		}
		return nil
	})
	newestFirst(out, func(n Notification) domain.Base { return n.Base })
	return out, err
}

// UnreadCount returns how many unread notifications a user has.
func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	unread, err := s.Notifications(ctx, userID, true)
	return len(unread), err
}

// MarkAsRead marks one notification read.
func (s *Service) MarkAsRead(ctx context.Context, id string) (Notification, Result, error) {
	var updated Notification
	res, err := s.run(ctx, "mark_notification_read", func(tx Transaction) (activity, error) {
		var err error
		updated, err = tx.UpdateNotification(id, func(n *Notification) error {
			n.Read = true
			return nil
		})
		if err != nil {
			return activity{}, err
		}
		return activity{domain.EntityNotification, id, "notification read"}, nil
	})
	return updated, res, err
}

// MarkAllAsRead marks every unread notification of a user read and returns how many changed.
func (s *Service) MarkAllAsRead(ctx context.Context, userID string) (int, Result, error) {
	var count int
	res, err := s.run(ctx, "mark_all_notifications_read", func(tx Transaction) (activity, error) {
		count = 0
		for _, n := range tx.Snapshot().ListNotifications() {
			if n.UserID != userID || n.Read {
				continue
			}
			if _, err := tx.UpdateNotification(n.ID, func(n *Notification) error {
				n.Read = true
				return nil
			}); err != nil {
				return activity{}, err
			}
			count++
		}
		if count == 0 {
			return activity{}, nil
		}
		return activity{domain.EntityNotification, userID, fmt.Sprintf("%d notifications read", count)}, nil
	})
	return count, res, err
}

// DeleteNotification removes a notification.
func (s *Service) DeleteNotification(ctx context.Context, id string) (Result, error) {
	return s.run(ctx, "delete_notification", func(tx Transaction) (activity, error) {
		if err := tx.DeleteNotification(id); err != nil {
			return activity{}, err
		}
		return activity{domain.EntityNotification, id, "notification deleted"}, nil
	})
}

// ActivityLog returns the most recent activity entries newest first. A
// non-positive limit returns everything.
func (s *Service) ActivityLog(ctx context.Context, limit int) ([]ActivityLog, error) {
	var out []ActivityLog
	err := s.store.View(ctx, func(view TransactionView) error {
		out = view.ListActivity()
		return nil
	})
	newestFirst(out, func(a ActivityLog) domain.Base { return a.Base })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, err
}

func newestFirst[T any](items []T, base func(T) domain.Base) {
	sort.SliceStable(items, func(i, j int) bool {
		bi, bj := base(items[i]), base(items[j])
		if !bi.CreatedAt.Equal(bj.CreatedAt) {
			return bi.CreatedAt.After(bj.CreatedAt)
		}
		if bi.Seq != bj.Seq {
			return bi.Seq > bj.Seq
		}
		return bi.ID > bj.ID
	})
}
