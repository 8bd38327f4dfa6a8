package services

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"

	"civicsync/apperr"
	"civicsync/models"
	"civicsync/store"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Group aliases accepted as a recipient selector.
const (
	AliasAll         = "all"
	AliasTechnicians = "technicians"
	AliasCitizens    = "citizens"
)

// IsAlias reports whether selector names a group rather than a principal.
func IsAlias(selector string) bool {
	switch selector {
	case AliasAll, AliasTechnicians, AliasCitizens:
		return true
	}
	return false
}

// ExpandAlias resolves a group alias against principals. The result holds
// each matching id once, in principal order.
func ExpandAlias(alias string, principals []models.Principal) []string {
	seen := make(map[string]struct{}, len(principals))
	var ids []string
	for _, p := range principals {
		switch alias {
		case AliasAll:
		case AliasTechnicians:
			if p.Role != models.RoleTechnician {
				continue
			}
		case AliasCitizens:
			if p.Role != models.RoleCitizen {
				continue
			}
		default:
			return nil
		}
		if _, dup := seen[p.ID]; dup || p.ID == "" {
			continue
		}
		seen[p.ID] = struct{}{}
		ids = append(ids, p.ID)
	}
	return ids
}

// Dispatch is one notification intent.
type Dispatch struct {
	// To is a principal id or a group alias.
	To             string
	Title          string
	Message        string
	Type           models.NotificationType
	Priority       models.Priority
	RelatedIssueID string
	Sender         models.Sender
}

// Notifier fans notification intents out to one stored record per
// recipient under notification:<recipient>:<id>.
type Notifier struct {
	kv         store.KV
	principals Principals
	clock      Clock
	logger     *zap.Logger
}

func NewNotifier(kv store.KV, principals Principals, clock Clock, logger *zap.Logger) *Notifier {
	return &Notifier{kv: kv, principals: principals, clock: clock, logger: logger}
}

// Dispatch expands the selector and writes one notification per
// recipient. Group membership is read from the identity adapter on every
// call. If any write fails the ones already written are removed.
func (n *Notifier) Dispatch(ctx context.Context, d Dispatch) ([]models.Notification, error) {
	d.To = strings.TrimSpace(d.To)
	d.Title = strings.TrimSpace(d.Title)
	d.Message = strings.TrimSpace(d.Message)
	if d.To == "" {
		return nil, apperr.Validation("recipient is required")
	}
	if d.Title == "" || d.Message == "" {
		return nil, apperr.Validation("title and message are required")
	}
	if d.Type == "" {
		d.Type = models.NotificationGeneric
	}
	if !d.Type.Valid() {
		return nil, apperr.Validation("invalid notification type %q", d.Type)
	}
	if d.Priority == "" {
		d.Priority = models.PriorityMedium
	}
	if !d.Priority.Valid() {
		return nil, apperr.Validation("invalid priority %q", d.Priority)
	}

	recipients := []string{d.To}
	if IsAlias(d.To) {
		principals, err := n.principals.ListPrincipals(ctx)
		if err != nil {
			return nil, apperr.Adapter("failed to list principals", err)
		}
		recipients = ExpandAlias(d.To, principals)
	}

	now := n.clock.Now()
	written := make([]models.Notification, 0, len(recipients))
	for _, recipient := range recipients {
		notif := models.Notification{
			ID:             primitive.NewObjectID().Hex(),
			RecipientID:    recipient,
			Title:          d.Title,
			Message:        d.Message,
			Type:           d.Type,
			Priority:       d.Priority,
			RelatedIssueID: d.RelatedIssueID,
			SenderID:       d.Sender.ID,
			SenderName:     d.Sender.Name,
			CreatedAt:      now,
		}
		if err := n.put(ctx, &notif); err != nil {
			n.rollback(ctx, written)
			return nil, err
		}
		written = append(written, notif)
	}

	n.logger.Info("Notifications dispatched",
		zap.String("selector", d.To),
		zap.String("type", string(d.Type)),
		zap.Int("recipients", len(written)),
		zap.String("related_issue_id", d.RelatedIssueID))
	return written, nil
}

// Announce is the administrator entry point. Unlike lifecycle dispatches
// a single recipient id is checked against the directory first.
func (n *Notifier) Announce(ctx context.Context, actor models.Principal, d Dispatch) ([]models.Notification, error) {
	if actor.Role != models.RoleAdmin {
		return nil, apperr.Forbidden("only administrators can send announcements")
	}
	if to := strings.TrimSpace(d.To); to != "" && !IsAlias(to) {
		if _, err := n.principals.GetPrincipal(ctx, to); err != nil {
			return nil, err
		}
	}
	d.Sender = models.Sender{ID: actor.ID, Name: actor.DisplayName}
	if d.Type == "" {
		d.Type = models.NotificationSystem
	}
	return n.Dispatch(ctx, d)
}

// ListForRecipient returns the recipient's notifications, newest first.
func (n *Notifier) ListForRecipient(ctx context.Context, recipientID string, unreadOnly bool) ([]models.Notification, error) {
	raw, err := n.kv.ScanPrefix(ctx, store.NotificationPrefix(recipientID))
	if err != nil {
		return nil, apperr.Adapter("failed to scan notifications", err)
	}
	out := make([]models.Notification, 0, len(raw))
	for _, r := range raw {
		var notif models.Notification
		if err := json.Unmarshal([]byte(r), &notif); err != nil {
			n.logger.Warn("Skipping undecodable notification", zap.Error(err))
			continue
		}
		if unreadOnly && notif.Read {
			continue
		}
		out = append(out, notif)
	}
	slices.SortStableFunc(out, func(a, b models.Notification) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

// UnreadCount counts the recipient's unread notifications.
func (n *Notifier) UnreadCount(ctx context.Context, recipientID string) (int, error) {
	unread, err := n.ListForRecipient(ctx, recipientID, true)
	if err != nil {
		return 0, err
	}
	return len(unread), nil
}

// MarkRead flips read and stamps readAt. Marking an already read
// notification changes nothing.
func (n *Notifier) MarkRead(ctx context.Context, recipientID, id string) (*models.Notification, error) {
	notif, err := n.get(ctx, recipientID, id)
	if err != nil {
		return nil, err
	}
	if notif.Read {
		return notif, nil
	}
	now := n.clock.Now()
	notif.Read = true
	notif.ReadAt = &now
	if err := n.put(ctx, notif); err != nil {
		return nil, err
	}
	return notif, nil
}

// MarkAllRead marks every unread notification of the recipient and
// returns how many changed.
func (n *Notifier) MarkAllRead(ctx context.Context, recipientID string) (int, error) {
	unread, err := n.ListForRecipient(ctx, recipientID, true)
	if err != nil {
		return 0, err
	}
	now := n.clock.Now()
	for i := range unread {
		unread[i].Read = true
		unread[i].ReadAt = &now
		if err := n.put(ctx, &unread[i]); err != nil {
			return i, err
		}
	}
	return len(unread), nil
}

// Delete removes one of the recipient's notifications.
func (n *Notifier) Delete(ctx context.Context, recipientID, id string) error {
	if _, err := n.get(ctx, recipientID, id); err != nil {
		return err
	}
	if err := n.kv.Delete(ctx, store.NotificationKey(recipientID, id)); err != nil {
		return apperr.Adapter("failed to delete notification", err)
	}
	return nil
}

func (n *Notifier) get(ctx context.Context, recipientID, id string) (*models.Notification, error) {
	raw, err := n.kv.Get(ctx, store.NotificationKey(recipientID, id))
	if errors.Is(err, store.ErrMissing) {
		return nil, apperr.NotFound("notification %s not found", id)
	}
	if err != nil {
		return nil, apperr.Adapter("failed to load notification", err)
	}
	var notif models.Notification
	if err := json.Unmarshal([]byte(raw), &notif); err != nil {
		return nil, apperr.Adapter("failed to decode notification", err)
	}
	return &notif, nil
}

func (n *Notifier) put(ctx context.Context, notif *models.Notification) error {
	encoded, err := json.Marshal(notif)
	if err != nil {
		return apperr.Adapter("failed to encode notification", err)
	}
	if err := n.kv.Set(ctx, store.NotificationKey(notif.RecipientID, notif.ID), string(encoded)); err != nil {
		n.logger.Error("Failed to save notification", zap.String("recipient_id", notif.RecipientID), zap.Error(err))
		return apperr.Adapter("failed to save notification", err)
	}
	return nil
}

func (n *Notifier) rollback(ctx context.Context, written []models.Notification) {
	for _, notif := range written {
		if err := n.kv.Delete(ctx, store.NotificationKey(notif.RecipientID, notif.ID)); err != nil {
			n.logger.Error("Failed to roll back notification", zap.String("notification_id", notif.ID), zap.Error(err))
		}
	}
}
