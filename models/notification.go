package models

import "time"

type NotificationType string

const (
	NotificationAssignment   NotificationType = "assignment"
	NotificationStatusUpdate NotificationType = "status-update"
	NotificationSystem       NotificationType = "system"
	NotificationGeneric      NotificationType = "generic"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotificationAssignment, NotificationStatusUpdate, NotificationSystem, NotificationGeneric:
		return true
	}
	return false
}

// Notification is addressed to exactly one recipient.
type Notification struct {
	ID             string           `json:"id"`
	RecipientID    string           `json:"recipientId"`
	Title          string           `json:"title"`
	Message        string           `json:"message"`
	Type           NotificationType `json:"type"`
	Priority       Priority         `json:"priority"`
	RelatedIssueID string           `json:"relatedIssueId,omitempty"`
	SenderID       string           `json:"senderId"`
	SenderName     string           `json:"senderName"`
	Read           bool             `json:"read"`
	ReadAt         *time.Time       `json:"readAt,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
}

// Sender is copied onto each notification at dispatch time.
type Sender struct {
	ID   string
	Name string
}

// SystemSender is used for notifications the engine emits on its own.
var SystemSender = Sender{ID: AssignedBySystem, Name: "System"}
