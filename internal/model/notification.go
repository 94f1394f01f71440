package model

import "time"

// MaxNotifications 每个用户保留的最近通知条数
const MaxNotifications = 50

type NotificationType string

const (
	NotifyBadge       NotificationType = "badge"
	NotifyParcours    NotificationType = "parcours"
	NotifyCertificate NotificationType = "certificate"
	NotifySecurity    NotificationType = "security"
	NotifyReport      NotificationType = "report"
)

type Notification struct {
	Type    NotificationType `json:"type"`
	Message string           `json:"message"`
	Date    time.Time        `json:"date"`
	Read    bool             `json:"read"`
}
