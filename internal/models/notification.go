package models

import (
	"maps"
	"time"
)

type NotificationType string

const (
	TypeWeather    NotificationType = "weather"
	TypeAdvisory   NotificationType = "advisory"
	TypeIrrigation NotificationType = "irrigation"
	TypeHarvest    NotificationType = "harvest"
	TypeGeneral    NotificationType = "general"
)

// Valid reports whether t is one of the known notification types.
func (t NotificationType) Valid() bool {
	switch t {
	case TypeWeather, TypeAdvisory, TypeIrrigation, TypeHarvest, TypeGeneral:
		return true
	}
	return false
}

type NotificationPriority string

const (
	NotificationHigh   NotificationPriority = "high"
	NotificationMedium NotificationPriority = "medium"
	NotificationLow    NotificationPriority = "low"
)

// Candidate is a notification that has not been sent yet.
type Candidate struct {
	Title    string               `json:"title" binding:"required"`
	Body     string               `json:"body"`
	Type     NotificationType     `json:"type" binding:"required"`
	Priority NotificationPriority `json:"priority" binding:"required"`
	Tag      string               `json:"tag,omitempty"`
	Data     map[string]any       `json:"data,omitempty"`
}

// Notification is a delivered, user-facing record with read state.
// Timestamp is serialized as an ISO-8601 string.
type Notification struct {
	ID        string               `json:"id"`
	Title     string               `json:"title"`
	Body      string               `json:"body"`
	Type      NotificationType     `json:"type"`
	Priority  NotificationPriority `json:"priority"`
	Tag       string               `json:"tag,omitempty"`
	Data      map[string]any       `json:"data,omitempty"`
	Timestamp time.Time            `json:"timestamp"`
	Read      bool                 `json:"read"`
}

// Clone returns a copy of n that shares no Data map with it.
func (n Notification) Clone() Notification {
	n.Data = maps.Clone(n.Data)
	return n
}

// Permission is the tri-state answer of the notification platform.
type Permission string

const (
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
	PermissionDefault Permission = "default"
)
