package domain

import (
	"fmt"
	"time"
)

type EventType string

const (
	AuthenticationSuccess EventType = "AUTHENTICATION_SUCCESS"
	AuthenticationFailure EventType = "AUTHENTICATION_FAILURE"
	AuthorizationFailure  EventType = "AUTHORIZATION_FAILURE"
	TokenRefresh          EventType = "TOKEN_REFRESH"
	RateLimitExceeded     EventType = "RATE_LIMIT_EXCEEDED"
	ConfigurationChange   EventType = "CONFIGURATION_CHANGE"
	SuspiciousActivity    EventType = "SUSPICIOUS_ACTIVITY"
	Logout                EventType = "LOGOUT"
	PasswordChange        EventType = "PASSWORD_CHANGE"
	AccountLocked         EventType = "ACCOUNT_LOCKED"
	AccountUnlocked       EventType = "ACCOUNT_UNLOCKED"
)

// EventTypes lista a taxonomia completa, na ordem de declaração.
var EventTypes = []EventType{
	AuthenticationSuccess,
	AuthenticationFailure,
	AuthorizationFailure,
	TokenRefresh,
	RateLimitExceeded,
	ConfigurationChange,
	SuspiciousActivity,
	Logout,
	PasswordChange,
	AccountLocked,
	AccountUnlocked,
}

func (t EventType) Valid() bool {
	for _, known := range EventTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ParseEventType aceita o nome exato da taxonomia.
func ParseEventType(s string) (EventType, error) {
	t := EventType(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidEventType, s)
	}
	return t, nil
}

// Valores usados quando não há como identificar quem ou de onde.
const (
	UnknownSubject = "unknown"
	UnknownOrigin  = "unknown"
)

// MaxDetailsLength é o limite de Details, em runes.
const MaxDetailsLength = 2000

type SecurityEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"eventType"`
	Subject   string    `json:"username"`
	Origin    string    `json:"ipAddress"`
	Details   string    `json:"details"`
	Timestamp time.Time `json:"timestamp"`
}

// Validate confere as invariantes exigidas antes de persistir.
func (e SecurityEvent) Validate() error {
	if !e.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidEventType, e.Type)
	}
	if e.Timestamp.IsZero() {
		return fmt.Errorf("security event %s: timestamp is required", e.Type)
	}
	return nil
}

// TruncateDetails corta s em MaxDetailsLength runes.
func TruncateDetails(s string) string {
	if len(s) <= MaxDetailsLength {
		return s
	}
	n := 0
	for i := range s {
		if n == MaxDetailsLength {
			return s[:i]
		}
		n++
	}
	return s
}
