package domain

import "time"

// DeviceInfo is a best-effort description of the client, for display only.
type DeviceInfo struct {
	DeviceID   string `json:"device_id" dynamodbav:"device_id"`
	Browser    string `json:"browser" dynamodbav:"browser"`
	OS         string `json:"os" dynamodbav:"os"`
	DeviceType string `json:"device_type" dynamodbav:"device_type"`
}

// Session is one logged-in device. SessionToken holds the current refresh
// token and is the only value that resolves the session.
type Session struct {
	SessionID      string     `json:"id" dynamodbav:"session_id"`
	SessionToken   string     `json:"-" dynamodbav:"session_token"`
	UserID         string     `json:"user_id" dynamodbav:"user_id"`
	ExpiresAt      time.Time  `json:"expires_at" dynamodbav:"expires_at,unixtime"`
	DeviceInfo     DeviceInfo `json:"device_info" dynamodbav:"device_info"`
	IPAddress      string     `json:"ip_address" dynamodbav:"ip_address"`
	UserAgent      string     `json:"user_agent" dynamodbav:"user_agent"`
	IsActive       bool       `json:"is_active" dynamodbav:"is_active"`
	LastAccessedAt time.Time  `json:"last_accessed_at" dynamodbav:"last_accessed_at"`
	CreatedAt      time.Time  `json:"created" dynamodbav:"created_at"`
	UpdatedAt      time.Time  `json:"updated" dynamodbav:"updated_at"`
}

// Live reports whether the session can still be used at now.
func (s *Session) Live(now time.Time) bool {
	return s.IsActive && s.ExpiresAt.After(now)
}
