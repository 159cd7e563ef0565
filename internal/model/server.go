package model

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// WebDavServer holds everything needed to reach a remote collection except
// the password, which lives in the system keyring keyed by server ID.
type WebDavServer struct {
	ID             string     `gorm:"primaryKey" json:"id"`
	Name           string     `gorm:"not null" json:"name"`
	URL            string     `gorm:"not null" json:"url"`
	Username       string     `gorm:"not null" json:"username"`
	TimeoutSec     int        `gorm:"not null;default:30" json:"timeout_sec"`
	LastTestAt     *time.Time `json:"last_test_at"`
	LastTestStatus string     `gorm:"not null;default:'unknown'" json:"last_test_status"`
	LastTestError  string     `json:"last_test_error,omitempty"`
	ServerType     string     `gorm:"not null;default:'generic'" json:"server_type"`
	Enabled        bool       `gorm:"not null;default:true" json:"enabled"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (WebDavServer) TableName() string { return "webdav_servers" }

func (s WebDavServer) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("server name cannot be empty")
	}
	if strings.TrimSpace(s.Username) == "" {
		return fmt.Errorf("username cannot be empty")
	}
	if err := s.validateURL(); err != nil {
		return err
	}
	if s.TimeoutSec < 1 || s.TimeoutSec > 300 {
		return fmt.Errorf("timeout must be between 1 and 300 seconds, got %d", s.TimeoutSec)
	}
	return nil
}

func (s WebDavServer) validateURL() error {
	if strings.TrimSpace(s.URL) == "" {
		return fmt.Errorf("URL cannot be empty")
	}

	parsed, err := url.Parse(s.URL)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("URL must use http or https, found: %s", parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("URL must contain a valid host")
	}

	return nil
}

func (s WebDavServer) Timeout() time.Duration {
	return time.Duration(s.TimeoutSec) * time.Second
}
