package model

import (
	"strings"
	"time"
)

// Session is one mediation exchange between two partners, keyed by its join code.
type Session struct {
	SessionCode         string    `gorm:"primaryKey;size:6" json:"session_code"`
	Partner1Name        string    `gorm:"size:64" json:"partner1_name,omitempty"`
	Partner1Perspective string    `gorm:"type:text;not null" json:"partner1_perspective,omitempty"`
	Partner2Name        string    `gorm:"size:64" json:"partner2_name,omitempty"`
	Partner2Perspective string    `gorm:"type:text" json:"partner2_perspective,omitempty"`
	Solution            string    `gorm:"type:text" json:"solution,omitempty"`
	CreatedAt           time.Time `gorm:"index" json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// HasPartner2 reports whether the session is closed to new joiners.
func (s *Session) HasPartner2() bool {
	return strings.TrimSpace(s.Partner2Perspective) != ""
}

// Complete reports whether both perspectives are present.
func (s *Session) Complete() bool {
	return strings.TrimSpace(s.Partner1Perspective) != "" && s.HasPartner2()
}

func (s *Session) HasSolution() bool {
	return strings.TrimSpace(s.Solution) != ""
}

const (
	DefaultPartner1Name = "Partner 1"
	DefaultPartner2Name = "Partner 2"
)

func (s *Session) Partner1DisplayName() string {
	return displayName(s.Partner1Name, DefaultPartner1Name)
}

func (s *Session) Partner2DisplayName() string {
	return displayName(s.Partner2Name, DefaultPartner2Name)
}

func displayName(name, fallback string) string {
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		return trimmed
	}
	return fallback
}
