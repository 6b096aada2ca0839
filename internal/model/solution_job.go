package model

import "time"

// SolutionJob asks the background worker to generate the solution for a session.
type SolutionJob struct {
	ID          string    `json:"id"`
	SessionCode string    `json:"session_code"`
	RequestedAt time.Time `json:"requested_at"`
}
