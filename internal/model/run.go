package model

import "time"

// Run is a persisted comparison run.
type Run struct {
	ID        string    `json:"id"`
	Input     string    `json:"input"`
	Vendors   []string  `json:"vendors"`
	Winners   []string  `json:"winners"`
	Tie       bool      `json:"tie"`
	Analysis  *Analysis `json:"analysis,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
