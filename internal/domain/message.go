package domain

import "time"

// Utterance is a single chat line. It is broadcast once and kept only in
// the in-memory room history.
type Utterance struct {
	Speaker string
	Role    Role
	Text    string
	At      time.Time
}

// Draft is an AI-suggested reply addressed to the counselor side only.
type Draft struct {
	Text      string
	At        time.Time
	RevisedBy string
}
