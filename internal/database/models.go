package database

import "time"

// Finish reasons recorded with every archived round.
const (
	ReasonCapacity = "capacity"
	ReasonDeadline = "deadline"
	ReasonStopped  = "stopped"
)

// RoundRecord is one finished collection round. Only aggregate counters are
// kept; participants are never archived.
type RoundRecord struct {
	ID        int64     `db:"id"`
	CreatedAt time.Time `db:"created_at"`

	ChatID           int64     `db:"chat_id"`
	StartedAt        time.Time `db:"started_at"`
	FinishedAt       time.Time `db:"finished_at"`
	ParticipantCount int       `db:"participant_count"`
	SubmissionCount  int       `db:"submission_count"`
	Reason           string    `db:"reason"`
}

// RoundTotals aggregates the archive for the stats command.
type RoundTotals struct {
	Rounds            int `db:"rounds"`
	Participants      int `db:"participants"`
	Submissions       int `db:"submissions"`
	StoppedByOperator int `db:"stopped"`
}
