// Package collect runs the collection rounds: the session state machine,
// the per-round termination watcher and the submission cooldown.
package collect

import (
	"time"

	"github.com/edgard/collectbot/internal/publisher"
)

// State is the lifecycle state of the session.
type State int

const (
	Idle State = iota
	Active
	Finishing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Active:
		return "active"
	case Finishing:
		return "finishing"
	default:
		return "unknown"
	}
}

// Reason tells why a round ended.
type Reason string

const (
	ReasonCapacity Reason = "capacity"
	ReasonDeadline Reason = "deadline"
	ReasonStopped  Reason = "stopped"
)

// Message is an incoming non-command text message.
type Message struct {
	ChatID      int64
	MessageID   int
	UserID      int64
	DisplayName string
	Text        string
}

// SubmitOutcome classifies what Submit did with a message.
type SubmitOutcome int

const (
	// SubmitIgnored: no round running or the message is from another chat.
	SubmitIgnored SubmitOutcome = iota
	// SubmitNoMatch: the text has no qualifying link. No reply is sent.
	SubmitNoMatch
	SubmitCooldown
	SubmitDuplicate
	SubmitAccepted
)

func (o SubmitOutcome) String() string {
	switch o {
	case SubmitIgnored:
		return "ignored"
	case SubmitNoMatch:
		return "no_match"
	case SubmitCooldown:
		return "cooldown"
	case SubmitDuplicate:
		return "duplicate"
	case SubmitAccepted:
		return "accepted"
	default:
		return "unknown"
	}
}

// SubmitResult reports the outcome of Submit.
type SubmitResult struct {
	Outcome   SubmitOutcome
	Ordinal   int
	Count     int
	Capacity  int
	Remaining time.Duration
	// Finished is set when the submission filled the round.
	Finished bool
}

// StartOutcome classifies what Start did.
type StartOutcome int

const (
	StartStarted StartOutcome = iota
	StartAlreadyActive
	StartNoGroup
)

// StartResult reports the outcome of Start.
type StartResult struct {
	Outcome        StartOutcome
	Round          uint64
	EndsAt         time.Time
	AnnouncementID int
}

// RoundStats are the counters of the last finished round.
type RoundStats struct {
	FinishedAt       time.Time
	ParticipantCount int
	SubmissionCount  int
}

// Snapshot is a read-only view of the session.
type Snapshot struct {
	State        State
	GroupID      int64
	Round        uint64
	StartedAt    time.Time
	EndsAt       time.Time
	Remaining    time.Duration
	Participants int
	Submissions  int
	Capacity     int

	AnnouncementMessageID int
	SummaryMessageID      int
	LastRound             RoundStats
	TrackedCooldowns      int
}

// session is the mutable round state. It is only touched with Engine.mu held.
type session struct {
	state     State
	round     uint64
	groupID   int64
	startedAt time.Time
	endsAt    time.Time

	participants map[int64]struct{}
	submissions  []publisher.Submission

	announcementID int
	summaryID      int
	lastRound      RoundStats

	stopWatcher func()
}

func (s *session) reset(now, endsAt time.Time) {
	s.state = Active
	s.round++
	s.startedAt = now
	s.endsAt = endsAt
	s.participants = make(map[int64]struct{})
	s.submissions = nil
	s.announcementID = 0
	s.summaryID = 0
}

// due reports whether the round must end at now, and why.
func (s *session) due(now time.Time, capacity int) (bool, Reason) {
	if len(s.participants) >= capacity {
		return true, ReasonCapacity
	}
	if !now.Before(s.endsAt) {
		return true, ReasonDeadline
	}
	return false, ""
}
