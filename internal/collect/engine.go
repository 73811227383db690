package collect

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"github.com/edgard/collectbot/internal/config"
	"github.com/edgard/collectbot/internal/database"
	errs "github.com/edgard/collectbot/internal/errors"
	"github.com/edgard/collectbot/internal/logger"
	"github.com/edgard/collectbot/internal/publisher"
	"github.com/edgard/collectbot/internal/state"
	"github.com/edgard/collectbot/internal/transport"
)

// Deps holds the collaborators of the Engine. Rounds and Clock are optional.
type Deps struct {
	Config    *config.Config
	Transport transport.Transport
	Publisher *publisher.Publisher
	State     *state.Store
	Rounds    database.Store
	Logger    *slog.Logger
	Clock     func() time.Time
}

// Engine owns the single collection session. All state changes go through
// its methods and happen under one mutex; network I/O never runs with the
// mutex held.
type Engine struct {
	cfg       config.CollectConfig
	messages  config.MessagesConfig
	link      *regexp.Regexp
	transport transport.Transport
	publisher *publisher.Publisher
	state     *state.Store
	rounds    database.Store
	limiter   *Limiter
	logger    *slog.Logger
	now       func() time.Time

	mu sync.Mutex
	s  session

	baseCtx  context.Context
	close    context.CancelFunc
	watchers sync.WaitGroup
}

// NewEngine creates an idle Engine. The bound group and the last round
// counters are restored from the state store.
func NewEngine(deps Deps) (*Engine, error) {
	if deps.Config == nil || deps.Transport == nil || deps.Publisher == nil || deps.State == nil {
		return nil, errors.New("collect: config, transport, publisher and state are required")
	}
	link, err := deps.Config.LinkRegexp()
	if err != nil {
		return nil, err
	}

	log := deps.Logger
	if log == nil {
		log = logger.Discard()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		cfg:       deps.Config.Collect,
		messages:  deps.Config.Messages,
		link:      link,
		transport: deps.Transport,
		publisher: deps.Publisher,
		state:     deps.State,
		rounds:    deps.Rounds,
		limiter:   NewLimiter(deps.Config.Collect.Cooldown),
		logger:    log.With("component", "engine"),
		now:       clock,
		baseCtx:   ctx,
		close:     cancel,
	}

	persisted := deps.State.Snapshot()
	e.s.groupID = persisted.Group()
	e.s.lastRound = RoundStats{
		FinishedAt:       persisted.LastCollectStats.FinishedAt(),
		ParticipantCount: persisted.LastCollectStats.UserCount,
		SubmissionCount:  persisted.LastCollectStats.LinkCount,
	}
	return e, nil
}

// BindGroup binds the session to chatID if no group is bound yet. It
// returns false when a different group is already bound.
func (e *Engine) BindGroup(chatID int64) (bool, error) {
	e.mu.Lock()
	switch e.s.groupID {
	case chatID:
		e.mu.Unlock()
		return true, nil
	case 0:
		e.s.groupID = chatID
	default:
		e.mu.Unlock()
		return false, nil
	}
	e.mu.Unlock()

	e.logger.Info("Group bound", "group_id", chatID)
	err := e.state.Update(func(st *state.State) {
		id := chatID
		st.GroupID = &id
	})
	return true, err
}

// GroupID returns the bound group, 0 when unset.
func (e *Engine) GroupID() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.s.groupID
}

// Start opens a new round when the session is idle and a group is bound.
// The announcement is sent and pinned after the round is open; a failed
// send is returned as a DeliveryError and a failed pin as a PinError, and
// in both cases the round keeps running.
func (e *Engine) Start(ctx context.Context) (StartResult, error) {
	e.mu.Lock()
	if e.s.state != Idle {
		e.mu.Unlock()
		return StartResult{Outcome: StartAlreadyActive}, nil
	}
	if e.s.groupID == 0 {
		e.mu.Unlock()
		return StartResult{Outcome: StartNoGroup}, nil
	}

	now := e.now()
	e.s.reset(now, now.Add(e.cfg.Duration))
	e.limiter.Prune(now)

	round := e.s.round
	groupID := e.s.groupID
	res := StartResult{Outcome: StartStarted, Round: round, EndsAt: e.s.endsAt}

	watchCtx, stop := context.WithCancel(e.baseCtx)
	e.s.stopWatcher = stop
	e.watchers.Add(1)
	go e.watch(watchCtx, round)
	e.mu.Unlock()

	e.logger.InfoContext(ctx, "Round started",
		"round", round,
		"group_id", groupID,
		"ends_at", res.EndsAt,
		"capacity", e.cfg.Capacity)

	text := fmt.Sprintf(e.messages.Announcement, humanDuration(e.cfg.Duration), e.cfg.Capacity)
	id, ok := e.publisher.SendSafely(ctx, groupID, text)
	if !ok {
		return res, errs.NewDeliveryError(fmt.Sprintf("announce round %d", round), nil)
	}
	res.AnnouncementID = id

	e.mu.Lock()
	current := e.s.round == round && e.s.state == Active
	if current {
		e.s.announcementID = id
	}
	e.mu.Unlock()
	if !current {
		// The round already ended; its summary owns the pin now.
		return res, nil
	}

	if err := e.transport.PinMessage(ctx, groupID, id); err != nil {
		e.logger.WarnContext(ctx, "Failed to pin announcement", "round", round, "message_id", id, "error", err)
		return res, err
	}
	return res, nil
}

// Submit applies an incoming message to the running round. Accepted,
// cooldown and duplicate outcomes are answered with a reply; the returned
// error only reports a failed reply. When the submission fills the round
// the round is finished before the acceptance reply is sent.
func (e *Engine) Submit(ctx context.Context, msg Message) (SubmitResult, error) {
	e.mu.Lock()
	if e.s.state != Active || msg.ChatID != e.s.groupID {
		e.mu.Unlock()
		return SubmitResult{Outcome: SubmitIgnored}, nil
	}
	if !e.link.MatchString(msg.Text) {
		e.mu.Unlock()
		return SubmitResult{Outcome: SubmitNoMatch}, nil
	}

	now := e.now()
	if d := e.limiter.Check(msg.UserID, now); !d.Allowed {
		e.mu.Unlock()
		res := SubmitResult{Outcome: SubmitCooldown, Remaining: d.Remaining}
		return res, e.reply(ctx, msg, fmt.Sprintf(e.messages.Cooldown, d.RemainingSeconds()))
	}
	if _, dup := e.s.participants[msg.UserID]; dup {
		e.mu.Unlock()
		return SubmitResult{Outcome: SubmitDuplicate}, e.reply(ctx, msg, e.messages.AlreadySubmitted)
	}

	e.s.participants[msg.UserID] = struct{}{}
	ordinal := len(e.s.submissions) + 1
	e.s.submissions = append(e.s.submissions, publisher.Submission{
		Ordinal:     ordinal,
		DisplayName: html.EscapeString(msg.DisplayName),
		RawText:     msg.Text,
	})
	e.limiter.Record(msg.UserID, now)

	res := SubmitResult{
		Outcome:  SubmitAccepted,
		Ordinal:  ordinal,
		Count:    len(e.s.participants),
		Capacity: e.cfg.Capacity,
	}

	var job *finishJob
	if res.Count >= e.cfg.Capacity {
		job = e.beginFinishLocked(ReasonCapacity)
	}
	e.mu.Unlock()

	e.logger.DebugContext(ctx, "Submission accepted",
		"user_id", msg.UserID,
		"ordinal", ordinal,
		"count", res.Count)

	if job != nil {
		res.Finished = true
		e.completeFinish(ctx, job)
	}
	return res, e.reply(ctx, msg, fmt.Sprintf(e.messages.Accepted, res.Count, res.Capacity))
}

// Finish ends the running round if its termination condition holds and
// publishes the summary. It reports whether this call finished the round.
func (e *Engine) Finish(ctx context.Context) bool {
	e.mu.Lock()
	if e.s.state != Active {
		e.mu.Unlock()
		return false
	}
	due, reason := e.s.due(e.now(), e.cfg.Capacity)
	if !due {
		e.mu.Unlock()
		return false
	}
	job := e.beginFinishLocked(reason)
	e.mu.Unlock()

	e.completeFinish(ctx, job)
	return true
}

// Stop ends the running round on operator request regardless of the
// termination condition. It returns false when no round is running. A
// DeliveryError is returned when the summary could not be delivered.
func (e *Engine) Stop(ctx context.Context) (bool, error) {
	e.mu.Lock()
	if e.s.state != Active {
		e.mu.Unlock()
		return false, nil
	}
	job := e.beginFinishLocked(ReasonStopped)
	e.mu.Unlock()

	if ok := e.completeFinish(ctx, job); !ok {
		return true, errs.NewDeliveryError(fmt.Sprintf("publish summary of round %d", job.round), nil)
	}
	return true, nil
}

// finishJob carries everything completeFinish needs after the lock is
// released.
type finishJob struct {
	round          uint64
	reason         Reason
	groupID        int64
	announcementID int
	startedAt      time.Time
	finishedAt     time.Time
	submissions    []publisher.Submission
	participants   int
}

// beginFinishLocked moves Active to Finishing. Only one caller per round
// gets a job; e.mu must be held.
func (e *Engine) beginFinishLocked(reason Reason) *finishJob {
	if e.s.state != Active {
		return nil
	}
	e.s.state = Finishing
	if e.s.stopWatcher != nil {
		e.s.stopWatcher()
		e.s.stopWatcher = nil
	}

	now := e.now()
	job := &finishJob{
		round:          e.s.round,
		reason:         reason,
		groupID:        e.s.groupID,
		announcementID: e.s.announcementID,
		startedAt:      e.s.startedAt,
		finishedAt:     now,
		submissions:    append([]publisher.Submission(nil), e.s.submissions...),
		participants:   len(e.s.participants),
	}
	e.s.lastRound = RoundStats{
		FinishedAt:       now,
		ParticipantCount: job.participants,
		SubmissionCount:  len(job.submissions),
	}
	return job
}

// completeFinish performs the I/O of a finishing round and returns the
// session to Idle. It runs detached from the caller's cancellation so a
// round is never left half finished. It reports whether the summary (or,
// for an empty stopped round, the stop notice) was delivered.
func (e *Engine) completeFinish(ctx context.Context, job *finishJob) bool {
	ctx = context.WithoutCancel(ctx)
	log := e.logger.With("round", job.round, "reason", job.reason)

	if job.announcementID != 0 {
		if err := e.transport.UnpinMessage(ctx, job.groupID, job.announcementID); err != nil {
			log.WarnContext(ctx, "Failed to unpin announcement", "message_id", job.announcementID, "error", err)
		}
	}

	var (
		summaryID int
		delivered bool
	)
	if job.reason == ReasonStopped {
		_, delivered = e.publisher.Notice(ctx, job.groupID, e.messages.Stopped)
	}
	if job.reason != ReasonStopped || len(job.submissions) > 0 {
		summaryID, delivered = e.publisher.PublishSummary(ctx, job.groupID, job.submissions, job.participants)
		if delivered {
			if err := e.transport.PinMessage(ctx, job.groupID, summaryID); err != nil {
				log.WarnContext(ctx, "Failed to pin summary", "message_id", summaryID, "error", err)
			}
		}
	}

	if err := e.state.Update(func(st *state.State) {
		st.LastCollectStats = state.RoundStats{
			Timestamp: state.UnixSeconds(job.finishedAt),
			UserCount: job.participants,
			LinkCount: len(job.submissions),
		}
	}); err != nil {
		log.ErrorContext(ctx, "Failed to persist round stats", "error", err)
	}

	if e.rounds != nil {
		record := &database.RoundRecord{
			ChatID:           job.groupID,
			StartedAt:        job.startedAt,
			FinishedAt:       job.finishedAt,
			ParticipantCount: job.participants,
			SubmissionCount:  len(job.submissions),
			Reason:           string(job.reason),
		}
		if err := e.rounds.SaveRound(ctx, record); err != nil {
			log.ErrorContext(ctx, "Failed to archive round", "error", err)
		}
	}

	e.mu.Lock()
	e.s.summaryID = summaryID
	e.s.state = Idle
	e.mu.Unlock()

	log.InfoContext(ctx, "Round finished",
		"participants", job.participants,
		"submissions", len(job.submissions),
		"summary_message_id", summaryID,
		"delivered", delivered)
	return delivered
}

func (e *Engine) reply(ctx context.Context, msg Message, text string) error {
	if _, err := e.transport.Reply(ctx, msg.ChatID, msg.MessageID, text); err != nil {
		e.logger.WarnContext(ctx, "Failed to reply to submission", "user_id", msg.UserID, "error", err)
		return err
	}
	return nil
}

// Status returns a snapshot of the session.
func (e *Engine) Status() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := Snapshot{
		State:                 e.s.state,
		GroupID:               e.s.groupID,
		Round:                 e.s.round,
		Participants:          len(e.s.participants),
		Submissions:           len(e.s.submissions),
		Capacity:              e.cfg.Capacity,
		AnnouncementMessageID: e.s.announcementID,
		SummaryMessageID:      e.s.summaryID,
		LastRound:             e.s.lastRound,
		TrackedCooldowns:      e.limiter.Len(),
	}
	if e.s.state != Idle {
		snap.StartedAt = e.s.startedAt
		snap.EndsAt = e.s.endsAt
		snap.Remaining = max(0, e.s.endsAt.Sub(e.now()))
	}
	return snap
}

// Submissions returns a copy of the running round's submissions.
func (e *Engine) Submissions() []publisher.Submission {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.s.state == Idle {
		return nil
	}
	return append([]publisher.Submission(nil), e.s.submissions...)
}

// PruneCooldowns forgets users whose cooldown has elapsed and returns how
// many were dropped.
func (e *Engine) PruneCooldowns() int {
	return e.limiter.Prune(e.now())
}

// Close stops every watcher and waits for them to exit. A round that is
// running stays Active; it is not persisted.
func (e *Engine) Close() {
	e.close()
	e.watchers.Wait()
}

// humanDuration renders d as "1h", "30m" or "1h30m".
func humanDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second

	switch {
	case s != 0:
		return d.String()
	case h > 0 && m > 0:
		return fmt.Sprintf("%dh%dm", h, m)
	case h > 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dm", m)
	}
}
