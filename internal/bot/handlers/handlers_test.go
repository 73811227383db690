package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-co-op/gocron/v2"
	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/collectbot/internal/collect"
	"github.com/edgard/collectbot/internal/config"
	"github.com/edgard/collectbot/internal/database"
	"github.com/edgard/collectbot/internal/logger"
	"github.com/edgard/collectbot/internal/publisher"
	"github.com/edgard/collectbot/internal/schedule"
	"github.com/edgard/collectbot/internal/state"
	"github.com/edgard/collectbot/internal/transport/transporttest"
)

const (
	operatorID = int64(1)
	memberID   = int64(42)
	groupID    = int64(-1001)
	otherGroup = int64(-2002)
)

type fixture struct {
	deps HandlerDeps
	fake *transporttest.Fake
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := config.Default()
	cfg.Telegram.Token = "test-token"
	cfg.Telegram.AdminUserID = operatorID
	cfg.Collect.Timezone = "UTC"
	cfg.Publisher.RetryBaseDelay = 0

	dir := t.TempDir()
	st, err := state.Open(filepath.Join(dir, "bot_state.json"), nil)
	require.NoError(t, err)

	db, err := database.NewDB(filepath.Join(dir, "storage.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseDB(db) })
	store := database.NewStore(db, nil)

	fake := transporttest.New()
	engine, err := collect.NewEngine(collect.Deps{
		Config:    cfg,
		Transport: fake,
		Publisher: publisher.New(fake, cfg.Publisher, cfg.Messages, nil),
		State:     st,
		Rounds:    store,
	})
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	s, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	require.NoError(t, err)
	s.Start()
	t.Cleanup(func() { _ = s.Shutdown() })

	trigger := func(ctx context.Context) error {
		_, err := engine.Start(ctx)
		return err
	}

	return &fixture{
		fake: fake,
		deps: HandlerDeps{
			Logger:    logger.Discard(),
			Config:    cfg,
			Engine:    engine,
			Schedule:  schedule.NewRegistry(s, st, trigger, nil),
			State:     st,
			Store:     store,
			Transport: fake,
		},
	}
}

func update(chatID int64, chatType models.ChatType, userID int64, text string) *models.Update {
	return &models.Update{
		ID: 1,
		Message: &models.Message{
			ID:   500,
			Chat: models.Chat{ID: chatID, Type: chatType},
			From: &models.User{ID: userID, FirstName: "User", Username: fmt.Sprintf("user%d", userID)},
			Text: text,
		},
	}
}

func groupUpdate(userID int64, text string) *models.Update {
	return update(groupID, models.ChatTypeSupergroup, userID, text)
}

func privateUpdate(text string) *models.Update {
	return update(operatorID, models.ChatTypePrivate, operatorID, text)
}

func (f *fixture) run(h tgbot.HandlerFunc, u *models.Update) {
	h(context.Background(), nil, u)
}

func (f *fixture) lastReply(t *testing.T) string {
	t.Helper()
	replies := f.fake.SentReplies()
	require.NotEmpty(t, replies)
	return replies[len(replies)-1].Text
}

func (f *fixture) startRound(t *testing.T) {
	t.Helper()
	f.run(NewStartCollectHandler(f.deps), groupUpdate(operatorID, "/startcollect"))
	require.Equal(t, collect.Active, f.deps.Engine.Status().State)
}

func TestAdminOnlyRejectsMembers(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	called := false
	next := func(context.Context, *tgbot.Bot, *models.Update) { called = true }

	AdminOnly(f.deps)(next)(context.Background(), nil, groupUpdate(memberID, "/startcollect"))
	assert.False(t, called)
	assert.Equal(t, f.deps.Config.Messages.Unauthorized, f.lastReply(t))

	AdminOnly(f.deps)(next)(context.Background(), nil, groupUpdate(operatorID, "/startcollect"))
	assert.True(t, called)
}

func TestRecoverSwallowsPanics(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	boom := func(context.Context, *tgbot.Bot, *models.Update) { panic("boom") }

	assert.NotPanics(t, func() {
		Recover(f.deps.Logger)(boom)(context.Background(), nil, groupUpdate(memberID, "hi"))
	})
}

func TestUsageShowsAdminSectionToOperatorOnly(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.deps.Config.Telegram.BotInfo = &models.User{Username: "collector_bot"}

	f.run(NewHelpHandler(f.deps), groupUpdate(memberID, "/help"))
	assert.Equal(t, f.deps.Config.Messages.Welcome, f.lastReply(t))

	f.run(NewStartHandler(f.deps), privateUpdate("/start"))
	assert.Contains(t, f.lastReply(t), "/startcollect")
}

func TestStartCollectBindsGroupAndStarts(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.startRound(t)

	assert.Equal(t, groupID, f.deps.Engine.GroupID())
	assert.Equal(t, groupID, f.deps.State.Snapshot().Group())

	sent := f.fake.SentMessages()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Text, "TWEET LINK COLLECTION STARTED")
	assert.Equal(t, []int{sent[0].ID}, f.fake.PinnedIDs())
	assert.Empty(t, f.fake.SentReplies())
}

func TestStartCollectRefusals(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	m := f.deps.Config.Messages
	h := NewStartCollectHandler(f.deps)

	f.run(h, privateUpdate("/startcollect"))
	assert.Equal(t, m.NoGroup, f.lastReply(t))

	f.startRound(t)
	f.run(h, groupUpdate(operatorID, "/startcollect"))
	assert.Equal(t, m.AlreadyActive, f.lastReply(t))

	f.run(h, update(otherGroup, models.ChatTypeGroup, operatorID, "/startcollect"))
	assert.Equal(t, m.GroupMismatch, f.lastReply(t))
	assert.Equal(t, groupID, f.deps.Engine.GroupID())
}

func TestStartCollectReportsPinFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.fake.Set(func(f *transporttest.Fake) { f.FailPin = true })

	f.run(NewStartCollectHandler(f.deps), groupUpdate(operatorID, "/startcollect"))
	assert.Equal(t, collect.Active, f.deps.Engine.Status().State)
	assert.Equal(t, f.deps.Config.Messages.StartPinFailed, f.lastReply(t))
}

func TestStopCollect(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	h := NewStopCollectHandler(f.deps)

	f.run(h, groupUpdate(operatorID, "/stopcollect"))
	assert.Equal(t, f.deps.Config.Messages.NotRunning, f.lastReply(t))

	f.startRound(t)
	f.run(h, groupUpdate(operatorID, "/stopcollect"))
	assert.Equal(t, collect.Idle, f.deps.Engine.Status().State)

	sent := f.fake.SentMessages()
	assert.Equal(t, f.deps.Config.Messages.Stopped, sent[len(sent)-1].Text)
}

func TestStatusOnlyAnswersInBoundGroup(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	h := NewStatusHandler(f.deps)

	f.run(h, groupUpdate(memberID, "/status"))
	f.run(h, privateUpdate("/status"))
	assert.Empty(t, f.fake.SentReplies())

	_, err := f.deps.Engine.BindGroup(groupID)
	require.NoError(t, err)
	f.run(h, groupUpdate(memberID, "/status"))
	assert.Equal(t, f.deps.Config.Messages.StatusIdle, f.lastReply(t))
}

func TestStatusReportsActiveRound(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.startRound(t)
	f.run(NewSubmissionHandler(f.deps), groupUpdate(memberID, "https://x.com/a/status/1"))

	f.run(NewStatusHandler(f.deps), groupUpdate(memberID, "/status"))
	reply := f.lastReply(t)
	assert.Contains(t, reply, "👥 1/20")
	assert.Contains(t, reply, "⏱ 59m")
}

func TestStatusReportsScheduleAndLastRound(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.startRound(t)
	f.run(NewSubmissionHandler(f.deps), groupUpdate(memberID, "https://x.com/a/status/1"))
	f.run(NewStopCollectHandler(f.deps), groupUpdate(operatorID, "/stopcollect"))
	require.NoError(t, f.deps.Schedule.Add(8, 0))

	f.run(NewStatusHandler(f.deps), groupUpdate(memberID, "/status"))
	reply := f.lastReply(t)
	assert.Contains(t, reply, "08:00")
	assert.Contains(t, reply, "1 participants, 1 links")
}

func TestAutoCollectCommands(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	m := f.deps.Config.Messages
	h := NewAutoCollectHandler(f.deps)
	_, err := f.deps.Engine.BindGroup(groupID)
	require.NoError(t, err)

	tests := []struct {
		text string
		want string
	}{
		{"/autocollect", m.AutoUsage},
		{"/autocollect list", m.AutoEmpty},
		{"/autocollect 25:00", m.AutoInvalid},
		{"/autocollect 08:00", fmt.Sprintf(m.AutoAdded, "08:00")},
		{"/autocollect 8:00", m.AutoExists},
		{"/autocollect 21:30", fmt.Sprintf(m.AutoAdded, "21:30")},
		{"/autocollect remove 09:00", m.AutoNotFound},
		{"/autocollect remove", m.AutoUsage},
		{"/autocollect remove 21:30", fmt.Sprintf(m.AutoRemoved, "21:30")},
	}
	for _, tt := range tests {
		f.run(h, privateUpdate(tt.text))
		assert.Equal(t, tt.want, f.lastReply(t), tt.text)
	}

	assert.Equal(t, []string{"08:00"}, f.deps.State.Snapshot().AutoTimes)

	f.run(h, privateUpdate("/autocollect list"))
	assert.Contains(t, f.lastReply(t), "• 08:00 (next ")

	f.run(h, privateUpdate("/autocollect off"))
	assert.Equal(t, m.AutoOff, f.lastReply(t))
	assert.Empty(t, f.deps.Schedule.Times())
	assert.Empty(t, f.deps.State.Snapshot().AutoTimes)
}

func TestAutoCollectNeedsGroup(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.run(NewAutoCollectHandler(f.deps), privateUpdate("/autocollect 08:00"))
	assert.Equal(t, f.deps.Config.Messages.NoGroup, f.lastReply(t))
	assert.Empty(t, f.deps.Schedule.Times())
}

func TestStatsReportsState(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	require.NoError(t, f.deps.State.Update(func(st *state.State) {
		st.BotStartTime = state.UnixSeconds(time.Now().Add(-time.Hour))
	}))
	f.startRound(t)
	f.run(NewStopCollectHandler(f.deps), groupUpdate(operatorID, "/stopcollect"))

	f.run(NewStatsHandler(f.deps), privateUpdate("/stats"))
	reply := f.lastReply(t)
	assert.Contains(t, reply, fmt.Sprintf("Group %d", groupID))
	assert.Contains(t, reply, "State idle")
	assert.Contains(t, reply, "Archive: 1 rounds")
	assert.Contains(t, reply, "1 stopped")
	assert.Contains(t, reply, "0/0 (stopped)")
	assert.Contains(t, reply, "Uptime 1h")
}

func TestBroadcast(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	m := f.deps.Config.Messages
	h := NewBroadcastHandler(f.deps)

	f.run(h, privateUpdate("/broadcast"))
	assert.Equal(t, m.BroadcastUsage, f.lastReply(t))

	f.run(h, privateUpdate("/broadcast hello"))
	assert.Equal(t, m.NoGroup, f.lastReply(t))

	_, err := f.deps.Engine.BindGroup(groupID)
	require.NoError(t, err)
	f.run(h, privateUpdate("/broadcast hello <all>\nsecond line"))
	assert.Equal(t, m.BroadcastSent, f.lastReply(t))

	sent := f.fake.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, groupID, sent[0].ChatID)
	assert.Equal(t, "hello <all>\nsecond line", sent[0].Text)
	assert.False(t, sent[0].Formatted)

	f.fake.Set(func(f *transporttest.Fake) { f.FailSends = 1 })
	f.run(h, privateUpdate("/broadcast again"))
	assert.Equal(t, m.BroadcastFailed, f.lastReply(t))
}

func TestExport(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	f := newFixture(t)
	h := NewExportHandler(f.deps)

	f.run(h, privateUpdate("/export"))
	assert.Equal(t, f.deps.Config.Messages.ExportEmpty, f.lastReply(t))

	f.startRound(t)
	u := groupUpdate(memberID, "look https://twitter.com/a/status/9")
	u.Message.From.FirstName = "Tom & Jerry"
	u.Message.From.Username = ""
	f.run(NewSubmissionHandler(f.deps), u)

	f.run(h, privateUpdate("/export"))
	docs := f.fake.SentDocuments()
	require.Len(t, docs, 1)
	assert.Equal(t, operatorID, docs[0].ChatID)
	assert.Contains(t, docs[0].Filename, "submissions_")

	var entries []exportEntry
	require.NoError(t, json.Unmarshal(docs[0].Content, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, exportEntry{Ordinal: 1, DisplayName: "Tom & Jerry", Text: "look https://twitter.com/a/status/9"}, entries[0])

	left, err := filepath.Glob(filepath.Join(os.TempDir(), "collect-export-*"))
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestExportReportsFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.startRound(t)
	f.run(NewSubmissionHandler(f.deps), groupUpdate(memberID, "https://x.com/a/status/1"))
	f.fake.Set(func(f *transporttest.Fake) { f.FailDocument = true })

	f.run(NewExportHandler(f.deps), privateUpdate("/export"))
	assert.Equal(t, f.deps.Config.Messages.ExportFailed, f.lastReply(t))
}

func TestSubmissionHandler(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.startRound(t)
	h := NewSubmissionHandler(f.deps)

	f.run(h, groupUpdate(memberID, "/status https://x.com/a/status/1"))
	f.run(h, groupUpdate(memberID, "no link here"))
	f.run(h, &models.Update{ID: 2})
	assert.Empty(t, f.fake.SentReplies())

	f.run(h, groupUpdate(memberID, "https://x.com/a/status/1"))
	assert.Equal(t, fmt.Sprintf(f.deps.Config.Messages.Accepted, 1, 20), f.lastReply(t))

	subs := f.deps.Engine.Submissions()
	require.Len(t, subs, 1)
	assert.Equal(t, "@user42", subs[0].DisplayName)
}

func TestRegisterAllCommands(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	handlers := RegisterAllCommands(f.deps)

	public := []string{"/start", "/help", "/status"}
	admin := []string{"/startcollect", "/stopcollect", "/autocollect", "/stats", "/broadcast", "/export"}
	assert.Len(t, handlers, len(public)+len(admin))

	for _, name := range public {
		require.Contains(t, handlers, name)
		assert.Empty(t, handlers[name].Middleware, name)
	}
	for _, name := range admin {
		require.Contains(t, handlers, name)
		assert.Len(t, handlers[name].Middleware, 1, name)
		assert.Equal(t, tgbot.MatchTypeCommandStartOnly, handlers[name].MatchType)
	}
}

func TestBotCommands(t *testing.T) {
	t.Parallel()

	m := config.DefaultMessages
	assert.Len(t, BotCommands(m), 9)

	m.CmdExport = ""
	cmds := BotCommands(m)
	assert.Len(t, cmds, 8)
	for _, c := range cmds {
		assert.NotEqual(t, "export", c.Command)
	}
}

func TestCommandParsing(t *testing.T) {
	t.Parallel()

	assert.Nil(t, commandArgs("/autocollect"))
	assert.Equal(t, []string{"remove", "08:00"}, commandArgs("/autocollect  remove\t08:00"))

	assert.Empty(t, commandPayload("/broadcast"))
	assert.Equal(t, "a  b\nc", commandPayload("/broadcast a  b\nc "))
	assert.Equal(t, "line", commandPayload("/broadcast\nline"))
}

func TestDisplayName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		user models.User
		want string
	}{
		{models.User{FirstName: "Ann", LastName: "Lee", Username: "ann"}, "@ann"},
		{models.User{FirstName: " Ann ", LastName: "Lee"}, "Ann"},
		{models.User{Username: "ann"}, "@ann"},
		{models.User{}, "?"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, displayName(&tt.user))
	}
}
