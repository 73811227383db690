package telegram

import (
	"context"
	"errors"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/collectbot/internal/bot/handlers"
	"github.com/edgard/collectbot/internal/logger"
)

type registration struct {
	pattern string
	handler bot.HandlerFunc
}

type fakeRegistrar struct {
	registered []registration
}

func (f *fakeRegistrar) RegisterHandler(_ bot.HandlerType, pattern string, _ bot.MatchType, h bot.HandlerFunc, _ ...bot.Middleware) string {
	f.registered = append(f.registered, registration{pattern: pattern, handler: h})
	return pattern
}

type fakeSetter struct {
	params *bot.SetMyCommandsParams
	ok     bool
	err    error
}

func (f *fakeSetter) SetMyCommands(_ context.Context, params *bot.SetMyCommandsParams) (bool, error) {
	f.params = params
	return f.ok, f.err
}

func TestNewTelegramBotRequiresToken(t *testing.T) {
	t.Parallel()

	_, err := NewTelegramBot("", logger.Discard())
	assert.Error(t, err)
}

func TestRegisterHandlersAppliesMiddlewareInOrder(t *testing.T) {
	t.Parallel()

	var order []string
	mw := func(name string) bot.Middleware {
		return func(next bot.HandlerFunc) bot.HandlerFunc {
			return func(ctx context.Context, b *bot.Bot, u *models.Update) {
				order = append(order, name)
				next(ctx, b, u)
			}
		}
	}

	reg := &fakeRegistrar{}
	n, err := RegisterHandlers(reg, logger.Discard(), map[string]handlers.RegisteredHandler{
		"/stats": {
			Pattern:    "stats",
			Handler:    func(context.Context, *bot.Bot, *models.Update) { order = append(order, "handler") },
			Middleware: []bot.Middleware{mw("outer"), mw("inner")},
		},
		"/broken": {Pattern: "broken"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, reg.registered, 1)
	assert.Equal(t, "stats", reg.registered[0].pattern)

	reg.registered[0].handler(context.Background(), nil, &models.Update{})
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}

func TestRegisterHandlersEmpty(t *testing.T) {
	t.Parallel()

	n, err := RegisterHandlers(&fakeRegistrar{}, nil, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSetCommands(t *testing.T) {
	t.Parallel()

	cmds := []models.BotCommand{{Command: "status", Description: "Show status"}}

	s := &fakeSetter{ok: true}
	require.NoError(t, SetCommands(context.Background(), s, cmds))
	assert.Equal(t, cmds, s.params.Commands)

	assert.Error(t, SetCommands(context.Background(), &fakeSetter{ok: false}, cmds))
	assert.Error(t, SetCommands(context.Background(), &fakeSetter{err: errors.New("boom")}, cmds))

	empty := &fakeSetter{}
	require.NoError(t, SetCommands(context.Background(), empty, nil))
	assert.Nil(t, empty.params)
}
