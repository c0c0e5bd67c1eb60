package notify

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	name  string
	err   error
	calls int
}

func (f *fakeSender) Send(context.Context, string, string) error {
	f.calls++
	return f.err
}

func (f *fakeSender) Name() string { return f.name }

func TestNotify_DeliversToAllSenders(t *testing.T) {
	tg := &fakeSender{name: "telegram"}
	dc := &fakeSender{name: "discord"}
	n := NewNotifier([]Sender{tg, dc}, nil, slog.Default())

	err := n.Notify(context.Background(), EventArchiveFailed, "title", "msg")
	require.NoError(t, err)
	assert.Equal(t, 1, tg.calls)
	assert.Equal(t, 1, dc.calls)
}

func TestNotify_FiltersDisallowedEvents(t *testing.T) {
	tg := &fakeSender{name: "telegram"}
	n := NewNotifier([]Sender{tg}, []string{EventSettlementUnprocessable}, slog.Default())

	require.NoError(t, n.Notify(context.Background(), EventCoronation, "title", "msg"))
	assert.Zero(t, tg.calls)

	require.NoError(t, n.Notify(context.Background(), EventSettlementUnprocessable, "title", "msg"))
	assert.Equal(t, 1, tg.calls)
}

func TestNotify_ContinuesPastFailingSender(t *testing.T) {
	bad := &fakeSender{name: "telegram", err: errors.New("api down")}
	good := &fakeSender{name: "discord"}
	n := NewNotifier([]Sender{bad, good}, nil, slog.Default())

	err := n.Notify(context.Background(), EventArchiveFailed, "title", "msg")
	require.Error(t, err)
	assert.ErrorContains(t, err, "telegram: api down")
	assert.Equal(t, 1, good.calls, "a failing channel must not block the others")
}

func TestNotify_NoSendersIsNoop(t *testing.T) {
	n := NewNotifier(nil, nil, slog.Default())
	assert.NoError(t, n.Notify(context.Background(), EventArchiveFailed, "title", "msg"))
}
