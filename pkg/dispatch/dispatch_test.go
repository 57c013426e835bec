package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/tinyland/lab/minigraph/pkg/host"
	"gitlab.com/tinyland/lab/minigraph/pkg/navigate"
)

type fakeHost struct {
	sent []host.Message
	err  error
}

func (f *fakeHost) Send(_ context.Context, msg host.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type observation struct {
	mode Mode
	kind string
	err  error
}

type fakeObserver struct {
	seen []observation
}

func (f *fakeObserver) ObserveDispatch(mode Mode, kind string, err error) {
	f.seen = append(f.seen, observation{mode, kind, err})
}

func detailsTarget() navigate.Target {
	return navigate.Target{Kind: navigate.KindDetails, Path: "/namespaces/ns1/services/svc1"}
}

func TestDispatchStandalonePushes(t *testing.T) {
	history := &History{}
	hostCh := &fakeHost{}
	d := &Dispatcher{Router: history, Host: hostCh}

	require.NoError(t, d.Dispatch(context.Background(), detailsTarget()))
	require.NoError(t, d.DispatchURL(context.Background(), "/graph/namespaces?namespaces=ns1"))

	assert.Equal(t, []string{"/namespaces/ns1/services/svc1", "/graph/namespaces?namespaces=ns1"}, history.Entries())
	assert.Equal(t, "/graph/namespaces?namespaces=ns1", history.Current())
	assert.Empty(t, hostCh.sent)
}

func TestDispatchEmbeddedPostsToHost(t *testing.T) {
	history := &History{}
	hostCh := &fakeHost{}
	obs := &fakeObserver{}
	d := &Dispatcher{Router: history, Host: hostCh, Embedded: true, Observer: obs}

	require.NoError(t, d.Dispatch(context.Background(), detailsTarget()))

	require.Len(t, hostCh.sent, 1)
	assert.Equal(t, host.KindNavigate, hostCh.sent[0].Kind)
	assert.Equal(t, "/namespaces/ns1/services/svc1", hostCh.sent[0].URL)
	assert.NoError(t, hostCh.sent[0].Validate())
	assert.Zero(t, history.Len())
	assert.Equal(t, []observation{{ModeHost, "details", nil}}, obs.seen)
}

func TestDispatchMissingChannels(t *testing.T) {
	err := (&Dispatcher{}).Dispatch(context.Background(), detailsTarget())
	assert.ErrorIs(t, err, ErrNoRouter)

	err = (&Dispatcher{Embedded: true}).Dispatch(context.Background(), detailsTarget())
	assert.ErrorIs(t, err, ErrNoHost)
}

func TestDispatchHostError(t *testing.T) {
	sendErr := errors.New("frame gone")
	obs := &fakeObserver{}
	d := &Dispatcher{Host: &fakeHost{err: sendErr}, Embedded: true, Observer: obs}

	err := d.DispatchURL(context.Background(), "/x")
	assert.ErrorIs(t, err, sendErr)
	require.Len(t, obs.seen, 1)
	assert.Equal(t, "url", obs.seen[0].kind)
	assert.ErrorIs(t, obs.seen[0].err, sendErr)
}

func TestWizardActionClosesMenuFirst(t *testing.T) {
	var order []string
	d := &Dispatcher{Embedded: true}
	d.WizardAction(
		func() { order = append(order, "close") },
		func() { order = append(order, "action") },
	)
	assert.Equal(t, []string{"close", "action"}, order)

	assert.NotPanics(t, func() { d.WizardAction(nil, nil) })
}

func TestHistory(t *testing.T) {
	var pushed []string
	h := &History{OnPush: func(url string) { pushed = append(pushed, url) }}
	assert.Equal(t, "", h.Current())

	require.NoError(t, h.Push("/a"))
	require.NoError(t, h.Push("/a"))
	assert.Error(t, h.Push(""))

	assert.Equal(t, 2, h.Len())
	assert.Equal(t, []string{"/a", "/a"}, pushed)

	entries := h.Entries()
	entries[0] = "mutated"
	assert.Equal(t, "/a", h.Entries()[0])
}
