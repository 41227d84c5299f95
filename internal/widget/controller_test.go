package widget

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/set-night/shopassist/internal/config"
	"github.com/set-night/shopassist/internal/domain"
	"github.com/set-night/shopassist/internal/repository"
	"github.com/set-night/shopassist/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	mu        sync.Mutex
	posts     []string
	reply     string
	createErr error
	postErr   error
	block     bool
}

func (f *fakeTransport) FetchToken(context.Context) (string, error) {
	return "tok", nil
}

func (f *fakeTransport) CreateConversation(context.Context, string) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	return "conv-1", nil
}

func (f *fakeTransport) PostActivity(_ context.Context, _, _ string, a domain.Activity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts = append(f.posts, a.Text)
	return f.postErr
}

func (f *fakeTransport) GetActivities(ctx context.Context, _, _, _ string) (*service.ActivitySet, error) {
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return &service.ActivitySet{
		Activities: []domain.Activity{{ID: "a1", Type: domain.ActivityTypeMessage, From: domain.ChannelAccount{ID: "bot"}, Text: f.reply}},
		Watermark:  "1",
	}, nil
}

func (f *fakeTransport) postCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.posts)
}

type fakeAlerter struct {
	mu       sync.Mutex
	failures int
	resets   int
}

func (a *fakeAlerter) LogSendFailure(string, error) {
	a.mu.Lock()
	a.failures++
	a.mu.Unlock()
}

func (a *fakeAlerter) LogSessionReset(string) {
	a.mu.Lock()
	a.resets++
	a.mu.Unlock()
}

func (a *fakeAlerter) failureCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.failures
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func testSessionConfig() service.SessionConfig {
	cfg := service.DefaultSessionConfig()
	cfg.BackoffBase = time.Millisecond
	cfg.PollInterval = time.Millisecond
	cfg.PollAttempts = 5
	return cfg
}

func newTestController(t *testing.T, tr *fakeTransport, opts ...Option) (*Controller, *repository.ClientStore) {
	t.Helper()
	store := repository.NewClientStore(repository.NewMemoryStore())
	sessions := service.NewSessionManager(tr, testSessionConfig())
	opts = append([]Option{WithSendWindow(time.Millisecond)}, opts...)
	c := NewController(sessions, store, opts...)
	t.Cleanup(c.Close)
	return c, store
}

func waitTask(t *testing.T, task *Task) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return task.Wait(ctx)
}

func TestMount_FreshClientGetsGreeting(t *testing.T) {
	c, store := newTestController(t, &fakeTransport{})
	ctx := context.Background()

	state := c.Mount(ctx, "client_a")
	require.Len(t, state.Messages, 1)
	assert.Equal(t, config.GreetingText, state.Messages[0].Text)
	assert.False(t, state.Messages[0].IsUser)
	assert.Empty(t, state.ConversationID)

	snap, err := store.LoadSnapshot(ctx, "client_a")
	require.NoError(t, err)
	assert.Len(t, snap.Messages, 1)
}

func TestMount_ExpiredSnapshotStartsFresh(t *testing.T) {
	tr := &fakeTransport{}
	c, store := newTestController(t, tr)
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, store.SaveSnapshot(ctx, "client_a", &domain.Snapshot{
		ConversationID: "old",
		Token:          "tok",
		TokenExpiry:    now.Add(-time.Minute).UnixMilli(),
		Messages: []domain.Message{
			domain.NewMessage("hi", false, false, now),
			domain.NewMessage("q", true, false, now),
			domain.NewMessage("a", false, false, now),
		},
	}))

	state := c.Mount(ctx, "client_a")
	require.Len(t, state.Messages, 1)
	assert.Equal(t, config.GreetingText, state.Messages[0].Text)
	assert.Empty(t, state.ConversationID)
}

func TestMount_RestoresValidSnapshot(t *testing.T) {
	c, store := newTestController(t, &fakeTransport{})
	ctx := context.Background()

	now := time.Now()
	dup := domain.NewMessage("one", false, false, now)
	second := dup
	second.Text = "two"
	require.NoError(t, store.SaveSnapshot(ctx, "client_a", &domain.Snapshot{
		ConversationID: "conv-9",
		Token:          "tok",
		TokenExpiry:    now.Add(20 * time.Minute).UnixMilli(),
		Messages:       []domain.Message{dup, second},
	}))

	state := c.Mount(ctx, "client_a")
	assert.Equal(t, "conv-9", state.ConversationID)
	require.Len(t, state.Messages, 2)
	assert.Equal(t, "one", state.Messages[0].Text)
	assert.Equal(t, "two", state.Messages[1].Text)
	assert.NotEqual(t, state.Messages[0].ID, state.Messages[1].ID)
}

func TestSendMessage_AppendsReply(t *testing.T) {
	tr := &fakeTransport{reply: "Try these:\n\n**Blue Tee** for ₹499"}
	c, store := newTestController(t, tr)
	ctx := context.Background()

	task, err := c.SendMessage(ctx, "client_a", "  t-shirts  ")
	require.NoError(t, err)

	typing := c.Mount(ctx, "client_a")
	if task.running() {
		assert.True(t, typing.Typing)
	}

	require.NoError(t, waitTask(t, task))

	state := c.Mount(ctx, "client_a")
	require.Len(t, state.Messages, 3)
	assert.True(t, state.Messages[1].IsUser)
	assert.Equal(t, "t-shirts", state.Messages[1].Text)
	assert.Equal(t, tr.reply, state.Messages[2].Text)
	assert.True(t, state.Messages[2].IsMarkdown)
	assert.NotEmpty(t, state.Messages[2].HTML)
	assert.False(t, state.Typing)
	assert.Equal(t, "conv-1", state.ConversationID)

	products := c.ListingProducts(ctx, "client_a")
	require.Len(t, products, 1)
	assert.Equal(t, "Blue Tee", products[0].Title)
	assert.Equal(t, "₹499", products[0].Price)

	snap, err := store.LoadSnapshot(ctx, "client_a")
	require.NoError(t, err)
	assert.Len(t, snap.Messages, 3)
	assert.Equal(t, "conv-1", snap.ConversationID)
	assert.Equal(t, "tok", snap.Token)
	assert.Equal(t, []string{"t-shirts"}, tr.posts)
}

func TestSendMessage_EmptyText(t *testing.T) {
	tr := &fakeTransport{}
	c, _ := newTestController(t, tr)

	_, err := c.SendMessage(context.Background(), "client_a", "   ")
	assert.ErrorIs(t, err, domain.ErrEmptyMessage)
	assert.Zero(t, tr.postCount())
}

func TestSendMessage_RateWindowDropsSecondSend(t *testing.T) {
	tr := &fakeTransport{reply: "ok"}
	c, _ := newTestController(t, tr, WithSendWindow(time.Hour))
	ctx := context.Background()

	task, err := c.SendMessage(ctx, "client_a", "first")
	require.NoError(t, err)
	require.NoError(t, waitTask(t, task))

	_, err = c.SendMessage(ctx, "client_a", "second")
	assert.ErrorIs(t, err, domain.ErrRateLimited)
	assert.Equal(t, 1, tr.postCount())
	assert.Len(t, c.Mount(ctx, "client_a").Messages, 3)
}

func TestSendMessage_InFlight(t *testing.T) {
	tr := &fakeTransport{block: true}
	c, _ := newTestController(t, tr, WithSendWindow(50*time.Millisecond))
	ctx := context.Background()

	task, err := c.SendMessage(ctx, "client_a", "first")
	require.NoError(t, err)

	_, err = c.SendMessage(ctx, "client_a", "too soon")
	assert.ErrorIs(t, err, domain.ErrRateLimited)

	time.Sleep(60 * time.Millisecond)
	_, err = c.SendMessage(ctx, "client_a", "second")
	assert.ErrorIs(t, err, domain.ErrSendInFlight)
	assert.LessOrEqual(t, tr.postCount(), 1)

	task.Cancel()
	assert.Error(t, waitTask(t, task))
}

func TestSendMessage_FailureAppendsApology(t *testing.T) {
	tr := &fakeTransport{postErr: errors.New("boom")}
	alerts := &fakeAlerter{}
	c, _ := newTestController(t, tr, WithAlerter(alerts))
	ctx := context.Background()

	task, err := c.SendMessage(ctx, "client_a", "hello")
	require.NoError(t, err)
	err = waitTask(t, task)
	assert.ErrorIs(t, err, domain.ErrMessageSendFailed)

	state := c.Mount(ctx, "client_a")
	require.Len(t, state.Messages, 3)
	assert.Equal(t, config.ApologyText, state.Messages[2].Text)
	assert.False(t, state.Messages[2].IsUser)
	assert.False(t, state.Typing)
	assert.Eventually(t, func() bool { return alerts.failureCount() == 1 }, time.Second, time.Millisecond)
}

func TestSendMessage_CancelledSendNotAlerted(t *testing.T) {
	tr := &fakeTransport{block: true}
	alerts := &fakeAlerter{}
	c, _ := newTestController(t, tr, WithAlerter(alerts))
	ctx := context.Background()

	task, err := c.SendMessage(ctx, "client_a", "hello")
	require.NoError(t, err)
	task.Cancel()
	assert.ErrorIs(t, waitTask(t, task), context.Canceled)

	c.Close()
	assert.Zero(t, alerts.failureCount())
	assert.False(t, c.Mount(ctx, "client_a").Typing)
}

func TestSendMessage_CreateFailureDropsStaleConversation(t *testing.T) {
	tr := &fakeTransport{createErr: errors.New("directline api error: 502 Bad Gateway body=upstream")}
	alerts := &fakeAlerter{}
	c, store := newTestController(t, tr, WithAlerter(alerts))
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, store.SaveSnapshot(ctx, "client_a", &domain.Snapshot{
		ConversationID: "conv-old",
		Token:          "tok-old",
		TokenExpiry:    now.Add(20 * time.Minute).UnixMilli(),
		Watermark:      "3",
		Messages:       []domain.Message{domain.NewMessage(config.GreetingText, false, false, now)},
	}))
	require.Equal(t, "conv-old", c.Mount(ctx, "client_a").ConversationID)

	task, err := c.SendMessage(ctx, "client_a", "hello")
	require.NoError(t, err)
	assert.ErrorIs(t, waitTask(t, task), domain.ErrConversationCreateFailed)
	c.Close()

	state := c.Mount(ctx, "client_a")
	assert.Empty(t, state.ConversationID)
	require.Len(t, state.Messages, 3)
	assert.Equal(t, config.ApologyText, state.Messages[2].Text)

	snap, err := store.LoadSnapshot(ctx, "client_a")
	require.NoError(t, err)
	assert.Empty(t, snap.ConversationID)
	assert.Empty(t, snap.Watermark)
	assert.Equal(t, "tok", snap.Token)
	assert.Equal(t, 1, alerts.failureCount())
	assert.Zero(t, tr.postCount())
}

func TestEvict_DropsIdleClients(t *testing.T) {
	tr := &fakeTransport{block: true}
	clock := &testClock{now: time.Now()}
	store := repository.NewClientStore(repository.NewMemoryStore())
	sessions := service.NewSessionManager(tr, testSessionConfig(), service.WithClock(clock.Now))
	c := NewController(sessions, store, WithSendWindow(time.Millisecond))
	t.Cleanup(c.Close)
	ctx := context.Background()

	require.NoError(t, store.SaveSnapshot(ctx, "client_a", &domain.Snapshot{
		ConversationID: "conv-9",
		Token:          "tok",
		TokenExpiry:    clock.Now().Add(20 * time.Minute).UnixMilli(),
		Messages:       []domain.Message{domain.NewMessage("hi", false, false, clock.Now())},
	}))
	require.Equal(t, "conv-9", c.Mount(ctx, "client_a").ConversationID)

	task, err := c.SendMessage(ctx, "client_b", "hello")
	require.NoError(t, err)

	assert.Zero(t, c.Evict(time.Minute))

	clock.advance(2 * time.Minute)
	c.Mount(ctx, "client_c")
	assert.Equal(t, 1, c.Evict(time.Minute))

	c.mu.Lock()
	_, hasA := c.clients["client_a"]
	_, hasB := c.clients["client_b"]
	_, hasC := c.clients["client_c"]
	c.mu.Unlock()
	assert.False(t, hasA)
	assert.True(t, hasB, "client with a running send is kept")
	assert.True(t, hasC)

	state := c.Mount(ctx, "client_a")
	assert.Equal(t, "conv-9", state.ConversationID)
	require.Len(t, state.Messages, 1)
	assert.Equal(t, "hi", state.Messages[0].Text)

	task.Cancel()
	assert.Error(t, waitTask(t, task))
}

func TestReset_DuringFlightDiscardsResult(t *testing.T) {
	tr := &fakeTransport{block: true}
	alerts := &fakeAlerter{}
	c, store := newTestController(t, tr, WithAlerter(alerts))
	ctx := context.Background()

	task, err := c.SendMessage(ctx, "client_a", "hello")
	require.NoError(t, err)

	state := c.Reset(ctx, "client_a")
	require.Len(t, state.Messages, 1)
	assert.Equal(t, config.GreetingText, state.Messages[0].Text)

	assert.ErrorIs(t, waitTask(t, task), context.Canceled)

	state = c.Mount(ctx, "client_a")
	require.Len(t, state.Messages, 1)
	assert.Empty(t, state.ConversationID)
	assert.False(t, state.Typing)

	snap, err := store.LoadSnapshot(ctx, "client_a")
	require.NoError(t, err)
	assert.Len(t, snap.Messages, 1)
	assert.Empty(t, snap.Token)
	assert.Equal(t, 1, alerts.resets)
}

func TestClose_CancelsRunningSends(t *testing.T) {
	tr := &fakeTransport{block: true}
	store := repository.NewClientStore(repository.NewMemoryStore())
	c := NewController(service.NewSessionManager(tr, testSessionConfig()), store)
	ctx := context.Background()

	task, err := c.SendMessage(ctx, "client_a", "hello")
	require.NoError(t, err)

	c.Close()

	select {
	case <-task.Done():
	default:
		t.Fatal("task still running after Close")
	}

	msgs := c.Mount(ctx, "client_a").Messages
	require.Len(t, msgs, 2)
	assert.True(t, msgs[1].IsUser)
}

func TestSubscribe_ReceivesEvents(t *testing.T) {
	tr := &fakeTransport{reply: "hello back"}
	c, _ := newTestController(t, tr)
	ctx := context.Background()

	events, release := c.Hub().Subscribe("client_a")
	defer release()

	task, err := c.SendMessage(ctx, "client_a", "hello")
	require.NoError(t, err)
	require.NoError(t, waitTask(t, task))

	var types []string
	for len(events) > 0 {
		ev := <-events
		types = append(types, ev.Type)
	}
	assert.Equal(t, EventTyping, types[0])
	assert.Equal(t, EventMessage, types[len(types)-1])
}
