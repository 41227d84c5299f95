// Package widget holds the per-browser chat widget state and orchestrates sends against
// the bot transport.
package widget

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/set-night/shopassist/internal/config"
	"github.com/set-night/shopassist/internal/domain"
	"github.com/set-night/shopassist/internal/markdown"
	"github.com/set-night/shopassist/internal/service"
	"github.com/sourcegraph/conc"
	"golang.org/x/time/rate"
)

type Store interface {
	LoadSnapshot(ctx context.Context, clientID string) (*domain.Snapshot, error)
	SaveSnapshot(ctx context.Context, clientID string, snap *domain.Snapshot) error
	DeleteSnapshot(ctx context.Context, clientID string) error
}

type Alerter interface {
	LogSendFailure(clientID string, err error)
	LogSessionReset(clientID string)
}

type client struct {
	mu      sync.Mutex
	conv    *domain.Conversation
	typing  bool
	listing []domain.ProductSuggestion
	limiter *rate.Limiter
	task    *Task
	gen     uint64

	// lastSeen is guarded by Controller.mu.
	lastSeen time.Time
}

type Controller struct {
	sessions *service.SessionManager
	store    Store
	alerts   Alerter
	hub      *Hub
	cards    markdown.Extractor
	listing  markdown.Extractor
	window   time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	tasks  conc.WaitGroup

	mu      sync.Mutex
	clients map[string]*client
}

type Option func(*Controller)

func WithAlerter(a Alerter) Option {
	return func(c *Controller) { c.alerts = a }
}

func WithSendWindow(d time.Duration) Option {
	return func(c *Controller) { c.window = d }
}

func WithHub(h *Hub) Option {
	return func(c *Controller) { c.hub = h }
}

func NewController(sessions *service.SessionManager, store Store, opts ...Option) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		sessions: sessions,
		store:    store,
		alerts:   nopAlerter{},
		hub:      NewHub(),
		cards:    markdown.CardExtractor{},
		listing:  markdown.ListingExtractor{},
		window:   config.SendWindow,
		ctx:      ctx,
		cancel:   cancel,
		clients:  make(map[string]*client),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) Hub() *Hub {
	return c.hub
}

// Mount returns the widget state, restoring the stored snapshot on first access.
func (c *Controller) Mount(ctx context.Context, clientID string) *State {
	cl := c.client(ctx, clientID)
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return c.state(cl)
}

// SendMessage starts a send and returns its handle. Sends inside the rate window are
// dropped with domain.ErrRateLimited; a second send while one runs gets domain.ErrSendInFlight.
func (c *Controller) SendMessage(ctx context.Context, clientID, text string) (*Task, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.ErrEmptyMessage
	}

	cl := c.client(ctx, clientID)
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if !cl.limiter.AllowN(c.sessions.Now(), 1) {
		slog.Debug("send dropped by rate window", "client_id", clientID)
		return nil, domain.ErrRateLimited
	}
	if cl.task != nil && cl.task.running() {
		return nil, domain.ErrSendInFlight
	}

	cl.conv.Messages = append(cl.conv.Messages, domain.NewMessage(text, true, false, c.sessions.Now()))
	cl.typing = true
	c.persist(clientID, cl)
	c.publish(clientID, cl, EventTyping)

	taskCtx, cancel := context.WithCancel(c.ctx)
	task := newTask(cancel)
	cl.task = task

	sess := cl.conv.Session
	userID := cl.conv.UserID
	gen := cl.gen

	c.tasks.Go(func() {
		c.run(taskCtx, clientID, cl, task, gen, sess, userID, text)
	})
	return task, nil
}

func (c *Controller) run(ctx context.Context, clientID string, cl *client, task *Task, gen uint64, sess domain.Session, userID, text string) {
	reply, err := c.sessions.SendMessage(ctx, &sess, userID, text)
	// finish cancels ctx, so the cause has to be read first.
	cancelled := err != nil && ctx.Err() != nil

	if !c.apply(clientID, cl, gen, sess, reply, err, cancelled) {
		task.finish(context.Canceled)
		return
	}
	task.finish(err)

	if err != nil && !cancelled {
		c.alerts.LogSendFailure(clientID, err)
	}
}

// apply writes a finished send into the client state. It reports false when a reset
// happened meanwhile and the result was discarded.
func (c *Controller) apply(clientID string, cl *client, gen uint64, sess domain.Session, reply *domain.Activity, err error, cancelled bool) bool {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if cl.gen != gen {
		return false
	}
	cl.conv.Session = sess
	cl.typing = false

	switch {
	case cancelled:
		slog.Info("send cancelled", "client_id", clientID)
	case err != nil:
		slog.Error("send message failed", "error", err, "client_id", clientID)
		cl.conv.Messages = append(cl.conv.Messages, domain.NewMessage(config.ApologyText, false, false, c.sessions.Now()))
	default:
		cl.conv.Messages = append(cl.conv.Messages,
			domain.NewMessage(reply.Text, false, markdown.IsMarkdown(reply.Text), c.sessions.Now()))
		cl.listing = c.listing.Extract(reply.Text)
		c.publish(clientID, cl, EventProducts)
	}

	c.persist(clientID, cl)
	c.publish(clientID, cl, EventMessage)
	return true
}

// Reset cancels any running send, drops the stored snapshot and starts over with the greeting.
func (c *Controller) Reset(ctx context.Context, clientID string) *State {
	state := c.reset(ctx, clientID)
	c.alerts.LogSessionReset(clientID)
	return state
}

func (c *Controller) reset(ctx context.Context, clientID string) *State {
	cl := c.client(ctx, clientID)
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if cl.task != nil {
		cl.task.Cancel()
	}
	cl.gen++
	cl.typing = false
	cl.listing = nil

	if err := c.store.DeleteSnapshot(ctx, clientID); err != nil {
		slog.Warn("delete snapshot", "error", err, "client_id", clientID)
	}
	c.sessions.ResetSession(cl.conv)
	c.persist(clientID, cl)

	c.publish(clientID, cl, EventReset)
	return c.state(cl)
}

// ListingProducts returns products the last bot reply listed for the page view.
func (c *Controller) ListingProducts(ctx context.Context, clientID string) []domain.ProductSuggestion {
	cl := c.client(ctx, clientID)
	cl.mu.Lock()
	defer cl.mu.Unlock()

	out := make([]domain.ProductSuggestion, len(cl.listing))
	copy(out, cl.listing)
	return out
}

// Close cancels every running send and waits for all of them to return.
func (c *Controller) Close() {
	c.cancel()
	c.tasks.Wait()
}

// Evict drops in-memory state of clients not seen for olderThan and with no send running.
// Their snapshots stay in the store and are read again on the next access.
func (c *Controller) Evict(olderThan time.Duration) int {
	cutoff := c.sessions.Now().Add(-olderThan)

	c.mu.Lock()
	defer c.mu.Unlock()

	evicted := 0
	for id, cl := range c.clients {
		if cl.lastSeen.After(cutoff) {
			continue
		}
		cl.mu.Lock()
		busy := cl.task != nil && cl.task.running()
		cl.mu.Unlock()
		if busy {
			continue
		}
		delete(c.clients, id)
		evicted++
	}
	return evicted
}

// client returns the loaded state for clientID, reading the snapshot on first use.
func (c *Controller) client(ctx context.Context, clientID string) *client {
	c.mu.Lock()
	cl, ok := c.clients[clientID]
	if !ok {
		cl = &client{limiter: rate.NewLimiter(rate.Every(c.window), 1)}
		c.clients[clientID] = cl
	}
	cl.lastSeen = c.sessions.Now()
	c.mu.Unlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()
	if cl.conv == nil {
		c.load(ctx, clientID, cl)
	}
	return cl
}

func (c *Controller) load(ctx context.Context, clientID string, cl *client) {
	snap, err := c.store.LoadSnapshot(ctx, clientID)
	if err != nil && !errors.Is(err, domain.ErrSnapshotNotFound) {
		slog.Warn("load snapshot", "error", err, "client_id", clientID)
	}

	conv, restored := c.sessions.Restore(snap)
	cl.conv = conv
	if !restored {
		slog.Debug("snapshot not restorable, starting fresh", "client_id", clientID)
		c.persist(clientID, cl)
	}
}

// persist rewrites the whole snapshot. Failures are logged; the in-memory state stays authoritative.
func (c *Controller) persist(clientID string, cl *client) {
	ctx, cancel := context.WithTimeout(context.Background(), config.RequestTimeout)
	defer cancel()
	if err := c.store.SaveSnapshot(ctx, clientID, cl.conv.Snapshot()); err != nil {
		slog.Error("save snapshot", "error", err, "client_id", clientID)
	}
}

func (c *Controller) publish(clientID string, cl *client, eventType string) {
	if !c.hub.HasSubscribers(clientID) {
		return
	}
	c.hub.Publish(clientID, Event{Type: eventType, State: c.state(cl)})
}

func (c *Controller) state(cl *client) *State {
	listing := make([]domain.ProductSuggestion, len(cl.listing))
	copy(listing, cl.listing)
	return &State{
		ConversationID: cl.conv.Session.ConversationID,
		Messages:       renderMessages(cl.conv.Messages, c.cards),
		Typing:         cl.typing,
		Products:       listing,
	}
}

type nopAlerter struct{}

func (nopAlerter) LogSendFailure(string, error) {}
func (nopAlerter) LogSessionReset(string)       {}
