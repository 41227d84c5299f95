package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/set-night/shopassist/internal/config"
	"github.com/set-night/shopassist/internal/domain"
	"github.com/sethvargo/go-retry"
)

type SessionConfig struct {
	RefreshBuffer time.Duration
	TokenLifetime time.Duration
	TokenAttempts int
	BackoffBase   time.Duration
	PollInterval  time.Duration
	PollAttempts  int
}

func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		RefreshBuffer: config.TokenRefreshBuffer,
		TokenLifetime: config.TokenLifetime,
		TokenAttempts: config.TokenAttempts,
		BackoffBase:   config.TokenBackoffBase,
		PollInterval:  config.PollInterval,
		PollAttempts:  config.PollAttempts,
	}
}

// SessionManager drives a Session through token, conversation, send and poll.
// It holds no per-client state; callers pass the Session they own.
type SessionManager struct {
	transport Transport
	cfg       SessionConfig
	now       func() time.Time
}

type SessionOption func(*SessionManager)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) SessionOption {
	return func(m *SessionManager) { m.now = now }
}

func NewSessionManager(transport Transport, cfg SessionConfig, opts ...SessionOption) *SessionManager {
	m := &SessionManager{transport: transport, cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *SessionManager) Now() time.Time {
	return m.now()
}

// Restore adopts snap when its token outlives the refresh buffer and it carries a conversation
// and history. Otherwise it returns a fresh conversation and false.
func (m *SessionManager) Restore(snap *domain.Snapshot) (*domain.Conversation, bool) {
	if snap == nil ||
		snap.ConversationID == "" ||
		snap.Token == "" ||
		len(snap.Messages) == 0 ||
		!snap.Expiry().After(m.now().Add(m.cfg.RefreshBuffer)) {
		return m.NewConversation(), false
	}

	conv := &domain.Conversation{
		Session: domain.Session{
			ConversationID: snap.ConversationID,
			Token:          snap.Token,
			TokenExpiry:    snap.Expiry(),
			Watermark:      snap.Watermark,
		},
		UserID:   snap.UserID,
		Messages: dedupeMessageIDs(snap.Messages),
	}
	if conv.UserID == "" {
		conv.UserID = domain.NewUserID()
	}
	return conv, true
}

// NewConversation returns an empty session holding only the greeting.
func (m *SessionManager) NewConversation() *domain.Conversation {
	return &domain.Conversation{
		UserID:   domain.NewUserID(),
		Messages: []domain.Message{domain.NewMessage(config.GreetingText, false, false, m.now())},
	}
}

// ResetSession clears every session field of conv in place and reinstalls the greeting.
func (m *SessionManager) ResetSession(conv *domain.Conversation) {
	*conv = *m.NewConversation()
}

// AcquireToken returns the cached token while it is valid, otherwise fetches a new one.
func (m *SessionManager) AcquireToken(ctx context.Context, sess *domain.Session, forceNew bool) (string, error) {
	if !forceNew && sess.TokenValid(m.now(), m.cfg.RefreshBuffer) {
		return sess.Token, nil
	}

	var token string
	err := retry.Do(ctx, m.tokenBackoff(), func(ctx context.Context) error {
		t, err := m.transport.FetchToken(ctx)
		if err != nil {
			slog.Warn("token fetch attempt failed", "error", err)
			return retry.RetryableError(err)
		}
		token = t
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrTokenUnavailable, err)
	}

	sess.Token = token
	sess.TokenExpiry = m.now().Add(m.cfg.TokenLifetime)
	return token, nil
}

// tokenBackoff waits 1x, 2x, ... the base delay between attempts.
func (m *SessionManager) tokenBackoff() retry.Backoff {
	var n int64
	linear := retry.BackoffFunc(func() (time.Duration, bool) {
		n++
		return time.Duration(n) * m.cfg.BackoffBase, false
	})
	attempts := m.cfg.TokenAttempts
	if attempts < 1 {
		attempts = 1
	}
	return retry.WithMaxRetries(uint64(attempts-1), linear)
}

// CreateConversation opens a conversation for token. On failure sess drops its previous
// conversation so it is never paired with a token it was not created with.
func (m *SessionManager) CreateConversation(ctx context.Context, sess *domain.Session, token string) (string, error) {
	id, err := m.transport.CreateConversation(ctx, token)
	if err != nil {
		sess.ConversationID = ""
		sess.Watermark = ""
		return "", fmt.Errorf("%w: %v", domain.ErrConversationCreateFailed, err)
	}
	sess.ConversationID = id
	sess.Watermark = ""
	return id, nil
}

// FetchActivities never fails: on error it logs and returns no activities with the watermark unchanged.
func (m *SessionManager) FetchActivities(ctx context.Context, token, conversationID, watermark string) ([]domain.Activity, string) {
	set, err := m.transport.GetActivities(ctx, token, conversationID, watermark)
	if err != nil {
		slog.Warn("activity poll failed",
			"error", fmt.Errorf("%w: %v", domain.ErrPollingTransient, err),
			"conversation_id", conversationID,
		)
		return nil, watermark
	}
	if set.Watermark == "" {
		return set.Activities, watermark
	}
	return set.Activities, set.Watermark
}

// SendMessage always starts a new conversation with a fresh token, posts text as userID,
// then polls until the bot answers or the attempt ceiling is hit. sess is updated in place.
func (m *SessionManager) SendMessage(ctx context.Context, sess *domain.Session, userID, text string) (*domain.Activity, error) {
	token, err := m.AcquireToken(ctx, sess, true)
	if err != nil {
		return nil, err
	}

	conversationID, err := m.CreateConversation(ctx, sess, token)
	if err != nil {
		return nil, err
	}

	if err := m.transport.PostActivity(ctx, token, conversationID, domain.Activity{
		Type: domain.ActivityTypeMessage,
		From: domain.ChannelAccount{ID: userID},
		Text: text,
	}); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMessageSendFailed, err)
	}

	return m.awaitReply(ctx, sess, token, conversationID, userID, text)
}

func (m *SessionManager) awaitReply(ctx context.Context, sess *domain.Session, token, conversationID, userID, sent string) (*domain.Activity, error) {
	seen := make(map[string]struct{})
	echo := strings.ToLower(strings.TrimSpace(sent))

	timer := time.NewTimer(m.cfg.PollInterval)
	defer timer.Stop()

	for attempt := 1; attempt <= m.cfg.PollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}

		activities, watermark := m.FetchActivities(ctx, token, conversationID, sess.Watermark)
		sess.Watermark = watermark

		for i := range activities {
			a := activities[i]
			if a.ID != "" {
				if _, dup := seen[a.ID]; dup {
					continue
				}
				seen[a.ID] = struct{}{}
			}
			if isBotReply(a, userID, echo) {
				return &a, nil
			}
		}

		timer.Reset(m.cfg.PollInterval)
	}

	return nil, fmt.Errorf("%w: no reply after %d polls", domain.ErrBotResponseTimeout, m.cfg.PollAttempts)
}

func isBotReply(a domain.Activity, userID, echo string) bool {
	return a.Type == domain.ActivityTypeMessage &&
		a.From.ID != userID &&
		strings.ToLower(strings.TrimSpace(a.Text)) != echo
}

// dedupeMessageIDs assigns fresh ids to messages with a missing or repeated id.
func dedupeMessageIDs(in []domain.Message) []domain.Message {
	out := make([]domain.Message, len(in))
	seen := make(map[string]struct{}, len(in))
	for i, msg := range in {
		if _, dup := seen[msg.ID]; msg.ID == "" || dup {
			msg.ID = uuid.NewString()
		}
		seen[msg.ID] = struct{}{}
		out[i] = msg
	}
	return out
}
