package domain

import "errors"

var (
	ErrTokenUnavailable         = errors.New("token unavailable")
	ErrConversationCreateFailed = errors.New("conversation create failed")
	ErrMessageSendFailed        = errors.New("message send failed")
	ErrBotResponseTimeout       = errors.New("bot response timeout")
	ErrPollingTransient         = errors.New("transient polling failure")
	ErrSnapshotNotFound         = errors.New("snapshot not found")
	ErrEntryNotFound            = errors.New("entry not found")
	ErrProductNotFound          = errors.New("product not found")
	ErrEmptyMessage             = errors.New("empty message")
	ErrRateLimited              = errors.New("send dropped by rate window")
	ErrSendInFlight             = errors.New("send already in flight")
)
