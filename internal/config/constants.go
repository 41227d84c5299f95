package config

import "time"

const (
	// Store drivers
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
	StoreDriverMemory   = "memory"

	// Token handling
	TokenRefreshBuffer = 5 * time.Minute
	TokenLifetime      = 30 * time.Minute
	TokenAttempts      = 3
	TokenBackoffBase   = 1 * time.Second

	// Reply polling
	PollInterval = 1 * time.Second
	PollAttempts = 60

	// One outgoing message per window; extra sends are dropped
	SendWindow = 1 * time.Second

	// Outbound HTTP timeout
	RequestTimeout = 15 * time.Second

	// Catalog pagination
	ProductsPerPage = 10

	// Named client entries
	EntryChatState       = "chatState"
	EntrySelectedProduct = "selectedProduct"

	// Client identity cookie
	ClientCookieName   = "shop_client_id"
	ClientCookieMaxAge = 30 * 24 * time.Hour

	// Shutdown
	ShutdownTimeout = 10 * time.Second

	// Telegram limits
	MaxTelegramMessageLen = 4096
)

const (
	GreetingText = "Hello! I'm your shopping assistant. How can I help you today?"
	ApologyText  = "Sorry, I couldn't reach the shopping assistant. Please try again in a moment."
)

// DiscountThresholds are the percent-off facet buckets.
var DiscountThresholds = []int{10, 25, 50, 70}

const (
	// Stored client entries untouched for this long are removed
	EntryRetention       = 30 * 24 * time.Hour
	EntryCleanupInterval = 1 * time.Hour

	PostgresMaxConns    = 10
	PostgresMinConns    = 2
	PostgresMaxConnIdle = 15 * time.Minute

	// In-memory client state idle for this long is dropped; the stored snapshot remains
	ClientIdleTimeout = 2 * time.Hour
)
