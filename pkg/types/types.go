package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Queue entry statuses. A queue entry only ever moves from queued to started.
const (
	StatusQueued  = "queued"
	StatusStarted = "started"
)

// WorkerStatusRunning is the liveness status the capture worker writes while alive.
const WorkerStatusRunning = "running"

// Key prefixes multiplexing entry kinds inside the capture table.
const (
	QueueKeyPrefix   = "QUEUE#"
	SettingKeyPrefix = "SETTING#"
	LivenessKey      = "WORKER#capture"
)

// QueueKey returns the capture table key for an event's queue entry.
func QueueKey(eventID string) string {
	return QueueKeyPrefix + eventID
}

// SettingKey returns the capture table key for a named dashboard setting.
func SettingKey(name string) string {
	return SettingKeyPrefix + name
}

// Event is an upcoming event read from the event source
type Event struct {
	ID             string `dynamodbav:"event_id"`
	Category       string `dynamodbav:"category"`
	Title          string `dynamodbav:"title,omitempty"`
	ScheduledStart *int64 `dynamodbav:"scheduled_start,omitempty"`
	StrikeTime     int64  `dynamodbav:"strike_time"`
}

// QueueEntry is one event committed for capture
type QueueEntry struct {
	Key            string `dynamodbav:"pk" json:"-"`
	EventID        string `dynamodbav:"event_id" json:"event_id"`
	Category       string `dynamodbav:"category" json:"category"`
	Title          string `dynamodbav:"title,omitempty" json:"title,omitempty"`
	Status         string `dynamodbav:"status" json:"status"`
	ScheduledStart int64  `dynamodbav:"scheduled_start" json:"scheduled_start"`

	// Provenance
	QueuedBy  string `dynamodbav:"queued_by" json:"queued_by"`
	QueuedAt  string `dynamodbav:"queued_at" json:"queued_at"`
	RunID     string `dynamodbav:"run_id,omitempty" json:"run_id,omitempty"`
	StartedAt string `dynamodbav:"started_at,omitempty" json:"started_at,omitempty"`
}

// Liveness is the heartbeat row written by the capture worker
type Liveness struct {
	Key           string `dynamodbav:"pk" json:"-"`
	Status        string `dynamodbav:"status" json:"status"`
	LastHeartbeat string `dynamodbav:"last_heartbeat" json:"last_heartbeat"`
	Host          string `dynamodbav:"host,omitempty" json:"host,omitempty"`
}

// Setting is a dashboard toggle stored alongside the queue
type Setting struct {
	Key       string `dynamodbav:"pk" json:"-"`
	Name      string `dynamodbav:"name" json:"name"`
	Enabled   bool   `dynamodbav:"enabled" json:"enabled"`
	UpdatedAt string `dynamodbav:"updated_at,omitempty" json:"updated_at,omitempty"`
	UpdatedBy string `dynamodbav:"updated_by,omitempty" json:"updated_by,omitempty"`
}

// TradeRecord is a broker order reshaped for the dashboard
type TradeRecord struct {
	OrderID        string           `json:"order_id"`
	Symbol         string           `json:"symbol"`
	Side           string           `json:"side"`
	Type           string           `json:"type"`
	Status         string           `json:"status"`
	Qty            decimal.Decimal  `json:"qty"`
	FilledQty      decimal.Decimal  `json:"filled_qty"`
	FilledAvgPrice *decimal.Decimal `json:"filled_avg_price,omitempty"`
	LimitPrice     *decimal.Decimal `json:"limit_price,omitempty"`
	SubmittedAt    time.Time        `json:"submitted_at"`
	FilledAt       *time.Time       `json:"filled_at,omitempty"`

	// Mark-to-market, only for filled orders with a live quote
	CurrentPrice  *decimal.Decimal `json:"current_price,omitempty"`
	UnrealizedPL  *decimal.Decimal `json:"unrealized_pl,omitempty"`
	UnrealizedPct *decimal.Decimal `json:"unrealized_pl_pct,omitempty"`
}
