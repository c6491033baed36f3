// Package notifications implements the notification delivery and
// deduplication engine: record creation with an idempotent overwrite guard,
// settings-driven multi-channel fan-out, per-recipient read state, merge of
// related notifications into single display entries, and age-based retention
// sweeping.
package notifications

import (
	"context"
	"time"

	"github.com/forumbase/notifyd/internal/repositories"
	"github.com/forumbase/notifyd/pkg/hooks"
	"github.com/forumbase/notifyd/pkg/logger"
	"github.com/forumbase/notifyd/pkg/metrics"
	"github.com/forumbase/notifyd/pkg/tasks"
	"github.com/sirupsen/logrus"
)

// Hook points dispatched by the engine. Create and push filters may
// transform or veto their payload; the pushed hook is observation only.
const (
	HookCreate = "notification.create" // filter, payload *models.Notification
	HookPush   = "notification.push"   // filter, payload *PushPayload
	HookPushed = "notification.pushed" // static, payload *PushedEvent
	HookMerge  = "notification.merge"  // filter, payload []*models.Notification
)

// EmailSender is the transactional email transport.
type EmailSender interface {
	Send(ctx context.Context, template string, to string, payload map[string]interface{}) error
}

// RealtimePublisher pushes best-effort events to connected clients.
type RealtimePublisher interface {
	EmitToRecipient(ctx context.Context, userID uint, event string, payload interface{}) error
}

// Options bound the engine's delivery and retention behavior. Zero values
// fall back to production defaults.
type Options struct {
	BaseURL          string
	Retention        time.Duration
	BatchSize        int
	BatchPause       time.Duration
	EmailConcurrency int
	StripEmailImages bool
}

func (o Options) withDefaults() Options {
	if o.Retention <= 0 {
		o.Retention = 30 * 24 * time.Hour
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 500
	}
	if o.BatchPause <= 0 {
		o.BatchPause = 500 * time.Millisecond
	}
	if o.EmailConcurrency <= 0 {
		o.EmailConcurrency = 3
	}
	return o
}

// Deps are the collaborators the engine is wired with.
type Deps struct {
	Records  repositories.NotificationRepository
	Indexes  repositories.IndexRepository
	Users    repositories.UserRepository
	Settings repositories.SettingsRepository
	Blocks   repositories.BlockRepository
	Groups   repositories.GroupRepository
	Emailer  EmailSender
	Realtime RealtimePublisher
	Bus      *hooks.Bus
	Queue    *tasks.Queue
	Metrics  *metrics.Metrics
	Log      *logger.Logger
}

// Engine is the notification core. All methods are safe for concurrent use;
// consistency across the underlying indices is eventual, not transactional.
type Engine struct {
	records  repositories.NotificationRepository
	indexes  repositories.IndexRepository
	users    repositories.UserRepository
	settings repositories.SettingsRepository
	blocks   repositories.BlockRepository
	groups   repositories.GroupRepository
	emailer  EmailSender
	realtime RealtimePublisher
	bus      *hooks.Bus
	queue    *tasks.Queue
	metrics  *metrics.Metrics
	log      *logrus.Entry
	opts     Options

	strategies map[string]MergeStrategy

	now func() time.Time
}

// NewEngine creates a notification engine with the default merge strategies
// registered.
func NewEngine(deps Deps, opts Options) *Engine {
	e := &Engine{
		records:    deps.Records,
		indexes:    deps.Indexes,
		users:      deps.Users,
		settings:   deps.Settings,
		blocks:     deps.Blocks,
		groups:     deps.Groups,
		emailer:    deps.Emailer,
		realtime:   deps.Realtime,
		bus:        deps.Bus,
		queue:      deps.Queue,
		metrics:    deps.Metrics,
		log:        deps.Log.WithComponent("notifications"),
		opts:       opts.withDefaults(),
		strategies: make(map[string]MergeStrategy),
		now:        time.Now,
	}
	registerDefaultStrategies(e)
	return e
}

// nowMS returns the current time in unix milliseconds, the score unit of
// every index.
func (e *Engine) nowMS() int64 {
	return e.now().UnixMilli()
}

// retentionCutoff returns the oldest datetime still retained.
func (e *Engine) retentionCutoff() int64 {
	return e.now().Add(-e.opts.Retention).UnixMilli()
}
