package notifications

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/forumbase/notifyd/internal/models"
)

// PushPayload is the pre-push filter hook payload. Listeners may swap the
// record or rewrite the recipient list; an empty recipient list stops
// delivery for the batch.
type PushPayload struct {
	Notification *models.Notification
	RecipientIDs []uint
}

// PushedEvent reports, per batch, who was ultimately notified on which
// channel (observation-only static hook).
type PushedEvent struct {
	ID      string
	InApp   []uint
	Emailed []uint
}

// Call-to-action hints embedded in outgoing emails for known types.
var emailCTAByType = map[string]string{
	"new-reply":  "reply",
	"new-chat":   "chat",
	"new-follow": "view-profile",
}

var imgTagPattern = regexp.MustCompile(`(?is)<img[^>]*>`)

// Push schedules delivery of a notification to the given recipients and
// returns immediately. Delivery runs after the debounce delay on its own
// goroutine; failures are logged, never surfaced to the caller. A nil
// record, a record without an id or an empty recipient list is a no-op.
func (e *Engine) Push(n *models.Notification, userIDs []uint) {
	if n == nil || n.ID == "" || len(userIDs) == 0 {
		return
	}
	recipients := dedupeIDs(userIDs)
	e.queue.Submit(func() {
		e.deliver(context.Background(), n, recipients)
	})
}

// PushGroup resolves a group name to its members and delivers to them.
func (e *Engine) PushGroup(n *models.Notification, groupName string) {
	e.PushGroups(n, []string{groupName})
}

// PushGroups resolves several groups, deduplicates members across them and
// delivers once per recipient.
func (e *Engine) PushGroups(n *models.Notification, groupNames []string) {
	if n == nil || n.ID == "" || len(groupNames) == 0 {
		return
	}
	var members []uint
	for _, name := range groupNames {
		ids, err := e.groups.GetMemberIDs(name)
		if err != nil {
			e.log.WithField("group", name).Warnf("group resolution failed: %v", err)
			continue
		}
		members = append(members, ids...)
	}
	e.Push(n, members)
}

// deliver fans the notification out in fixed-size batches with fixed
// inter-batch pacing. A failing batch is logged and skipped; the remaining
// batches still run.
func (e *Engine) deliver(ctx context.Context, n *models.Notification, userIDs []uint) {
	for start := 0; start < len(userIDs); start += e.opts.BatchSize {
		end := start + e.opts.BatchSize
		if end > len(userIDs) {
			end = len(userIDs)
		}
		if err := e.deliverBatch(ctx, n, userIDs[start:end]); err != nil {
			e.log.WithField("id", n.ID).Errorf("batch delivery failed: %v", err)
		}
		if end < len(userIDs) {
			time.Sleep(e.opts.BatchPause)
		}
	}
}

func (e *Engine) deliverBatch(ctx context.Context, n *models.Notification, batch []uint) error {
	recipients := batch
	if n.From != 0 {
		filtered, err := e.blocks.FilterBlocked(n.From, recipients)
		if err != nil {
			return err
		}
		recipients = filtered
	}

	payload := &PushPayload{Notification: n, RecipientIDs: recipients}
	if filtered, ok := e.bus.Filter(HookPush, payload).(*PushPayload); ok && filtered != nil {
		payload = filtered
	}
	n = payload.Notification
	recipients = payload.RecipientIDs
	if n == nil || len(recipients) == 0 {
		return nil
	}

	inApp, emailTo, err := e.routeChannels(n, recipients)
	if err != nil {
		return err
	}

	if len(inApp) > 0 {
		if err := e.deliverInApp(ctx, n, inApp); err != nil {
			return err
		}
	}
	if len(emailTo) > 0 {
		e.deliverEmail(ctx, n, emailTo)
	}

	e.bus.FireStatic(HookPushed, &PushedEvent{ID: n.ID, InApp: inApp, Emailed: emailTo})
	return nil
}

// routeChannels splits recipients by their channel preference for the
// record's type. Untyped records go in-app only; a recipient may appear in
// both sets.
func (e *Engine) routeChannels(n *models.Notification, recipients []uint) (inApp, emailTo []uint, err error) {
	if n.Type == "" {
		return recipients, nil, nil
	}

	preferences, err := e.settings.GetChannelPreferences(recipients, n.Type)
	if err != nil {
		return nil, nil, err
	}
	for _, userID := range recipients {
		switch preferences[userID] {
		case models.ChannelNone:
		case models.ChannelEmail:
			emailTo = append(emailTo, userID)
		case models.ChannelInAppAndEmail:
			inApp = append(inApp, userID)
			emailTo = append(emailTo, userID)
		default:
			inApp = append(inApp, userID)
		}
	}
	return inApp, emailTo, nil
}

// deliverInApp writes the record into each recipient's unread index, trims
// both indices to the retention window at write time, and emits a
// best-effort realtime event.
func (e *Engine) deliverInApp(ctx context.Context, n *models.Notification, recipients []uint) error {
	if err := e.indexes.DeliverToInboxes(ctx, recipients, n.ID, n.Datetime); err != nil {
		return err
	}
	if err := e.indexes.TrimInboxes(ctx, recipients, e.retentionCutoff()); err != nil {
		e.log.WithField("id", n.ID).Warnf("inbox trim failed: %v", err)
	}

	if e.realtime != nil {
		for _, userID := range recipients {
			if err := e.realtime.EmitToRecipient(ctx, userID, "notification:new", n); err != nil {
				// no live connection is not an error; the inbox entry persists
				e.log.WithField("uid", userID).Debugf("realtime emit skipped: %v", err)
			}
		}
	}
	e.metrics.NotificationsPushed.WithLabelValues("in-app").Add(float64(len(recipients)))
	return nil
}

// deliverEmail hands the record to the email transport with bounded
// concurrency. The first failure in the batch is logged; later ones are
// suppressed to avoid log amplification. Delivery continues regardless.
func (e *Engine) deliverEmail(ctx context.Context, n *models.Notification, recipients []uint) {
	if e.emailer == nil {
		return
	}
	addresses, err := e.users.GetEmailsByIDs(recipients)
	if err != nil {
		e.log.WithField("id", n.ID).Errorf("email address lookup failed: %v", err)
		return
	}

	body := e.emailBody(n)
	payload := map[string]interface{}{
		"subject":   n.BodyShort,
		"body":      body,
		"path":      e.absolutePath(n.Path),
		"notifType": n.Type,
		"cta":       emailCTAByType[n.Type],
	}

	var (
		wg        sync.WaitGroup
		logOnce   sync.Once
		semaphore = make(chan struct{}, e.opts.EmailConcurrency)
	)
	for _, userID := range recipients {
		address, ok := addresses[userID]
		if !ok {
			continue
		}
		wg.Add(1)
		semaphore <- struct{}{}
		go func(userID uint, address string) {
			defer wg.Done()
			defer func() { <-semaphore }()
			if err := e.emailer.Send(ctx, "notification", address, payload); err != nil {
				e.metrics.EmailsFailed.Inc()
				logOnce.Do(func() {
					e.log.WithField("id", n.ID).WithField("uid", userID).Errorf("notification email failed: %v", err)
				})
				return
			}
			e.metrics.EmailsSent.Inc()
		}(userID, address)
	}
	wg.Wait()
	e.metrics.NotificationsPushed.WithLabelValues("email").Add(float64(len(recipients)))
}

// emailBody prepares the long body for the email channel: images optionally
// stripped, relative links rewritten to absolute ones.
func (e *Engine) emailBody(n *models.Notification) string {
	body := n.BodyLong
	if body == "" {
		body = n.BodyShort
	}
	if e.opts.StripEmailImages {
		body = imgTagPattern.ReplaceAllString(body, "")
	}
	base := strings.TrimSuffix(e.opts.BaseURL, "/")
	body = strings.ReplaceAll(body, `href="/`, `href="`+base+`/`)
	return body
}

func dedupeIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	result := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id != 0 && !seen[id] {
			seen[id] = true
			result = append(result, id)
		}
	}
	return result
}
