package notifications

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/forumbase/notifyd/internal/models"
	"github.com/forumbase/notifyd/pkg/hooks"
	"github.com/forumbase/notifyd/pkg/logger"
	"github.com/forumbase/notifyd/pkg/metrics"
	"github.com/forumbase/notifyd/pkg/tasks"
	"github.com/prometheus/client_golang/prometheus"
)

// In-memory fakes of the repository interfaces

type fakeRecords struct {
	mu      sync.Mutex
	records map[string]*models.Notification
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{records: make(map[string]*models.Notification)}
}

func (f *fakeRecords) Upsert(_ context.Context, n *models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := *n
	f.records[n.ID] = &stored
	return nil
}

func (f *fakeRecords) GetByID(_ context.Context, id string) (*models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.records[id]
	if !ok {
		return nil, nil
	}
	copied := *n
	return &copied, nil
}

func (f *fakeRecords) GetByIDs(_ context.Context, ids []string) (map[string]*models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make(map[string]*models.Notification, len(ids))
	for _, id := range ids {
		if n, ok := f.records[id]; ok {
			copied := *n
			result[id] = &copied
		}
	}
	return result, nil
}

func (f *fakeRecords) DeleteByIDs(_ context.Context, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		delete(f.records, id)
	}
	return nil
}

func (f *fakeRecords) GetMergeIDs(_ context.Context, ids []string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make(map[string]string)
	for _, id := range ids {
		if n, ok := f.records[id]; ok && n.MergeID != "" {
			result[id] = n.MergeID
		}
	}
	return result, nil
}

type fakeIndexes struct {
	mu     sync.Mutex
	global map[string]int64
	unread map[uint]map[string]int64
	read   map[uint]map[string]int64
}

func newFakeIndexes() *fakeIndexes {
	return &fakeIndexes{
		global: make(map[string]int64),
		unread: make(map[uint]map[string]int64),
		read:   make(map[uint]map[string]int64),
	}
}

func (f *fakeIndexes) bucket(m map[uint]map[string]int64, userID uint) map[string]int64 {
	if m[userID] == nil {
		m[userID] = make(map[string]int64)
	}
	return m[userID]
}

func (f *fakeIndexes) AddToGlobal(_ context.Context, id string, datetime int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.global[id] = datetime
	return nil
}

func (f *fakeIndexes) RemoveFromGlobal(_ context.Context, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		delete(f.global, id)
	}
	return nil
}

func (f *fakeIndexes) FilterExisting(_ context.Context, ids []string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := f.global[id]; ok {
			existing = append(existing, id)
		}
	}
	return existing, nil
}

func (f *fakeIndexes) GlobalOlderThan(_ context.Context, cutoff int64, limit int64) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for id, score := range f.global {
		if score <= cutoff {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return f.global[ids[i]] < f.global[ids[j]] })
	if int64(len(ids)) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (f *fakeIndexes) DeliverToInboxes(_ context.Context, userIDs []uint, id string, datetime int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, userID := range userIDs {
		f.bucket(f.unread, userID)[id] = datetime
		delete(f.bucket(f.read, userID), id)
	}
	return nil
}

func (f *fakeIndexes) TrimInboxes(_ context.Context, userIDs []uint, cutoff int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, userID := range userIDs {
		for _, bucket := range []map[string]int64{f.bucket(f.unread, userID), f.bucket(f.read, userID)} {
			for id, score := range bucket {
				if score <= cutoff {
					delete(bucket, id)
				}
			}
		}
	}
	return nil
}

func (f *fakeIndexes) MoveToRead(_ context.Context, userID uint, ids []string, scores []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, id := range ids {
		delete(f.bucket(f.unread, userID), id)
		f.bucket(f.read, userID)[id] = scores[i]
	}
	return nil
}

func (f *fakeIndexes) MoveToUnread(_ context.Context, userID uint, id string, score int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.bucket(f.read, userID), id)
	f.bucket(f.unread, userID)[id] = score
	return nil
}

func (f *fakeIndexes) sortedDesc(bucket map[string]int64, limit int64) []string {
	ids := make([]string, 0, len(bucket))
	for id := range bucket {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return bucket[ids[i]] > bucket[ids[j]] })
	if limit > 0 && int64(len(ids)) > limit {
		ids = ids[:limit]
	}
	return ids
}

func (f *fakeIndexes) UnreadIDs(_ context.Context, userID uint, limit int64) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sortedDesc(f.bucket(f.unread, userID), limit), nil
}

func (f *fakeIndexes) ReadIDs(_ context.Context, userID uint, limit int64) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sortedDesc(f.bucket(f.read, userID), limit), nil
}

func (f *fakeIndexes) UnreadCount(_ context.Context, userID uint) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.bucket(f.unread, userID))), nil
}

func (f *fakeIndexes) unreadScore(userID uint, id string) (int64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	score, ok := f.bucket(f.unread, userID)[id]
	return score, ok
}

func (f *fakeIndexes) readScore(userID uint, id string) (int64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	score, ok := f.bucket(f.read, userID)[id]
	return score, ok
}

type fakeUsers struct {
	compact map[uint]models.UserCompact
	emails  map[uint]string
	allIDs  []uint
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{
		compact: make(map[uint]models.UserCompact),
		emails:  make(map[uint]string),
	}
}

func (f *fakeUsers) addUser(id uint, username, email string) {
	f.compact[id] = models.UserCompact{ID: id, Username: username, Slug: username, Picture: "/assets/" + username + ".png"}
	f.emails[id] = email
	f.allIDs = append(f.allIDs, id)
}

func (f *fakeUsers) GetUserByID(id uint) (*models.User, error) {
	if c, ok := f.compact[id]; ok {
		return &models.User{ID: c.ID, Username: c.Username, Slug: c.Slug, Email: f.emails[id]}, nil
	}
	return nil, nil
}

func (f *fakeUsers) GetCompactByIDs(ids []uint) (map[uint]models.UserCompact, error) {
	result := make(map[uint]models.UserCompact)
	for _, id := range ids {
		if c, ok := f.compact[id]; ok {
			result[id] = c
		}
	}
	return result, nil
}

func (f *fakeUsers) GetEmailsByIDs(ids []uint) (map[uint]string, error) {
	result := make(map[uint]string)
	for _, id := range ids {
		if email, ok := f.emails[id]; ok {
			result[id] = email
		}
	}
	return result, nil
}

func (f *fakeUsers) ForEachUserBatch(batchSize int, fn func(ids []uint) error) error {
	for start := 0; start < len(f.allIDs); start += batchSize {
		end := start + batchSize
		if end > len(f.allIDs) {
			end = len(f.allIDs)
		}
		if err := fn(f.allIDs[start:end]); err != nil {
			return err
		}
	}
	return nil
}

type fakeSettings struct {
	// userID -> type -> channel; absent means in-app
	prefs map[uint]map[string]string
}

func newFakeSettings() *fakeSettings {
	return &fakeSettings{prefs: make(map[uint]map[string]string)}
}

func (f *fakeSettings) set(userID uint, notifType, channel string) {
	if f.prefs[userID] == nil {
		f.prefs[userID] = make(map[string]string)
	}
	f.prefs[userID][notifType] = channel
}

func (f *fakeSettings) GetChannelPreference(userID uint, notifType string) (string, error) {
	prefs, err := f.GetChannelPreferences([]uint{userID}, notifType)
	if err != nil {
		return "", err
	}
	return prefs[userID], nil
}

func (f *fakeSettings) GetChannelPreferences(userIDs []uint, notifType string) (map[uint]string, error) {
	result := make(map[uint]string, len(userIDs))
	for _, id := range userIDs {
		channel := models.ChannelInApp
		if perType, ok := f.prefs[id]; ok {
			if c, ok := perType[notifType]; ok {
				channel = c
			}
		}
		result[id] = channel
	}
	return result, nil
}

type fakeBlocks struct {
	// userID -> set of actors they have blocked
	blocked map[uint]map[uint]bool
}

func newFakeBlocks() *fakeBlocks {
	return &fakeBlocks{blocked: make(map[uint]map[uint]bool)}
}

func (f *fakeBlocks) block(userID, actorID uint) {
	if f.blocked[userID] == nil {
		f.blocked[userID] = make(map[uint]bool)
	}
	f.blocked[userID][actorID] = true
}

func (f *fakeBlocks) FilterBlocked(actorID uint, userIDs []uint) ([]uint, error) {
	result := make([]uint, 0, len(userIDs))
	for _, id := range userIDs {
		if !f.blocked[id][actorID] {
			result = append(result, id)
		}
	}
	return result, nil
}

type fakeGroups struct {
	members map[string][]uint
}

func newFakeGroups() *fakeGroups {
	return &fakeGroups{members: make(map[string][]uint)}
}

func (f *fakeGroups) GetMemberIDs(name string) ([]uint, error) {
	return f.members[name], nil
}

type sentEmail struct {
	template string
	to       string
	payload  map[string]interface{}
}

type fakeEmailer struct {
	mu   sync.Mutex
	sent []sentEmail
	fail error
}

func (f *fakeEmailer) Send(_ context.Context, template string, to string, payload map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.sent = append(f.sent, sentEmail{template: template, to: to, payload: payload})
	return nil
}

func (f *fakeEmailer) sentTo() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	addresses := make([]string, 0, len(f.sent))
	for _, s := range f.sent {
		addresses = append(addresses, s.to)
	}
	sort.Strings(addresses)
	return addresses
}

type emittedEvent struct {
	userID uint
	event  string
}

type fakeRealtime struct {
	mu     sync.Mutex
	events []emittedEvent
}

func (f *fakeRealtime) EmitToRecipient(_ context.Context, userID uint, event string, _ interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, emittedEvent{userID: userID, event: event})
	return nil
}

// testEngine bundles an engine with its fakes and a controllable clock.
type testEngine struct {
	engine   *Engine
	records  *fakeRecords
	indexes  *fakeIndexes
	users    *fakeUsers
	settings *fakeSettings
	blocks   *fakeBlocks
	groups   *fakeGroups
	emailer  *fakeEmailer
	realtime *fakeRealtime
	bus      *hooks.Bus
	clock    time.Time
}

func newTestEngine() *testEngine {
	te := &testEngine{
		records:  newFakeRecords(),
		indexes:  newFakeIndexes(),
		users:    newFakeUsers(),
		settings: newFakeSettings(),
		blocks:   newFakeBlocks(),
		groups:   newFakeGroups(),
		emailer:  &fakeEmailer{},
		realtime: &fakeRealtime{},
		clock:    time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC),
	}
	te.bus = hooks.NewBus(logger.Discard())

	// run deferred delivery synchronously
	queue := tasks.NewQueue(0, func(_ time.Duration, f func()) { f() })

	te.engine = NewEngine(Deps{
		Records:  te.records,
		Indexes:  te.indexes,
		Users:    te.users,
		Settings: te.settings,
		Blocks:   te.blocks,
		Groups:   te.groups,
		Emailer:  te.emailer,
		Realtime: te.realtime,
		Bus:      te.bus,
		Queue:    queue,
		Metrics:  metrics.New("test", prometheus.NewRegistry()),
		Log:      logger.Discard(),
	}, Options{
		BaseURL:    "https://forum.example.com",
		BatchPause: time.Millisecond,
	})
	te.engine.now = func() time.Time { return te.clock }
	return te
}

// advance moves the fake clock forward.
func (te *testEngine) advance(d time.Duration) {
	te.clock = te.clock.Add(d)
}
