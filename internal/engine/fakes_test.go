package engine_test

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/crushline/automsg/internal/model"
	"github.com/crushline/automsg/internal/repository"
)

// fakeStore is an in-memory stand-in for all four repositories. The ledger
// map enforces the same uniqueness the database constraint does, under a
// mutex, so concurrency tests exercise the real contract.
type fakeStore struct {
	mu sync.Mutex

	rules  map[int]*model.AutoMessage
	subs   map[subKey]string // (subscriber, creator) -> status
	counts map[subKey]int    // inbound message counts
	ledger map[pair]time.Time
	chats  []*model.ChatMessage
	nextID int

	// resolveIDs, when set for a creator, overrides subscriber enumeration,
	// emulating a snapshot taken before a status change (unsubscribe race).
	resolveIDs map[int][]int

	// failure injection
	resolverErr map[int]error // by creator
	deliverErr  map[pair]error
	dueDelay    time.Duration

	// concurrency accounting for batch-bound tests
	deliverDelay  time.Duration
	inFlight      int32
	maxInFlight   int32
	deliveryCalls int32
}

type subKey struct{ subscriberID, creatorID int }
type pair struct{ autoMessageID, subscriberID int }

func newFakeStore() *fakeStore {
	return &fakeStore{
		rules:       map[int]*model.AutoMessage{},
		subs:        map[subKey]string{},
		counts:      map[subKey]int{},
		ledger:      map[pair]time.Time{},
		resolveIDs:  map[int][]int{},
		resolverErr: map[int]error{},
		deliverErr:  map[pair]error{},
	}
}

func (f *fakeStore) addRule(m *model.AutoMessage) *model.AutoMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	m.ID = f.nextID
	m.Active = true
	f.rules[m.ID] = m
	return m
}

func (f *fakeStore) addSubscriber(subscriberID, creatorID int, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs[subKey{subscriberID, creatorID}] = status
}

func (f *fakeStore) setInboundCount(subscriberID, creatorID, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[subKey{subscriberID, creatorID}] = n
}

func (f *fakeStore) ledgerRows(autoMessageID int) []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := []int{}
	for p := range f.ledger {
		if p.autoMessageID == autoMessageID {
			ids = append(ids, p.subscriberID)
		}
	}
	sort.Ints(ids)
	return ids
}

func (f *fakeStore) chatMessagesFor(autoMessageID int) []*model.ChatMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*model.ChatMessage{}
	for _, c := range f.chats {
		if c.AutoMessageID != nil && *c.AutoMessageID == autoMessageID {
			out = append(out, c)
		}
	}
	return out
}

// --- AutoMessageRepositoryInterface ---

func (f *fakeStore) Create(m *model.AutoMessage) error {
	f.addRule(m)
	return nil
}

func (f *fakeStore) Update(m *model.AutoMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules[m.ID] = m
	return nil
}

func (f *fakeStore) GetByID(id int) (*model.AutoMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.rules[id]
	if !ok {
		return nil, fmt.Errorf("rule %d not found", id)
	}
	cp := *m
	return &cp, nil
}

func (f *fakeStore) List(offset, limit, creatorID int, activeOnly bool) ([]*model.AutoMessage, int, error) {
	return nil, 0, errors.New("not used in engine tests")
}

func (f *fakeStore) Deactivate(id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.rules[id]; ok {
		m.Active = false
	}
	return nil
}

func (f *fakeStore) DueScheduled(now time.Time, window time.Duration) ([]*model.AutoMessage, error) {
	if f.dueDelay > 0 {
		time.Sleep(f.dueDelay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	due := []*model.AutoMessage{}
	for _, m := range f.rules {
		if !m.Active || m.TriggerType != model.TriggerScheduled || m.ScheduledAt == nil {
			continue
		}
		if m.ScheduledAt.After(now) {
			continue
		}
		if window > 0 && now.Sub(*m.ScheduledAt) > window {
			continue
		}
		cp := *m
		due = append(due, &cp)
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ScheduledAt.Before(*due[j].ScheduledAt) })
	return due, nil
}

func (f *fakeStore) MatchingCountRules(creatorID, count, subscriberID int) ([]*model.AutoMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*model.AutoMessage{}
	for _, m := range f.rules {
		if !m.Active || m.CreatorID != creatorID || m.TriggerType != model.TriggerMessageCount {
			continue
		}
		if m.MessageCountN == nil || *m.MessageCountN != count {
			continue
		}
		if _, sent := f.ledger[pair{m.ID, subscriberID}]; sent {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- SubscriptionRepositoryInterface ---

func (f *fakeStore) ActiveSubscriberIDs(creatorID int) ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.resolverErr[creatorID]; err != nil {
		return nil, err
	}
	if ids, ok := f.resolveIDs[creatorID]; ok {
		return append([]int{}, ids...), nil
	}
	ids := []int{}
	for k, status := range f.subs {
		if k.creatorID == creatorID && status == model.SubscriptionActive {
			ids = append(ids, k.subscriberID)
		}
	}
	sort.Ints(ids)
	return ids, nil
}

func (f *fakeStore) IsActive(subscriberID, creatorID int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subs[subKey{subscriberID, creatorID}] == model.SubscriptionActive, nil
}

func (f *fakeStore) InboundMessageCount(subscriberID, creatorID int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[subKey{subscriberID, creatorID}], nil
}

// --- SendLedgerInterface ---

func (f *fakeStore) Insert(autoMessageID, subscriberID int, sentAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := pair{autoMessageID, subscriberID}
	if _, exists := f.ledger[key]; exists {
		return false, nil
	}
	f.ledger[key] = sentAt
	return true, nil
}

func (f *fakeStore) SentSubscriberIDs(autoMessageID int) (map[int]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sent := map[int]bool{}
	for p := range f.ledger {
		if p.autoMessageID == autoMessageID {
			sent[p.subscriberID] = true
		}
	}
	return sent, nil
}

func (f *fakeStore) CountForRule(autoMessageID int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for p := range f.ledger {
		if p.autoMessageID == autoMessageID {
			n++
		}
	}
	return n, nil
}

// --- ChatMessageRepositoryInterface ---

func (f *fakeStore) InsertInbound(msg *model.ChatMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	msg.ID = f.nextID
	msg.Direction = model.DirectionInbound
	f.chats = append(f.chats, msg)
	f.counts[subKey{msg.SubscriberID, msg.CreatorID}]++
	return nil
}

func (f *fakeStore) InsertAutoMessage(rule *model.AutoMessage, subscriberID int) (*model.ChatMessage, error) {
	cur := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		max := atomic.LoadInt32(&f.maxInFlight)
		if cur <= max || atomic.CompareAndSwapInt32(&f.maxInFlight, max, cur) {
			break
		}
	}
	if f.deliverDelay > 0 {
		time.Sleep(f.deliverDelay)
	}
	atomic.AddInt32(&f.deliveryCalls, 1)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.deliverErr[pair{rule.ID, subscriberID}]; err != nil {
		return nil, err
	}
	f.nextID++
	msg := &model.ChatMessage{
		ID:            f.nextID,
		CreatorID:     rule.CreatorID,
		SubscriberID:  subscriberID,
		Direction:     model.DirectionOutbound,
		Body:          rule.Body,
		MediaURL:      rule.MediaURL,
		AutoMessageID: &rule.ID,
		CreatedAt:     time.Now(),
	}
	f.chats = append(f.chats, msg)
	return msg, nil
}

var (
	_ repository.AutoMessageRepositoryInterface  = (*fakeStore)(nil)
	_ repository.SubscriptionRepositoryInterface = (*fakeStore)(nil)
	_ repository.SendLedgerInterface             = (*fakeStore)(nil)
	_ repository.ChatMessageRepositoryInterface  = (*fakeStore)(nil)
)
