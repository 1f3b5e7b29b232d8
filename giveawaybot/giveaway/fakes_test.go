package giveaway

import (
	"context"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// memStore is an in-memory document store with per-key failure
// injection for exercising the persistence error paths.
type memStore struct {
	mu        sync.Mutex
	docs      map[string][]byte
	saveCount map[string]int
	failSave  map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		docs:      make(map[string][]byte),
		saveCount: make(map[string]int),
		failSave:  make(map[string]error),
	}
}

func (s *memStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.docs[key], nil
}

func (s *memStore) Save(_ context.Context, key string, doc []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failSave[key]; err != nil {
		return err
	}
	s.docs[key] = doc
	s.saveCount[key]++
	return nil
}

func (s *memStore) failSavesOf(key string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failSave[key] = err
}

func (s *memStore) saves(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveCount[key]
}

// fakeAnnouncer records announcements instead of talking to Discord.
type fakeAnnouncer struct {
	mu        sync.Mutex
	created   []string
	updated   []string
	closed    []*HistoryRecord
	createErr error
	messageID snowflake.ID
}

func newFakeAnnouncer() *fakeAnnouncer {
	return &fakeAnnouncer{messageID: snowflake.ID(9000)}
}

func (a *fakeAnnouncer) AnnounceCreated(_ context.Context, g *Giveaway, _ bool) (snowflake.ID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.createErr != nil {
		return 0, a.createErr
	}
	a.created = append(a.created, g.ID)
	return a.messageID, nil
}

func (a *fakeAnnouncer) AnnounceUpdated(_ context.Context, g *Giveaway) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.updated = append(a.updated, g.ID)
	return nil
}

func (a *fakeAnnouncer) AnnounceClosed(_ context.Context, rec *HistoryRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = append(a.closed, rec)
	return nil
}

func (a *fakeAnnouncer) closedRecords() []*HistoryRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]*HistoryRecord(nil), a.closed...)
}

var testNow = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

// newTestManager wires a manager against the in-memory store with a
// fixed clock and a stub end-time parser that accepts any non-empty
// string as one hour from now.
func newTestManager() (*Manager, *memStore, *fakeAnnouncer) {
	store := newMemStore()
	announcer := newFakeAnnouncer()

	parse := func(s string, now time.Time) (time.Time, error) {
		if s == "" {
			return time.Time{}, &ValidationError{Reason: "empty time"}
		}
		return now.Add(time.Hour), nil
	}

	m := NewManager(NewRepository(store), announcer, parse)
	m.now = func() time.Time { return testNow }
	return m, store, announcer
}

func validCreateRequest() CreateRequest {
	return CreateRequest{
		Name:        "Nitro Drop",
		Description: "One month of nitro",
		WinnerCount: 1,
		EndTimeText: "2:30PM",
		CreatedBy:   snowflake.ID(1),
		GuildID:     snowflake.ID(2),
		ChannelID:   snowflake.ID(3),
	}
}
