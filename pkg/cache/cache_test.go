package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playmix/playmix/pkg/model"
	"github.com/playmix/playmix/pkg/provider"
	"github.com/playmix/playmix/pkg/queue"
	"github.com/playmix/playmix/pkg/store"
)

var testCtx = context.Background()

// memStorage is a map-backed store.Storage for tests.
type memStorage struct {
	mu   sync.Mutex
	data map[string][]byte
}

var _ store.Storage = (*memStorage)(nil)

func newMemStorage() *memStorage {
	return &memStorage{data: map[string][]byte{}}
}

func (m *memStorage) Close() error          { return nil }
func (m *memStorage) Version() (int, error) { return store.CurrentVersion, nil }

func (m *memStorage) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	value, ok := m.data[key]
	if !ok {
		return nil, model.ErrNotFound
	}
	return value, nil
}

func (m *memStorage) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[key] = value
	return nil
}

func (m *memStorage) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
	return nil
}

func (m *memStorage) WalkKeys(_ context.Context, prefix string, cb func(key string) error) error {
	m.mu.Lock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	m.mu.Unlock()

	for _, k := range keys {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			if err := cb(k); err != nil {
				return err
			}
		}
	}
	return nil
}

// stubClient is a scripted provider.Client.
type stubClient struct {
	mu       sync.Mutex
	items    map[string][]provider.RawItem
	uploads  map[string]string
	failures int
	calls    int
	block    chan struct{}
}

var _ provider.Client = (*stubClient)(nil)

func (s *stubClient) ListItems(_ context.Context, listID string) ([]provider.RawItem, error) {
	s.mu.Lock()
	s.calls++
	block := s.block
	fail := s.failures > 0
	if fail {
		s.failures--
	}
	s.mu.Unlock()

	if block != nil {
		<-block
	}

	if fail {
		return nil, model.ErrQuotaExceeded
	}

	return s.items[listID], nil
}

func (s *stubClient) ResolveChannelListID(_ context.Context, channelID string) (string, error) {
	listID, ok := s.uploads[channelID]
	if !ok {
		return "", model.ErrNotFound
	}
	return listID, nil
}

func (s *stubClient) ValidateListID(_ context.Context, listID string) (string, error) {
	return "list " + listID, nil
}

func (s *stubClient) ValidateChannelID(_ context.Context, channelID string) (string, error) {
	return "channel " + channelID, nil
}

func (s *stubClient) ValidateChannelHandle(_ context.Context, handle string) (string, string, error) {
	return "UC" + handle, handle, nil
}

func (s *stubClient) listCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func testStore(now time.Time) *Store {
	s := NewStore(newMemStorage())
	s.now = func() time.Time { return now }
	s.jitter = func() time.Duration { return 0 }
	return s
}

func at(minutes int64) int64 {
	return minutes * 60000
}

func rawAt(id string, minutes int64) provider.RawItem {
	return provider.RawItem{ID: id, PublishedAt: time.Unix(0, at(minutes)*int64(time.Millisecond))}
}

func TestStoreReadMissing(t *testing.T) {
	s := testStore(time.Now())

	entry, err := s.Read(testCtx, "items/playlist/none")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestStoreWriteRead(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := testStore(now)

	items := []model.Item{
		{ID: "b", PublishedAt: at(200)},
		{ID: "a", PublishedAt: at(100)},
	}

	key := Key("PL1", model.KindPlaylist)
	require.NoError(t, s.Write(testCtx, key, items))

	entry, err := s.Read(testCtx, key)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, items, entry.Items)
	assert.Equal(t, now.UnixNano()/int64(time.Millisecond), entry.WrittenAt.UnixNano()/int64(time.Millisecond))
}

func TestStoreReadMalformedIsMiss(t *testing.T) {
	s := testStore(time.Now())

	require.NoError(t, s.storage.Set(testCtx, "k", []byte("not json")))
	entry, err := s.Read(testCtx, "k")
	require.NoError(t, err)
	assert.Nil(t, entry)

	// Valid envelope, bad codec payload
	require.NoError(t, s.storage.Set(testCtx, "k", []byte(`{"encodedItems":"garbage","writtenAt":1}`)))
	entry, err = s.Read(testCtx, "k")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestStaleTTLBoundary(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := testStore(now)

	small := make([]model.Item, largeListThreshold)
	large := make([]model.Item, largeListThreshold+1)

	sevenHours := &Entry{Items: small, WrittenAt: now.Add(-7 * time.Hour)}
	assert.True(t, s.Stale(sevenHours), "1000 items use the 6h TTL")

	sevenHoursLarge := &Entry{Items: large, WrittenAt: now.Add(-7 * time.Hour)}
	assert.False(t, s.Stale(sevenHoursLarge), "1001 items use the 24h TTL")

	dayOld := &Entry{Items: large, WrittenAt: now.Add(-25 * time.Hour)}
	assert.True(t, s.Stale(dayOld))

	fresh := &Entry{Items: small, WrittenAt: now.Add(-time.Hour)}
	assert.False(t, s.Stale(fresh))
}

func TestFetcherFiltersAndSorts(t *testing.T) {
	client := &stubClient{
		items: map[string][]provider.RawItem{
			"PL1": {
				rawAt("old", 100),
				{ID: "live", PublishedAt: time.Unix(0, at(400)*int64(time.Millisecond)), Status: provider.StatusLive},
				rawAt("new", 300),
				{ID: "soon", PublishedAt: time.Unix(0, at(500)*int64(time.Millisecond)), Status: provider.StatusUpcoming},
				rawAt("mid", 200),
			},
		},
	}

	f := NewFetcher(client, queue.NewSerializer())

	items, err := f.Fetch(testCtx, "PL1", model.KindPlaylist)
	require.NoError(t, err)

	assert.Equal(t, []model.Item{
		{ID: "new", PublishedAt: at(300)},
		{ID: "mid", PublishedAt: at(200)},
		{ID: "old", PublishedAt: at(100)},
	}, items)
}

func TestFetcherResolvesChannel(t *testing.T) {
	client := &stubClient{
		items:   map[string][]provider.RawItem{"UU1": {rawAt("v", 100)}},
		uploads: map[string]string{"UC1": "UU1"},
	}

	f := NewFetcher(client, queue.NewSerializer())

	items, err := f.Fetch(testCtx, "UC1", model.KindChannel)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "v", items[0].ID)
}

func TestFetcherChannelResolutionFails(t *testing.T) {
	client := &stubClient{uploads: map[string]string{}}

	f := NewFetcher(client, queue.NewSerializer())

	_, err := f.Fetch(testCtx, "UC404", model.KindChannel)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestFetcherRetries(t *testing.T) {
	client := &stubClient{
		items:    map[string][]provider.RawItem{"PL1": {rawAt("v", 100)}},
		failures: maxFetchAttempts - 1,
	}

	f := NewFetcher(client, queue.NewSerializer())

	items, err := f.Fetch(testCtx, "PL1", model.KindPlaylist)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, maxFetchAttempts, client.listCalls())
}

func TestFetcherExhaustsRetries(t *testing.T) {
	client := &stubClient{
		items:    map[string][]provider.RawItem{"PL1": {rawAt("v", 100)}},
		failures: maxFetchAttempts,
	}

	f := NewFetcher(client, queue.NewSerializer())

	_, err := f.Fetch(testCtx, "PL1", model.KindPlaylist)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrQuotaExceeded)
	assert.Equal(t, maxFetchAttempts, client.listCalls())
}

func testCoordinator(client provider.Client, now time.Time) *Coordinator {
	s := testStore(now)
	return NewCoordinator(s, NewFetcher(client, queue.NewSerializer()))
}

func TestCoordinatorMissFetchesSync(t *testing.T) {
	client := &stubClient{
		items: map[string][]provider.RawItem{"PL1": {rawAt("v", 100)}},
	}

	c := testCoordinator(client, time.Now())

	items, err := c.Get(testCtx, "PL1", model.KindPlaylist)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	// Persisted: a second read does not hit the provider.
	_, err = c.Get(testCtx, "PL1", model.KindPlaylist)
	require.NoError(t, err)
	assert.Equal(t, 1, client.listCalls())
}

func TestCoordinatorMissFetchFails(t *testing.T) {
	client := &stubClient{
		items:    map[string][]provider.RawItem{"PL1": {rawAt("v", 100)}},
		failures: maxFetchAttempts,
	}

	c := testCoordinator(client, time.Now())

	_, err := c.Get(testCtx, "PL1", model.KindPlaylist)
	assert.Error(t, err)
}

func TestCoordinatorStaleServesAndRefreshes(t *testing.T) {
	client := &stubClient{
		items: map[string][]provider.RawItem{"PL1": {rawAt("new", 200), rawAt("old", 100)}},
	}

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := testCoordinator(client, now)

	// Seed a stale entry by hand.
	key := Key("PL1", model.KindPlaylist)
	c.store.now = func() time.Time { return now.Add(-7 * time.Hour) }
	require.NoError(t, c.store.Write(testCtx, key, []model.Item{{ID: "old", PublishedAt: at(100)}}))
	c.store.now = func() time.Time { return now }

	items, err := c.Get(testCtx, "PL1", model.KindPlaylist)
	require.NoError(t, err)
	assert.Equal(t, []model.Item{{ID: "old", PublishedAt: at(100)}}, items, "stale data is served immediately")

	c.Wait()

	entry, err := c.store.Read(testCtx, key)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Len(t, entry.Items, 2, "background refresh persisted fresh data")
}

func TestCoordinatorSingleFlight(t *testing.T) {
	block := make(chan struct{})
	client := &stubClient{
		items: map[string][]provider.RawItem{"PL1": {rawAt("v", 100)}},
		block: block,
	}

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := testCoordinator(client, now)

	key := Key("PL1", model.KindPlaylist)
	c.store.now = func() time.Time { return now.Add(-7 * time.Hour) }
	require.NoError(t, c.store.Write(testCtx, key, []model.Item{{ID: "old", PublishedAt: at(100)}}))
	c.store.now = func() time.Time { return now }

	// Both reads see a stale entry, only one refresh may start.
	_, err := c.Get(testCtx, "PL1", model.KindPlaylist)
	require.NoError(t, err)
	_, err = c.Get(testCtx, "PL1", model.KindPlaylist)
	require.NoError(t, err)

	close(block)
	c.Wait()

	assert.Equal(t, 1, client.listCalls())
}

func TestCoordinatorRefreshFailureKeepsStale(t *testing.T) {
	client := &stubClient{
		items:    map[string][]provider.RawItem{"PL1": {rawAt("new", 200)}},
		failures: maxFetchAttempts,
	}

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := testCoordinator(client, now)

	key := Key("PL1", model.KindPlaylist)
	stale := []model.Item{{ID: "old", PublishedAt: at(100)}}
	c.store.now = func() time.Time { return now.Add(-7 * time.Hour) }
	require.NoError(t, c.store.Write(testCtx, key, stale))
	c.store.now = func() time.Time { return now }

	items, err := c.Get(testCtx, "PL1", model.KindPlaylist)
	require.NoError(t, err, "refresh failure never reaches the caller")
	assert.Equal(t, stale, items)

	c.Wait()

	// The in-flight flag was cleared, the next stale read tries again.
	_, err = c.Get(testCtx, "PL1", model.KindPlaylist)
	require.NoError(t, err)
	c.Wait()

	entry, err := c.store.Read(testCtx, key)
	require.NoError(t, err)
	assert.Len(t, entry.Items, 1)
	assert.Equal(t, "new", entry.Items[0].ID, "second refresh succeeded")
}

func TestCoordinatorRemove(t *testing.T) {
	client := &stubClient{
		items: map[string][]provider.RawItem{"PL1": {rawAt("v", 100)}},
	}

	c := testCoordinator(client, time.Now())

	_, err := c.Get(testCtx, "PL1", model.KindPlaylist)
	require.NoError(t, err)

	require.NoError(t, c.Remove(testCtx, "PL1", model.KindPlaylist))

	entry, err := c.store.Read(testCtx, Key("PL1", model.KindPlaylist))
	require.NoError(t, err)
	assert.Nil(t, entry)
}
