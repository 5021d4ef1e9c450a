package service

import (
	"context"
	"slices"
	"sync"
	"time"

	"catalog/collector/internal/domain"
	"catalog/collector/internal/domain/task"
	"catalog/collector/internal/repository"

	"github.com/redis/go-redis/v9"
)

type fakeRepository struct {
	mu sync.Mutex

	rows        []domain.SourceRow
	prices      map[int64][]domain.PriceEntry
	priceErrs   map[int64]error
	memberships map[int64][]domain.CategoryMembership
	nodes       map[int64][]domain.CategoryNode
	paths       map[int64][]domain.PathEntry
	urls        map[int64]string

	filters []repository.SourceRowFilter
	calls   map[string]int
}

func newFakeRepository(rows ...domain.SourceRow) *fakeRepository {
	r := &fakeRepository{
		rows:        rows,
		prices:      map[int64][]domain.PriceEntry{},
		priceErrs:   map[int64]error{},
		memberships: map[int64][]domain.CategoryMembership{},
		nodes:       map[int64][]domain.CategoryNode{100: {{ID: 10, CategoryID: 100, IsRoot: true, IsActive: true}}},
		paths:       map[int64][]domain.PathEntry{10: {{NodeID: 10, Name: "Shoes"}}},
		urls:        map[int64]string{10: "/shoes"},
		calls:       map[string]int{},
	}
	for _, row := range rows {
		r.prices[row.ProductID] = []domain.PriceEntry{{TypeName: "DEFAULT", Amount: 100 * row.AbstractProductID}}
		r.memberships[row.AbstractProductID] = []domain.CategoryMembership{{AbstractProductID: row.AbstractProductID, CategoryID: 100}}
	}
	return r
}

func (r *fakeRepository) count(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[name]++
}

func (r *fakeRepository) Calls(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[name]
}

func (r *fakeRepository) FindSourceRows(_ context.Context, _ int64, filter repository.SourceRowFilter) ([]domain.SourceRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filters = append(r.filters, filter)

	var result []domain.SourceRow
	for _, row := range r.rows {
		if row.AbstractProductID <= filter.AfterID {
			continue
		}
		if len(filter.IDs) > 0 && !slices.Contains(filter.IDs, row.AbstractProductID) {
			continue
		}
		result = append(result, row)
		if filter.Limit > 0 && uint(len(result)) == filter.Limit {
			break
		}
	}
	return result, nil
}

func (r *fakeRepository) FindActivePriceRows(_ context.Context, _, productID int64) ([]domain.PriceEntry, error) {
	r.count("prices")
	if err := r.priceErrs[productID]; err != nil {
		return nil, err
	}
	return r.prices[productID], nil
}

func (r *fakeRepository) FindDefaultPriceTypeName(context.Context) (string, error) {
	return "DEFAULT", nil
}

func (r *fakeRepository) FindAbstractPriceBySku(context.Context, string) (int64, error) {
	return 0, domain.ErrMissingDefaultPrice
}

func (r *fakeRepository) FindActiveCategoryMemberships(_ context.Context, abstractProductID int64) ([]domain.CategoryMembership, error) {
	r.count("memberships")
	return r.memberships[abstractProductID], nil
}

func (r *fakeRepository) FindCategoryNodesForCategory(_ context.Context, categoryID int64) ([]domain.CategoryNode, error) {
	return r.nodes[categoryID], nil
}

func (r *fakeRepository) FindPathForNode(_ context.Context, nodeID, _ int64) ([]domain.PathEntry, error) {
	return r.paths[nodeID], nil
}

func (r *fakeRepository) FindURLForNode(_ context.Context, nodeID int64) (*string, error) {
	url, ok := r.urls[nodeID]
	if !ok {
		return nil, nil
	}
	return &url, nil
}

type fakeSink struct {
	mu      sync.Mutex
	batches [][]domain.OutputDocument
	err     error
}

func (s *fakeSink) Name() string { return "fake" }

func (s *fakeSink) UpsertDocuments(_ context.Context, _ domain.Locale, docs []domain.OutputDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.batches = append(s.batches, docs)
	return nil
}

func (s *fakeSink) WrittenIDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []int64
	for _, batch := range s.batches {
		for _, doc := range batch {
			ids = append(ids, doc.AbstractProductID)
		}
	}
	return ids
}

type ackCall struct {
	stream string
	msgID  string
}

type fakeQueue struct {
	mu      sync.Mutex
	added   []task.Task
	acks    []ackCall
	pending map[string][]redis.XMessage

	// claimable is handed out by AutoClaim; deliveries is what DeliveryCount reports.
	claimable  map[string][]redis.XMessage
	deliveries map[string]int64
}

func (q *fakeQueue) push(stream string, msg *redis.XMessage) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.pending == nil {
		q.pending = map[string][]redis.XMessage{}
	}
	q.pending[stream] = append(q.pending[stream], *msg)
}

func (q *fakeQueue) ackCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.acks)
}

func (q *fakeQueue) AddTask(_ context.Context, t task.Task) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.added = append(q.added, t)
	return "1-0", nil
}

func (q *fakeQueue) GetTask(_ context.Context, _, _, stream string) (*redis.XMessage, error) {
	q.mu.Lock()
	msgs := q.pending[stream]
	if len(msgs) == 0 {
		q.mu.Unlock()
		time.Sleep(time.Millisecond)
		return nil, nil
	}
	q.pending[stream] = msgs[1:]
	q.mu.Unlock()
	return &msgs[0], nil
}

func (q *fakeQueue) AckTask(_ context.Context, stream, _, msgID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.acks = append(q.acks, ackCall{stream: stream, msgID: msgID})
	return nil
}

func (q *fakeQueue) CreateGroup(context.Context, string, string) error { return nil }

func (q *fakeQueue) AutoClaim(_ context.Context, _, _, stream string, _ time.Duration) ([]redis.XMessage, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	msgs := q.claimable[stream]
	delete(q.claimable, stream)
	return msgs, nil
}

func (q *fakeQueue) DeliveryCount(_ context.Context, _, _, msgID string) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.deliveries[msgID], nil
}

func (q *fakeQueue) EnsureStreamsExist(context.Context) error { return nil }

type fakeState struct {
	mu       sync.Mutex
	progress map[int64]int64
	history  []int64
}

func newFakeState() *fakeState {
	return &fakeState{progress: map[int64]int64{}}
}

func (s *fakeState) GetLastCollectedID(_ context.Context, locale domain.Locale) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress[locale.ID], nil
}

func (s *fakeState) SetLastCollectedID(_ context.Context, locale domain.Locale, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress[locale.ID] = id
	s.history = append(s.history, id)
	return nil
}

func (s *fakeState) ClearProgress(_ context.Context, locale domain.Locale) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.progress, locale.ID)
	return nil
}
