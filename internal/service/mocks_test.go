package service

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pathconvert/pathconvert/internal/catalog"
	"github.com/pathconvert/pathconvert/internal/models"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	return log
}

// mockEmbedder returns configured embeddings.
type mockEmbedder struct {
	mu    sync.Mutex
	calls int

	model    string
	generate func(ctx context.Context, text string) ([]float32, error)
}

func (m *mockEmbedder) Generate(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	return m.generate(ctx, text)
}

func (m *mockEmbedder) Model() string { return m.model }

func (m *mockEmbedder) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockCollectionStore covers every collection-side interface.
type mockCollectionStore struct {
	mu    sync.Mutex
	calls []string

	getCollection         func(ctx context.Context, shopID, id uuid.UUID) (*models.Collection, error)
	getCollectionByHandle func(ctx context.Context, shopID uuid.UUID, handle string) (*models.Collection, error)
	listEmbeddable        func(ctx context.Context, shopID uuid.UUID) ([]models.Collection, error)
	upsertCollection      func(ctx context.Context, shopID uuid.UUID, u models.CollectionUpsert) (models.UpsertOutcome, error)
	disableMissing        func(ctx context.Context, shopID uuid.UUID, present []string) (int, error)
	listCollections       func(ctx context.Context, shopID uuid.UUID) ([]models.CollectionSummary, error)
	setEnabled            func(ctx context.Context, shopID uuid.UUID, ids []uuid.UUID, enabled bool) (int, error)
}

func (m *mockCollectionStore) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
}

func (m *mockCollectionStore) GetCollection(ctx context.Context, shopID, id uuid.UUID) (*models.Collection, error) {
	m.record("GetCollection")
	return m.getCollection(ctx, shopID, id)
}

func (m *mockCollectionStore) GetCollectionByHandle(ctx context.Context, shopID uuid.UUID, handle string) (*models.Collection, error) {
	m.record("GetCollectionByHandle")
	return m.getCollectionByHandle(ctx, shopID, handle)
}

func (m *mockCollectionStore) ListEmbeddable(ctx context.Context, shopID uuid.UUID) ([]models.Collection, error) {
	m.record("ListEmbeddable")
	return m.listEmbeddable(ctx, shopID)
}

func (m *mockCollectionStore) UpsertCollection(ctx context.Context, shopID uuid.UUID, u models.CollectionUpsert) (models.UpsertOutcome, error) {
	m.record("UpsertCollection")
	return m.upsertCollection(ctx, shopID, u)
}

func (m *mockCollectionStore) DisableMissing(ctx context.Context, shopID uuid.UUID, present []string) (int, error) {
	m.record("DisableMissing")
	return m.disableMissing(ctx, shopID, present)
}

func (m *mockCollectionStore) ListCollections(ctx context.Context, shopID uuid.UUID) ([]models.CollectionSummary, error) {
	m.record("ListCollections")
	return m.listCollections(ctx, shopID)
}

func (m *mockCollectionStore) SetEnabled(ctx context.Context, shopID uuid.UUID, ids []uuid.UUID, enabled bool) (int, error) {
	m.record("SetEnabled")
	return m.setEnabled(ctx, shopID, ids, enabled)
}

// mockEmbeddingStore records written embeddings.
type mockEmbeddingStore struct {
	mu      sync.Mutex
	written []models.Embedding

	meta   map[uuid.UUID]models.Embedding
	upsert func(e models.Embedding) (models.UpsertOutcome, error)
}

func (m *mockEmbeddingStore) UpsertEmbedding(_ context.Context, _ uuid.UUID, e models.Embedding) (models.UpsertOutcome, error) {
	m.mu.Lock()
	m.written = append(m.written, e)
	m.mu.Unlock()

	if m.upsert != nil {
		return m.upsert(e)
	}

	if _, ok := m.meta[e.CollectionID]; ok {
		return models.OutcomeUpdated, nil
	}

	return models.OutcomeCreated, nil
}

func (m *mockEmbeddingStore) ListEmbeddingMeta(_ context.Context, _ uuid.UUID) (map[uuid.UUID]models.Embedding, error) {
	return m.meta, nil
}

// mockGraphStore serves eligible collections and captures replaced edges.
type mockGraphStore struct {
	mu       sync.Mutex
	replaced [][]models.Edge

	eligible    []models.EligibleCollection
	eligibleErr error
	replaceErr  error
}

func (m *mockGraphStore) ListEligible(_ context.Context, _ uuid.UUID) ([]models.EligibleCollection, error) {
	return m.eligible, m.eligibleErr
}

func (m *mockGraphStore) ReplaceShopEdges(_ context.Context, _ uuid.UUID, edges []models.Edge) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.replaceErr != nil {
		return 0, m.replaceErr
	}

	m.replaced = append(m.replaced, edges)

	return len(edges), nil
}

func (m *mockGraphStore) ListRecommendations(_ context.Context, _, sourceID uuid.UUID) ([]models.RecommendationTarget, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.replaced) == 0 {
		return nil, nil
	}

	var out []models.RecommendationTarget

	for _, e := range m.replaced[len(m.replaced)-1] {
		if e.SourceID == sourceID {
			out = append(out, models.RecommendationTarget{Handle: e.TargetID.String(), Title: "T", Score: e.Score, Rank: e.Rank})
		}
	}

	return out, nil
}

// mockShopStore covers shop, settings, billing and publishing.
type mockShopStore struct {
	mu         sync.Mutex
	bumps      int
	deployed   int
	settingsIn []models.UpdateSettingsRequest

	shop        *models.Shop
	settings    models.Settings
	billing     string
	billingErr  error
	credsErr    error
	publishErr  error
	settingsErr error
}

func (m *mockShopStore) GetShop(_ context.Context, shopID uuid.UUID) (*models.Shop, error) {
	if m.shop == nil {
		return nil, models.ErrShopNotFound
	}

	return m.shop, nil
}

func (m *mockShopStore) GetCredentials(_ context.Context, shopID uuid.UUID) (models.ShopCredentials, error) {
	if m.credsErr != nil {
		return models.ShopCredentials{}, m.credsErr
	}

	return models.ShopCredentials{ShopID: shopID, Domain: "x.myshopify.com", AccessToken: "tok"}, nil
}

func (m *mockShopStore) GetSettings(_ context.Context, _ uuid.UUID) (models.Settings, error) {
	return m.settings, m.settingsErr
}

func (m *mockShopStore) UpdateSettings(_ context.Context, _ uuid.UUID, req models.UpdateSettingsRequest) (models.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settingsIn = append(m.settingsIn, req)
	m.settings = req.Apply(m.settings)

	return m.settings, nil
}

func (m *mockShopStore) GetBillingStatus(_ context.Context, _ uuid.UUID) (string, error) {
	return m.billing, m.billingErr
}

func (m *mockShopStore) BumpCacheVersion(_ context.Context, _ uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.publishErr != nil {
		return 0, m.publishErr
	}

	m.bumps++

	return int64(m.bumps), nil
}

func (m *mockShopStore) MarkDeployed(_ context.Context, _ uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.publishErr != nil {
		return 0, m.publishErr
	}

	m.deployed++

	return int64(m.deployed), nil
}

// mockCatalog returns configured catalog records.
type mockCatalog struct {
	records []catalog.Collection
	err     error
}

func (m *mockCatalog) FetchCollections(_ context.Context, _ models.ShopCredentials) ([]catalog.Collection, error) {
	return m.records, m.err
}

// mockCache is an in-memory RecommendationCache.
type mockCache struct {
	mu     sync.Mutex
	data   map[string][]models.Recommendation
	getErr error
	gets   int
	sets   int
}

func newMockCache() *mockCache {
	return &mockCache{data: make(map[string][]models.Recommendation)}
}

func (m *mockCache) Get(_ context.Context, key string) ([]models.Recommendation, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++

	if m.getErr != nil {
		return nil, false, m.getErr
	}

	recs, ok := m.data[key]

	return recs, ok, nil
}

func (m *mockCache) Set(_ context.Context, key string, recs []models.Recommendation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	m.data[key] = recs

	return nil
}

// mockJobStore is an in-memory job table.
type mockJobStore struct {
	mu       sync.Mutex
	jobs     map[uuid.UUID]*models.Job
	pending  []uuid.UUID
	progress []int
	steps    []string
	created  int
	claimErr error
}

func newMockJobStore() *mockJobStore {
	return &mockJobStore{jobs: make(map[uuid.UUID]*models.Job)}
}

func (m *mockJobStore) CreateJob(_ context.Context, shopID uuid.UUID, jobType models.JobType) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	j := &models.Job{ID: uuid.New(), ShopID: shopID, Type: jobType, Status: models.JobPending}
	m.jobs[j.ID] = j
	m.pending = append(m.pending, j.ID)
	m.created++

	cp := *j

	return &cp, nil
}

func (m *mockJobStore) GetJob(_ context.Context, _, jobID uuid.UUID) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[jobID]
	if !ok {
		return nil, models.ErrJobNotFound
	}

	cp := *j

	return &cp, nil
}

func (m *mockJobStore) LatestJob(_ context.Context, _ uuid.UUID) (*models.Job, error) {
	return nil, models.ErrJobNotFound
}

func (m *mockJobStore) ClaimNext(_ context.Context) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.claimErr != nil {
		return nil, m.claimErr
	}

	if len(m.pending) == 0 {
		return nil, models.ErrNoPendingJob
	}

	id := m.pending[0]
	m.pending = m.pending[1:]

	j := m.jobs[id]
	j.Status = models.JobRunning

	cp := *j

	return &cp, nil
}

func (m *mockJobStore) UpdateProgress(_ context.Context, jobID uuid.UUID, progress int, step string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	j := m.jobs[jobID]
	j.Progress = progress
	j.Step = step
	m.progress = append(m.progress, progress)
	m.steps = append(m.steps, step)

	return nil
}

func (m *mockJobStore) Complete(_ context.Context, jobID uuid.UUID, step string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	j := m.jobs[jobID]
	j.Status = models.JobComplete
	j.Progress = 100
	j.Step = step

	return nil
}

func (m *mockJobStore) Fail(_ context.Context, jobID uuid.UUID, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	j := m.jobs[jobID]
	j.Status = models.JobFailed
	j.Error = message

	return nil
}

func (m *mockJobStore) FailStale(_ context.Context, _ int) (int, error) {
	return 0, nil
}

// stepFuncs adapts plain functions to Syncer, BatchEmbedder and Builder.
type stepFuncs struct {
	sync  func(ctx context.Context, shopID uuid.UUID) (models.SyncResult, error)
	embed func(ctx context.Context, shopID uuid.UUID) (models.EmbeddingResult, error)
	build func(ctx context.Context, shopID uuid.UUID) (models.BuildResult, error)
}

func (s *stepFuncs) SyncCollections(ctx context.Context, shopID uuid.UUID) (models.SyncResult, error) {
	return s.sync(ctx, shopID)
}

func (s *stepFuncs) GenerateAll(ctx context.Context, shopID uuid.UUID) (models.EmbeddingResult, error) {
	return s.embed(ctx, shopID)
}

func (s *stepFuncs) Build(ctx context.Context, shopID uuid.UUID) (models.BuildResult, error) {
	return s.build(ctx, shopID)
}
