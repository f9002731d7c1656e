package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/UnendingLoop/Dehazer/internal/model"
	"github.com/wb-go/wbf/retry"
)

// MOCK STORAGE

type mockStorage struct {
	downloadFn     func(ctx context.Context, key string) ([]byte, error)
	uploadFn       func(ctx context.Context, key string, data []byte, opts model.UploadOptions) error
	publicURLFn    func(key string) (string, error)
	listBucketsFn  func(ctx context.Context) ([]string, error)
	createBucketFn func(ctx context.Context, name string, opts model.BucketOptions) error
	setPublicFn    func(ctx context.Context, name string) error
}

func (m *mockStorage) Download(ctx context.Context, key string) ([]byte, error) {
	return m.downloadFn(ctx, key)
}

func (m *mockStorage) Upload(ctx context.Context, key string, data []byte, opts model.UploadOptions) error {
	return m.uploadFn(ctx, key, data, opts)
}

func (m *mockStorage) PublicURL(key string) (string, error) {
	return m.publicURLFn(key)
}

func (m *mockStorage) ListBuckets(ctx context.Context) ([]string, error) {
	return m.listBucketsFn(ctx)
}

func (m *mockStorage) CreateBucket(ctx context.Context, name string, opts model.BucketOptions) error {
	return m.createBucketFn(ctx, name, opts)
}

func (m *mockStorage) SetPublicRead(ctx context.Context, name string) error {
	if m.setPublicFn == nil {
		return nil
	}
	return m.setPublicFn(ctx, name)
}

// MOCK FETCHER

type mockFetcher struct {
	fetchFn func(ctx context.Context, rawURL string) ([]byte, error)
}

func (m *mockFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	return m.fetchFn(ctx, rawURL)
}

// MOCK PUBLISHER

type mockPublisher struct {
	sendFn func(ctx context.Context, s retry.Strategy, key []byte, v []byte) error
}

func (m *mockPublisher) SendWithRetry(ctx context.Context, s retry.Strategy, key []byte, v []byte) error {
	return m.sendFn(ctx, s, key, v)
}

// MOCK PROCESSOR

type mockProcessor struct {
	processFn func(ctx context.Context, data []byte) ([]byte, error)
}

func (m *mockProcessor) Name() string { return "mock" }

func (m *mockProcessor) Process(ctx context.Context, data []byte) ([]byte, error) {
	return m.processFn(ctx, data)
}

// IN-MEMORY STORE для сценарных тестов

type memStore struct {
	mu           sync.Mutex
	buckets      map[string]bool
	objects      map[string][]byte
	contentTypes map[string]string
	listCalls    int
	createCalls  int
	publicCalls  int
}

func newMemStore(bucketExists bool, objects map[string][]byte) *memStore {
	s := &memStore{buckets: map[string]bool{}, objects: map[string][]byte{}, contentTypes: map[string]string{}}
	if bucketExists {
		s.buckets["images"] = true
	}
	for k, v := range objects {
		s.objects[k] = v
	}
	return s
}

func (s *memStore) Download(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", model.ErrObjectNotFound, key)
	}
	return data, nil
}

func (s *memStore) Upload(ctx context.Context, key string, data []byte, opts model.UploadOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.buckets["images"]; !ok {
		return fmt.Errorf("%w: %q", model.ErrBucketMissing, "images")
	}
	if _, ok := s.objects[key]; ok && !opts.Upsert {
		return fmt.Errorf("%w: %q", model.ErrObjectExists, key)
	}
	s.objects[key] = data
	s.contentTypes[key] = opts.ContentType
	return nil
}

func (s *memStore) PublicURL(key string) (string, error) {
	return "http://localhost:9000/images/" + key, nil
}

func (s *memStore) ListBuckets(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	res := make([]string, 0, len(s.buckets))
	for b := range s.buckets {
		res = append(res, b)
	}
	return res, nil
}

func (s *memStore) CreateBucket(ctx context.Context, name string, opts model.BucketOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createCalls++
	s.buckets[name] = opts.Public
	return nil
}

func (s *memStore) SetPublicRead(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publicCalls++
	s.buckets[name] = true
	return nil
}
