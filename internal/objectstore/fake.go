package objectstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// FakeStore is an in-process Store used by tests for the backup and
// restore pipelines, so they can exercise upload/download/prune logic
// without a live object-store account.
type FakeStore struct {
	mu      sync.Mutex
	objects map[string]fakeObject

	// FailNextPuts, when > 0, makes the next N calls to Put fail with
	// ErrTransient and decrements itself, letting tests exercise retry.
	FailNextPuts int
}

type fakeObject struct {
	data         []byte
	meta         map[string]string
	lastModified time.Time
}

// NewFakeStore returns an empty FakeStore.
func NewFakeStore() *FakeStore {
	return &FakeStore{objects: make(map[string]fakeObject)}
}

func (f *FakeStore) Put(_ context.Context, key string, data []byte, meta Metadata, overwrite bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.FailNextPuts > 0 {
		f.FailNextPuts--
		return ErrTransient
	}

	if !overwrite {
		if _, exists := f.objects[key]; exists {
			return ErrTransient
		}
	}

	cp := make([]byte, len(data))
	copy(cp, data)
	f.objects[key] = fakeObject{data: cp, meta: meta.ToMap(), lastModified: time.Now()}
	return nil
}

func (f *FakeStore) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	obj, ok := f.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(obj.data))
	copy(cp, obj.data)
	return cp, nil
}

func (f *FakeStore) Exists(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok, nil
}

func (f *FakeStore) Head(_ context.Context, key string) (Properties, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	obj, ok := f.objects[key]
	if !ok {
		return Properties{}, ErrNotFound
	}
	return Properties{
		Size:         int64(len(obj.data)),
		LastModified: obj.lastModified,
		Metadata:     obj.meta,
	}, nil
}

func (f *FakeStore) Delete(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.objects[key]; !ok {
		return false, nil
	}
	delete(f.objects, key)
	return true, nil
}

func (f *FakeStore) List(_ context.Context, prefix string, yield func(ObjectInfo) error) error {
	f.mu.Lock()
	keys := make([]string, 0, len(f.objects))
	for k, obj := range f.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
		_ = obj
	}
	sort.Strings(keys)
	snapshot := make(map[string]fakeObject, len(keys))
	for _, k := range keys {
		snapshot[k] = f.objects[k]
	}
	f.mu.Unlock()

	for _, k := range keys {
		obj := snapshot[k]
		if err := yield(ObjectInfo{Key: k, Size: int64(len(obj.data)), LastModified: obj.lastModified}); err != nil {
			return err
		}
	}
	return nil
}

func (f *FakeStore) Prune(ctx context.Context, prefix string, olderThan time.Time) (int, error) {
	removed := 0
	err := f.List(ctx, prefix, func(info ObjectInfo) error {
		if info.LastModified.Before(olderThan) {
			if _, delErr := f.Delete(ctx, info.Key); delErr != nil {
				return delErr
			}
			removed++
		}
		return nil
	})
	return removed, err
}

func (f *FakeStore) Test(context.Context) error {
	return nil
}
