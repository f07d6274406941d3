package storage

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"maps"
	"net/url"
	"strings"
	"sync"
	"time"
)

// MemoryOptions configures the in-process store.
type MemoryOptions struct {
	// BaseURL prefixes the fake presigned URLs. Defaults to "memory://".
	BaseURL string
}

// Memory keeps objects in a map. Presigned URLs are never served.
type Memory struct {
	mu      sync.RWMutex
	baseURL string
	objects map[string]memoryObject
}

type memoryObject struct {
	data []byte
	info ObjectInfo
}

func NewMemory(opts MemoryOptions) *Memory {
	base := opts.BaseURL
	if base == "" {
		base = "memory://"
	}
	return &Memory{baseURL: strings.TrimSuffix(base, "/"), objects: make(map[string]memoryObject)}
}

func (m *Memory) PutObject(ctx context.Context, bucket, key string, r io.Reader, opts PutOptions) (ObjectInfo, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return ObjectInfo{}, err
	}
	if err := ctx.Err(); err != nil {
		return ObjectInfo{}, err
	}

	sum := md5.Sum(buf.Bytes())
	info := ObjectInfo{
		Bucket:      bucket,
		Key:         key,
		Size:        int64(buf.Len()),
		ETag:        hex.EncodeToString(sum[:]),
		ContentType: opts.ContentType,
		Metadata:    maps.Clone(opts.Metadata),
	}

	m.mu.Lock()
	m.objects[bucket+"/"+key] = memoryObject{data: buf.Bytes(), info: info}
	m.mu.Unlock()

	return info, nil
}

func (m *Memory) DeleteObject(_ context.Context, bucket, key string) error {
	m.mu.Lock()
	delete(m.objects, bucket+"/"+key)
	m.mu.Unlock()

	return nil
}

func (m *Memory) PresignPut(_ context.Context, bucket, key string, _ PutOptions, expiry time.Duration) (string, error) {
	return fmt.Sprintf("%s/%s/%s?expires=%d", m.baseURL, url.PathEscape(bucket), key, int64(expiry.Seconds())), nil
}

// Object returns a copy of a stored object's body and info.
func (m *Memory) Object(bucket, key string) ([]byte, ObjectInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[bucket+"/"+key]
	if !ok {
		return nil, ObjectInfo{}, false
	}
	return bytes.Clone(obj.data), obj.info, true
}

// Len reports the number of stored objects.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.objects)
}

func (m *Memory) Close() error {
	return nil
}
