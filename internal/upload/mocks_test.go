package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

// mockStore registra las llamadas como los mocks de store.
type mockStore struct {
	mu sync.Mutex

	failOn    map[string]error // nombre de archivo -> error
	deleteErr error

	UploadCalls []string
	DeleteCalls []string
}

func newMockStore() *mockStore {
	return &mockStore{failOn: map[string]error{}}
}

func (m *mockStore) Upload(_ context.Context, f File, category Category, onProgress func(int)) (string, error) {
	m.mu.Lock()
	m.UploadCalls = append(m.UploadCalls, f.Name)
	err := m.failOn[f.Name]
	m.mu.Unlock()

	if err != nil {
		return "", err
	}

	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()
	if _, err := io.Copy(io.Discard, NewProgressReader(rc, f.Size, onProgress)); err != nil {
		return "", err
	}
	return fmt.Sprintf("https://files.example.com/%s/%s", category, f.Name), nil
}

func (m *mockStore) Delete(_ context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeleteCalls = append(m.DeleteCalls, url)
	return m.deleteErr
}

var errNetwork = errors.New("connection reset")

func img(name string) File {
	return BytesFile(name, "image/jpeg", []byte("jpeg-bytes-"+name))
}
