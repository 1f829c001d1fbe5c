package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/GoArmGo/MarketApp/internal/domain"
	"github.com/GoArmGo/MarketApp/internal/messaging/payloads"
	"github.com/google/uuid"
)

var errBoom = errors.New("boom")

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memPhotoStorage ведет себя как PostgresStorage, включая понижение второй основной фотографии
type memPhotoStorage struct {
	mu     sync.Mutex
	photos map[uuid.UUID]domain.ProfilePhoto
	calls  int
	err    error
}

func newMemPhotoStorage() *memPhotoStorage {
	return &memPhotoStorage{photos: make(map[uuid.UUID]domain.ProfilePhoto)}
}

func (m *memPhotoStorage) hit() error {
	m.calls++
	return m.err
}

func (m *memPhotoStorage) SavePhoto(ctx context.Context, photo *domain.ProfilePhoto) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit(); err != nil {
		return err
	}
	if photo.IsPrimary {
		for _, p := range m.photos {
			if p.UserID == photo.UserID && p.IsPrimary {
				photo.IsPrimary = false
				break
			}
		}
	}
	m.photos[photo.ID] = *photo
	return nil
}

func (m *memPhotoStorage) GetPhotoByID(ctx context.Context, id uuid.UUID) (*domain.ProfilePhoto, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit(); err != nil {
		return nil, err
	}
	p, ok := m.photos[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *memPhotoStorage) ListPhotosByOwner(ctx context.Context, ownerID string) ([]domain.ProfilePhoto, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit(); err != nil {
		return nil, err
	}
	return m.listLocked(ownerID), nil
}

func (m *memPhotoStorage) listLocked(ownerID string) []domain.ProfilePhoto {
	out := []domain.ProfilePhoto{}
	for _, p := range m.photos {
		if p.UserID == ownerID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UploadedAt.After(out[j].UploadedAt)
	})
	return out
}

func (m *memPhotoStorage) CountPhotosByOwner(ctx context.Context, ownerID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit(); err != nil {
		return 0, err
	}
	return len(m.listLocked(ownerID)), nil
}

func (m *memPhotoStorage) SetPrimaryPhoto(ctx context.Context, ownerID string, photoID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit(); err != nil {
		return false, err
	}
	target, ok := m.photos[photoID]
	if !ok || target.UserID != ownerID {
		return false, nil
	}
	for id, p := range m.photos {
		if p.UserID == ownerID {
			p.IsPrimary = id == photoID
			m.photos[id] = p
		}
	}
	return true, nil
}

func (m *memPhotoStorage) UpdateThumbnail(ctx context.Context, id uuid.UUID, thumbnailURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit(); err != nil {
		return err
	}
	p := m.photos[id]
	p.ThumbnailURL = thumbnailURL
	m.photos[id] = p
	return nil
}

func (m *memPhotoStorage) DeletePhoto(ctx context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit(); err != nil {
		return false, err
	}
	_, ok := m.photos[id]
	delete(m.photos, id)
	return ok, nil
}

// put кладет запись в обход проверок (для подготовки "битых" состояний)
func (m *memPhotoStorage) put(p domain.ProfilePhoto) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.photos[p.ID] = p
}

func (m *memPhotoStorage) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type memFileStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	uploads []string
	err     error
}

func newMemFileStorage() *memFileStorage {
	return &memFileStorage{objects: make(map[string][]byte)}
}

func (f *memFileStorage) UploadFile(ctx context.Context, key string, reader io.Reader, contentType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, key)
	if f.err != nil {
		return "", f.err
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	f.objects[key] = data
	return "http://blob.local/bucket/" + key, nil
}

func (f *memFileStorage) GetFile(ctx context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *memFileStorage) uploadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.uploads)
}

type fakeImages struct {
	thumbErr error
}

func (fakeImages) EncodeJPEG(data []byte, quality int) ([]byte, error) {
	return data, nil
}

func (f fakeImages) Thumbnail(data []byte, size int) ([]byte, error) {
	if f.thumbErr != nil {
		return nil, f.thumbErr
	}
	return []byte("thumb"), nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []payloads.PhotoEventPayload
	err    error
}

func (p *recordingPublisher) PublishPhotoEvent(ctx context.Context, payload payloads.PhotoEventPayload) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, payload)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fakeCapture struct {
	payload domain.Payload
	err     error
	stopped int
}

func (c *fakeCapture) Capture(ctx context.Context) (domain.Payload, error) {
	return c.payload, c.err
}

func (c *fakeCapture) Stop() error {
	c.stopped++
	return nil
}

type memUserStorage struct {
	mu    sync.Mutex
	users map[string]domain.User
	err   error
}

func newMemUserStorage(users ...domain.User) *memUserStorage {
	m := &memUserStorage{users: make(map[string]domain.User)}
	for _, u := range users {
		m.users[u.UID] = u
	}
	return m
}

func (m *memUserStorage) GetUser(ctx context.Context, uid string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[uid]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (m *memUserStorage) CreateUser(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.users[user.UID]; !ok {
		m.users[user.UID] = *user
	}
	return nil
}

func (m *memUserStorage) UpdateUser(ctx context.Context, uid string, update domain.ProfileUpdate) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[uid]
	if !ok {
		return nil, nil
	}
	blankToNil := func(s *string) *string {
		if *s == "" {
			return nil
		}
		return s
	}
	if update.DisplayName != nil {
		u.DisplayName = blankToNil(update.DisplayName)
	}
	if update.PhoneNumber != nil {
		u.PhoneNumber = blankToNil(update.PhoneNumber)
	}
	if update.Location != nil {
		u.Location = blankToNil(update.Location)
	}
	if update.IsProvider != nil {
		u.IsProvider = update.IsProvider
	}
	if update.IsClient != nil {
		u.IsClient = update.IsClient
	}
	m.users[uid] = u
	return &u, nil
}

func (m *memUserStorage) ListProviders(ctx context.Context) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.User
	for _, u := range m.users {
		if u.Provider() {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out, nil
}

type memServiceStorage struct {
	mu       sync.Mutex
	services []domain.Service
	err      error
}

func (m *memServiceStorage) CreateService(ctx context.Context, service *domain.Service) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.services = append(m.services, *service)
	return nil
}

func (m *memServiceStorage) ListServicesByProvider(ctx context.Context, providerID string) ([]domain.Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := []domain.Service{}
	for i := len(m.services) - 1; i >= 0; i-- {
		if m.services[i].ProviderID == providerID {
			out = append(out, m.services[i])
		}
	}
	return out, nil
}

func (m *memServiceStorage) ListActiveServices(ctx context.Context) ([]domain.Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := []domain.Service{}
	for i := len(m.services) - 1; i >= 0; i-- {
		if m.services[i].IsActive {
			out = append(out, m.services[i])
		}
	}
	return out, nil
}
