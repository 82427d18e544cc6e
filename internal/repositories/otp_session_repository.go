package repositories

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/zapikart/shopify-mpwa/internal/models"
)

var ErrSessionNotFound = errors.New("otp session not found")

// OtpSessionRepository хранит ожидающие подтверждения сессии по номеру телефона.
// Put всегда перезаписывает: одна активная сессия на телефон.
//
// Lock serializes read-modify-write of one phone's session across every
// process that shares the store. The returned func releases it.
type OtpSessionRepository interface {
	Put(ctx context.Context, s *models.OtpSession) error
	Get(ctx context.Context, phone string) (*models.OtpSession, error)
	Remove(ctx context.Context, phone string) error
	Lock(ctx context.Context, phone string) (unlock func(), err error)
}

// MemoryOtpSessionRepository is process-local: sessions are not visible
// to other instances of the service.
type MemoryOtpSessionRepository struct {
	mu       sync.Mutex
	sessions map[string]models.OtpSession
	locks    *phoneLocks
	now      func() time.Time
}

func NewMemoryOtpSessionRepository() *MemoryOtpSessionRepository {
	return &MemoryOtpSessionRepository{
		sessions: make(map[string]models.OtpSession),
		locks:    newPhoneLocks(),
		now:      time.Now,
	}
}

func (r *MemoryOtpSessionRepository) Put(_ context.Context, s *models.OtpSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.Phone] = *s
	return nil
}

func (r *MemoryOtpSessionRepository) Get(_ context.Context, phone string) (*models.OtpSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[phone]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if s.Expired(r.now()) {
		delete(r.sessions, phone)
		return nil, ErrSessionNotFound
	}
	// copy: callers must not share state with the map
	return &s, nil
}

func (r *MemoryOtpSessionRepository) Remove(_ context.Context, phone string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, phone)
	return nil
}

// Lock is process-local, like the sessions themselves.
func (r *MemoryOtpSessionRepository) Lock(_ context.Context, phone string) (func(), error) {
	return r.locks.Lock(phone), nil
}

// Sweep удаляет просроченные сессии и возвращает их количество.
func (r *MemoryOtpSessionRepository) Sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for phone, s := range r.sessions {
		if s.Expired(now) {
			delete(r.sessions, phone)
			n++
		}
	}
	return n
}

func (r *MemoryOtpSessionRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
