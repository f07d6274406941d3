// Package memory is an in-process credential store for single-replica
// deployments and tests. One mutex makes every composite operation atomic.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/shandysiswandi/estatebite/internal/credential/entity"
	"github.com/shandysiswandi/estatebite/internal/pkg/goerror"
)

type Store struct {
	mu          sync.Mutex
	subjects    map[int64]entity.Subject
	credentials map[int64]entity.Credential
}

func NewStore(subjects ...entity.Subject) *Store {
	s := &Store{
		subjects:    make(map[int64]entity.Subject, len(subjects)),
		credentials: make(map[int64]entity.Credential),
	}
	for _, sub := range subjects {
		s.subjects[sub.ID] = sub
	}
	return s
}

// PutSubject registers or replaces a subject.
func (s *Store) PutSubject(sub entity.Subject) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.subjects[sub.ID] = sub
}

func (s *Store) GetSubject(_ context.Context, id int64) (*entity.Subject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subjects[id]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	return &sub, nil
}

func (s *Store) FindActive(_ context.Context, subjectID int64, purpose entity.Purpose, now time.Time) (*entity.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest *entity.Credential
	for _, c := range s.credentials {
		if c.SubjectID != subjectID || c.Purpose != purpose || !c.IsActive(now) {
			continue
		}
		if latest == nil || c.CreatedAt.After(latest.CreatedAt) {
			latest = &c
		}
	}
	if latest == nil {
		return nil, goerror.ErrNotFound
	}
	return latest, nil
}

func (s *Store) FindValid(_ context.Context, subjectID int64, codeHash string, purpose entity.Purpose, now time.Time) (*entity.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.credentials {
		if c.SubjectID == subjectID && c.Purpose == purpose && c.CodeHash == codeHash && c.IsActive(now) {
			return &c, nil
		}
	}
	return nil, goerror.ErrNotFound
}

func (s *Store) ReplaceActive(_ context.Context, cred entity.Credential) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subjects[cred.SubjectID]; !ok {
		return 0, goerror.ErrNotFound
	}
	if _, ok := s.credentials[cred.ID]; ok {
		return 0, goerror.ErrConflict
	}

	var revoked int64
	for id, c := range s.credentials {
		if c.SubjectID == cred.SubjectID && c.Purpose == cred.Purpose && !c.Revoked {
			c.Revoked = true
			s.credentials[id] = c
			revoked++
		}
	}
	s.credentials[cred.ID] = cred

	return revoked, nil
}

func (s *Store) ConsumeIfValid(_ context.Context, id int64, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.credentials[id]
	if !ok || !c.IsActive(now) {
		return false, nil
	}
	c.Revoked = true
	s.credentials[id] = c

	return true, nil
}

func (s *Store) RevokeActive(_ context.Context, subjectID int64, purpose *entity.Purpose) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for id, c := range s.credentials {
		if c.SubjectID != subjectID || c.Revoked {
			continue
		}
		if purpose != nil && c.Purpose != *purpose {
			continue
		}
		c.Revoked = true
		s.credentials[id] = c
		count++
	}
	return count, nil
}

func (s *Store) Revoke(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.credentials[id]
	if !ok {
		return goerror.ErrNotFound
	}
	c.Revoked = true
	s.credentials[id] = c

	return nil
}

func (s *Store) DeleteExpiredOrRevoked(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for id, c := range s.credentials {
		if c.IsActive(now) {
			continue
		}
		delete(s.credentials, id)
		count++
	}
	return count, nil
}
