package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shandysiswandi/estatebite/internal/credential/entity"
	"github.com/shandysiswandi/estatebite/internal/credential/outbound/memory"
	"github.com/shandysiswandi/estatebite/internal/credential/usecase"
	"github.com/shandysiswandi/estatebite/internal/pkg/hash"
	"github.com/shandysiswandi/estatebite/internal/pkg/idempotency"
	"github.com/shandysiswandi/estatebite/internal/pkg/instrument"
	"github.com/shandysiswandi/estatebite/internal/pkg/otp"
	"github.com/shandysiswandi/estatebite/internal/pkg/ratelimit"
	"github.com/shandysiswandi/estatebite/internal/pkg/uid"
	"github.com/shandysiswandi/estatebite/internal/pkg/validator"
)

const (
	subjectID      int64 = 1001
	otherSubjectID int64 = 1002
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeDispatcher struct {
	mu   sync.Mutex
	sent []usecase.CodeNotification
	err  error
}

func (d *fakeDispatcher) SendCode(_ context.Context, msg usecase.CodeNotification) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, msg)
	return nil
}

func (d *fakeDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sent)
}

// flakyStore wraps the memory store and injects failures per method.
type flakyStore struct {
	*memory.Store

	mu                 sync.Mutex
	getSubjectFailures int
	getSubjectCalls    int
	replaceErr         error
	replaceCalls       int
	findValidErr       error
}

var errStoreDown = errors.New("store down")

func (s *flakyStore) GetSubject(ctx context.Context, id int64) (*entity.Subject, error) {
	s.mu.Lock()
	s.getSubjectCalls++
	fail := s.getSubjectFailures > 0
	if fail {
		s.getSubjectFailures--
	}
	s.mu.Unlock()

	if fail {
		return nil, errStoreDown
	}
	return s.Store.GetSubject(ctx, id)
}

func (s *flakyStore) ReplaceActive(ctx context.Context, cred entity.Credential) (int64, error) {
	s.mu.Lock()
	s.replaceCalls++
	err := s.replaceErr
	s.mu.Unlock()

	if err != nil {
		return 0, err
	}
	return s.Store.ReplaceActive(ctx, cred)
}

func (s *flakyStore) FindValid(ctx context.Context, subjectID int64, codeHash string, purpose entity.Purpose, now time.Time) (*entity.Credential, error) {
	if s.findValidErr != nil {
		return nil, s.findValidErr
	}
	return s.Store.FindValid(ctx, subjectID, codeHash, purpose, now)
}

type fixture struct {
	uc         *usecase.Usecase
	store      *flakyStore
	dispatcher *fakeDispatcher
	clock      *fakeClock
}

type fixtureOption func(*usecase.Dependency)

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	f, err := buildFixture(t, opts...)
	if err != nil {
		t.Fatalf("usecase: %v", err)
	}
	return f
}

func buildFixture(t *testing.T, opts ...fixtureOption) (*fixture, error) {
	t.Helper()

	v, err := validator.New()
	if err != nil {
		t.Fatalf("validator: %v", err)
	}
	h, err := hash.NewHMACSHA256("test-secret", "credential.otp")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	snow, err := uid.NewSnowflakeNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}

	f := &fixture{
		store: &flakyStore{Store: memory.NewStore(
			entity.Subject{ID: subjectID, Email: "buyer@estatebite.test"},
			entity.Subject{ID: otherSubjectID, Email: "agent@estatebite.test"},
		)},
		dispatcher: &fakeDispatcher{},
		clock:      &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)},
	}

	dep := usecase.Dependency{
		Store:      f.store,
		Dispatcher: f.dispatcher,
		Validator:  v,
		Hash:       h,
		Generator:  otp.NewNumeric(),
		UID:        snow,
		Clock:      f.clock,
		Instrument: instrument.NewNoop(),
		Options:    usecase.Options{TTL: 5 * time.Minute, RetryBackoff: time.Millisecond},
	}
	for _, opt := range opts {
		opt(&dep)
	}

	uc, err := usecase.New(dep)
	if err != nil {
		return nil, err
	}
	f.uc = uc

	return f, nil
}

func (f *fixture) issue(t *testing.T, subject int64, purpose entity.Purpose) *usecase.IssueOutput {
	t.Helper()

	out, err := f.uc.Issue(context.Background(), usecase.IssueInput{SubjectID: subject, Purpose: purpose})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return out
}

func (f *fixture) verify(subject int64, code string, purpose entity.Purpose) error {
	_, err := f.uc.Verify(context.Background(), usecase.VerifyInput{SubjectID: subject, Code: code, Purpose: purpose})
	return err
}

func (f *fixture) activeCount(t *testing.T, subject int64, purpose entity.Purpose) int {
	t.Helper()

	n := 0
	for {
		cred, err := f.store.FindActive(context.Background(), subject, purpose, f.clock.Now())
		if err != nil {
			return n
		}
		n++
		if err := f.store.Revoke(context.Background(), cred.ID); err != nil {
			t.Fatalf("revoke: %v", err)
		}
	}
}

type limiterFunc func(ctx context.Context, key, scope string) error

func (f limiterFunc) Allow(ctx context.Context, key, scope string) error { return f(ctx, key, scope) }

type fakeIdempotency struct {
	idempotency.Idempotency
	err   error
	calls int
}

func (f *fakeIdempotency) Exec(ctx context.Context, _ string, fn func(context.Context) error, _ ...idempotency.Option) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	return fn(ctx)
}

var _ ratelimit.Limiter = limiterFunc(nil)
