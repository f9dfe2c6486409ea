package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"telegram-english-tutor/internal/domain"
	"telegram-english-tutor/internal/domain/model"
	"telegram-english-tutor/internal/domain/ports/adapter"
	"telegram-english-tutor/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// mockTxManager runs the function directly with a nil handle; the in-memory
// repositories ignore Tx anyway.
type mockTxManager struct {
	beginErr error
}

func newMockTxManager() *mockTxManager { return &mockTxManager{} }

func (m *mockTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.beginErr != nil {
		return m.beginErr
	}
	return fn(ctx, repository.NoTX)
}

// memUserRepo is a small in-memory implementation used by unit tests.
type memUserRepo struct {
	mu      sync.RWMutex
	store   map[int64]*model.User
	saveErr error // used by tests to simulate save failures
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{store: make(map[int64]*model.User)}
}

func (m *memUserRepo) seed(u *model.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.store[u.ID] = &cp
}

func (m *memUserRepo) Create(ctx context.Context, _ repository.Tx, u *model.User) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.store[u.ID]; ok {
		existing.Username = u.Username
		return nil
	}
	cp := *u
	m.store[u.ID] = &cp
	return nil
}

func (m *memUserRepo) FindByID(ctx context.Context, _ repository.Tx, id int64) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUserRepo) FindByReferralCode(ctx context.Context, _ repository.Tx, code string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.store {
		if u.ReferralCode != "" && u.ReferralCode == code {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memUserRepo) mutate(id int64, fn func(u *model.User)) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	fn(u)
	return nil
}

func (m *memUserRepo) IncrementMessageCount(ctx context.Context, _ repository.Tx, id int64) error {
	return m.mutate(id, func(u *model.User) { u.MessageCount++ })
}

func (m *memUserRepo) AddBonusMessages(ctx context.Context, _ repository.Tx, id int64, amount int) error {
	return m.mutate(id, func(u *model.User) { u.BonusMessages += amount })
}

func (m *memUserRepo) SetLevel(ctx context.Context, _ repository.Tx, id int64, level model.Level) error {
	return m.mutate(id, func(u *model.User) { u.Level = level })
}

func (m *memUserRepo) MarkOnboardingCompleted(ctx context.Context, _ repository.Tx, id int64) error {
	return m.mutate(id, func(u *model.User) { u.OnboardingCompleted = true })
}

func (m *memUserRepo) SetReferralCode(ctx context.Context, _ repository.Tx, id int64, code string) error {
	return m.mutate(id, func(u *model.User) { u.ReferralCode = code })
}

func (m *memUserRepo) UpdateStreak(ctx context.Context, _ repository.Tx, id int64, streakDays int, lastActiveDate string) error {
	return m.mutate(id, func(u *model.User) {
		u.StreakDays = streakDays
		u.LastActiveDate = lastActiveDate
	})
}

func (m *memUserRepo) SetLastStreakReward(ctx context.Context, _ repository.Tx, id int64, milestone int) error {
	return m.mutate(id, func(u *model.User) { u.LastStreakReward = milestone })
}

func (m *memUserRepo) TouchReferralBonus(ctx context.Context, _ repository.Tx, id int64) error {
	now := time.Now()
	return m.mutate(id, func(u *model.User) { u.LastReferralBonusAt = &now })
}

func (m *memUserRepo) CountUsers(ctx context.Context, _ repository.Tx) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.store), nil
}

func (m *memUserRepo) CountByLevel(ctx context.Context, _ repository.Tx) (map[string]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]int)
	for _, u := range m.store {
		if u.OnboardingCompleted {
			out[string(u.Level)]++
		}
	}
	return out, nil
}

func (m *memUserRepo) AverageMessages(ctx context.Context, _ repository.Tx) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.store) == 0 {
		return 0, nil
	}
	total := 0
	for _, u := range m.store {
		total += u.MessageCount
	}
	return float64(total) / float64(len(m.store)), nil
}

// memSubRepo provides in-memory subscriptions for tests.
type memSubRepo struct {
	mu      sync.RWMutex
	subs    map[int64]time.Time
	saveErr error
}

func newMemSubRepo() *memSubRepo {
	return &memSubRepo{subs: make(map[int64]time.Time)}
}

func (m *memSubRepo) Find(ctx context.Context, _ repository.Tx, userID int64) (*model.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	exp, ok := m.subs[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &model.Subscription{UserID: userID, ExpiresAt: exp}, nil
}

func (m *memSubRepo) Upsert(ctx context.Context, _ repository.Tx, userID int64, expiresAt time.Time) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.subs[userID]; ok && cur.After(expiresAt) {
		return nil
	}
	m.subs[userID] = expiresAt
	return nil
}

func (m *memSubRepo) CountActive(ctx context.Context, _ repository.Tx, now time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cnt := 0
	for _, exp := range m.subs {
		if exp.After(now) {
			cnt++
		}
	}
	return cnt, nil
}

// memConvoRepo keeps per-user turn lists ordered by timestamp.
type memConvoRepo struct {
	mu      sync.RWMutex
	turns   map[int64][]*model.ConversationTurn
	saveErr error
}

func newMemConvoRepo() *memConvoRepo {
	return &memConvoRepo{turns: make(map[int64][]*model.ConversationTurn)}
}

func (m *memConvoRepo) Append(ctx context.Context, _ repository.Tx, turn *model.ConversationTurn) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *turn
	m.turns[turn.UserID] = append(m.turns[turn.UserID], &cp)
	return nil
}

func (m *memConvoRepo) Recent(ctx context.Context, _ repository.Tx, userID int64, limit int) ([]*model.ConversationTurn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rows := make([]*model.ConversationTurn, len(m.turns[userID]))
	copy(rows, m.turns[userID])
	sort.Slice(rows, func(i, j int) bool { return rows[i].Timestamp.Before(rows[j].Timestamp) })
	if len(rows) > limit {
		rows = rows[len(rows)-limit:]
	}
	return rows, nil
}

func (m *memConvoRepo) Reset(ctx context.Context, _ repository.Tx, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.turns, userID)
	return nil
}

// memPaymentRepo enforces the unique external-transaction rule of the real
// ledger.
type memPaymentRepo struct {
	mu      sync.RWMutex
	rows    []*model.Payment
	saveErr error
}

func newMemPaymentRepo() *memPaymentRepo { return &memPaymentRepo{} }

func (m *memPaymentRepo) Save(ctx context.Context, _ repository.Tx, p *model.Payment) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if p.TxID != "" && r.TxID == p.TxID {
			return domain.ErrAlreadyExists
		}
	}
	cp := *p
	m.rows = append(m.rows, &cp)
	return nil
}

func (m *memPaymentRepo) ListByUser(ctx context.Context, _ repository.Tx, userID int64, limit int) ([]*model.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Payment
	for i := len(m.rows) - 1; i >= 0 && len(out) < limit; i-- {
		if m.rows[i].UserID == userID {
			cp := *m.rows[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memProcessedTxRepo struct {
	mu    sync.RWMutex
	seen  map[string]*model.ProcessedTransaction
	txErr error
}

func newMemProcessedTxRepo() *memProcessedTxRepo {
	return &memProcessedTxRepo{seen: make(map[string]*model.ProcessedTransaction)}
}

func (m *memProcessedTxRepo) IsProcessed(ctx context.Context, _ repository.Tx, txHash string) (bool, error) {
	if m.txErr != nil {
		return false, m.txErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.seen[txHash]
	return ok, nil
}

func (m *memProcessedTxRepo) MarkProcessed(ctx context.Context, _ repository.Tx, rec *model.ProcessedTransaction) error {
	if m.txErr != nil {
		return m.txErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.seen[rec.TxHash]; ok {
		return domain.ErrDuplicateTransaction
	}
	cp := *rec
	m.seen[rec.TxHash] = &cp
	return nil
}

// memReferralRepo mirrors the unique-invitee constraint.
type memReferralRepo struct {
	mu      sync.RWMutex
	byInv   map[int64]*model.Referral
	saveErr error
}

func newMemReferralRepo() *memReferralRepo {
	return &memReferralRepo{byInv: make(map[int64]*model.Referral)}
}

func (m *memReferralRepo) Add(ctx context.Context, _ repository.Tx, ref *model.Referral) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byInv[ref.InviteeID]; ok {
		return domain.ErrReferralAlreadyActivated
	}
	cp := *ref
	m.byInv[ref.InviteeID] = &cp
	return nil
}

func (m *memReferralRepo) FindByInvitee(ctx context.Context, _ repository.Tx, inviteeID int64) (*model.Referral, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.byInv[inviteeID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memReferralRepo) CountByInviter(ctx context.Context, _ repository.Tx, inviterID int64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cnt := 0
	for _, r := range m.byInv {
		if r.InviterID == inviterID {
			cnt++
		}
	}
	return cnt, nil
}

// memQuizRepo stores sessions without a TTL; expiry is exercised by
// deleting entries directly.
type memQuizRepo struct {
	mu       sync.RWMutex
	sessions map[int64]*repository.QuizSession
}

func newMemQuizRepo() *memQuizRepo {
	return &memQuizRepo{sessions: make(map[int64]*repository.QuizSession)}
}

func (m *memQuizRepo) SetSession(ctx context.Context, userID int64, s *repository.QuizSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	cp.Questions = append([]repository.QuizQuestion(nil), s.Questions...)
	m.sessions[userID] = &cp
	return nil
}

func (m *memQuizRepo) GetSession(ctx context.Context, userID int64) (*repository.QuizSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	cp.Questions = append([]repository.QuizQuestion(nil), s.Questions...)
	return &cp, nil
}

func (m *memQuizRepo) ClearSession(ctx context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
	return nil
}

// allowAllLimiter lets every message through; denyLimiter rejects all.
type allowAllLimiter struct{}

func (allowAllLimiter) Allow(ctx context.Context, userID int64) (bool, error) { return true, nil }

type denyLimiter struct{}

func (denyLimiter) Allow(ctx context.Context, userID int64) (bool, error) { return false, nil }

// stubModel returns a canned completion or error.
type stubModel struct {
	reply string
	err   error
	// last prompt seen, for assertions on prompt assembly
	lastPrompt string
	lastOpts   adapter.CompletionOptions
}

func (s *stubModel) Complete(ctx context.Context, prompt string, opts adapter.CompletionOptions) (string, error) {
	s.lastPrompt = prompt
	s.lastOpts = opts
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func (s *stubModel) Name() string { return "stub" }

type stubTranscriber struct {
	text string
	err  error
}

func (s *stubTranscriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.text, nil
}
