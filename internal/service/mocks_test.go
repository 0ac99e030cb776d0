package service

// In-memory fakes for the store interfaces. They model just enough
// behavior for the orchestrator: sql.ErrNoRows for absent rows, expiry
// timestamps the tests can rewind, and idempotent deletes.

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"github.com/simplestock/backend/internal/config"
	"github.com/simplestock/backend/internal/model"
	"github.com/simplestock/backend/internal/queue"
	"github.com/simplestock/backend/internal/repository"
)

type fakeUsers struct {
	mu   sync.Mutex
	seq  uint64
	rows map[uint64]*model.User
}

func newFakeUsers() *fakeUsers { return &fakeUsers{rows: map[uint64]*model.User{}} }

func (f *fakeUsers) Create(_ context.Context, email, hash, role string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	email = strings.ToLower(email)
	for _, u := range f.rows {
		if u.Email == email {
			return model.User{}, repository.ErrEmailExists
		}
	}
	f.seq++
	u := &model.User{ID: f.seq, Email: email, PasswordHash: hash, Role: role, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	f.rows[u.ID] = u
	return *u, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	email = strings.ToLower(email)
	for _, u := range f.rows {
		if u.Email == email {
			return *u, nil
		}
	}
	return model.User{}, sql.ErrNoRows
}

func (f *fakeUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.rows[id]; ok {
		return *u, nil
	}
	return model.User{}, sql.ErrNoRows
}

func (f *fakeUsers) UpdatePassword(_ context.Context, id uint64, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.rows[id]; ok {
		u.PasswordHash = hash
	}
	return nil
}

func (f *fakeUsers) MarkEmailVerified(_ context.Context, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.rows[id]; ok {
		u.EmailVerified = true
	}
	return nil
}

type refreshRow struct {
	userID    uint64
	expiresAt time.Time
}

type fakeTokens struct {
	mu   sync.Mutex
	rows map[string]refreshRow
}

func newFakeTokens() *fakeTokens { return &fakeTokens{rows: map[string]refreshRow{}} }

func (f *fakeTokens) Store(_ context.Context, userID uint64, token string, ttlDays int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[token] = refreshRow{userID: userID, expiresAt: time.Now().Add(time.Duration(ttlDays) * 24 * time.Hour)}
	return nil
}

func (f *fakeTokens) Find(_ context.Context, token string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[token]
	if !ok || time.Now().After(row.expiresAt) {
		return 0, sql.ErrNoRows
	}
	return row.userID, nil
}

func (f *fakeTokens) Rotate(_ context.Context, oldToken, newToken string, userID uint64, ttlDays int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[oldToken]
	if !ok || row.userID != userID {
		return sql.ErrNoRows
	}
	delete(f.rows, oldToken)
	f.rows[newToken] = refreshRow{userID: userID, expiresAt: time.Now().Add(time.Duration(ttlDays) * 24 * time.Hour)}
	return nil
}

func (f *fakeTokens) Delete(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, token)
	return nil
}

func (f *fakeTokens) DeleteAllForUser(_ context.Context, userID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for tok, row := range f.rows {
		if row.userID == userID {
			delete(f.rows, tok)
		}
	}
	return nil
}

func (f *fakeTokens) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

type otpEntry struct {
	userID    uint64
	code      string
	otpType   string
	expiresAt time.Time
}

type fakeOTPs struct {
	mu   sync.Mutex
	rows []otpEntry
}

func newFakeOTPs() *fakeOTPs { return &fakeOTPs{} }

func (f *fakeOTPs) Store(_ context.Context, userID uint64, code, otpType string, ttlMin int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, otpEntry{userID: userID, code: code, otpType: otpType,
		expiresAt: time.Now().Add(time.Duration(ttlMin) * time.Minute)})
	return nil
}

func (f *fakeOTPs) FindLatest(_ context.Context, userID uint64, otpType string) (repository.OTPRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.rows) - 1; i >= 0; i-- {
		e := f.rows[i]
		if e.userID == userID && e.otpType == otpType {
			return repository.OTPRow{ID: uint64(i + 1), Token: e.code, ExpiresAt: e.expiresAt}, nil
		}
	}
	return repository.OTPRow{}, sql.ErrNoRows
}

func (f *fakeOTPs) Delete(_ context.Context, userID uint64, otpType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.rows[:0]
	for _, e := range f.rows {
		if e.userID != userID || e.otpType != otpType {
			kept = append(kept, e)
		}
	}
	f.rows = kept
	return nil
}

// setExpiry rewinds or advances the latest code for (user, type).
func (f *fakeOTPs) setExpiry(userID uint64, otpType string, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.rows) - 1; i >= 0; i-- {
		if f.rows[i].userID == userID && f.rows[i].otpType == otpType {
			f.rows[i].expiresAt = at
			return
		}
	}
}

type linkRow struct {
	email     string
	expiresAt time.Time
}

type fakeLinks struct {
	mu   sync.Mutex
	rows map[string]linkRow
}

func newFakeLinks() *fakeLinks { return &fakeLinks{rows: map[string]linkRow{}} }

func (f *fakeLinks) Store(_ context.Context, email, token string, ttlMin int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[token] = linkRow{email: email, expiresAt: time.Now().Add(time.Duration(ttlMin) * time.Minute)}
	return nil
}

func (f *fakeLinks) Find(_ context.Context, token string) (repository.MagicLinkRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[token]
	if !ok {
		return repository.MagicLinkRow{}, sql.ErrNoRows
	}
	return repository.MagicLinkRow{Email: row.email, Token: token, ExpiresAt: row.expiresAt}, nil
}

func (f *fakeLinks) Delete(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, token)
	return nil
}

func (f *fakeLinks) setExpiry(token string, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if row, ok := f.rows[token]; ok {
		row.expiresAt = at
		f.rows[token] = row
	}
}

func (f *fakeLinks) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

type verificationRow struct {
	userID    uint64
	expiresAt time.Time
}

type fakeVerifications struct {
	mu   sync.Mutex
	rows map[string]verificationRow
}

func newFakeVerifications() *fakeVerifications {
	return &fakeVerifications{rows: map[string]verificationRow{}}
}

func (f *fakeVerifications) Store(_ context.Context, userID uint64, token string, ttlHours int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[token] = verificationRow{userID: userID, expiresAt: time.Now().Add(time.Duration(ttlHours) * time.Hour)}
	return nil
}

func (f *fakeVerifications) Find(_ context.Context, token string) (repository.VerificationTokenRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[token]
	if !ok {
		return repository.VerificationTokenRow{}, sql.ErrNoRows
	}
	return repository.VerificationTokenRow{UserID: row.userID, Token: token, ExpiresAt: row.expiresAt}, nil
}

func (f *fakeVerifications) Delete(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, token)
	return nil
}

func (f *fakeVerifications) tokensFor(userID uint64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for tok, row := range f.rows {
		if row.userID == userID {
			out = append(out, tok)
		}
	}
	return out
}

type resetRow struct {
	userID    uint64
	expiresAt time.Time
	used      bool
}

type fakeResets struct {
	mu   sync.Mutex
	rows map[string]resetRow
}

func newFakeResets() *fakeResets { return &fakeResets{rows: map[string]resetRow{}} }

func (f *fakeResets) Store(_ context.Context, userID uint64, token string, ttlMin int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[token] = resetRow{userID: userID, expiresAt: time.Now().Add(time.Duration(ttlMin) * time.Minute)}
	return nil
}

func (f *fakeResets) FindValid(_ context.Context, token string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[token]
	if !ok || row.used || time.Now().After(row.expiresAt) {
		return 0, sql.ErrNoRows
	}
	return row.userID, nil
}

func (f *fakeResets) MarkUsed(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if row, ok := f.rows[token]; ok {
		row.used = true
		f.rows[token] = row
	}
	return nil
}

type logEntry struct {
	userID  uint64
	action  string
	status  string
	ip      string
	ua      string
	details map[string]any
}

type fakeLogs struct {
	mu      sync.Mutex
	entries []logEntry
	err     error // returned by Insert when set
}

func newFakeLogs() *fakeLogs { return &fakeLogs{} }

func (f *fakeLogs) Insert(_ context.Context, userID uint64, action, status, ip, ua string, details map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, logEntry{userID: userID, action: action, status: status, ip: ip, ua: ua, details: details})
	return nil
}

func (f *fakeLogs) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.entries))
	for i, e := range f.entries {
		out[i] = e.action
	}
	return out
}

type fakeMail struct {
	mu     sync.Mutex
	events []queue.MailEvent
	err    error // returned by Publish when set
}

func newFakeMail() *fakeMail { return &fakeMail{} }

func (f *fakeMail) Publish(_ context.Context, ev queue.MailEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeMail) last() (queue.MailEvent, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.events) == 0 {
		return queue.MailEvent{}, false
	}
	return f.events[len(f.events)-1], true
}

func (f *fakeMail) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

// testEnv bundles a service with all its fakes.
type testEnv struct {
	svc           *AuthService
	users         *fakeUsers
	tokens        *fakeTokens
	otps          *fakeOTPs
	links         *fakeLinks
	verifications *fakeVerifications
	resets        *fakeResets
	logs          *fakeLogs
	mail          *fakeMail
}

func testConfig() config.Config {
	return config.Config{
		Env:             "test",
		JWTSecret:       "service-test-secret",
		AccessTTLMin:    15,
		RefreshTTLDays:  7,
		MagicLinkTTLMin: 60,
		OTPTTLMin:       15,
		VerifyTTLHours:  24,
		ResetTTLMin:     60,
		BcryptCost:      10,
		FrontendURL:     "http://localhost:3000",
	}
}

func newTestEnv() *testEnv {
	env := &testEnv{
		users:         newFakeUsers(),
		tokens:        newFakeTokens(),
		otps:          newFakeOTPs(),
		links:         newFakeLinks(),
		verifications: newFakeVerifications(),
		resets:        newFakeResets(),
		logs:          newFakeLogs(),
		mail:          newFakeMail(),
	}
	env.svc = &AuthService{
		Cfg:           testConfig(),
		Users:         env.users,
		Tokens:        env.tokens,
		OTPs:          env.otps,
		Links:         env.links,
		Verifications: env.verifications,
		Resets:        env.resets,
		Logs:          env.logs,
		Mail:          env.mail,
	}
	return env
}
