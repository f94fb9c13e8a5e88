package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bottle-tracking-backend/config"
	"bottle-tracking-backend/internal/auth"
	"bottle-tracking-backend/internal/errs"
	"bottle-tracking-backend/internal/model"
	"bottle-tracking-backend/internal/store"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeStore keeps owners and watchers in memory. Methods the handlers under
// test do not call fall through to the nil embedded Store.
type fakeStore struct {
	store.Store

	owners    map[int64]model.Owner
	watchers  []model.Watcher
	users     map[int64]model.User
	transfers []store.Transfer
	subs      map[string]model.PushSubscription
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		owners: map[int64]model.Owner{},
		users:  map[int64]model.User{},
		subs:   map[string]model.PushSubscription{},
	}
}

func (f *fakeStore) CurrentOwner(ctx context.Context, idx int64) (*model.Owner, error) {
	o, ok := f.owners[idx]
	if !ok {
		return nil, fmt.Errorf("owner of bottle %d: %w", idx, errs.ErrNotFound)
	}
	return &o, nil
}

func (f *fakeStore) CurrentOwners(ctx context.Context, idxs []int64) (map[int64]model.Owner, error) {
	out := map[int64]model.Owner{}
	for _, i := range idxs {
		if o, ok := f.owners[i]; ok {
			out[i] = o
		}
	}
	return out, nil
}

func (f *fakeStore) OwnedBottles(ctx context.Context, account, ownerType string) ([]model.Owner, error) {
	var out []model.Owner
	for _, o := range f.owners {
		if o.Account == account && (ownerType == "" || o.Type == ownerType) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeStore) TransferOwnership(ctx context.Context, t store.Transfer) (*store.TransferResult, error) {
	if err := model.Validate(&model.Owner{BottleIndex: t.BottleIndex, Account: t.Account, Type: t.Type}); err != nil {
		return nil, err
	}
	f.transfers = append(f.transfers, t)
	res := &store.TransferResult{}
	if prev, ok := f.owners[t.BottleIndex]; ok {
		res.Previous = &prev
		if prev.Account == t.Account && prev.Type == t.Type {
			res.Owner = prev
			return res, nil
		}
	}
	res.Owner = model.Owner{ID: int64(len(f.transfers)), BottleIndex: t.BottleIndex, Account: t.Account, Type: t.Type}
	res.Changed = true
	f.owners[t.BottleIndex] = res.Owner
	return res, nil
}

func (f *fakeStore) Watch(ctx context.Context, userID, idx int64) (*model.Watcher, error) {
	for _, w := range f.watchers {
		if w.UserID == userID && w.BottleIndex == idx {
			return &w, nil
		}
	}
	w := model.Watcher{ID: int64(len(f.watchers) + 1), UserID: userID, BottleIndex: idx}
	f.watchers = append(f.watchers, w)
	return &w, nil
}

func (f *fakeStore) Unwatch(ctx context.Context, userID, idx int64) error {
	for i, w := range f.watchers {
		if w.UserID == userID && w.BottleIndex == idx {
			f.watchers = append(f.watchers[:i], f.watchers[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("watcher: %w", errs.ErrNotFound)
}

func (f *fakeStore) WatchedBottles(ctx context.Context, userID int64) ([]model.Watcher, error) {
	out := []model.Watcher{}
	for _, w := range f.watchers {
		if w.UserID == userID {
			out = append(out, w)
		}
	}
	return out, nil
}

func (f *fakeStore) Watchers(ctx context.Context, idx int64) ([]model.Watcher, error) {
	out := []model.Watcher{}
	for _, w := range f.watchers {
		if w.BottleIndex == idx {
			out = append(out, w)
		}
	}
	return out, nil
}

func (f *fakeStore) GetUser(ctx context.Context, id int64) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, errs.ErrNotFound)
	}
	return &u, nil
}

func (f *fakeStore) PutSubscription(ctx context.Context, sub *model.PushSubscription) error {
	if existing, ok := f.subs[sub.Endpoint]; ok && existing.UserID != sub.UserID {
		return fmt.Errorf("subscription endpoint belongs to another user: %w", errs.ErrAlreadyExists)
	}
	f.subs[sub.Endpoint] = *sub
	return nil
}

func (f *fakeStore) GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error) {
	sub, ok := f.subs[endpoint]
	if !ok {
		return nil, fmt.Errorf("subscription: %w", errs.ErrNotFound)
	}
	return &sub, nil
}

type recordingDispatcher struct {
	mu      sync.Mutex
	indexes []int64
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, idx int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.indexes = append(d.indexes, idx)
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: 8080, RateLimitPerSec: 1000, RateLimitBurst: 1000, CacheTTLSeconds: 60},
		Auth: config.AuthConfig{
			JWTSecret:        testSecret,
			TokenTTL:         time.Hour,
			CookieName:       "session",
			LoginPath:        "/login",
			UnauthorizedPath: "/home",
		},
	}
}

func newTestRouter(t *testing.T, s store.Store, d Dispatcher) *gin.Engine {
	t.Helper()
	cfg := testConfig()
	h := NewHandler(s, cfg.Auth, nil, d, zap.NewNop())
	r, _ := NewRouter(h, cfg, zap.NewNop())
	return r
}

func tokenFor(t *testing.T, u model.User) string {
	t.Helper()
	tok, err := auth.GenerateToken(testSecret, time.Hour, u)
	require.NoError(t, err)
	return tok
}

// do sends a request, authenticated as u when u is not nil.
func do(t *testing.T, r http.Handler, method, path, body string, u *model.User) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if u != nil {
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, *u))
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

var (
	adminUser    = model.User{ID: 1, Name: "Admin", Email: "admin@example.com", RoleID: model.RoleIDAdmin}
	producerUser = model.User{ID: 2, Name: "Pia", Email: "pia@example.com", RoleID: model.RoleIDProducer, Account: "0xprod"}
	consumerUser = model.User{ID: 3, Name: "Cai", Email: "cai@example.com", RoleID: model.RoleIDConsumer, Account: "0xcons"}
	recyclerUser = model.User{ID: 4, Name: "Rui", Email: "rui@example.com", RoleID: model.RoleIDRecycler, Account: "0xrecy"}
)
