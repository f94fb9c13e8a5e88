package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bottle-tracking-backend/internal/model"
)

func TestPages_Gate(t *testing.T) {
	fs := newFakeStore()
	r := newTestRouter(t, fs, nil)

	testCases := []struct {
		path         string
		user         *model.User
		wantStatus   int
		wantLocation string
	}{
		{"/producer", nil, http.StatusFound, "/login?next=%2Fproducer"},
		{"/tracking", nil, http.StatusFound, "/login?next=%2Ftracking"},
		{"/admin", &producerUser, http.StatusFound, "/home"},
		{"/producer/recycled-batches", &consumerUser, http.StatusFound, "/home"},
		{"/recycler/waste-bottles", &producerUser, http.StatusFound, "/home"},
		{"/producer", &producerUser, http.StatusOK, ""},
		{"/consumer", &consumerUser, http.StatusOK, ""},
		{"/recycler/waste-bottles", &recyclerUser, http.StatusOK, ""},
		{"/tracking", &consumerUser, http.StatusOK, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			w := do(t, r, http.MethodGet, tc.path, "", tc.user)
			assert.Equal(t, tc.wantStatus, w.Code)
			assert.Equal(t, tc.wantLocation, w.Header().Get("Location"))
		})
	}
}

func TestPages_ProducerListsOwnBottles(t *testing.T) {
	fs := newFakeStore()
	fs.owners[1] = model.Owner{ID: 1, BottleIndex: 1, Account: "0xprod", Type: model.OwnerTypeProducer}
	fs.owners[2] = model.Owner{ID: 2, BottleIndex: 2, Account: "0xcons", Type: model.OwnerTypeConsumer}
	r := newTestRouter(t, fs, nil)

	w := do(t, r, http.MethodGet, "/producer", "", &producerUser)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data bottlesPage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "0xprod", body.Data.Account)
	require.Len(t, body.Data.Bottles, 1)
	assert.Equal(t, int64(1), body.Data.Bottles[0].BottleIndex)
}

func TestPages_HomeListsReachablePages(t *testing.T) {
	r := newTestRouter(t, newFakeStore(), nil)

	w := do(t, r, http.MethodGet, "/home", "", &consumerUser)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data homePage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Consumidor", body.Data.RoleLabel)

	var paths []string
	for _, p := range body.Data.Pages {
		paths = append(paths, p.Path)
	}
	assert.Equal(t, []string{"/consumer", "/home", "/profile", "/tracking"}, paths)
}

func TestPages_WasteBottlesCountsWatchers(t *testing.T) {
	fs := newFakeStore()
	fs.owners[4] = model.Owner{ID: 1, BottleIndex: 4, Account: "0xrecy", Type: model.OwnerTypeRecycler}
	fs.watchers = []model.Watcher{{ID: 1, UserID: 2, BottleIndex: 4}, {ID: 2, UserID: 3, BottleIndex: 4}}
	r := newTestRouter(t, fs, nil)

	w := do(t, r, http.MethodGet, "/recycler/waste-bottles", "", &recyclerUser)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"watchers":2`)
}

func TestPages_Login(t *testing.T) {
	r := newTestRouter(t, newFakeStore(), nil)

	w := do(t, r, http.MethodGet, "/login?next=/producer", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `{"label":"Productor secundario","value":3}`)
	assert.Contains(t, w.Body.String(), `"next":"/producer"`)

	w = do(t, r, http.MethodGet, "/login?next=/producer", "", &producerUser)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/producer", w.Header().Get("Location"))

	w = do(t, r, http.MethodGet, "/login?next=//evil.example.com", "", &producerUser)
	assert.Equal(t, "/home", w.Header().Get("Location"))
}
