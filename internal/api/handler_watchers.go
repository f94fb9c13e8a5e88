package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bottle-tracking-backend/internal/model"
	"bottle-tracking-backend/internal/mw"
	"bottle-tracking-backend/internal/response"
)

type watchedBottle struct {
	model.Watcher
	Owner *model.Owner `json:"owner"`
}

// GetWatchers handles GET /api/bottles/:index/watchers.
func (h *Handler) GetWatchers(c *gin.Context) {
	idx, ok := bottleIndexParam(c)
	if !ok {
		return
	}
	watchers, err := h.store.Watchers(c.Request.Context(), idx)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, watchers)
}

// PutWatch handles PUT /api/bottles/:index/watch.
func (h *Handler) PutWatch(c *gin.Context) {
	idx, ok := bottleIndexParam(c)
	if !ok {
		return
	}
	s, _ := mw.SessionFrom(c)
	watcher, err := h.store.Watch(c.Request.Context(), s.User.ID, idx)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, watcher)
}

// DeleteWatch handles DELETE /api/bottles/:index/watch.
func (h *Handler) DeleteWatch(c *gin.Context) {
	idx, ok := bottleIndexParam(c)
	if !ok {
		return
	}
	s, _ := mw.SessionFrom(c)
	if err := h.store.Unwatch(c.Request.Context(), s.User.ID, idx); err != nil {
		h.writeError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, nil)
}

// GetWatching handles GET /api/watching: the caller's watched bottles with their current owners.
func (h *Handler) GetWatching(c *gin.Context) {
	s, _ := mw.SessionFrom(c)
	watched, err := h.watchedBottles(c, s.User.ID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, watched)
}

func (h *Handler) watchedBottles(c *gin.Context, userID int64) ([]watchedBottle, error) {
	ctx := c.Request.Context()
	watchers, err := h.store.WatchedBottles(ctx, userID)
	if err != nil {
		return nil, err
	}
	indexes := make([]int64, len(watchers))
	for i, w := range watchers {
		indexes[i] = w.BottleIndex
	}
	owners, err := h.store.CurrentOwners(ctx, indexes)
	if err != nil {
		return nil, err
	}

	out := make([]watchedBottle, len(watchers))
	for i, w := range watchers {
		out[i] = watchedBottle{Watcher: w}
		if o, ok := owners[w.BottleIndex]; ok {
			out[i].Owner = &o
		}
	}
	return out, nil
}
