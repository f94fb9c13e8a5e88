package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"bottle-tracking-backend/internal/auth"
	"bottle-tracking-backend/internal/errs"
	"bottle-tracking-backend/internal/model"
	"bottle-tracking-backend/internal/mw"
	"bottle-tracking-backend/internal/parse"
	"bottle-tracking-backend/internal/response"
	"bottle-tracking-backend/internal/store"
)

type transferRequest struct {
	Account string `json:"account"`
	Type    string `json:"type"`
}

func bottleIndexParam(c *gin.Context) (int64, bool) {
	idx, err := parse.BottleIndex(c.Param("index"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return 0, false
	}
	return idx, true
}

// GetCurrentOwner handles GET /api/bottles/:index/owner.
func (h *Handler) GetCurrentOwner(c *gin.Context) {
	idx, ok := bottleIndexParam(c)
	if !ok {
		return
	}
	owner, err := h.store.CurrentOwner(c.Request.Context(), idx)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, owner)
}

// GetOwnerHistory handles GET /api/bottles/:index/owners, superseded records
// included. An optional RFC3339 since query drops older records.
func (h *Handler) GetOwnerHistory(c *gin.Context) {
	idx, ok := bottleIndexParam(c)
	if !ok {
		return
	}
	var since time.Time
	if raw := c.Query("since"); raw != "" {
		if err := model.ValidateVar(raw, "datetime=2006-01-02T15:04:05Z07:00"); err != nil {
			h.writeError(c, err)
			return
		}
		since, _ = time.Parse(time.RFC3339, raw)
	}

	owners, err := h.store.OwnerHistory(c.Request.Context(), idx)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if !since.IsZero() {
		kept := owners[:0]
		for _, o := range owners {
			if !o.CreatedAt.Before(since) {
				kept = append(kept, o)
			}
		}
		owners = kept
	}
	response.JSON(c, http.StatusOK, owners)
}

// TransferOwner handles POST /api/bottles/:index/transfer.
func (h *Handler) TransferOwner(c *gin.Context) {
	idx, ok := bottleIndexParam(c)
	if !ok {
		return
	}
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request body")
		return
	}
	t := store.Transfer{BottleIndex: idx, Account: req.Account, Type: req.Type}

	s, _ := mw.SessionFrom(c)
	ctx := c.Request.Context()
	if err := h.authorizeTransfer(ctx, s, t); err != nil {
		h.writeError(c, err)
		return
	}

	res, err := h.store.TransferOwnership(ctx, t)
	if err != nil {
		h.writeError(c, err)
		return
	}

	status := http.StatusOK
	if res.Changed {
		status = http.StatusCreated
		h.logger.Info("ownership transferred",
			zap.Int64("bottle_index", idx),
			zap.String("account", t.Account),
			zap.String("type", t.Type),
			zap.Int64("by_user", s.User.ID))
		if h.dispatcher != nil {
			h.dispatcher.Dispatch(ctx, idx)
		}
	}
	response.JSON(c, status, res.Owner)
}

// holderRoles may hand over bottles they hold.
var holderRoles = []string{model.RoleProducer, model.RoleSecondaryProducer, model.RoleRecycler}

// authorizeTransfer lets admins move any bottle and producers register new
// bottles to themselves. Producer, secondary producer and recycler holders
// hand their bottles to another account, and recyclers collect bottles held
// by consumers. Nobody but an admin relabels a bottle they keep.
func (h *Handler) authorizeTransfer(ctx context.Context, s auth.Session, t store.Transfer) error {
	if s.User == nil {
		return errs.ErrUnauthorized
	}
	if s.User.Role == model.RoleAdmin {
		return nil
	}
	if s.User.Account == "" {
		return fmt.Errorf("caller has no account: %w", errs.ErrForbidden)
	}

	current, err := h.store.CurrentOwner(ctx, t.BottleIndex)
	if errors.Is(err, errs.ErrNotFound) {
		if s.User.Role == model.RoleProducer && t.Account == s.User.Account && t.Type == model.OwnerTypeProducer {
			return nil
		}
		return fmt.Errorf("only producers register new bottles to themselves: %w", errs.ErrForbidden)
	}
	if err != nil {
		return err
	}

	if current.Account == t.Account && current.Type == t.Type {
		// Re-asserting the current owner is a no-op in the store.
		if current.Account == s.User.Account {
			return nil
		}
		return fmt.Errorf("bottle %d is not held by the caller: %w", t.BottleIndex, errs.ErrForbidden)
	}

	switch {
	case current.Account == s.User.Account:
		if !slices.Contains(holderRoles, s.User.Role) {
			return fmt.Errorf("role %s cannot hand over bottles: %w", s.User.Role, errs.ErrForbidden)
		}
		if t.Account == s.User.Account {
			return fmt.Errorf("bottle %d cannot be relabelled by its holder: %w", t.BottleIndex, errs.ErrForbidden)
		}
		return nil
	case s.User.Role == model.RoleRecycler && current.Type == model.OwnerTypeConsumer &&
		t.Account == s.User.Account && t.Type == model.OwnerTypeRecycler:
		return nil
	}
	return fmt.Errorf("bottle %d is not held by the caller: %w", t.BottleIndex, errs.ErrForbidden)
}
