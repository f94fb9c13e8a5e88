package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bottle-tracking-backend/internal/auth"
	"bottle-tracking-backend/internal/model"
	"bottle-tracking-backend/internal/mw"
	"bottle-tracking-backend/internal/response"
)

// viewLoader builds the data for a page once the gate has let the caller through.
type viewLoader func(h *Handler, c *gin.Context, s auth.Session) (any, error)

// Page is a gated route. An empty Roles list admits any logged-in user.
type Page struct {
	Path  string
	Roles []string
	load  viewLoader
}

// Pages lists the role-specific views in route order. It is filled in init
// because homeView reads Pages, which would otherwise be an initialization cycle.
var Pages []Page

func init() {
	Pages = []Page{
		{Path: "/admin", Roles: []string{model.RoleAdmin}, load: adminView},
		{Path: "/consumer", Roles: []string{model.RoleConsumer}, load: ownedView(model.OwnerTypeConsumer)},
		{Path: "/home", load: homeView},
		{Path: "/producer", Roles: []string{model.RoleProducer}, load: ownedView(model.OwnerTypeProducer)},
		{Path: "/producer/recycled-batches", Roles: []string{model.RoleProducer}, load: recycledBatchesView},
		{Path: "/profile", load: profileView},
		{Path: "/recycler", Roles: []string{model.RoleRecycler}, load: ownedView(model.OwnerTypeRecycler)},
		{Path: "/recycler/waste-bottles", Roles: []string{model.RoleRecycler}, load: wasteBottlesView},
		{Path: "/secondary-producer", Roles: []string{model.RoleSecondaryProducer}, load: ownedView(model.OwnerTypeSecondaryProducer)},
		{Path: "/tracking", load: trackingView},
	}
}

// RegisterPages mounts every page behind its gate, plus the public login view.
func (h *Handler) RegisterPages(r gin.IRoutes) {
	for _, p := range Pages {
		r.GET(p.Path, mw.Gate(h.auth.LoginPath, h.auth.UnauthorizedPath, p.Roles...), h.render(p.load))
	}
	r.GET(h.auth.LoginPath, h.loginView)
}

func (h *Handler) render(load viewLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, _ := mw.SessionFrom(c)
		view, err := load(h, c, s)
		if err != nil {
			h.writeError(c, err)
			return
		}
		response.JSON(c, http.StatusOK, view)
	}
}

type pageLink struct {
	Path string `json:"path"`
}

type homePage struct {
	User      *auth.SessionUser `json:"user"`
	RoleLabel string            `json:"roleLabel"`
	Pages     []pageLink        `json:"pages"`
}

func homeView(h *Handler, c *gin.Context, s auth.Session) (any, error) {
	label, _ := model.RoleLabel(s.User.RoleID)
	links := []pageLink{}
	for _, p := range Pages {
		if auth.Decide(s, p.Roles...) == auth.DecisionRender {
			links = append(links, pageLink{Path: p.Path})
		}
	}
	return homePage{User: s.User, RoleLabel: label, Pages: links}, nil
}

func profileView(h *Handler, c *gin.Context, s auth.Session) (any, error) {
	user, err := h.store.GetUser(c.Request.Context(), s.User.ID)
	if err != nil {
		return nil, err
	}
	return newUserResponse(*user), nil
}

type adminPage struct {
	Users []userResponse `json:"users"`
	Roles []model.Role   `json:"roles"`
}

func adminView(h *Handler, c *gin.Context, s auth.Session) (any, error) {
	ctx := c.Request.Context()
	users, err := h.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	roles, err := h.store.ListRoles(ctx)
	if err != nil {
		return nil, err
	}
	page := adminPage{Users: make([]userResponse, len(users)), Roles: roles}
	for i, u := range users {
		page.Users[i] = newUserResponse(u)
	}
	return page, nil
}

type bottlesPage struct {
	Account string        `json:"account"`
	Bottles []model.Owner `json:"bottles"`
}

// ownedView lists the bottles the caller's account holds as ownerType.
func ownedView(ownerType string) viewLoader {
	return func(h *Handler, c *gin.Context, s auth.Session) (any, error) {
		page := bottlesPage{Account: s.User.Account, Bottles: []model.Owner{}}
		if s.User.Account == "" {
			return page, nil
		}
		owned, err := h.store.OwnedBottles(c.Request.Context(), s.User.Account, ownerType)
		if err != nil {
			return nil, err
		}
		page.Bottles = owned
		return page, nil
	}
}

func recycledBatchesView(h *Handler, c *gin.Context, s auth.Session) (any, error) {
	page := bottlesPage{Account: s.User.Account, Bottles: []model.Owner{}}
	if s.User.Account == "" {
		return page, nil
	}
	recycled, err := h.store.RecycledBottles(c.Request.Context(), s.User.Account)
	if err != nil {
		return nil, err
	}
	page.Bottles = recycled
	return page, nil
}

type wasteBottle struct {
	model.Owner
	Watchers int `json:"watchers"`
}

type wasteBottlesPage struct {
	Account string        `json:"account"`
	Bottles []wasteBottle `json:"bottles"`
}

func wasteBottlesView(h *Handler, c *gin.Context, s auth.Session) (any, error) {
	page := wasteBottlesPage{Account: s.User.Account, Bottles: []wasteBottle{}}
	if s.User.Account == "" {
		return page, nil
	}
	ctx := c.Request.Context()
	owned, err := h.store.OwnedBottles(ctx, s.User.Account, model.OwnerTypeRecycler)
	if err != nil {
		return nil, err
	}
	for _, o := range owned {
		watchers, err := h.store.Watchers(ctx, o.BottleIndex)
		if err != nil {
			return nil, err
		}
		page.Bottles = append(page.Bottles, wasteBottle{Owner: o, Watchers: len(watchers)})
	}
	return page, nil
}

type trackingPage struct {
	Watching []watchedBottle `json:"watching"`
}

func trackingView(h *Handler, c *gin.Context, s auth.Session) (any, error) {
	watched, err := h.watchedBottles(c, s.User.ID)
	if err != nil {
		return nil, err
	}
	return trackingPage{Watching: watched}, nil
}

type loginPage struct {
	Roles []model.RoleOption `json:"roles"`
	Next  string             `json:"next,omitempty"`
}

// loginView is public. Logged-in callers are sent on to their next page.
func (h *Handler) loginView(c *gin.Context) {
	next := c.Query("next")
	if s, _ := mw.SessionFrom(c); s.IsLoggedIn {
		if next == "" || next[0] != '/' || (len(next) > 1 && next[1] == '/') {
			next = "/home"
		}
		c.Redirect(http.StatusFound, next)
		return
	}
	response.JSON(c, http.StatusOK, loginPage{Roles: model.RoleOptions(), Next: next})
}
