package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aryannaik/pick/internal/candidate"
	"github.com/aryannaik/pick/internal/directory"
	"github.com/aryannaik/pick/internal/draft"
	"github.com/aryannaik/pick/internal/logger"
	"github.com/aryannaik/pick/internal/wiki"
)

type Handlers struct {
	store        *directory.Store
	composer     *draft.Composer
	cacheEnabled bool
	log          logger.Logger
	started      time.Time
}

func NewHandlers(store *directory.Store, composer *draft.Composer, cacheEnabled bool, log logger.Logger) *Handlers {
	return &Handlers{
		store:        store,
		composer:     composer,
		cacheEnabled: cacheEnabled,
		log:          log,
		started:      time.Now(),
	}
}

// statusCode maps domain errors onto HTTP statuses.
func statusCode(err error) int {
	switch {
	case errors.Is(err, directory.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, directory.ErrDuplicateID), errors.Is(err, directory.ErrNoSelection):
		return http.StatusConflict
	case errors.Is(err, draft.ErrNotReady),
		errors.Is(err, draft.ErrNoPage),
		errors.Is(err, draft.ErrHandleIndex),
		errors.Is(err, draft.ErrLastHandleEmpty),
		errors.Is(err, draft.ErrInvalidField),
		errors.Is(err, directory.ErrInvalidRating),
		errors.Is(err, directory.ErrInvalidCandidate),
		errors.Is(err, candidate.ErrUnknownPlatform),
		errors.Is(err, candidate.ErrEncoding):
		return http.StatusUnprocessableEntity
	case errors.Is(err, wiki.ErrNetwork), errors.Is(err, wiki.ErrInvalidResponse), errors.Is(err, wiki.ErrDecode):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (h *Handlers) fail(c *gin.Context, err error) {
	code := statusCode(err)
	if code == http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(code, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type statusResponse struct {
	Candidates   int     `json:"candidates"`
	Pick         *string `json:"pick"`
	UpdatedAt    string  `json:"updatedAt"`
	Snapshot     string  `json:"snapshot"`
	CacheEnabled bool    `json:"cacheEnabled"`
	Uptime       string  `json:"uptime"`
}

func (h *Handlers) HandleStatus(c *gin.Context) {
	updatedAt := h.store.UpdatedAt()
	updatedStr := ""
	if !updatedAt.IsZero() {
		updatedStr = updatedAt.UTC().Format(time.RFC3339)
	}

	c.JSON(http.StatusOK, statusResponse{
		Candidates:   h.store.Len(),
		Pick:         h.pickRef(),
		UpdatedAt:    updatedStr,
		Snapshot:     h.store.Path(),
		CacheEnabled: h.cacheEnabled,
		Uptime:       time.Since(h.started).Round(time.Second).String(),
	})
}

func (h *Handlers) pickRef() *string {
	if id, ok := h.store.Pick(); ok {
		return &id
	}
	return nil
}

func (h *Handlers) HandleListCandidates(c *gin.Context) {
	list := h.store.List()
	c.JSON(http.StatusOK, gin.H{"candidates": list, "total": len(list)})
}

func (h *Handlers) HandleGetCandidate(c *gin.Context) {
	got, err := h.store.Get(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, candidateView(got))
}

// HandleAddCandidate adds a complete candidate supplied by the client. The
// draft endpoints are the usual way to build one.
func (h *Handlers) HandleAddCandidate(c *gin.Context) {
	var in candidate.Candidate
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	in.SocialHandles = candidate.UsableHandles(in.SocialHandles)
	if missing := candidate.Missing(in); len(missing) > 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": draft.ErrNotReady.Error(), "missing": missing})
		return
	}
	added, err := h.store.Add(in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, candidateView(added))
}

func (h *Handlers) HandleRemoveCandidate(c *gin.Context) {
	if err := h.store.Remove(c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type ratingRequest struct {
	Rating int `json:"rate"`
}

func (h *Handlers) HandleRate(c *gin.Context) {
	var req ratingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	got, err := h.store.Rate(c.Param("id"), req.Rating)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, candidateView(got))
}

func (h *Handlers) HandleGetPick(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"pick": h.pickRef()})
}

type pickRequest struct {
	ID     string `json:"id" binding:"required"`
	Toggle bool   `json:"toggle"`
}

func (h *Handlers) HandleSetPick(c *gin.Context) {
	var req pickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	var err error
	if req.Toggle {
		_, err = h.store.TogglePick(req.ID)
	} else {
		err = h.store.SetPick(req.ID)
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pick": h.pickRef()})
}

func (h *Handlers) HandleClearPick(c *gin.Context) {
	h.store.ClearPick()
	c.JSON(http.StatusOK, gin.H{"pick": nil})
}

func (h *Handlers) HandleVote(c *gin.Context) {
	voted, err := h.store.CastVote()
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, candidateView(voted))
}

type standing struct {
	Rank      int    `json:"rank"`
	ID        string `json:"id"`
	Name      string `json:"name"`
	VoteCount int    `json:"votes"`
}

func (h *Handlers) HandleStandings(c *gin.Context) {
	list := h.store.Standings()
	out := make([]standing, len(list))
	for i, cand := range list {
		out[i] = standing{Rank: i + 1, ID: cand.ID, Name: cand.Name, VoteCount: cand.VoteCount}
	}
	c.JSON(http.StatusOK, gin.H{"standings": out})
}

type handleView struct {
	candidate.Handle
	Label string `json:"label"`
	URL   string `json:"url,omitempty"`
}

type candidateResponse struct {
	candidate.Candidate
	Handles []handleView `json:"handles"`
}

// candidateView adds display labels and profile links, including the
// synthesized wikipedia handle.
func candidateView(c candidate.Candidate) candidateResponse {
	handles := c.DisplayHandles()
	views := make([]handleView, 0, len(handles))
	for _, hd := range handles {
		u, err := hd.ProfileURL()
		if err != nil {
			u = ""
		}
		views = append(views, handleView{Handle: hd, Label: hd.Display(), URL: u})
	}
	return candidateResponse{Candidate: c, Handles: views}
}

func (h *Handlers) HandleGetDraft(c *gin.Context) {
	c.JSON(http.StatusOK, h.composer.Status())
}

func (h *Handlers) HandlePatchDraft(c *gin.Context) {
	var p draft.Patch
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.composer.Update(p); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.composer.Status())
}

func (h *Handlers) HandleResetDraft(c *gin.Context) {
	h.composer.Reset()
	c.JSON(http.StatusOK, h.composer.Status())
}

func (h *Handlers) HandleAddHandle(c *gin.Context) {
	if err := h.composer.AddHandle(); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.composer.Status())
}

type handleRequest struct {
	Platform candidate.Platform `json:"platform" binding:"required"`
	Username string             `json:"username"`
}

func handleIndex(c *gin.Context) (int, bool) {
	i, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		badRequest(c, errors.New("invalid handle index"))
		return 0, false
	}
	return i, true
}

func (h *Handlers) HandleSetHandle(c *gin.Context) {
	i, ok := handleIndex(c)
	if !ok {
		return
	}
	var req handleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.composer.SetHandle(i, req.Platform, req.Username); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.composer.Status())
}

func (h *Handlers) HandleRemoveHandle(c *gin.Context) {
	i, ok := handleIndex(c)
	if !ok {
		return
	}
	if err := h.composer.RemoveHandle(i); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.composer.Status())
}

type queryRequest struct {
	Input string `json:"input"`
}

// HandleQuery feeds one input change to the title search and reports whether
// its result was applied.
func (h *Handlers) HandleQuery(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	outcome := h.composer.Search().SetInput(c.Request.Context(), req.Input)
	c.JSON(http.StatusOK, gin.H{"outcome": outcome, "search": h.composer.Search().Snapshot()})
}

type pageRequest struct {
	Title string `json:"title" binding:"required"`
}

func (h *Handlers) HandleComplete(c *gin.Context) {
	var req pageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	outcome := h.composer.Search().Complete(c.Request.Context(), candidate.Page{Title: req.Title})
	c.JSON(http.StatusOK, gin.H{"outcome": outcome, "search": h.composer.Search().Snapshot()})
}

func (h *Handlers) HandleSelect(c *gin.Context) {
	var req pageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	outcome, err := h.composer.Select(c.Request.Context(), candidate.Page{Title: req.Title})
	h.autofillResponse(c, outcome, err)
}

// HandleAutofill retries autofill for the search session's chosen page.
func (h *Handlers) HandleAutofill(c *gin.Context) {
	outcome, err := h.composer.AutofillChosen(c.Request.Context())
	h.autofillResponse(c, outcome, err)
}

func (h *Handlers) autofillResponse(c *gin.Context, outcome draft.Outcome, err error) {
	if err != nil {
		c.JSON(statusCode(err), gin.H{"outcome": outcome, "error": err.Error(), "draft": h.composer.Status()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"outcome": outcome, "draft": h.composer.Status()})
}

func (h *Handlers) HandleSubmit(c *gin.Context) {
	status := h.composer.Status()
	if !status.Ready {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": draft.ErrNotReady.Error(), "missing": status.Missing})
		return
	}
	submitted, err := h.composer.Submit()
	if err != nil {
		h.fail(c, err)
		return
	}
	added, err := h.store.Add(submitted)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.log.Info("Candidate submitted", logger.String("id", added.ID), logger.String("name", added.Name))
	c.JSON(http.StatusCreated, candidateView(added))
}
