package api

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"

	"github.com/from2future/poker-tracker/internal/importer"
	"github.com/from2future/poker-tracker/internal/ledger"
	"github.com/from2future/poker-tracker/internal/state"
	"github.com/from2future/poker-tracker/internal/store"
	"github.com/from2future/poker-tracker/pkg/format"
)

// Players

func (a *API) listPlayers(c *gin.Context) {
	c.JSON(http.StatusOK, a.state.Players())
}

func (a *API) createPlayer(c *gin.Context) {
	var req playerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.fail(c, badRequest("invalid body"))
		return
	}
	p, err := a.state.AddPlayer(c.Request.Context(), req.Name)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (a *API) renamePlayer(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		a.fail(c, state.ErrPlayerNotFound)
		return
	}
	var req playerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.fail(c, badRequest("invalid body"))
		return
	}
	if err := a.state.RenamePlayer(c.Request.Context(), id, req.Name); err != nil {
		a.fail(c, err)
		return
	}
	p, _ := a.state.Player(id)
	c.JSON(http.StatusOK, p)
}

func (a *API) deletePlayer(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		a.fail(c, state.ErrPlayerNotFound)
		return
	}
	if err := a.state.RemovePlayer(c.Request.Context(), id); err != nil {
		a.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Sessions

func (a *API) listSessions(c *gin.Context) {
	c.JSON(http.StatusOK, a.state.Sessions())
}

func (a *API) createSession(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.fail(c, badRequest("invalid body"))
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		a.fail(c, err)
		return
	}
	s, err := a.state.AddSession(c.Request.Context(), store.SessionInput{Date: date, Location: req.Location, Notes: req.Notes})
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, s)
}

func (a *API) getSession(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		a.fail(c, state.ErrSessionNotFound)
		return
	}
	view, ok := a.sessionView(id)
	if !ok {
		a.fail(c, state.ErrSessionNotFound)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (a *API) updateSession(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		a.fail(c, state.ErrSessionNotFound)
		return
	}
	var req sessionPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		a.fail(c, badRequest("invalid body"))
		return
	}

	u := store.SessionUpdate{Location: req.Location, Notes: req.Notes}
	if req.Date != nil {
		date, err := parseDate(*req.Date)
		if err != nil {
			a.fail(c, err)
			return
		}
		u.Date = &date
	}
	if err := a.state.UpdateSession(c.Request.Context(), id, u); err != nil {
		a.fail(c, err)
		return
	}
	view, _ := a.sessionView(id)
	c.JSON(http.StatusOK, view)
}

func (a *API) deleteSession(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		a.fail(c, state.ErrSessionNotFound)
		return
	}
	if err := a.state.DeleteSession(c.Request.Context(), id); err != nil {
		a.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Results

func (a *API) setResult(c *gin.Context) {
	sessionID, ok := idParam(c, "id")
	if !ok {
		a.fail(c, state.ErrSessionNotFound)
		return
	}
	playerID, ok := idParam(c, "playerId")
	if !ok {
		a.fail(c, state.ErrPlayerNotFound)
		return
	}
	var req resultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.fail(c, badRequest("invalid body"))
		return
	}

	ctx := c.Request.Context()
	var err error
	switch req.Mode {
	case "", "standard":
		err = a.state.SetResult(ctx, ledger.Result{
			SessionID: sessionID,
			PlayerID:  playerID,
			BuyIn:     req.BuyIn.Decimal(),
			CashOut:   req.CashOut.Decimal(),
		})
	case "net":
		err = a.state.SetNetResult(ctx, sessionID, playerID, req.Net.Decimal())
	case "field":
		raw := ""
		if req.Value != nil {
			raw = string(*req.Value)
		}
		err = a.state.SetResultField(ctx, sessionID, playerID, ledger.Field(req.Field), raw)
	default:
		err = badRequest("mode must be standard, net or field")
	}
	if err != nil {
		a.fail(c, err)
		return
	}

	view, _ := a.sessionView(sessionID)
	c.JSON(http.StatusOK, view)
}

func (a *API) addToRoster(c *gin.Context) {
	sessionID, ok := idParam(c, "id")
	if !ok {
		a.fail(c, state.ErrSessionNotFound)
		return
	}
	var req rosterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.fail(c, badRequest("invalid body"))
		return
	}

	ctx := c.Request.Context()
	var err error
	if req.PlayerID != "" {
		if _, ok := a.state.Session(sessionID); !ok {
			a.fail(c, state.ErrSessionNotFound)
			return
		}
		err = a.state.AddToRoster(ctx, sessionID, req.PlayerID)
	} else {
		_, err = a.state.CreateAndSeat(ctx, sessionID, req.Name)
	}
	if err != nil {
		a.fail(c, err)
		return
	}

	view, _ := a.sessionView(sessionID)
	c.JSON(http.StatusOK, view)
}

// Dashboard and import

func (a *API) getDashboard(c *gin.Context) {
	c.JSON(http.StatusOK, newDashboardView(a.state.Dashboard(a.dashboard)))
}

// runImport imports the posted dataset, or the bundled history when the
// body is empty
func (a *API) runImport(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		a.fail(c, badRequest("unreadable body"))
		return
	}

	ds := importer.History()
	if len(body) > 0 {
		if !json.Valid(body) {
			a.fail(c, badRequest("dataset must be JSON"))
			return
		}
		if ds, err = importer.Parse(body); err != nil {
			a.fail(c, badRequest(err.Error()))
			return
		}
	}

	report, err := a.importer.Run(c.Request.Context(), ds)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"summary": report.Summary(),
		"lines":   report.Lines,
	})
}

func (a *API) sessionView(id string) (sessionView, bool) {
	snap := a.state.Snapshot()

	var session *ledger.Session
	for i := range snap.Sessions {
		if snap.Sessions[i].ID == id {
			session = &snap.Sessions[i]
			break
		}
	}
	if session == nil {
		return sessionView{}, false
	}

	results := ledger.ResultsForSession(snap.Results, id)
	view := sessionView{
		Session:     *session,
		DisplayDate: format.Date(session.Date),
		Results:     make([]resultView, len(results)),
		Available:   ledger.AvailablePlayers(snap.Players, snap.Results, id),
	}
	for i, r := range results {
		view.Results[i] = resultView{
			PlayerID: r.PlayerID,
			Name:     ledger.DisplayName(snap.Players, r.PlayerID),
			BuyIn:    r.BuyIn,
			CashOut:  r.CashOut,
			Profit:   r.Profit(),
			Display:  format.Signed(r.Profit()),
		}
	}
	t := ledger.SessionTotals(results)
	view.Totals = totalsView{BuyIn: t.BuyIn, CashOut: t.CashOut, Net: t.Net, Balanced: t.Balanced()}
	return view, true
}
