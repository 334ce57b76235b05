// Package crmtest provides an in-memory stand-in for the CRM backend. It serves
// the same JSON routes as the real backend and records every call, so tests
// and local development can run the portal without a CRM instance.
package crmtest

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"kundenportal/internal/crm"
)

// Call is one request received by the backend.
type Call struct {
	Method string
	Path   string
	LeadID int64
	Body   any
}

type failure struct {
	status  int
	message string
	body    gin.H // replaces the default {success:false, message} answer
}

// Backend is a fake CRM backend. The zero value is not usable; call New.
type Backend struct {
	mu sync.Mutex

	tokens   map[string]int64
	leads    map[int64]*crm.LeadDTO
	items    map[int64][]crm.ItemDTO
	bookings map[string]*crm.BookingResponseDTO

	convertFailures map[int64]failure
	confirmFailures map[string]failure
	detailMissing   map[int64]bool
	groupFailures   map[string]int
	quoteFailures   map[string]int

	calls    []Call
	feedback []crm.Feedback

	Now func() time.Time
}

func New() *Backend {
	return &Backend{
		tokens:          make(map[string]int64),
		leads:           make(map[int64]*crm.LeadDTO),
		items:           make(map[int64][]crm.ItemDTO),
		bookings:        make(map[string]*crm.BookingResponseDTO),
		convertFailures: make(map[int64]failure),
		confirmFailures: make(map[string]failure),
		detailMissing:   make(map[int64]bool),
		groupFailures:   make(map[string]int),
		quoteFailures:   make(map[string]int),
		Now:             time.Now,
	}
}

// AddQuote registers a lead reachable by an access token.
func (b *Backend) AddQuote(token string, lead crm.LeadDTO, items ...crm.ItemDTO) {
	b.AddLead(lead, items...)
	b.mu.Lock()
	b.tokens[token] = int64(lead.ID)
	b.mu.Unlock()
}

// AddLead registers a lead without a token, e.g. a sibling day of a group.
func (b *Backend) AddLead(lead crm.LeadDTO, items ...crm.ItemDTO) {
	b.mu.Lock()
	defer b.mu.Unlock()
	l := lead
	b.leads[int64(lead.ID)] = &l
	b.items[int64(lead.ID)] = append([]crm.ItemDTO(nil), items...)
}

// AddBooking registers a confirmed booking for the customer portal.
func (b *Backend) AddBooking(token string, booking crm.BookingDTO, items ...crm.ItemDTO) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bookings[token] = &crm.BookingResponseDTO{Buchung: booking, Artikel: append([]crm.ItemDTO(nil), items...)}
}

// FailConvert makes convert-to-booking for the lead answer with status and message.
func (b *Backend) FailConvert(leadID int64, status int, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.convertFailures[leadID] = failure{status: status, message: message}
}

// FailConfirm makes the ungrouped confirm call for the token fail.
func (b *Backend) FailConfirm(token string, status int, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.confirmFailures[token] = failure{status: status, message: message}
}

// ReplyConfirm makes the ungrouped confirm call answer with a raw body and
// leave the lead untouched.
func (b *Backend) ReplyConfirm(token string, status int, body gin.H) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.confirmFailures[token] = failure{status: status, body: body}
}

// HideDetail makes quote-detail-by-lead answer 404 for the lead.
func (b *Backend) HideDetail(leadID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.detailMissing[leadID] = true
}

// FailGroup makes the sibling lookup for the group answer with status.
func (b *Backend) FailGroup(groupID string, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.groupFailures[groupID] = status
}

// FailQuote makes the primary quote lookup for the token answer with status.
func (b *Backend) FailQuote(token string, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.quoteFailures[token] = status
}

// Reset clears injected failures.
func (b *Backend) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.convertFailures = make(map[int64]failure)
	b.confirmFailures = make(map[string]failure)
	b.groupFailures = make(map[string]int)
	b.quoteFailures = make(map[string]int)
}

// MarkConfirmed confirms a lead out of band, as if the customer had used
// another device.
func (b *Backend) MarkConfirmed(leadID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if l, ok := b.leads[leadID]; ok {
		l.Bestaetigt = true
		l.BestaetigtAm = b.Now().UTC().Format(time.RFC3339)
	}
}

// Confirmed reports whether a lead is confirmed.
func (b *Backend) Confirmed(leadID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	l, ok := b.leads[leadID]
	return ok && bool(l.Bestaetigt)
}

// Calls returns a copy of the recorded calls.
func (b *Backend) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Call(nil), b.calls...)
}

// MutatingCalls returns the recorded POST and PATCH calls.
func (b *Backend) MutatingCalls() []Call {
	var out []Call
	for _, c := range b.Calls() {
		if c.Method == http.MethodPost || c.Method == http.MethodPatch {
			out = append(out, c)
		}
	}
	return out
}

// ConvertedLeads lists the lead IDs convert-to-booking was called for, in order.
func (b *Backend) ConvertedLeads() []int64 {
	var out []int64
	for _, c := range b.Calls() {
		if strings.HasSuffix(c.Path, "/convert-to-booking") {
			out = append(out, c.LeadID)
		}
	}
	return out
}

// Feedback returns the received feedback messages.
func (b *Backend) Feedback() []crm.Feedback {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]crm.Feedback(nil), b.feedback...)
}

// Booking returns the stored booking for inspection.
func (b *Backend) Booking(token string) (crm.BookingDTO, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	bk, ok := b.bookings[token]
	if !ok {
		return crm.BookingDTO{}, false
	}
	return bk.Buchung, true
}

// Handler serves the backend routes below /api.
func (b *Backend) Handler() http.Handler {
	r := gin.New()
	api := r.Group("/api")
	{
		api.GET("/quote/:token", b.getQuote)
		api.POST("/quote/:token/confirm", b.confirmQuote)
		api.POST("/quote/:token/feedback", b.postFeedback)
		api.GET("/quote-group/:groupId", b.getGroup)
		api.GET("/quote-detail-by-lead/:leadId", b.getDetail)
		api.POST("/lead/:leadId/convert-to-booking", b.convertLead)
		api.GET("/auftrag/:token", b.getBooking)
		api.PATCH("/auftrag/:token/layout", b.patchLayout)
	}
	return r
}

func (b *Backend) record(c *gin.Context, leadID int64, body any) {
	b.calls = append(b.calls, Call{Method: c.Request.Method, Path: c.Request.URL.Path, LeadID: leadID, Body: body})
}

func (b *Backend) quoteBody(id int64) gin.H {
	return gin.H{"lead": b.leads[id], "items": b.items[id]}
}

func (b *Backend) getQuote(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	token := c.Param("token")
	id := b.tokens[token]
	b.record(c, id, nil)

	if status, ok := b.quoteFailures[token]; ok {
		c.JSON(status, gin.H{"error": http.StatusText(status)})
		return
	}
	if _, ok := b.leads[id]; !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Angebot nicht gefunden"})
		return
	}
	c.JSON(http.StatusOK, b.quoteBody(id))
}

func (b *Backend) getGroup(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	groupID := c.Param("groupId")
	b.record(c, 0, nil)

	if status, ok := b.groupFailures[groupID]; ok {
		c.JSON(status, gin.H{"error": http.StatusText(status)})
		return
	}
	leads := make([]*crm.LeadDTO, 0)
	for _, l := range b.leads {
		if string(l.GruppeID) == groupID {
			leads = append(leads, l)
		}
	}
	c.JSON(http.StatusOK, leads)
}

func (b *Backend) getDetail(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id, _ := strconv.ParseInt(c.Param("leadId"), 10, 64)
	b.record(c, id, nil)

	if _, ok := b.leads[id]; !ok || b.detailMissing[id] {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not available"})
		return
	}
	c.JSON(http.StatusOK, b.quoteBody(id))
}

func (b *Backend) confirmQuote(c *gin.Context) {
	var req crm.ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	token := c.Param("token")
	id := b.tokens[token]
	b.record(c, id, req)

	if f, ok := b.confirmFailures[token]; ok {
		if f.body != nil {
			c.JSON(f.status, f.body)
			return
		}
		c.JSON(f.status, gin.H{"success": false, "message": f.message})
		return
	}
	b.confirm(c, id)
}

func (b *Backend) convertLead(c *gin.Context) {
	var req crm.ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	id, _ := strconv.ParseInt(c.Param("leadId"), 10, 64)
	b.record(c, id, req)

	if f, ok := b.convertFailures[id]; ok {
		c.JSON(f.status, gin.H{"success": false, "message": f.message})
		return
	}
	b.confirm(c, id)
}

// confirm marks the lead confirmed. Repeated calls answer 409 so clients can
// treat them as already done.
func (b *Backend) confirm(c *gin.Context, id int64) {
	l, ok := b.leads[id]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "lead not found"})
		return
	}
	if l.Bestaetigt {
		c.JSON(http.StatusConflict, gin.H{"success": false, "message": "already confirmed"})
		return
	}
	l.Bestaetigt = true
	l.BestaetigtAm = b.Now().UTC().Format(time.RFC3339)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (b *Backend) postFeedback(c *gin.Context) {
	var fb crm.Feedback
	if err := c.ShouldBindJSON(&fb); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record(c, b.tokens[c.Param("token")], fb)
	b.feedback = append(b.feedback, fb)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (b *Backend) getBooking(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record(c, 0, nil)

	bk, ok := b.bookings[c.Param("token")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Buchung nicht gefunden"})
		return
	}
	c.JSON(http.StatusOK, bk)
}

func (b *Backend) patchLayout(c *gin.Context) {
	var upd crm.LayoutUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.record(c, 0, upd)

	bk, ok := b.bookings[c.Param("token")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Buchung nicht gefunden"})
		return
	}
	if upd.Kundenfreigabe {
		bk.Buchung.FotolayoutKundenfreigabe = true
		bk.Buchung.FotolayoutFreigabeAm = b.Now().UTC().Format(time.RFC3339)
	} else {
		bk.Buchung.FotolayoutStyle = upd.Style
		bk.Buchung.FotolayoutText = upd.Text
		bk.Buchung.FotolayoutDatum = upd.Datum
		bk.Buchung.FotolayoutFarbe = upd.Farbe
		bk.Buchung.FotolayoutKundenfreigabe = false
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
