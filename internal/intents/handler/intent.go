package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"stayd/internal/intents/service"
	apperrors "stayd/pkg/errors"
	httputil "stayd/pkg/http"
	"stayd/pkg/logger"
	"stayd/pkg/model"

	"github.com/julienschmidt/httprouter"
)

// ExpirySweeper is the manual-trigger surface of the background sweeper.
type ExpirySweeper interface {
	Run(ctx context.Context) (int, error)
}

type IntentHandler struct {
	service      service.IntentService
	availability service.AvailabilityService
	sweeper      ExpirySweeper
	log          *logger.Logger
}

func NewIntentHandler(
	svc service.IntentService,
	availability service.AvailabilityService,
	sweeper ExpirySweeper,
	log *logger.Logger,
) *IntentHandler {
	return &IntentHandler{
		service:      svc,
		availability: availability,
		sweeper:      sweeper,
		log:          log,
	}
}

type CreateIntentRequest struct {
	CustomerID  string        `json:"customer_id"`
	HostID      string        `json:"host_id"`
	ListingID   string        `json:"listing_id"`
	BookingType string        `json:"booking_type"`
	StartDate   string        `json:"start_date"`
	EndDate     string        `json:"end_date"`
	Pricing     model.Pricing `json:"pricing"`
}

type CancelIntentRequest struct {
	CustomerID string `json:"customer_id"`
	Reason     string `json:"reason"`
}

type ExtendIntentRequest struct {
	CustomerID        string `json:"customer_id"`
	AdditionalMinutes int    `json:"additional_minutes"`
}

type ConfirmIntentRequest struct {
	CustomerID    string `json:"customer_id"`
	TransactionID string `json:"transaction_id"`
}

// IntentResponse decorates the stored intent with the live countdown the
// client renders.
type IntentResponse struct {
	*model.BookingIntent
	RemainingSeconds int `json:"remaining_seconds"`
}

type ConfirmIntentResponse struct {
	Intent  *IntentResponse `json:"intent"`
	Booking *model.Booking  `json:"booking"`
}

type ReleaseExpiredResponse struct {
	ReleasedCount int `json:"released_count"`
}

func (h *IntentHandler) CheckAvailability(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	listingID, err := httputil.RequiredQuery(r, "listing_id")
	if err != nil {
		h.writeError(w, "CheckAvailability", err)
		return
	}

	dates, err := httputil.DateRangeQuery(r)
	if err != nil {
		h.writeError(w, "CheckAvailability", err)
		return
	}

	customerID := h.customerID(r, r.URL.Query().Get("customer_id"))

	availability, err := h.availability.Check(r.Context(), listingID, customerID, dates)
	if err != nil {
		h.writeError(w, "CheckAvailability", err)
		return
	}

	h.writeSuccess(w, "CheckAvailability", availability)
}

func (h *IntentHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req CreateIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Create", apperrors.InvalidInput("Invalid request body"))
		return
	}

	dates, err := model.ParseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		h.writeError(w, "Create", apperrors.InvalidInput("start_date and end_date must be in YYYY-MM-DD format"))
		return
	}

	intent := &model.BookingIntent{
		CustomerID:  h.customerID(r, req.CustomerID),
		HostID:      req.HostID,
		ListingID:   req.ListingID,
		BookingType: model.BookingType(req.BookingType),
		StartDate:   dates.Start,
		EndDate:     dates.End,
		Pricing:     req.Pricing,
	}

	created, err := h.service.Create(r.Context(), intent)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, h.toResponse(created)); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "error", err)
	}
}

func (h *IntentHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	intent, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	h.writeSuccess(w, "GetByID", h.toResponse(intent))
}

func (h *IntentHandler) GetActive(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	customerID := h.customerID(r, r.URL.Query().Get("customer_id"))
	listingID := r.URL.Query().Get("listing_id")

	intents, err := h.service.GetActive(r.Context(), customerID, listingID)
	if err != nil {
		h.writeError(w, "GetActive", err)
		return
	}

	responses := make([]*IntentResponse, len(intents))
	for i, intent := range intents {
		responses[i] = h.toResponse(intent)
	}

	h.writeSuccess(w, "GetActive", responses)
}

func (h *IntentHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req CancelIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Cancel", apperrors.InvalidInput("Invalid request body"))
		return
	}

	intent, err := h.service.Cancel(r.Context(), ps.ByName("id"), h.customerID(r, req.CustomerID), req.Reason)
	if err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	h.writeSuccess(w, "Cancel", h.toResponse(intent))
}

func (h *IntentHandler) Extend(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req ExtendIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Extend", apperrors.InvalidInput("Invalid request body"))
		return
	}

	intent, err := h.service.Extend(r.Context(), ps.ByName("id"), h.customerID(r, req.CustomerID), req.AdditionalMinutes)
	if err != nil {
		h.writeError(w, "Extend", err)
		return
	}

	h.writeSuccess(w, "Extend", h.toResponse(intent))
}

func (h *IntentHandler) Confirm(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req ConfirmIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Confirm", apperrors.InvalidInput("Invalid request body"))
		return
	}
	// transaction_id stays empty for cash payments; the materializer keeps
	// idempotency keyed on the intent, not the payment token.
	intent, booking, err := h.service.Confirm(r.Context(), ps.ByName("id"), h.customerID(r, req.CustomerID), req.TransactionID)
	if err != nil {
		h.writeError(w, "Confirm", err)
		return
	}

	h.writeSuccess(w, "Confirm", ConfirmIntentResponse{
		Intent:  h.toResponse(intent),
		Booking: booking,
	})
}

// ReleaseExpired is the manual trigger for the sweep that also runs on a
// timer.
func (h *IntentHandler) ReleaseExpired(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	released, err := h.sweeper.Run(r.Context())
	if err != nil {
		h.writeError(w, "ReleaseExpired", apperrors.Internal("Sweep failed", err))
		return
	}

	h.writeSuccess(w, "ReleaseExpired", ReleaseExpiredResponse{ReleasedCount: released})
}

func (h *IntentHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/availability", h.CheckAvailability)
	router.POST("/api/v1/intents", h.Create)
	router.GET("/api/v1/intents/id/:id", h.GetByID)
	router.PUT("/api/v1/intents/id/:id/cancel", h.Cancel)
	router.PUT("/api/v1/intents/id/:id/extend", h.Extend)
	router.PUT("/api/v1/intents/id/:id/confirm", h.Confirm)
	router.GET("/api/v1/intents/active", h.GetActive)
	router.POST("/api/v1/intents/release-expired", h.ReleaseExpired)
}

// customerID prefers the body field, falling back to the gateway-injected
// header.
func (h *IntentHandler) customerID(r *http.Request, fromBody string) string {
	if fromBody != "" {
		return fromBody
	}
	return r.Header.Get("X-Customer-ID")
}

func (h *IntentHandler) toResponse(intent *model.BookingIntent) *IntentResponse {
	resp := &IntentResponse{BookingIntent: intent}
	if intent.HoldsLockAt(time.Now().UTC()) {
		resp.RemainingSeconds = intent.RemainingSeconds(time.Now().UTC())
	}
	return resp
}

func (h *IntentHandler) writeSuccess(w http.ResponseWriter, op string, data any) {
	if err := httputil.WriteSuccess(w, data); err != nil {
		h.log.Error("failed to write success response", "handler", op, "error", err)
	}
}

func (h *IntentHandler) writeError(w http.ResponseWriter, op string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", op, "error", writeErr)
	}
}
