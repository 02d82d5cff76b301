package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bookmyseat/internal/logger"
	"github.com/iliyamo/bookmyseat/internal/model"
	"github.com/iliyamo/bookmyseat/internal/repository"
	"github.com/iliyamo/bookmyseat/internal/service"
)

// BookingHandler drives a customer from seat selection to a paid booking:
// hold, checkout page, payment callbacks and the booking history.  All
// routes run behind JWTAuth.
type BookingHandler struct {
	Ledger     *service.Ledger
	Checkout   *service.Checkout
	Finalizer  *service.Finalizer
	Catalog    *service.Catalog
	Bookings   *repository.BookingRepo
	PaymentKey string
	Log        *logger.Logger
}

func NewBookingHandler(
	ledger *service.Ledger,
	checkout *service.Checkout,
	finalizer *service.Finalizer,
	catalog *service.Catalog,
	bookings *repository.BookingRepo,
	paymentKey string,
	log *logger.Logger,
) *BookingHandler {
	return &BookingHandler{
		Ledger:     ledger,
		Checkout:   checkout,
		Finalizer:  finalizer,
		Catalog:    catalog,
		Bookings:   bookings,
		PaymentKey: paymentKey,
		Log:        log,
	}
}

type holdReq struct {
	SeatIDs []uint64 `json:"seat_ids" validate:"required,min=1,max=20,dive,gt=0"`
}

type paymentSuccessReq struct {
	Token       string `json:"token" validate:"required"`
	PaymentRef  string `json:"payment_ref" validate:"required,max=128"`
	AmountCents int64  `json:"amount_cents" validate:"gte=0"`
}

type paymentFailedReq struct {
	Token string `json:"token" validate:"required"`
}

type bookingDTO struct {
	ID          uint64    `json:"id"`
	SeatID      uint64    `json:"seat_id"`
	SeatLabel   string    `json:"seat_label,omitempty"`
	ShowtimeID  uint64    `json:"showtime_id"`
	MovieID     uint64    `json:"movie_id"`
	MovieName   string    `json:"movie_name,omitempty"`
	Theater     string    `json:"theater,omitempty"`
	StartsAt    time.Time `json:"starts_at,omitzero"`
	AmountCents int64     `json:"amount_cents"`
	Status      string    `json:"payment_status"`
	PaymentRef  string    `json:"payment_ref"`
	BookedAt    time.Time `json:"booked_at"`
}

func fromBooking(b model.Booking) bookingDTO {
	return bookingDTO{
		ID: b.ID, SeatID: b.SeatID, ShowtimeID: b.ShowtimeID, MovieID: b.MovieID,
		AmountCents: b.AmountCents, Status: b.PaymentStatus, PaymentRef: b.PaymentRef, BookedAt: b.BookedAt,
	}
}

func fromDetail(d repository.BookingDetail) bookingDTO {
	dto := fromBooking(d.Booking)
	dto.SeatLabel = d.SeatLabel
	dto.MovieName = d.MovieName
	dto.Theater = d.TheaterName
	dto.StartsAt = d.StartsAt
	return dto
}

// Hold handles POST /v1/showtimes/:id/hold.  When every seat is held a
// checkout session is opened and its token returned with 201.  Otherwise
// the response is 409 with the taken seats; the placed ones stay held, so
// the client can retry with just those.
func (h *BookingHandler) Hold(c echo.Context) error {
	uid, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	showtimeID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid showtime id"})
	}
	var req holdReq
	if ok, err := bind(c, &req); !ok {
		return err
	}

	ctx := c.Request().Context()
	if _, err := h.Catalog.Showtime(ctx, showtimeID); err != nil {
		return fail(c, h.Log, err)
	}
	res, err := h.Ledger.PlaceHold(ctx, uid, showtimeID, req.SeatIDs)
	if err != nil {
		return fail(c, h.Log, err)
	}
	if len(res.Conflicts) > 0 {
		return c.JSON(http.StatusConflict, echo.Map{
			"error":     "some seats are no longer available",
			"placed":    res.Placed,
			"conflicts": res.Conflicts,
		})
	}

	cs, err := h.Checkout.Begin(ctx, uid, showtimeID, res.Placed)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"token":      cs.Token,
		"seat_ids":   cs.SeatIDs,
		"expires_at": cs.ExpiresAt,
		"hold_ttl":   h.Ledger.HoldTTL().String(),
	})
}

// GetCheckout handles GET /v1/checkout/:token, the data for the payment
// page.
func (h *BookingHandler) GetCheckout(c echo.Context) error {
	uid, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	ctx := c.Request().Context()
	cs, err := h.Checkout.Resolve(ctx, c.Param("token"), uid, 0)
	if err != nil {
		return fail(c, h.Log, err)
	}
	st, err := h.Catalog.Showtime(ctx, cs.ShowtimeID)
	if err != nil {
		return fail(c, h.Log, err)
	}
	seats, err := h.Catalog.Seats(ctx, cs.ShowtimeID, cs.SeatIDs)
	if err != nil {
		return fail(c, h.Log, err)
	}
	labels := make([]string, 0, len(seats))
	for _, s := range seats {
		labels = append(labels, s.Label)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"token":       cs.Token,
		"showtime":    toShowtimeDTO(*st),
		"seat_ids":    cs.SeatIDs,
		"seats":       labels,
		"total_cents": st.PriceCents * int64(len(cs.SeatIDs)),
		"expires_at":  cs.ExpiresAt,
		"payment_key": h.PaymentKey,
	})
}

// CancelCheckout handles DELETE /v1/checkout/:token.
func (h *BookingHandler) CancelCheckout(c echo.Context) error {
	return h.release(c, c.Param("token"))
}

// PaymentSuccess handles POST /v1/payments/success.  The seats come from
// the checkout session, never from the request.  A callback replayed after
// the session was consumed is answered from the bookings recorded under
// the same payment ref.
func (h *BookingHandler) PaymentSuccess(c echo.Context) error {
	uid, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	var req paymentSuccessReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	req.PaymentRef = strings.TrimSpace(req.PaymentRef)

	ctx := c.Request().Context()
	cs, err := h.Checkout.Resolve(ctx, req.Token, uid, 0)
	if errors.Is(err, service.ErrExpiredSession) {
		return h.replay(c, uid, req.PaymentRef)
	}
	if err != nil {
		return fail(c, h.Log, err)
	}

	res, err := h.Finalizer.Finalize(ctx, service.FinalizeInput{
		UserID:      uid,
		ShowtimeID:  cs.ShowtimeID,
		SeatIDs:     cs.SeatIDs,
		PaymentRef:  req.PaymentRef,
		AmountCents: req.AmountCents,
	})
	if err != nil {
		return fail(c, h.Log, err)
	}
	h.consume(ctx, req.Token)

	items := make([]bookingDTO, 0, len(res.Bookings))
	var total int64
	for _, b := range res.Bookings {
		items = append(items, fromBooking(b))
		total += b.AmountCents
	}
	return c.JSON(http.StatusOK, echo.Map{
		"bookings":    items,
		"replayed":    res.Replayed,
		"total_cents": total,
	})
}

// replay answers a success callback whose session is gone.
func (h *BookingHandler) replay(c echo.Context, uid uint64, paymentRef string) error {
	if paymentRef == "" {
		return fail(c, h.Log, service.ErrExpiredSession)
	}
	prior, err := h.Bookings.ListByPaymentRef(c.Request().Context(), uid, paymentRef)
	if err != nil {
		return fail(c, h.Log, errors.Join(service.ErrStoreUnavailable, err))
	}
	if len(prior) == 0 {
		return fail(c, h.Log, service.ErrExpiredSession)
	}
	items := make([]bookingDTO, 0, len(prior))
	replayed := make([]uint64, 0, len(prior))
	var total int64
	for _, d := range prior {
		items = append(items, fromDetail(d))
		replayed = append(replayed, d.SeatID)
		total += d.AmountCents
	}
	return c.JSON(http.StatusOK, echo.Map{
		"bookings":    items,
		"replayed":    replayed,
		"total_cents": total,
	})
}

// PaymentFailed handles POST /v1/payments/failed.
func (h *BookingHandler) PaymentFailed(c echo.Context) error {
	var req paymentFailedReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	return h.release(c, req.Token)
}

// release frees the caller's holds behind token and drops the session.
// An unknown token releases nothing and still answers 200, so repeated
// failure callbacks are harmless.
func (h *BookingHandler) release(c echo.Context, token string) error {
	uid, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	ctx := c.Request().Context()
	cs, err := h.Checkout.Lookup(ctx, token)
	if errors.Is(err, service.ErrExpiredSession) {
		return c.JSON(http.StatusOK, echo.Map{"released": 0})
	}
	if err != nil {
		return fail(c, h.Log, err)
	}
	if cs.UserID != uid {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "checkout belongs to another user"})
	}

	released, err := h.Finalizer.Release(ctx, uid, cs.ShowtimeID, cs.SeatIDs)
	if err != nil {
		return fail(c, h.Log, err)
	}
	h.consume(ctx, token)
	return c.JSON(http.StatusOK, echo.Map{"released": released})
}

func (h *BookingHandler) consume(ctx context.Context, token string) {
	if err := h.Checkout.Consume(ctx, token); err != nil {
		h.Log.ErrorWithContext(ctx, "consume checkout session failed", err, map[string]any{"token": token})
	}
}

// MyBookings handles GET /v1/my-bookings.
func (h *BookingHandler) MyBookings(c echo.Context) error {
	uid, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	list, err := h.Bookings.ListByUser(c.Request().Context(), uid)
	if err != nil {
		return fail(c, h.Log, errors.Join(service.ErrStoreUnavailable, err))
	}
	items := make([]bookingDTO, 0, len(list))
	for _, d := range list {
		items = append(items, fromDetail(d))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}
