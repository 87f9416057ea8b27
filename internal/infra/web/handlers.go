package web

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"classifieds-marketplace/internal/domain/model"
	"classifieds-marketplace/internal/infra/logging"
	"classifieds-marketplace/internal/infra/metrics"
	"classifieds-marketplace/internal/infra/payment"
	"classifieds-marketplace/internal/usecase"
)

const maxBody = 64 << 10

func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// ----- listings -----

func (s *Server) createListing(w http.ResponseWriter, r *http.Request) {
	var req createListingRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.Tier == "" {
		req.Tier = model.TierFree
	}
	v, err := s.listings.Create(r.Context(), viewerID(r.Context()), usecase.CreateListingInput{
		Tier:  req.Tier,
		Days:  req.Days,
		Draft: req.Draft,
		Fields: model.ListingFields{
			Title:       req.Title,
			Description: req.Description,
			Category:    req.Category,
			Location:    req.Location,
			Price:       req.Price,
			Currency:    req.Currency,
		},
	})
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, toListingResponse(*v))
}

func (s *Server) searchListings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := usecase.ListingFilter{
		Text:     q.Get("q"),
		Category: q.Get("category"),
		Location: q.Get("location"),
	}
	var err error
	if f.MinPrice, err = optInt64(q.Get("minPrice")); err != nil {
		badRequest(w, "minPrice must be an integer")
		return
	}
	if f.MaxPrice, err = optInt64(q.Get("maxPrice")); err != nil {
		badRequest(w, "maxPrice must be an integer")
		return
	}
	if v := q.Get("includeSold"); v != "" {
		if f.IncludeSold, err = strconv.ParseBool(v); err != nil {
			badRequest(w, "includeSold must be a boolean")
			return
		}
	}
	if f.Limit, err = optInt(q.Get("limit")); err != nil {
		badRequest(w, "limit must be an integer")
		return
	}
	if f.Offset, err = optInt(q.Get("offset")); err != nil {
		badRequest(w, "offset must be an integer")
		return
	}

	items, err := s.query.Search(r.Context(), f)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": toListingResponses(items)})
}

// getListing counts the view; a counter failure never fails the read.
func (s *Server) getListing(w http.ResponseWriter, r *http.Request) {
	viewer := viewerID(r.Context())
	v, err := s.listings.Get(r.Context(), viewer, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	out := toListingResponse(*v)
	if s.engagement != nil {
		e, err := s.engagement.RecordView(r.Context(), v.Listing, usecase.Viewer{AccountID: viewer, Addr: clientAddr(r)})
		if err != nil {
			logging.With(r.Context(), s.log).Warn().Err(err).Str("listing_id", v.Listing.ID).Msg("view not recorded")
		} else {
			out.Engagement = &e
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) contactListing(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	res, err := s.engagement.Contact(r.Context(), viewerID(r.Context()), chi.URLParam(r, "id"), usecase.ContactInput{Kind: req.Kind, Message: req.Message})
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, contactResponse{ListingID: res.ListingID, SellerName: res.SellerName, SellerPhone: res.SellerPhone})
}

func (s *Server) reportListing(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	rp, err := s.engagement.Report(r.Context(), viewerID(r.Context()), chi.URLParam(r, "id"), usecase.ReportInput{Reason: req.Reason, Description: req.Description})
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, toReportResponse(rp))
}

func (s *Server) publishListing(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.Tier == "" {
		req.Tier = model.TierFree
	}
	v, err := s.listings.Publish(r.Context(), viewerID(r.Context()), chi.URLParam(r, "id"), usecase.PublishInput{Tier: req.Tier, Days: req.Days})
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toListingResponse(*v))
}

func (s *Server) markSold(w http.ResponseWriter, r *http.Request) {
	v, err := s.listings.MarkSold(r.Context(), viewerID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toListingResponse(*v))
}

func (s *Server) markRemoved(w http.ResponseWriter, r *http.Request) {
	v, err := s.listings.MarkRemoved(r.Context(), viewerID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toListingResponse(*v))
}

// ----- account -----

func (s *Server) myListings(w http.ResponseWriter, r *http.Request) {
	items, err := s.listings.ListByOwner(r.Context(), viewerID(r.Context()))
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	out := toListingResponses(items)
	if s.engagement != nil && len(items) > 0 {
		ids := make([]string, 0, len(items))
		for _, v := range items {
			ids = append(ids, v.Listing.ID)
		}
		counts, err := s.engagement.Counts(r.Context(), ids)
		if err != nil {
			writeError(w, r, s.log, err)
			return
		}
		out = withEngagement(out, counts)
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	v, err := s.accounts.View(r.Context(), viewerID(r.Context()))
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountResponse(v))
}

func (s *Server) updateMe(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	v, err := s.accounts.UpdateProfile(r.Context(), viewerID(r.Context()), usecase.ProfileUpdate{DisplayName: req.DisplayName, Phone: req.Phone})
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountResponse(v))
}

func (s *Server) telegramLink(w http.ResponseWriter, r *http.Request) {
	if s.links == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not_found", Message: "telegram is not configured"})
		return
	}
	link, err := s.links.Issue(r.Context(), viewerID(r.Context()))
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, link)
}

// ----- payments -----

func (s *Server) initiatePayment(w http.ResponseWriter, r *http.Request) {
	var req initiatePaymentRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	p, err := s.payments.Initiate(r.Context(), viewerID(r.Context()), usecase.InitiatePaymentInput{
		ListingID: req.ListingID,
		Days:      req.Days,
		Phone:     req.Phone,
	})
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	// dispatch failures come back as a failed transaction, still 202
	writeJSON(w, http.StatusAccepted, toPaymentResponse(p))
}

func (s *Server) getPayment(w http.ResponseWriter, r *http.Request) {
	p, err := s.payments.Get(r.Context(), viewerID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentResponse(p))
}

type callbackAck struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}

// paymentCallback always answers 200 so the gateway stops retrying; every
// body is logged by the use case before it is applied.
func (s *Server) paymentCallback(w http.ResponseWriter, r *http.Request) {
	l := logging.With(r.Context(), s.log)
	ack := callbackAck{ResultCode: 0, ResultDesc: "Accepted"}

	if !payment.VerifyCallbackToken(s.opts.CallbackSecret, r.URL.Query().Get("token")) {
		metrics.IncPaymentCallback("unauthorized")
		l.Warn().Str("remote", r.RemoteAddr).Msg("payment callback with bad token")
		writeJSON(w, http.StatusOK, ack)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		l.Warn().Err(err).Msg("payment callback body unreadable")
		writeJSON(w, http.StatusOK, ack)
		return
	}
	if err := s.payments.ResolveCallback(r.Context(), body); err != nil {
		l.Error().Err(err).Msg("payment callback not applied")
	}
	writeJSON(w, http.StatusOK, ack)
}

// ----- catalog / admin -----

func (s *Server) listPlans(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"currency": s.plans.Currency(),
		"plans":    s.plans.List(),
	})
}

func (s *Server) adminReconcile(w http.ResponseWriter, r *http.Request) {
	res, err := s.reconcile.RunPass(r.Context())
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"scanned": res.Scanned,
		"changed": res.Changed,
		"batches": res.Batches,
		"at":      res.At,
	})
}

func (s *Server) adminStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.stats.Overview(r.Context())
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) adminReports(w http.ResponseWriter, r *http.Request) {
	limit, err := optInt(r.URL.Query().Get("limit"))
	if err != nil {
		badRequest(w, "limit must be an integer")
		return
	}
	reports, err := s.engagement.OpenReports(r.Context(), limit)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	items := make([]reportResponse, 0, len(reports))
	for _, rp := range reports {
		items = append(items, toReportResponse(rp))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) adminResolveReport(w http.ResponseWriter, r *http.Request) {
	var req resolveReportRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	rp, err := s.engagement.ResolveReport(r.Context(), viewerID(r.Context()), chi.URLParam(r, "id"), req.Notes)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toReportResponse(rp))
}

// clientAddr is the peer address without the port.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func optInt64(s string) (*int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func optInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
