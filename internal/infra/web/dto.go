package web

import (
	"time"

	"classifieds-marketplace/internal/domain/model"
	"classifieds-marketplace/internal/usecase"
)

type listingResponse struct {
	ID               string     `json:"id"`
	OwnerID          string     `json:"owner_id"`
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	Category         string     `json:"category"`
	Location         string     `json:"location"`
	Price            int64      `json:"price"`
	Currency         string     `json:"currency,omitempty"`
	Tier             model.Tier `json:"tier"`
	State            string     `json:"state"`
	Urgency          string     `json:"urgency"`
	SecondsRemaining int64      `json:"seconds_remaining"`
	CreatedAt        time.Time  `json:"created_at"`
	PublishedAt      *time.Time `json:"published_at,omitempty"`
	TermEnd          *time.Time `json:"term_end,omitempty"`
	Version          int64      `json:"version"`

	Engagement *model.Engagement `json:"engagement,omitempty"`
}

func toListingResponse(v usecase.ListingView) listingResponse {
	l := v.Listing
	out := listingResponse{
		ID:               l.ID,
		OwnerID:          l.OwnerID,
		Title:            l.Title,
		Description:      l.Description,
		Category:         l.Category,
		Location:         l.Location,
		Price:            l.Price,
		Currency:         l.Currency,
		Tier:             l.Tier,
		State:            string(v.State),
		Urgency:          string(v.Urgency),
		SecondsRemaining: int64(v.Remaining / time.Second),
		CreatedAt:        l.CreatedAt,
		PublishedAt:      l.PublishedAt,
		Version:          l.Version,
	}
	if l.PublishedAt != nil {
		te := l.TermEnd
		out.TermEnd = &te
	}
	return out
}

// withEngagement attaches counters; listings never viewed get zeroes.
func withEngagement(items []listingResponse, counts map[string]model.Engagement) []listingResponse {
	for i := range items {
		e := counts[items[i].ID]
		items[i].Engagement = &e
	}
	return items
}

func toListingResponses(vs []usecase.ListingView) []listingResponse {
	out := make([]listingResponse, 0, len(vs))
	for _, v := range vs {
		out = append(out, toListingResponse(v))
	}
	return out
}

type accountResponse struct {
	ID               string     `json:"id"`
	DisplayName      string     `json:"display_name,omitempty"`
	Phone            string     `json:"phone,omitempty"`
	Verified         bool       `json:"verified"`
	TelegramLinked   bool       `json:"telegram_linked"`
	FreeListingsUsed int        `json:"free_listings_used"`
	FreeListingCap   int        `json:"free_listing_cap"`
	FreeListingsLeft int        `json:"free_listings_left"`
	CanCreateFree    bool       `json:"can_create_free"`
	PremiumActive    bool       `json:"premium_active"`
	PremiumTermEnd   *time.Time `json:"premium_term_end,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

func toAccountResponse(v *usecase.AccountView) accountResponse {
	a := v.Account
	out := accountResponse{
		ID:               a.ID,
		DisplayName:      a.DisplayName,
		Phone:            a.Phone,
		Verified:         a.Verified,
		TelegramLinked:   a.TelegramChatID != nil,
		FreeListingsUsed: a.FreeListingsUsed,
		FreeListingCap:   v.FreeListingCap,
		FreeListingsLeft: v.FreeListingsLeft,
		CanCreateFree:    v.CanCreateFree,
		PremiumActive:    v.PremiumActive,
		CreatedAt:        a.CreatedAt,
	}
	if a.PremiumSubscription != nil {
		te := a.PremiumSubscription.TermEnd
		out.PremiumTermEnd = &te
	}
	return out
}

type paymentResponse struct {
	TransactionID string              `json:"transaction_id"`
	Reference     string              `json:"reference"`
	ListingID     string              `json:"listing_id"`
	Status        model.PaymentStatus `json:"status"`
	FailureReason string              `json:"failure_reason,omitempty"`
	Days          int                 `json:"days"`
	Amount        int64               `json:"amount"`
	Currency      string              `json:"currency"`
	ReceiptNumber string              `json:"receipt_number,omitempty"`
	InitiatedAt   time.Time           `json:"initiated_at"`
	ResolvedAt    *time.Time          `json:"resolved_at,omitempty"`
}

func toPaymentResponse(p *model.PaymentTransaction) paymentResponse {
	return paymentResponse{
		TransactionID: p.ID,
		Reference:     p.Reference,
		ListingID:     p.ListingID,
		Status:        p.Status,
		FailureReason: p.FailureReason,
		Days:          p.Plan.Days,
		Amount:        p.Plan.Amount,
		Currency:      p.Currency,
		ReceiptNumber: p.ReceiptNumber,
		InitiatedAt:   p.InitiatedAt,
		ResolvedAt:    p.ResolvedAt,
	}
}

type createListingRequest struct {
	Tier        model.Tier `json:"tier"`
	Days        int        `json:"days"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Location    string     `json:"location"`
	Price       int64      `json:"price"`
	Currency    string     `json:"currency"`
	Draft       bool       `json:"draft"`
}

type publishRequest struct {
	Tier model.Tier `json:"tier"`
	Days int        `json:"days"`
}

type initiatePaymentRequest struct {
	ListingID string `json:"listing_id"`
	Days      int    `json:"days"`
	Phone     string `json:"phone"`
}

type profileRequest struct {
	DisplayName *string `json:"display_name"`
	Phone       *string `json:"phone"`
}

type contactRequest struct {
	Kind    model.ContactKind `json:"kind"`
	Message string            `json:"message"`
}

type contactResponse struct {
	ListingID   string `json:"listing_id"`
	SellerName  string `json:"seller_name,omitempty"`
	SellerPhone string `json:"seller_phone,omitempty"`
}

type reportRequest struct {
	Reason      model.ReportReason `json:"reason"`
	Description string             `json:"description"`
}

type resolveReportRequest struct {
	Notes string `json:"notes"`
}

type reportResponse struct {
	ID          string             `json:"id"`
	ListingID   string             `json:"listing_id"`
	ReporterID  string             `json:"reporter_id"`
	Reason      model.ReportReason `json:"reason"`
	Description string             `json:"description,omitempty"`
	Resolved    bool               `json:"resolved"`
	AdminNotes  string             `json:"admin_notes,omitempty"`
	ResolvedBy  string             `json:"resolved_by,omitempty"`
	ResolvedAt  *time.Time         `json:"resolved_at,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
}

func toReportResponse(r *model.ListingReport) reportResponse {
	return reportResponse{
		ID:          r.ID,
		ListingID:   r.ListingID,
		ReporterID:  r.ReporterID,
		Reason:      r.Reason,
		Description: r.Description,
		Resolved:    r.Resolved,
		AdminNotes:  r.AdminNotes,
		ResolvedBy:  r.ResolvedBy,
		ResolvedAt:  r.ResolvedAt,
		CreatedAt:   r.CreatedAt,
	}
}
