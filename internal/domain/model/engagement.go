package model

import (
	"strings"
	"time"

	"classifieds-marketplace/internal/domain"
)

// ContactKind is the channel a buyer used to reach the seller.
type ContactKind string

const (
	ContactPhone    ContactKind = "phone"
	ContactWhatsApp ContactKind = "whatsapp"
	ContactEmail    ContactKind = "email"
	ContactMessage  ContactKind = "message"
)

func (k ContactKind) Valid() bool {
	switch k {
	case ContactPhone, ContactWhatsApp, ContactEmail, ContactMessage:
		return true
	}
	return false
}

type ReportReason string

const (
	ReportSpam          ReportReason = "spam"
	ReportInappropriate ReportReason = "inappropriate"
	ReportFake          ReportReason = "fake"
	ReportDuplicate     ReportReason = "duplicate"
	ReportWrongCategory ReportReason = "wrong_category"
	ReportOverpriced    ReportReason = "overpriced"
	ReportOther         ReportReason = "other"
)

func (r ReportReason) Valid() bool {
	switch r {
	case ReportSpam, ReportInappropriate, ReportFake, ReportDuplicate,
		ReportWrongCategory, ReportOverpriced, ReportOther:
		return true
	}
	return false
}

// Engagement are the public counters of a listing. UniqueViews counts
// distinct viewers (account, or address for anonymous visitors).
type Engagement struct {
	Views       int64 `json:"views"`
	UniqueViews int64 `json:"unique_views"`
	Contacts    int64 `json:"contacts"`
}

// ListingContact records one buyer reaching out about a listing.
type ListingContact struct {
	ID        string
	ListingID string
	AccountID string
	Kind      ContactKind
	Message   string
	CreatedAt time.Time
}

// maxReportText bounds free text on contacts and reports.
const maxReportText = 2000

func NewListingContact(id, listingID, accountID string, kind ContactKind, message string, now time.Time) (*ListingContact, error) {
	if id == "" || listingID == "" || accountID == "" || !kind.Valid() {
		return nil, domain.ErrInvalidArgument
	}
	message = strings.TrimSpace(message)
	if len(message) > maxReportText {
		return nil, domain.ErrInvalidArgument
	}
	return &ListingContact{ID: id, ListingID: listingID, AccountID: accountID, Kind: kind, Message: message, CreatedAt: now}, nil
}

// ListingReport is a moderation flag raised by a user. One per reporter and listing.
type ListingReport struct {
	ID          string
	ListingID   string
	ReporterID  string
	Reason      ReportReason
	Description string
	Resolved    bool
	AdminNotes  string
	ResolvedBy  string
	ResolvedAt  *time.Time
	CreatedAt   time.Time
}

func NewListingReport(id, listingID, reporterID string, reason ReportReason, description string, now time.Time) (*ListingReport, error) {
	if id == "" || listingID == "" || reporterID == "" || !reason.Valid() {
		return nil, domain.ErrInvalidArgument
	}
	description = strings.TrimSpace(description)
	if len(description) > maxReportText {
		return nil, domain.ErrInvalidArgument
	}
	return &ListingReport{ID: id, ListingID: listingID, ReporterID: reporterID, Reason: reason, Description: description, CreatedAt: now}, nil
}
