package filterdetect

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// MediaDescriptor carries the input of a type detection call. The resolver may write back
// DocumentTitle, AsTemplate, RepairPackage and RepairAllowed on the repair path.
type MediaDescriptor struct {
	InputStream        io.Reader
	TypeName           string // previously detected type, adopted when a repair is approved
	URL                string
	InteractionHandler InteractionHandler

	DocumentTitle string
	AsTemplate    bool
	RepairPackage bool
	// RepairAllowed is nil until set; nil is treated as true.
	RepairAllowed *bool
}

// IsRepairAllowed returns RepairAllowed with the unset default applied.
func (d *MediaDescriptor) IsRepairAllowed() bool {
	return d.RepairAllowed == nil || *d.RepairAllowed
}

// RequestKind identifies an interaction request sent during detection.
type RequestKind string

const (
	RequestRepairPackage       RequestKind = "repair_package"
	RequestNotifyBrokenPackage RequestKind = "notify_broken_package"
)

// InteractionRequest is presented to the caller's interaction handler.
type InteractionRequest struct {
	ID            uuid.UUID   `json:"id"`
	Kind          RequestKind `json:"kind"`
	DocumentTitle string      `json:"document_title"`
}

// NewInteractionRequest creates a request with a fresh ID.
func NewInteractionRequest(kind RequestKind, documentTitle string) *InteractionRequest {
	return &InteractionRequest{ID: uuid.New(), Kind: kind, DocumentTitle: documentTitle}
}

// Outcome is the answer of an interaction handler.
type Outcome int

const (
	OutcomeDecline Outcome = iota
	OutcomeApprove
)

func (o Outcome) String() string {
	if o == OutcomeApprove {
		return "approve"
	}
	return "decline"
}

// InteractionHandler answers requests raised while detecting a document type.
type InteractionHandler interface {
	Handle(ctx context.Context, req *InteractionRequest) Outcome
}

// InteractionHandlerFunc adapts a function to InteractionHandler.
type InteractionHandlerFunc func(ctx context.Context, req *InteractionRequest) Outcome

// Handle calls f(ctx, req).
func (f InteractionHandlerFunc) Handle(ctx context.Context, req *InteractionRequest) Outcome {
	return f(ctx, req)
}

// TypeDetector resolves the format identifier of a package document.
type TypeDetector interface {
	// Detect returns the format identifier, or "" when the input is not a recognized package.
	// Only severe errors are returned.
	Detect(ctx context.Context, desc *MediaDescriptor) (string, error)
}
