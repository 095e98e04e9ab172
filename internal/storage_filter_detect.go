package internal

import (
	"context"
	"errors"
	"time"

	"github.com/lychee-technology/filterdetect"
	"go.uber.org/zap"
)

var supportedServiceNames = []string{
	filterdetect.ExtendedTypeDetectionService,
	filterdetect.StorageFilterDetectImplementationName,
}

// StorageFilterDetect resolves the format identifier of zip-based office packages.
type StorageFilterDetect struct {
	maxPackageSize int64
	// embedded overrides the process-wide mode when set
	embedded *bool
}

// StorageFilterDetectOption configures a StorageFilterDetect.
type StorageFilterDetectOption func(*StorageFilterDetect)

// WithMaxPackageSize limits the number of bytes read from the input stream. Zero disables the limit.
func WithMaxPackageSize(n int64) StorageFilterDetectOption {
	return func(d *StorageFilterDetect) { d.maxPackageSize = n }
}

// WithEmbedded pins the embedded mode instead of reading filterdetect.IsEmbedded per call.
func WithEmbedded(on bool) StorageFilterDetectOption {
	return func(d *StorageFilterDetect) { d.embedded = &on }
}

// NewStorageFilterDetect creates a detector.
func NewStorageFilterDetect(opts ...StorageFilterDetectOption) *StorageFilterDetect {
	d := &StorageFilterDetect{}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ImplementationName returns the service implementation name.
func (d *StorageFilterDetect) ImplementationName() string {
	return filterdetect.StorageFilterDetectImplementationName
}

// SupportedServiceNames returns the services this detector implements.
func (d *StorageFilterDetect) SupportedServiceNames() []string {
	out := make([]string, len(supportedServiceNames))
	copy(out, supportedServiceNames)
	return out
}

// SupportsService reports whether name is one of SupportedServiceNames.
func (d *StorageFilterDetect) SupportsService(name string) bool {
	for _, s := range supportedServiceNames {
		if s == name {
			return true
		}
	}
	return false
}

func (d *StorageFilterDetect) isEmbedded() bool {
	if d.embedded != nil {
		return *d.embedded
	}
	return filterdetect.IsEmbedded()
}

// Detect implements filterdetect.TypeDetector.
func (d *StorageFilterDetect) Detect(ctx context.Context, desc *filterdetect.MediaDescriptor) (string, error) {
	if desc == nil || desc.InputStream == nil {
		return "", nil
	}

	start := time.Now()
	typeName, err := d.detect(ctx, desc)
	outcome := "detected"
	switch {
	case err != nil && filterdetect.IsSevere(err):
		EmitDetection(ctx, "error", time.Since(start))
		return "", err
	case err != nil:
		zap.S().Debugw("storage detection failed", "url", desc.URL, "error", err)
		typeName = ""
		outcome = "failed"
	case typeName == "":
		outcome = "unrecognized"
	}
	EmitDetection(ctx, outcome, time.Since(start))
	return typeName, nil
}

func (d *StorageFilterDetect) detect(ctx context.Context, desc *filterdetect.MediaDescriptor) (string, error) {
	storage, err := OpenPackageStorage(ctx, desc.InputStream, d.maxPackageSize)
	if err != nil {
		if errors.Is(err, filterdetect.ErrNotPackage) {
			return "", nil
		}
		if _, broken := filterdetect.BrokenPackageCause(err); broken {
			return d.offerRepair(ctx, desc, err)
		}
		return "", err
	}

	mediaType := storage.MediaType()
	typeName := FormatForMediaType(mediaType, d.isEmbedded())
	if typeName == "" {
		zap.S().Debugw("unknown package media type", "media_type", mediaType)
	}
	return typeName, nil
}

// offerRepair runs the one-shot repair prompt for a broken package. Without a prior type name
// or a handler, or when a repair was already attempted or disallowed, it reports brokenErr.
func (d *StorageFilterDetect) offerRepair(ctx context.Context, desc *filterdetect.MediaDescriptor, brokenErr error) (string, error) {
	if desc.TypeName == "" || desc.InteractionHandler == nil || desc.RepairPackage || !desc.IsRepairAllowed() {
		return "", brokenErr
	}

	title := DocumentTitle(desc.URL)
	req := filterdetect.NewInteractionRequest(filterdetect.RequestRepairPackage, title)
	outcome := desc.InteractionHandler.Handle(ctx, req)
	zap.S().Infow("repair package prompt answered",
		"request_id", req.ID.String(), "document_title", title, "outcome", outcome.String())

	if err := ctx.Err(); err != nil {
		return "", err
	}

	if outcome == filterdetect.OutcomeApprove {
		desc.DocumentTitle = title
		desc.AsTemplate = !d.isEmbedded()
		desc.RepairPackage = true
		return desc.TypeName, nil
	}

	notify := filterdetect.NewInteractionRequest(filterdetect.RequestNotifyBrokenPackage, title)
	desc.InteractionHandler.Handle(ctx, notify)
	allowed := false
	desc.RepairAllowed = &allowed
	zap.S().Infow("broken package reported", "request_id", notify.ID.String(), "document_title", title)
	return "", nil
}
