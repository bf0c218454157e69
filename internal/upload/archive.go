package upload

import (
	"bytes"
	"context"
	"encoding/base64"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hackcomp/grading-api/internal/logger"
)

// BundleArchive keeps content addressed copies of dispatched grading bundles
// so any sandbox run can be replayed after the fact. Archival is best effort
// and must never fail a grading run.
type BundleArchive struct {
	uploader Uploader
}

func NewBundleArchive(uploader Uploader) *BundleArchive {
	return &BundleArchive{uploader: uploader}
}

// ArchiveBundle decodes the transport encoding and uploads the raw zip under
// its content hash. Duplicate submissions dedupe for free.
func (a *BundleArchive) ArchiveBundle(ctx context.Context, team string, problem int, encoded []byte) {
	ctx, span := tracer.Start(ctx, "BundleArchive.ArchiveBundle", trace.WithAttributes(
		attribute.String("team", team),
		attribute.Int("problem", problem),
	))
	defer span.End()

	raw, err := base64.StdEncoding.AppendDecode(nil, encoded)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to decode bundle")
		logger.Logger.WarnContext(ctx, "skipping bundle archival, bundle is not valid base64",
			"team", team,
			"problem", problem,
			"error", err,
		)
		return
	}

	name, err := Hashed(ctx, a.uploader, bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to upload bundle")
		logger.Logger.WarnContext(ctx, "failed to archive bundle",
			"team", team,
			"problem", problem,
			"error", err,
		)
		return
	}

	span.AddEvent("archived", trace.WithAttributes(attribute.String("object", name)))
	span.RecordError(nil)
	span.SetStatus(codes.Ok, "archived bundle")
}
