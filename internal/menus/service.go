package menus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"coop-site/internal/shared/metrics"
	"coop-site/internal/shared/storage/object"
	"coop-site/internal/shared/telemetry"
	"coop-site/internal/shared/util"
)

const (
	pdfMediaType          = "application/pdf"
	defaultCleanupTimeout = 10 * time.Second
)

var tracer = otel.Tracer("coop-site/internal/menus")

// Options configures the upload pipeline.
type Options struct {
	UploadsEnabled bool
	VerifyPDF      bool
	CleanupTimeout time.Duration
}

// UploadInput is one upload request as received from the transport.
// A nil Body means the file part was missing. Size is the declared size,
// or a negative value when unknown.
type UploadInput struct {
	Week        string
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// CleanupOutcome describes what happened to a replaced file.
type CleanupOutcome string

const (
	CleanupRemoved CleanupOutcome = "removed"
	CleanupSkipped CleanupOutcome = "skipped"
	CleanupFailed  CleanupOutcome = "failed"
)

// CleanupResult reports a best-effort deletion. It is logged and counted,
// never returned to the uploader.
type CleanupResult struct {
	Week      int
	Reference object.Reference
	Outcome   CleanupOutcome
	Err       error
}

// Service runs uploads: validate, store, record, then clean up the replaced file.
type Service struct {
	Backend object.Backend
	Repo    Repo

	// OnCleanup, when set, receives every cleanup outcome.
	OnCleanup func(CleanupResult)

	opts    Options
	now     func() time.Time
	cleanup sync.WaitGroup
}

// NewService constructs a Service.
func NewService(backend object.Backend, repo Repo, opts Options) *Service {
	if opts.CleanupTimeout <= 0 {
		opts.CleanupTimeout = defaultCleanupTimeout
	}
	return &Service{Backend: backend, Repo: repo, opts: opts, now: time.Now}
}

// UploadsEnabled reports whether the pipeline accepts uploads at all.
func (s *Service) UploadsEnabled() bool {
	return s.opts.UploadsEnabled
}

// Wait blocks until background cleanups have finished.
func (s *Service) Wait() {
	s.cleanup.Wait()
}

// Upload validates, stores and records a menu file for one week.
func (s *Service) Upload(ctx context.Context, in UploadInput) (Slot, error) {
	ctx, span := tracer.Start(ctx, "menus.Upload")
	defer span.End()
	start := s.now()

	slot, err := s.upload(ctx, in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if isRejection(err) {
			metrics.IncUploadRejected()
		} else {
			metrics.IncUploadFailed()
		}
		return Slot{}, err
	}
	span.SetAttributes(attribute.Int("menu.week", slot.Week))
	metrics.IncUploadStored()
	metrics.ObserveUploadDurationMs(float64(s.now().Sub(start).Microseconds()) / 1000.0)
	return slot, nil
}

func (s *Service) upload(ctx context.Context, in UploadInput) (Slot, error) {
	if !s.opts.UploadsEnabled {
		return Slot{}, ErrUploadsDisabled
	}
	if in.Body == nil || strings.TrimSpace(in.Week) == "" {
		return Slot{}, ErrMissingField
	}
	week, err := ParseWeek(in.Week)
	if err != nil {
		return Slot{}, err
	}
	if err := checkMediaType(in.ContentType); err != nil {
		return Slot{}, err
	}
	if in.Size > object.MaxObjectBytes {
		return Slot{}, fmt.Errorf("%w: declared %d bytes", ErrTooLarge, in.Size)
	}
	data, err := io.ReadAll(io.LimitReader(in.Body, object.MaxObjectBytes+1))
	if err != nil {
		return Slot{}, fmt.Errorf("%w: read upload: %v", ErrMissingField, err)
	}
	if len(data) == 0 {
		return Slot{}, ErrMissingField
	}
	if len(data) > object.MaxObjectBytes {
		return Slot{}, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, object.MaxObjectBytes)
	}
	if s.opts.VerifyPDF {
		if _, err := inspectPDF(data); err != nil {
			return Slot{}, fmt.Errorf("%w: %v", ErrUnsupportedType, err)
		}
	}

	ref, err := s.store(ctx, data, in.FileName, week)
	if err != nil {
		return Slot{}, err
	}
	return s.record(ctx, week, displayName(in.FileName, ref), ref)
}

func (s *Service) store(ctx context.Context, data []byte, fileName string, week int) (object.Reference, error) {
	ctx, span := tracer.Start(ctx, "menus.store")
	defer span.End()
	span.SetAttributes(attribute.String("storage.backend", s.Backend.Name()), attribute.Int("menu.size", len(data)))

	ref, err := s.Backend.Store(ctx, data, fileName, week)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, object.ErrTooLarge) {
			return object.Reference{}, fmt.Errorf("%w: %v", ErrTooLarge, err)
		}
		telemetry.Error("menu.upload.store_failed", map[string]any{
			"week":    week,
			"backend": s.Backend.Name(),
			"error":   err,
		})
		return object.Reference{}, fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}
	return ref, nil
}

func (s *Service) record(ctx context.Context, week int, fileName string, ref object.Reference) (Slot, error) {
	ctx, span := tracer.Start(ctx, "menus.record")
	defer span.End()

	previous, prevErr := s.Repo.Get(ctx, week)
	if prevErr != nil && !errors.Is(prevErr, ErrNotFound) {
		telemetry.Warn("menu.upload.previous_unreadable", map[string]any{
			"week":  week,
			"error": prevErr,
		})
	}

	saved, err := s.Repo.Upsert(ctx, Slot{
		Week:      week,
		FileName:  fileName,
		FilePath:  ref.Path,
		RemoteURL: ref.URL,
		UpdatedAt: s.now().UTC(),
	})
	if err != nil {
		span.RecordError(err)
		telemetry.Error("menu.upload.record_failed", map[string]any{
			"week":  week,
			"path":  ref.Path,
			"error": err,
		})
		// the previous record still points at ref when the name is fixed
		if prevErr != nil || !previous.Reference().Equal(ref) {
			s.rollback(ctx, week, ref)
		}
		return Slot{}, fmt.Errorf("%w: %w", ErrRecordFailure, err)
	}

	telemetry.Info("menu.upload.recorded", map[string]any{
		"week":    week,
		"backend": s.Backend.Name(),
		"path":    saved.FilePath,
	})
	if prevErr == nil && !previous.IsPlaceholder() && !previous.Reference().Equal(ref) {
		s.cleanupAsync(week, previous.Reference())
	}
	return saved, nil
}

// rollback removes a file that was stored but could not be recorded.
func (s *Service) rollback(ctx context.Context, week int, ref object.Reference) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.CleanupTimeout)
	defer cancel()
	if err := s.Backend.Remove(ctx, ref); err != nil && !errors.Is(err, object.ErrNotOwned) {
		metrics.IncCleanupFailed()
		telemetry.Warn("menu.upload.rollback_failed", map[string]any{
			"week":  week,
			"path":  ref.Path,
			"error": err,
		})
	}
}

func (s *Service) cleanupAsync(week int, ref object.Reference) {
	s.cleanup.Add(1)
	go func() {
		defer s.cleanup.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.opts.CleanupTimeout)
		defer cancel()
		s.report(s.removeReplaced(ctx, week, ref))
	}()
}

func (s *Service) removeReplaced(ctx context.Context, week int, ref object.Reference) CleanupResult {
	res := CleanupResult{Week: week, Reference: ref, Outcome: CleanupRemoved}
	err := s.Backend.Remove(ctx, ref)
	switch {
	case err == nil:
	case errors.Is(err, object.ErrNotOwned):
		res.Outcome = CleanupSkipped
	default:
		res.Outcome = CleanupFailed
		res.Err = err
	}
	return res
}

func (s *Service) report(res CleanupResult) {
	fields := map[string]any{
		"week":    res.Week,
		"path":    res.Reference.Path,
		"outcome": string(res.Outcome),
	}
	if res.Err != nil {
		fields["error"] = res.Err
		metrics.IncCleanupFailed()
		telemetry.Warn("menu.cleanup", fields)
	} else {
		telemetry.Info("menu.cleanup", fields)
	}
	if s.OnCleanup != nil {
		s.OnCleanup(res)
	}
}

func checkMediaType(contentType string) error {
	if strings.TrimSpace(contentType) == "" {
		return fmt.Errorf("%w: no content type", ErrUnsupportedType)
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupportedType, err)
	}
	if mediaType != pdfMediaType {
		return fmt.Errorf("%w: %s", ErrUnsupportedType, mediaType)
	}
	return nil
}

// displayName is the uploader's file name without any directory part.
func displayName(fileName string, ref object.Reference) string {
	name := strings.TrimSpace(strings.ReplaceAll(fileName, "\\", "/"))
	name = path.Base(name)
	if name == "." || name == "/" || name == "" {
		if sanitized, err := util.SanitizeFileName(ref.Path); err == nil {
			return sanitized
		}
		return "menu.pdf"
	}
	return name
}
