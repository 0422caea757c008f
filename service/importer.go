package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/let-the-dreamers-rise/approval-rationale-tracker/model"
	"github.com/let-the-dreamers-rise/approval-rationale-tracker/pkg/id"
	"github.com/let-the-dreamers-rise/approval-rationale-tracker/pkg/logger"
)

const (
	noticeNoRationales      = "No approval rationales were found in the document."
	noticeExtractionFailure = "The document could not be processed."
	unspecifiedBorrower     = "BRW-UNSPECIFIED"
	defaultImportTimeout    = 10 * time.Minute
)

// Importer turns documents and raw text into an extracted loan. Every import gets a
// request id; only the most recent request may change the cockpit.
type Importer struct {
	cockpit   *CockpitStore
	extractor DocumentTextExtractor
	ids       *id.Generator
	timeout   time.Duration
	now       func() time.Time

	mu     sync.Mutex // guards latest and cancel, orders resolutions with new requests
	latest int64
	cancel context.CancelFunc // cancels the latest background extraction
	wg     sync.WaitGroup

	base context.Context // cancelled by Close
	stop context.CancelFunc
}

// NewImporter creates an importer. A nil extractor disables document imports;
// text imports keep working.
func NewImporter(cockpit *CockpitStore, extractor DocumentTextExtractor, ids *id.Generator) *Importer {
	base, stop := context.WithCancel(context.Background())
	return &Importer{
		cockpit:   cockpit,
		extractor: extractor,
		ids:       ids,
		timeout:   defaultImportTimeout,
		now:       time.Now,
		base:      base,
		stop:      stop,
	}
}

// DocumentsEnabled reports whether ImportDocument can run
func (i *Importer) DocumentsEnabled() bool {
	return i.extractor != nil
}

// ImportDocument validates doc, flags the cockpit as extracting and extracts in the
// background. Invalid documents are rejected before any state changes.
func (i *Importer) ImportDocument(ctx context.Context, doc Document) (string, error) {
	if i.extractor == nil {
		return "", NewUserError("Document import is not available.", ErrImportUnavailable)
	}
	if err := ValidatePDF(doc); err != nil {
		extractionOutcomes.WithLabelValues("rejected").Inc()
		return "", err
	}

	bg := context.WithoutCancel(ctx)
	reqID, extractCtx := i.beginBackground(bg)
	doc.RequestID = strconv.FormatInt(reqID, 10)
	extractCtx = logger.WithExtractionID(extractCtx, doc.RequestID)

	i.wg.Add(1)
	go func() {
		defer i.wg.Done()
		ctx, cancel := context.WithTimeout(extractCtx, i.timeout)
		defer cancel()

		logger.Info(ctx, "document extraction started", "filename", doc.Filename, "bytes", len(doc.Data))
		text, err := i.extractor.ExtractText(ctx, doc)
		_, _ = i.resolve(ctx, reqID, text, err)
	}()

	return doc.RequestID, nil
}

// ImportText resolves raw text as an import, synchronously
func (i *Importer) ImportText(ctx context.Context, text string) (model.CockpitState, error) {
	reqID := i.begin(ctx)
	ctx = logger.WithExtractionID(ctx, strconv.FormatInt(reqID, 10))
	return i.resolve(ctx, reqID, text, nil)
}

// Wait blocks until background extractions have resolved
func (i *Importer) Wait() {
	i.wg.Wait()
}

// Clear resets the cockpit. An extraction still in flight is cancelled and its
// result discarded.
func (i *Importer) Clear(ctx context.Context) model.CockpitState {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.invalidate()
	return i.cockpit.Dispatch(ctx, ClearState{})
}

// Close cancels in-flight extractions without touching the cockpit and waits for
// them to return.
func (i *Importer) Close() {
	i.mu.Lock()
	i.invalidate()
	i.mu.Unlock()

	i.stop()
	i.wg.Wait()
}

// invalidate drops the latest request. Callers hold i.mu.
func (i *Importer) invalidate() {
	i.latest = 0
	if i.cancel != nil {
		i.cancel()
		i.cancel = nil
	}
}

func (i *Importer) begin(ctx context.Context) int64 {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.beginLocked(ctx)
}

// beginBackground starts a request whose extraction runs under a context that Clear
// and Close can cancel. ctx only contributes values.
func (i *Importer) beginBackground(ctx context.Context) (int64, context.Context) {
	i.mu.Lock()
	defer i.mu.Unlock()

	reqID := i.beginLocked(ctx)
	extractCtx, cancel := context.WithCancel(ctx)
	stopAfter := context.AfterFunc(i.base, cancel)
	i.cancel = func() {
		stopAfter()
		cancel()
	}
	return reqID, extractCtx
}

// beginLocked supersedes any outstanding request. Callers hold i.mu.
func (i *Importer) beginLocked(ctx context.Context) int64 {
	i.invalidate()
	reqID := i.ids.Next()
	i.latest = reqID
	i.cockpit.Dispatch(ctx, SetExtracting{Value: true})
	return reqID
}

func (i *Importer) resolve(ctx context.Context, reqID int64, text string, extractErr error) (model.CockpitState, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if reqID != i.latest {
		staleExtractions.Inc()
		logger.Warn(ctx, "discarding superseded extraction result", "latest", i.latest)
		return model.CockpitState{}, ErrStaleExtraction
	}

	err := extractErr
	if err == nil && strings.TrimSpace(text) == "" {
		err = newFailure(ReasonEmptyResult, errors.New("extracted text is empty"))
	}

	var pending []model.PendingRationale
	now := i.now()
	if err == nil {
		pending = ExtractRationales(text, now)
		if len(pending) == 0 {
			err = NewUserError(noticeNoRationales, ErrNoRationalesFound)
		}
	}

	if err != nil {
		extractionOutcomes.WithLabelValues("failed").Inc()
		logger.Warn(ctx, "import failed", "error", err)
		i.cockpit.Dispatch(ctx, ExtractionError{})
		i.cockpit.SetNotice(NoticeExtraction, "error", UserMessage(err, noticeExtractionFailure))
		return i.cockpit.State(), err
	}

	loan := BuildLoanInfo(reqID, ExtractLoanMetadata(text), now)
	ctx = logger.WithLoanID(ctx, loan.ID)
	state := i.cockpit.Dispatch(ctx, StartExtraction{Loan: loan, Pending: pending})
	i.cockpit.ClearNotice(NoticeExtraction)
	extractionOutcomes.WithLabelValues("success").Inc()
	logger.Info(ctx, "import resolved", "pending", len(pending))
	return state, nil
}

// BuildLoanInfo derives the loan identity for an import. The borrower name is reduced
// to a hash-based reference and the approval date defaults to today (UTC).
func BuildLoanInfo(reqID int64, meta model.LoanMetadata, now time.Time) model.LoanInfo {
	approval := startOfDayUTC(now)
	if meta.ApprovalDate != nil {
		approval = startOfDayUTC(*meta.ApprovalDate)
	}
	return model.LoanInfo{
		ID:                "LN-" + strconv.FormatInt(reqID, 10),
		ApprovalDate:      approval,
		BorrowerReference: BorrowerReference(meta.Borrower),
	}
}

// BorrowerReference anonymizes a borrower name
func BorrowerReference(borrower string) string {
	name := strings.ToLower(normalizeWhitespace(borrower))
	if name == "" {
		return unspecifiedBorrower
	}
	sum := sha256.Sum256([]byte(name))
	return "BRW-" + strings.ToUpper(hex.EncodeToString(sum[:])[:8])
}

func startOfDayUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
