package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/let-the-dreamers-rise/approval-rationale-tracker/config"
	"github.com/let-the-dreamers-rise/approval-rationale-tracker/pkg/logger"
)

// Document is an uploaded file awaiting text extraction
type Document struct {
	RequestID   string
	Filename    string
	ContentType string
	Data        []byte
}

// DocumentTextExtractor turns a document into plain text. Failures are *ExtractionFailure.
type DocumentTextExtractor interface {
	ExtractText(ctx context.Context, doc Document) (string, error)
}

// DocumentArchive stores documents where the extraction service can fetch them
type DocumentArchive interface {
	ArchiveDocument(ctx context.Context, doc Document) (objectName, url string, err error)
	DeleteFile(ctx context.Context, objectName string) error
}

var pdfMagic = []byte("%PDF-")

// ValidatePDF accepts only non-empty documents that are PDFs by name and by content
func ValidatePDF(doc Document) error {
	if strings.ToLower(filepath.Ext(doc.Filename)) != ".pdf" {
		return newFailure(ReasonInvalidFormat, fmt.Errorf("unsupported file %q", doc.Filename))
	}
	if len(doc.Data) == 0 {
		return newFailure(ReasonUnreadable, errors.New("document is empty"))
	}
	if !bytes.HasPrefix(doc.Data, pdfMagic) {
		detected := http.DetectContentType(doc.Data)
		return newFailure(ReasonInvalidFormat, fmt.Errorf("content detected as %s", detected))
	}
	return nil
}

// MineruExtractor extracts text by archiving the document to object storage and
// running a MinerU task on it. The result arrives by polling or by callback,
// whichever comes first.
type MineruExtractor struct {
	archive      DocumentArchive
	mineru       *MineruService
	pollInterval time.Duration
	maxAttempts  int
}

func NewMineruExtractor(archive DocumentArchive, mineru *MineruService, cfg config.ExtractionConfig) *MineruExtractor {
	interval := time.Duration(cfg.PollIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}
	attempts := cfg.MaxPollAttempts
	if attempts <= 0 {
		attempts = 60
	}
	return &MineruExtractor{
		archive:      archive,
		mineru:       mineru,
		pollInterval: interval,
		maxAttempts:  attempts,
	}
}

func (e *MineruExtractor) ExtractText(ctx context.Context, doc Document) (string, error) {
	if err := ValidatePDF(doc); err != nil {
		return "", err
	}
	log := logger.WithContext(ctx)

	objectName, url, err := e.archive.ArchiveDocument(ctx, doc)
	if err != nil {
		return "", newFailure(ReasonUnreadable, err)
	}
	log.Info("document archived", "object", objectName, "bytes", len(doc.Data))

	callbacks, release := e.mineru.Await(doc.RequestID)
	defer release()

	task, err := e.mineru.CreateTask(ctx, url, doc.RequestID)
	if err != nil {
		e.discard(ctx, objectName)
		return "", newFailure(ReasonUnparseable, err)
	}
	log.Info("mineru task created", "task_id", task.Data.TaskID)

	result, err := e.wait(ctx, task.Data.TaskID, callbacks)
	if err != nil {
		e.discard(ctx, objectName)
		return "", newFailure(ReasonUnparseable, err)
	}
	if result.State == TaskStateFailed {
		e.discard(ctx, objectName)
		return "", newFailure(ReasonUnparseable, fmt.Errorf("mineru task %s failed: %s", result.TaskID, result.ErrorMsg))
	}

	text, err := e.mineru.FetchMarkdown(ctx, result)
	if err != nil {
		return "", newFailure(ReasonUnparseable, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", newFailure(ReasonEmptyResult, errors.New("extraction produced no text"))
	}
	return text, nil
}

func (e *MineruExtractor) wait(ctx context.Context, taskID string, callbacks <-chan TaskResult) (TaskResult, error) {
	log := logger.WithContext(ctx)
	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for attempt := 0; attempt < e.maxAttempts; {
		select {
		case <-ctx.Done():
			return TaskResult{}, ctx.Err()

		case result := <-callbacks:
			log.Info("mineru result received by callback", "task_id", taskID, "state", result.State)
			return result, nil

		case <-ticker.C:
			attempt++
			status, err := e.mineru.GetTaskStatus(ctx, taskID)
			if err != nil {
				log.Warn("mineru poll failed", "task_id", taskID, "attempt", attempt, "error", err)
				continue
			}
			if status.Data.Finished() {
				log.Info("mineru result received by polling", "task_id", taskID, "state", status.Data.State, "attempt", attempt)
				return status.Data, nil
			}
			if p := status.Data.ExtractProgress; p.TotalPages > 0 {
				log.Debug("mineru progress", "task_id", taskID, "pages", p.ExtractedPages, "total", p.TotalPages)
			}
		}
	}

	return TaskResult{}, fmt.Errorf("mineru task %s not finished after %d polls", taskID, e.maxAttempts)
}

func (e *MineruExtractor) discard(ctx context.Context, objectName string) {
	if err := e.archive.DeleteFile(context.WithoutCancel(ctx), objectName); err != nil {
		logger.Warn(ctx, "failed to remove archived document", "object", objectName, "error", err)
	}
}
