package service

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/let-the-dreamers-rise/approval-rationale-tracker/config"
)

// MinerU task states
const (
	TaskStatePending    = "pending"
	TaskStateRunning    = "running"
	TaskStateConverting = "converting"
	TaskStateDone       = "done"
	TaskStateFailed     = "failed"
)

const maxZipBytes = 200 << 20

type MineruService struct {
	config     *config.MineruConfig
	httpClient *http.Client

	mu      sync.Mutex
	waiters map[string]chan TaskResult
}

// MineruTaskRequest represents the request to create an extraction task
type MineruTaskRequest struct {
	URL          string `json:"url"`
	ModelVersion string `json:"model_version"`
	Callback     string `json:"callback,omitempty"`
	Seed         string `json:"seed,omitempty"`
	DataID       string `json:"data_id,omitempty"`
}

// MineruTaskResponse represents the response from task creation
type MineruTaskResponse struct {
	Code    int    `json:"code"`
	Message string `json:"msg"`
	Data    struct {
		TaskID string `json:"task_id"`
	} `json:"data"`
}

// MineruTaskStatusResponse represents the task status query response
type MineruTaskStatusResponse struct {
	Code    int        `json:"code"`
	Message string     `json:"msg"`
	TraceID string     `json:"trace_id"`
	Data    TaskResult `json:"data"`
}

// TaskResult is the task state as reported by status polling or by the callback
type TaskResult struct {
	TaskID          string `json:"task_id"`
	DataID          string `json:"data_id"`
	State           string `json:"state"`
	FullZipURL      string `json:"full_zip_url,omitempty"`
	ErrorMsg        string `json:"err_msg,omitempty"`
	ExtractProgress struct {
		ExtractedPages int `json:"extracted_pages"`
		TotalPages     int `json:"total_pages"`
	} `json:"extract_progress,omitempty"`
	FullPages []TaskPage `json:"full_pages,omitempty"`
}

// TaskPage is one page of a callback result
type TaskPage struct {
	PageNo int    `json:"page_no"`
	MDURL  string `json:"md_url"`
}

// Finished reports whether the task reached a terminal state
func (r TaskResult) Finished() bool {
	return r.State == TaskStateDone || r.State == TaskStateFailed
}

// MineruCallbackPayload represents the callback payload from MinerU
type MineruCallbackPayload struct {
	Checksum string `json:"checksum"`
	Content  string `json:"content"`
}

func NewMineruService(cfg *config.MineruConfig) *MineruService {
	return &MineruService{
		config: cfg,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		waiters: make(map[string]chan TaskResult),
	}
}

// CreateTask creates a new extraction task for the document at pdfURL
func (s *MineruService) CreateTask(ctx context.Context, pdfURL, dataID string) (*MineruTaskResponse, error) {
	reqBody := MineruTaskRequest{
		URL:          pdfURL,
		ModelVersion: s.config.ModelVersion,
		DataID:       dataID,
	}

	if s.config.CallbackURL != "" {
		reqBody.Callback = s.config.CallbackURL
		reqBody.Seed = s.config.Seed
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.APIURL+"/extract/task", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.config.APIToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "*/*")

	var result MineruTaskResponse
	if err := s.do(req, &result); err != nil {
		return nil, err
	}
	if result.Code != 0 {
		return nil, fmt.Errorf("MinerU API error: %s", result.Message)
	}

	return &result, nil
}

// GetTaskStatus queries the status of a task
func (s *MineruService) GetTaskStatus(ctx context.Context, taskID string) (*MineruTaskStatusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/extract/task/%s", s.config.APIURL, taskID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.config.APIToken)
	req.Header.Set("Accept", "*/*")

	var result MineruTaskStatusResponse
	if err := s.do(req, &result); err != nil {
		return nil, err
	}
	if result.Code != 0 {
		return nil, fmt.Errorf("MinerU API error: %s", result.Message)
	}

	return &result, nil
}

func (s *MineruService) do(req *http.Request, out any) error {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	slog.Debug("mineru response", "url", req.URL.Path, "status", resp.StatusCode, "bytes", len(body))

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response (status %d): %w", resp.StatusCode, err)
	}
	return nil
}

// VerifyCallback verifies the callback checksum: SHA256(uid + seed + content)
func (s *MineruService) VerifyCallback(checksum, content string) bool {
	data := s.config.UID + s.config.Seed + content
	hash := sha256.Sum256([]byte(data))
	expected := hex.EncodeToString(hash[:])
	return checksum == expected
}

// Await registers interest in the callback for dataID. The returned channel receives at
// most one terminal result. release must be called once the caller stops waiting.
func (s *MineruService) Await(dataID string) (results <-chan TaskResult, release func()) {
	ch := make(chan TaskResult, 1)

	s.mu.Lock()
	s.waiters[dataID] = ch
	s.mu.Unlock()

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.waiters[dataID] == ch {
			delete(s.waiters, dataID)
		}
	}
}

// Deliver hands a callback result to its waiter. It reports false when nobody is
// waiting for result.DataID, for example after a restart or once polling already won.
func (s *MineruService) Deliver(result TaskResult) bool {
	if !result.Finished() {
		return true
	}

	s.mu.Lock()
	ch, ok := s.waiters[result.DataID]
	if ok {
		delete(s.waiters, result.DataID)
	}
	s.mu.Unlock()

	if !ok {
		return false
	}
	ch <- result
	return true
}

// FetchMarkdown returns the text of a finished task. The result ZIP is preferred;
// per-page markdown URLs from a callback are used when no ZIP is given.
func (s *MineruService) FetchMarkdown(ctx context.Context, result TaskResult) (string, error) {
	if result.FullZipURL != "" {
		return s.FetchZipAndExtractMarkdown(ctx, result.FullZipURL)
	}

	var pages []string
	for _, page := range result.FullPages {
		if page.MDURL == "" {
			continue
		}
		body, err := s.download(ctx, page.MDURL, maxZipBytes)
		if err != nil {
			return "", err
		}
		pages = append(pages, string(body))
	}
	if len(pages) == 0 {
		return "", fmt.Errorf("task %s finished without a result location", result.TaskID)
	}
	return MarkdownToText(strings.Join(pages, "\n\n")), nil
}

// FetchZipAndExtractMarkdown downloads the result ZIP and returns its full-text markdown
// as plain text. full.md is preferred, then any other .md file.
func (s *MineruService) FetchZipAndExtractMarkdown(ctx context.Context, zipURL string) (string, error) {
	zipData, err := s.download(ctx, zipURL, maxZipBytes)
	if err != nil {
		return "", err
	}
	slog.Debug("mineru zip downloaded", "bytes", len(zipData))

	zipReader, err := zip.NewReader(bytes.NewReader(zipData), int64(len(zipData)))
	if err != nil {
		return "", fmt.Errorf("failed to open ZIP: %w", err)
	}

	var fallback *zip.File
	for _, file := range zipReader.File {
		if path.Base(file.Name) == "full.md" {
			return readZipText(file)
		}
		if fallback == nil && strings.HasSuffix(strings.ToLower(file.Name), ".md") {
			fallback = file
		}
	}
	if fallback != nil {
		slog.Debug("mineru zip has no full.md, using fallback", "file", fallback.Name)
		return readZipText(fallback)
	}

	return "", fmt.Errorf("no markdown file found in ZIP")
}

func readZipText(file *zip.File) (string, error) {
	rc, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", file.Name, err)
	}
	defer rc.Close()

	content, err := io.ReadAll(io.LimitReader(rc, maxZipBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", file.Name, err)
	}
	return MarkdownToText(string(content)), nil
}

func (s *MineruService) download(ctx context.Context, url string, limit int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download result: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download result: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, fmt.Errorf("failed to read result: %w", err)
	}
	return data, nil
}

var (
	mdImage    = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	mdLink     = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	mdHeading  = regexp.MustCompile(`^\s{0,3}#{1,6}\s*`)
	mdEmphasis = regexp.MustCompile(`(\*\*|__)`)
	mdRule     = regexp.MustCompile(`^\s*([-*_]\s*){3,}$`)
	mdTableSep = regexp.MustCompile(`^\s*\|?\s*:?-{3,}:?\s*(\|\s*:?-{3,}:?\s*)*\|?\s*$`)
	htmlTag    = regexp.MustCompile(`<[^>]+>`)
)

// MarkdownToText strips the markdown syntax MinerU emits while keeping line structure,
// so section headers stay at the start of their lines.
func MarkdownToText(md string) string {
	lines := strings.Split(strings.ReplaceAll(md, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if mdRule.MatchString(line) || mdTableSep.MatchString(line) {
			continue
		}
		line = mdImage.ReplaceAllString(line, "")
		line = mdLink.ReplaceAllString(line, "$1")
		line = mdHeading.ReplaceAllString(line, "")
		line = mdEmphasis.ReplaceAllString(line, "")
		line = htmlTag.ReplaceAllString(line, " ")
		if strings.HasPrefix(strings.TrimSpace(line), "|") {
			line = strings.ReplaceAll(line, "|", " ")
		}
		out = append(out, strings.TrimRight(line, " \t"))
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
