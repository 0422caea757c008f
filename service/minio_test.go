package service

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/let-the-dreamers-rise/approval-rationale-tracker/config"
)

func TestNewMinioService(t *testing.T) {
	cfg := &config.MinioConfig{
		Endpoint:  "localhost:9000",
		AccessKey: "test",
		SecretKey: "test",
		Bucket:    "test",
		Region:    "us-east-1",
	}

	svc, err := NewMinioService(cfg)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if svc.bucket != "test" {
		t.Errorf("Expected bucket test, got %s", svc.bucket)
	}
}

func TestNewMinioServiceInvalidEndpoint(t *testing.T) {
	_, err := NewMinioService(&config.MinioConfig{Endpoint: "http://localhost:9000/path"})
	if err == nil {
		t.Error("Expected error for endpoint with scheme and path")
	}
}

func TestMinioServiceGetPresignedURL(t *testing.T) {
	// presigning is computed locally when the region is known
	svc, err := NewMinioService(&config.MinioConfig{
		Endpoint:   "localhost:9000",
		AccessKey:  "access",
		SecretKey:  "secret",
		Bucket:     "credit-memos",
		Region:     "us-east-1",
		ExpireDays: 7,
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	raw, err := svc.GetPresignedURL(context.Background(), "imports/42/memo.pdf")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("Invalid URL %q: %v", raw, err)
	}
	if u.Path != "/credit-memos/imports/42/memo.pdf" {
		t.Errorf("Unexpected path %s", u.Path)
	}
	q := u.Query()
	if q.Get("X-Amz-Expires") != "604800" {
		t.Errorf("Expected 7 day expiry, got %s", q.Get("X-Amz-Expires"))
	}
	if q.Get("X-Amz-Signature") == "" {
		t.Error("Expected a signature")
	}
}

func TestDocumentObjectName(t *testing.T) {
	tests := []struct {
		name      string
		requestID string
		filename  string
		expected  string
	}{
		{"plain", "42", "memo.pdf", "imports/42/memo.pdf"},
		{"spaces", "42", "Credit Memo Q3.pdf", "imports/42/Credit_Memo_Q3.pdf"},
		{"path traversal", "42", "../../etc/passwd.pdf", "imports/42/passwd.pdf"},
		{"windows path", "42", `C:\docs\memo.pdf`, "imports/42/memo.pdf"},
		{"nothing left", "42", "///", "imports/42/document.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DocumentObjectName(tt.requestID, tt.filename)
			if got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
			if strings.Contains(got, "..") {
				t.Errorf("Object name %q escapes its prefix", got)
			}
		})
	}
}

func TestMinioServiceUploadFileCancelledContext(t *testing.T) {
	svc, err := NewMinioService(&config.MinioConfig{
		Endpoint:  "localhost:1",
		AccessKey: "test",
		SecretKey: "test",
		Bucket:    "test",
		Region:    "us-east-1",
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = svc.UploadFile(ctx, "test", strings.NewReader("test"), 4, "text/plain")
	if err == nil {
		t.Error("Expected error for cancelled context")
	}
}
