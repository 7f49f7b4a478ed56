package testutil

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	telegram "github.com/go-telegram/bot"
)

type RecordedRequest struct {
	Path        string
	Method      string
	ContentType string
	Body        []byte
}

// TelegramClient stands in for the Bot API HTTP client and records every
// request it receives.
type TelegramClient struct {
	mu         sync.Mutex
	requests   []RecordedRequest
	Response   string
	StatusCode int
}

func NewTelegramClient() *TelegramClient {
	return &TelegramClient{
		Response:   `{"ok":true,"result":{}}`,
		StatusCode: http.StatusOK,
	}
}

// Fail makes every following call answer with a Bot API error.
func (m *TelegramClient) Fail(description string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StatusCode = http.StatusBadRequest
	m.Response = fmt.Sprintf(`{"ok":false,"error_code":400,"description":%q}`, description)
}

func (m *TelegramClient) Do(req *http.Request) (*http.Response, error) {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	if err := req.Body.Close(); err != nil {
		return nil, fmt.Errorf("failed to close request body: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, RecordedRequest{
		Path:        req.URL.Path,
		Method:      req.Method,
		ContentType: req.Header.Get("Content-Type"),
		Body:        body,
	})

	return &http.Response{
		StatusCode: m.StatusCode,
		Body:       io.NopCloser(strings.NewReader(m.Response)),
		Header:     make(http.Header),
	}, nil
}

func (m *TelegramClient) Requests() []RecordedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]RecordedRequest(nil), m.requests...)
}

// LastMessageText returns the "text" form field of the latest request.
func (m *TelegramClient) LastMessageText(t *testing.T) string {
	t.Helper()
	return m.LastField(t, "text")
}

// LastField returns a multipart form field of the latest request.
func (m *TelegramClient) LastField(t *testing.T, fieldName string) string {
	t.Helper()
	requests := m.Requests()
	if len(requests) == 0 {
		t.Fatalf("expected at least one recorded request")
	}
	req := requests[len(requests)-1]

	mediaType, params, err := mime.ParseMediaType(req.ContentType)
	if err != nil {
		t.Fatalf("failed to parse media type: %v", err)
	}
	if !strings.HasPrefix(mediaType, "multipart/") {
		t.Fatalf("unexpected media type: %s", mediaType)
	}

	reader := multipart.NewReader(bytes.NewReader(req.Body), params["boundary"])
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("failed to read multipart part: %v", err)
		}
		if part.FormName() == fieldName {
			data, err := io.ReadAll(part)
			if err != nil {
				t.Fatalf("failed to read multipart field: %v", err)
			}
			return string(data)
		}
	}
	t.Fatalf("field %q not found in request", fieldName)
	return ""
}

func NewTelegramBot(t *testing.T, client *TelegramClient) *telegram.Bot {
	t.Helper()
	b, err := telegram.New("test-token",
		telegram.WithSkipGetMe(),
		telegram.WithHTTPClient(time.Second, client),
	)
	if err != nil {
		t.Fatalf("failed to create test bot: %v", err)
	}
	return b
}
