package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"telegram-english-tutor/internal/domain/ports/adapter"
)

var _ adapter.Transcriber = (*WhisperAdapter)(nil)

// WhisperAdapter implements adapter.Transcriber against a whisper.cpp style
// HTTP server: multipart POST to /inference, JSON response with a "text"
// field. The bias prompt nudges recognition toward tutoring vocabulary.
type WhisperAdapter struct {
	base   string
	client *http.Client
}

const biasPrompt = "English tutoring dialogue. Common words and phrases: latte, cappuccino, espresso, " +
	"americano, menu, order, coffee, tea, bill, to go, stay here, recommendation."

func NewWhisperAdapter(base string, timeout time.Duration) (*WhisperAdapter, error) {
	if base == "" {
		return nil, errors.New("whisper base url empty")
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &WhisperAdapter{
		base:   strings.TrimRight(base, "/"),
		client: &http.Client{Timeout: timeout},
	}, nil
}

func (w *WhisperAdapter) Transcribe(ctx context.Context, audio []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "voice.ogg")
	if err != nil {
		return "", err
	}
	if _, err := fw.Write(audio); err != nil {
		return "", err
	}
	_ = mw.WriteField("initial_prompt", biasPrompt)
	_ = mw.WriteField("language", "en")
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, w.base+"/inference", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := w.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("whisper http %d", resp.StatusCode)
	}
	var payload struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	return postprocessTranscript(payload.Text), nil
}

// postprocessTranscript fixes recognition slips common in cafe role-play
// ("lot of" / "later" heard instead of "latte").
func postprocessTranscript(text string) string {
	cleaned := strings.TrimSpace(text)
	lower := strings.ToLower(cleaned)
	inCafeContext := strings.Contains(lower, "coffee") ||
		strings.Contains(lower, "order") ||
		strings.Contains(lower, "cafe")
	if inCafeContext {
		if strings.Contains(lower, "lot of") {
			cleaned = lotOfRe.ReplaceAllString(cleaned, "latte")
		}
		if strings.Contains(lower, "later") {
			cleaned = laterRe.ReplaceAllString(cleaned, "latte")
		}
	}
	return cleaned
}
