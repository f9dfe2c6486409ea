package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"telegram-english-tutor/internal/domain/ports/adapter"
)

var _ adapter.Synthesizer = (*CoquiAdapter)(nil)

var (
	emojiRe = regexp.MustCompile(`[\x{1F300}-\x{1FAFF}\x{2600}-\x{27BF}\x{24C2}-\x{1F251}]+`)
	lotOfRe = regexp.MustCompile(`(?i)\blot of\b`)
	laterRe = regexp.MustCompile(`(?i)\blater\b`)
)

// CoquiAdapter implements adapter.Synthesizer against a Coqui TTS server
// (GET /api/tts?text=... returns audio/wav). Emoji are stripped before
// synthesis; the engine reads them out loud otherwise.
type CoquiAdapter struct {
	base    string
	speaker string
	client  *http.Client
}

func NewCoquiAdapter(base string, timeout time.Duration) (*CoquiAdapter, error) {
	if base == "" {
		return nil, errors.New("tts base url empty")
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &CoquiAdapter{
		base:    strings.TrimRight(base, "/"),
		speaker: "p260",
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func (c *CoquiAdapter) Synthesize(ctx context.Context, text string) ([]byte, error) {
	clean := strings.TrimSpace(emojiRe.ReplaceAllString(text, ""))
	if clean == "" {
		return nil, errors.New("nothing to synthesize")
	}

	q := url.Values{}
	q.Set("text", clean)
	q.Set("speaker_id", c.speaker)

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/api/tts?"+q.Encode(), nil)
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("tts http %d", resp.StatusCode)
	}
	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if len(audio) == 0 {
		return nil, errors.New("empty audio from tts")
	}
	return audio, nil
}
