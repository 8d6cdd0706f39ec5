package recognition

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	defError "errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrUnavailable is returned when a capability has no configured service.
var ErrUnavailable = defError.New("recognition service unavailable")

// Client reaches the OCR and summarization services. Either base URL may be
// empty, in which case that capability reports ErrUnavailable.
type Client struct {
	ocrURL     string
	summaryURL string
	httpClient *http.Client
}

func NewClient(ocrURL, summaryURL string) *Client {
	return &Client{
		ocrURL:     strings.TrimRight(ocrURL, "/"),
		summaryURL: strings.TrimRight(summaryURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) CanRecognize() bool {
	return c != nil && c.ocrURL != ""
}

func (c *Client) CanSummarize() bool {
	return c != nil && c.summaryURL != ""
}

type recognizeRequest struct {
	Content string `json:"content"`
}

type recognizeResponse struct {
	Text string `json:"text"`
}

// Recognize extracts the text of a PDF.
func (c *Client) Recognize(ctx context.Context, pdf []byte) (string, error) {
	if !c.CanRecognize() {
		return "", ErrUnavailable
	}

	var out recognizeResponse
	err := c.post(ctx, c.ocrURL+"/recognize", recognizeRequest{
		Content: base64.StdEncoding.EncodeToString(pdf),
	}, &out)
	if err != nil {
		return "", err
	}
	return out.Text, nil
}

type summarizeRequest struct {
	Prompt string `json:"prompt"`
}

type summarizeResponse struct {
	Summary string `json:"summary"`
}

func (c *Client) Summarize(ctx context.Context, prompt string) (string, error) {
	if !c.CanSummarize() {
		return "", ErrUnavailable
	}

	var out summarizeResponse
	if err := c.post(ctx, c.summaryURL+"/summarize", summarizeRequest{Prompt: prompt}, &out); err != nil {
		return "", err
	}
	return out.Summary, nil
}

func (c *Client) post(ctx context.Context, url string, payload, dest any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf(
			"recognition service error: url=%s status=%d body=%s",
			url,
			resp.StatusCode,
			string(b),
		)
	}

	return json.NewDecoder(resp.Body).Decode(dest)
}
