// Package advicesvc holds the text-generation clients behind the advice service.
package advicesvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"

	"github.com/trezcool/educonnect/core"
	"github.com/trezcool/educonnect/core/advice"
)

var (
	// errors
	ErrMissingCredential = errors.New("missing Gemini API key")
	errEmptyAnswer       = errors.New("empty answer")
)

const (
	retryWaitMin = 200 * time.Millisecond
	retryWaitMax = 2 * time.Second
)

// GeminiClient generates advice with the Gemini generateContent REST API.
type GeminiClient struct {
	client  *http.Client
	baseURL string
	model   string
	apiKey  string
}

var _ advice.Generator = (*GeminiClient)(nil)

func NewGeminiClient(conf core.AdviceConfig) *GeminiClient {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = conf.RetryMax
	retryClient.RetryWaitMin = retryWaitMin
	retryClient.RetryWaitMax = retryWaitMax
	retryClient.HTTPClient.Timeout = conf.Timeout
	retryClient.Logger = nil
	// retry on connection errors, 429 and 5xx only
	retryClient.CheckRetry = retryablehttp.DefaultRetryPolicy

	return &GeminiClient{
		client:  retryClient.StandardClient(),
		baseURL: strings.TrimRight(conf.BaseURL, "/"),
		model:   conf.Model,
		apiKey:  conf.APIKey,
	}
}

type (
	part struct {
		Text string `json:"text"`
	}
	content struct {
		Role  string `json:"role,omitempty"`
		Parts []part `json:"parts"`
	}
	generateRequest struct {
		Contents []content `json:"contents"`
	}
	generateResponse struct {
		Candidates []struct {
			Content content `json:"content"`
		} `json:"candidates"`
	}
	errorResponse struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}
)

func (c *GeminiClient) GenerateAdvice(ctx context.Context, studentName string, subjects []advice.Subject) (string, error) {
	if c.apiKey == "" {
		return "", ErrMissingCredential
	}

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: advice.Prompt(studentName, subjects)}}}},
	})
	if err != nil {
		return "", errors.Wrap(err, "encoding request")
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(c.model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "creating request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "sending request")
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "reading response")
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr errorResponse
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error.Message != "" {
			return "", errors.Errorf("gemini: %d %s: %s", resp.StatusCode, apiErr.Error.Status, apiErr.Error.Message)
		}
		return "", errors.Errorf("gemini: unexpected status %d", resp.StatusCode)
	}

	var genResp generateResponse
	if err = json.Unmarshal(data, &genResp); err != nil {
		return "", errors.Wrap(err, "decoding response")
	}
	var sb strings.Builder
	for _, cand := range genResp.Candidates {
		for _, p := range cand.Content.Parts {
			sb.WriteString(p.Text)
		}
		if sb.Len() > 0 {
			break
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", errEmptyAnswer
	}
	return text, nil
}
