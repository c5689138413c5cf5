// Package gemini implements the vision, image-generation and video-
// generation clients against the Gemini REST API.
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com"

	// DefaultAnalysisModel is used for bounding box and metadata analysis.
	DefaultAnalysisModel = "gemini-2.0-flash"
	// DefaultRestorationModel is the image-output model used for restoration.
	DefaultRestorationModel = "gemini-3-pro-image-preview"
	// DefaultVideoModel animates restored photos.
	DefaultVideoModel = "veo-3.1-generate-preview"
)

// Client calls the Gemini REST API. The API key is held by the client
// instance; it is never read from ambient process state.
type Client struct {
	apiKey           string
	baseURL          string
	analysisModel    string
	restorationModel string
	videoModel       string
	pollInterval     time.Duration
	httpClient       *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint, mainly for tests.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(url, "/") }
}

// WithModels overrides the default model names.
func WithModels(analysis, restoration, video string) Option {
	return func(c *Client) {
		if analysis != "" {
			c.analysisModel = analysis
		}
		if restoration != "" {
			c.restorationModel = restoration
		}
		if video != "" {
			c.videoModel = video
		}
	}
}

// WithPollInterval overrides the video operation poll interval.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) { c.pollInterval = d }
}

// NewClient creates a Gemini client with the given API key.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	c := &Client{
		apiKey:           apiKey,
		baseURL:          defaultBaseURL,
		analysisModel:    DefaultAnalysisModel,
		restorationModel: DefaultRestorationModel,
		videoModel:       DefaultVideoModel,
		pollInterval:     10 * time.Second,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type generationConfig struct {
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *apiError `json:"error"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// Analyze sends an image and a prompt to the analysis model and returns
// the raw text answer. Interpretation of the answer, including bounding
// box parsing, is the caller's concern.
func (c *Client) Analyze(ctx context.Context, prompt string, imageData []byte, mimeType string) (string, error) {
	req := generateRequest{
		Contents: []content{{
			Parts: []part{
				{InlineData: &inlineData{MimeType: mimeType, Data: base64.StdEncoding.EncodeToString(imageData)}},
				{Text: prompt},
			},
		}},
		GenerationConfig: &generationConfig{ResponseModalities: []string{"TEXT"}},
	}

	resp, err := c.generateContent(ctx, c.analysisModel, req)
	if err != nil {
		return "", err
	}

	var text strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("empty text response from %s", c.analysisModel)
	}
	return text.String(), nil
}

// Restore sends an image to the image-output model and returns the
// restored image bytes.
func (c *Client) Restore(ctx context.Context, prompt string, imageData []byte, mimeType string) ([]byte, error) {
	req := generateRequest{
		Contents: []content{{
			Parts: []part{
				{Text: prompt},
				{InlineData: &inlineData{MimeType: mimeType, Data: base64.StdEncoding.EncodeToString(imageData)}},
			},
		}},
	}

	resp, err := c.generateContent(ctx, c.restorationModel, req)
	if err != nil {
		return nil, err
	}

	for _, p := range resp.Candidates[0].Content.Parts {
		if p.InlineData == nil {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode restored image: %w", err)
		}
		return data, nil
	}

	return nil, fmt.Errorf("no image in response from %s", c.restorationModel)
}

func (c *Client) generateContent(ctx context.Context, model string, req generateRequest) (*generateResponse, error) {
	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, model)

	body, err := c.post(ctx, url, req)
	if err != nil {
		return nil, err
	}

	var resp generateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("gemini API error: %s", resp.Error.Message)
	}
	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates in response from %s", model)
	}
	return &resp, nil
}

type videoRequest struct {
	Instances []videoInstance `json:"instances"`
}

type videoInstance struct {
	Prompt string      `json:"prompt"`
	Image  *videoImage `json:"image,omitempty"`
}

type videoImage struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	MimeType           string `json:"mimeType"`
}

type operation struct {
	Name     string    `json:"name"`
	Done     bool      `json:"done"`
	Error    *apiError `json:"error"`
	Response *struct {
		GenerateVideoResponse struct {
			GeneratedSamples []struct {
				Video struct {
					URI string `json:"uri"`
				} `json:"video"`
			} `json:"generatedSamples"`
		} `json:"generateVideoResponse"`
	} `json:"response"`
}

// GenerateVideo animates an image into a short clip using the Veo model.
// Video generation is a long-running operation: the client polls until
// the operation completes or ctx is cancelled, then downloads the clip.
func (c *Client) GenerateVideo(ctx context.Context, prompt string, imageData []byte, mimeType string) ([]byte, error) {
	req := videoRequest{
		Instances: []videoInstance{{
			Prompt: prompt,
			Image: &videoImage{
				BytesBase64Encoded: base64.StdEncoding.EncodeToString(imageData),
				MimeType:           mimeType,
			},
		}},
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:predictLongRunning", c.baseURL, c.videoModel)
	body, err := c.post(ctx, url, req)
	if err != nil {
		return nil, err
	}

	var op operation
	if err := json.Unmarshal(body, &op); err != nil {
		return nil, fmt.Errorf("failed to parse operation: %w", err)
	}
	if op.Error != nil {
		return nil, fmt.Errorf("gemini API error: %s", op.Error.Message)
	}
	if op.Name == "" {
		return nil, fmt.Errorf("no operation name in video generation response")
	}

	uri, err := c.waitForVideo(ctx, op.Name)
	if err != nil {
		return nil, err
	}
	return c.download(ctx, uri)
}

func (c *Client) waitForVideo(ctx context.Context, opName string) (string, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		op, err := c.getOperation(ctx, opName)
		if err != nil {
			return "", err
		}
		if op.Done {
			if op.Error != nil {
				return "", fmt.Errorf("video generation failed: %s", op.Error.Message)
			}
			if op.Response == nil || len(op.Response.GenerateVideoResponse.GeneratedSamples) == 0 {
				return "", fmt.Errorf("video generation completed without a video")
			}
			return op.Response.GenerateVideoResponse.GeneratedSamples[0].Video.URI, nil
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) getOperation(ctx context.Context, name string) (*operation, error) {
	url := fmt.Sprintf("%s/v1beta/%s", c.baseURL, name)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to poll operation: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("operation poll returned status %d: %s", resp.StatusCode, string(body))
	}

	var op operation
	if err := json.Unmarshal(body, &op); err != nil {
		return nil, fmt.Errorf("failed to parse operation: %w", err)
	}
	return &op, nil
}

func (c *Client) download(ctx context.Context, uri string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", uri, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download video: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("video download returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) post(ctx context.Context, url string, payload any) ([]byte, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
