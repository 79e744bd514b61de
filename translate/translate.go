// Package translate implements the translation patch flow for the
// dashboard's analysis cache: it selects English tweets that still lack a
// Chinese translation, sends their texts to an OpenAI-compatible chat
// completions endpoint in a single batched request, and applies the
// returned segments back onto the analysis records.
//
// The request/response protocol is positional: texts are joined with a
// blank line, the model is instructed to answer one translation per input
// in the same order, and the response is split on the same blank-line
// separator. Segment N belongs to batch entry N. A response with fewer
// segments than requests is not an error; the trailing tweets simply stay
// untranslated until a future run.
package translate

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

	"github.com/tweetlens/dashkit/cache"
)

// ---------------------------------------------------------------------------
// Defaults
// ---------------------------------------------------------------------------

const (
	// DefaultBaseURL is the OpenAI API endpoint. Any server speaking the
	// chat completions protocol can be substituted via Provider.BaseURL.
	DefaultBaseURL = "https://api.openai.com/v1"
	// DefaultModel is the translation model.
	DefaultModel = "gpt-4o-mini"
	// DefaultTimeout bounds the single blocking request.
	DefaultTimeout = 60 * time.Second
	// DefaultLimit is the maximum number of tweets translated per run.
	DefaultLimit = 20

	temperature = 0.3
	separator   = "\n\n"
)

// SystemPrompt instructs the model to translate English tweets to Chinese,
// one per line in input order, without numbering.
const SystemPrompt = `你是一个专业的翻译。将以下英文推文翻译成中文。保持原意和风格。输出格式：每行一个翻译，与输入顺序对应，不要添加序号。`

// ---------------------------------------------------------------------------
// Provider (OpenAI-compatible chat completions)
// ---------------------------------------------------------------------------

// Completer performs one chat completion round trip.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Provider is an OpenAI-compatible chat completions endpoint.
type Provider struct {
	// Name is the display name used in logs.
	Name string
	// BaseURL is the API base URL (default: the OpenAI endpoint).
	BaseURL string
	// APIKey is the bearer credential.
	APIKey string
	// Model is the model identifier (default: gpt-4o-mini).
	Model string
	// Proxy is an optional HTTP/HTTPS proxy URL.
	Proxy string
	// Timeout is the request timeout (0 = DefaultTimeout).
	Timeout time.Duration
}

func (p Provider) baseURL() string {
	if p.BaseURL != "" {
		return p.BaseURL
	}
	return DefaultBaseURL
}

func (p Provider) model() string {
	if p.Model != "" {
		return p.Model
	}
	return DefaultModel
}

func (p Provider) timeout() time.Duration {
	if p.Timeout > 0 {
		return p.Timeout
	}
	return DefaultTimeout
}

// Validate reports configuration problems that would make the provider
// unusable: an unparsable base URL or proxy URL.
func (p Provider) Validate() error {
	if _, err := url.Parse(p.baseURL()); err != nil {
		return fmt.Errorf("invalid base URL %q: %w", p.baseURL(), err)
	}
	if p.Proxy != "" {
		if _, err := url.Parse(p.Proxy); err != nil {
			return fmt.Errorf("invalid proxy URL %q: %w", p.Proxy, err)
		}
	}
	return nil
}

// Complete issues exactly one chat completions request and returns the
// assistant message content. No retries: a failed request is the run's
// failure.
func (p Provider) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	body, err := buildChatRequest(p.model(), systemPrompt, userPrompt, temperature)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}

	endpoint := strings.TrimRight(p.baseURL(), "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.APIKey)
	}

	client := makeHTTPClient(p.Proxy, p.timeout())
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("API request failed: %w", err)
	}
	respBody, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API returned status %d: %s", resp.StatusCode, truncate(string(respBody), 500))
	}

	return extractResponseText(respBody)
}

func makeHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	// Support both --proxy flag and HTTP_PROXY/HTTPS_PROXY env vars
	if proxyURL != "" {
		parsed, err := url.Parse(proxyURL)
		if err == nil {
			transport.Proxy = http.ProxyURL(parsed)
		}
	} else {
		transport.Proxy = http.ProxyFromEnvironment
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

func buildChatRequest(model, systemPrompt, userPrompt string, temperature float64) ([]byte, error) {
	type msg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	req := struct {
		Model       string  `json:"model"`
		Messages    []msg   `json:"messages"`
		Temperature float64 `json:"temperature"`
		Stream      bool    `json:"stream"`
	}{
		Model: model,
		Messages: []msg{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: temperature,
		Stream:      false,
	}
	return json.Marshal(req)
}

func extractResponseText(body []byte) (string, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", fmt.Errorf("invalid JSON response: %w", err)
	}

	// Check for API error
	if errObj, ok := raw["error"]; ok {
		if errMap, ok := errObj.(map[string]any); ok {
			if msg, ok := errMap["message"].(string); ok {
				return "", fmt.Errorf("API error: %s", msg)
			}
		}
		return "", fmt.Errorf("API error: %v", errObj)
	}

	// OpenAI chat format: choices[0].message.content
	if choices, ok := raw["choices"].([]any); ok && len(choices) > 0 {
		if choice, ok := choices[0].(map[string]any); ok {
			if message, ok := choice["message"].(map[string]any); ok {
				if content, ok := message["content"].(string); ok {
					return content, nil
				}
			}
		}
	}

	return "", fmt.Errorf("could not extract text from response: %s", truncate(string(body), 500))
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// ---------------------------------------------------------------------------
// Options
// ---------------------------------------------------------------------------

// Options controls the patch behavior.
type Options struct {
	// Limit is the maximum number of tweets per run (0 = DefaultLimit).
	Limit int
	// Verbose enables detailed logging through OnLog.
	Verbose bool
	// OnLog receives informational messages (optional).
	OnLog func(format string, args ...any)
}

func (o *Options) effectiveLimit() int {
	if o.Limit > 0 {
		return o.Limit
	}
	return DefaultLimit
}

func (o *Options) log(format string, args ...any) {
	if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

// ---------------------------------------------------------------------------
// Worklist
// ---------------------------------------------------------------------------

// Pending returns the English tweets whose analysis record is missing or
// still untranslated, in capture order.
func Pending(tweets *cache.TweetFile, analysis *cache.AnalysisFile) []cache.Tweet {
	idx := analysis.Index()

	var pending []cache.Tweet
	for _, tw := range tweets.Tweets {
		if tw.Lang != "en" {
			continue
		}
		if it, ok := idx[tw.ID]; !ok || it.NeedsTranslation() {
			pending = append(pending, tw)
		}
	}
	return pending
}

// ---------------------------------------------------------------------------
// Patch
// ---------------------------------------------------------------------------

// Result summarizes one patch run.
type Result struct {
	// Eligible is the worklist size before truncation.
	Eligible int
	// Requested is the number of tweets sent in the request batch.
	Requested int
	// Received is the number of segments the response split into.
	Received int
	// Applied is the number of analysis records updated.
	Applied int
	// Dropped lists tweets whose analysis record was missing at apply
	// time; their translations are discarded.
	Dropped []cache.ID
}

// Patch computes the worklist, issues one translation request for the
// first Limit entries, and applies the response segments onto analysis in
// memory. The caller persists the file afterwards; a write is due
// whenever Requested > 0, even if nothing could be applied.
//
// Response segments map onto batch entries by position. Cleaned segments
// are applied verbatim, including empty ones. A tweet without an analysis
// record keeps its translation nowhere: the segment is dropped and the id
// recorded in Result.Dropped.
func Patch(ctx context.Context, tweets *cache.TweetFile, analysis *cache.AnalysisFile, client Completer, opts Options) (*Result, error) {
	pending := Pending(tweets, analysis)
	res := &Result{Eligible: len(pending)}
	if len(pending) == 0 {
		return res, nil
	}

	batch := pending
	if limit := opts.effectiveLimit(); len(batch) > limit {
		batch = batch[:limit]
	}
	res.Requested = len(batch)

	userPrompt := joinTexts(batch)
	if opts.Verbose {
		opts.log("Requesting %d translations (%d bytes of text)", len(batch), len(userPrompt))
	}

	content, err := client.Complete(ctx, SystemPrompt, userPrompt)
	if err != nil {
		return res, err
	}

	segments := strings.Split(content, separator)
	res.Received = len(segments)

	for i, tw := range batch {
		if i >= len(segments) {
			break
		}
		text := cleanSegment(segments[i])

		item := analysis.First(tw.ID)
		if item == nil {
			res.Dropped = append(res.Dropped, tw.ID)
			continue
		}
		item.SetTranslation(text)
		res.Applied++

		if opts.Verbose {
			opts.log("  %s: %s", tw.ID, truncate(text, 60))
		}
	}

	return res, nil
}

// joinTexts builds the user payload: batch texts separated by blank lines.
func joinTexts(batch []cache.Tweet) string {
	texts := make([]string, len(batch))
	for i, tw := range batch {
		texts[i] = tw.Text
	}
	return strings.Join(texts, separator)
}

// cleanSegment trims a response segment and strips a leading "[N]"
// numbering artifact the model may add despite instructions. A leading
// bracket with no closing bracket is left alone.
func cleanSegment(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") {
		if i := strings.Index(s, "]"); i >= 0 {
			s = strings.TrimSpace(s[i+1:])
		}
	}
	return s
}
