// Package translate contains tests for the patch engine and the
// OpenAI-compatible provider client.
package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tweetlens/dashkit/cache"
)

// fakeCompleter records the request and replies with a canned response.
type fakeCompleter struct {
	response  string
	err       error
	calls     int
	gotSystem string
	gotUser   string
}

func (f *fakeCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.calls++
	f.gotSystem = systemPrompt
	f.gotUser = userPrompt
	return f.response, f.err
}

func mustTweets(t *testing.T, data string) *cache.TweetFile {
	t.Helper()
	f, err := cache.ParseTweets([]byte(data))
	if err != nil {
		t.Fatalf("ParseTweets error: %v", err)
	}
	return f
}

func mustAnalysis(t *testing.T, data string) *cache.AnalysisFile {
	t.Helper()
	f, err := cache.ParseAnalysis([]byte(data))
	if err != nil {
		t.Fatalf("ParseAnalysis error: %v", err)
	}
	return f
}

// ---------------------------------------------------------------------------
// Pending
// ---------------------------------------------------------------------------

func TestPending_FiltersAndKeepsOrder(t *testing.T) {
	tweets := mustTweets(t, `{"tweets": [
		{"id": 1, "text": "a", "lang": "en"},
		{"id": 2, "text": "b", "lang": "ja"},
		{"id": 3, "text": "c", "lang": "en"},
		{"id": 4, "text": "d", "lang": "en"},
		{"id": 5, "text": "e", "lang": "en"},
		{"id": 6, "text": "f", "lang": "en"}
	]}`)
	analysis := mustAnalysis(t, `{"items": [
		{"id": 1, "translation": ""},
		{"id": 3, "translation": "已翻译"},
		{"id": 4, "translation": null},
		{"id": 6}
	]}`)

	got := Pending(tweets, analysis)

	// 1: empty translation; 5: no record; 6: record without the field.
	// 2 is not English, 3 is translated, 4 holds null (counts as present).
	want := []cache.ID{"1", "5", "6"}
	if len(got) != len(want) {
		t.Fatalf("got %d pending, want %d: %+v", len(got), len(want), got)
	}
	for i, tw := range got {
		if tw.ID != want[i] {
			t.Errorf("pending[%d].ID = %v, want %v", i, tw.ID, want[i])
		}
	}
}

func TestPending_EmptyWhenAllTranslated(t *testing.T) {
	tweets := mustTweets(t, `{"tweets": [{"id": 1, "text": "a", "lang": "en"}]}`)
	analysis := mustAnalysis(t, `{"items": [{"id": 1, "translation": "好"}]}`)

	if got := Pending(tweets, analysis); len(got) != 0 {
		t.Fatalf("got %d pending, want 0", len(got))
	}
}

// ---------------------------------------------------------------------------
// cleanSegment
// ---------------------------------------------------------------------------

func TestCleanSegment(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"[3] 你好", "你好"},
		{"你好", "你好"},
		{"[unterminated", "[unterminated"},
		{"  [1]  带空格  ", "带空格"},
		{"[12] ", ""},
		{"  plain  ", "plain"},
		{"", ""},
	}
	for _, tc := range tests {
		if got := cleanSegment(tc.in); got != tc.want {
			t.Errorf("cleanSegment(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

// ---------------------------------------------------------------------------
// Patch
// ---------------------------------------------------------------------------

func TestPatch_AppliesAllSegments(t *testing.T) {
	tweets := mustTweets(t, `{"tweets": [
		{"id": 1, "text": "first tweet", "lang": "en"},
		{"id": 2, "text": "second tweet", "lang": "en"},
		{"id": 3, "text": "third tweet", "lang": "en"}
	]}`)
	analysis := mustAnalysis(t, `{"items": [
		{"id": 1, "sentiment": "positive"},
		{"id": 2, "sentiment": "negative"},
		{"id": 3, "sentiment": "neutral"}
	]}`)

	fake := &fakeCompleter{response: "第一条\n\n第二条\n\n第三条"}
	res, err := Patch(context.Background(), tweets, analysis, fake, Options{})
	if err != nil {
		t.Fatalf("Patch error: %v", err)
	}

	if fake.calls != 1 {
		t.Fatalf("got %d service calls, want 1", fake.calls)
	}
	if fake.gotSystem != SystemPrompt {
		t.Errorf("system prompt = %q", fake.gotSystem)
	}
	if fake.gotUser != "first tweet\n\nsecond tweet\n\nthird tweet" {
		t.Errorf("user prompt = %q", fake.gotUser)
	}
	if res.Eligible != 3 || res.Requested != 3 || res.Received != 3 || res.Applied != 3 {
		t.Fatalf("unexpected result: %+v", res)
	}

	want := []string{"第一条", "第二条", "第三条"}
	for i, it := range analysis.Items {
		if it.Translation() != want[i] {
			t.Errorf("item %v translation = %q, want %q", it.ID(), it.Translation(), want[i])
		}
	}
}

func TestPatch_TruncatesToLimit(t *testing.T) {
	var sb strings.Builder
	sb.WriteString(`{"tweets": [`)
	for i := 1; i <= 25; i++ {
		if i > 1 {
			sb.WriteString(",")
		}
		fmt.Fprintf(&sb, `{"id": %d, "text": "tweet %d", "lang": "en"}`, i, i)
	}
	sb.WriteString(`]}`)
	tweets := mustTweets(t, sb.String())

	sb.Reset()
	sb.WriteString(`{"items": [`)
	for i := 1; i <= 25; i++ {
		if i > 1 {
			sb.WriteString(",")
		}
		fmt.Fprintf(&sb, `{"id": %d}`, i)
	}
	sb.WriteString(`]}`)
	analysis := mustAnalysis(t, sb.String())

	segs := make([]string, 20)
	for i := range segs {
		segs[i] = fmt.Sprintf("译文%d", i+1)
	}
	fake := &fakeCompleter{response: strings.Join(segs, "\n\n")}

	res, err := Patch(context.Background(), tweets, analysis, fake, Options{})
	if err != nil {
		t.Fatalf("Patch error: %v", err)
	}

	if res.Eligible != 25 || res.Requested != 20 || res.Applied != 20 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if n := strings.Count(fake.gotUser, "\n\n"); n != 19 {
		t.Fatalf("user prompt holds %d separators, want 19", n)
	}
	if analysis.Items[19].Translation() != "译文20" {
		t.Errorf("item 20 translation = %q", analysis.Items[19].Translation())
	}
	if analysis.Items[20].Translation() != "" {
		t.Errorf("item 21 should stay untranslated, got %q", analysis.Items[20].Translation())
	}
}

func TestPatch_ShortResponseLeavesTailUntouched(t *testing.T) {
	tweets := mustTweets(t, `{"tweets": [
		{"id": 1, "text": "a", "lang": "en"},
		{"id": 2, "text": "b", "lang": "en"},
		{"id": 3, "text": "c", "lang": "en"}
	]}`)
	analysis := mustAnalysis(t, `{"items": [
		{"id": 1}, {"id": 2}, {"id": 3}
	]}`)

	fake := &fakeCompleter{response: "只有一条\n\n还有一条"}
	res, err := Patch(context.Background(), tweets, analysis, fake, Options{})
	if err != nil {
		t.Fatalf("Patch error: %v", err)
	}

	if res.Requested != 3 || res.Received != 2 || res.Applied != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if analysis.Items[0].Translation() != "只有一条" || analysis.Items[1].Translation() != "还有一条" {
		t.Fatalf("applied translations wrong: %q, %q",
			analysis.Items[0].Translation(), analysis.Items[1].Translation())
	}
	if !analysis.Items[2].NeedsTranslation() {
		t.Fatal("item 3 should remain untranslated")
	}
}

func TestPatch_DropsSegmentsWithoutRecord(t *testing.T) {
	tweets := mustTweets(t, `{"tweets": [
		{"id": 1, "text": "a", "lang": "en"},
		{"id": 2, "text": "b", "lang": "en"}
	]}`)
	// No record for tweet 2: it is still eligible, but its translation
	// has nowhere to go and is discarded.
	analysis := mustAnalysis(t, `{"items": [{"id": 1}]}`)

	fake := &fakeCompleter{response: "一\n\n二"}
	res, err := Patch(context.Background(), tweets, analysis, fake, Options{})
	if err != nil {
		t.Fatalf("Patch error: %v", err)
	}

	if res.Applied != 1 {
		t.Fatalf("Applied = %d, want 1", res.Applied)
	}
	if len(res.Dropped) != 1 || res.Dropped[0] != cache.ID("2") {
		t.Fatalf("Dropped = %v, want [2]", res.Dropped)
	}
	if analysis.Items[0].Translation() != "一" {
		t.Fatalf("item 1 translation = %q", analysis.Items[0].Translation())
	}
}

func TestPatch_NoWorkMakesNoCall(t *testing.T) {
	tweets := mustTweets(t, `{"tweets": [{"id": 1, "text": "a", "lang": "ja"}]}`)
	analysis := mustAnalysis(t, `{"items": []}`)

	fake := &fakeCompleter{response: "should not be used"}
	res, err := Patch(context.Background(), tweets, analysis, fake, Options{})
	if err != nil {
		t.Fatalf("Patch error: %v", err)
	}

	if fake.calls != 0 {
		t.Fatalf("got %d service calls, want 0", fake.calls)
	}
	if res.Eligible != 0 || res.Requested != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestPatch_EmptyResponseAppliesEmptySegment(t *testing.T) {
	tweets := mustTweets(t, `{"tweets": [
		{"id": 1, "text": "a", "lang": "en"},
		{"id": 2, "text": "b", "lang": "en"}
	]}`)
	analysis := mustAnalysis(t, `{"items": [{"id": 1}, {"id": 2}]}`)

	fake := &fakeCompleter{response: ""}
	res, err := Patch(context.Background(), tweets, analysis, fake, Options{})
	if err != nil {
		t.Fatalf("Patch error: %v", err)
	}

	// Splitting "" yields one empty segment, applied to the first entry.
	if res.Received != 1 || res.Applied != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if analysis.Items[0].NeedsTranslation() != true {
		t.Fatal("empty translation should still count as untranslated")
	}
	if !analysis.Items[1].NeedsTranslation() {
		t.Fatal("item 2 should remain untranslated")
	}
}

func TestPatch_EndToEndPreservesUntouchedFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[{"message":{"content":"一\n\n[2] 二\n\n三"}}]}`)
	}))
	defer srv.Close()

	tweets := mustTweets(t, `{"tweets": [
		{"id": 11, "text": "a", "lang": "en"},
		{"id": 12, "text": "b", "lang": "en"},
		{"id": 13, "text": "c", "lang": "en"}
	]}`)
	analysis := mustAnalysis(t, `{"generated_at": "2024-05-01", "items": [
		{"id": 11, "sentiment": "positive", "score": 0.93},
		{"id": 12, "keywords": ["b"], "translation": ""},
		{"id": 13, "nested": {"deep": true}}
	]}`)

	p := Provider{BaseURL: srv.URL, APIKey: "sk-test"}
	res, err := Patch(context.Background(), tweets, analysis, p, Options{})
	if err != nil {
		t.Fatalf("Patch error: %v", err)
	}
	if res.Applied != 3 {
		t.Fatalf("Applied = %d, want 3", res.Applied)
	}

	out, err := analysis.Marshal()
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	s := string(out)

	for _, want := range []string{
		`"generated_at": "2024-05-01"`,
		`"sentiment": "positive"`,
		`"score": 0.93`,
		`"deep": true`,
		`"translation": "一"`,
		`"translation": "二"`,
		`"translation": "三"`,
	} {
		if !strings.Contains(s, want) {
			t.Errorf("output missing %q:\n%s", want, s)
		}
	}
	if strings.Contains(s, "[2]") {
		t.Errorf("numbering artifact not stripped:\n%s", s)
	}

	// A second scan over the patched documents finds nothing left to do.
	if left := Pending(tweets, analysis); len(left) != 0 {
		t.Fatalf("Pending after patch = %d entries, want 0", len(left))
	}
}

func TestPatch_ServiceErrorPropagates(t *testing.T) {
	tweets := mustTweets(t, `{"tweets": [{"id": 1, "text": "a", "lang": "en"}]}`)
	analysis := mustAnalysis(t, `{"items": [{"id": 1}]}`)

	fake := &fakeCompleter{err: errors.New("boom")}
	res, err := Patch(context.Background(), tweets, analysis, fake, Options{})
	if err == nil {
		t.Fatal("expected error")
	}
	if res.Applied != 0 {
		t.Fatalf("Applied = %d, want 0", res.Applied)
	}
	if !analysis.Items[0].NeedsTranslation() {
		t.Fatal("no translation should be applied on error")
	}
}

// ---------------------------------------------------------------------------
// Request building and response parsing
// ---------------------------------------------------------------------------

func TestBuildChatRequest(t *testing.T) {
	body, err := buildChatRequest("gpt-4o-mini", "system text", "user text", 0.3)
	if err != nil {
		t.Fatalf("buildChatRequest error: %v", err)
	}

	var req struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
		Temperature float64 `json:"temperature"`
		Stream      bool    `json:"stream"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		t.Fatalf("request is not valid JSON: %v", err)
	}

	if req.Model != "gpt-4o-mini" || req.Temperature != 0.3 || req.Stream {
		t.Fatalf("unexpected request envelope: %+v", req)
	}
	if len(req.Messages) != 2 ||
		req.Messages[0].Role != "system" || req.Messages[0].Content != "system text" ||
		req.Messages[1].Role != "user" || req.Messages[1].Content != "user text" {
		t.Fatalf("unexpected messages: %+v", req.Messages)
	}
}

func TestExtractResponseText(t *testing.T) {
	got, err := extractResponseText([]byte(`{"choices":[{"message":{"content":"你好"}}]}`))
	if err != nil {
		t.Fatalf("extractResponseText error: %v", err)
	}
	if got != "你好" {
		t.Fatalf("got %q, want 你好", got)
	}

	_, err = extractResponseText([]byte(`{"error":{"message":"invalid api key"}}`))
	if err == nil || !strings.Contains(err.Error(), "invalid api key") {
		t.Fatalf("expected API error, got %v", err)
	}

	if _, err := extractResponseText([]byte(`{"unexpected": true}`)); err == nil {
		t.Fatal("expected extraction error for unknown shape")
	}
	if _, err := extractResponseText([]byte(`not json`)); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

// ---------------------------------------------------------------------------
// Provider
// ---------------------------------------------------------------------------

func TestProviderComplete_RoundTrip(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		fmt.Fprint(w, `{"choices":[{"message":{"content":"第一\n\n第二"}}]}`)
	}))
	defer srv.Close()

	p := Provider{Name: "OpenAI", BaseURL: srv.URL, APIKey: "sk-test"}
	got, err := p.Complete(context.Background(), SystemPrompt, "one\n\ntwo")
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}

	if got != "第一\n\n第二" {
		t.Fatalf("content = %q", got)
	}
	if gotPath != "/chat/completions" {
		t.Fatalf("path = %q, want /chat/completions", gotPath)
	}
	if gotAuth != "Bearer sk-test" {
		t.Fatalf("auth header = %q", gotAuth)
	}

	var req struct {
		Model       string  `json:"model"`
		Temperature float64 `json:"temperature"`
	}
	if err := json.Unmarshal(gotBody, &req); err != nil {
		t.Fatalf("request body: %v", err)
	}
	if req.Model != DefaultModel || req.Temperature != 0.3 {
		t.Fatalf("request envelope: %+v", req)
	}
}

func TestProviderComplete_HTTPErrorIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"quota exceeded"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := Provider{BaseURL: srv.URL, APIKey: "sk-test"}
	_, err := p.Complete(context.Background(), "s", "u")
	if err == nil || !strings.Contains(err.Error(), "status 429") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestProviderValidate(t *testing.T) {
	if err := (Provider{}).Validate(); err != nil {
		t.Fatalf("default provider should validate, got %v", err)
	}
	if err := (Provider{Proxy: "http://%zz"}).Validate(); err == nil {
		t.Fatal("expected error for bad proxy URL")
	}
}
