package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"mirror-match-backend/internal/config"
	"mirror-match-backend/internal/game"
	"mirror-match-backend/internal/model"
	"mirror-match-backend/internal/service"
	"mirror-match-backend/internal/vision"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubClient struct {
	reply string
	err   error
	hang  bool
	calls atomic.Int32
}

func (s *stubClient) Name() string { return "stub" }

func (s *stubClient) Complete(ctx context.Context, req vision.Request) (string, error) {
	s.calls.Add(1)
	if s.hang {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return s.reply, s.err
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{MaxBodyBytes: 1 << 20},
		Vision: config.VisionConfig{Timeout: 50 * time.Millisecond, MinImageBytes: 75},
		Game:   config.GameConfig{EmotionSet: game.SetClassic, SuccessThreshold: 0.7, PartialThreshold: 0.4},
		CORS: config.CORSConfig{
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type"},
		},
	}
}

func newTestRouter(t *testing.T, client vision.Client) *gin.Engine {
	t.Helper()
	cfg := testConfig()
	catalog, err := game.NewCatalog(cfg.Game.EmotionSet)
	if err != nil {
		t.Fatalf("NewCatalog error: %v", err)
	}
	svc, err := service.NewAnalysisService(client, catalog, cfg)
	if err != nil {
		t.Fatalf("NewAnalysisService error: %v", err)
	}
	return NewRouter(cfg, NewAnalysisHandler(svc), NewLiveHandler(svc, cfg.CORS.AllowedOrigins, cfg.Server.MaxBodyBytes))
}

// nilClient keeps the vision.Client interface nil rather than a typed nil.
func nilClient() vision.Client { return nil }

func imageURI() string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{0x11}, 300))
}

func postJSON(t *testing.T, router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) model.ErrorResponse {
	t.Helper()
	var resp model.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not JSON: %v (%s)", err, w.Body.String())
	}
	return resp
}

func TestAnalyzeEmotionInputErrors(t *testing.T) {
	tests := []struct {
		name string
		body interface{}
		want string
	}{
		{"malformed json", `{"image":`, "Invalid request body"},
		{"null body", `null`, "Invalid request body"},
		{"array body", `[{"image":"x"}]`, "Invalid request body"},
		{"missing image", map[string]string{}, "Image data is required"},
		{"not a data uri", map[string]string{"image": "abc"}, "Invalid image format"},
		{"non image media type", map[string]string{"image": "data:application/pdf;base64,AAAA"}, "Invalid image format"},
		{"two commas", map[string]string{"image": "data:image/png;base64,AAAA,BBBB"}, "Invalid image data format"},
		{"bad base64", map[string]string{"image": "data:image/png;base64,!!!"}, "Invalid image data format"},
		{"too small", map[string]string{"image": "data:image/png;base64,AAAA"}, "Image data is too small or empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubClient{reply: "{}"}
			w := postJSON(t, newTestRouter(t, stub), "/analyze-emotion", tt.body)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("status=%d, want 400 (%s)", w.Code, w.Body.String())
			}
			if got := decodeError(t, w).Error; got != tt.want {
				t.Fatalf("error=%q, want %q", got, tt.want)
			}
			if stub.calls.Load() != 0 {
				t.Fatal("upstream called for rejected input")
			}
		})
	}
}

func TestAnalyzeEmotionNotConfigured(t *testing.T) {
	// 配置缺失时即使请求体非法也返回 503
	w := postJSON(t, newTestRouter(t, nilClient()), "/analyze-emotion", `not json`)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d, want 503", w.Code)
	}
	if got := decodeError(t, w).Error; got != "API configuration error" {
		t.Fatalf("error=%q", got)
	}
}

func TestAnalyzeEmotionProseWrappedReply(t *testing.T) {
	stub := &stubClient{reply: "Sure! Here it is:\n{\"emotion\": \"happy\", \"confidence\": 0.85, \"feedback\": \"Big smile!\"}\nAnything else?"}
	router := newTestRouter(t, stub)

	for _, path := range []string{"/analyze-emotion", "/api/analyze-emotion"} {
		w := postJSON(t, router, path, model.AnalyzeRequest{Image: imageURI()})
		if w.Code != http.StatusOK {
			t.Fatalf("%s status=%d (%s)", path, w.Code, w.Body.String())
		}
		var got model.AnalysisResult
		if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		want := model.AnalysisResult{Emotion: "happy", Confidence: 0.85, Feedback: "Big smile!"}
		if got != want {
			t.Fatalf("%s result=%+v, want %+v", path, got, want)
		}
	}
	if stub.calls.Load() != 2 {
		t.Fatalf("upstream calls=%d, want 2", stub.calls.Load())
	}
}

func TestAnalyzeEmotionUpstreamFailure(t *testing.T) {
	stub := &stubClient{err: errors.New("401 invalid x-api-key")}
	w := postJSON(t, newTestRouter(t, stub), "/analyze-emotion", model.AnalyzeRequest{Image: imageURI()})

	if w.Code != http.StatusBadGateway {
		t.Fatalf("status=%d, want 502", w.Code)
	}
	resp := decodeError(t, w)
	if resp.Error != "Error communicating with AI service" || !strings.Contains(resp.Details, "invalid x-api-key") {
		t.Fatalf("unexpected envelope: %+v", resp)
	}
}

func TestAnalyzeEmotionUpstreamHTMLErrorStaysInLogs(t *testing.T) {
	const page = "<html><head><title>502 Bad Gateway</title></head><body>lb-internal-7f3a</body></html>"
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(page))
	}))
	defer upstream.Close()

	client := vision.NewAnthropicClient(config.AnthropicConfig{APIKey: "k", BaseURL: upstream.URL, Model: "claude-test"}, time.Second)
	w := postJSON(t, newTestRouter(t, client), "/analyze-emotion", model.AnalyzeRequest{Image: imageURI()})

	if w.Code != http.StatusBadGateway {
		t.Fatalf("status=%d, want 502 (%s)", w.Code, w.Body.String())
	}
	resp := decodeError(t, w)
	if resp.Error != "Error communicating with AI service" || !strings.Contains(resp.Details, "502") {
		t.Fatalf("unexpected envelope: %+v", resp)
	}
	for _, leaked := range []string{"<html", "Bad Gateway</title>", "lb-internal-7f3a"} {
		if strings.Contains(resp.Details, leaked) || strings.Contains(w.Body.String(), leaked) {
			t.Fatalf("response carries upstream body fragment %q: %s", leaked, w.Body.String())
		}
	}
}

func TestAnalyzeEmotionUpstreamTimeout(t *testing.T) {
	stub := &stubClient{hang: true}
	w := postJSON(t, newTestRouter(t, stub), "/analyze-emotion", model.AnalyzeRequest{Image: imageURI()})

	if w.Code != http.StatusGatewayTimeout {
		t.Fatalf("status=%d, want 504", w.Code)
	}
	if got := decodeError(t, w).Error; got != "AI service timed out" {
		t.Fatalf("error=%q", got)
	}
}

func TestAnalyzeEmotionAlwaysWellFormed(t *testing.T) {
	replies := []string{
		"",
		"no braces here",
		"{not json}",
		`{"emotion":"sad"}`,
		`{"emotion":"mad","confidence":"97","feedback":"Fierce!"}`,
		"```json\n{\"emotion\":\"scared\",\"confidence\":0.4,\"feedback\":\"Eek\"}\n```",
	}
	for _, reply := range replies {
		stub := &stubClient{reply: reply}
		w := postJSON(t, newTestRouter(t, stub), "/analyze-emotion", model.AnalyzeRequest{Image: imageURI()})
		if w.Code != http.StatusOK {
			t.Fatalf("reply %q: status=%d", reply, w.Code)
		}

		var raw map[string]interface{}
		if err := json.Unmarshal(w.Body.Bytes(), &raw); err != nil {
			t.Fatalf("reply %q: decode: %v", reply, err)
		}
		if len(raw) != 3 {
			t.Fatalf("reply %q: fields=%v, want exactly emotion/confidence/feedback", reply, raw)
		}
		emotion, _ := raw["emotion"].(string)
		feedback, _ := raw["feedback"].(string)
		confidence, ok := raw["confidence"].(float64)
		if emotion == "" || feedback == "" || !ok || confidence < 0 || confidence > 1 {
			t.Fatalf("reply %q: malformed result %v", reply, raw)
		}
	}
}

func TestAnalyzeEmotionMockProvider(t *testing.T) {
	catalog, _ := game.NewCatalog(game.SetClassic)
	router := newTestRouter(t, vision.NewMockClient(catalog, rand.New(rand.NewSource(7))))

	for i := 0; i < 20; i++ {
		w := postJSON(t, router, "/analyze-emotion", model.AnalyzeRequest{Image: imageURI()})
		if w.Code != http.StatusOK {
			t.Fatalf("status=%d", w.Code)
		}
		var got model.AnalysisResult
		if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if _, ok := catalog.Lookup(got.Emotion); !ok || got.Confidence <= 0 || got.Confidence > 1 || got.Feedback == "" {
			t.Fatalf("unexpected mock result: %+v", got)
		}
	}
}

func TestMatchEndpoint(t *testing.T) {
	stub := &stubClient{reply: `{"emotion":"happy","confidence":0.55,"feedback":"Almost"}`}
	router := newTestRouter(t, stub)

	w := postJSON(t, router, "/api/match", model.MatchRequest{Target: "Happy", Image: imageURI()})
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d (%s)", w.Code, w.Body.String())
	}
	var got model.MatchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Target != "happy" || got.Verdict.Tier != game.TierPartial || got.Verdict.Matched || got.Verdict.Points != 55 {
		t.Fatalf("unexpected match: %+v", got)
	}

	w = postJSON(t, router, "/api/match", model.MatchRequest{Target: "bored", Image: imageURI()})
	if w.Code != http.StatusBadRequest || decodeError(t, w).Error != "Unknown target emotion" {
		t.Fatalf("unknown target: status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestListEmotions(t *testing.T) {
	router := newTestRouter(t, nilClient())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/emotions?set=expressive", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var got model.EmotionListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Set != game.SetExpressive || len(got.Emotions) != 5 {
		t.Fatalf("unexpected list: set=%s n=%d", got.Set, len(got.Emotions))
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/emotions?set=opera", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unknown set status=%d, want 400", w.Code)
	}
}

func TestNextEmotion(t *testing.T) {
	router := newTestRouter(t, nilClient())

	get := func(url string) (int, model.TargetEmotion) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, url, nil))
		var e model.TargetEmotion
		_ = json.Unmarshal(w.Body.Bytes(), &e)
		return w.Code, e
	}

	if code, e := get("/api/emotions/next?current=scared"); code != http.StatusOK || e.Name != "happy" {
		t.Fatalf("sequential wrap: status=%d next=%s", code, e.Name)
	}
	for i := 0; i < 20; i++ {
		if code, e := get("/api/emotions/next?current=sad&mode=random"); code != http.StatusOK || e.Name == "sad" {
			t.Fatalf("random: status=%d next=%s", code, e.Name)
		}
	}
	if code, _ := get("/api/emotions/next?mode=shuffle"); code != http.StatusBadRequest {
		t.Fatalf("unknown mode status=%d, want 400", code)
	}
}

func TestStatsEndpoint(t *testing.T) {
	stub := &stubClient{reply: "nothing useful"}
	router := newTestRouter(t, stub)
	postJSON(t, router, "/analyze-emotion", model.AnalyzeRequest{Image: imageURI()})
	postJSON(t, router, "/analyze-emotion", map[string]string{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	var got model.StatsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Requests != 2 || got.Degraded != 1 || got.InputErrors != 1 || got.Provider != "stub" || !got.Configured {
		t.Fatalf("unexpected stats: %+v", got)
	}
}

func TestRequestIDAndHealth(t *testing.T) {
	router := newTestRouter(t, nilClient())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK || w.Header().Get(RequestIDHeader) == "" {
		t.Fatalf("status=%d request id=%q", w.Code, w.Header().Get(RequestIDHeader))
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if got := w.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Fatalf("request id=%q, want passthrough", got)
	}
}

func TestRecoveryReturnsEnvelope(t *testing.T) {
	router := gin.New()
	router.Use(gin.CustomRecovery(Recovery))
	router.GET("/boom", func(c *gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d, want 500", w.Code)
	}
	resp := decodeError(t, w)
	if resp.Error != "Failed to analyze emotion" || resp.Details != "kaboom" {
		t.Fatalf("unexpected envelope: %+v", resp)
	}
}

func TestBodyLimitRejectsLargeBody(t *testing.T) {
	router := gin.New()
	router.Use(BodyLimit(64))
	router.POST("/echo", func(c *gin.Context) {
		var req model.AnalyzeRequest
		if err := bindJSONObject(c, &req); err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		c.Status(http.StatusOK)
	})

	body := `{"image":"` + strings.Repeat("A", 200) + `"}`
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(body)))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d, want 400", w.Code)
	}
}
