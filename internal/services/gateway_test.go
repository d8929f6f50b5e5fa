package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/memodeck/memodeck/internal/config"
	"github.com/memodeck/memodeck/internal/models"
	"github.com/memodeck/memodeck/pkg/response"
)

func testGateway() *GatewayService {
	return &GatewayService{cfg: config.DefaultConfig()}
}

func assertBadRequest(t *testing.T, err error) {
	t.Helper()
	var appErr *response.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected an AppError, got %v", err)
	}
	if appErr.Code != response.CodeInvalidRequest {
		t.Errorf("error code = %s, expected %s", appErr.Code, response.CodeInvalidRequest)
	}
}

func TestResolveSource_UnknownTask(t *testing.T) {
	_, _, err := testGateway().resolveSource(1, &GenerateRequest{Task: "essay", Text: "hello"})
	assertBadRequest(t, err)
}

func TestResolveSource_RequiresExactlyOneSource(t *testing.T) {
	g := testGateway()

	// Neither.
	_, _, err := g.resolveSource(1, &GenerateRequest{Task: TaskFlashcards})
	assertBadRequest(t, err)

	// Both.
	id := uint(7)
	_, _, err = g.resolveSource(1, &GenerateRequest{Task: TaskFlashcards, Text: "hello", MaterialID: &id})
	assertBadRequest(t, err)

	// Whitespace-only text counts as absent.
	_, _, err = g.resolveSource(1, &GenerateRequest{Task: TaskFlashcards, Text: "   "})
	assertBadRequest(t, err)
}

func TestResolveSource_InlineText(t *testing.T) {
	text, materialID, err := testGateway().resolveSource(1, &GenerateRequest{Task: TaskQuiz, Text: "photosynthesis notes"})
	if err != nil {
		t.Fatalf("valid inline text rejected: %v", err)
	}
	if text != "photosynthesis notes" {
		t.Errorf("text = %q", text)
	}
	if materialID != nil {
		t.Errorf("inline text should carry no material reference, got %v", materialID)
	}
}

func TestResolveSource_InputTooLarge(t *testing.T) {
	g := testGateway()
	big := strings.Repeat("a", g.cfg.Gateway.MaxInputChars+1)

	_, _, err := g.resolveSource(1, &GenerateRequest{Task: TaskFlashcards, Text: big})
	assertBadRequest(t, err)

	// Exactly at the limit passes.
	exact := strings.Repeat("a", g.cfg.Gateway.MaxInputChars)
	if _, _, err := g.resolveSource(1, &GenerateRequest{Task: TaskFlashcards, Text: exact}); err != nil {
		t.Errorf("input at the limit rejected: %v", err)
	}
}

func TestResolveSource_CapabilityValidation(t *testing.T) {
	g := testGateway()

	_, _, err := g.resolveSource(1, &GenerateRequest{Task: TaskFlashcards, Text: "hello", RequiredCapability: "vision"})
	assertBadRequest(t, err)

	for _, capability := range []string{"", models.CapabilityText, models.CapabilityMultimodal, models.CapabilityReasoning} {
		req := &GenerateRequest{Task: TaskFlashcards, Text: "hello", RequiredCapability: capability}
		if _, _, err := g.resolveSource(1, req); err != nil {
			t.Errorf("capability %q rejected: %v", capability, err)
		}
	}
}

func TestRoute_PassesRequestedCapability(t *testing.T) {
	g := testGateway()
	g.router = NewModelRouter(&staticCatalogue{entries: []models.LLMModel{
		{ModelID: "plain", Capabilities: "text", Enabled: true, HealthStatus: models.HealthHealthy},
		{ModelID: "reasoner", Capabilities: "reasoning", Enabled: true, HealthStatus: models.HealthHealthy},
	}}, testRoutingPolicy())

	// Absent capability defaults to text.
	winner, err := g.route(1, &GenerateRequest{Task: TaskFlashcards}, "notes", models.TierFree, 100, 5)
	if err != nil {
		t.Fatalf("default routing failed: %v", err)
	}
	if winner.Model.ModelID != "plain" {
		t.Errorf("default winner = %s, expected the text-capable model", winner.Model.ModelID)
	}

	winner, err = g.route(1, &GenerateRequest{Task: TaskFlashcards, RequiredCapability: models.CapabilityReasoning}, "notes", models.TierFree, 100, 5)
	if err != nil {
		t.Fatalf("reasoning routing failed: %v", err)
	}
	if winner.Model.ModelID != "reasoner" {
		t.Errorf("reasoning winner = %s, the requested capability must reach the router", winner.Model.ModelID)
	}
}

func TestPersistOrDefer_SaveFailureKeepsResult(t *testing.T) {
	db := newTestDB(t, "gateway_savefail")
	// Only the save step can fail once the table is gone.
	if err := db.Migrator().DropTable(&models.Flashcard{}); err != nil {
		t.Fatalf("drop table: %v", err)
	}

	g := &GatewayService{cfg: config.DefaultConfig(), persistence: NewPersistenceService(db)}
	result := &GenerateResult{Task: TaskFlashcards, Flashcards: []FlashcardDTO{{Front: "q", Back: "a"}}}

	g.persistOrDefer(1, nil, true, result)

	if !result.SaveFailed {
		t.Error("a failed save must be marked on the result")
	}
	if len(result.Flashcards) != 1 {
		t.Error("generated content must survive a failed save")
	}
	if result.SaveResult != nil {
		t.Errorf("save result = %+v, expected none after a failure", result.SaveResult)
	}
}

func TestPersistOrDefer_SuccessRecordsCounts(t *testing.T) {
	db := newTestDB(t, "gateway_saveok")

	g := &GatewayService{cfg: config.DefaultConfig(), persistence: NewPersistenceService(db)}
	result := &GenerateResult{Task: TaskFlashcards, Flashcards: []FlashcardDTO{{Front: "q", Back: "a"}}}

	g.persistOrDefer(1, nil, false, result)

	if result.SaveFailed {
		t.Error("a clean save must not be marked failed")
	}
	if result.SaveResult == nil || result.SaveResult.SavedCount != 1 {
		t.Errorf("save result = %+v, expected 1 saved", result.SaveResult)
	}
}

// staticCache always hits with a fixed payload.
type staticCache struct{ payload string }

func (c *staticCache) Get(ctx context.Context, text, task string, itemCount int) (string, bool) {
	return c.payload, c.payload != ""
}

func (c *staticCache) Set(ctx context.Context, text, task, value string, ttl time.Duration, itemCount int) {
}

func TestGenerate_CacheHitSkipsPersistence(t *testing.T) {
	db := newTestDB(t, "gateway_hit")
	db.Create(&models.Folder{UserID: 1, Name: "biology"})
	// Any persistence attempt would fail loudly: the table is gone.
	if err := db.Migrator().DropTable(&models.Flashcard{}); err != nil {
		t.Fatalf("drop table: %v", err)
	}

	cfg := config.DefaultConfig()
	g := &GatewayService{
		cfg:         cfg,
		quota:       NewQuotaService(db, &cfg.Gateway),
		rateLimiter: NewRateLimiterService(nil, 100, 100),
		materials:   NewMaterialService(db),
		cache:       &staticCache{payload: `{"flashcards":[{"front":"q","back":"a"}],"model_id":"gpt-4o-mini","provider":"openai"}`},
		persistence: NewPersistenceService(db),
		usage:       NewUsageService(db, nil),
	}

	folderID := uint(1)
	result, err := g.Generate(context.Background(), 1, "10.0.0.1", "req-1", &GenerateRequest{
		Task:     TaskFlashcards,
		Text:     "photosynthesis notes",
		Save:     true,
		Replace:  true,
		FolderID: &folderID,
	})
	if err != nil {
		t.Fatalf("cached request failed: %v", err)
	}
	if !result.Cached {
		t.Fatal("result should be served from cache")
	}
	if result.SaveFailed || result.SaveResult != nil {
		t.Errorf("a cache hit must skip the save step, got failed=%v save=%+v", result.SaveFailed, result.SaveResult)
	}
	if result.Subscription.Used != 1 {
		t.Errorf("quota used = %d, a hit must still be charged", result.Subscription.Used)
	}
}

func TestServeFromCache_CorruptEntryDemotesToMiss(t *testing.T) {
	result := &GenerateResult{}
	done, err := testGateway().serveFromCache(1, "{not json", result)
	if done || err == nil {
		t.Error("corrupt payload should report a decode failure")
	}
	if result.Cached {
		t.Error("result must not be marked cached on a decode failure")
	}
}

func TestServeFromCache_RehydratesPayload(t *testing.T) {
	payload := `{"flashcards":[{"front":"q","back":"a"}],"model_id":"gpt-4o-mini","provider":"openai","prompt_tokens":120,"completion_tokens":80}`

	result := &GenerateResult{}
	done, err := testGateway().serveFromCache(1, payload, result)
	if err != nil || !done {
		t.Fatalf("valid payload should rehydrate, got done=%v err=%v", done, err)
	}
	if !result.Cached {
		t.Error("result should be marked cached")
	}
	if result.ItemCount != 1 || result.ModelID != "gpt-4o-mini" {
		t.Errorf("rehydrated result = %+v", result)
	}
	if result.EstimatedCostUsd != 0 {
		t.Errorf("a cache hit costs nothing, got %f", result.EstimatedCostUsd)
	}
}
