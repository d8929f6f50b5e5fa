package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func performError(t *testing.T, err error) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	Error(c, err)

	var body Response
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("response body did not decode: %v", err)
	}
	return w, body
}

func TestError_QuotaExceeded(t *testing.T) {
	details := map[string]interface{}{"generations_used": 20, "generations_quota": 20}
	w, body := performError(t, NewQuotaExceeded("quota exhausted", details))

	if w.Code != http.StatusPaymentRequired {
		t.Errorf("status = %d, expected 402", w.Code)
	}
	if body.Error == nil || body.Error.Code != CodeQuotaExceeded {
		t.Fatalf("error code = %+v, expected %s", body.Error, CodeQuotaExceeded)
	}
	if body.Error.Retryable {
		t.Error("quota errors are not retryable")
	}
	if body.Error.Details == nil {
		t.Error("quota error should carry usage details")
	}
}

func TestError_RateLimitedSetsRetryAfter(t *testing.T) {
	w, body := performError(t, NewRateLimited("slow down", 42))

	if w.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, expected 429", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "42" {
		t.Errorf("Retry-After header = %q, expected 42", got)
	}
	if body.Error == nil || !body.Error.Retryable {
		t.Error("rate limit errors are retryable")
	}
	if body.Error.RetryAfter != 42 {
		t.Errorf("retry_after_seconds = %d, expected 42", body.Error.RetryAfter)
	}
}

func TestError_GenerationFailure(t *testing.T) {
	w, body := performError(t, NewGenerationFailure("model generation failed"))

	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, expected 502", w.Code)
	}
	if body.Error == nil || body.Error.Code != CodeGenerationError || !body.Error.Retryable {
		t.Errorf("unexpected error body: %+v", body.Error)
	}
}

func TestError_RoutingFailure(t *testing.T) {
	w, body := performError(t, NewRoutingFailure("no healthy models available"))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, expected 500", w.Code)
	}
	if body.Error == nil || body.Error.Code != CodeNoHealthyModels {
		t.Errorf("unexpected error body: %+v", body.Error)
	}
}

func TestError_PlainErrorBecomesInternal(t *testing.T) {
	w, body := performError(t, errors.New("boom"))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, expected 500", w.Code)
	}
	if body.Error == nil || body.Error.Code != CodeInternal {
		t.Errorf("unexpected error body: %+v", body.Error)
	}
}

func TestError_WrappedAppErrorUnwraps(t *testing.T) {
	wrapped := errorWrapper{inner: NewBadRequest("bad input")}
	w, body := performError(t, wrapped)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, expected 400 from the wrapped AppError", w.Code)
	}
	if body.Error == nil || body.Error.Code != CodeInvalidRequest {
		t.Errorf("unexpected error body: %+v", body.Error)
	}
}

type errorWrapper struct{ inner error }

func (e errorWrapper) Error() string { return "wrapped: " + e.inner.Error() }
func (e errorWrapper) Unwrap() error { return e.inner }
