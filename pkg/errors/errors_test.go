package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithDetailDoesNotMutateShared(t *testing.T) {
	e := ErrEbookNotFound.WithDetail("id=7")

	assert.Equal(t, "id=7", e.Detail)
	assert.Empty(t, ErrEbookNotFound.Detail)
	assert.ErrorIs(t, e, ErrEbookNotFound)
}

func TestAsAppErrorUnwrapsChain(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", ErrInsufficientCredit)

	assert.True(t, IsAppError(wrapped))
	got := AsAppError(wrapped)
	assert.Equal(t, CodeInsufficientCredit, got.Code)
	assert.Equal(t, http.StatusPaymentRequired, got.HTTPStatus)

	unknown := AsAppError(stderrors.New("boom"))
	assert.Equal(t, CodeUnknown, unknown.Code)
	assert.Equal(t, http.StatusInternalServerError, unknown.HTTPStatus)
}

func TestCodeToHTTPStatus(t *testing.T) {
	cases := map[ErrorCode]int{
		CodeInvalidParam:         http.StatusBadRequest,
		CodeEbookNotReady:        http.StatusBadRequest,
		CodeTokenExpired:         http.StatusUnauthorized,
		CodeUpgradeRequired:      http.StatusForbidden,
		CodeChapterNotFound:      http.StatusNotFound,
		CodeEbookGenerating:      http.StatusConflict,
		CodeLLMRateLimitExceeded: http.StatusTooManyRequests,
		CodeLLMCallFailed:        http.StatusBadGateway,
		CodeDatabaseError:        http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, codeToHTTPStatus(code), string(code))
	}
}
