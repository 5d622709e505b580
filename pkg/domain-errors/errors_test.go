package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCode_WalksChain(t *testing.T) {
	inner := New(CodeAlreadyExists, "document 0xabc already recorded")
	outer := Wrap(inner, CodeDocumentRevoked, "document 0xabc was revoked")

	assert.True(t, HasCode(outer, CodeDocumentRevoked))
	assert.True(t, HasCode(outer, CodeAlreadyExists))
	assert.False(t, HasCode(outer, CodeNotFound))
	assert.Equal(t, CodeDocumentRevoked, CodeOf(outer))
}

func TestHasCode_ThroughFmtWrapping(t *testing.T) {
	err := fmt.Errorf("mature: %w", New(CodeCliffNotEnded, "subscription abc"))
	assert.True(t, HasCode(err, CodeCliffNotEnded))
}

func TestHasCode_PlainError(t *testing.T) {
	assert.False(t, HasCode(errors.New("boom"), CodeInternal))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
}

func TestToHTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeNotFound, http.StatusNotFound},
		{CodeBelowMinimum, http.StatusBadRequest},
		{CodeUntrustedSigner, http.StatusForbidden},
		{CodeReplayedProof, http.StatusConflict},
		{CodeCoverageBreached, http.StatusUnprocessableEntity},
		{CodeInsufficientCredit, http.StatusPaymentRequired},
		{CodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, ToHTTPStatus(tt.code))
		})
	}
}
