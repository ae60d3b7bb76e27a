package server

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	apikeydomain "github.com/smallbiznis/kado/internal/apikey/domain"
	contributiondomain "github.com/smallbiznis/kado/internal/contribution/domain"
	eventdomain "github.com/smallbiznis/kado/internal/event/domain"
	memberdomain "github.com/smallbiznis/kado/internal/member/domain"
	teamdomain "github.com/smallbiznis/kado/internal/team/domain"
	votedomain "github.com/smallbiznis/kado/internal/vote/domain"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"nil", nil, http.StatusInternalServerError, "internal_error"},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
		{"invalid request", ErrInvalidRequest, http.StatusBadRequest, "validation_error"},
		{"bad birthday", memberdomain.ErrInvalidBirthday, http.StatusBadRequest, "validation_error"},
		{"bad vote weight", votedomain.ErrInvalidVote, http.StatusBadRequest, "validation_error"},
		{"incomplete finalization", eventdomain.ErrIncompleteFinalization, http.StatusBadRequest, "validation_error"},
		{"bad api key", apikeydomain.ErrInvalidKey, http.StatusUnauthorized, "unauthorized"},
		{"not organizer", eventdomain.ErrUnauthorized, http.StatusForbidden, "forbidden"},
		{"honoree joins", contributiondomain.ErrNotEligible, http.StatusForbidden, "forbidden"},
		{"claim lost", eventdomain.ErrOrganizerAlreadyAssigned, http.StatusConflict, "conflict"},
		{"terminal event", eventdomain.ErrInvalidTransition, http.StatusConflict, "conflict"},
		{"voting closed", votedomain.ErrVotingClosed, http.StatusConflict, "conflict"},
		{"missing event", eventdomain.ErrNotFound, http.StatusNotFound, "not_found"},
		{"missing team", teamdomain.ErrTeamNotFound, http.StatusNotFound, "not_found"},
		{"gorm miss", gorm.ErrRecordNotFound, http.StatusNotFound, "not_found"},
		{"rate limited", ErrTooManyRequests, http.StatusTooManyRequests, "too_many_requests"},
		{"shed load", ErrServiceUnavailable, http.StatusServiceUnavailable, "service_unavailable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, payload := mapError(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantType, payload.Type)
		})
	}
}

func TestMapError_WrappedErrorsStillClassify(t *testing.T) {
	status, payload := mapError(fmt.Errorf("claim event: %w", eventdomain.ErrOrganizerAlreadyAssigned))
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "conflict", payload.Type)
}

func TestMapError_ValidationPayloadCarriesFieldErrors(t *testing.T) {
	status, payload := mapError(newValidationError("birthday", "invalid_birthday", "must be MM-DD"))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation_error", payload.Type)
	if assert.Len(t, payload.Errors, 1) {
		assert.Equal(t, "birthday", payload.Errors[0].Field)
		assert.Equal(t, "invalid_birthday", payload.Errors[0].Code)
	}

	status, payload = mapError(memberdomain.ErrInvalidBirthday)
	assert.Equal(t, http.StatusBadRequest, status)
	if assert.Len(t, payload.Errors, 1) {
		assert.Equal(t, "birthday", payload.Errors[0].Field)
		assert.Equal(t, "invalid_birthday", payload.Errors[0].Code)
	}
}

func TestClassifyErrorForLog(t *testing.T) {
	typ, code := classifyErrorForLog(nil)
	assert.Empty(t, typ)
	assert.Empty(t, code)

	typ, code = classifyErrorForLog(eventdomain.ErrNotFound)
	assert.Equal(t, "not_found", typ)
	assert.Equal(t, "not_found", code)

	typ, code = classifyErrorForLog(memberdomain.ErrInvalidBirthday)
	assert.Equal(t, "validation_error", typ)
	assert.Equal(t, "invalid_birthday", code)
}
