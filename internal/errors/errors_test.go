package errors_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	errs "github.com/edgard/collectbot/internal/errors"
)

func TestCode(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")

	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "config", err: errs.NewConfigError("bad state", cause), want: errs.CodeConfig},
		{name: "delivery", err: errs.NewDeliveryError("send failed", cause), want: errs.CodeDelivery},
		{name: "pin", err: errs.NewPinError("pin failed", cause), want: errs.CodePin},
		{name: "validation", err: errs.NewValidationError("bad time", nil), want: errs.CodeValidation},
		{name: "database", err: errs.NewDatabaseError("insert failed", cause), want: errs.CodeDatabase},
		{name: "wrapped", err: fmt.Errorf("outer: %w", errs.NewPinError("pin", cause)), want: errs.CodePin},
		{name: "plain", err: cause, want: errs.CodeUnknown},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, errs.Code(tt.err))
		})
	}
}

func TestPredicatesAndUnwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("network down")
	err := fmt.Errorf("announce: %w", errs.NewDeliveryError("send announcement", cause))

	assert.True(t, errs.IsDelivery(err))
	assert.False(t, errs.IsPin(err))
	assert.False(t, errs.IsValidation(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "announce: send announcement: network down", err.Error())
	assert.Equal(t, "bad time", errs.NewValidationError("bad time", nil).Error())
}
