package hostresolver

import (
	"errors"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStreamError_IsZero(t *testing.T) {
	var nilErr *StreamError
	assert.True(t, nilErr.IsZero())
	assert.True(t, (&StreamError{}).IsZero())
	assert.False(t, NetDBErr(NetDBHostNotFound).IsZero())
}

func TestStreamError_Is(t *testing.T) {
	assert.True(t, errors.Is(NetDBErr(NetDBCancelled), ErrCancelled))
	assert.False(t, errors.Is(NetDBErr(NetDBCancelled), ErrHostNotFound))
	assert.False(t, errors.Is(PosixErr(syscall.ENOTSUP), ErrCancelled))
}

func TestMapStatus(t *testing.T) {
	cases := []struct {
		status driverStatus
		want   *StreamError
	}{
		{statusSuccess, nil},
		{statusHostNotFound, ErrHostNotFound},
		{statusCancelled, ErrCancelled},
		{statusAddrFamilyUnsupported, ErrAddrFamilyUnsupported},
	}
	for _, tc := range cases {
		got := mapStatus(tc.status, 0)
		if tc.want == nil {
			assert.Nil(t, got)
			continue
		}
		assert.True(t, errors.Is(got, tc.want))
	}
}

func TestMapStatus_UnknownWithErrnoHint(t *testing.T) {
	got := mapStatus(statusUnknown, syscall.ECONNREFUSED)
	assert.True(t, errors.Is(got, PosixErr(syscall.ECONNREFUSED)))
}
