package goble

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateAddressString(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		address   string
		expectErr bool
	}{
		{name: "valid address", address: "12:34:56:78:9A:BC", expectErr: false},
		{name: "valid lowercase address", address: "12:34:56:78:9a:bc", expectErr: false},
		{name: "wrong length", address: "12:34:56:78:9A", expectErr: true},
		{name: "wrong separator", address: "12-34-56-78-9A-BC", expectErr: true},
		{name: "invalid hex", address: "ZZ:34:56:78:9A:BC", expectErr: true},
		{name: "empty", address: "", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAddressString(tt.address)
			if tt.expectErr {
				assert.Error(t, err)
				assert.IsType(t, &ValidationError{}, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateUUID(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateUUID(MustParseUUID("1800")))
	assert.Error(t, ValidateUUID(UUID{}))
}

func TestValidateMTU(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		mtu       uint16
		expectErr bool
	}{
		{name: "minimum", mtu: 23, expectErr: false},
		{name: "maximum", mtu: 517, expectErr: false},
		{name: "typical", mtu: 185, expectErr: false},
		{name: "too small", mtu: 22, expectErr: true},
		{name: "too large", mtu: 518, expectErr: true},
		{name: "zero", mtu: 0, expectErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMTU(tt.mtu)
			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateTimeout(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateTimeout(5*time.Second, "connect"))
	assert.Error(t, ValidateTimeout(0, "connect"))
	assert.Error(t, ValidateTimeout(-time.Second, "connect"))
	assert.Error(t, ValidateTimeout(10*time.Minute, "connect"))
}

func TestValidateDeviceName(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateDeviceName("widget-1"))

	tooLong := make([]byte, 249)
	for i := range tooLong {
		tooLong[i] = 'a'
	}
	assert.Error(t, ValidateDeviceName(string(tooLong)))

	assert.Error(t, ValidateDeviceName("bad\x01name"))
}

func TestValidationErrorMessage(t *testing.T) {
	err := newValidationError("mtu", 10, "must be between 23 and 517")
	assert.Contains(t, err.Error(), "mtu")
	assert.Contains(t, err.Error(), "must be between 23 and 517")
}
