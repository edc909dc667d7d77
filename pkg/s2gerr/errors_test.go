package s2gerr

import (
	"errors"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeConfig, "bad value: %d", 42)

	if err.Code != ErrCodeConfig {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeConfig)
	}
	want := "CONFIG_ERROR: bad value: 42"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(ErrCodeIO, cause, "writing score file")

	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
}

func TestIsAndGetCode(t *testing.T) {
	err := New(ErrCodeNumeric, "singular covariance")

	if !Is(err, ErrCodeNumeric) {
		t.Error("Is(err, ErrCodeNumeric) = false, want true")
	}
	if Is(err, ErrCodeIO) {
		t.Error("Is(err, ErrCodeIO) = true, want false")
	}
	if GetCode(err) != ErrCodeNumeric {
		t.Errorf("GetCode = %v, want %v", GetCode(err), ErrCodeNumeric)
	}
	if GetCode(errors.New("plain")) != "" {
		t.Error("GetCode on a plain error should be empty")
	}
}
