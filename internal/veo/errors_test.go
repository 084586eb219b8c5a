package veo

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"
)

// check to ensure error code handling has not been broken
func TestError_Code(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode ErrorCode
	}{
		{"state", NewStateError("op", "test"), ErrCodeState},
		{"argument", NewArgumentError("op", "test"), ErrCodeArgument},
		{"not_found", NewNotFoundError("op", "test"), ErrCodeNotFound},
		{"not_found wrapped", WrapNotFoundError(fs.ErrNotExist, "op", "test"), ErrCodeNotFound},
		{"io", NewIOError("op", "test"), ErrCodeIO},
		{"io wrapped", WrapIOError(errors.New("disk full"), "op", "test"), ErrCodeIO},
		{"crypto", NewCryptoError("op", "test"), ErrCodeCrypto},
		{"crypto wrapped", WrapCryptoError(errors.New("bad key"), "op", "test"), ErrCodeCrypto},
		{"syntax", NewSyntaxError("op", "test"), ErrCodeSyntax},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var veoErr *Error
			if !errors.As(tt.err, &veoErr) {
				t.Fatal("error is not a *veo.Error")
			}
			if veoErr.Code() != tt.wantCode {
				t.Errorf("Code() = %q, want %q", veoErr.Code(), tt.wantCode)
			}
			if CodeOf(fmt.Errorf("outer: %w", tt.err)) != tt.wantCode {
				t.Errorf("CodeOf() through wrapping = %q, want %q", CodeOf(tt.err), tt.wantCode)
			}
		})
	}
}

func TestError_Message(t *testing.T) {
	err := NewStateError("generator.StartRecord", "addLockSignatureBlock() has not been called on this VEO")
	want := "generator.StartRecord: addLockSignatureBlock() has not been called on this VEO"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	wrapped := WrapIOError(fs.ErrNotExist, "op", "failed")
	if !errors.Is(wrapped, fs.ErrNotExist) {
		t.Error("wrapped error should unwrap to fs.ErrNotExist")
	}
	if CodeOf(errors.New("plain")) != "" {
		t.Error("CodeOf() on a plain error should be empty")
	}
}

func TestRowKindFromFlag(t *testing.T) {
	tests := []struct {
		flag string
		want RowKind
	}{
		{"f", RowFile},
		{"r", RowRecord},
		{"record", RowRecord},
		{"d", RowDocument},
		{"e", RowEncoding},
		{"s", RowSimpleRecord},
		{"x", RowUnknown},
		{"", RowUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			if got := RowKindFromFlag(tt.flag); got != tt.want {
				t.Errorf("RowKindFromFlag(%q) = %v, want %v", tt.flag, got, tt.want)
			}
		})
	}
}
