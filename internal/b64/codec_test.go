package b64

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"
)

func testBytes(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*7 + 3)
	}
	return b
}

func TestEncodeBuffer_RoundTrip(t *testing.T) {
	for n := 0; n <= 300; n++ {
		src := testBytes(n)
		enc := EncodeBuffer(src)
		if len(enc) != EncodedBufferLen(n) {
			t.Fatalf("n=%d: len(EncodeBuffer) = %d, EncodedBufferLen = %d", n, len(enc), EncodedBufferLen(n))
		}
		if got := Decode(enc); !bytes.Equal(got, src) {
			t.Fatalf("n=%d: round trip mismatch", n)
		}
	}
}

func TestEncodeStream_RoundTrip(t *testing.T) {
	for n := 0; n <= 300; n++ {
		src := testBytes(n)
		var buf bytes.Buffer
		if err := EncodeStream(bytes.NewReader(src), &buf); err != nil {
			t.Fatalf("n=%d: EncodeStream() error = %v", n, err)
		}
		if got := Decode(buf.Bytes()); !bytes.Equal(got, src) {
			t.Fatalf("n=%d: round trip mismatch", n)
		}
	}
}

func TestEncodeGroup_MatchesStdlib(t *testing.T) {
	for _, src := range [][]byte{{0xff}, {0x00, 0x10}, {0xde, 0xad, 0xbe}} {
		var got [4]byte
		EncodeGroup(got[:], src)
		if want := base64.StdEncoding.EncodeToString(src); string(got[:]) != want {
			t.Errorf("EncodeGroup(%x) = %q, want %q", src, got[:], want)
		}
	}
}

func TestPadding(t *testing.T) {
	tests := []struct {
		name    string
		n       int
		wantPad int
	}{
		{"one residual byte", 4, 2},
		{"two residual bytes", 5, 1},
		{"multiple of three", 6, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc := EncodeBuffer(testBytes(tt.n))
			if got := strings.Count(string(enc), "="); got != tt.wantPad {
				t.Errorf("padding count = %d, want %d", got, tt.wantPad)
			}
		})
	}
}

func TestLineWrapping(t *testing.T) {
	t.Run("stream wraps at 76 and terminates the last line", func(t *testing.T) {
		var buf bytes.Buffer
		if err := EncodeStream(bytes.NewReader(testBytes(60)), &buf); err != nil {
			t.Fatal(err)
		}
		lines := strings.Split(buf.String(), "\r\n")
		// 60 bytes = 20 groups: one full line of 76, one of 4, then the final terminator
		if len(lines) != 3 || len(lines[0]) != 76 || len(lines[1]) != 4 || lines[2] != "" {
			t.Errorf("unexpected stream layout %q", buf.String())
		}
	})

	t.Run("buffer wraps at 72 and leaves the last line open", func(t *testing.T) {
		enc := string(EncodeBuffer(testBytes(57)))
		lines := strings.Split(enc, "\r\n")
		if len(lines) != 2 || len(lines[0]) != 72 || len(lines[1]) != 4 {
			t.Errorf("unexpected buffer layout %q", enc)
		}
	})

	t.Run("buffer of exactly 18 groups ends in CRLF", func(t *testing.T) {
		enc := string(EncodeBuffer(testBytes(54)))
		if !strings.HasSuffix(enc, "\r\n") || len(enc) != 74 {
			t.Errorf("unexpected buffer layout %q", enc)
		}
	})
}

func TestEncodedBufferLen(t *testing.T) {
	tests := []struct {
		name string
		n    int
		want int
	}{
		{"empty", 0, 0},
		{"ed25519 signature", 64, 88 + 2},
		{"rsa 1024 signature", 128, 172 + 2*2},
		{"rsa 2048 signature", 256, 344 + 4*2},
		{"rsa 4096 signature", 512, 684 + 9*2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EncodedBufferLen(tt.n); got != tt.want {
				t.Errorf("EncodedBufferLen(%d) = %d, want %d", tt.n, got, tt.want)
			}
		})
	}
}

func TestDecode_Permissive(t *testing.T) {
	// '!' is outside the alphabet and decodes via the invalid sentinel rather than failing
	got := Decode([]byte("QU!D"))
	if len(got) != 3 {
		t.Fatalf("Decode() returned %d bytes, want 3", len(got))
	}
	if got[0] != 'A' {
		t.Errorf("first byte = %q, want 'A'", got[0])
	}
}
