// Package b64 implements the Base64 encoding used inside VEOs.
//
// The alphabet is the RFC 2045 one, but the line wrapping differs between the two
// encoders: EncodeStream (file content) breaks lines after 76 characters and always
// terminates the last line, EncodeBuffer (signatures and certificates) breaks lines
// after 72 characters and leaves a trailing partial line unterminated.
//
// Decoding is deliberately permissive: bytes outside the alphabet decode as zero bits
// rather than failing, which matches how existing VEOs have always been read.
package b64

import (
	"errors"
	"io"
)

const (
	encodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

	pad = '='

	// invalid is the decode table value for bytes outside the alphabet
	invalid = 64

	streamGroupsPerLine = 19
	bufferGroupsPerLine = 18
)

var crlf = []byte{'\r', '\n'}

var decodeMap [256]byte

func init() {
	for i := range decodeMap {
		decodeMap[i] = invalid
	}
	for i := 0; i < len(encodeAlphabet); i++ {
		decodeMap[encodeAlphabet[i]] = byte(i)
	}
	decodeMap[pad] = 0
}

// EncodeGroup encodes up to three bytes of src into dst[0:4].
// Unused input bits are zero filled and missing bytes are represented by '='.
// It panics if len(src) is not 1, 2 or 3 or dst is shorter than 4.
func EncodeGroup(dst, src []byte) {
	var in [3]byte
	n := copy(in[:], src)
	if n == 0 || len(src) > 3 {
		panic("b64: EncodeGroup needs 1 to 3 input bytes")
	}

	dst[0] = encodeAlphabet[in[0]>>2]
	dst[1] = encodeAlphabet[(in[0]&0x03)<<4|in[1]>>4]
	dst[2] = pad
	dst[3] = pad
	if n > 1 {
		dst[2] = encodeAlphabet[(in[1]&0x0f)<<2|in[2]>>6]
	}
	if n > 2 {
		dst[3] = encodeAlphabet[in[2]&0x3f]
	}
}

// DecodeGroup decodes four characters of src into dst[0:3] and returns the number of
// valid output bytes. Only positions 2 and 3 are checked for padding.
func DecodeGroup(dst, src []byte) int {
	n := 3
	if src[3] == pad {
		n = 2
	}
	if src[2] == pad {
		n = 1
	}

	b0 := decodeMap[src[0]]
	b1 := decodeMap[src[1]]
	b2 := decodeMap[src[2]]
	b3 := decodeMap[src[3]]

	dst[0] = (b0&0x3f)<<2 | (b1&0x30)>>4
	dst[1] = (b1&0x0f)<<4 | (b2&0x3c)>>2
	dst[2] = (b2&0x03)<<6 | b3&0x3f
	return n
}

// EncodeStream reads r until EOF and writes its Base64 encoding to w, with a CRLF after
// every 19 groups (76 characters) and after a trailing partial line.
// Each line is handed to w in a single Write call.
func EncodeStream(r io.Reader, w io.Writer) error {
	var in [3]byte
	line := make([]byte, 0, streamGroupsPerLine*4+2)

	for {
		n, err := io.ReadFull(r, in[:])
		if n > 0 {
			var group [4]byte
			EncodeGroup(group[:], in[:n])
			line = append(line, group[:]...)
			if len(line) == streamGroupsPerLine*4 {
				line = append(line, crlf...)
				if _, werr := w.Write(line); werr != nil {
					return werr
				}
				line = line[:0]
			}
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			return err
		}
	}

	if len(line) > 0 {
		line = append(line, crlf...)
		if _, err := w.Write(line); err != nil {
			return err
		}
	}
	return nil
}

// EncodeBuffer returns the Base64 encoding of src with a CRLF after every 18th group
// (72 characters). A trailing partial line is not terminated.
func EncodeBuffer(src []byte) []byte {
	out := make([]byte, 0, EncodedBufferLen(len(src)))
	var group [4]byte
	groups := 0
	for i := 0; i < len(src); i += 3 {
		end := min(i+3, len(src))
		EncodeGroup(group[:], src[i:end])
		out = append(out, group[:]...)
		groups++
		if groups%bufferGroupsPerLine == 0 {
			out = append(out, crlf...)
		}
	}
	return out
}

// EncodedBufferLen returns len(EncodeBuffer(src)) for an input of n bytes.
func EncodedBufferLen(n int) int {
	groups := (n + 2) / 3
	return groups*4 + (groups/bufferGroupsPerLine)*len(crlf)
}

// Decode decodes Base64 text produced by either encoder. Tab, CR, LF and space are
// skipped between characters; a trailing incomplete group is ignored.
func Decode(src []byte) []byte {
	out := make([]byte, 0, len(src)/4*3)
	var group [4]byte
	var dec [3]byte
	n := 0
	for _, c := range src {
		switch c {
		case '\t', '\r', '\n', ' ':
			continue
		}
		group[n] = c
		n++
		if n == 4 {
			k := DecodeGroup(dec[:], group[:])
			out = append(out, dec[:k]...)
			n = 0
		}
	}
	return out
}
