package socks5

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"testing/iotest"
)

// overReader claims to have read one byte more than it was asked for.
type overReader struct{}

func (overReader) Read(p []byte) (int, error) { return len(p) + 1, nil }

func TestReadExact(t *testing.T) {
	errBoom := errors.New("boom")

	tests := []struct {
		name    string
		r       io.Reader
		n       int
		want    string
		wantN   int
		wantErr error
	}{
		{name: "exact", r: bytes.NewReader([]byte("abcd")), n: 4, want: "abcd", wantN: 4},
		{name: "prefix", r: bytes.NewReader([]byte("abcdef")), n: 3, want: "abc", wantN: 3},
		{name: "one byte at a time", r: iotest.OneByteReader(bytes.NewReader([]byte("abcd"))), n: 4, want: "abcd", wantN: 4},
		{name: "data with eof", r: iotest.DataErrReader(bytes.NewReader([]byte("ab"))), n: 2, want: "ab", wantN: 2},
		{name: "zero", r: iotest.ErrReader(errBoom), n: 0, wantN: 0},
		{name: "truncated", r: bytes.NewReader([]byte("abc")), n: 4, wantN: 3, wantErr: ErrUnexpectedEOF},
		{name: "empty", r: bytes.NewReader(nil), n: 2, wantN: 0, wantErr: ErrUnexpectedEOF},
		{name: "overrun", r: overReader{}, n: 2, wantN: 0, wantErr: ErrExtraDataRead},
		{name: "read error", r: iotest.ErrReader(errBoom), n: 1, wantN: 0, wantErr: errBoom},
		{name: "timeout error", r: iotest.TimeoutReader(bytes.NewReader([]byte("ab"))), n: 4, wantN: 2, wantErr: iotest.ErrTimeout},
		{name: "buffer too small", r: bytes.NewReader([]byte("abcdefghijklmnop")), n: 16, wantN: 0, wantErr: io.ErrShortBuffer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := make([]byte, 8)
			n, err := ReadExact(tt.r, buf, tt.n)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got err %v want %v", err, tt.wantErr)
			}
			if n != tt.wantN {
				t.Fatalf("got n=%d want %d", n, tt.wantN)
			}
			if tt.wantErr == nil && string(buf[:n]) != tt.want {
				t.Fatalf("got %q want %q", buf[:n], tt.want)
			}
		})
	}
}

type stallReader struct{}

func (stallReader) Read([]byte) (int, error) { return 0, nil }

func TestReadExactNoProgress(t *testing.T) {
	buf := make([]byte, 4)
	if _, err := ReadExact(stallReader{}, buf, 4); !errors.Is(err, io.ErrNoProgress) {
		t.Fatalf("got err %v", err)
	}
}
