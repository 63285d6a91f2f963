package socks5

import (
	"errors"
	"fmt"
	"io"
)

// maxEmptyReads bounds consecutive (0, nil) reads, matching bufio.
const maxEmptyReads = 100

// ReadExact reads exactly n bytes from r into buf[:n].
//
// If r reaches EOF before n bytes arrive, the result is ErrUnexpectedEOF. A
// reader that claims to have returned more bytes than it was asked for
// yields ErrExtraDataRead. Any other read error is returned unchanged.
func ReadExact(r io.Reader, buf []byte, n int) (int, error) {
	if n <= 0 {
		return 0, nil
	}
	if n > len(buf) {
		return 0, fmt.Errorf("read %d bytes into %d byte buffer: %w", n, len(buf), io.ErrShortBuffer)
	}

	nr := 0
	empty := 0
	for nr < n {
		m, err := r.Read(buf[nr:n])
		if m < 0 || m > n-nr {
			return nr, ErrExtraDataRead
		}
		nr += m

		if err != nil {
			if nr == n {
				break
			}
			if errors.Is(err, io.EOF) {
				return nr, ErrUnexpectedEOF
			}
			return nr, err
		}

		if m == 0 {
			empty++
			if empty >= maxEmptyReads {
				return nr, io.ErrNoProgress
			}
			continue
		}
		empty = 0
	}

	return nr, nil
}
