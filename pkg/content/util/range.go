package util

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var ErrInvalidRange = errors.New("invalid range")

// ParseRange parses a "start-end" byte range, both bounds inclusive.
func ParseRange(s string) (*Range, error) {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return nil, ErrInvalidRange
	}

	start, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return nil, ErrInvalidRange
	}

	end, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return nil, ErrInvalidRange
	}

	if end < start {
		return nil, ErrInvalidRange
	}

	return &Range{Start: start, Length: end + 1 - start}, nil
}

type Range struct {
	Start  int64
	Length int64
}

func (r Range) IsZero() bool {
	return r.Length == 0
}

func (r Range) String() string {
	return fmt.Sprintf("%d-%d", r.Start, r.Start+r.Length-1)
}

func (r Range) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Range) UnmarshalText(d []byte) error {
	parsed, err := ParseRange(string(d))
	if err != nil {
		return err
	}
	*r = *parsed
	return nil
}

// Section positions rs at r.Start and limits reads to r.Length bytes.
func (r Range) Section(rs io.ReadSeeker) (io.Reader, error) {
	if r.IsZero() {
		return rs, nil
	}
	if _, err := rs.Seek(r.Start, io.SeekStart); err != nil {
		return nil, err
	}
	return io.LimitReader(rs, r.Length), nil
}
