package logfile

import (
	"bufio"
	"errors"
	"io"
	"os"
	"time"

	"github.com/wadjakorntonsri/go-beacon/pkg/core/domain"
)

const maxLineSize = 1 << 20

// ReadResult is the outcome of scanning a visit log.
type ReadResult struct {
	Visits    []domain.Visit
	Malformed int
	// Ambiguous lines are kept in Visits with a best-effort field split.
	Ambiguous int
}

// Read parses every line of r. Lines that do not match the visit format are
// counted and skipped; only I/O errors are returned.
func Read(r io.Reader, loc *time.Location) (*ReadResult, error) {
	res := &ReadResult{}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		v, err := domain.ParseLine(line, loc)
		switch {
		case errors.Is(err, domain.ErrMalformedLine):
			res.Malformed++
			continue
		case errors.Is(err, domain.ErrAmbiguousLine):
			res.Ambiguous++
		}
		res.Visits = append(res.Visits, v)
	}
	if err := sc.Err(); err != nil {
		return res, err
	}
	return res, nil
}

// ReadFile opens path and parses it with Read.
func ReadFile(path string, loc *time.Location) (*ReadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f, loc)
}
