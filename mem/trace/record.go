package trace

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/sarchlab/cachesim/mem/mem"
)

// MalformedRecordError reports a trace line that is not a valid access.
type MalformedRecordError struct {
	Line   int
	Text   string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("malformed trace record %q: %s", e.Text, e.Reason)
	}

	return fmt.Sprintf("malformed trace record at line %d %q: %s",
		e.Line, e.Text, e.Reason)
}

// ParseRecord parses one access of the form <op>:<hexaddress>[:<size>]. The
// op is R or W (case-insensitive, or spelled out as Read and Write), the
// address may carry a 0x prefix and the optional size is decimal.
func ParseRecord(text string) (mem.AccessReq, error) {
	malformed := func(reason string) (mem.AccessReq, error) {
		return mem.AccessReq{}, &MalformedRecordError{
			Text:   text,
			Reason: reason,
		}
	}

	fields := strings.Split(strings.TrimSpace(text), ":")
	if len(fields) < 2 || len(fields) > 3 {
		return malformed("expected <op>:<address>[:<size>]")
	}

	var req mem.AccessReq

	switch strings.ToLower(strings.TrimSpace(fields[0])) {
	case "r", "read":
		req.Op = mem.Read
	case "w", "write":
		req.Op = mem.Write
	default:
		return malformed("unknown operation " + strconv.Quote(fields[0]))
	}

	addr := strings.TrimSpace(fields[1])
	addr = strings.TrimPrefix(strings.TrimPrefix(addr, "0x"), "0X")

	if addr == "" {
		return malformed("missing address")
	}

	address, err := strconv.ParseUint(addr, 16, 64)
	if err != nil {
		return malformed("invalid hexadecimal address " + strconv.Quote(addr))
	}

	req.Address = address

	if len(fields) == 3 {
		size, err := strconv.ParseUint(strings.TrimSpace(fields[2]), 10, 64)
		if err != nil || size == 0 {
			return malformed("invalid size " + strconv.Quote(fields[2]))
		}

		req.ByteSize = size
	}

	return req, nil
}

func isSkipped(line string) bool {
	trimmed := strings.TrimSpace(line)
	return trimmed == "" || strings.HasPrefix(trimmed, "#")
}

// Reader reads accesses from a textual trace, one per line. Blank lines and
// lines starting with # are skipped.
type Reader struct {
	scanner *bufio.Scanner
	line    int
}

// NewReader creates a Reader.
func NewReader(r io.Reader) *Reader {
	return &Reader{
		scanner: bufio.NewScanner(r),
	}
}

// Line returns the number of the last line read.
func (r *Reader) Line() int {
	return r.line
}

// Next returns the next access. It returns io.EOF after the last one and a
// *MalformedRecordError carrying the line number for an invalid line.
func (r *Reader) Next() (mem.AccessReq, error) {
	for r.scanner.Scan() {
		r.line++

		text := r.scanner.Text()
		if isSkipped(text) {
			continue
		}

		req, err := ParseRecord(text)
		if err != nil {
			var merr *MalformedRecordError
			if errors.As(err, &merr) {
				merr.Line = r.line
			}

			return mem.AccessReq{}, err
		}

		return req, nil
	}

	if err := r.scanner.Err(); err != nil {
		return mem.AccessReq{}, errors.Wrapf(err, "reading trace line %d",
			r.line+1)
	}

	return mem.AccessReq{}, io.EOF
}

// ReadAll reads every remaining access.
func (r *Reader) ReadAll() ([]mem.AccessReq, error) {
	var reqs []mem.AccessReq

	for {
		req, err := r.Next()
		if err == io.EOF {
			return reqs, nil
		}

		if err != nil {
			return reqs, err
		}

		reqs = append(reqs, req)
	}
}
