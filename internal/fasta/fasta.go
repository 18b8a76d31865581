// Package fasta reads and writes FASTA sequence files.
package fasta

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	// ErrEmpty indicates the input held no sequence records.
	ErrEmpty = errors.New("fasta: no sequences")

	// ErrMalformed indicates the input is not valid FASTA.
	ErrMalformed = errors.New("fasta: malformed input")
)

const maxLineBytes = 64 * 1024 * 1024

// Record is one sequence and its description line.
type Record struct {
	Header   string
	Sequence string
}

// Parse reads every record from r. Blank lines and ';' comment lines are
// ignored; sequence lines are concatenated with whitespace removed.
func Parse(r io.Reader) ([]Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	var (
		records []Record
		seq     strings.Builder
		current *Record
		lineNo  int
	)

	flush := func() error {
		if current == nil {
			return nil
		}
		if seq.Len() == 0 {
			return fmt.Errorf("%w: record %q has no sequence", ErrMalformed, current.Header)
		}
		current.Sequence = seq.String()
		records = append(records, *current)
		seq.Reset()
		return nil
	}

	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, ";") {
			continue
		}

		if strings.HasPrefix(trimmed, ">") {
			if err := flush(); err != nil {
				return nil, err
			}
			current = &Record{Header: strings.TrimSpace(trimmed[1:])}
			continue
		}

		if current == nil {
			return nil, fmt.Errorf("%w: line %d: sequence data before first header", ErrMalformed, lineNo)
		}
		for _, c := range trimmed {
			switch {
			case c == ' ' || c == '\t':
				continue
			case isResidue(c):
				seq.WriteRune(c)
			default:
				return nil, fmt.Errorf("%w: line %d: unexpected character %q", ErrMalformed, lineNo, c)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, fmt.Errorf("%w: line %d exceeds %d bytes", ErrMalformed, lineNo+1, maxLineBytes)
		}
		return nil, err
	}
	if err := flush(); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrEmpty
	}
	return records, nil
}

// isResidue accepts IUPAC letters plus the gap and stop symbols aligners emit.
func isResidue(c rune) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z':
		return true
	case c == '-', c == '.', c == '*':
		return true
	}
	return false
}

// Write emits records to w, wrapping sequences at width columns. A width of
// zero or less writes each sequence on a single line.
func Write(w io.Writer, records []Record, width int) error {
	bw := bufio.NewWriter(w)
	for _, rec := range records {
		if _, err := fmt.Fprintf(bw, ">%s\n", rec.Header); err != nil {
			return err
		}
		seq := rec.Sequence
		cols := width
		if cols <= 0 {
			cols = len(seq)
		}
		for len(seq) > 0 {
			n := cols
			if n > len(seq) {
				n = len(seq)
			}
			if _, err := bw.WriteString(seq[:n] + "\n"); err != nil {
				return err
			}
			seq = seq[n:]
		}
	}
	return bw.Flush()
}

// Gapped reports whether any record contains a gap character.
func Gapped(records []Record) bool {
	for _, rec := range records {
		if strings.ContainsAny(rec.Sequence, "-.") {
			return true
		}
	}
	return false
}
