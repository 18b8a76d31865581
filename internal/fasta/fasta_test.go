package fasta

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	input := ">seq1 first sample\nACGT\nAC\n\n;comment\n>seq2\r\nAC GG\r\n"
	records, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Header != "seq1 first sample" || records[0].Sequence != "ACGTAC" {
		t.Errorf("record 0 = %+v", records[0])
	}
	if records[1].Header != "seq2" || records[1].Sequence != "ACGG" {
		t.Errorf("record 1 = %+v", records[1])
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"empty", "", ErrEmpty},
		{"blank lines only", "\n\n  \n", ErrEmpty},
		{"data before header", "ACGT\n>seq1\nACGT\n", ErrMalformed},
		{"header without sequence", ">seq1\n>seq2\nACGT\n", ErrMalformed},
		{"trailing header", ">seq1\nACGT\n>seq2\n", ErrMalformed},
		{"bad character", ">seq1\nAC#GT\n", ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input))
			if !errors.Is(err, tt.want) {
				t.Fatalf("Parse() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParseAcceptsGaps(t *testing.T) {
	records, err := Parse(strings.NewReader(">a\nAC-GT*\n>b\nAC.GT-\n"))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if !Gapped(records) {
		t.Fatal("expected gapped records")
	}
	ungapped := []Record{{Header: "a", Sequence: "ACGT"}}
	if Gapped(ungapped) {
		t.Fatal("expected ungapped record")
	}
}

func TestWrite(t *testing.T) {
	records := []Record{
		{Header: "seq1", Sequence: "ACGTACGTAC"},
		{Header: "seq2", Sequence: "AC"},
	}

	var buf bytes.Buffer
	if err := Write(&buf, records, 4); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	want := ">seq1\nACGT\nACGT\nAC\n>seq2\nAC\n"
	if buf.String() != want {
		t.Fatalf("Write() = %q, want %q", buf.String(), want)
	}

	buf.Reset()
	if err := Write(&buf, records, 0); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	want = ">seq1\nACGTACGTAC\n>seq2\nAC\n"
	if buf.String() != want {
		t.Fatalf("Write(width=0) = %q, want %q", buf.String(), want)
	}

	parsed, err := Parse(&buf)
	if err != nil || len(parsed) != 2 {
		t.Fatalf("re-parse failed: %v (%d records)", err, len(parsed))
	}
}
