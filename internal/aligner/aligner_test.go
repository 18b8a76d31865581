package aligner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

const gapScript = `#!/bin/sh
while [ $# -gt 0 ]; do
  case "$1" in
    -align) in="$2"; shift 2 ;;
    -output) out="$2"; shift 2 ;;
    *) shift ;;
  esac
done
sed '/^>/!s/$/-/' "$in" > "$out"
`

// installTool writes an executable script into a temp dir prepended to PATH.
func installTool(t *testing.T, name, script string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell-script aligners are not supported on windows")
	}
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(script), 0o755); err != nil {
		t.Fatalf("write tool: %v", err)
	}
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func stage(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	in := filepath.Join(dir, "in.fasta")
	if err := os.WriteFile(in, []byte(">seq1\nACGT\n>seq2\nACGG\n"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	return in, filepath.Join(dir, "out.fasta")
}

func TestParseArgs(t *testing.T) {
	tests := []struct {
		template string
		want     []string
		wantErr  bool
	}{
		{"-align {input} -output {output}", []string{"-align", "{input}", "-output", "{output}"}, false},
		{"-in {input}  -out {output} -quiet", []string{"-in", "{input}", "-out", "{output}", "-quiet"}, false},
		{"--infile={input} --outfile={output}", []string{"--infile={input}", "--outfile={output}"}, false},
		{"-in {input}", nil, true},
		{"-out {output}", nil, true},
		{"", nil, true},
	}
	for _, tt := range tests {
		got, err := ParseArgs(tt.template)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("ParseArgs(%q) expected error", tt.template)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseArgs(%q) error: %v", tt.template, err)
		}
		if strings.Join(got, "|") != strings.Join(tt.want, "|") {
			t.Fatalf("ParseArgs(%q) = %q, want %q", tt.template, got, tt.want)
		}
	}
}

func TestExecArgs(t *testing.T) {
	e, err := NewExec("muscle", "--infile={input} -out {output}", 0)
	if err != nil {
		t.Fatalf("NewExec() error: %v", err)
	}
	got := e.Args("/w/in/a.fasta", "/w/out/a.fasta")
	want := []string{"--infile=/w/in/a.fasta", "-out", "/w/out/a.fasta"}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Fatalf("Args() = %q, want %q", got, want)
	}
	if e.Name() != "muscle" {
		t.Fatalf("Name() = %q", e.Name())
	}
}

func TestNewExecRejectsEmptyTool(t *testing.T) {
	if _, err := NewExec("  ", "-in {input} -out {output}", 0); err == nil {
		t.Fatal("expected error for empty tool")
	}
}

func TestExecAlignSuccess(t *testing.T) {
	installTool(t, "fakemsa", gapScript)
	in, out := stage(t)

	e, err := NewExec("fakemsa", "-align {input} -output {output}", 5*time.Second)
	if err != nil {
		t.Fatalf("NewExec() error: %v", err)
	}
	if err := e.Available(); err != nil {
		t.Fatalf("Available() error: %v", err)
	}
	if err := e.Align(context.Background(), in, out); err != nil {
		t.Fatalf("Align() error: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(data) != ">seq1\nACGT-\n>seq2\nACGG-\n" {
		t.Fatalf("unexpected output %q", data)
	}
}

func TestExecAlignToolNotFound(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	in, out := stage(t)

	e, err := NewExec("no-such-aligner", "-align {input} -output {output}", 0)
	if err != nil {
		t.Fatalf("NewExec() error: %v", err)
	}
	err = e.Align(context.Background(), in, out)
	if !errors.Is(err, ErrToolNotFound) {
		t.Fatalf("Align() error = %v, want ErrToolNotFound", err)
	}
	if errors.Is(err, ErrInvocationFailed) {
		t.Fatal("tool-not-found must not match ErrInvocationFailed")
	}
	if !errors.Is(e.Available(), ErrToolNotFound) {
		t.Fatal("Available() should report ErrToolNotFound")
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Fatal("no output should be written")
	}
}

func TestExecAlignNonZeroExit(t *testing.T) {
	installTool(t, "failmsa", "#!/bin/sh\necho 'ERROR: bad sequence alphabet' >&2\nexit 3\n")
	in, out := stage(t)

	e, _ := NewExec("failmsa", "-align {input} -output {output}", 0)
	err := e.Align(context.Background(), in, out)
	if !errors.Is(err, ErrInvocationFailed) {
		t.Fatalf("Align() error = %v, want ErrInvocationFailed", err)
	}
	var invErr *InvocationError
	if !errors.As(err, &invErr) {
		t.Fatalf("expected *InvocationError, got %T", err)
	}
	if invErr.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", invErr.ExitCode)
	}
	if !strings.Contains(invErr.Stderr, "bad sequence alphabet") {
		t.Errorf("Stderr = %q", invErr.Stderr)
	}
	if !strings.Contains(err.Error(), "exit code 3") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestExecAlignNoOutput(t *testing.T) {
	installTool(t, "lazymsa", "#!/bin/sh\nexit 0\n")
	in, out := stage(t)

	e, _ := NewExec("lazymsa", "-align {input} -output {output}", 0)
	err := e.Align(context.Background(), in, out)
	if !errors.Is(err, ErrInvocationFailed) {
		t.Fatalf("Align() error = %v, want ErrInvocationFailed", err)
	}
}

func TestExecAlignTimeout(t *testing.T) {
	installTool(t, "slowmsa", "#!/bin/sh\nexec sleep 30\n")
	in, out := stage(t)

	e, _ := NewExec("slowmsa", "-align {input} -output {output}", 100*time.Millisecond)
	start := time.Now()
	err := e.Align(context.Background(), in, out)
	if !errors.Is(err, ErrInvocationFailed) {
		t.Fatalf("Align() error = %v, want ErrInvocationFailed", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Align() error = %v, want DeadlineExceeded", err)
	}
	if time.Since(start) > 10*time.Second {
		t.Fatal("timeout did not stop the aligner")
	}
}

func TestFuncAligner(t *testing.T) {
	var called bool
	var a Aligner = Func(func(ctx context.Context, in, out string) error {
		called = in == "a" && out == "b"
		return nil
	})
	if err := a.Align(context.Background(), "a", "b"); err != nil || !called {
		t.Fatalf("Func.Align() = %v, called=%v", err, called)
	}
	if a.Name() != "func" {
		t.Fatalf("Name() = %q", a.Name())
	}
}

func TestTailBuffer(t *testing.T) {
	tb := &tailBuffer{max: 4}
	_, _ = tb.Write([]byte("abc"))
	_, _ = tb.Write([]byte("defg"))
	if tb.String() != "defg" {
		t.Fatalf("tail = %q, want defg", tb.String())
	}
}
