package docgen

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// latexRunner stands in for pdflatex: it records invocations and drops the
// expected PDF into the working directory after the configured pass.
type latexRunner struct {
	failOnPass int // 1-based; 0 means never fail
	stderr     string
	skipPDF    bool

	calls []string
	dirs  []string
}

func (r *latexRunner) CombinedOutput(_ context.Context, dir, name string, args ...string) ([]byte, error) {
	r.calls = append(r.calls, name+" "+strings.Join(args, " "))
	r.dirs = append(r.dirs, dir)
	if r.failOnPass == len(r.calls) {
		return []byte(r.stderr), errors.New("exit status 1")
	}
	if !r.skipPDF {
		texName := args[len(args)-1]
		pdfName := strings.TrimSuffix(texName, ".tex") + ".pdf"
		if err := os.WriteFile(filepath.Join(dir, pdfName), []byte("%PDF-1.5"), 0o644); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

func TestRenderRunsTwoPasses(t *testing.T) {
	runner := &latexRunner{}
	r := &LatexRenderer{pdflatexPath: "pdflatex", runner: runner}

	pdf, err := r.Render(context.Background(), "study-notes", "\\documentclass{article}")
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if string(pdf) != "%PDF-1.5" {
		t.Fatalf("pdf bytes = %q", pdf)
	}
	if len(runner.calls) != 2 {
		t.Fatalf("pdflatex invoked %d times, want 2", len(runner.calls))
	}
	for _, call := range runner.calls {
		if !strings.Contains(call, "-halt-on-error") || !strings.Contains(call, "study-notes.tex") {
			t.Fatalf("unexpected pdflatex invocation: %s", call)
		}
	}
	if runner.dirs[0] != runner.dirs[1] {
		t.Fatalf("passes ran in different directories: %v", runner.dirs)
	}
}

func TestRenderFirstPassFailure(t *testing.T) {
	runner := &latexRunner{failOnPass: 1, stderr: "! Undefined control sequence."}
	r := &LatexRenderer{pdflatexPath: "pdflatex", runner: runner}

	_, err := r.Render(context.Background(), "study-notes", "broken")
	if !errors.Is(err, ErrRenderFailed) {
		t.Fatalf("err = %v, want ErrRenderFailed", err)
	}
	if !strings.Contains(err.Error(), "Undefined control sequence") {
		t.Fatalf("error should carry pdflatex diagnostics: %v", err)
	}
	if len(runner.calls) != 1 {
		t.Fatalf("second pass ran after first failed")
	}
}

func TestRenderMissingPDFIsFailure(t *testing.T) {
	runner := &latexRunner{skipPDF: true}
	r := &LatexRenderer{pdflatexPath: "pdflatex", runner: runner}

	_, err := r.Render(context.Background(), "spoken-script", "\\documentclass{article}")
	if !errors.Is(err, ErrRenderFailed) {
		t.Fatalf("err = %v, want ErrRenderFailed", err)
	}
}
