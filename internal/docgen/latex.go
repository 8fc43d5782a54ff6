package docgen

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// ErrRenderFailed is returned when pdflatex is missing, exits non-zero, or
// finishes without producing a PDF.
var ErrRenderFailed = errors.New("document rendering failed")

type commandRunner interface {
	CombinedOutput(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

type osCommandRunner struct{}

func (osCommandRunner) CombinedOutput(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

// LatexRenderer compiles LaTeX sources to PDF bytes via pdflatex.
type LatexRenderer struct {
	pdflatexPath string
	runner       commandRunner
}

func NewLatexRenderer(pdflatexPath string) *LatexRenderer {
	if pdflatexPath == "" {
		if path, err := exec.LookPath("pdflatex"); err == nil {
			pdflatexPath = path
		} else {
			pdflatexPath = "pdflatex"
		}
	}
	return &LatexRenderer{pdflatexPath: pdflatexPath, runner: osCommandRunner{}}
}

// Render writes source to a private working directory and runs pdflatex twice
// against it; the first pass resolves the table of contents and
// cross-references that the second pass renders. It returns the PDF bytes.
func (r *LatexRenderer) Render(ctx context.Context, key, source string) ([]byte, error) {
	workDir, err := os.MkdirTemp("", "skryba-latex-*")
	if err != nil {
		return nil, fmt.Errorf("create render dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	texName := key + ".tex"
	if err := os.WriteFile(filepath.Join(workDir, texName), []byte(source), 0o644); err != nil {
		return nil, fmt.Errorf("write latex source: %w", err)
	}

	for pass := 0; pass < 2; pass++ {
		out, err := r.runner.CombinedOutput(ctx, workDir, r.pdflatexPath,
			"-halt-on-error", "-interaction=nonstopmode", texName)
		if err != nil {
			return nil, fmt.Errorf("%w: pdflatex: %v: %s", ErrRenderFailed, err, string(out))
		}
	}

	pdf, err := os.ReadFile(filepath.Join(workDir, key+".pdf"))
	if err != nil {
		return nil, fmt.Errorf("%w: pdflatex produced no PDF: %v", ErrRenderFailed, err)
	}
	return pdf, nil
}
