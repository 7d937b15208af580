// Package textocr runs the local text recognition engine and parses the
// few screens that are read from plain text.
package textocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"alliance-observatory/internal/domain"

	"github.com/rs/zerolog"
)

// ErrEngineUnavailable means the tesseract binary could not be found.
var ErrEngineUnavailable = fmt.Errorf("tesseract not installed: %w", domain.ErrDependencyMissing)

type Engine interface {
	ExtractText(ctx context.Context, path string) (string, error)
}

type Tesseract struct {
	binary        string
	langPrimary   string
	psmPrimary    int
	langSecondary string
	psmSecondary  int
	logger        zerolog.Logger
}

type Option func(*Tesseract)

func WithLanguages(primary, secondary string) Option {
	return func(t *Tesseract) {
		t.langPrimary = primary
		t.langSecondary = secondary
	}
}

// WithSecondaryPass sets the page segmentation mode of the second pass; 0
// disables it.
func WithSecondaryPass(psm int) Option {
	return func(t *Tesseract) { t.psmSecondary = psm }
}

func NewTesseract(binary string, logger zerolog.Logger, opts ...Option) *Tesseract {
	if binary == "" {
		binary = "tesseract"
	}
	t := &Tesseract{
		binary:       binary,
		langPrimary:  "eng",
		psmPrimary:   6,
		psmSecondary: 4,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.langSecondary == "" {
		t.langSecondary = t.langPrimary
	}
	return t
}

// Available reports whether the binary is on PATH.
func (t *Tesseract) Available() bool {
	_, err := exec.LookPath(t.binary)
	return err == nil
}

// ExtractText runs a primary and an optional secondary pass and joins their
// output.
func (t *Tesseract) ExtractText(ctx context.Context, path string) (string, error) {
	bin, err := exec.LookPath(t.binary)
	if err != nil {
		return "", ErrEngineUnavailable
	}

	primary, err := t.run(ctx, bin, path, t.langPrimary, t.psmPrimary)
	if err != nil {
		return "", err
	}
	if t.psmSecondary == 0 {
		return primary, nil
	}
	secondary, err := t.run(ctx, bin, path, t.langSecondary, t.psmSecondary)
	if err != nil {
		t.logger.Warn().Err(err).Str("path", path).Msg("secondary tesseract pass failed")
		return primary, nil
	}
	if secondary == "" {
		return primary, nil
	}
	return primary + "\n" + secondary, nil
}

func (t *Tesseract) run(ctx context.Context, bin, path, lang string, psm int) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, path, "stdout", "-l", lang, "--psm", strconv.Itoa(psm))
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("tesseract exited with %d: %s", exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
		}
		return "", fmt.Errorf("failed to run tesseract: %w", err)
	}
	return stdout.String(), nil
}

// Noop returns no text. The offline pipeline uses it when tesseract is missing.
type Noop struct{}

func (Noop) ExtractText(context.Context, string) (string, error) {
	return "", nil
}

// Default returns a Tesseract engine when the binary exists and Noop otherwise.
func Default(binary string, logger zerolog.Logger) Engine {
	t := NewTesseract(binary, logger)
	if !t.Available() {
		logger.Warn().Str("binary", t.binary).Msg("tesseract missing, text extraction disabled")
		return Noop{}
	}
	return t
}
