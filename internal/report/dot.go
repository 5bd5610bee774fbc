package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/dominikbraun/graph/draw"
	"github.com/phuslu/log"
)

// WriteDOT exports v to dir/<name>.dot and returns the path.
func WriteDOT(dir string, v *Visual) (string, error) {
	var buf bytes.Buffer
	if err := draw.DOT(v.Graph, &buf, draw.GraphAttribute("rankdir", v.RankDir)); err != nil {
		return "", fmt.Errorf("failed to export %s: %w", v.Name, err)
	}
	path := filepath.Join(dir, v.Name+".dot")
	if err := writeFile(path, buf.Bytes()); err != nil {
		return "", err
	}
	return path, nil
}

// CommandFunc builds the renderer command. Tests replace it with a fake.
type CommandFunc func(ctx context.Context, name string, args ...string) *exec.Cmd

// Renderer turns DOT files into PNG images with graphviz.
type Renderer struct {
	program     string
	commandFunc CommandFunc
	missing     bool
}

// NewRenderer creates a renderer for program, "dot" when empty.
func NewRenderer(program string, fn CommandFunc) *Renderer {
	if program == "" {
		program = "dot"
	}
	if fn == nil {
		fn = exec.CommandContext
	}
	return &Renderer{program: program, commandFunc: fn}
}

// Render writes the PNG next to dotPath. It returns "" without error when
// the renderer is not installed; that is logged once.
func (r *Renderer) Render(ctx context.Context, dotPath string) (string, error) {
	if r.missing {
		return "", nil
	}

	out := strings.TrimSuffix(dotPath, filepath.Ext(dotPath)) + ".png"
	var stderr bytes.Buffer
	cmd := r.commandFunc(ctx, r.program, "-Tpng", dotPath, "-o", out)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			r.missing = true
			log.Info().Str("renderer", r.program).Msg("graph renderer not installed, skipping PNG output")
			return "", nil
		}
		if stderr.Len() > 0 {
			return "", fmt.Errorf("failed to render %s: %w: %s", filepath.Base(dotPath), err, bytes.TrimSpace(stderr.Bytes()))
		}
		return "", fmt.Errorf("failed to render %s: %w", filepath.Base(dotPath), err)
	}
	return out, nil
}

// Export writes every visual as DOT and, when r is not nil, renders it.
// A failed rendering is logged and does not stop the others.
func Export(ctx context.Context, dir string, visuals []*Visual, r *Renderer) ([]string, error) {
	var paths []string
	for _, v := range visuals {
		dotPath, err := WriteDOT(dir, v)
		if err != nil {
			return paths, err
		}
		paths = append(paths, dotPath)

		if r == nil {
			continue
		}
		png, err := r.Render(ctx, dotPath)
		if err != nil {
			log.Warn().Err(err).Str("graph", v.Name).Msg("could not render graph")
			continue
		}
		if png != "" {
			paths = append(paths, png)
		}
	}
	return paths, nil
}
