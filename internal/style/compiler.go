package style

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/lalilo-dev/lalilo/internal/errors"
	"github.com/lalilo-dev/lalilo/internal/proc"
)

// CompileError is a structured compiler failure.
type CompileError struct {
	File   string
	Line   int
	Column int
	Info   string
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Column, e.Info)
	}
	return e.File + ": " + e.Info
}

// Compiler turns one stylesheet source into CSS. Failures in the source
// are returned as *CompileError.
type Compiler interface {
	Compile(ctx context.Context, file string) ([]byte, error)
}

// CompilerFunc adapts a function to Compiler.
type CompilerFunc func(ctx context.Context, file string) ([]byte, error)

// Compile calls f.
func (f CompilerFunc) Compile(ctx context.Context, file string) ([]byte, error) {
	return f(ctx, file)
}

// SassCompiler runs the dart-sass command line.
type SassCompiler struct {
	// Binary is the sass executable name or path.
	Binary string

	// LoadPaths are passed as --load-path.
	LoadPaths []string

	// Dir is the working directory of the compiler process.
	Dir string

	path string
	mu   sync.Mutex
}

// NewSassCompiler creates a compiler for the given executable.
func NewSassCompiler(binary string, loadPaths ...string) *SassCompiler {
	if binary == "" {
		binary = "sass"
	}
	return &SassCompiler{Binary: binary, LoadPaths: loadPaths}
}

// Path resolves the executable, caching the result.
func (c *SassCompiler) Path() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.path != "" {
		return c.path, nil
	}
	path, err := exec.LookPath(c.Binary)
	if err != nil {
		return "", errors.New("E300").
			WithDetail(c.Binary + " not found").
			WithSuggestion("Install dart-sass (npm i -g sass) or set style.compiler in lalilo.json").
			Wrap(err)
	}
	c.path = path
	return path, nil
}

// Compile implements Compiler.
func (c *SassCompiler) Compile(ctx context.Context, file string) ([]byte, error) {
	path, err := c.Path()
	if err != nil {
		return nil, err
	}

	args := []string{"--no-source-map", "--style=expanded"}
	for _, p := range c.LoadPaths {
		args = append(args, "--load-path="+p)
	}
	args = append(args, file)

	out, err := proc.Run(ctx, proc.Spec{Name: path, Args: args, Dir: c.Dir})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var exitErr *proc.ExitError
		if errors.As(err, &exitErr) {
			return nil, ParseSassError(file, exitErr.Stderr)
		}
		return nil, errors.New("E300").WithDetail(file).Wrap(err)
	}
	return out.Stdout, nil
}

// sassLocationRe matches the trace line of a dart-sass error:
// "  scss/main.scss 3:5  root stylesheet".
var sassLocationRe = regexp.MustCompile(`^\s*(\S.*?) (\d+):(\d+)\s`)

// ParseSassError extracts the message and the first location from dart-sass
// error output.
func ParseSassError(file, output string) *CompileError {
	ce := &CompileError{File: file}
	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimSpace(line)
		if ce.Info == "" && strings.HasPrefix(trimmed, "Error: ") {
			ce.Info = strings.TrimPrefix(trimmed, "Error: ")
			continue
		}
		if strings.ContainsAny(line, "│╷╵|") {
			continue
		}
		if ce.Line == 0 {
			if m := sassLocationRe.FindStringSubmatch(line + " "); m != nil {
				ce.Line, _ = strconv.Atoi(m[2])
				ce.Column, _ = strconv.Atoi(m[3])
				if !strings.HasPrefix(m[1], "-") {
					ce.File = m[1]
				}
			}
		}
	}
	if ce.Info == "" {
		ce.Info = strings.TrimSpace(output)
	}
	if ce.Info == "" {
		ce.Info = "compiler exited with an error"
	}
	return ce
}
