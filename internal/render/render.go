// Package render invokes the out-of-process template renderer.
package render

import (
	"context"
	stderrors "errors"
	"strconv"

	"github.com/lalilo-dev/lalilo/internal/errors"
	"github.com/lalilo-dev/lalilo/internal/proc"
)

// ErrOutputTooLarge is returned when rendered HTML exceeds MaxBuffer.
var ErrOutputTooLarge = proc.ErrOutputTooLarge

// Request holds the renderer inputs for one template file.
type Request struct {
	// Root is the source directory the template lives in.
	Root string

	// ConfigDir is the renderer's own configuration directory.
	ConfigDir string

	// File is the absolute template path.
	File string

	Env     string
	BaseURL string
}

// Renderer turns a template file into HTML.
type Renderer interface {
	Render(ctx context.Context, req Request) (string, error)
}

// Func adapts a function to Renderer.
type Func func(ctx context.Context, req Request) (string, error)

// Render calls f.
func (f Func) Render(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Command runs `<Interpreter> <Script> --path .. --config .. --file .. --env .. --base-url ..`.
type Command struct {
	Interpreter string
	Script      string

	// MaxBuffer bounds the rendered output in bytes.
	MaxBuffer int
}

// Render implements Renderer.
func (c *Command) Render(ctx context.Context, req Request) (string, error) {
	args := []string{
		c.Script,
		"--path", req.Root,
		"--config", req.ConfigDir,
		"--file", req.File,
		"--env", req.Env,
		"--base-url", req.BaseURL,
	}

	out, err := proc.Run(ctx, proc.Spec{
		Name:      c.Interpreter,
		Args:      args,
		Dir:       req.Root,
		MaxOutput: c.MaxBuffer,
	})
	if err != nil {
		if stderrors.Is(err, proc.ErrOutputTooLarge) {
			return "", errors.New("E401").
				WithDetail(req.File + " produced more than " + strconv.Itoa(c.MaxBuffer) + " bytes").
				WithSuggestion("Raise template.maxBuffer in lalilo.json").
				Wrap(err)
		}
		return "", errors.New("E400").WithDetail(req.File).Wrap(err)
	}
	return string(out.Stdout), nil
}
