package shell

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/oneclick/internal/sandbox"
)

// HeadlessURL identifies the in-process window.
const HeadlessURL = "sandbox:renderer.js"

// RunHeadless opens the window inside a goja sandbox instead of a browser,
// clicks the button once and returns the report. The shell quits afterwards.
func (s *Shell) RunHeadless(ctx context.Context, cfg sandbox.Config) (string, error) {
	defer s.Quit()

	if _, err := s.Ready(HeadlessURL); err != nil {
		return "", err
	}

	rt, err := sandbox.New(cfg)
	if err != nil {
		return "", fmt.Errorf("create sandbox: %w", err)
	}
	defer rt.Close()

	if err := s.bridge.Expose(rt); err != nil {
		return "", fmt.Errorf("expose bridge: %w", err)
	}

	renderer, err := RendererSource()
	if err != nil {
		return "", fmt.Errorf("load renderer: %w", err)
	}
	if _, err := rt.Execute(ctx, renderer); err != nil {
		return "", fmt.Errorf("load renderer: %w", err)
	}

	res, err := rt.Execute(ctx, "runHeadless()")
	if res != nil {
		for _, entry := range res.Console {
			s.logger.Info("Renderer", zap.String("level", entry.Level), zap.String("message", entry.Message))
		}
	}
	if err != nil {
		return "", fmt.Errorf("run renderer: %w", err)
	}

	report, ok := res.Value.(string)
	if !ok {
		return "", fmt.Errorf("renderer returned %T, want string", res.Value)
	}
	return report, nil
}
