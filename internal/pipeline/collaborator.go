package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/lrstanley/go-ytdlp"

	"lingowatch/internal/config"
	"lingowatch/internal/source"
)

// Collaborator runs pipeline stages by invoking the external pipeline
// command, one stage name per invocation. The command is expected to read
// and write the shared scratch directory.
type Collaborator struct {
	pipeline   config.PipelineConfig
	proxy      config.ProxyConfig
	scratchDir string
}

func NewCollaborator(pipeline config.PipelineConfig, proxy config.ProxyConfig, scratchDir string) *Collaborator {
	return &Collaborator{pipeline: pipeline, proxy: proxy, scratchDir: scratchDir}
}

func (c *Collaborator) Download(ctx context.Context, item source.Item) error {
	res := c.pipeline.Resolution
	dl := ytdlp.New().
		Format(fmt.Sprintf("bestvideo[height<=%s]+bestaudio/best[height<=%s]", res, res)).
		Paths(c.scratchDir).
		Output("%(title).200s.%(ext)s")

	if c.proxy.Enabled && c.proxy.YtdlpProxy != "" {
		dl = dl.Proxy(c.proxy.YtdlpProxy)
	}

	if _, err := dl.Run(ctx, item.URL); err != nil {
		return err
	}
	return nil
}

func (c *Collaborator) RunStage(ctx context.Context, stage string) error {
	args := append(append([]string{}, c.pipeline.Args...), stage)
	cmd := exec.CommandContext(ctx, c.pipeline.Command, args...)
	cmd.Env = c.environ()

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %s: %w: %s", c.pipeline.Command, stage, err, outputTail(output.String()))
	}
	return nil
}

// environ passes proxy settings through to the collaborator when enabled.
func (c *Collaborator) environ() []string {
	env := os.Environ()
	if c.proxy.Enabled {
		if c.proxy.HTTPProxy != "" {
			env = append(env, "http_proxy="+c.proxy.HTTPProxy)
		}
		if c.proxy.HTTPSProxy != "" {
			env = append(env, "https_proxy="+c.proxy.HTTPSProxy)
		}
	}
	return env
}

// outputTail keeps error messages readable when a stage dumps a lot of
// output before dying.
func outputTail(s string) string {
	s = strings.TrimSpace(s)
	const max = 400
	if len(s) > max {
		s = "..." + s[len(s)-max:]
	}
	return s
}
