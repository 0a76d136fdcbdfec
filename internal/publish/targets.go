package publish

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"lingowatch/internal/config"
)

func init() {
	RegisterTarget("douyin", func(cfg config.UploaderConfig) Target {
		// Douyin accepts long-form titles.
		return &execTarget{platform: "douyin", command: cfg.Command, titleLimit: 1000}
	})
	RegisterTarget("bilibili", func(cfg config.UploaderConfig) Target {
		// Bilibili rejects titles over 80 characters.
		return &execTarget{platform: "bilibili", command: cfg.Command, titleLimit: 80}
	})
}

// execTarget invokes an external uploader command. The uploader owns all
// browser/session state; a zero exit status is the only success signal.
type execTarget struct {
	platform   string
	command    string
	titleLimit int
}

func (t *execTarget) Name() string {
	return t.platform
}

func (t *execTarget) Publish(ctx context.Context, req Request) error {
	cmd := exec.CommandContext(ctx, t.command, t.buildArgs(req)...)

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Run(); err != nil {
		tail := strings.TrimSpace(output.String())
		if len(tail) > 400 {
			tail = "..." + tail[len(tail)-400:]
		}
		return fmt.Errorf("%s uploader failed: %w: %s", t.platform, err, tail)
	}
	return nil
}

func (t *execTarget) buildArgs(req Request) []string {
	args := []string{
		"--file", req.FilePath,
		"--playlist", req.Playlist,
		"--title", truncateTitle(req.Title, t.titleLimit),
	}
	if !req.ScheduleAt.IsZero() {
		args = append(args, "--publish-at", req.ScheduleAt.Format(time.RFC3339))
	}
	return args
}
