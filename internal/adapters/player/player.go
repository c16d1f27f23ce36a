// Package player starts video playback for a trial and reports when it ends.
package player

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/okian/markerrig/pkg/logger"
)

// MediaPlaceholder is replaced by the media path in a player command.
const MediaPlaceholder = "{media}"

// ExecPlayer runs an external player process per trial. The process
// exiting marks the end of playback.
type ExecPlayer struct {
	bin      string
	args     []string
	mediaDir string

	mu   sync.Mutex
	busy bool

	logger logger.Logger
}

// NewExecPlayer parses command (e.g. "mpv --fs --really-quiet {media}").
// Without a placeholder the media path is appended as the last argument.
func NewExecPlayer(command, mediaDir string, opts ...Option) (*ExecPlayer, error) {
	argv := strings.Fields(strings.TrimSpace(command))
	if len(argv) == 0 {
		return nil, ErrNoCommand
	}
	bin, err := exec.LookPath(argv[0])
	if err != nil {
		return nil, fmt.Errorf("player %q: %w", argv[0], err)
	}
	p := &ExecPlayer{
		bin:      bin,
		args:     argv[1:],
		mediaDir: mediaDir,
		logger:   logger.Get().Named("player"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Play implements sequencer.Player.
func (p *ExecPlayer) Play(ctx context.Context, media string, done func(error)) error {
	path, err := resolveMedia(p.mediaDir, media)
	if err != nil {
		return err
	}

	p.mu.Lock()
	if p.busy {
		p.mu.Unlock()
		return ErrBusy
	}
	p.busy = true
	p.mu.Unlock()

	cmd := exec.CommandContext(ctx, p.bin, p.argv(path)...) //nolint:gosec // player binary comes from operator config
	if err := cmd.Start(); err != nil {
		p.release()
		return fmt.Errorf("start player: %w", err)
	}
	p.logger.Debug(ctx, "player started", logger.String("media", path), logger.Int("pid", cmd.Process.Pid))

	go func() {
		err := cmd.Wait()
		p.release()
		if err != nil {
			err = fmt.Errorf("player exited: %w", err)
		}
		done(err)
	}()
	return nil
}

func (p *ExecPlayer) argv(path string) []string {
	out := make([]string, 0, len(p.args)+1)
	replaced := false
	for _, a := range p.args {
		if strings.Contains(a, MediaPlaceholder) {
			a = strings.ReplaceAll(a, MediaPlaceholder, path)
			replaced = true
		}
		out = append(out, a)
	}
	if !replaced {
		out = append(out, path)
	}
	return out
}

func (p *ExecPlayer) release() {
	p.mu.Lock()
	p.busy = false
	p.mu.Unlock()
}

// TimedPlayer stands in for a real player: playback "ends" after a fixed
// duration. Used for dry runs and on rigs where video runs elsewhere.
type TimedPlayer struct {
	length time.Duration
	logger logger.Logger
}

// NewTimedPlayer returns a player whose every clip lasts length.
func NewTimedPlayer(length time.Duration) *TimedPlayer {
	return &TimedPlayer{length: length, logger: logger.Get().Named("player")}
}

// Play implements sequencer.Player.
func (p *TimedPlayer) Play(ctx context.Context, media string, done func(error)) error {
	p.logger.Info(ctx, "timed playback", logger.String("media", media), logger.Duration("length", p.length))
	time.AfterFunc(p.length, func() {
		done(ctx.Err())
	})
	return nil
}

func resolveMedia(dir, media string) (string, error) {
	path := media
	if dir != "" && !filepath.IsAbs(media) {
		path = filepath.Join(dir, media)
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: %s", ErrMediaNotFound, path)
	}
	return path, nil
}
