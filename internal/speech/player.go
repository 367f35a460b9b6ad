package speech

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sync"
	"sync/atomic"

	"github.com/HendryAvila/ensemble/internal/logging"
)

// Source produces audio for text. Both Client and the HTTP API client
// implement it.
type Source interface {
	Speak(ctx context.Context, text string) ([]byte, error)
}

// Speak implements Source.
func (c *Client) Speak(ctx context.Context, text string) ([]byte, error) {
	return c.Synthesize(ctx, text)
}

// Player plays one clip at a time by piping audio into an external
// command such as "mpg123 -q -". A request while a clip is playing is
// ignored.
type Player struct {
	source  Source
	command []string
	logger  *logging.Logger

	// play is replaced in tests.
	play func(ctx context.Context, audio []byte) error

	playing atomic.Bool
	wg      sync.WaitGroup
}

// NewPlayer returns a Player. With an empty command, audio is fetched but
// not played.
func NewPlayer(source Source, command []string, logger *logging.Logger) *Player {
	if logger == nil {
		logger = logging.NopLogger()
	}
	p := &Player{source: source, command: command, logger: logger.WithComponent("speech")}
	p.play = p.pipe
	return p
}

// Play speaks text in the background. It reports whether playback
// started; false means another clip is still playing.
func (p *Player) Play(ctx context.Context, text string) bool {
	if !p.playing.CompareAndSwap(false, true) {
		return false
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.playing.Store(false)

		audio, err := p.source.Speak(ctx, text)
		if err != nil {
			p.logger.Warn("speech synthesis failed", "error", err)
			return
		}
		if err := p.play(ctx, audio); err != nil {
			p.logger.Warn("audio playback failed", "error", err)
		}
	}()
	return true
}

// Playing reports whether a clip is in progress.
func (p *Player) Playing() bool { return p.playing.Load() }

// Wait blocks until the current clip, if any, finishes.
func (p *Player) Wait() { p.wg.Wait() }

func (p *Player) pipe(ctx context.Context, audio []byte) error {
	if len(p.command) == 0 {
		p.logger.Debug("no audio player configured, dropping clip", "bytes", len(audio))
		return nil
	}
	cmd := exec.CommandContext(ctx, p.command[0], p.command[1:]...)
	cmd.Stdin = bytes.NewReader(audio)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", p.command[0], err, bytes.TrimSpace(out))
	}
	return nil
}
