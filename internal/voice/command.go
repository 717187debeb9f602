package voice

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// DefaultCommand is the external text-to-speech program.
const DefaultCommand = "espeak-ng"

// CommandSynthesizer speaks through an espeak-compatible command line program.
type CommandSynthesizer struct {
	Command string
}

// NewCommandSynthesizer returns a synthesizer running command, or espeak-ng
// when command is empty.
func NewCommandSynthesizer(command string) *CommandSynthesizer {
	if command == "" {
		command = DefaultCommand
	}
	return &CommandSynthesizer{Command: command}
}

// Available reports whether the command can be found on PATH.
func (c *CommandSynthesizer) Available() bool {
	_, err := exec.LookPath(c.Command)
	return err == nil
}

// Speak implements Synthesizer.
func (c *CommandSynthesizer) Speak(ctx context.Context, u Utterance) error {
	if strings.TrimSpace(u.Text) == "" {
		return nil
	}
	cmd := exec.CommandContext(ctx, c.Command, c.Args(u)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s failed: %w: %s", c.Command, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Args maps the utterance onto espeak flags: -s words per minute (175 at
// rate 1), -p pitch 0-99 (50 at pitch 1), -a amplitude 0-200 (100 at volume 1).
func (c *CommandSynthesizer) Args(u Utterance) []string {
	speed := clamp(math.Round(175*u.Rate), 80, 450)
	pitch := clamp(math.Round(50*u.Pitch), 0, 99)
	amplitude := clamp(math.Round(100*u.Volume), 0, 200)

	voice := "en-in"
	if base, _ := u.Locale.Base(); base.String() == "hi" {
		voice = "hi"
	}

	return []string{
		"-v", voice,
		"-s", strconv.Itoa(int(speed)),
		"-p", strconv.Itoa(int(pitch)),
		"-a", strconv.Itoa(int(amplitude)),
		"--", u.Text,
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
