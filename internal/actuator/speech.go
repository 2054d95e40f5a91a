package actuator

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"proxigesture.klederson.com/internal/gesture"
)

// speechCommands are tried in order when no command is configured.
var speechCommands = []string{"espeak-ng", "espeak", "spd-say", "say"}

// ErrNoSpeechCommand is returned when no text-to-speech program is installed.
var ErrNoSpeechCommand = errors.New("no text-to-speech command found")

// Speech announces a fixed message through a text-to-speech program.
type Speech struct {
	command  string
	message  string
	lookPath func(string) (string, error)
	run      func(ctx context.Context, name string, args ...string) error
}

// NewSpeech creates a speech actuator. An empty command picks the first
// installed program from espeak-ng, espeak, spd-say and say.
func NewSpeech(command, message string) *Speech {
	return &Speech{
		command:  command,
		message:  message,
		lookPath: exec.LookPath,
		run:      runCommand,
	}
}

func (s *Speech) Name() string { return "speech" }

// Resolve returns the program that will be run.
func (s *Speech) Resolve() (string, error) {
	if s.command != "" {
		return s.lookPath(s.command)
	}
	for _, c := range speechCommands {
		if path, err := s.lookPath(c); err == nil {
			return path, nil
		}
	}
	return "", ErrNoSpeechCommand
}

// Actuate speaks the message and waits for the program to exit.
func (s *Speech) Actuate(ctx context.Context, _ gesture.Gesture) error {
	path, err := s.Resolve()
	if err != nil {
		return err
	}
	return s.run(ctx, path, s.message)
}

func runCommand(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
