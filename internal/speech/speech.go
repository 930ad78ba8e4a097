// Package speech speaks hazard warnings through whatever the host offers:
// a text-to-speech command, an alert sound, or nothing.
package speech

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"hazardwatch/internal/orchestrator"
)

// Known text-to-speech commands, in order of preference for TTS_COMMAND=auto.
var ttsCommands = []string{"espeak-ng", "espeak", "spd-say", "say"}

// Known audio players with the arguments that make them play a file and exit.
var soundPlayers = []struct {
	name string
	args []string
}{
	{"ffplay", []string{"-nodisp", "-autoexit", "-loglevel", "quiet"}},
	{"afplay", nil},
	{"mpg123", []string{"-q"}},
	{"paplay", nil},
	{"aplay", []string{"-q"}},
}

// CommandSpeaker speaks by running Path with the text as last argument.
type CommandSpeaker struct {
	Path string
	Args []string
}

// Speak runs the command and waits for it to finish.
func (s CommandSpeaker) Speak(ctx context.Context, text string) error {
	args := append(append([]string(nil), s.Args...), text)
	out, err := exec.CommandContext(ctx, s.Path, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", filepath.Base(s.Path), err, strings.TrimSpace(string(out)))
	}
	return nil
}

// SoundSpeaker plays File for every utterance.
type SoundSpeaker struct {
	Player string
	Args   []string
	File   string
}

// Speak plays the alert sound; text is ignored.
func (s SoundSpeaker) Speak(ctx context.Context, _ string) error {
	return CommandSpeaker{Path: s.Player, Args: s.Args}.Speak(ctx, s.File)
}

// Noop discards every utterance.
type Noop struct{}

func (Noop) Speak(context.Context, string) error { return nil }

var (
	_ orchestrator.Speaker = CommandSpeaker{}
	_ orchestrator.Speaker = SoundSpeaker{}
	_ orchestrator.Speaker = Noop{}
)

// Resolver probes the host for speech capability.
type Resolver struct {
	LookPath func(string) (string, error)
	Stat     func(string) (os.FileInfo, error)
	Log      *slog.Logger
}

// Resolve picks a speaker once at startup. tts is "auto", "none" or a
// command name; alertSound is a file played when no TTS command is usable.
func Resolve(tts, alertSound string, log *slog.Logger) orchestrator.Speaker {
	return Resolver{LookPath: exec.LookPath, Stat: os.Stat, Log: log}.Resolve(tts, alertSound)
}

// Resolve is the testable form of the package-level Resolve.
func (r Resolver) Resolve(tts, alertSound string) orchestrator.Speaker {
	if path, ok := r.findTTS(tts); ok {
		r.Log.Info("speech: using text-to-speech", "command", path)
		return CommandSpeaker{Path: path}
	}
	if alertSound != "" {
		if _, err := r.Stat(alertSound); err == nil {
			for _, p := range soundPlayers {
				if path, err := r.LookPath(p.name); err == nil {
					r.Log.Info("speech: using alert sound", "player", path, "file", alertSound)
					return SoundSpeaker{Player: path, Args: p.args, File: alertSound}
				}
			}
		}
	}
	r.Log.Warn("speech: no audio output available, announcements are silent")
	return Noop{}
}

func (r Resolver) findTTS(tts string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(tts)) {
	case "none", "off", "":
		return "", false
	case "auto":
		for _, name := range ttsCommands {
			if path, err := r.LookPath(name); err == nil {
				return path, true
			}
		}
		return "", false
	}
	path, err := r.LookPath(tts)
	if err != nil {
		r.Log.Warn("speech: configured command not found", "command", tts, "error", err)
		return "", false
	}
	return path, true
}
