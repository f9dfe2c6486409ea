package adapter

import "context"

// Transcriber converts a voice note into recognized text. An empty string
// with nil error means the engine heard nothing usable.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Synthesizer renders target-language text into an audio blob (OGG/WAV as
// the engine produces it). Callers must pass pre-sanitized English-only text.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}
