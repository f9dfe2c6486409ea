//go:build !integration

package usecase

import (
	"strings"
	"testing"
)

func TestExtractEnglishForTTS(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"trailing punctuation trimmed", "Hello, how are you today?", "Hello, how are you today"},
		{"cyrillic removed", "Hello Привет world", "Hello world"},
		{"russian-only becomes empty", "Привет, как дела?", ""},
		{"punct-only line dropped", "Great!\n???\nSee you", "Great\nSee you"},
		{"ellipsis collapsed", "Wait... what happened", "Wait. what happened"},
		{"emoji stripped", "Nice job 🎉 keep going", "Nice job keep going"},
		{"empty input", "", ""},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := ExtractEnglishForTTS(c.in); got != c.want {
				t.Errorf("ExtractEnglishForTTS(%q) = %q, want %q", c.in, got, c.want)
			}
		})
	}
}

func TestDetectIntent(t *testing.T) {
	cases := []struct {
		in   string
		want Intent
		arg  string
	}{
		{"Hi, I had a great day!", IntentConversation, ""},
		{"what does serendipity mean?", IntentWordLookup, "serendipity"},
		{"explain word gorgeous", IntentWordLookup, "gorgeous"},
		{"give me an example with weather", IntentWordLookup, "weather"},
		{"как сказать собака", IntentTranslateRU, "собака"},
		{"как по-английски: до свидания", IntentTranslateRU, "до свидания"},
		{"переведи я люблю кофе", IntentTranslateRU, "я люблю кофе"},
	}
	for _, c := range cases {
		t.Run(c.in, func(t *testing.T) {
			intent, arg := DetectIntent(c.in)
			if intent != c.want || arg != c.arg {
				t.Errorf("DetectIntent(%q) = (%v, %q), want (%v, %q)", c.in, intent, arg, c.want, c.arg)
			}
		})
	}
}

func TestPromptBuilder_ConversationTrimsHistory(t *testing.T) {
	p := &PromptBuilder{tokenBudget: 2000}

	prompt := p.Conversation(nil, "Hello teacher", "A2")
	if !containsAll(prompt, "Student level: A2", "Student: Hello teacher", "respond ONLY with valid JSON") {
		t.Errorf("prompt missing required sections:\n%.300s", prompt)
	}
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}
