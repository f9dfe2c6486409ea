package usecase

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/pkoukk/tiktoken-go"

	"telegram-english-tutor/internal/domain/model"
)

const systemPrompt = `You are a friendly and encouraging English teacher helping Russian speakers improve their conversational English.

CRITICAL: You MUST respond ONLY with valid JSON in this exact format:
{
  "reply": "your natural English response",
  "question": "optional follow-up question to continue conversation",
  "quick_replies": ["option 1", "option 2", "option 3"],
  "correction": "if user made grammar mistake, show corrected version here",
  "tip": "optional grammar tip in Russian"
}

EXAMPLE of valid JSON:
{"reply": "Hi there!", "question": "How are you?", "quick_replies": ["I'm fine", "Not bad", "Great"], "correction": "", "tip": ""}

LEVEL-SPECIFIC GUIDELINES:

**A1 (Beginner):**
- Use ONLY simple present/past tense
- Vocabulary: 500-1000 most common words (family, food, colors, numbers, basic verbs)
- Sentences: 5-8 words maximum
- Questions: Yes/No questions or simple What/Where/When
- ALWAYS provide 3-4 simple quick_replies
- Correct gently, focus on basics

**A2 (Elementary):**
- Use present, past, future simple + present continuous
- Vocabulary: 1000-2000 words (daily activities, hobbies, shopping, travel basics)
- Sentences: 8-12 words
- Questions: Can include "Why" and "How" but keep simple
- Provide 2-3 quick_replies
- Introduce basic phrasal verbs carefully

**B1 (Intermediate):**
- Use past continuous, present perfect, modals (can, should, must)
- Vocabulary: 2000-3500 words (work, opinions, experiences, abstract concepts)
- Sentences: 12-18 words, can use compound sentences
- IMPORTANT: NO quick_replies - student can form own responses
- Explain idioms and expressions

**B2 (Upper-Intermediate):**
- Use all tenses including conditionals, passive voice
- Vocabulary: 3500+ words (professional, academic, nuanced expressions)
- Sentences: No limit, use complex structures
- CRITICAL: NEVER provide quick_replies - advanced students don't need them
- Discuss complex topics, introduce advanced grammar

ADAPTATION RULES:
1. Lower levels = shorter sentences, simpler words, more support
2. Higher levels = complex grammar, rich vocabulary, abstract topics
3. ALL levels: be encouraging, patient, natural
4. Match your complexity to student's level STRICTLY

GENERAL RULES:
1. ALL strings must be in double quotes
2. quick_replies should have 2-4 short options (max 20 characters each)
3. For vocabulary questions, add Russian translation in tip field
4. Keep reply concise (2-3 sentences for A1-A2, 3-4 for B1-B2)
5. NO meta-commentary, NO parentheses explanations
6. Output ONLY valid JSON, nothing else`

// Intent is what the student is actually asking for. Conversation is the
// default; lookups get dedicated short prompts so the model stays terse.
type Intent int

const (
	IntentConversation Intent = iota
	IntentWordLookup          // explain an English word
	IntentTranslateRU         // translate a Russian phrase into English
)

var (
	ruTranslateRe   = regexp.MustCompile(`(?i)переведи[\s:]+(.+)`)
	ruWhatMeansRe   = regexp.MustCompile(`(?i)что\s+(?:значит|означает)[\s:]+(.+)`)
	ruHowToSayRe    = regexp.MustCompile(`(?i)как\s+(?:будет|сказать)(?:\s+на\s+английском)?[\s:]+(.+?)(?:\s+на\s+английском)?$`)
	ruInEnglishRe   = regexp.MustCompile(`(?i)как\s+по-английски[\s:]+(.+)`)
	wordLookupPatts = []*regexp.Regexp{
		regexp.MustCompile(`(?i)word[\s:]+['"]?(\w+)['"]?`),
		regexp.MustCompile(`(?i)translate[\s,]+['"]?(\w+)['"]?`),
		regexp.MustCompile(`(?i)what\s+(?:does|is)\s+['"]?(\w+)['"]?\s+mean`),
		regexp.MustCompile(`(?i)what'?s?\s+mean\s+['"]?(\w+)['"]?`),
		regexp.MustCompile(`(?i)meaning\s+of\s+['"]?(\w+)['"]?`),
		regexp.MustCompile(`(?i)give\s+me\s+(?:a\s+)?(?:situation|example|sentence)\s+(?:with\s+)?(?:word\s+)?['"]?(\w+)['"]?`),
		regexp.MustCompile(`(?i)situation\s+with\s+(?:word\s+)?['"]?(\w+)['"]?`),
		regexp.MustCompile(`(?i)example\s+with\s+(?:word\s+)?['"]?(\w+)['"]?`),
		regexp.MustCompile(`(?i)use\s+(?:word\s+)?['"]?(\w+)['"]?\s+in\s+(?:a\s+)?(?:sentence|example)`),
		regexp.MustCompile(`(?i)how\s+to\s+use\s+['"]?(\w+)['"]?`),
		regexp.MustCompile(`(?i)explain\s+(?:word\s+)?['"]?(\w+)['"]?`),
	}
	lookupStopwords = map[string]struct{}{
		"it": {}, "is": {}, "a": {}, "an": {}, "the": {}, "for": {}, "to": {},
		"of": {}, "in": {}, "on": {}, "at": {}, "me": {}, "you": {}, "please": {},
	}
)

// DetectIntent classifies the student's message and extracts the lookup
// argument (a single word, or the Russian phrase to translate).
func DetectIntent(text string) (Intent, string) {
	for _, re := range []*regexp.Regexp{ruTranslateRe, ruHowToSayRe, ruInEnglishRe} {
		if m := re.FindStringSubmatch(text); m != nil {
			return IntentTranslateRU, strings.TrimSpace(m[1])
		}
	}
	if m := ruWhatMeansRe.FindStringSubmatch(text); m != nil {
		return IntentTranslateRU, strings.TrimSpace(m[1])
	}
	for _, re := range wordLookupPatts {
		if m := re.FindStringSubmatch(strings.ToLower(text)); m != nil {
			word := strings.ToLower(m[1])
			if _, skip := lookupStopwords[word]; skip {
				continue
			}
			return IntentWordLookup, word
		}
	}
	return IntentConversation, ""
}

// PromptBuilder assembles model prompts within a token budget. History is
// trimmed oldest-first so the instructions and the current message always
// survive.
type PromptBuilder struct {
	enc         *tiktoken.Tiktoken
	tokenBudget int
}

func NewPromptBuilder(tokenBudget int) (*PromptBuilder, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("load tokenizer: %w", err)
	}
	if tokenBudget <= 0 {
		tokenBudget = 1500
	}
	return &PromptBuilder{enc: enc, tokenBudget: tokenBudget}, nil
}

func (p *PromptBuilder) countTokens(s string) int {
	if p.enc == nil {
		// Rough estimate when the tokenizer is unavailable.
		return len(s)/4 + 1
	}
	return len(p.enc.Encode(s, nil, nil))
}

// Conversation builds the main tutoring prompt from the system instructions,
// the trimmed history window and the student's message.
func (p *PromptBuilder) Conversation(history []*model.ConversationTurn, userText string, level model.Level) string {
	var sb strings.Builder
	sb.WriteString(systemPrompt)
	sb.WriteString("\n\nIMPORTANT: Today's date is ")
	sb.WriteString(time.Now().Format("Monday, January 02, 2006"))
	sb.WriteString(".")
	if level != "" {
		fmt.Fprintf(&sb, "\nStudent level: %s", level)
	}

	head := sb.String()
	tail := fmt.Sprintf("\n\nStudent: %s\nTeacher (respond ONLY with valid JSON):", userText)
	budget := p.tokenBudget - p.countTokens(head) - p.countTokens(tail)

	lines := make([]string, 0, len(history))
	for _, t := range history {
		if t.Role == model.RoleUser {
			lines = append(lines, "\nStudent: "+t.Content)
		} else {
			lines = append(lines, "\nTeacher: "+historyReplyText(t.Content))
		}
	}
	// Walk newest to oldest, keeping what fits; then restore order.
	kept := 0
	for i := len(lines) - 1; i >= 0; i-- {
		cost := p.countTokens(lines[i])
		if cost > budget {
			break
		}
		budget -= cost
		kept++
	}
	lines = lines[len(lines)-kept:]

	sb.WriteString("\n\nConversation history:")
	for _, ln := range lines {
		sb.WriteString(ln)
	}
	sb.WriteString(tail)
	return sb.String()
}

// historyReplyText extracts the plain reply from a stored assistant turn
// that may still carry the JSON contract.
func historyReplyText(content string) string {
	if !strings.HasPrefix(strings.TrimSpace(content), "{") {
		return content
	}
	r := model.ParseTutorReply(content)
	if r.Reply != "" {
		return r.Reply
	}
	return content
}

// WordLookup builds the short prompt for explaining one English word.
func (p *PromptBuilder) WordLookup(word string, level model.Level) string {
	levelNote := ""
	if level != "" {
		levelNote = fmt.Sprintf("\nStudent level: %s", level)
	}
	return fmt.Sprintf(`You are an English teacher. A student asked about the word "%[1]s".

Provide a response in this EXACT JSON format:
{
  "reply": "The word '%[1]s' means [explanation in simple English] (Russian: [перевод])",
  "question": "Example: [sentence with '%[1]s'] (Пример: [русский перевод предложения])",
  "quick_replies": [],
  "correction": "",
  "tip": ""
}

CRITICAL REQUIREMENTS:
1. In "reply": give clear English explanation, then add Russian translation IN PARENTHESES: (Russian: перевод)
2. In "question": provide ONE example sentence, then add full Russian translation IN PARENTHESES: (Пример: перевод)
3. IMPORTANT: Russian text MUST be in parentheses so TTS can skip it%[2]s
4. Output ONLY valid JSON, nothing else

Respond ONLY with valid JSON:`, word, levelNote)
}

// TranslateRussian builds the prompt answering "how do I say X in English".
func (p *PromptBuilder) TranslateRussian(phrase string, level model.Level) string {
	levelNote := ""
	if level != "" {
		levelNote = fmt.Sprintf("\nStudent level: %s", level)
	}
	return fmt.Sprintf(`You are an English teacher. A Russian-speaking student asked: "How to say '%[1]s' in English?"

Provide a SIMPLE, DIRECT response in this EXACT JSON format:
{
  "reply": "In English, we say: [ONE SIMPLE TRANSLATION ONLY] (Russian: %[1]s)",
  "question": "Example: [ONE SIMPLE SENTENCE] (Пример: [простой русский перевод])",
  "quick_replies": [],
  "correction": "",
  "tip": ""
}

CRITICAL RULES:
1. Give ONLY ONE simple, direct translation - the most common word
2. NO explanations, NO history, NO additional info - just the translation!
3. Example sentence must be VERY SIMPLE, like "I have a pen" or "This is a pen"
4. For A1-A2 levels: use only basic words and simple present tense
5. Russian text MUST be in parentheses so TTS can skip it%[2]s
6. Keep it SHORT and SIMPLE - beginners need clarity, not complexity!

Respond ONLY with valid JSON:`, phrase, levelNote)
}
