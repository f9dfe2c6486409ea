package model

import (
	"encoding/json"
	"regexp"
	"strings"
)

// TutorReply is the structured contract the language model is asked to
// produce. "reply" is the only required field; everything else is optional
// and the model is treated as unreliable about the formatting.
type TutorReply struct {
	Reply        string   `json:"reply"`
	Question     string   `json:"question"`
	QuickReplies []string `json:"quick_replies"`
	Correction   string   `json:"correction"`
	Tip          string   `json:"tip"`
}

const maxQuickReplies = 4

var (
	jsonObjectRe = regexp.MustCompile(`(?s)\{.*\}`)

	replyFieldRe      = regexp.MustCompile(`(?s)"reply"\s*:\s*"?(.*?)"?\s*[,\n}]`)
	questionFieldRe   = regexp.MustCompile(`(?s)"question"\s*:\s*"?(.*?)"?\s*[,\n}]`)
	correctionFieldRe = regexp.MustCompile(`(?s)"correction"\s*:\s*"?(.*?)"?\s*[,\n}]`)
	tipFieldRe        = regexp.MustCompile(`(?s)"tip"\s*:\s*"?(.*?)"?\s*[,\n}]`)
	quickRepliesRe    = regexp.MustCompile(`(?s)"quick_replies"\s*:\s*\[(.*?)\]`)
	quotedStringRe    = regexp.MustCompile(`"([^"]+)"`)

	fieldSyntaxRe = regexp.MustCompile("[{}\"\\[\\]`]")
)

// Parse stages, in order of preference.
const (
	ParseStageStrict = "strict"
	ParseStageLoose  = "loose"
	ParseStageRaw    = "raw"
)

// ParseTutorReply recovers a TutorReply from raw model output in three
// stages: strict JSON, regex field extraction, then the whole text as the
// reply. The result never carries raw field-delimiter syntax to the user.
func ParseTutorReply(raw string) TutorReply {
	r, _ := ParseTutorReplyStaged(raw)
	return r
}

// ParseTutorReplyStaged additionally reports which stage recovered the
// reply, for observability.
func ParseTutorReplyStaged(raw string) (TutorReply, string) {
	raw = strings.TrimSpace(raw)

	if r, ok := parseStrict(raw); ok {
		return r.normalized(), ParseStageStrict
	}
	if r, ok := parseLoose(raw); ok {
		return r.normalized(), ParseStageLoose
	}
	return TutorReply{Reply: scrubFieldSyntax(raw)}.normalized(), ParseStageRaw
}

func parseStrict(raw string) (TutorReply, bool) {
	blob := jsonObjectRe.FindString(raw)
	if blob == "" {
		return TutorReply{}, false
	}
	var r TutorReply
	if err := json.Unmarshal([]byte(blob), &r); err != nil {
		return TutorReply{}, false
	}
	return r, true
}

func parseLoose(raw string) (TutorReply, bool) {
	var r TutorReply
	if m := replyFieldRe.FindStringSubmatch(raw); m != nil {
		r.Reply = strings.TrimSpace(m[1])
	}
	if r.Reply == "" {
		return TutorReply{}, false
	}
	if m := questionFieldRe.FindStringSubmatch(raw); m != nil {
		r.Question = strings.TrimSpace(m[1])
	}
	if m := correctionFieldRe.FindStringSubmatch(raw); m != nil {
		r.Correction = strings.TrimSpace(m[1])
	}
	if m := tipFieldRe.FindStringSubmatch(raw); m != nil {
		r.Tip = strings.TrimSpace(m[1])
	}
	if m := quickRepliesRe.FindStringSubmatch(raw); m != nil {
		for _, q := range quotedStringRe.FindAllStringSubmatch(m[1], -1) {
			r.QuickReplies = append(r.QuickReplies, q[1])
		}
	}
	return r, true
}

func (r TutorReply) normalized() TutorReply {
	r.Reply = scrubFieldSyntax(r.Reply)
	r.Question = scrubFieldSyntax(r.Question)
	r.Correction = scrubFieldSyntax(r.Correction)
	r.Tip = scrubFieldSyntax(r.Tip)

	clean := r.QuickReplies[:0]
	for _, q := range r.QuickReplies {
		q = strings.TrimSpace(scrubFieldSyntax(q))
		if q == "" {
			continue
		}
		clean = append(clean, q)
		if len(clean) == maxQuickReplies {
			break
		}
	}
	r.QuickReplies = clean
	return r
}

// DisplayText assembles the user-facing message: correction first, then the
// reply, then the follow-up question.
func (r TutorReply) DisplayText() string {
	parts := make([]string, 0, 3)
	if c := strings.TrimSpace(r.Correction); c != "" {
		parts = append(parts, "✅ "+c)
	}
	if t := strings.TrimSpace(r.Reply); t != "" {
		parts = append(parts, t)
	}
	if q := strings.TrimSpace(r.Question); q != "" {
		parts = append(parts, q)
	}
	return strings.Join(parts, "\n")
}

func scrubFieldSyntax(s string) string {
	return strings.TrimSpace(fieldSyntaxRe.ReplaceAllString(s, ""))
}
