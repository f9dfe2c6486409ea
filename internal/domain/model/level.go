package model

// Level is a CEFR proficiency tier. The four tiers are ordered; prompt
// complexity and quick-reply scaffolding are selected from them.
type Level string

const (
	LevelA1 Level = "A1"
	LevelA2 Level = "A2"
	LevelB1 Level = "B1"
	LevelB2 Level = "B2"
)

// Levels lists tiers in ascending order.
var Levels = []Level{LevelA1, LevelA2, LevelB1, LevelB2}

func (l Level) Valid() bool {
	switch l {
	case LevelA1, LevelA2, LevelB1, LevelB2:
		return true
	}
	return false
}

// UsesQuickReplies reports whether the tier gets multiple-choice
// scaffolding. Intermediate and above form their own answers.
func (l Level) UsesQuickReplies() bool {
	return l == LevelA1 || l == LevelA2
}

// OrDefault returns the level or A1 when unset/invalid.
func (l Level) OrDefault() Level {
	if l.Valid() {
		return l
	}
	return LevelA1
}
