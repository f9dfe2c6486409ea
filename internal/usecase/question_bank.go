package usecase

import (
	"math/rand"

	"telegram-english-tutor/internal/domain/model"
	"telegram-english-tutor/internal/domain/ports/repository"
)

// Badge is the character a finished level test awards.
type Badge struct {
	Emoji string
	Name  string
}

var levelBadges = map[model.Level]Badge{
	model.LevelA1: {Emoji: "🐣", Name: "Beginner Chick"},
	model.LevelA2: {Emoji: "🦊", Name: "Curious Fox"},
	model.LevelB1: {Emoji: "🦁", Name: "Confident Lion"},
	model.LevelB2: {Emoji: "🦅", Name: "Soaring Eagle"},
}

// BadgeFor returns the character for a level.
func BadgeFor(level model.Level) Badge {
	return levelBadges[level.OrDefault()]
}

// verificationBank holds the onboarding questions, keyed by the level the
// user claims. Three are drawn at random per attempt.
var verificationBank = map[model.Level][]repository.QuizQuestion{
	model.LevelA1: {
		{Question: "How do you say 'Привет' in English?", Options: []string{"Hello", "Goodbye", "Please", "Sorry"}, Correct: 0},
		{Question: "What is this: 🍎?", Options: []string{"Banana", "Apple", "Orange", "Grape"}, Correct: 1},
		{Question: "Choose the correct word: I ___ Denis.", Options: []string{"am", "is", "are", "be"}, Correct: 0},
		{Question: "My name ___ Maria.", Options: []string{"am", "is", "are", "be"}, Correct: 1},
		{Question: "What is this: 🐶?", Options: []string{"Cat", "Dog", "Bird", "Fish"}, Correct: 1},
		{Question: "How do you say 'Спасибо' in English?", Options: []string{"Hello", "Sorry", "Thank you", "Goodbye"}, Correct: 2},
		{Question: "I ___ a student.", Options: []string{"am", "is", "are", "be"}, Correct: 0},
		{Question: "She ___ a teacher.", Options: []string{"am", "is", "are", "be"}, Correct: 1},
		{Question: "What is this: 🏠?", Options: []string{"School", "House", "Car", "Book"}, Correct: 1},
		{Question: "They ___ friends.", Options: []string{"am", "is", "are", "be"}, Correct: 2},
		{Question: "This is ___ book.", Options: []string{"a", "an", "the", "-"}, Correct: 0},
		{Question: "I have ___ apple.", Options: []string{"a", "an", "the", "-"}, Correct: 1},
		{Question: "How do you say 'Пока' in English?", Options: []string{"Hello", "Goodbye", "Thanks", "Sorry"}, Correct: 1},
		{Question: "What color is the sky?", Options: []string{"Red", "Blue", "Green", "Yellow"}, Correct: 1},
		{Question: "We ___ students.", Options: []string{"am", "is", "are", "be"}, Correct: 2},
	},
	model.LevelA2: {
		{Question: "I ___ to the cinema yesterday.", Options: []string{"go", "went", "gone", "going"}, Correct: 1},
		{Question: "She ___ like coffee.", Options: []string{"don't", "doesn't", "isn't", "aren't"}, Correct: 1},
		{Question: "Where ___ you live?", Options: []string{"do", "does", "did", "are"}, Correct: 0},
		{Question: "I ___ TV every evening.", Options: []string{"watch", "watches", "watching", "watched"}, Correct: 0},
		{Question: "He ___ to work by bus.", Options: []string{"go", "goes", "going", "gone"}, Correct: 1},
		{Question: "We ___ pizza last night.", Options: []string{"eat", "eats", "ate", "eating"}, Correct: 2},
		{Question: "They ___ playing football now.", Options: []string{"is", "are", "am", "be"}, Correct: 1},
		{Question: "I ___ see him tomorrow.", Options: []string{"will", "would", "can", "must"}, Correct: 0},
		{Question: "She ___ born in 1995.", Options: []string{"is", "was", "were", "has"}, Correct: 1},
		{Question: "How ___ books do you have?", Options: []string{"much", "many", "lot", "few"}, Correct: 1},
		{Question: "There ___ a cat in the garden.", Options: []string{"is", "are", "am", "be"}, Correct: 0},
		{Question: "I ___ my homework yesterday.", Options: []string{"do", "does", "did", "done"}, Correct: 2},
		{Question: "She ___ to school every day.", Options: []string{"walk", "walks", "walking", "walked"}, Correct: 1},
		{Question: "How ___ water do you need?", Options: []string{"much", "many", "lot", "few"}, Correct: 0},
		{Question: "We ___ to the beach last summer.", Options: []string{"go", "goes", "went", "gone"}, Correct: 2},
	},
	model.LevelB1: {
		{Question: "If I ___ you, I would take that job.", Options: []string{"am", "was", "were", "be"}, Correct: 2},
		{Question: "I've been ___ for this company for 5 years.", Options: []string{"work", "worked", "working", "works"}, Correct: 2},
		{Question: "I would rather ___ at home tonight.", Options: []string{"stay", "staying", "to stay", "stayed"}, Correct: 0},
		{Question: "She said she ___ come to the party.", Options: []string{"will", "would", "can", "must"}, Correct: 1},
		{Question: "I've never ___ sushi before.", Options: []string{"eat", "ate", "eaten", "eating"}, Correct: 2},
		{Question: "By the time I arrived, they ___ already left.", Options: []string{"have", "has", "had", "having"}, Correct: 2},
		{Question: "I wish I ___ more time yesterday.", Options: []string{"have", "had", "has", "having"}, Correct: 1},
		{Question: "The book ___ by millions of people.", Options: []string{"read", "reads", "is read", "was read"}, Correct: 2},
		{Question: "She's been living here ___ 2010.", Options: []string{"since", "for", "from", "at"}, Correct: 0},
		{Question: "He suggested ___ to the cinema.", Options: []string{"go", "to go", "going", "went"}, Correct: 2},
		{Question: "I'm looking forward ___ you again.", Options: []string{"see", "to see", "to seeing", "seeing"}, Correct: 2},
		{Question: "The movie was ___ than I expected.", Options: []string{"good", "better", "best", "well"}, Correct: 1},
		{Question: "I ___ to Paris three times.", Options: []string{"go", "went", "have been", "had been"}, Correct: 2},
		{Question: "If I had known, I ___ you.", Options: []string{"tell", "told", "would tell", "would have told"}, Correct: 3},
		{Question: "She made me ___ for her.", Options: []string{"wait", "to wait", "waiting", "waited"}, Correct: 0},
	},
	model.LevelB2: {
		{Question: "The project ___ by the end of next month.", Options: []string{"will complete", "will be completed", "completes", "is completing"}, Correct: 1},
		{Question: "I wish I ___ more time to study last year.", Options: []string{"have", "had", "had had", "would have"}, Correct: 2},
		{Question: "Hardly ___ finished when the phone rang.", Options: []string{"I had", "had I", "I have", "have I"}, Correct: 1},
		{Question: "The report needs ___ by tomorrow.", Options: []string{"finish", "to finish", "finishing", "to be finished"}, Correct: 3},
		{Question: "Not only ___ late, but he also forgot the documents.", Options: []string{"he was", "was he", "he is", "is he"}, Correct: 1},
		{Question: "Were it not for your help, I ___ failed.", Options: []string{"will have", "would have", "had", "have"}, Correct: 1},
		{Question: "She's accustomed ___ hard.", Options: []string{"work", "to work", "to working", "working"}, Correct: 2},
		{Question: "Scarcely ___ arrived when the meeting started.", Options: []string{"I had", "had I", "I have", "have I"}, Correct: 1},
		{Question: "The manuscript ___ to the publisher next week.", Options: []string{"will send", "will be sent", "is sending", "sends"}, Correct: 1},
		{Question: "He acts as if he ___ the owner.", Options: []string{"is", "was", "were", "be"}, Correct: 2},
		{Question: "No sooner ___ than it started to rain.", Options: []string{"we left", "we had left", "had we left", "did we leave"}, Correct: 2},
		{Question: "Little ___ know what was waiting for him.", Options: []string{"he did", "did he", "he", "does he"}, Correct: 1},
		{Question: "I object to ___ like a child.", Options: []string{"treat", "treating", "being treated", "be treated"}, Correct: 2},
		{Question: "Should you ___ any problems, call me immediately.", Options: []string{"have", "had", "having", "to have"}, Correct: 0},
		{Question: "I have my car ___ every year.", Options: []string{"service", "serviced", "servicing", "to service"}, Correct: 1},
	},
}

// expressBank feeds the shareable 30-second quiz. It is a different set
// from the onboarding bank so a retaken quiz stays fresh. Correct answers
// sit at index 0 here; options are shuffled per session.
var expressBank = []repository.QuizQuestion{
	{Question: "She ___ a teacher.", Options: []string{"is", "are", "am", "be"}, Correct: 0, Level: "A1"},
	{Question: "___ you speak English?", Options: []string{"Do", "Does", "Is", "Are"}, Correct: 0, Level: "A1"},
	{Question: "I ___ breakfast every morning.", Options: []string{"have", "has", "having", "had"}, Correct: 0, Level: "A1"},
	{Question: "This is ___ interesting book.", Options: []string{"an", "a", "the", "—"}, Correct: 0, Level: "A1"},
	{Question: "He ___ to Paris last summer.", Options: []string{"went", "go", "has gone", "going"}, Correct: 0, Level: "A2"},
	{Question: "She is ___ than her brother.", Options: []string{"taller", "more tall", "tallest", "tall"}, Correct: 0, Level: "A2"},
	{Question: "There aren't ___ eggs in the fridge.", Options: []string{"any", "some", "a", "the"}, Correct: 0, Level: "A2"},
	{Question: "I ___ TV when the phone rang.", Options: []string{"was watching", "watched", "watch", "am watching"}, Correct: 0, Level: "A2"},
	{Question: "If I ___ rich, I would travel the world.", Options: []string{"were", "am", "be", "will be"}, Correct: 0, Level: "B1"},
	{Question: "I ___ here since 2020.", Options: []string{"have lived", "am living", "live", "lived"}, Correct: 0, Level: "B1"},
	{Question: "The letter ___ yesterday.", Options: []string{"was sent", "sent", "is sending", "sends"}, Correct: 0, Level: "B1"},
	{Question: "She asked me where I ___.", Options: []string{"lived", "live", "am living", "do live"}, Correct: 0, Level: "B1"},
	{Question: "Had I known earlier, I ___ differently.", Options: []string{"would have acted", "acted", "will act", "would act"}, Correct: 0, Level: "B2"},
	{Question: "___ the heavy rain, we decided to go out.", Options: []string{"Despite", "Although", "However", "Because"}, Correct: 0, Level: "B2"},
	{Question: "She suggested ___ a short break.", Options: []string{"taking", "to take", "take", "taken"}, Correct: 0, Level: "B2"},
	{Question: "Not only ___ late, but he also forgot the keys.", Options: []string{"was he", "he was", "is he", "he is"}, Correct: 0, Level: "B2"},
}

// drawVerification picks count random questions for the chosen level.
func drawVerification(level model.Level, count int) []repository.QuizQuestion {
	bank := verificationBank[level.OrDefault()]
	if len(bank) <= count {
		return cloneQuestions(bank)
	}
	idx := rand.Perm(len(bank))
	out := make([]repository.QuizQuestion, 0, count)
	for _, i := range idx[:count] {
		out = append(out, cloneQuestion(bank[i]))
	}
	return out
}

// drawExpress builds a balanced set: one question per level plus one more
// at random, shuffled. Options are reshuffled so the right answer does not
// always sit first.
func drawExpress(count int) []repository.QuizQuestion {
	byLevel := make(map[string][]repository.QuizQuestion)
	for _, q := range expressBank {
		byLevel[q.Level] = append(byLevel[q.Level], q)
	}

	picked := make(map[string]bool)
	out := make([]repository.QuizQuestion, 0, count)
	for _, lvl := range model.Levels {
		pool := byLevel[string(lvl)]
		if len(pool) == 0 {
			continue
		}
		q := pool[rand.Intn(len(pool))]
		picked[q.Question] = true
		out = append(out, q)
	}

	var rest []repository.QuizQuestion
	for _, q := range expressBank {
		if !picked[q.Question] {
			rest = append(rest, q)
		}
	}
	if len(rest) > 0 && len(out) < count {
		out = append(out, rest[rand.Intn(len(rest))])
	}

	rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	if len(out) > count {
		out = out[:count]
	}

	for i := range out {
		out[i] = shuffleOptions(out[i])
	}
	return out
}

func shuffleOptions(q repository.QuizQuestion) repository.QuizQuestion {
	q = cloneQuestion(q)
	correct := q.Options[q.Correct]
	rand.Shuffle(len(q.Options), func(i, j int) {
		q.Options[i], q.Options[j] = q.Options[j], q.Options[i]
	})
	for i, opt := range q.Options {
		if opt == correct {
			q.Correct = i
			break
		}
	}
	return q
}

func cloneQuestion(q repository.QuizQuestion) repository.QuizQuestion {
	opts := make([]string, len(q.Options))
	copy(opts, q.Options)
	q.Options = opts
	return q
}

func cloneQuestions(qs []repository.QuizQuestion) []repository.QuizQuestion {
	out := make([]repository.QuizQuestion, len(qs))
	for i, q := range qs {
		out[i] = cloneQuestion(q)
	}
	return out
}
