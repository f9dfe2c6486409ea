package usecase

import "math/rand"

// Topic is a conversation starter card: a theme plus ready-made opening
// phrases. Picking a starter resets the dialogue so the model does not drag
// the previous subject into the new one.
type Topic struct {
	Emoji    string
	Name     string
	NameRU   string
	Desc     string
	Starters []string
}

var topics = []Topic{
	{
		Emoji: "☕", Name: "At a Cafe", NameRU: "В кафе",
		Desc: "Order drinks, discuss the menu, ask for recommendations",
		Starters: []string{
			"I'd like to order a coffee",
			"What do you recommend?",
			"Can I get the bill, please?",
		},
	},
	{
		Emoji: "✈️", Name: "Travel & Vacation", NameRU: "Путешествия",
		Desc: "Discuss trips, share experiences, plan adventures",
		Starters: []string{
			"I'm planning a trip to London",
			"Have you ever been to Japan?",
			"I need to book a hotel",
		},
	},
	{
		Emoji: "🎬", Name: "Movies & TV Shows", NameRU: "Кино и сериалы",
		Desc: "Talk about your favorite films, recommend series",
		Starters: []string{
			"What's your favorite movie?",
			"I watched a great series recently",
			"Do you prefer comedies or dramas?",
		},
	},
	{
		Emoji: "🍕", Name: "Food & Cooking", NameRU: "Еда и готовка",
		Desc: "Discuss recipes, restaurants, and national cuisine",
		Starters: []string{
			"Can you cook Italian food?",
			"What's your favorite dish?",
			"I tried sushi for the first time",
		},
	},
	{
		Emoji: "💼", Name: "Job Interview", NameRU: "Собеседование",
		Desc: "Practice answering interview questions in English",
		Starters: []string{
			"Tell me about yourself",
			"Why should we hire you?",
			"What are your strengths?",
		},
	},
	{
		Emoji: "🏋️", Name: "Health & Fitness", NameRU: "Здоровье и спорт",
		Desc: "Talk about workouts, healthy habits, and wellness",
		Starters: []string{
			"Do you go to the gym?",
			"I started running every morning",
			"What sport do you like?",
		},
	},
	{
		Emoji: "📱", Name: "Technology", NameRU: "Технологии",
		Desc: "Discuss gadgets, apps, AI, and digital life",
		Starters: []string{
			"What phone do you use?",
			"Have you tried any AI tools?",
			"Social media is so addictive",
		},
	},
	{
		Emoji: "🎵", Name: "Music", NameRU: "Музыка",
		Desc: "Share favorite artists, genres, and concert experiences",
		Starters: []string{
			"What kind of music do you like?",
			"Have you been to any concerts?",
			"I can't stop listening to this song",
		},
	},
	{
		Emoji: "🐾", Name: "Pets & Animals", NameRU: "Питомцы",
		Desc: "Talk about your pets, funny animal stories",
		Starters: []string{
			"Do you have any pets?",
			"I'd love to get a dog",
			"Cats or dogs — what do you prefer?",
		},
	},
	{
		Emoji: "🏠", Name: "Daily Routine", NameRU: "Распорядок дня",
		Desc: "Describe your typical day, morning habits, evenings",
		Starters: []string{
			"What time do you usually wake up?",
			"Tell me about your morning routine",
			"What do you do after work?",
		},
	},
	{
		Emoji: "🛍️", Name: "Shopping", NameRU: "Шопинг",
		Desc: "Discuss shopping habits, sales, online vs offline",
		Starters: []string{
			"Do you prefer online shopping?",
			"I'm looking for a new jacket",
			"Black Friday deals are crazy",
		},
	},
	{
		Emoji: "🎉", Name: "Holidays & Celebrations", NameRU: "Праздники",
		Desc: "Talk about traditions, parties, and special occasions",
		Starters: []string{
			"How do you celebrate New Year?",
			"What's your favorite holiday?",
			"I love birthday parties",
		},
	},
	{
		Emoji: "📚", Name: "Books & Reading", NameRU: "Книги и чтение",
		Desc: "Share book recommendations, discuss genres",
		Starters: []string{
			"What book are you reading now?",
			"Do you prefer fiction or non-fiction?",
			"I want to read more in English",
		},
	},
	{
		Emoji: "🌍", Name: "Countries & Cultures", NameRU: "Страны и культуры",
		Desc: "Explore traditions, customs, and cultural differences",
		Starters: []string{
			"What country would you like to visit?",
			"Tell me about your culture",
			"What surprised you about other countries?",
		},
	},
	{
		Emoji: "🎮", Name: "Games & Entertainment", NameRU: "Игры и развлечения",
		Desc: "Video games, board games, hobbies, and fun activities",
		Starters: []string{
			"Do you play any video games?",
			"What do you do for fun?",
			"I love board games with friends",
		},
	},
	{
		Emoji: "💭", Name: "Dreams & Goals", NameRU: "Мечты и цели",
		Desc: "Talk about ambitions, future plans, and bucket lists",
		Starters: []string{
			"What's your biggest dream?",
			"Where do you see yourself in 5 years?",
			"I want to learn three languages",
		},
	},
	{
		Emoji: "🏆", Name: "Sports", NameRU: "Спорт",
		Desc: "Discuss teams, competitions, and favorite sports",
		Starters: []string{
			"Do you follow any sports teams?",
			"Did you watch the last World Cup?",
			"I played basketball in school",
		},
	},
	{
		Emoji: "🎨", Name: "Art & Creativity", NameRU: "Искусство",
		Desc: "Painting, photography, design, and creative hobbies",
		Starters: []string{
			"Do you have any creative hobbies?",
			"I'd love to learn photography",
			"Have you been to any art museums?",
		},
	},
	{
		Emoji: "🚗", Name: "Cars & Road Trips", NameRU: "Авто и путешествия",
		Desc: "Cars, driving, road trips, and commuting",
		Starters: []string{
			"Do you have a car?",
			"I love road trips with friends",
			"What's your dream car?",
		},
	},
	{
		Emoji: "👨‍👩‍👧", Name: "Family & Friends", NameRU: "Семья и друзья",
		Desc: "Talk about relationships, childhood memories, traditions",
		Starters: []string{
			"Tell me about your family",
			"What do you do with your friends?",
			"Do you have any siblings?",
		},
	},
}

// RandomTopic returns a random conversation card.
func RandomTopic() Topic {
	return topics[rand.Intn(len(topics))]
}
