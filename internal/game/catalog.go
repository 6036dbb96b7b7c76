package game

import (
	"fmt"
	"strings"

	"mirror-match-backend/internal/model"
)

const (
	SetClassic    = "classic"
	SetExpressive = "expressive"
)

// classic 对应 React 页面的四种表情
var classic = []model.TargetEmotion{
	{
		Name:        "happy",
		Emoji:       "😊",
		Description: "Show your biggest smile!",
		Feedback: model.FeedbackTiers{
			Success: "Wonderful smile! Your happiness is contagious! 🌟",
			Partial: "Almost there! Try making your smile bigger 😊",
			Hint:    "Think of something that makes you really happy!",
		},
		MinConfidence: 0.75, MaxConfidence: 0.99,
	},
	{
		Name:        "sad",
		Emoji:       "😢",
		Description: "Turn your smile upside down",
		Feedback: model.FeedbackTiers{
			Success: "Great expression! You showed feeling sad very well 💙",
			Partial: "Getting closer! Try turning down the corners of your mouth more 😢",
			Hint:    "Think about a rainy day when you couldn't play outside",
		},
		MinConfidence: 0.60, MaxConfidence: 0.90,
	},
	{
		Name:        "mad",
		Emoji:       "😠",
		Description: "Make an angry face",
		Feedback: model.FeedbackTiers{
			Success: "Wow! That's a powerful angry face! 💪",
			Partial: "Almost there! Try furrowing your eyebrows more 😠",
			Hint:    "Think about something that really bothers you!",
		},
		MinConfidence: 0.60, MaxConfidence: 0.90,
	},
	{
		Name:        "scared",
		Emoji:       "😨",
		Description: "Show me your scared face",
		Feedback: model.FeedbackTiers{
			Success: "Perfect scared face! You're getting so good at this! 🌟",
			Partial: "Close! Try opening your eyes wider to show surprise 😨",
			Hint:    "Imagine seeing a friendly ghost that startled you!",
		},
		MinConfidence: 0.60, MaxConfidence: 0.95,
	},
}

// expressive 对应静态演示页的五种表情
var expressive = []model.TargetEmotion{
	{
		Name:        "happy",
		Emoji:       "😊",
		Description: "Show your biggest smile!",
		Feedback: model.FeedbackTiers{
			Success: "Perfect happiness detected! Your smile is absolutely radiant! ✨",
			Partial: "Almost there! Try making your smile bigger 😊",
			Hint:    "Think of something that makes you really happy!",
		},
		Cheers: []string{
			"Perfect happiness detected! Your smile is absolutely radiant! ✨",
			"Amazing joy radiating from your expression! Keep shining! 🌟",
			"Your happiness is contagious! Beautiful smile detected! 😊",
			"Incredible positive energy! Your smile lights up the screen! 💫",
			"Pure joy captured! Your smile is picture-perfect! 📸",
		},
		MinConfidence: 0.75, MaxConfidence: 0.99,
	},
	{
		Name:        "excited",
		Emoji:       "🤩",
		Description: "Show how thrilled you are!",
		Feedback: model.FeedbackTiers{
			Success: "Wow! Incredible excitement detected! You're glowing! ⭐",
			Partial: "Nearly there! Open your eyes wide and grin 🤩",
			Hint:    "Imagine you just won a prize!",
		},
		Cheers: []string{
			"Wow! Incredible excitement detected! You're glowing! ⭐",
			"Amazing energy! Your excitement is off the charts! 🚀",
			"Star-struck expression captured perfectly! ✨",
			"Your enthusiasm is absolutely infectious! 🎉",
			"Spectacular excitement! You're radiating pure joy! 💖",
		},
		MinConfidence: 0.65, MaxConfidence: 0.95,
	},
	{
		Name:        "surprised",
		Emoji:       "😮",
		Description: "Look totally amazed!",
		Feedback: model.FeedbackTiers{
			Success: "Perfect surprise captured! Your expression is priceless! 😮",
			Partial: "Close! Raise your eyebrows and drop your jaw 😮",
			Hint:    "Pretend someone just jumped out from behind a door!",
		},
		Cheers: []string{
			"Perfect surprise captured! Your expression is priceless! 😮",
			"Amazing surprise detected! What a reaction! 🎊",
			"Incredible surprise! Your eyes say it all! 👀",
			"Beautiful surprise expression! Perfectly captured! 📷",
			"Wonderful surprise! Your reaction is fantastic! ⚡",
		},
		MinConfidence: 0.60, MaxConfidence: 0.95,
	},
	{
		Name:        "content",
		Emoji:       "😌",
		Description: "Find your calm, peaceful face",
		Feedback: model.FeedbackTiers{
			Success: "Perfect contentment detected! So peaceful and serene! 🌸",
			Partial: "Relax your shoulders and soften your smile 😌",
			Hint:    "Think of a warm, quiet afternoon.",
		},
		Cheers: []string{
			"Perfect contentment detected! So peaceful and serene! 🌸",
			"Beautiful calm energy! Your inner peace shows! ☮️",
			"Wonderful serenity captured! Very zen-like! 🧘",
			"Amazing tranquility! Your peaceful vibe is lovely! 🌿",
			"Perfect balance detected! Such a calming presence! 💚",
		},
		MinConfidence: 0.70, MaxConfidence: 0.95,
	},
	{
		Name:        "neutral",
		Emoji:       "😐",
		Description: "Show your best poker face",
		Feedback: model.FeedbackTiers{
			Success: "Neutral expression captured. Perfectly composed! 😎",
			Partial: "Almost! Relax every muscle in your face 😐",
			Hint:    "Pretend you're waiting for a bus.",
		},
		Cheers: []string{
			"Neutral expression captured. Perfectly composed! 😎",
			"Cool and collected! Great poker face! 🎭",
			"Balanced expression detected. Very professional! 💼",
			"Steady and calm. Your composure is admirable! 🎯",
			"Neutral but confident! Strong presence detected! 💪",
		},
		MinConfidence: 0.55, MaxConfidence: 0.95,
	},
}

// Catalog is an ordered, read-only set of target emotions.
type Catalog struct {
	name     string
	emotions []model.TargetEmotion
}

func NewCatalog(set string) (*Catalog, error) {
	switch strings.ToLower(strings.TrimSpace(set)) {
	case SetClassic, "":
		return &Catalog{name: SetClassic, emotions: classic}, nil
	case SetExpressive:
		return &Catalog{name: SetExpressive, emotions: expressive}, nil
	default:
		return nil, fmt.Errorf("unknown emotion set %q", set)
	}
}

func (c *Catalog) Name() string {
	return c.name
}

// Emotions returns a copy; callers may not mutate the catalog.
func (c *Catalog) Emotions() []model.TargetEmotion {
	out := make([]model.TargetEmotion, len(c.emotions))
	copy(out, c.emotions)
	return out
}

func (c *Catalog) Names() []string {
	names := make([]string, len(c.emotions))
	for i, e := range c.emotions {
		names[i] = e.Name
	}
	return names
}

func (c *Catalog) Lookup(name string) (model.TargetEmotion, bool) {
	i := c.index(name)
	if i < 0 {
		return model.TargetEmotion{}, false
	}
	return c.emotions[i], true
}

func (c *Catalog) index(name string) int {
	name = strings.TrimSpace(name)
	for i, e := range c.emotions {
		if strings.EqualFold(e.Name, name) {
			return i
		}
	}
	return -1
}
