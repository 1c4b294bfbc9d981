package tags

// Vocabulary is the closed set of tags seeded at startup. Posts may only
// reference these names.
var Vocabulary = []string{
	"News", "Opinion", "Featured", "Trending", "Updates", "Editorial", "Announcement",
	"Lifestyle", "Health", "Fitness", "Wellness", "Travel", "Food", "Fashion", "Beauty",
	"Business", "Entrepreneurship", "Startups", "Marketing", "Finance", "Investing", "Economy",
	"Technology", "AI", "Software", "Gadgets", "Internet", "Cybersecurity",
	"Education", "Learning", "Career", "Productivity", "Self Improvement",
	"Culture", "Society", "Entertainment", "Movies", "Music", "Books",
	"Tips", "Guides", "How To", "Reviews", "Interviews", "Case Study",
}
