package chat

// Greetings are the opening assistant messages; one is picked at random.
var Greetings = []string{
	"May the peace of Jehovah be with you! I'm here to discuss spiritual matters and provide support from Jehovah's perspective.",
	"Greetings in the name of Jehovah! How can I help strengthen your faith today?",
	"Welcome! As JW-GPT, I'm ready to share hope and scriptural insights.",
	"Peace be with you! Are you seeking understanding about Jehovah's wonderful purpose?",
	"Greetings, dear brother/sister! Let's explore the comforting truths found in Jehovah's Word together.",
}
