package helpers

import "fmt"

// Messages are the user-facing strings the shell flashes after an action
var Messages = map[string]string{
	"lyrics_not_found":   "Lyrics not found. Please check the spelling and try again.",
	"lyrics_unavailable": "Lyrics not available for this song",
	"missing_fields":     "Please enter both artist and song name",
	"missing_lyrics":     "Please enter some lyrics first",
	"no_songs":           "No songs found. Try different lyrics or phrases.",
	"ai_malformed":       "Gemini returned invalid format. Trying fallback search...",
	"ai_disabled":        "No Gemini API key found. AI-powered search will be disabled. Add GEMINI_API_KEY to your .env file for the best experience.",
	"voice_disabled":     "Voice search is not available on this server.",
	"key_saved":          "Gemini API key saved for this session.",
	"key_cleared":        "Gemini API key cleared for this session.",
	"bad_selection":      "That song is no longer in the results. Please search again.",
}

func Message(key string) string {
	if msg, ok := Messages[key]; ok {
		return msg
	}
	return "Something went wrong."
}

func FoundSongs(count int) string {
	if count == 1 {
		return "Found 1 matching song!"
	}
	return fmt.Sprintf("Found %d matching songs!", count)
}

func Recognized(transcript string) string {
	return fmt.Sprintf("Recognized: '%s'", transcript)
}

func NoVoiceMatches(transcript string) string {
	return fmt.Sprintf("No exact matches found for '%s'", transcript)
}

func LoadedFrom(source string) string {
	return fmt.Sprintf("Lyrics loaded from %s", source)
}

// VoiceSuggestions are offered when a transcript matched nothing.
func VoiceSuggestions(transcript string) []string {
	return []string{
		fmt.Sprintf("Try searching on Google: %s lyrics", transcript),
		"Use the \"Search by Name\" tab once you find the song",
		"Try typing different keywords in the text box above",
	}
}
