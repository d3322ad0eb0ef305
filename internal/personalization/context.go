// Package personalization blends similarity-searched memories and
// snippets with stored preferences into the ambient context that
// conditions generated content toward a specific user.
package personalization

import (
	"fmt"
	"strings"
)

const (
	// The query is intentionally broad rather than the user's literal
	// request: ambient personalization wants breadth, not exact
	// retrieval.
	broadQuery = "experiences thoughts feelings memories insights"

	memoryLimit  = 8
	snippetLimit = 5
	// Low acceptance threshold, same reasoning as the broad query.
	similarityThreshold = 0.1
)

// Memory is one long-term memory record with its search score.
type Memory struct {
	Content    string  `json:"content"`
	Category   string  `json:"category"`
	Importance int     `json:"importance"`
	Similarity float64 `json:"similarity"`
}

// Snippet is one recent free-form thought with its search score.
type Snippet struct {
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
}

// Preferences holds the user's stored content preferences.
type Preferences struct {
	VoiceStyle       string   `json:"preferred_voice_style"`
	ContentThemes    []string `json:"preferred_content_themes"`
	PersonalGoals    []string `json:"personal_goals"`
	MeditationGoals  []string `json:"meditation_goals"`
	SleepPreferences []string `json:"sleep_preferences"`
}

// DefaultPreferences is the fallback when no preference row exists.
func DefaultPreferences() Preferences {
	return Preferences{VoiceStyle: "calm"}
}

// Context is the per-request personalization bundle. It is recomputed on
// every generation request and never persisted.
type Context struct {
	Memories    []Memory
	Snippets    []Snippet
	Preferences Preferences
}

// Empty is the degraded context used when retrieval fails.
func Empty() Context {
	return Context{Preferences: DefaultPreferences()}
}

// PromptText renders the context as the prompt section consumed by the
// script generator. Empty sections are omitted.
func (c Context) PromptText() string {
	var b strings.Builder

	if len(c.Memories) > 0 {
		b.WriteString("\n\nLONG-TERM MEMORY CONTEXT:\n")
		for i, m := range c.Memories {
			fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, m.Category, m.Content)
		}
	}
	if len(c.Snippets) > 0 {
		b.WriteString("\n\nRECENT THOUGHTS & INSIGHTS:\n")
		for i, s := range c.Snippets {
			fmt.Fprintf(&b, "%d. %s\n", i+1, s.Content)
		}
	}

	p := c.Preferences
	if len(p.PersonalGoals) > 0 {
		fmt.Fprintf(&b, "\n\nPERSONAL GOALS: %s\n", strings.Join(p.PersonalGoals, ", "))
	}
	if len(p.MeditationGoals) > 0 {
		fmt.Fprintf(&b, "MEDITATION GOALS: %s\n", strings.Join(p.MeditationGoals, ", "))
	}
	if len(p.SleepPreferences) > 0 {
		fmt.Fprintf(&b, "SLEEP PREFERENCES: %s\n", strings.Join(p.SleepPreferences, ", "))
	}
	if len(p.ContentThemes) > 0 {
		fmt.Fprintf(&b, "PREFERRED THEMES: %s\n", strings.Join(p.ContentThemes, ", "))
	}

	return b.String()
}
