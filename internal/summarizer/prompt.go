package summarizer

import (
	"fmt"
	"time"
)

const pingPrompt = `This is a connectivity test. Reply with "OK" only.`

const promptTemplate = `You are an information analyst covering the AI and technology industry.

Below are today's (%s) posts collected from an AI-focused X (Twitter) list.

Task:
1. Extract the important topics.
2. Organize them into these categories:
   - New AI models and technical announcements
   - Industry trends and news
   - Use cases and tips
   - Company moves and funding
   - Other notable items
3. Summarize each item concisely in 2-3 lines.
4. Merge duplicate topics.
5. Finish with "Today's highlights" in 1-2 sentences.

---

%s`

// BuildPrompt fills the digest template with the date and the raw posts.
func BuildPrompt(day time.Time, raw string) string {
	return fmt.Sprintf(promptTemplate, day.Format("January 2, 2006"), raw)
}
