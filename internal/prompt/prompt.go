package prompt

import (
	"fmt"
	"strings"

	"github.com/chris/scribe/internal/llm"
	"github.com/chris/scribe/internal/settings"
)

// TranslateSystem tells the model to act as a high-performance code translator.
func TranslateSystem(sourceLang, destLang string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are an assistant that reimplements %s code in high performance %s. ", sourceLang, destLang)
	fmt.Fprintf(&b, "Respond only with %s code; use comments sparingly and do not provide any explanation other than occasional comments. ", destLang)
	b.WriteString("The response needs to produce an identical output in the fastest possible time.")
	return b.String()
}

func TranslateUser(code, sourceLang, destLang string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Rewrite this %s code in %s with the fastest possible implementation that produces identical output in the least time. ", sourceLang, destLang)
	fmt.Fprintf(&b, "Respond only with %s code; do not explain your work other than a few comments. ", destLang)
	b.WriteString("Pay attention to number types to ensure no type overflows. Include all necessary imports/packages.\n\n")
	b.WriteString(code)
	return b.String()
}

func Translate(code, sourceLang, destLang string) []llm.Message {
	return []llm.Message{
		{Role: llm.RoleSystem, Content: TranslateSystem(sourceLang, destLang)},
		{Role: llm.RoleUser, Content: TranslateUser(code, sourceLang, destLang)},
	}
}

func SummarySystem(length int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a news assistant who expertly summarizes news articles in %d words or less. ", length)
	b.WriteString("When given the text of a news article, you will summarize the main points and any important information. ")
	b.WriteString("You will ensure the summary is not biased and only includes information that is objective and that allows the ")
	b.WriteString("reader to form their own opinion.")
	return b.String()
}

// Summarize returns the system prompt, then history, then the new user input.
func Summarize(snap settings.Snapshot, history []llm.Message, input string) []llm.Message {
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: SummarySystem(snap.SummaryLength)})
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: input})
	return messages
}

// SummarizeURL is the request sent for scheduled digests.
func SummarizeURL(url string) string {
	return "Please summarize the article at " + url
}
