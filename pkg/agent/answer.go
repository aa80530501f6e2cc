package agent

import "strings"

// Section headings of an assembled answer.
const (
	KnowledgeHeading = "### Base knowledge: \n"
	ResultHeading    = "### Result: \n"
	ReviewHeading    = "## Summarize and review: \n"
)

// Answer is the result of a successful Ask.
type Answer struct {
	Question   string
	Knowledge  string
	Transcript string
	Review     string
	Code       string
	// Map is the last map iframe the code yielded.
	Map    string
	Images []string
	// Solved is set when the knowledge answered the question directly.
	Solved   bool
	Rounds   int
	Attempts []Attempt
	AuditID  string
}

// preReview renders the knowledge and result sections.
func (a *Answer) preReview() string {
	return KnowledgeHeading + a.Knowledge + "\n\n" + ResultHeading + a.Transcript + "\n"
}

// Text renders the answer shown to the user: the knowledge, result and
// review sections in that order, or the knowledge alone for a solved
// question.
func (a *Answer) Text() string {
	if a.Solved {
		return a.Knowledge
	}
	var b strings.Builder
	b.WriteString(a.preReview())
	b.WriteString(ReviewHeading + a.Review + "\n")
	return b.String()
}
