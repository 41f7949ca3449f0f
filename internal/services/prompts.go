package services

import (
	"fmt"
	"strings"

	"github.com/yoockh/legalease/internal/models"
)

// ComparisonCategories is the fixed checklist every comparison covers.
var ComparisonCategories = []string{
	"Term and Termination",
	"Payment Obligations & Amounts",
	"Liability and Indemnification",
	"Confidentiality",
	"Governing Law & Jurisdiction",
	"Scope of Work or Deliverables",
}

const (
	OnlyInDocument1 = "Only in Document 1"
	OnlyInDocument2 = "Only in Document 2"
)

func SummaryPrompt(text string, lang models.Language) string {
	return fmt.Sprintf(`Summarize this legal document in simple, easy-to-understand language.
Focus on key obligations, rights, and potential risks.

Write the final summary in %s.

DOCUMENT:
%s
`, lang, text)
}

func ClauseAnalysisPrompt(text string, lang models.Language) string {
	return fmt.Sprintf(`Extract and explain each major clause from this legal document.
For each clause, give:
- Clause title
- Meaning in simple terms
- Why it is important

Write the entire analysis in %s.

DOCUMENT:
%s
`, lang, text)
}

func ComparisonPrompt(textA, textB string, lang models.Language) string {
	var checklist strings.Builder
	for _, c := range ComparisonCategories {
		checklist.WriteString("- ")
		checklist.WriteString(c)
		checklist.WriteByte('\n')
	}

	return fmt.Sprintf(`You are a legal analyst AI. Compare the two legal documents below.
Focus on key differences in clauses such as:
%[1]s
Output a professional, well-structured markdown report with:
1. A high-level summary of differences.
2. Clause-by-clause comparison.
3. Missing or conflicting terms. When a clause appears in only one document, label it "%[2]s" or "%[3]s".

Write the report in %[4]s.

--- DOCUMENT 1 ---
%[5]s

--- DOCUMENT 2 ---
%[6]s
`, checklist.String(), OnlyInDocument1, OnlyInDocument2, lang, textA, textB)
}
