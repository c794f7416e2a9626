package summarize

import "fmt"

const (
	summaryTargetChars = 1000
	summaryMinChars    = 200

	enMaxOutputTokens = 2600
	ruMaxOutputTokens = 3200
)

const (
	enFormatInstruction     = "Format is invalid. Return exactly EN_SUMMARY field."
	enIncompleteInstruction = "Summary is incomplete. Return a complete summary with a full ending and no ellipsis."
	enTooShortInstruction   = "Summary is too short. Rewrite around 1000 characters."

	ruFormatInstruction     = "Format is invalid. Return only RU_TITLE and RU_SUMMARY."
	ruIncompleteInstruction = "RU summary is incomplete. Translate the entire English summary and end with a full sentence."
)

func buildSummaryPrompt(abstractEN string) string {
	return fmt.Sprintf(`Summarize the abstract in English.

Rules:
- Use only the facts in the abstract.
- Plain text only, no markdown, no bullets.
- Target length is about %d characters.
- Keep it concise but complete (do not end with ellipsis).

Return strictly in this format:
EN_SUMMARY:
...

ABSTRACT (EN):
%s`, summaryTargetChars, abstractEN)
}

func buildTranslatePrompt(titleEN, summaryEN string) string {
	return fmt.Sprintf(`Translate to Russian:
1) Article title
2) English summary

Rules:
- Preserve meaning and clinical details.
- Translate the full summary completely, without omissions or shortening.
- Plain text only, no markdown, no bullets.

Return strictly in this format:
RU_TITLE: ...
RU_SUMMARY:
...

TITLE (EN): %s

SUMMARY (EN):
%s`, titleEN, summaryEN)
}
