package workspace

import (
	"fmt"

	"github.com/yoockh/legalease/internal/models"
)

// GroundingTurnCount is the number of synthetic turns that open every session.
const GroundingTurnCount = 2

// BuildGroundingTurns returns the user/assistant exchange that confines the
// model to documentText and to lang. Output is deterministic for its inputs.
func BuildGroundingTurns(documentText string, lang models.Language) [GroundingTurnCount]models.Turn {
	user := fmt.Sprintf(`You are a helpful legal AI assistant. The user has provided the following document.
Answer their questions based only on the content of this document.
If the answer is not contained in the document, say so explicitly.

The user's preferred language is %[1]s. Respond in %[1]s.

--- DOCUMENT TEXT ---
%[2]s
`, lang, documentText)

	assistant := fmt.Sprintf("Understood. I have read the document and am ready to answer your questions in %s.", lang)

	return [GroundingTurnCount]models.Turn{
		{Role: models.RoleUser, Text: user},
		{Role: models.RoleAssistant, Text: assistant},
	}
}
