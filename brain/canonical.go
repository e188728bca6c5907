package brain

// TemplateVersion identifies the canonical text layout. Stored embeddings
// were computed from text of this version.
const TemplateVersion = "v1"

// CanonicalText renders the text a note is embedded from.
func CanonicalText(in NoteInput) string {
	return "Problem: " + in.Problem + "\nSolution: " + in.Solution + "\nDetailed explanation: " + in.Explanation
}
