package domain

// CompletionRequest is the provider-agnostic single-prompt completion call
// used by the use cases and the LLM integration.
type CompletionRequest struct {
	Model       string
	Prompt      string
	Temperature float64
	MaxTokens   int64
	// JSONMode forces the model to emit a single JSON object.
	JSONMode bool
}

// Completion is the generated text plus any citation metadata.
type Completion struct {
	Text        string
	Annotations []Annotation
}

// Annotation is a citation attached to a completion.
type Annotation struct {
	Type        string      `json:"type"`
	URLCitation URLCitation `json:"url_citation"`
}

type URLCitation struct {
	StartIndex int64  `json:"start_index"`
	EndIndex   int64  `json:"end_index"`
	Title      string `json:"title"`
	URL        string `json:"url"`
}
