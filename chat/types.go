package chat

type Source struct {
	DocumentID string  `json:"documentId"`
	Title      string  `json:"title"`
	Path       string  `json:"path"`
	Snippet    string  `json:"snippet"`
	Score      float64 `json:"score"`
}

type Response struct {
	Answer  string
	Sources []Source
}
