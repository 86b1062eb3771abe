package api

// DiffRequest is the body of POST /diff.
type DiffRequest struct {
	Source  Document     `json:"source"`
	Target  Document     `json:"target"`
	Options *DiffOptions `json:"options,omitempty"`
}

// Document is one side of a POST /diff request.
type Document struct {
	Label   string `json:"label,omitempty"`
	Content string `json:"content"`
	Binary  bool   `json:"binary,omitempty"`
}

// DiffOptions mirrors ManifestOptions for JSON requests. Unset fields keep
// the server defaults.
type DiffOptions struct {
	Context            *int  `json:"context,omitempty"`
	TrimEdges          *bool `json:"trimEdges,omitempty"`
	CollapseWhitespace *bool `json:"collapseWhitespace,omitempty"`
	FoldCase           *bool `json:"foldCase,omitempty"`
	IgnoreWhitespace   *bool `json:"ignoreWhitespace,omitempty"`
}

// DiffResponse is returned by POST /diff and GET /compare.
type DiffResponse struct {
	Name    string `json:"name,omitempty"`
	Status  string `json:"status"`
	Summary string `json:"summary"`
	Items   []Item `json:"items"`
	Stats   Stats  `json:"stats"`
	Unified string `json:"unified"`
}

// Item is one edit of the script, with 0-based positions.
type Item struct {
	StartA    int `json:"startA"`
	StartB    int `json:"startB"`
	DeletedA  int `json:"deletedA"`
	InsertedB int `json:"insertedB"`
}

// Stats totals the edit script.
type Stats struct {
	Items    int `json:"items"`
	Deleted  int `json:"deleted"`
	Inserted int `json:"inserted"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}
