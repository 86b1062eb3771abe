package domain

// PullRequest identifies a pull request and the refs it compares.
type PullRequest struct {
	Owner   string
	Repo    string
	Number  int
	BaseRef string
	HeadRef string
	HeadSHA string
}

// WithRefs returns a copy of b whose requests read their source at
// sourceRef and their target at targetRef, unless a side names its own ref.
func (b Batch) WithRefs(sourceRef, targetRef string) Batch {
	reqs := make([]DiffRequest, len(b.Requests))
	copy(reqs, b.Requests)
	for i := range reqs {
		if reqs[i].Source.Ref == "" {
			reqs[i].Source.Ref = sourceRef
		}
		if reqs[i].Target.Ref == "" {
			reqs[i].Target.Ref = targetRef
		}
	}
	b.Requests = reqs
	return b
}
