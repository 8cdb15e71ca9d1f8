package github

// userPayload is the subset of GET /user the adapter needs. Pointers
// distinguish a missing field from a zero value.
type userPayload struct {
	ID    *int64  `json:"id"`
	Login *string `json:"login"`
}

type thread struct {
	ID         string     `json:"id"`
	Unread     bool       `json:"unread"`
	Reason     string     `json:"reason"`
	UpdatedAt  string     `json:"updated_at"`
	Subject    subject    `json:"subject"`
	Repository repository `json:"repository"`
}

type subject struct {
	Title            string `json:"title"`
	URL              string `json:"url"`
	LatestCommentURL string `json:"latest_comment_url"`
	Type             string `json:"type"`
}

type repository struct {
	FullName string `json:"full_name"`
	HTMLURL  string `json:"html_url"`
}

// subjectDetail is the subset shared by issue and pull request payloads.
type subjectDetail struct {
	State    string  `json:"state"`
	HTMLURL  string  `json:"html_url"`
	Draft    bool    `json:"draft"`
	MergedAt *string `json:"merged_at"`
}

type commentPayload struct {
	HTMLURL string `json:"html_url"`
}

type markAllRequest struct {
	LastReadAt string `json:"last_read_at"`
	Read       bool   `json:"read"`
}
