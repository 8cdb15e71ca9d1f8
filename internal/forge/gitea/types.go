package gitea

type thread struct {
	ID         int64      `json:"id"`
	Unread     bool       `json:"unread"`
	UpdatedAt  string     `json:"updated_at"`
	Subject    subject    `json:"subject"`
	Repository repository `json:"repository"`
}

type subject struct {
	Title                string `json:"title"`
	HTMLURL              string `json:"html_url"`
	LatestCommentHTMLURL string `json:"latest_comment_html_url"`
	Type                 string `json:"type"`
	State                string `json:"state"`
}

type repository struct {
	FullName string `json:"full_name"`
	HTMLURL  string `json:"html_url"`
}
