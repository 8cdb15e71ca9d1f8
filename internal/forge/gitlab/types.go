package gitlab

type userPayload struct {
	ID       *int64  `json:"id"`
	Username *string `json:"username"`
}

type todo struct {
	ID         int64    `json:"id"`
	State      string   `json:"state"`
	TargetType string   `json:"target_type"`
	TargetURL  string   `json:"target_url"`
	UpdatedAt  string   `json:"updated_at"`
	Target     target   `json:"target"`
	Project    *project `json:"project"`
}

type target struct {
	Title string `json:"title"`
	State string `json:"state"`
}

type project struct {
	PathWithNamespace string `json:"path_with_namespace"`
}
