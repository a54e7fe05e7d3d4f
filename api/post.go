package api

// PostPage is the JSON form of a rendered post page.
type PostPage struct {
	State string            `json:"state"`
	HTML  string            `json:"html"`
	Title string            `json:"title"`
	Meta  map[string]string `json:"meta"`
}

// Error is the body of a response that could not be rendered at all.
type Error struct {
	Error string `json:"error"`
}
