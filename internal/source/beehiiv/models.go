package beehiiv

// PostsResponse is one page of the list-posts endpoint.
type PostsResponse struct {
	Data         []Post `json:"data"`
	Limit        int    `json:"limit"`
	Page         int    `json:"page"`
	TotalResults int    `json:"total_results"`
	TotalPages   int    `json:"total_pages"`
}

type Post struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Subtitle     string       `json:"subtitle"`
	SubjectLine  string       `json:"subject_line"`
	PreviewText  string       `json:"preview_text"`
	Status       string       `json:"status"`
	ThumbnailURL string       `json:"thumbnail_url"`
	WebURL       string       `json:"web_url"`
	Created      int64        `json:"created"`
	PublishDate  *int64       `json:"publish_date"`
	Content      *PostContent `json:"content"`
}

type PostContent struct {
	Free *FreeContent `json:"free"`
	RSS  *string      `json:"rss"`
}

type FreeContent struct {
	Web   *string `json:"web"`
	Email *string `json:"email"`
	RSS   *string `json:"rss"`
}
