package blog

import "time"

type Post struct {
	ID          uint       `json:"id"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Excerpt     string     `json:"excerpt"`
	Content     string     `json:"content"`
	ContentHTML string     `json:"contentHtml"`
	CoverImage  *string    `json:"coverImage"`
	Published   bool       `json:"published"`
	PublishedAt *time.Time `json:"publishedAt"`
	AuthorID    *uint      `json:"authorId"`
	AuthorName  string     `json:"authorName"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type CreateInput struct {
	Title      string  `json:"title"`
	Excerpt    string  `json:"excerpt"`
	Content    string  `json:"content"`
	CoverImage *string `json:"coverImage"`
	Published  bool    `json:"published"`
}

type UpdateInput struct {
	Title      *string `json:"title,omitempty"`
	Excerpt    *string `json:"excerpt,omitempty"`
	Content    *string `json:"content,omitempty"`
	CoverImage *string `json:"coverImage,omitempty"`
	Published  *bool   `json:"published,omitempty"`
}
