package api

import (
	"encoding/json"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/quill/internal/models"
)

// LoginRequest is the request body for admin login.
type LoginRequest struct {
	Password string `json:"password" validate:"required"`
}

// AuthStatusResponse reports whether the caller holds an admin session.
type AuthStatusResponse struct {
	Authenticated bool `json:"authenticated"`
}

// TagList accepts tags either as a JSON array or as a comma-separated string.
type TagList []string

// UnmarshalJSON implements json.Unmarshaler.
func (t *TagList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*t = list
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*t = out
	return nil
}

// CreatePostRequest is the request body for publishing a post.
type CreatePostRequest struct {
	Title       string  `json:"title" example:"Hello World" validate:"required"`
	Content     string  `json:"content" example:"# Hello" validate:"required"`
	Tags        TagList `json:"tags" example:"go,web"`
	ImageURL    string  `json:"imageUrl"`
	Description string  `json:"description"`
	Keywords    string  `json:"keywords"`
	Author      string  `json:"author"`
}

// Validate implements validation.Validatable.
func (r CreatePostRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Content, validation.Required),
	)
}

func (r CreatePostRequest) input() models.PostInput {
	return models.PostInput{
		Title:       r.Title,
		Tags:        r.Tags,
		ImageURL:    r.ImageURL,
		Content:     r.Content,
		Description: r.Description,
		Keywords:    r.Keywords,
		Author:      r.Author,
	}
}

// CreatePostResponse is returned after a post is published.
type CreatePostResponse struct {
	Success bool   `json:"success"`
	Slug    string `json:"slug" example:"hello-world"`
}

// PostDetail is a post with its rendered body.
type PostDetail struct {
	*models.Post
	HTML string `json:"html"`
}

// CreateCommentRequest is the request body for a comment or reply.
type CreateCommentRequest struct {
	Slug     string `json:"slug" validate:"required"`
	Author   string `json:"author" validate:"required"`
	Email    string `json:"email" validate:"required"`
	Content  string `json:"content" validate:"required"`
	ParentID string `json:"parentId"`
}

// Validate implements validation.Validatable.
func (r CreateCommentRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Slug, validation.Required),
		validation.Field(&r.Author, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Email, validation.Required, is.EmailFormat),
		validation.Field(&r.Content, validation.Required, validation.Length(1, 5000)),
	)
}

// UpdateCommentRequest is the request body for editing a comment.
type UpdateCommentRequest struct {
	ID      string `json:"id" validate:"required"`
	Content string `json:"content" validate:"required"`
}

// Validate implements validation.Validatable.
func (r UpdateCommentRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ID, validation.Required),
		validation.Field(&r.Content, validation.Required, validation.Length(1, 5000)),
	)
}

// CreateMessageRequest is the contact form body.
type CreateMessageRequest struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required"`
	Subject string `json:"subject" validate:"required"`
	Message string `json:"message" validate:"required"`
}

// Validate implements validation.Validatable.
func (r CreateMessageRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Email, validation.Required, is.EmailFormat),
		validation.Field(&r.Subject, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Message, validation.Required, validation.Length(1, 10000)),
	)
}

// IDRequest carries a single identifier.
type IDRequest struct {
	ID string `json:"id" validate:"required"`
}

// SubscribeRequest is the newsletter signup body.
type SubscribeRequest struct {
	Email string `json:"email" validate:"required"`
}

// Validate implements validation.Validatable.
func (r SubscribeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.EmailFormat),
	)
}

// CreatedResponse is returned by the public submission endpoints.
type CreatedResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// UploadResponse is returned after a successful image upload.
type UploadResponse struct {
	Filename string `json:"filename" example:"cover-1a2b3c4d.png"`
	Size     int64  `json:"size" example:"12345"`
	URL      string `json:"url" example:"/uploads/cover-1a2b3c4d.png"`
}
