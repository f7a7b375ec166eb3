package models

import "time"

// Comment is a reader comment on a post. ParentID is set on replies.
type Comment struct {
	ID        string    `json:"id"`
	Slug      string    `json:"slug"`
	Author    string    `json:"author"`
	Email     string    `json:"email,omitempty"`
	Content   string    `json:"content"`
	ParentID  string    `json:"parentId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CommentWithReplies is a root comment and its direct replies.
type CommentWithReplies struct {
	Comment
	Replies []Comment `json:"replies"`
}

// ContactMessage is an inbox entry from the contact form.
type ContactMessage struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
	Read      bool      `json:"read"`
}

// Subscriber is a newsletter subscription.
type Subscriber struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	SubscribedAt time.Time `json:"subscribedAt"`
	Unsubscribed bool      `json:"unsubscribed"`
}

// DashboardStats summarises site activity for the admin overview.
type DashboardStats struct {
	TotalPosts       int             `json:"totalPosts"`
	TotalComments    int             `json:"totalComments"`
	TotalMessages    int             `json:"totalMessages"`
	TotalSubscribers int             `json:"totalSubscribers"`
	RecentPosts      []RecentPost    `json:"recentPosts"`
	RecentComments   []RecentComment `json:"recentComments"`
	RecentMessages   []RecentMessage `json:"recentMessages"`
}

// RecentPost is a post entry in DashboardStats.
type RecentPost struct {
	Slug  string `json:"slug"`
	Title string `json:"title"`
	Date  string `json:"date"`
}

// RecentComment is a comment entry in DashboardStats.
type RecentComment struct {
	ID     string    `json:"id"`
	Author string    `json:"author"`
	Slug   string    `json:"slug"`
	Date   time.Time `json:"date"`
}

// RecentMessage is a message entry in DashboardStats.
type RecentMessage struct {
	ID   string    `json:"id"`
	Name string    `json:"name"`
	Date time.Time `json:"date"`
}
