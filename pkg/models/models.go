package models

import "strings"

// Status is one normalized timeline entry, original or reshared.
// Field names on the wire follow the record shape the backup files
// have always used.
type Status struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	CreateTime   string    `json:"create_time"`
	FullTime     string    `json:"full_time"`
	SharingURL   string    `json:"sharing_url"`
	OriginalURL  string    `json:"original_url"`
	Author       Author    `json:"author"`
	Activity     string    `json:"activity"`
	Rating       string    `json:"rating"`
	Text         string    `json:"text"`
	Topic        *Topic    `json:"topic,omitempty"`
	Images       []Image   `json:"images,omitempty"`
	Card         *Card     `json:"card,omitempty"`
	Reshared     *Reshared `json:"reshared_status,omitempty"`
	CommentCount int       `json:"comment_count"`
	LikeCount    int       `json:"like_count"`
	Deleted      bool      `json:"deleted"`
	Hidden       bool      `json:"hidden"`
	Comments     []Comment `json:"comments,omitempty"`
}

// Author identifies a Douban user. UID is the /people/<uid>/ path
// segment of the profile link; all fields may be empty when the source
// item carries no author element.
type Author struct {
	Name string `json:"name"`
	UID  string `json:"uid"`
	Link string `json:"link"`
}

// Topic is an optional topic-discussion reference.
type Topic struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Image holds the small (as rendered) and large (derived) photo URLs.
type Image struct {
	Small string `json:"small"`
	Large string `json:"large"`
	Alt   string `json:"alt"`
}

// Card is a structured reference to an external subject (movie, book,
// webpage) attached to a status.
type Card struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// Reshared is the partial record of the original status inside a
// repost. Only one level is ever normalized; its comments are never
// fetched.
type Reshared struct {
	ID     string  `json:"id"`
	Author Author  `json:"author"`
	Text   string  `json:"text"`
	Images []Image `json:"images,omitempty"`
	Card   *Card   `json:"card,omitempty"`
}

// Comment is one reply under a status. A synthetic placeholder comment
// uses SystemAuthorName as the author name.
type Comment struct {
	Content string `json:"content"`
	Author  Author `json:"author"`
}

// SystemAuthorName marks placeholder comments synthesized by the
// backup tool rather than written by a real user.
const SystemAuthorName = "系统提示"

// IsSystem reports whether the comment is a synthesized placeholder.
func (c Comment) IsSystem() bool {
	return c.Author.Name == SystemAuthorName && c.Author.UID == ""
}

// LargeImageURL derives the large photo URL from a small one by
// substituting the size path segment. Applying it to an already-large
// URL is a no-op.
func LargeImageURL(small string) string {
	large := strings.Replace(small, "/small/", "/large/", 1)
	return strings.Replace(large, "/medium/", "/large/", 1)
}
