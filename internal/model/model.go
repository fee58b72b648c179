// Package model defines the wire types exchanged with the remote
// submissions API and the session role constants.
package model

import "time"

// Session roles. Each role owns an independent bearer token in the
// browser session; nothing ties the two together.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// SocialHandle is a social-media handle embedded in a User. Platform is
// the natural delete key within a user: the upstream API keeps at most
// one handle per platform per user (not enforced here).
type SocialHandle struct {
	Platform string    `json:"platform"`
	Handle   string    `json:"handle"`
	AddedAt  time.Time `json:"addedAt"`
}

// Image is an uploaded image embedded in a User. URL is the natural
// delete key.
type Image struct {
	URL        string    `json:"url"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// User is one submission account as returned by GET /api/users. The
// console holds read-only cached copies; identity is ID and immutable.
type User struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	SocialHandles []SocialHandle `json:"socialHandles"`
	Images        []Image        `json:"images"`
	CreatedAt     time.Time      `json:"createdAt"`
}
