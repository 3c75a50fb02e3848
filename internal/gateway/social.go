package gateway

import (
	"context"
	"net/http"

	"unidelas/safety-agent/internal/model"
)

// Posts returns the community feed.
func (c *Client) Posts(ctx context.Context) ([]model.Post, error) {
	var posts []model.Post
	if err := c.do(ctx, http.MethodGet, "/posts", nil, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// CreatePost publishes a new feed entry for the authenticated user.
func (c *Client) CreatePost(ctx context.Context, content string) error {
	body := struct {
		Content    string `json:"conteudo"`
		Visibility string `json:"visibilidade"`
		Status     string `json:"status"`
	}{Content: content, Visibility: "PUBLICO", Status: "ATIVO"}
	return c.do(ctx, http.MethodPost, "/posts", body, nil)
}

// Comments lists the replies attached to a post.
func (c *Client) Comments(ctx context.Context, postID string) ([]model.Comment, error) {
	var comments []model.Comment
	if err := c.do(ctx, http.MethodGet, "/comentarios/post/"+postID, nil, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

// CreateComment attaches a reply to a post.
func (c *Client) CreateComment(ctx context.Context, postID, content string) error {
	body := struct {
		PostID  string `json:"postId"`
		Content string `json:"conteudo"`
	}{PostID: postID, Content: content}
	return c.do(ctx, http.MethodPost, "/comentarios", body, nil)
}

// SupportGroups lists community groups and recurring events.
func (c *Client) SupportGroups(ctx context.Context) ([]model.SupportGroup, error) {
	var groups []model.SupportGroup
	if err := c.do(ctx, http.MethodGet, "/grupos-apoio", nil, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// CreateSupportGroup registers a new community group.
func (c *Client) CreateSupportGroup(ctx context.Context, group model.SupportGroup) error {
	return c.do(ctx, http.MethodPost, "/grupos-apoio", group, nil)
}
