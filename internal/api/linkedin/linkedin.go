// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package linkedin is a minimal client for the LinkedIn v2 REST API: member
// identity, image asset upload and UGC posts.
package linkedin

import (
	"cmp"
	"context"
	"errors"
	"net/http"
	"strings"

	"go.astrophena.name/postbot/internal/request"
)

// DefaultBaseURL is the LinkedIn API endpoint.
const DefaultBaseURL = "https://api.linkedin.com"

// Client holds configuration for interacting with the LinkedIn API.
type Client struct {
	// AccessToken is the OAuth 2.0 bearer token of the member.
	AccessToken string
	// BaseURL overrides DefaultBaseURL.
	BaseURL string
	// HTTPClient is an optional HTTP client to use for requests. Defaults to
	// request.DefaultClient.
	HTTPClient *http.Client
	// Scrubber is an optional strings.Replacer that scrubs unwanted data from
	// error messages.
	Scrubber *strings.Replacer
}

func (c *Client) url(path string) string {
	base := c.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	return base + path
}

func (c *Client) params(method, url string, body any) request.Params {
	return request.Params{
		Method: method,
		URL:    url,
		Headers: map[string]string{
			"Authorization":             "Bearer " + c.AccessToken,
			"X-Restli-Protocol-Version": "2.0.0",
		},
		Body:       body,
		HTTPClient: c.HTTPClient,
		Scrubber:   c.Scrubber,
	}
}

// UserInfo is the OpenID Connect profile of the authenticated member.
type UserInfo struct {
	Sub  string `json:"sub"`
	Name string `json:"name,omitempty"`
}

// URN returns the person URN used as post author and asset owner.
func (u UserInfo) URN() string { return "urn:li:person:" + u.Sub }

// UserInfo returns the profile of the member owning the access token.
func (c *Client) UserInfo(ctx context.Context) (UserInfo, error) {
	info, err := request.Make[UserInfo](ctx, c.params(http.MethodGet, c.url("/v2/userinfo"), nil))
	if err != nil {
		return UserInfo{}, err
	}
	if info.Sub == "" {
		return UserInfo{}, errors.New("linkedin: userinfo has no subject")
	}
	return info, nil
}

const (
	feedshareImageRecipe  = "urn:li:digitalmediaRecipe:feedshare-image"
	uploadMechanismHTTP   = "com.linkedin.digitalmedia.uploading.MediaUploadHttpRequest"
	userGeneratedContent  = "urn:li:userGeneratedContent"
	shareContentKey       = "com.linkedin.ugc.ShareContent"
	memberVisibilityKey   = "com.linkedin.ugc.MemberNetworkVisibility"
	lifecycleStatePublish = "PUBLISHED"
)

type registerUploadRequest struct {
	RegisterUploadRequest struct {
		Recipes              []string              `json:"recipes"`
		Owner                string                `json:"owner"`
		ServiceRelationships []serviceRelationship `json:"serviceRelationships"`
	} `json:"registerUploadRequest"`
}

type serviceRelationship struct {
	RelationshipType string `json:"relationshipType"`
	Identifier       string `json:"identifier"`
}

type registerUploadResponse struct {
	Value struct {
		Asset           string `json:"asset"`
		UploadMechanism map[string]struct {
			UploadURL string `json:"uploadUrl"`
		} `json:"uploadMechanism"`
	} `json:"value"`
}

// Upload is a registered image upload.
type Upload struct {
	// URL receives the raw image bytes with a PUT request.
	URL string
	// Asset is the opaque media handle referenced by the post.
	Asset string
}

// RegisterUpload registers an image upload owned by owner.
func (c *Client) RegisterUpload(ctx context.Context, owner string) (Upload, error) {
	var req registerUploadRequest
	req.RegisterUploadRequest.Recipes = []string{feedshareImageRecipe}
	req.RegisterUploadRequest.Owner = owner
	req.RegisterUploadRequest.ServiceRelationships = []serviceRelationship{
		{RelationshipType: "OWNER", Identifier: userGeneratedContent},
	}

	resp, err := request.Make[registerUploadResponse](ctx, c.params(http.MethodPost, c.url("/v2/assets?action=registerUpload"), req))
	if err != nil {
		return Upload{}, err
	}
	up := Upload{
		URL:   resp.Value.UploadMechanism[uploadMechanismHTTP].UploadURL,
		Asset: resp.Value.Asset,
	}
	if up.URL == "" || up.Asset == "" {
		return Upload{}, errors.New("linkedin: registerUpload returned no upload URL or asset")
	}
	return up, nil
}

// PutImage uploads the raw image bytes to a registered upload URL.
func (c *Client) PutImage(ctx context.Context, up Upload, contentType string, data []byte) error {
	_, err := request.Make[request.IgnoreResponse](ctx, c.params(http.MethodPut, up.URL, request.Raw{
		ContentType: contentType,
		Data:        data,
	}))
	return err
}

// Post is a member share.
type Post struct {
	// Author is the person URN.
	Author string
	// Text is the share commentary.
	Text string
	// Asset is an optional image asset returned by RegisterUpload.
	Asset string
	// Title and Description label the image.
	Title, Description string
}

type text struct {
	Text string `json:"text"`
}

type media struct {
	Status      string `json:"status"`
	Description text   `json:"description"`
	Media       string `json:"media"`
	Title       text   `json:"title"`
}

type shareContent struct {
	ShareCommentary    text    `json:"shareCommentary"`
	ShareMediaCategory string  `json:"shareMediaCategory"`
	Media              []media `json:"media,omitempty"`
}

type ugcPost struct {
	Author          string                  `json:"author"`
	LifecycleState  string                  `json:"lifecycleState"`
	SpecificContent map[string]shareContent `json:"specificContent"`
	Visibility      map[string]string       `json:"visibility"`
}

type ugcPostResponse struct {
	ID string `json:"id"`
}

func (p Post) body() ugcPost {
	content := shareContent{
		ShareCommentary:    text{p.Text},
		ShareMediaCategory: "NONE",
	}
	if p.Asset != "" {
		content.ShareMediaCategory = "IMAGE"
		content.Media = []media{{
			Status:      "READY",
			Description: text{p.Description},
			Media:       p.Asset,
			Title:       text{p.Title},
		}}
	}
	return ugcPost{
		Author:          p.Author,
		LifecycleState:  lifecycleStatePublish,
		SpecificContent: map[string]shareContent{shareContentKey: content},
		Visibility:      map[string]string{memberVisibilityKey: "PUBLIC"},
	}
}

// restliIDHeader carries the URN of a created entity.
const restliIDHeader = "X-RestLi-Id"

// CreatePost publishes p with public visibility and returns the post URN.
func (c *Client) CreatePost(ctx context.Context, p Post) (string, error) {
	params := c.params(http.MethodPost, c.url("/v2/ugcPosts"), p.body())
	params.ResponseHeader = make(http.Header)
	resp, err := request.Make[ugcPostResponse](ctx, params)
	if err != nil {
		return "", err
	}
	return cmp.Or(params.ResponseHeader.Get(restliIDHeader), resp.ID), nil
}
