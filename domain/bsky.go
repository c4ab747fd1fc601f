package domain

import "encoding/json"

// AT protocol wire types. Responses are decoded into typed structs and
// validated for field presence before use.

const (
	PostCollection    = "app.bsky.feed.post"
	EmbedExternalType = "app.bsky.embed.external"
)

type SessionRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type SessionResponse struct {
	AccessJwt  string `json:"accessJwt"`
	RefreshJwt string `json:"refreshJwt"`
	Handle     string `json:"handle,omitempty"`
	Did        string `json:"did,omitempty"`
}

// Complete reports whether the remote returned both tokens.
func (s *SessionResponse) Complete() bool {
	return s.AccessJwt != "" && s.RefreshJwt != ""
}

// UploadBlobResponse carries the opaque blob reference returned by
// com.atproto.repo.uploadBlob. The blob is passed back verbatim inside
// the embed, so it stays raw JSON.
type UploadBlobResponse struct {
	Blob json.RawMessage `json:"blob"`
}

type ExternalInfo struct {
	Uri         string          `json:"uri"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Thumb       json.RawMessage `json:"thumb,omitempty"`
}

type ExternalEmbed struct {
	Type     string       `json:"$type"`
	External ExternalInfo `json:"external"`
}

type PostRecord struct {
	Text      string         `json:"text"`
	CreatedAt string         `json:"createdAt"`
	Embed     *ExternalEmbed `json:"embed,omitempty"`
}

type CreateRecordRequest struct {
	Repo       string     `json:"repo"`
	Collection string     `json:"collection"`
	Record     PostRecord `json:"record"`
}

// Preview holds Open Graph metadata scraped from the published page.
// Never persisted.
type Preview struct {
	Title       string
	Description string
	ImageUrl    string
	Url         string
}

// Ready reports whether the preview is complete enough to build a rich
// embed: title, description, image and source URL all present.
func (p *Preview) Ready() bool {
	return p.Title != "" && p.Description != "" && p.ImageUrl != "" && p.Url != ""
}
