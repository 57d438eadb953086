package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/sashko-guz/book-covers/internal/httpclient"
)

// volumesResponse is the minimal shape of a Google Books volumes list/get
// response this package cares about.
type volumesResponse struct {
	Items []volumeItem `json:"items"`
	// VolumeInfo is populated when the response is a single-volume GET
	// (by volume id) rather than a search list.
	VolumeInfo *volumeInfo `json:"volumeInfo"`
}

type volumeItem struct {
	VolumeInfo volumeInfo `json:"volumeInfo"`
}

type volumeInfo struct {
	ImageLinks *imageLinks `json:"imageLinks"`
}

type imageLinks struct {
	Thumbnail      string `json:"thumbnail"`
	SmallThumbnail string `json:"smallThumbnail"`
}

// GoogleVolumeLookup implements VolumeLookup against the real Google
// Books Volumes API.
type GoogleVolumeLookup struct {
	http   httpclient.HttpClient
	apiKey string
}

// NewGoogleVolumeLookup constructs a GoogleVolumeLookup. apiKey may be
// empty; Google Books serves unauthenticated requests at a lower quota.
func NewGoogleVolumeLookup(http httpclient.HttpClient, apiKey string) *GoogleVolumeLookup {
	return &GoogleVolumeLookup{http: http, apiKey: apiKey}
}

// LookupByISBN searches the volumes list endpoint by isbn: query.
func (g *GoogleVolumeLookup) LookupByISBN(ctx context.Context, isbn string) (string, bool) {
	q := fmt.Sprintf("%s?q=isbn:%s", GoogleVolumeAPIBase, url.QueryEscape(isbn))
	if g.apiKey != "" {
		q += "&key=" + url.QueryEscape(g.apiKey)
	}

	body, _, err := g.http.Get(ctx, q)
	if err != nil {
		return "", false
	}

	var resp volumesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", false
	}
	for _, item := range resp.Items {
		if link := bestImageLink(item.VolumeInfo.ImageLinks); link != "" {
			return link, true
		}
	}
	return "", false
}

// LookupByVolumeID fetches the volume directly by id.
func (g *GoogleVolumeLookup) LookupByVolumeID(ctx context.Context, volumeID string) (string, bool) {
	q := fmt.Sprintf("%s/%s", GoogleVolumeAPIBase, url.PathEscape(volumeID))
	if g.apiKey != "" {
		q += "?key=" + url.QueryEscape(g.apiKey)
	}

	body, _, err := g.http.Get(ctx, q)
	if err != nil {
		return "", false
	}

	var resp volumesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", false
	}
	if resp.VolumeInfo != nil {
		if link := bestImageLink(resp.VolumeInfo.ImageLinks); link != "" {
			return link, true
		}
	}
	return "", false
}

func bestImageLink(links *imageLinks) string {
	if links == nil {
		return ""
	}
	if links.Thumbnail != "" {
		return links.Thumbnail
	}
	return links.SmallThumbnail
}
