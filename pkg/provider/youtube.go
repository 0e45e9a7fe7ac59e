package provider

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/youtube/v3"

	"github.com/playmix/playmix/pkg/model"
)

const (
	maxResults = 50
)

type apiKey string

func (key apiKey) Get() (string, string) {
	return "key", string(key)
}

// YouTube implements Client on top of the YouTube Data API v3.
type YouTube struct {
	client *youtube.Service
	keys   KeyProvider
}

var _ Client = (*YouTube)(nil)

func NewYouTube(keys KeyProvider) (*YouTube, error) {
	client, err := youtube.New(&http.Client{})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create youtube client")
	}

	return &YouTube{client: client, keys: keys}, nil
}

func (yt *YouTube) key() apiKey {
	return apiKey(yt.keys.Get())
}

// Cost: 3 units per page (call: 1, contentDetails: 2) plus 3 units for
// the video lookup. See https://developers.google.com/youtube/v3/docs/playlistItems/list#part
func (yt *YouTube) listPage(listID string, pageToken string) ([]*youtube.PlaylistItem, string, error) {
	req := yt.client.PlaylistItems.List("id,contentDetails").MaxResults(maxResults).PlaylistId(listID)
	if pageToken != "" {
		req = req.PageToken(pageToken)
	}

	resp, err := req.Do(yt.key())
	if err != nil {
		return nil, "", wrapAPIError(err, "failed to query playlist items")
	}

	return resp.Items, resp.NextPageToken, nil
}

// queryVideos resolves broadcast status and publish dates for a page of
// video IDs. Videos the API no longer returns (deleted or private) are
// silently skipped.
func (yt *YouTube) queryVideos(ids []string) ([]RawItem, error) {
	resp, err := yt.client.Videos.List("id,snippet").Id(strings.Join(ids, ",")).Do(yt.key())
	if err != nil {
		return nil, wrapAPIError(err, "failed to query videos")
	}

	items := make([]RawItem, 0, len(resp.Items))
	for _, video := range resp.Items {
		publishedAt, err := parseDate(video.Snippet.PublishedAt)
		if err != nil {
			return nil, err
		}

		items = append(items, RawItem{
			ID:          video.Id,
			PublishedAt: publishedAt,
			Status:      parseStatus(video.Snippet.LiveBroadcastContent),
		})
	}

	return items, nil
}

func (yt *YouTube) ListItems(_ context.Context, listID string) ([]RawItem, error) {
	var (
		token string
		items []RawItem
	)

	for {
		page, nextToken, err := yt.listPage(listID, token)
		if err != nil {
			return nil, err
		}

		if len(page) > 0 {
			ids := make([]string, 0, len(page))
			for _, item := range page {
				ids = append(ids, item.ContentDetails.VideoId)
			}

			videos, err := yt.queryVideos(ids)
			if err != nil {
				return nil, err
			}

			items = append(items, videos...)
		}

		token = nextToken
		if token == "" {
			return items, nil
		}
	}
}

// Cost: 3 units (call: 1, contentDetails: 2)
func (yt *YouTube) ResolveChannelListID(_ context.Context, channelID string) (string, error) {
	resp, err := yt.client.Channels.List("id,contentDetails").Id(channelID).Do(yt.key())
	if err != nil {
		return "", wrapAPIError(err, "failed to query channel")
	}

	if len(resp.Items) == 0 {
		return "", model.ErrNotFound
	}

	uploads := resp.Items[0].ContentDetails.RelatedPlaylists.Uploads
	if uploads == "" {
		return "", errors.Errorf("channel %q has no uploads list", channelID)
	}

	return uploads, nil
}

func (yt *YouTube) ValidateListID(_ context.Context, listID string) (string, error) {
	resp, err := yt.client.Playlists.List("id,snippet").Id(listID).Do(yt.key())
	if err != nil {
		return "", wrapAPIError(err, "failed to query playlist")
	}

	if len(resp.Items) == 0 {
		return "", model.ErrNotFound
	}

	return resp.Items[0].Snippet.Title, nil
}

func (yt *YouTube) ValidateChannelID(_ context.Context, channelID string) (string, error) {
	resp, err := yt.client.Channels.List("id,snippet").Id(channelID).Do(yt.key())
	if err != nil {
		return "", wrapAPIError(err, "failed to query channel")
	}

	if len(resp.Items) == 0 {
		return "", model.ErrNotFound
	}

	return resp.Items[0].Snippet.Title, nil
}

// ValidateChannelHandle resolves "@handle" via channel search, which is
// the only lookup the API offers for handles.
func (yt *YouTube) ValidateChannelHandle(_ context.Context, handle string) (string, string, error) {
	query := strings.TrimPrefix(handle, "@")
	if query == "" {
		return "", "", model.ErrNotFound
	}

	resp, err := yt.client.Search.List("snippet").Q(query).Type("channel").MaxResults(1).Do(yt.key())
	if err != nil {
		return "", "", wrapAPIError(err, "failed to search channel")
	}

	if len(resp.Items) == 0 {
		return "", "", model.ErrNotFound
	}

	item := resp.Items[0]
	return item.Id.ChannelId, item.Snippet.ChannelTitle, nil
}

func parseDate(s string) (time.Time, error) {
	date, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "failed to parse date: %s", s)
	}

	return date, nil
}

func parseStatus(broadcast string) Status {
	switch broadcast {
	case "live":
		return StatusLive
	case "upcoming":
		return StatusUpcoming
	default:
		return StatusNone
	}
}

func wrapAPIError(err error, msg string) error {
	if apiErr, ok := err.(*googleapi.Error); ok && apiErr.Code == http.StatusForbidden {
		return model.ErrQuotaExceeded
	}

	return errors.Wrap(err, msg)
}
