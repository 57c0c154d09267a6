package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"xdigest/internal/model"
	"xdigest/internal/settings"
)

// Public bearer token of the X web client; requests are authorized as the
// logged-in user by the session cookies sent alongside it.
const webBearerToken = "AAAAAAAAAAAAAAAAAAAAANRILgAAAAAAnNwIzUejRCOuH5E6I8xnZz4puTs%3D1Zv7ttfk8LF81IUq16cHjhLTvJu4FA33AGWWjCpTnA"

const (
	defaultGraphQLURL = "https://x.com/i/api/graphql"
	defaultQueryID    = "2TemLyqrMpTeAmysdbnVqw"
	defaultCount      = 40
	tweetCreatedAt    = time.RubyDate
)

// ErrUnauthorized is returned when X rejects the session cookies.
var ErrUnauthorized = errors.New("x rejected session cookies")

var timelineFeatures = map[string]bool{
	"rweb_tipjar_consumption_enabled":                                         true,
	"responsive_web_graphql_exclude_directive_enabled":                        true,
	"verified_phone_label_enabled":                                            false,
	"creator_subscriptions_tweet_preview_api_enabled":                         true,
	"responsive_web_graphql_timeline_navigation_enabled":                      true,
	"responsive_web_graphql_skip_user_profile_image_extensions_enabled":       false,
	"communities_web_enable_tweet_community_results_fetch":                    true,
	"c9s_tweet_anatomy_moderator_badge_enabled":                               true,
	"articles_preview_enabled":                                                true,
	"tweetypie_unmention_optimization_enabled":                                true,
	"responsive_web_edit_tweet_api_enabled":                                   true,
	"graphql_is_translatable_rweb_tweet_is_translatable_enabled":              true,
	"view_counts_everywhere_api_enabled":                                      true,
	"longform_notetweets_consumption_enabled":                                 true,
	"responsive_web_twitter_article_tweet_consumption_enabled":                true,
	"tweet_awards_web_tipping_enabled":                                        false,
	"creator_subscriptions_quote_tweet_preview_enabled":                       false,
	"freedom_of_speech_not_reach_fetch_enabled":                               true,
	"standardized_nudges_misinfo":                                             true,
	"tweet_with_visibility_results_prefer_gql_limited_actions_policy_enabled": true,
	"rweb_video_timestamps_enabled":                                           true,
	"longform_notetweets_rich_text_read_enabled":                              true,
	"longform_notetweets_inline_media_enabled":                                true,
	"responsive_web_enhance_cards_enabled":                                    false,
}

// XList reads the latest posts of an X list through the web GraphQL API.
type XList struct {
	client  HTTPClient
	baseURL string
	queryID string
	listID  string
	cookies settings.Cookies
	count   int
}

// NewXList creates an XList source for the given list and session cookies.
func NewXList(client HTTPClient, listID string, cookies settings.Cookies) *XList {
	return &XList{
		client:  client,
		baseURL: defaultGraphQLURL,
		queryID: defaultQueryID,
		listID:  listID,
		cookies: cookies,
		count:   defaultCount,
	}
}

// SetEndpoint overrides the GraphQL base URL and query ID.
func (x *XList) SetEndpoint(baseURL, queryID string) {
	if baseURL != "" {
		x.baseURL = strings.TrimRight(baseURL, "/")
	}
	if queryID != "" {
		x.queryID = queryID
	}
}

// Fetch returns the list timeline as posts, newest first.
func (x *XList) Fetch(ctx context.Context) ([]model.Post, error) {
	if x.listID == "" {
		return nil, fmt.Errorf("list id is empty")
	}
	if x.cookies.AuthToken == "" || x.cookies.CT0 == "" {
		return nil, fmt.Errorf("%w: auth_token and ct0 are required", ErrUnauthorized)
	}

	req, err := x.newRequest(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := x.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: status %d", ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return ParseTimeline(body)
}

func (x *XList) newRequest(ctx context.Context) (*http.Request, error) {
	variables, err := json.Marshal(map[string]any{"listId": x.listID, "count": x.count})
	if err != nil {
		return nil, fmt.Errorf("encode variables: %w", err)
	}
	features, err := json.Marshal(timelineFeatures)
	if err != nil {
		return nil, fmt.Errorf("encode features: %w", err)
	}

	q := url.Values{}
	q.Set("variables", string(variables))
	q.Set("features", string(features))
	endpoint := fmt.Sprintf("%s/%s/ListLatestTweetsTimeline?%s", x.baseURL, x.queryID, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+webBearerToken)
	req.Header.Set("X-Csrf-Token", x.cookies.CT0)
	req.Header.Set("X-Twitter-Auth-Type", "OAuth2Session")
	req.Header.Set("X-Twitter-Active-User", "yes")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36")
	req.Header.Set("Cookie", x.cookieHeader())
	return req, nil
}

func (x *XList) cookieHeader() string {
	pairs := []string{"auth_token=" + x.cookies.AuthToken, "ct0=" + x.cookies.CT0}
	if x.cookies.TwID != "" {
		pairs = append(pairs, "twid="+x.cookies.TwID)
	}
	return strings.Join(pairs, "; ")
}

type timelineResponse struct {
	Data struct {
		List struct {
			TweetsTimeline struct {
				Timeline struct {
					Instructions []timelineInstruction `json:"instructions"`
				} `json:"timeline"`
			} `json:"tweets_timeline"`
		} `json:"list"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type timelineInstruction struct {
	Type    string          `json:"type"`
	Entries []timelineEntry `json:"entries"`
}

type timelineEntry struct {
	EntryID string `json:"entryId"`
	Content struct {
		ItemContent *itemContent `json:"itemContent"`
		Items       []struct {
			Item struct {
				ItemContent *itemContent `json:"itemContent"`
			} `json:"item"`
		} `json:"items"`
	} `json:"content"`
}

type itemContent struct {
	TweetResults struct {
		Result *tweetResult `json:"result"`
	} `json:"tweet_results"`
}

type tweetResult struct {
	Typename string       `json:"__typename"`
	Tweet    *tweetResult `json:"tweet"`
	Core     struct {
		UserResults struct {
			Result struct {
				Core struct {
					ScreenName string `json:"screen_name"`
				} `json:"core"`
				Legacy struct {
					ScreenName string `json:"screen_name"`
				} `json:"legacy"`
			} `json:"result"`
		} `json:"user_results"`
	} `json:"core"`
	Legacy struct {
		FullText  string `json:"full_text"`
		CreatedAt string `json:"created_at"`
	} `json:"legacy"`
	NoteTweet struct {
		NoteTweetResults struct {
			Result struct {
				Text string `json:"text"`
			} `json:"result"`
		} `json:"note_tweet_results"`
	} `json:"note_tweet"`
}

// ParseTimeline extracts posts from a ListLatestTweetsTimeline response,
// keeping timeline order and skipping cursors and non-tweet entries.
func ParseTimeline(body []byte) ([]model.Post, error) {
	var resp timelineResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode timeline: %w", err)
	}

	var posts []model.Post
	for _, ins := range resp.Data.List.TweetsTimeline.Timeline.Instructions {
		for _, e := range ins.Entries {
			if e.Content.ItemContent != nil {
				if p, ok := contentPost(e.Content.ItemContent); ok {
					posts = append(posts, p)
				}
			}
			for _, it := range e.Content.Items {
				if it.Item.ItemContent == nil {
					continue
				}
				if p, ok := contentPost(it.Item.ItemContent); ok {
					posts = append(posts, p)
				}
			}
		}
	}

	if len(posts) == 0 && len(resp.Errors) > 0 {
		return nil, fmt.Errorf("x api error: %s", resp.Errors[0].Message)
	}
	return posts, nil
}

func contentPost(c *itemContent) (model.Post, bool) {
	r := c.TweetResults.Result
	if r == nil {
		return model.Post{}, false
	}
	if r.Typename == "TweetWithVisibilityResults" && r.Tweet != nil {
		r = r.Tweet
	}
	if r.Typename != "" && r.Typename != "Tweet" {
		return model.Post{}, false
	}

	text := r.NoteTweet.NoteTweetResults.Result.Text
	if text == "" {
		text = r.Legacy.FullText
	}
	if text == "" {
		return model.Post{}, false
	}

	author := r.Core.UserResults.Result.Core.ScreenName
	if author == "" {
		author = r.Core.UserResults.Result.Legacy.ScreenName
	}

	p := model.Post{Author: author, Text: text}
	if ts, err := time.Parse(tweetCreatedAt, r.Legacy.CreatedAt); err == nil {
		p.CreatedAt = ts
	}
	return p, true
}
