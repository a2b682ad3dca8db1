package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/yeremiapane/forms-api/utils"
)

// XProfile is what a successful lookup yields. FollowersCount is nil when
// the upstream did not report it.
type XProfile struct {
	Username        string `json:"username"`
	ProfileImageURL string `json:"profile_image_url,omitempty"`
	FollowersCount  *int64 `json:"followers_count,omitempty"`
}

// XProfileConfig holds the endpoints and credentials for the lookups.
type XProfileConfig struct {
	BearerToken        string
	APIBaseURL         string
	SyndicationBaseURL string
	Timeout            time.Duration
	CacheTTL           time.Duration
}

// XProfileService enriches X (Twitter) profile links. Every failure is
// swallowed: Enrich returns nil rather than an error.
type XProfileService struct {
	config     XProfileConfig
	httpClient *http.Client
	cache      ProfileCache
}

func NewXProfileService(cfg XProfileConfig, cache ProfileCache) *XProfileService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 4 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 6 * time.Hour
	}
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")
	cfg.SyndicationBaseURL = strings.TrimRight(cfg.SyndicationBaseURL, "/")
	return &XProfileService{
		config: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		cache: cache,
	}
}

var (
	xHostPattern   = regexp.MustCompile(`(?i)^(?:www\.)?(?:x|twitter)\.com$`)
	handlePattern  = regexp.MustCompile(`^[A-Za-z0-9_]{1,15}$`)
	schemePattern  = regexp.MustCompile(`(?i)^https?://`)
	bareHostPrefix = regexp.MustCompile(`(?i)^(?:www\.)?(?:x|twitter)\.com/`)
)

// ExtractUsername pulls the handle out of "@handle", "handle",
// "https://x.com/handle/..." or "x.com/handle". Other shapes, including
// URLs on other hosts and multi-word text, return false.
func ExtractUsername(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "@")
	if s == "" {
		return "", false
	}

	if bareHostPrefix.MatchString(s) {
		s = "https://" + s
	}
	if !schemePattern.MatchString(s) {
		if handlePattern.MatchString(s) {
			return s, true
		}
		return "", false
	}

	u, err := url.Parse(s)
	if err != nil || !xHostPattern.MatchString(u.Hostname()) {
		return "", false
	}
	first, _, _ := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
	first = strings.TrimPrefix(first, "@")
	if !handlePattern.MatchString(first) {
		return "", false
	}
	return first, true
}

// Enrich resolves link to profile data. It tries the authenticated v2 API
// when a bearer token is configured, then the public syndication endpoint.
// It returns nil if the link is not an X profile or both lookups fail.
func (s *XProfileService) Enrich(ctx context.Context, link string) *XProfile {
	username, ok := ExtractUsername(link)
	if !ok {
		return nil
	}
	log := utils.InfoLogger.WithField("username", username)

	if s.cache != nil {
		if p, hit := s.cache.Get(ctx, username); hit {
			log.Debug("x profile cache hit")
			return p
		}
	}

	var profile *XProfile
	if s.config.BearerToken != "" {
		p, err := s.lookupV2(ctx, username)
		if err != nil {
			log.WithError(err).Debug("x v2 lookup failed, trying syndication")
		}
		profile = p
	}
	if profile == nil {
		p, err := s.lookupSyndication(ctx, username)
		if err != nil {
			log.WithError(err).Debug("x syndication lookup failed")
		}
		profile = p
	}
	if profile == nil {
		return nil
	}

	if s.cache != nil {
		s.cache.Set(ctx, username, profile, s.config.CacheTTL)
	}
	return profile
}

type v2Response struct {
	Data *struct {
		Username        string `json:"username"`
		ProfileImageURL string `json:"profile_image_url"`
		PublicMetrics   *struct {
			FollowersCount *int64 `json:"followers_count"`
		} `json:"public_metrics"`
	} `json:"data"`
}

func (s *XProfileService) lookupV2(ctx context.Context, username string) (*XProfile, error) {
	endpoint := fmt.Sprintf("%s/2/users/by/username/%s?user.fields=profile_image_url,public_metrics",
		s.config.APIBaseURL, url.PathEscape(username))

	var body v2Response
	if err := s.getJSON(ctx, endpoint, map[string]string{
		"Authorization": "Bearer " + s.config.BearerToken,
	}, &body); err != nil {
		return nil, err
	}
	if body.Data == nil {
		return nil, fmt.Errorf("v2 response has no data")
	}

	p := &XProfile{
		Username:        body.Data.Username,
		ProfileImageURL: body.Data.ProfileImageURL,
	}
	if p.Username == "" {
		p.Username = username
	}
	if body.Data.PublicMetrics != nil {
		p.FollowersCount = body.Data.PublicMetrics.FollowersCount
	}
	return p, nil
}

type syndicationEntry struct {
	ScreenName           string `json:"screen_name"`
	ProfileImageURLHTTPS string `json:"profile_image_url_https"`
	ProfileImageURL      string `json:"profile_image_url"`
	FollowersCount       *int64 `json:"followers_count"`
}

func (s *XProfileService) lookupSyndication(ctx context.Context, username string) (*XProfile, error) {
	endpoint := fmt.Sprintf("%s/widgets/followbutton/info.json?screen_names=%s",
		s.config.SyndicationBaseURL, url.QueryEscape(username))

	var entries []syndicationEntry
	if err := s.getJSON(ctx, endpoint, map[string]string{
		"User-Agent": "curl/8",
	}, &entries); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("syndication response is empty")
	}

	e := entries[0]
	p := &XProfile{
		Username:        e.ScreenName,
		ProfileImageURL: e.ProfileImageURLHTTPS,
		FollowersCount:  e.FollowersCount,
	}
	if p.Username == "" {
		p.Username = username
	}
	if p.ProfileImageURL == "" {
		p.ProfileImageURL = e.ProfileImageURL
	}
	return p, nil
}

// getJSON performs one bounded GET and decodes a 2xx body into out.
func (s *XProfileService) getJSON(ctx context.Context, endpoint string, headers map[string]string, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(out); err != nil {
		return fmt.Errorf("error decoding response: %w", err)
	}
	return nil
}
