package beehiiv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"newsletter_ingest/internal/domain"
)

const (
	SourceName = "Beehiiv"

	statusConfirmed = "confirmed"
	maxPageSize     = 100
)

// Config holds the newsletter API client configuration.
type Config struct {
	BaseURL        string
	APIKey         string
	PublicationID  string
	PageSize       int
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Source lists published issues of one publication.
type Source struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	publicationID  string
	pageSize       int
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	logger         *slog.Logger
}

// statusError is returned for non-200 responses. 4xx other than 429 are
// not retried.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status: %d: %s", e.code, e.body)
}

func (e *statusError) retryable() bool {
	return e.code == http.StatusTooManyRequests || e.code >= http.StatusInternalServerError
}

func New(cfg Config, logger *slog.Logger) *Source {
	pageSize := cfg.PageSize
	if pageSize <= 0 || pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	return &Source{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:        cfg.BaseURL,
		apiKey:         cfg.APIKey,
		publicationID:  cfg.PublicationID,
		pageSize:       pageSize,
		maxAttempts:    maxAttempts,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		logger:         logger.With("publication_id", cfg.PublicationID),
	}
}

// ID returns the publication the source reads from.
func (s *Source) ID() string {
	return s.publicationID
}

func (s *Source) Name() string {
	return SourceName
}

// FetchIssues returns up to limit of the most recently published issues,
// newest first, with their free RSS rendition expanded.
func (s *Source) FetchIssues(ctx context.Context, limit int) ([]domain.Issue, error) {
	var issues []domain.Issue

	for page := 1; len(issues) < limit; page++ {
		resp, err := s.fetchPage(ctx, page)
		if err != nil {
			return issues, fmt.Errorf("fetch page %d: %w", page, err)
		}

		for _, post := range resp.Data {
			if post.Status != "" && post.Status != statusConfirmed {
				continue
			}
			issues = append(issues, toIssue(post))
			if len(issues) == limit {
				break
			}
		}

		s.logger.Debug("fetched page",
			"page", page,
			"posts", len(resp.Data),
			"total", len(issues),
		)

		if len(resp.Data) == 0 || page >= resp.TotalPages {
			break
		}
	}

	return issues, nil
}

func (s *Source) pageURL(page int) string {
	q := url.Values{}
	q.Add("expand[]", "free_rss_content")
	q.Set("status", statusConfirmed)
	q.Set("order_by", "publish_date")
	q.Set("direction", "desc")
	q.Set("limit", strconv.Itoa(s.pageSize))
	q.Set("page", strconv.Itoa(page))

	return fmt.Sprintf("%s/publications/%s/posts?%s", s.baseURL, url.PathEscape(s.publicationID), q.Encode())
}

func (s *Source) fetchPage(ctx context.Context, page int) (*PostsResponse, error) {
	pageURL := s.pageURL(page)

	var resp *PostsResponse
	var err error

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		resp, err = s.doRequest(ctx, pageURL)
		if err == nil {
			return resp, nil
		}

		var se *statusError
		if errors.As(err, &se) && !se.retryable() {
			return nil, err
		}

		if attempt == s.maxAttempts {
			break
		}

		backoff := s.calculateBackoff(attempt)
		s.logger.Warn("request failed, retrying",
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return nil, fmt.Errorf("after %d attempts: %w", s.maxAttempts, err)
}

func (s *Source) doRequest(ctx context.Context, pageURL string) (*PostsResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "NewsletterIngest/1.0")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &statusError{code: resp.StatusCode, body: string(body)}
	}

	var postsResp PostsResponse
	if err := json.NewDecoder(resp.Body).Decode(&postsResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &postsResp, nil
}

func (s *Source) calculateBackoff(attempt int) time.Duration {
	backoff := s.initialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}
	if backoff > s.maxBackoff {
		backoff = s.maxBackoff
	}
	return backoff
}

func toIssue(p Post) domain.Issue {
	issue := domain.Issue{
		ID:           p.ID,
		Title:        p.Title,
		SubjectLine:  p.SubjectLine,
		PreviewText:  p.PreviewText,
		ThumbnailURL: p.ThumbnailURL,
		WebURL:       p.WebURL,
		Created:      p.Created,
	}
	if p.PublishDate != nil {
		issue.PublishDate = *p.PublishDate
	}
	if p.Content != nil {
		issue.Content.RSS = p.Content.RSS
		if p.Content.Free != nil {
			issue.Content.Free = &domain.FreeContent{RSS: p.Content.Free.RSS}
		}
	}
	return issue
}
