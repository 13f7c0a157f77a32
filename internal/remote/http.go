package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const visitorHeader = "X-Visitor-ID"

// HTTPStore implements Store against the REST API.
type HTTPStore struct {
	BaseURL string
	HTTP    *http.Client
	// Visitor supplies the X-Visitor-ID header. May be nil.
	Visitor func() string
	Log     *slog.Logger
}

// NewHTTPStore creates a store with a per-request timeout.
func NewHTTPStore(baseURL string, timeout time.Duration, visitor func() string, log *slog.Logger) *HTTPStore {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &HTTPStore{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
		Visitor: visitor,
		Log:     log,
	}
}

type likeBody struct {
	PostID    uint   `json:"post_id"`
	VisitorID string `json:"visitor_id,omitempty"`
}

type counterBody struct {
	PostID     uint `json:"post_id"`
	LikesCount int  `json:"likes_count"`
}

func (s *HTTPStore) ListPosts(ctx context.Context, q ListQuery) []Post {
	v := url.Values{}
	v.Set("offset", strconv.Itoa(max(q.Offset, 0)))
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	v.Set("limit", strconv.Itoa(limit))
	if q.Order != "" {
		v.Set("order", q.Order)
	}

	var posts []Post
	if err := s.do(ctx, http.MethodGet, "/api/posts?"+v.Encode(), nil, &posts); err != nil {
		s.Log.Warn("list posts failed", "error", err)
		return []Post{}
	}
	if posts == nil {
		posts = []Post{}
	}
	return posts
}

func (s *HTTPStore) GetPost(ctx context.Context, id uint) (*Post, error) {
	var p Post
	if err := s.do(ctx, http.MethodGet, fmt.Sprintf("/api/posts/%d", id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *HTTPStore) CreatePost(ctx context.Context, in NewPost) (*Post, error) {
	var p Post
	if err := s.do(ctx, http.MethodPost, "/api/posts", in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *HTTPStore) InsertLike(ctx context.Context, postID uint, visitorID string) error {
	return s.do(ctx, http.MethodPost, "/api/likes", likeBody{PostID: postID, VisitorID: visitorID}, nil)
}

func (s *HTTPStore) DeleteLike(ctx context.Context, postID uint, visitorID string) error {
	v := url.Values{}
	v.Set("post_id", strconv.FormatUint(uint64(postID), 10))
	v.Set("visitor_id", visitorID)
	return s.do(ctx, http.MethodDelete, "/api/likes?"+v.Encode(), nil, nil)
}

func (s *HTTPStore) HasLiked(ctx context.Context, postID uint, visitorID string) (bool, error) {
	v := url.Values{}
	v.Set("post_id", strconv.FormatUint(uint64(postID), 10))
	v.Set("visitor_id", visitorID)
	var out struct {
		Liked bool `json:"liked"`
	}
	if err := s.do(ctx, http.MethodGet, "/api/likes?"+v.Encode(), nil, &out); err != nil {
		return false, err
	}
	return out.Liked, nil
}

func (s *HTTPStore) IncrementLikes(ctx context.Context, postID uint) (int, error) {
	return s.counter(ctx, "increment_likes", likeBody{PostID: postID})
}

func (s *HTTPStore) DecrementLikes(ctx context.Context, postID uint) (int, error) {
	return s.counter(ctx, "decrement_likes", likeBody{PostID: postID})
}

func (s *HTTPStore) LikeAtomic(ctx context.Context, postID uint, visitorID string) (int, error) {
	return s.counter(ctx, "like_post", likeBody{PostID: postID, VisitorID: visitorID})
}

func (s *HTTPStore) UnlikeAtomic(ctx context.Context, postID uint, visitorID string) (int, error) {
	return s.counter(ctx, "unlike_post", likeBody{PostID: postID, VisitorID: visitorID})
}

func (s *HTTPStore) counter(ctx context.Context, proc string, body likeBody) (int, error) {
	var out counterBody
	if err := s.do(ctx, http.MethodPost, "/api/rpc/"+proc, body, &out); err != nil {
		return 0, err
	}
	return out.LikesCount, nil
}

func (s *HTTPStore) InsertComment(ctx context.Context, in NewComment) (*Comment, error) {
	var c Comment
	if err := s.do(ctx, http.MethodPost, fmt.Sprintf("/api/posts/%d/comments", in.PostID), in, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *HTTPStore) ListComments(ctx context.Context, postID uint) []Comment {
	var out []Comment
	if err := s.do(ctx, http.MethodGet, fmt.Sprintf("/api/posts/%d/comments", postID), nil, &out); err != nil {
		s.Log.Warn("list comments failed", "post_id", postID, "error", err)
		return []Comment{}
	}
	if out == nil {
		out = []Comment{}
	}
	return out
}

func (s *HTTPStore) Flags(ctx context.Context) (map[string]bool, error) {
	out := map[string]bool{}
	if err := s.do(ctx, http.MethodGet, "/api/flags", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *HTTPStore) Upload(ctx context.Context, bucket, filename string, r io.Reader) (*Object, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(filename)))
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); ct != "" {
		h.Set("Content-Type", ct)
	} else {
		h.Set("Content-Type", "application/octet-stream")
	}
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := s.newRequest(ctx, http.MethodPost, "/storage/v1/object/"+url.PathEscape(bucket), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var obj Object
	if err := s.send(req, &obj); err != nil {
		return nil, err
	}
	return &obj, nil
}

func (s *HTTPStore) do(ctx context.Context, method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}
	req, err := s.newRequest(ctx, method, path, bodyReader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return s.send(req, result)
}

func (s *HTTPStore) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.Visitor != nil {
		if id := s.Visitor(); id != "" {
			req.Header.Set(visitorHeader, id)
		}
	}
	return req, nil
}

func (s *HTTPStore) send(req *http.Request, result any) error {
	resp, err := s.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		if json.Unmarshal(respBody, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(respBody))
		}
		switch resp.StatusCode {
		case http.StatusConflict:
			return fmt.Errorf("%w: %s", ErrConflict, apiErr.Message)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrNotFound, apiErr.Message)
		default:
			return apiErr
		}
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
