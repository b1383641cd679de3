package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const supabaseListLimit = 1000

// SupabaseStorage talks to one Supabase Storage bucket over its REST API.
type SupabaseStorage struct {
	baseURL    string
	apiKey     string
	bucketName string
	httpClient *http.Client
}

func NewSupabaseStorage(projectID, apiKey, bucketName string) *SupabaseStorage {
	return NewSupabaseStorageWithURL(fmt.Sprintf("https://%s.supabase.co", projectID), apiKey, bucketName, &http.Client{})
}

// NewSupabaseStorageWithURL points the client at an arbitrary storage host.
func NewSupabaseStorageWithURL(baseURL, apiKey, bucketName string, httpClient *http.Client) *SupabaseStorage {
	return &SupabaseStorage{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		bucketName: bucketName,
		httpClient: httpClient,
	}
}

type supabaseListRequest struct {
	Prefix string         `json:"prefix"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
	SortBy map[string]any `json:"sortBy"`
}

func (s *SupabaseStorage) List(ctx context.Context, prefix string) ([]Object, error) {
	objects := make([]Object, 0)
	for offset := 0; ; offset += supabaseListLimit {
		payload, err := json.Marshal(supabaseListRequest{
			Prefix: prefix,
			Limit:  supabaseListLimit,
			Offset: offset,
			SortBy: map[string]any{"column": "name", "order": "asc"},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to encode list request: %w", err)
		}

		url := fmt.Sprintf("%s/storage/v1/object/list/%s", s.baseURL, s.bucketName)
		var page []Object
		if err := s.do(ctx, http.MethodPost, url, bytes.NewReader(payload), "application/json", &page); err != nil {
			return nil, fmt.Errorf("failed to list bucket %s: %w", s.bucketName, err)
		}

		for _, o := range page {
			// folders come back without an id
			if o.ID == "" {
				continue
			}
			if prefix != "" {
				o.Name = strings.TrimSuffix(prefix, "/") + "/" + o.Name
			}
			objects = append(objects, o)
		}

		if len(page) < supabaseListLimit {
			return objects, nil
		}
	}
}

func (s *SupabaseStorage) Upload(ctx context.Context, name string, body io.Reader, contentType string) (Object, error) {
	url := fmt.Sprintf("%s/storage/v1/object/%s/%s", s.baseURL, s.bucketName, name)

	var out struct {
		ID  string `json:"Id"`
		Key string `json:"Key"`
	}
	if err := s.do(ctx, http.MethodPost, url, body, contentType, &out); err != nil {
		return Object{}, fmt.Errorf("failed to upload %s: %w", name, err)
	}

	id := out.ID
	if id == "" {
		id = name
	}

	return Object{ID: id, Name: name}, nil
}

func (s *SupabaseStorage) Remove(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		return nil
	}

	payload, err := json.Marshal(map[string][]string{"prefixes": names})
	if err != nil {
		return fmt.Errorf("failed to encode remove request: %w", err)
	}

	url := fmt.Sprintf("%s/storage/v1/object/%s", s.baseURL, s.bucketName)
	if err := s.do(ctx, http.MethodDelete, url, bytes.NewReader(payload), "application/json", nil); err != nil {
		return fmt.Errorf("failed to remove objects from %s: %w", s.bucketName, err)
	}

	return nil
}

func (s *SupabaseStorage) PublicURL(name string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, s.bucketName, name)
}

func (s *SupabaseStorage) do(ctx context.Context, method, url string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", s.apiKey))
	req.Header.Set("apikey", s.apiKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(msg))
	}

	if out == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
