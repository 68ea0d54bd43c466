package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/virachai/vision-iq/internal/domain"
	"github.com/virachai/vision-iq/internal/platform/logger"
)

const maxErrorBodyBytes = 1024

// CandidateStore is the vector-similarity store for library images. Search
// results come back as fully materialized candidate records, filtered
// server-side by minimum impact and the configured similarity floor.
type CandidateStore interface {
	SearchCandidates(ctx context.Context, vector []float32, minImpact, poolSize int) ([]domain.Candidate, error)
	UpsertCandidates(ctx context.Context, points []CandidatePoint) error
}

// CandidatePoint is one library image ready for indexing.
type CandidatePoint struct {
	ID         string
	Vector     []float32
	ExternalID string
	URL        string
	Caption    string
	Metadata   domain.CandidateMetadata
}

type candidateStore struct {
	log     *logger.Logger
	cfg     Config
	baseURL string
	http    *http.Client
}

type qdrantEnvelope struct {
	Result json.RawMessage `json:"result"`
	Status json.RawMessage `json:"status"`
	Time   float64         `json:"time"`
}

type searchResultItem struct {
	ID      json.RawMessage `json:"id"`
	Score   float64         `json:"score"`
	Payload map[string]any  `json:"payload"`
}

func NewCandidateStore(log *logger.Logger, cfg Config) (CandidateStore, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	s := &candidateStore{
		log:     log.With("service", "QdrantCandidateStore"),
		cfg:     cfg,
		baseURL: strings.TrimRight(cfg.URL, "/"),
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	if err := s.verifyReady(context.Background()); err != nil {
		return nil, err
	}

	log.Info("Qdrant candidate store ready",
		"url", s.baseURL,
		"collection", cfg.Collection,
		"vector_dim", cfg.VectorDim,
		"similarity_floor", cfg.SimilarityFloor,
	)
	return s, nil
}

func (s *candidateStore) SearchCandidates(ctx context.Context, vector []float32, minImpact, poolSize int) ([]domain.Candidate, error) {
	if s == nil {
		return nil, fmt.Errorf("candidate store unavailable")
	}
	const op = "search"
	if len(vector) == 0 {
		return nil, opErr(op, OperationErrorValidation, "query vector required", nil)
	}
	if s.cfg.VectorDim > 0 && len(vector) != s.cfg.VectorDim {
		return nil, opErr(
			op,
			OperationErrorValidation,
			fmt.Sprintf("query vector dimension mismatch: expected=%d got=%d", s.cfg.VectorDim, len(vector)),
			nil,
		)
	}
	if poolSize <= 0 {
		poolSize = 50
	}

	req := map[string]any{
		"vector":          vector,
		"limit":           poolSize,
		"with_payload":    true,
		"with_vector":     false,
		"score_threshold": s.cfg.SimilarityFloor,
	}
	if minImpact > 1 {
		req["filter"] = map[string]any{
			"must": []map[string]any{
				{
					"key":   "metadata.impact_score",
					"range": map[string]any{"gte": minImpact},
				},
			},
		}
	}

	var items []searchResultItem
	if err := s.doJSON(ctx, op, http.MethodPost, s.collectionPath("/points/search"), req, &items); err != nil {
		return nil, err
	}

	out := make([]domain.Candidate, 0, len(items))
	for _, item := range items {
		cand, ok := decodeCandidate(item)
		if !ok {
			s.log.Warn("Dropping search hit with undecodable payload", "point_id", string(item.ID))
			continue
		}
		out = append(out, cand)
	}
	return out, nil
}

func (s *candidateStore) UpsertCandidates(ctx context.Context, points []CandidatePoint) error {
	if s == nil {
		return fmt.Errorf("candidate store unavailable")
	}
	const op = "upsert"
	if len(points) == 0 {
		return nil
	}

	body := make([]map[string]any, 0, len(points))
	for _, p := range points {
		id := strings.TrimSpace(p.ID)
		if id == "" {
			return opErr(op, OperationErrorValidation, "point id is required", nil)
		}
		if s.cfg.VectorDim > 0 && len(p.Vector) != s.cfg.VectorDim {
			return opErr(
				op,
				OperationErrorValidation,
				fmt.Sprintf("point %q dimension mismatch: expected=%d got=%d", id, s.cfg.VectorDim, len(p.Vector)),
				nil,
			)
		}
		body = append(body, map[string]any{
			"id":     id,
			"vector": p.Vector,
			"payload": map[string]any{
				"external_id": p.ExternalID,
				"url":         p.URL,
				"caption":     p.Caption,
				"metadata":    p.Metadata,
			},
		})
	}

	return s.doJSON(ctx, op, http.MethodPut, s.collectionPath("/points?wait=true"), map[string]any{"points": body}, nil)
}

// decodeCandidate rebuilds a domain.Candidate from a search hit payload.
// Metadata travels as a nested JSON object; a hit without a URL is not a
// usable candidate.
func decodeCandidate(item searchResultItem) (domain.Candidate, bool) {
	var pointID string
	if err := json.Unmarshal(item.ID, &pointID); err != nil {
		var numeric int64
		if err := json.Unmarshal(item.ID, &numeric); err != nil {
			return domain.Candidate{}, false
		}
		pointID = fmt.Sprintf("%d", numeric)
	}

	url, _ := item.Payload["url"].(string)
	if strings.TrimSpace(url) == "" {
		return domain.Candidate{}, false
	}
	externalID, _ := item.Payload["external_id"].(string)

	var meta domain.CandidateMetadata
	if raw, ok := item.Payload["metadata"]; ok && raw != nil {
		blob, err := json.Marshal(raw)
		if err != nil {
			return domain.Candidate{}, false
		}
		if err := json.Unmarshal(blob, &meta); err != nil {
			return domain.Candidate{}, false
		}
	}

	return domain.Candidate{
		ID:         pointID,
		ExternalID: externalID,
		URL:        url,
		Similarity: item.Score,
		Metadata:   meta,
	}, true
}

func (s *candidateStore) verifyReady(ctx context.Context) error {
	const op = "bootstrap_verify"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/readyz", nil)
	if err != nil {
		return opErr(op, OperationErrorTransportFailed, "build ready request failed", err)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return classifyHTTPCallError(op, "qdrant ready check failed", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &OperationError{
			Code:       OperationErrorQueryFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("qdrant ready check returned status=%d", resp.StatusCode),
		}
	}

	var result struct {
		Config struct {
			Params struct {
				Vectors struct {
					Size int `json:"size"`
				} `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	}
	if err := s.doJSON(ctx, op, http.MethodGet, s.collectionPath(""), nil, &result); err != nil {
		return err
	}

	size := result.Config.Params.Vectors.Size
	if size != 0 && size != s.cfg.VectorDim {
		return &OperationError{
			Code:      OperationErrorValidation,
			Operation: op,
			Message: fmt.Sprintf(
				"qdrant collection %q vector size mismatch: expected=%d actual=%d",
				s.cfg.Collection,
				s.cfg.VectorDim,
				size,
			),
		}
	}
	return nil
}

func (s *candidateStore) collectionPath(suffix string) string {
	return "/collections/" + s.cfg.Collection + suffix
}

func (s *candidateStore) doJSON(ctx context.Context, op, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(in); err != nil {
			return opErr(op, OperationErrorEncodeFailed, "encode request failed", err)
		}
		body = &buf
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return opErr(op, OperationErrorTransportFailed, "build request failed", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return classifyHTTPCallError(op, "qdrant request failed", err)
	}
	defer resp.Body.Close()

	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 10*maxErrorBodyBytes*1024))
	if readErr != nil {
		return opErr(op, OperationErrorDecodeFailed, "read response failed", readErr)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &OperationError{
			Code:       OperationErrorQueryFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("qdrant http status=%d body=%q", resp.StatusCode, truncateBody(raw)),
		}
	}
	if out == nil {
		return nil
	}

	var envelope qdrantEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode response envelope failed", err)
	}
	if len(envelope.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode response result failed", err)
	}
	return nil
}

func classifyHTTPCallError(op, msg string, err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return opErr(op, OperationErrorTimeout, msg, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return opErr(op, OperationErrorTimeout, msg, err)
	}
	return opErr(op, OperationErrorTransportFailed, msg, err)
}

func truncateBody(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > maxErrorBodyBytes {
		return s[:maxErrorBodyBytes] + "...(truncated)"
	}
	return s
}
