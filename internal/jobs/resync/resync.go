package resync

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/virachai/vision-iq/internal/data/repos"
	"github.com/virachai/vision-iq/internal/domain"
	"github.com/virachai/vision-iq/internal/jobs/runtime"
	"github.com/virachai/vision-iq/internal/platform/dbctx"
	"github.com/virachai/vision-iq/internal/platform/logger"
	"github.com/virachai/vision-iq/internal/platform/qdrant"
)

// JobType identifies library resync runs in the job_run table.
const JobType = "library_resync"

const (
	batchLimit    = 200
	embedWorkers  = 4
	stageSearch   = "search_unembedded"
	stageEmbed    = "embed_captions"
	stageUpsert   = "upsert_vectors"
	stageFinalize = "finalize"
)

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Handler re-indexes library images whose captions match the keywords that
// produced an empty alignment selection. It embeds missing captions and
// pushes them into the vector collection so the next search can see them.
type Handler struct {
	log    *logger.Logger
	images repos.ImageAssetRepo
	embed  Embedder
	store  qdrant.CandidateStore
}

func NewHandler(baseLog *logger.Logger, images repos.ImageAssetRepo, embed Embedder, store qdrant.CandidateStore) *Handler {
	return &Handler{
		log:    baseLog.With("handler", JobType),
		images: images,
		embed:  embed,
		store:  store,
	}
}

func (h *Handler) Type() string { return JobType }

func (h *Handler) Run(jc *runtime.Context) error {
	keywords := payloadKeywords(jc)
	if len(keywords) == 0 {
		jc.Fail(stageSearch, fmt.Errorf("payload has no keywords"))
		return nil
	}

	jc.Progress(stageSearch)
	dbc := dbctx.Context{Ctx: jc.Ctx}
	assets, err := h.images.SearchUnembeddedByKeywords(dbc, strings.Join(keywords, " "), batchLimit)
	if err != nil {
		jc.Fail(stageSearch, err)
		return nil
	}
	if len(assets) == 0 {
		jc.Complete(stageFinalize, map[string]any{"embedded": 0, "keywords": keywords})
		return nil
	}

	jc.Progress(stageEmbed)
	points, err := h.embedAssets(jc.Ctx, assets)
	if err != nil {
		jc.Fail(stageEmbed, err)
		return nil
	}

	jc.Progress(stageUpsert)
	if err := h.store.UpsertCandidates(jc.Ctx, points); err != nil {
		jc.Fail(stageUpsert, err)
		return nil
	}

	now := time.Now()
	ids := make([]uuid.UUID, 0, len(assets))
	for _, a := range assets {
		ids = append(ids, a.ID)
	}
	if err := h.images.MarkEmbedded(dbc, ids, now); err != nil {
		jc.Fail(stageFinalize, err)
		return nil
	}

	h.log.Info("Library resync finished", "job_id", jc.Job.ID, "embedded", len(points))
	jc.Complete(stageFinalize, map[string]any{"embedded": len(points), "keywords": keywords})
	return nil
}

func (h *Handler) embedAssets(ctx context.Context, assets []*domain.ImageAsset) ([]qdrant.CandidatePoint, error) {
	var mu sync.Mutex
	points := make([]qdrant.CandidatePoint, 0, len(assets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedWorkers)
	for _, asset := range assets {
		asset := asset
		if strings.TrimSpace(asset.Caption) == "" {
			continue
		}
		g.Go(func() error {
			vector, err := h.embed.Embed(gctx, asset.Caption)
			if err != nil {
				return fmt.Errorf("embed asset %s: %w", asset.ID, err)
			}
			point := qdrant.CandidatePoint{
				ID:         asset.ID.String(),
				Vector:     vector,
				ExternalID: asset.ExternalID,
				URL:        asset.URL,
				Caption:    asset.Caption,
			}
			if len(asset.Metadata) > 0 {
				// Bad stored metadata leaves the point payload minimal rather
				// than sinking the whole batch.
				_ = json.Unmarshal(asset.Metadata, &point.Metadata)
			}
			mu.Lock()
			points = append(points, point)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return points, nil
}

func payloadKeywords(jc *runtime.Context) []string {
	raw, ok := jc.Payload()["keywords"]
	if !ok || raw == nil {
		return nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		s := strings.TrimSpace(fmt.Sprint(it))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
