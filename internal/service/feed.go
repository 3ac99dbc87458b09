package service

import (
	"context"

	"agora/internal/models"
	"agora/internal/observability"
	"agora/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

const (
	DefaultFeedLimit = 20
	MaxFeedLimit     = 100
)

// FeedRanker orders every post for a viewer: authors the viewer follows
// first, then by distinct likes, then newest.
type FeedRanker struct {
	feed repository.FeedRepository
}

func NewFeedRanker(feed repository.FeedRepository) *FeedRanker {
	return &FeedRanker{feed: feed}
}

// ComputeFeed returns up to limit ranked summaries. It is not cached.
func (f *FeedRanker) ComputeFeed(ctx context.Context, viewerID uint, limit int) (feed []models.PostSummary, err error) {
	switch {
	case limit <= 0:
		limit = DefaultFeedLimit
	case limit > MaxFeedLimit:
		limit = MaxFeedLimit
	}

	ctx, span := observability.StartSpan(ctx, "FeedRanker.ComputeFeed",
		attribute.Int64("viewer.id", int64(viewerID)),
		attribute.Int("feed.limit", limit),
	)
	defer func() { observability.EndSpan(span, err) }()

	return f.feed.Ranked(ctx, viewerID, limit)
}
