package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"TrendSnapshot/internal/domain"
	"TrendSnapshot/internal/ports"
)

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// NewsItemReader reads raw source rows from the news_items table populated
// by the ingestion pipeline. Every volatile column is scanned as nullable
// text; the normalizer owns coercion.
type NewsItemReader struct {
	db *sql.DB
}

var _ ports.SourceReader = (*NewsItemReader)(nil)

// NewNewsItemReader wires a sql.DB implementation.
func NewNewsItemReader(db *sql.DB) *NewsItemReader {
	return &NewsItemReader{db: db}
}

// Window returns all items ingested within [start, end). The ordering is
// part of the contract: score descending, ingestion time descending, id
// ascending, so two reads of the same window yield the same sequence.
func (r *NewsItemReader) Window(ctx context.Context, start, end time.Time) ([]domain.SourceItem, error) {
	if r.db == nil {
		return nil, fmt.Errorf("news item reader has no database")
	}

	query, args, err := qb.
		Select("id", "title", "summary", "platform", "popularity_score",
			"precise_score", "published_at", "created_at", "view_count",
			"like_count", "comment_count", "keywords", "image_url", "ingested_at").
		From("news_items").
		Where(sq.GtOrEq{"ingested_at": start}).
		Where(sq.Lt{"ingested_at": end}).
		OrderBy("popularity_score DESC NULLS LAST", "ingested_at DESC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build window query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query source window: %w", err)
	}
	defer rows.Close()

	var items []domain.SourceItem
	for rows.Next() {
		item, err := scanSourceItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate source rows: %w", err)
	}

	return items, nil
}

func scanSourceItem(rows *sql.Rows) (domain.SourceItem, error) {
	var item domain.SourceItem
	var score sql.NullFloat64
	var title, summary, platform, precise sql.NullString
	var publishedAt, createdAt sql.NullString
	var views, likes, comments, keywords, image sql.NullString

	err := rows.Scan(&item.ID, &title, &summary, &platform, &score,
		&precise, &publishedAt, &createdAt, &views,
		&likes, &comments, &keywords, &image, &item.IngestedAt)
	if err != nil {
		return domain.SourceItem{}, fmt.Errorf("scan source row: %w", err)
	}

	item.Title = title.String
	item.Summary = summary.String
	item.Platform = platform.String
	item.RawPreciseScore = precise.String
	item.RawPublishedAt = publishedAt.String
	item.RawCreatedAt = createdAt.String
	item.RawViews = views.String
	item.RawLikes = likes.String
	item.RawComments = comments.String
	item.RawKeywords = keywords.String
	item.ImageURL = image.String
	if score.Valid {
		value := score.Float64
		item.Score = &value
	}

	return item, nil
}
