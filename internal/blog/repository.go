package blog

import (
	"context"
	"database/sql"
	"errors"

	"koubyte-be/internal/db"
	"koubyte-be/internal/logger"

	"go.uber.org/zap"
)

type Repository interface {
	Create(ctx context.Context, p *Post) error
	List(ctx context.Context, publishedOnly bool) ([]Post, error)
	GetByID(ctx context.Context, id uint) (*Post, error)
	GetBySlug(ctx context.Context, slug string) (*Post, error)
	SlugTaken(ctx context.Context, slug string, excludeID uint) (bool, error)
	Update(ctx context.Context, p *Post) error
	Delete(ctx context.Context, id uint) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const postSelect = `
	SELECT p.id, p.title, p.slug, p.excerpt, p.content, p.content_html, p.cover_image, p.published,
		p.published_at, p.author_id, COALESCE(u.name, ''), p.created_at, p.updated_at
	FROM blog_posts p
	LEFT JOIN users u ON u.id = p.author_id`

func scanPost(row interface{ Scan(...any) error }) (*Post, error) {
	var p Post
	err := row.Scan(&p.ID, &p.Title, &p.Slug, &p.Excerpt, &p.Content, &p.ContentHTML, &p.CoverImage,
		&p.Published, &p.PublishedAt, &p.AuthorID, &p.AuthorName, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) Create(ctx context.Context, p *Post) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO blog_posts (title, slug, excerpt, content, content_html, cover_image, published, published_at, author_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`,
		p.Title, p.Slug, p.Excerpt, p.Content, p.ContentHTML, p.CoverImage, p.Published, p.PublishedAt, p.AuthorID,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if db.IsUniqueViolation(err, "blog_posts_slug_key") {
		return ErrSlugConflict
	}
	if err != nil {
		logger.Scoped(ctx, "repository", "Create").Error("failed to insert post", zap.Error(err))
	}
	return err
}

// List returns newest first; published posts by publish date.
func (r *repository) List(ctx context.Context, publishedOnly bool) ([]Post, error) {
	query := postSelect
	if publishedOnly {
		query += " WHERE p.published"
	}
	query += " ORDER BY COALESCE(p.published_at, p.created_at) DESC, p.id DESC"

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *p)
	}
	return posts, rows.Err()
}

func (r *repository) GetByID(ctx context.Context, id uint) (*Post, error) {
	p, err := scanPost(r.db.QueryRowContext(ctx, postSelect+" WHERE p.id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPostNotFound
	}
	return p, err
}

func (r *repository) GetBySlug(ctx context.Context, slug string) (*Post, error) {
	p, err := scanPost(r.db.QueryRowContext(ctx, postSelect+" WHERE p.slug = $1", slug))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPostNotFound
	}
	return p, err
}

func (r *repository) SlugTaken(ctx context.Context, slug string, excludeID uint) (bool, error) {
	var taken bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM blog_posts WHERE slug = $1 AND id <> $2)`, slug, excludeID,
	).Scan(&taken)
	return taken, err
}

func (r *repository) Update(ctx context.Context, p *Post) error {
	err := r.db.QueryRowContext(ctx, `
		UPDATE blog_posts SET
			title = $2, slug = $3, excerpt = $4, content = $5, content_html = $6,
			cover_image = $7, published = $8, published_at = $9, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		p.ID, p.Title, p.Slug, p.Excerpt, p.Content, p.ContentHTML, p.CoverImage, p.Published, p.PublishedAt,
	).Scan(&p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrPostNotFound
	}
	if db.IsUniqueViolation(err, "blog_posts_slug_key") {
		return ErrSlugConflict
	}
	return err
}

func (r *repository) Delete(ctx context.Context, id uint) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM blog_posts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrPostNotFound
	}
	return nil
}
