package blog

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"koubyte-be/internal/logger"
	"koubyte-be/internal/utils"

	"go.uber.org/zap"
)

const slugAttempts = 20

type Service interface {
	ListPublished(ctx context.Context) ([]Post, error)
	ListAll(ctx context.Context) ([]Post, error)
	Get(ctx context.Context, idOrSlug string, includeDrafts bool) (*Post, error)
	Create(ctx context.Context, authorID uint, input CreateInput) (*Post, error)
	Update(ctx context.Context, id uint, input UpdateInput) (*Post, error)
	Delete(ctx context.Context, id uint) error
}

type service struct {
	repo     Repository
	renderer *Renderer
	now      func() time.Time
}

func NewService(repo Repository, renderer *Renderer) Service {
	if renderer == nil {
		renderer = NewRenderer()
	}
	return &service{repo: repo, renderer: renderer, now: time.Now}
}

func (s *service) ListPublished(ctx context.Context) ([]Post, error) {
	return s.repo.List(ctx, true)
}

func (s *service) ListAll(ctx context.Context) ([]Post, error) {
	return s.repo.List(ctx, false)
}

// Get accepts a numeric id or a slug. Drafts are hidden unless asked for.
func (s *service) Get(ctx context.Context, idOrSlug string, includeDrafts bool) (*Post, error) {
	var (
		p   *Post
		err error
	)
	if id, convErr := strconv.ParseUint(idOrSlug, 10, 64); convErr == nil {
		p, err = s.repo.GetByID(ctx, uint(id))
	} else {
		p, err = s.repo.GetBySlug(ctx, strings.ToLower(idOrSlug))
	}
	if err != nil {
		return nil, err
	}
	if !p.Published && !includeDrafts {
		return nil, ErrPostNotFound
	}
	return p, nil
}

func (s *service) uniqueSlug(ctx context.Context, title string, excludeID uint) (string, error) {
	base := utils.Slugify(title)
	if base == "" {
		base = "post"
	}
	candidate := base
	for i := 2; i < slugAttempts+2; i++ {
		taken, err := s.repo.SlugTaken(ctx, candidate, excludeID)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = base + "-" + strconv.Itoa(i)
	}
	return "", ErrSlugExhausted
}

func (s *service) render(p *Post, excerpt string) error {
	html, err := s.renderer.HTML(p.Content)
	if err != nil {
		return err
	}
	p.ContentHTML = html
	p.Excerpt = utils.SanitizeText(excerpt)
	if p.Excerpt == "" {
		p.Excerpt = Excerpt(html)
	}
	return nil
}

func (s *service) Create(ctx context.Context, authorID uint, input CreateInput) (*Post, error) {
	log := logger.Scoped(ctx, "service", "Create", zap.Uint("author_id", authorID))

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	slug, err := s.uniqueSlug(ctx, title, 0)
	if err != nil {
		return nil, err
	}

	p := &Post{
		Title:      title,
		Slug:       slug,
		Content:    input.Content,
		CoverImage: input.CoverImage,
		Published:  input.Published,
		AuthorID:   &authorID,
	}
	if err := s.render(p, input.Excerpt); err != nil {
		return nil, err
	}
	if p.Published {
		now := s.now()
		p.PublishedAt = &now
	}

	if err := s.repo.Create(ctx, p); err != nil {
		if errors.Is(err, ErrSlugConflict) {
			log.Warn("slug taken concurrently", zap.String("slug", slug))
		}
		return nil, err
	}
	log.Info("post created", zap.Uint("post_id", p.ID), zap.String("slug", p.Slug))
	return p, nil
}

// Update re-renders the content and keeps the first publish date.
func (s *service) Update(ctx context.Context, id uint, input UpdateInput) (*Post, error) {
	if input.Title == nil && input.Excerpt == nil && input.Content == nil &&
		input.CoverImage == nil && input.Published == nil {
		return nil, ErrEmptyUpdate
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, ErrTitleRequired
		}
		if title != p.Title {
			if p.Slug, err = s.uniqueSlug(ctx, title, p.ID); err != nil {
				return nil, err
			}
		}
		p.Title = title
	}
	if input.Content != nil {
		p.Content = *input.Content
	}
	if input.CoverImage != nil {
		p.CoverImage = input.CoverImage
		if *input.CoverImage == "" {
			p.CoverImage = nil
		}
	}
	if input.Published != nil {
		p.Published = *input.Published
		if p.Published && p.PublishedAt == nil {
			now := s.now()
			p.PublishedAt = &now
		}
	}

	excerpt := p.Excerpt
	if input.Excerpt != nil {
		excerpt = *input.Excerpt
	} else if input.Content != nil {
		excerpt = ""
	}
	if err := s.render(p, excerpt); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) Delete(ctx context.Context, id uint) error {
	return s.repo.Delete(ctx, id)
}
