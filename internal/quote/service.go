package quote

import (
	"context"
	"strings"

	"koubyte-be/internal/catalog"
	"koubyte-be/internal/logger"
	"koubyte-be/internal/mailer"
	"koubyte-be/internal/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type CatalogLookup interface {
	GetMany(ctx context.Context, ids []uint) ([]catalog.Item, error)
}

type Notifier interface {
	Notify(ctx context.Context, userID uint, kind, title, body string)
}

type Mailer interface {
	Enqueue(msg mailer.Message) bool
}

type Service interface {
	Request(ctx context.Context, requester *utils.Requester, input RequestInput) (*Quote, error)
	List(ctx context.Context, requester utils.Requester) ([]Quote, error)
	Update(ctx context.Context, id uint, input UpdateInput) (*Quote, error)
}

type service struct {
	repo       Repository
	catalog    CatalogLookup
	notifier   Notifier
	mail       Mailer
	adminEmail string
}

func NewService(repo Repository, catalog CatalogLookup, notifier Notifier, mail Mailer, adminEmail string) Service {
	return &service{repo: repo, catalog: catalog, notifier: notifier, mail: mail, adminEmail: adminEmail}
}

// Request stores a quote request. The estimate is the sum of the current
// catalog prices of the selected services.
func (s *service) Request(ctx context.Context, requester *utils.Requester, input RequestInput) (*Quote, error) {
	log := logger.Scoped(ctx, "service", "Request")

	name := strings.TrimSpace(input.Name)
	email, ok := utils.NormalizeEmail(input.Email)
	if name == "" || !ok {
		return nil, ErrContactRequired
	}
	description := strings.TrimSpace(input.ServiceDescription)
	if len(input.ServiceIDs) == 0 && description == "" {
		return nil, ErrNothingRequested
	}

	q := &Quote{
		Name:               name,
		Email:              email,
		Phone:              strings.TrimSpace(input.Phone),
		Company:            strings.TrimSpace(input.Company),
		ServiceIDs:         []int64{},
		ServiceDescription: description,
		Message:            strings.TrimSpace(input.Message),
		Status:             StatusPending,
	}
	if requester != nil {
		id := requester.UserID
		q.UserID = &id
	}

	if len(input.ServiceIDs) > 0 {
		ids := dedupe(input.ServiceIDs)
		items, err := s.catalog.GetMany(ctx, ids)
		if err != nil {
			return nil, err
		}
		active := 0
		estimate := decimal.Zero
		for _, it := range items {
			if !it.Active {
				continue
			}
			active++
			estimate = estimate.Add(it.Price)
			q.ServiceIDs = append(q.ServiceIDs, int64(it.ID))
		}
		if active != len(ids) {
			log.Warn("quote for unknown services", zap.Int("requested", len(ids)), zap.Int("found", active))
			return nil, ErrUnknownService
		}
		q.EstimatedPrice = &estimate
	}

	if err := s.repo.Create(ctx, q); err != nil {
		return nil, err
	}

	if s.mail != nil && s.adminEmail != "" {
		estimate := "to be determined"
		if q.EstimatedPrice != nil {
			estimate = q.EstimatedPrice.StringFixed(2)
		}
		s.mail.Enqueue(mailer.QuoteRequested(s.adminEmail, q.Name, q.Email, estimate))
	}

	log.Info("quote requested", zap.Uint("quote_id", q.ID))
	return q, nil
}

func dedupe(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func (s *service) List(ctx context.Context, requester utils.Requester) ([]Quote, error) {
	if requester.IsAdmin() {
		return s.repo.List(ctx, nil)
	}
	id := requester.UserID
	return s.repo.List(ctx, &id)
}

func (s *service) Update(ctx context.Context, id uint, input UpdateInput) (*Quote, error) {
	if input.Status == nil && input.AdminNotes == nil && input.EstimatedPrice == nil {
		return nil, ErrEmptyUpdate
	}
	if input.Status != nil && !input.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	if input.EstimatedPrice != nil && input.EstimatedPrice.IsNegative() {
		return nil, ErrInvalidPrice
	}

	q, err := s.repo.Update(ctx, id, input)
	if err != nil {
		return nil, err
	}

	if input.Status != nil && q.UserID != nil && s.notifier != nil {
		s.notifier.Notify(ctx, *q.UserID, "quote", "Quote update", "Your quote request is now "+string(q.Status)+".")
	}
	logger.Scoped(ctx, "service", "Update").Info("quote updated",
		zap.Uint("quote_id", id),
		zap.String("status", string(q.Status)),
	)
	return q, nil
}
