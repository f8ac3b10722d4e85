package notice

import (
	"context"
	"time"

	"github.com/trezcool/educonnect/core"
	"github.com/trezcool/educonnect/core/user"
)

var ErrNotFound = core.NewNotFoundError("notice")

type (
	Repository interface {
		// CreateNotice assigns a fresh ID to n and stores it.
		CreateNotice(ctx context.Context, n Notice) (Notice, error)
		// QueryNotices returns the notices matching filter, newest first.
		QueryNotices(ctx context.Context, filter *QueryFilter) ([]Notice, error)
		DeleteNotice(ctx context.Context, id string) error
	}

	Service struct {
		repo      Repository
		validator *core.Validator
	}
)

func NewService(repo Repository, v *core.Validator) *Service {
	InitValidators(v)
	return &Service{repo: repo, validator: v}
}

// Publish adds a Notice signed by author to the board.
func (svc *Service) Publish(ctx context.Context, nn NewNotice, author user.User) (Notice, error) {
	if err := nn.Validate(svc.validator); err != nil {
		return Notice{}, err
	}
	if author.ID == "" {
		return Notice{}, user.ErrNotFound
	}
	return svc.repo.CreateNotice(ctx, Notice{
		Title:      nn.Title,
		Content:    nn.Content,
		Type:       nn.Type,
		AuthorID:   author.ID,
		AuthorName: author.Name,
		CreatedAt:  time.Now().UTC(),
	})
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter) ([]Notice, error) {
	if filter != nil {
		filter.Clean()
	}
	return svc.repo.QueryNotices(ctx, filter)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrNotFound
	}
	return svc.repo.DeleteNotice(ctx, id)
}
