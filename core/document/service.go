package document

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/educonnect/core"
	"github.com/trezcool/educonnect/core/user"
)

var (
	// errors
	ErrNotFound          = core.NewNotFoundError("document request")
	ErrInvalidTransition = core.NewConflictError("invalid status transition")
	ErrStaleStatus       = core.NewConflictError("document request status changed concurrently")
)

type (
	Repository interface {
		// CreateRequest assigns a fresh ID to r and stores it.
		CreateRequest(ctx context.Context, r Request) (Request, error)
		GetRequest(ctx context.Context, id string) (Request, error)
		// QueryRequests returns the requests matching filter, newest first.
		QueryRequests(ctx context.Context, filter *QueryFilter) ([]Request, error)
		// UpdateRequestStatus stores r only if the stored status is still `from`, otherwise it fails with ErrStaleStatus.
		UpdateRequestStatus(ctx context.Context, r Request, from Status) (Request, error)
		CountRequestsByStatus(ctx context.Context) (map[Status]int, error)
	}

	// Publisher broadcasts request status changes.
	Publisher interface {
		Publish(ctx context.Context, evt Event) error
	}

	// UserGetter resolves the requester to notify.
	UserGetter interface {
		GetByID(ctx context.Context, id string) (user.User, error)
	}

	Service struct {
		repo      Repository
		users     UserGetter
		validator *core.Validator
		mailSvc   core.EmailService
		publisher Publisher
		logger    core.Logger
	}
)

func NewService(
	repo Repository,
	users UserGetter,
	v *core.Validator,
	mailSvc core.EmailService,
	publisher Publisher,
	logger core.Logger,
) *Service {
	InitValidators(v)
	return &Service{
		repo:      repo,
		users:     users,
		validator: v,
		mailSvc:   mailSvc,
		publisher: publisher,
		logger:    logger,
	}
}

// Create files a new pending Request on behalf of requester.
func (svc *Service) Create(ctx context.Context, nr NewRequest, requester user.User) (Request, error) {
	if err := nr.Validate(svc.validator); err != nil {
		return Request{}, err
	}
	if requester.ID == "" {
		return Request{}, user.ErrNotFound
	}

	now := time.Now().UTC()
	r, err := svc.repo.CreateRequest(ctx, Request{
		RequesterID:   requester.ID,
		RequesterName: requester.Name,
		Type:          nr.Type,
		Urgency:       nr.Urgency,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		return Request{}, err
	}

	svc.publish(ctx, Event{
		RequestID:   r.ID,
		RequesterID: r.RequesterID,
		Type:        r.Type,
		To:          r.Status,
		ActorID:     requester.ID,
		OccurredAt:  now,
	}, requester)
	return r, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Request, error) {
	if id == "" {
		return Request{}, ErrNotFound
	}
	return svc.repo.GetRequest(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter) ([]Request, error) {
	if filter != nil {
		filter.Clean()
	}
	return svc.repo.QueryRequests(ctx, filter)
}

// CountByStatus returns the number of requests per status. Every status is present in the result.
func (svc *Service) CountByStatus(ctx context.Context) (map[Status]int, error) {
	counts, err := svc.repo.CountRequestsByStatus(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "counting document requests")
	}
	res := make(map[Status]int, len(AllStatuses))
	for _, st := range AllStatuses {
		res[st] = counts[st]
	}
	return res, nil
}

// Transition moves the Request identified by id to tr.Status on behalf of actor.
// Reaching StatusReady records the actor in ProcessedBy and notifies the requester.
func (svc *Service) Transition(ctx context.Context, id string, tr Transition, actor user.User) (Request, error) {
	if err := tr.Validate(svc.validator); err != nil {
		return Request{}, err
	}
	r, err := svc.GetByID(ctx, id)
	if err != nil {
		return Request{}, err
	}

	from := r.Status
	if !CanTransition(from, tr.Status) {
		return Request{}, errors.Wrapf(ErrInvalidTransition, "cannot move a %s request to %s", from, tr.Status)
	}

	now := time.Now().UTC()
	r.Status = tr.Status
	r.UpdatedAt = now
	if r.Status == StatusReady {
		r.ProcessedBy = actor.ID
	}
	if r, err = svc.repo.UpdateRequestStatus(ctx, r, from); err != nil {
		return Request{}, err
	}

	svc.publish(ctx, Event{
		RequestID:   r.ID,
		RequesterID: r.RequesterID,
		Type:        r.Type,
		From:        from,
		To:          r.Status,
		ActorID:     actor.ID,
		OccurredAt:  now,
	}, actor)
	if r.Status == StatusReady {
		svc.notifyReady(ctx, r, actor)
	}
	return r, nil
}

func (svc *Service) publish(ctx context.Context, evt Event, usr user.User) {
	if err := svc.publisher.Publish(ctx, evt); err != nil {
		svc.logger.Error(fmt.Sprintf("publishing document request event: %v", err), err, usr)
	}
}

func (svc *Service) notifyReady(ctx context.Context, r Request, actor user.User) {
	requester, err := svc.users.GetByID(ctx, r.RequesterID)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("getting requester %s: %v", r.RequesterID, err), err, actor)
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: requester.Name, Address: requester.Email}},
		Subject:      "Your document is ready",
		TemplateName: "document_ready",
		TemplateData: map[string]interface{}{
			"Name": requester.Name,
			"Type": r.Type,
		},
	})
}
