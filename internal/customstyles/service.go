package customstyles

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/threadhouse-backend/internal/media"
	"github.com/angelmondragon/threadhouse-backend/internal/notifications"
	"github.com/angelmondragon/threadhouse-backend/pkg/db/models"
	"github.com/angelmondragon/threadhouse-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/threadhouse-backend/pkg/errors"
	"github.com/angelmondragon/threadhouse-backend/pkg/logger"
	"github.com/angelmondragon/threadhouse-backend/pkg/pagination"
)

// Service manages custom print requests.
type Service interface {
	Submit(ctx context.Context, userID uuid.UUID, input SubmitInput, image media.File) (*RequestDTO, error)
	List(ctx context.Context, input ListInput) (*ListResult, error)
	ListForUser(ctx context.Context, viewer Viewer, userID uuid.UUID) ([]RequestDTO, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.CustomStyleStatus) (*RequestDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Viewer is the caller a read is evaluated for.
type Viewer struct {
	UserID uuid.UUID
	Admin  bool
}

// ServiceParams bundles the custom style collaborators.
type ServiceParams struct {
	Repo   Repository
	Media  media.Service
	Emails notifications.Dispatcher
	Logger *logger.Logger
	Clock  func() time.Time
}

type service struct {
	repo   Repository
	media  media.Service
	emails notifications.Dispatcher
	logg   *logger.Logger
	now    func() time.Time
}

// NewService constructs the custom style service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("custom style repository required")
	}
	if params.Media == nil {
		return nil, fmt.Errorf("media service required")
	}
	if params.Emails == nil {
		return nil, fmt.Errorf("email dispatcher required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		repo:   params.Repo,
		media:  params.Media,
		emails: params.Emails,
		logg:   logg,
		now:    clock,
	}, nil
}

// Submit stores the design image, then the request row. The image is removed
// again when the row cannot be written.
func (s *service) Submit(ctx context.Context, userID uuid.UUID, input SubmitInput, image media.File) (*RequestDTO, error) {
	input, err := normalizeSubmit(input)
	if err != nil {
		return nil, err
	}

	uploads, err := s.media.UploadImages(ctx, enums.MediaKindCustomStyle, []media.File{image})
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	req := &models.CustomStyleRequest{
		ID:            uuid.New(),
		UserID:        userID,
		FirstName:     input.FirstName,
		Email:         input.Email,
		ProductName:   input.ProductName,
		ProductImages: input.ProductImages,
		ProductPrice:  input.ProductPrice,
		SelectedSize:  input.SelectedSize,
		SelectedColor: input.SelectedColor,
		Status:        enums.CustomStyleStatusPending,
		SubmittedAt:   now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for _, u := range uploads {
		req.ImageURLs = append(req.ImageURLs, u.URL)
		req.ImageKeys = append(req.ImageKeys, u.Key)
	}

	created, err := s.repo.Create(ctx, req)
	if err != nil {
		s.removeImages(ctx, req.ImageKeys)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert custom style request")
	}

	ctx = s.logg.WithFields(ctx, map[string]any{"request_id": created.ID.String(), "user_id": userID.String()})
	s.logg.Info(ctx, "custom_style.submitted")
	if err := s.emails.Dispatch(ctx, notifications.CustomStyleReceivedJob(created.Email, created.FirstName, created.ProductName, created.ID)); err != nil {
		s.logg.Error(ctx, "custom_style.email_failed", err)
	}
	return FromModel(created), nil
}

func (s *service) List(ctx context.Context, input ListInput) (*ListResult, error) {
	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid status %q", *input.Status))
	}
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, Filter{UserID: input.UserID, Status: input.Status}, pagination.LimitWithBuffer(input.Limit), cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list custom style requests")
	}
	rows, next := pagination.Trim(rows, input.Limit, func(r models.CustomStyleRequest) pagination.Cursor {
		return pagination.Cursor{CreatedAt: r.CreatedAt, ID: r.ID}
	})
	result := &ListResult{Requests: make([]RequestDTO, 0, len(rows)), NextCursor: next}
	for i := range rows {
		result.Requests = append(result.Requests, *FromModel(&rows[i]))
	}
	return result, nil
}

func (s *service) ListForUser(ctx context.Context, viewer Viewer, userID uuid.UUID) ([]RequestDTO, error) {
	if !viewer.Admin && viewer.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot view requests of another user")
	}
	rows, err := s.repo.List(ctx, Filter{UserID: &userID}, 0, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list custom style requests")
	}
	out := make([]RequestDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.CustomStyleStatus) (*RequestDTO, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid status %q", status))
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, notFoundOr(err, "db: update custom style status")
	}
	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "db: load custom style request")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"request_id": id.String(), "status": status.String()}), "custom_style.status_updated")
	return FromModel(req), nil
}

// Delete removes the request row. Stored images are cleaned up on a best
// effort basis.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return notFoundOr(err, "db: load custom style request")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFoundOr(err, "db: delete custom style request")
	}
	s.removeImages(ctx, req.ImageKeys)
	return nil
}

func (s *service) removeImages(ctx context.Context, keys []string) {
	var errs error
	for _, key := range keys {
		errs = multierr.Append(errs, s.media.Delete(ctx, key))
	}
	if errs != nil {
		s.logg.Error(ctx, "custom_style.image_cleanup_failed", errs)
	}
}

func notFoundOr(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "custom style request not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}

func normalizeSubmit(in SubmitInput) (SubmitInput, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	if in.FirstName == "" {
		in.FirstName = defaultFirstName
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.ProductName = strings.TrimSpace(in.ProductName)
	in.SelectedSize = strings.TrimSpace(in.SelectedSize)
	in.SelectedColor = strings.TrimSpace(in.SelectedColor)

	images := make([]string, 0, len(in.ProductImages))
	for _, img := range in.ProductImages {
		if img = strings.TrimSpace(img); img != "" {
			images = append(images, img)
		}
	}
	in.ProductImages = images

	if _, err := mail.ParseAddress(in.Email); err != nil || in.Email == "" {
		return in, pkgerrors.New(pkgerrors.CodeValidation, "valid email is required")
	}
	switch {
	case in.ProductName == "":
		return in, pkgerrors.New(pkgerrors.CodeValidation, "productName is required")
	case in.SelectedSize == "":
		return in, pkgerrors.New(pkgerrors.CodeValidation, "selectedSize is required")
	case in.SelectedColor == "":
		return in, pkgerrors.New(pkgerrors.CodeValidation, "selectedColor is required")
	case in.ProductPrice.IsNegative():
		return in, pkgerrors.New(pkgerrors.CodeValidation, "productPrice cannot be negative")
	}
	return in, nil
}
