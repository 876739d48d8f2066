package admin

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oldphonedeals/backend/internal/listings"
	"github.com/oldphonedeals/backend/internal/orders"
	"github.com/oldphonedeals/backend/internal/reviews"
	"github.com/oldphonedeals/backend/internal/users"
	"github.com/oldphonedeals/backend/pkg/db"
	"github.com/oldphonedeals/backend/pkg/db/models"
	"github.com/oldphonedeals/backend/pkg/enums"
	pkgerrors "github.com/oldphonedeals/backend/pkg/errors"
	"github.com/oldphonedeals/backend/pkg/logger"
	"github.com/oldphonedeals/backend/pkg/outbox"
)

const (
	// ExportFormatJSON and ExportFormatCSV are the accepted sales export formats.
	ExportFormatJSON = "json"
	ExportFormatCSV  = "csv"

	defaultSalesPageSize = 25
	maxSalesPageSize     = 100
	exportSalesBatch     = 1000
)

type imageStore interface {
	Remove(name string) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// UserDetailDTO is the admin view of one user: the account plus everything
// they sell and everything they wrote.
type UserDetailDTO struct {
	User     users.UserDTO               `json:"user"`
	Listings []listings.ListingDTO       `json:"listings"`
	Reviews  []reviews.AuthoredReviewDTO `json:"reviews"`
}

// UpdateUserInput carries an admin edit of a user account.
type UpdateUserInput struct {
	FirstName *string
	LastName  *string
	Email     *string
}

// SalesPage is one page of the sales log.
type SalesPage struct {
	Orders []orders.OrderDTO `json:"orders"`
	Page   int               `json:"page"`
	Limit  int               `json:"limit"`
	Total  int64             `json:"total"`
}

// Service exposes the privileged back-office operations.
type Service interface {
	SearchUsers(ctx context.Context, query string) ([]users.UserDTO, error)
	UserDetail(ctx context.Context, userID uuid.UUID) (UserDetailDTO, error)
	UpdateUser(ctx context.Context, adminID, userID uuid.UUID, input UpdateUserInput) (users.UserDTO, error)
	SetUserDisabled(ctx context.Context, adminID, userID uuid.UUID, disabled bool) error
	DeleteUser(ctx context.Context, adminID, userID uuid.UUID) error

	SearchListings(ctx context.Context, query string) ([]listings.ListingDTO, error)
	UpdateListing(ctx context.Context, adminID, listingID uuid.UUID, input listings.UpdateListingInput) (listings.ListingDTO, error)
	SetListingDisabled(ctx context.Context, adminID, listingID uuid.UUID, disabled bool) error
	DeleteListing(ctx context.Context, adminID, listingID uuid.UUID) error

	SearchReviews(ctx context.Context, query string) ([]reviews.ReviewDTO, error)
	ToggleReview(ctx context.Context, adminID, listingID, reviewerID uuid.UUID, hidden bool) (reviews.ToggleResult, error)

	SalesLog(ctx context.Context, page, limit int) (SalesPage, error)
	ExportSales(ctx context.Context, format string) ([]byte, string, error)
}

// ServiceParams bundles the dependencies for the admin service.
type ServiceParams struct {
	DB           *db.Client
	UsersRepo    *users.Repository
	ListingsRepo *listings.Repository
	ReviewsRepo  *reviews.Repository
	ReviewsSvc   reviews.Service
	OrdersRepo   *orders.Repository
	Images       imageStore
	Outbox       outboxEmitter
	Logger       *logger.Logger
}

type service struct {
	db           *db.Client
	usersRepo    *users.Repository
	listingsRepo *listings.Repository
	reviewsRepo  *reviews.Repository
	reviewsSvc   reviews.Service
	ordersRepo   *orders.Repository
	images       imageStore
	outbox       outboxEmitter
	logg         *logger.Logger
}

// NewService builds the admin service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	if params.UsersRepo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if params.ListingsRepo == nil {
		return nil, fmt.Errorf("listings repository required")
	}
	if params.ReviewsRepo == nil {
		return nil, fmt.Errorf("reviews repository required")
	}
	if params.ReviewsSvc == nil {
		return nil, fmt.Errorf("reviews service required")
	}
	if params.OrdersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Images == nil {
		return nil, fmt.Errorf("image store required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{
		db:           params.DB,
		usersRepo:    params.UsersRepo,
		listingsRepo: params.ListingsRepo,
		reviewsRepo:  params.ReviewsRepo,
		reviewsSvc:   params.ReviewsSvc,
		ordersRepo:   params.OrdersRepo,
		images:       params.Images,
		outbox:       params.Outbox,
		logg:         params.Logger,
	}, nil
}

func (s *service) SearchUsers(ctx context.Context, query string) ([]users.UserDTO, error) {
	rows, err := s.usersRepo.Search(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "search users")
	}
	out := make([]users.UserDTO, 0, len(rows))
	for i := range rows {
		out = append(out, users.FromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) UserDetail(ctx context.Context, userID uuid.UUID) (UserDetailDTO, error) {
	user, err := s.usersRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return UserDetailDTO{}, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return UserDetailDTO{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}

	owned, err := s.listingsRepo.ListBySeller(ctx, userID)
	if err != nil {
		return UserDetailDTO{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load listings")
	}
	authored, err := s.reviewsRepo.ListByReviewer(ctx, userID)
	if err != nil {
		return UserDetailDTO{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load reviews")
	}

	detail := UserDetailDTO{
		User:     users.FromModel(user),
		Listings: make([]listings.ListingDTO, 0, len(owned)),
		Reviews:  authored,
	}
	for i := range owned {
		detail.Listings = append(detail.Listings, listings.FromModel(&owned[i]))
	}
	return detail, nil
}

func (s *service) UpdateUser(ctx context.Context, adminID, userID uuid.UUID, input UpdateUserInput) (users.UserDTO, error) {
	if _, err := s.usersRepo.FindByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return users.UserDTO{}, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return users.UserDTO{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}

	updates := map[string]any{}
	if input.FirstName != nil && strings.TrimSpace(*input.FirstName) != "" {
		updates["first_name"] = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil && strings.TrimSpace(*input.LastName) != "" {
		updates["last_name"] = strings.TrimSpace(*input.LastName)
	}
	if input.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*input.Email))
		if email == "" {
			return users.UserDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "email cannot be empty")
		}
		updates["email"] = email
	}

	if err := s.usersRepo.Update(ctx, userID, updates); err != nil {
		return users.UserDTO{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update user")
	}
	s.audit(ctx, adminID, "admin.user.updated", map[string]any{"target_user_id": userID.String()})

	updated, err := s.usersRepo.FindByID(ctx, userID)
	if err != nil {
		return users.UserDTO{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload user")
	}
	return users.FromModel(updated), nil
}

func (s *service) SetUserDisabled(ctx context.Context, adminID, userID uuid.UUID, disabled bool) error {
	if err := s.usersRepo.SetDisabled(ctx, userID, disabled); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "toggle user")
	}
	s.audit(ctx, adminID, "admin.user.toggled", map[string]any{
		"target_user_id": userID.String(),
		"disabled":       disabled,
	})
	return nil
}

// DeleteUser removes the account. Listings, reviews, cart, wishlist, and
// token rows cascade through the schema; listing image files are removed
// after the delete commits.
func (s *service) DeleteUser(ctx context.Context, adminID, userID uuid.UUID) error {
	owned, err := s.listingsRepo.ListBySeller(ctx, userID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load listings")
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.usersRepo.WithTx(tx).Delete(ctx, userID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete user")
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, listing := range owned {
		if listing.Image == "" {
			continue
		}
		if err := s.images.Remove(listing.Image); err != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"image": listing.Image}), "admin.user.image_cleanup_failed")
		}
	}

	s.audit(ctx, adminID, "admin.user.deleted", map[string]any{"target_user_id": userID.String()})
	return nil
}

func (s *service) SearchListings(ctx context.Context, query string) ([]listings.ListingDTO, error) {
	rows, err := s.listingsRepo.SearchAdmin(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "search listings")
	}
	out := make([]listings.ListingDTO, 0, len(rows))
	for i := range rows {
		out = append(out, listings.FromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) UpdateListing(ctx context.Context, adminID, listingID uuid.UUID, input listings.UpdateListingInput) (listings.ListingDTO, error) {
	listing, err := s.loadListing(ctx, listingID)
	if err != nil {
		return listings.ListingDTO{}, err
	}

	updates := map[string]any{}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return listings.ListingDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "title cannot be empty")
		}
		updates["title"] = title
	}
	if input.Brand != nil {
		if !input.Brand.IsValid() {
			return listings.ListingDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown brand")
		}
		updates["brand"] = *input.Brand
	}
	if input.Stock != nil {
		if *input.Stock < 0 {
			return listings.ListingDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "stock must be zero or more")
		}
		updates["stock"] = *input.Stock
	}
	if input.Price != nil {
		if input.Price.IsNegative() {
			return listings.ListingDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "price must be zero or more")
		}
		updates["price"] = *input.Price
	}

	if err := s.listingsRepo.Update(ctx, listing.ID, updates); err != nil {
		return listings.ListingDTO{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update listing")
	}
	s.audit(ctx, adminID, "admin.listing.updated", map[string]any{"listing_id": listingID.String()})

	updated, err := s.listingsRepo.FindBareByID(ctx, listing.ID)
	if err != nil {
		return listings.ListingDTO{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload listing")
	}
	return listings.FromModel(updated), nil
}

func (s *service) SetListingDisabled(ctx context.Context, adminID, listingID uuid.UUID, disabled bool) error {
	listing, err := s.loadListing(ctx, listingID)
	if err != nil {
		return err
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.listingsRepo.WithTx(tx).SetDisabled(ctx, listing.ID, disabled); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "toggle listing")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventListingDisabled,
			AggregateType: enums.AggregateListing,
			AggregateID:   listing.ID,
			Actor:         &outbox.ActorRef{UserID: adminID, Role: string(enums.RoleAdmin)},
			Data: outbox.ListingDisabledData{
				ListingID: listing.ID,
				SellerID:  listing.SellerID,
				Disabled:  disabled,
			},
			Version: 1,
		})
	})
	if err != nil {
		return err
	}

	s.audit(ctx, adminID, "admin.listing.toggled", map[string]any{
		"listing_id": listingID.String(),
		"disabled":   disabled,
	})
	return nil
}

func (s *service) DeleteListing(ctx context.Context, adminID, listingID uuid.UUID) error {
	listing, err := s.loadListing(ctx, listingID)
	if err != nil {
		return err
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.listingsRepo.WithTx(tx).Delete(ctx, listing.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete listing")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventListingDeleted,
			AggregateType: enums.AggregateListing,
			AggregateID:   listing.ID,
			Actor:         &outbox.ActorRef{UserID: adminID, Role: string(enums.RoleAdmin)},
			Data: outbox.ListingDisabledData{
				ListingID: listing.ID,
				SellerID:  listing.SellerID,
				Disabled:  true,
			},
			Version: 1,
		})
	})
	if err != nil {
		return err
	}

	if listing.Image != "" {
		if err := s.images.Remove(listing.Image); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove listing image")
		}
	}
	s.audit(ctx, adminID, "admin.listing.deleted", map[string]any{"listing_id": listingID.String()})
	return nil
}

func (s *service) SearchReviews(ctx context.Context, query string) ([]reviews.ReviewDTO, error) {
	rows, err := s.reviewsRepo.SearchByComment(ctx, strings.ToLower(strings.TrimSpace(query)))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "search reviews")
	}
	out := make([]reviews.ReviewDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, reviews.ReviewDTO{
			ID:         row.ID,
			ListingID:  row.ListingID,
			ReviewerID: row.ReviewerID,
			Rating:     row.Rating,
			Comment:    row.Comment,
			Hidden:     row.Hidden,
			CreatedAt:  row.CreatedAt,
		})
	}
	return out, nil
}

func (s *service) ToggleReview(ctx context.Context, adminID, listingID, reviewerID uuid.UUID, hidden bool) (reviews.ToggleResult, error) {
	result, err := s.reviewsSvc.AdminToggleVisibility(ctx, adminID, listingID, reviewerID, hidden)
	if err != nil {
		return reviews.ToggleResult{}, err
	}
	s.audit(ctx, adminID, "admin.review.toggled", map[string]any{
		"listing_id":  listingID.String(),
		"reviewer_id": reviewerID.String(),
		"hidden":      hidden,
	})
	return result, nil
}

func (s *service) SalesLog(ctx context.Context, page, limit int) (SalesPage, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultSalesPageSize
	}
	if limit > maxSalesPageSize {
		limit = maxSalesPageSize
	}

	rows, total, err := s.ordersRepo.ListAll(ctx, (page-1)*limit, limit)
	if err != nil {
		return SalesPage{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list sales")
	}

	out := SalesPage{
		Orders: make([]orders.OrderDTO, 0, len(rows)),
		Page:   page,
		Limit:  limit,
		Total:  total,
	}
	for i := range rows {
		out.Orders = append(out.Orders, orders.FromModel(&rows[i]))
	}
	return out, nil
}

// ExportSales serializes the full sales log as JSON or CSV. Unknown formats
// are a validation error.
func (s *service) ExportSales(ctx context.Context, format string) ([]byte, string, error) {
	normalized := strings.ToLower(strings.TrimSpace(format))
	if normalized == "" {
		normalized = ExportFormatJSON
	}
	if normalized != ExportFormatJSON && normalized != ExportFormatCSV {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "format must be json or csv")
	}

	// Page through the whole log so the export never silently drops orders.
	dtos := make([]orders.OrderDTO, 0, exportSalesBatch)
	for offset := 0; ; offset += exportSalesBatch {
		rows, _, err := s.ordersRepo.ListAll(ctx, offset, exportSalesBatch)
		if err != nil {
			return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load sales")
		}
		for i := range rows {
			dtos = append(dtos, orders.FromModel(&rows[i]))
		}
		if len(rows) < exportSalesBatch {
			break
		}
	}

	if normalized == ExportFormatJSON {
		data, err := json.MarshalIndent(dtos, "", "  ")
		if err != nil {
			return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal sales")
		}
		return data, "application/json", nil
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"order_id", "buyer", "listing_id", "title", "quantity", "unit_price", "subtotal", "placed_at"})
	for _, order := range dtos {
		for _, item := range order.Items {
			_ = w.Write([]string{
				order.ID.String(),
				order.BuyerName,
				item.ListingID.String(),
				item.Title,
				strconv.Itoa(item.Quantity),
				item.UnitPrice.StringFixed(2),
				item.Subtotal.StringFixed(2),
				order.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
			})
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "write csv")
	}
	return buf.Bytes(), "text/csv", nil
}

func (s *service) loadListing(ctx context.Context, listingID uuid.UUID) (*models.Listing, error) {
	listing, err := s.listingsRepo.FindBareByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load listing")
	}
	return listing, nil
}

func (s *service) audit(ctx context.Context, adminID uuid.UUID, event string, fields map[string]any) {
	if s.logg == nil {
		return
	}
	merged := map[string]any{"admin_id": adminID.String()}
	for k, v := range fields {
		merged[k] = v
	}
	s.logg.Info(s.logg.WithFields(ctx, merged), event)
}
