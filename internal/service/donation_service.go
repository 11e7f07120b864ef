package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"savefood/internal/cache"
	"savefood/internal/model"
	"savefood/internal/repository"
	"savefood/pkg/errorx"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const imageDir = "food_donations"

var allowedImageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true}

// CreateDonationRequest is bound from the multipart form of POST /donate.
type CreateDonationRequest struct {
	Title          string   `form:"title" binding:"required,max=200"`
	Description    string   `form:"description"`
	FoodType       string   `form:"food_type" binding:"required,oneof=packed homecooked organic"`
	Category       string   `form:"category" binding:"omitempty,oneof=edible recyclable rejected"`
	Latitude       *float64 `form:"latitude" binding:"required,gte=-90,lte=90"`
	Longitude      *float64 `form:"longitude" binding:"required,gte=-180,lte=180"`
	Address        string   `form:"address"`
	ExpiryDate     string   `form:"expiry_date"`
	SafetyHours    *int     `form:"safety_hours" binding:"omitempty,gte=0"`
	SafetyAnalysis string   `form:"safety_analysis"`
	IsSafe         *bool    `form:"is_safe"`
}

// ImageUpload is the donation photo as received from the client.
type ImageUpload struct {
	Filename string
	Content  io.Reader
}

type DonationResponse struct {
	ID             string          `json:"id"`
	DonorID        string          `json:"donor"`
	DonorName      string          `json:"donor_name"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	FoodType       string          `json:"food_type"`
	Category       string          `json:"category"`
	Image          string          `json:"image"`
	ImageURL       string          `json:"image_url"`
	Latitude       float64         `json:"latitude"`
	Longitude      float64         `json:"longitude"`
	Address        string          `json:"address"`
	ExpiryDate     *string         `json:"expiry_date"`
	SafetyHours    *int            `json:"safety_hours"`
	SafetyAnalysis json.RawMessage `json:"safety_analysis"`
	IsSafe         bool            `json:"is_safe"`
	IsSold         bool            `json:"is_sold"`
	CreatedAt      string          `json:"created_at"`
}

type DonationPage struct {
	Items []DonationResponse `json:"items"`
	Total int64              `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
}

type DonationService interface {
	CreateDonation(ctx context.Context, donorID uuid.UUID, req CreateDonationRequest, image ImageUpload) (DonationResponse, error)
	ListFeed(ctx context.Context, page, limit int) (DonationPage, error)
	ListMine(ctx context.Context, donorID uuid.UUID, page, limit int) (DonationPage, error)
}

type donationService struct {
	stores    repository.Stores
	feed      cache.DonationFeed
	mediaRoot string
}

func NewDonationService(stores repository.Stores, feed cache.DonationFeed, mediaRoot string) DonationService {
	if feed == nil {
		feed = cache.NoopFeed{}
	}
	return &donationService{stores: stores, feed: feed, mediaRoot: mediaRoot}
}

func toDonationResponse(d *model.FoodDonation) DonationResponse {
	res := DonationResponse{
		ID:             d.ID.String(),
		DonorID:        d.DonorID.String(),
		Title:          d.Title,
		Description:    d.Description,
		FoodType:       d.FoodType,
		Category:       d.Category,
		Image:          d.ImagePath,
		Latitude:       d.Latitude,
		Longitude:      d.Longitude,
		Address:        d.Address,
		SafetyHours:    d.SafetyHours,
		SafetyAnalysis: json.RawMessage(d.SafetyAnalysis),
		IsSafe:         d.IsSafe,
		IsSold:         d.IsSold,
		CreatedAt:      d.CreatedAt.Format(timeLayout),
	}
	if d.ImagePath != "" {
		res.ImageURL = "/media/" + d.ImagePath
	}
	if d.ExpiryDate != nil {
		date := d.ExpiryDate.Format("2006-01-02")
		res.ExpiryDate = &date
	}
	if d.Donor != nil {
		res.DonorName = d.Donor.FullName
	}
	if len(res.SafetyAnalysis) == 0 {
		res.SafetyAnalysis = json.RawMessage("{}")
	}
	return res
}

func (s *donationService) CreateDonation(ctx context.Context, donorID uuid.UUID, req CreateDonationRequest, image ImageUpload) (DonationResponse, error) {
	donation, err := buildDonation(donorID, req)
	if err != nil {
		return DonationResponse{}, err
	}

	ext := strings.ToLower(filepath.Ext(image.Filename))
	if image.Content == nil || !allowedImageExts[ext] {
		return DonationResponse{}, errorx.New(errorx.CodeInvalidParam, "image must be a jpg, jpeg, png or webp file")
	}
	relPath, err := s.saveImage(ext, image.Content)
	if err != nil {
		return DonationResponse{}, errorx.Wrap(err, errorx.CodeServerBusy, "failed to store image")
	}
	donation.ImagePath = relPath

	err = s.stores.Tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.stores.Donations.Create(txCtx, donation); err != nil {
			return errorx.Wrap(err, errorx.CodeDBError, "failed to create donation")
		}
		return writeAudit(txCtx, s.stores.Audit, donorID, model.ActionCreateDonation,
			donation.ID.String(), donation.Title, map[string]interface{}{
				"food_type": donation.FoodType,
				"is_safe":   donation.IsSafe,
			})
	})
	if err != nil {
		if rmErr := os.Remove(filepath.Join(s.mediaRoot, filepath.FromSlash(relPath))); rmErr != nil {
			zap.L().Warn("failed to remove orphaned image", zap.String("path", relPath), zap.Error(rmErr))
		}
		return DonationResponse{}, err
	}

	if err := s.feed.Invalidate(ctx); err != nil {
		zap.L().Warn("failed to invalidate donation feed cache", zap.Error(err))
	}
	zap.L().Info("donation created", zap.String("donation_id", donation.ID.String()), zap.String("donor_id", donorID.String()))

	created, err := s.stores.Donations.FindByID(ctx, donation.ID)
	if err != nil {
		return DonationResponse{}, notFoundOr(err, ErrDonationNotFound, "failed to reload donation")
	}
	return toDonationResponse(created), nil
}

func buildDonation(donorID uuid.UUID, req CreateDonationRequest) (*model.FoodDonation, error) {
	d := &model.FoodDonation{
		DonorID:     donorID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		FoodType:    req.FoodType,
		Category:    req.Category,
		Address:     req.Address,
		SafetyHours: req.SafetyHours,
		IsSafe:      true,
		IsSold:      false,
	}
	if d.Title == "" {
		return nil, errorx.New(errorx.CodeInvalidParam, "title is required")
	}
	if d.Category == "" {
		d.Category = model.FoodCategoryEdible
	}
	if req.Latitude == nil || req.Longitude == nil {
		return nil, errorx.New(errorx.CodeInvalidParam, "latitude and longitude are required")
	}
	d.Latitude, d.Longitude = *req.Latitude, *req.Longitude
	if req.IsSafe != nil {
		d.IsSafe = *req.IsSafe
	}

	if req.ExpiryDate != "" {
		expiry, err := time.Parse("2006-01-02", req.ExpiryDate)
		if err != nil {
			return nil, errorx.Wrap(err, errorx.CodeInvalidParam, "expiry_date must be YYYY-MM-DD")
		}
		d.ExpiryDate = &expiry
	}

	d.SafetyAnalysis = "{}"
	if raw := strings.TrimSpace(req.SafetyAnalysis); raw != "" {
		if !json.Valid([]byte(raw)) {
			return nil, errorx.New(errorx.CodeInvalidParam, "safety_analysis must be valid JSON")
		}
		d.SafetyAnalysis = raw
	}
	return d, nil
}

// saveImage writes the upload to MEDIA_ROOT/food_donations/<uuid><ext> and
// returns the slash-separated path relative to the media root.
func (s *donationService) saveImage(ext string, content io.Reader) (string, error) {
	dir := filepath.Join(s.mediaRoot, imageDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	name := uuid.NewString() + ext
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, content); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path.Join(imageDir, name), nil
}

// ListFeed returns safe donations, newest first, served from the cache when possible.
func (s *donationService) ListFeed(ctx context.Context, page, limit int) (DonationPage, error) {
	if payload, ok := s.feed.Get(ctx, page, limit); ok {
		var cached DonationPage
		if err := json.Unmarshal(payload, &cached); err == nil {
			return cached, nil
		}
	}

	donations, total, err := s.stores.Donations.ListSafe(ctx, page, limit)
	if err != nil {
		return DonationPage{}, errorx.Wrap(err, errorx.CodeDBError, "failed to fetch donations")
	}
	result := toDonationPage(donations, total, page, limit)

	if payload, err := json.Marshal(result); err == nil {
		if err := s.feed.Set(ctx, page, limit, payload); err != nil {
			zap.L().Warn("failed to cache donation feed", zap.Error(err))
		}
	}
	return result, nil
}

func (s *donationService) ListMine(ctx context.Context, donorID uuid.UUID, page, limit int) (DonationPage, error) {
	donations, total, err := s.stores.Donations.ListByDonor(ctx, donorID, page, limit)
	if err != nil {
		return DonationPage{}, errorx.Wrap(err, errorx.CodeDBError, fmt.Sprintf("failed to fetch donations of %s", donorID))
	}
	return toDonationPage(donations, total, page, limit), nil
}

func toDonationPage(donations []model.FoodDonation, total int64, page, limit int) DonationPage {
	items := make([]DonationResponse, 0, len(donations))
	for i := range donations {
		items = append(items, toDonationResponse(&donations[i]))
	}
	return DonationPage{Items: items, Total: total, Page: page, Limit: limit}
}
