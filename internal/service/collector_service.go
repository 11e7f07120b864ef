package service

import (
	"context"
	"errors"
	"strings"

	"savefood/internal/model"
	"savefood/internal/repository"
	"savefood/pkg/errorx"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type RegisterCollectorRequest struct {
	UserID        string `json:"user_id" binding:"required,uuid"`
	VehicleNumber string `json:"vehicle_number" binding:"required,max=20"`
	ServiceArea   string `json:"service_area" binding:"required,max=100"`
}

type SetCollectorActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

type CollectorResponse struct {
	ID            string `json:"id"`
	UserID        string `json:"user_id"`
	Username      string `json:"username"`
	FullName      string `json:"full_name"`
	Phone         string `json:"phone"`
	VehicleNumber string `json:"vehicle_number"`
	ServiceArea   string `json:"service_area"`
	IsActive      bool   `json:"is_active"`
	CreatedAt     string `json:"created_at"`
}

type CollectorAuthResponse struct {
	Token     string            `json:"token"`
	User      UserResponse      `json:"user"`
	Collector CollectorResponse `json:"collector"`
	Message   string            `json:"message"`
}

type CollectorService interface {
	Login(ctx context.Context, req LoginRequest) (*CollectorAuthResponse, error)
	Register(ctx context.Context, adminID uuid.UUID, req RegisterCollectorRequest) (CollectorResponse, error)
	SetActive(ctx context.Context, adminID, collectorID uuid.UUID, active bool) (CollectorResponse, error)
	List(ctx context.Context, page, limit int) ([]CollectorResponse, int64, error)
}

type collectorService struct {
	stores repository.Stores
	tokens TokenIssuer
}

func NewCollectorService(stores repository.Stores, tokens TokenIssuer) CollectorService {
	return &collectorService{stores: stores, tokens: tokens}
}

func toCollectorResponse(c *model.FoodWasteCollector) CollectorResponse {
	res := CollectorResponse{
		ID:            c.ID.String(),
		UserID:        c.UserID.String(),
		VehicleNumber: c.VehicleNumber,
		ServiceArea:   c.ServiceArea,
		IsActive:      c.IsActive,
		CreatedAt:     c.CreatedAt.Format(timeLayout),
	}
	if c.User != nil {
		res.Username = c.User.Username
		res.FullName = c.User.FullName
		res.Phone = c.User.Phone
	}
	return res
}

func (s *collectorService) Login(ctx context.Context, req LoginRequest) (*CollectorAuthResponse, error) {
	user, err := authenticate(ctx, s.stores.Users, req.Username, req.Password)
	if err != nil {
		return nil, err
	}

	collector, err := s.stores.Collectors.FindByUserID(ctx, user.ID)
	if err != nil {
		return nil, notFoundOr(err,
			errorx.New(errorx.CodeForbidden, "not registered as a food waste collector"),
			"failed to load collector")
	}
	if !collector.IsActive {
		return nil, ErrCollectorInactive
	}

	token, err := s.tokens.IssueToken(user.ID, model.RoleCollector)
	if err != nil {
		return nil, errorx.Wrap(err, errorx.CodeServerBusy, "failed to generate token")
	}
	return &CollectorAuthResponse{
		Token:     token,
		User:      toUserResponse(user),
		Collector: toCollectorResponse(collector),
		Message:   "Collector login successful.",
	}, nil
}

func (s *collectorService) Register(ctx context.Context, adminID uuid.UUID, req RegisterCollectorRequest) (CollectorResponse, error) {
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return CollectorResponse{}, errorx.Wrap(err, errorx.CodeInvalidParam, "invalid user_id")
	}

	collector := model.FoodWasteCollector{
		UserID:        userID,
		VehicleNumber: strings.ToUpper(strings.TrimSpace(req.VehicleNumber)),
		ServiceArea:   strings.TrimSpace(req.ServiceArea),
		IsActive:      true,
	}
	err = s.stores.Tx.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.stores.Users.GetByID(txCtx, userID); err != nil {
			return notFoundOr(err, errorx.New(errorx.CodeNotFound, "user not found"), "failed to load user")
		}
		if err := s.stores.Collectors.Create(txCtx, &collector); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return errorx.New(errorx.CodeInvalidOperation, "user is already a collector")
			}
			return errorx.Wrap(err, errorx.CodeDBError, "failed to register collector")
		}
		return writeAudit(txCtx, s.stores.Audit, adminID, model.ActionRegisterCollector,
			collector.ID.String(), collector.VehicleNumber, map[string]interface{}{
				"user_id":      userID.String(),
				"service_area": collector.ServiceArea,
			})
	})
	if err != nil {
		return CollectorResponse{}, err
	}
	zap.L().Info("collector registered", zap.String("collector_id", collector.ID.String()))

	return s.load(ctx, collector.ID)
}

func (s *collectorService) SetActive(ctx context.Context, adminID, collectorID uuid.UUID, active bool) (CollectorResponse, error) {
	err := s.stores.Tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.stores.Collectors.SetActive(txCtx, collectorID, active); err != nil {
			return notFoundOr(err, ErrCollectorNotFound, "failed to update collector")
		}
		return writeAudit(txCtx, s.stores.Audit, adminID, model.ActionSetCollectorState,
			collectorID.String(), "", map[string]interface{}{"is_active": active})
	})
	if err != nil {
		return CollectorResponse{}, err
	}
	return s.load(ctx, collectorID)
}

func (s *collectorService) List(ctx context.Context, page, limit int) ([]CollectorResponse, int64, error) {
	collectors, total, err := s.stores.Collectors.List(ctx, page, limit)
	if err != nil {
		return nil, 0, errorx.Wrap(err, errorx.CodeDBError, "failed to fetch collectors")
	}
	out := make([]CollectorResponse, 0, len(collectors))
	for i := range collectors {
		out = append(out, toCollectorResponse(&collectors[i]))
	}
	return out, total, nil
}

func (s *collectorService) load(ctx context.Context, id uuid.UUID) (CollectorResponse, error) {
	collector, err := s.stores.Collectors.FindByID(ctx, id)
	if err != nil {
		return CollectorResponse{}, notFoundOr(err, ErrCollectorNotFound, "failed to load collector")
	}
	return toCollectorResponse(collector), nil
}
