package validation

import (
	"github.com/go-playground/validator/v10"

	apperrors "github.com/nezasa/credstore/internal/errors"
	"github.com/nezasa/credstore/internal/service"
)

const (
	maxSupplierLen    = 255
	maxEnvironmentLen = 64
	maxAuditLimit     = 1000
)

// RequestValidator checks request shapes before they reach the store.
type RequestValidator struct {
	validator *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	return &RequestValidator{validator: validator.New()}
}

func (rv *RequestValidator) ValidateCreateRequest(req *service.CreateRequest) error {
	if err := rv.validator.Struct(req); err != nil {
		return apperrors.Validation("%v", err)
	}
	if len(req.Supplier) > maxSupplierLen {
		return apperrors.Validation("supplier exceeds maximum length of %d", maxSupplierLen)
	}
	if len(req.Environment) > maxEnvironmentLen {
		return apperrors.Validation("environment exceeds maximum length of %d", maxEnvironmentLen)
	}
	return nil
}

func (rv *RequestValidator) ValidateUpdateRequest(req *service.UpdateRequest) error {
	if req.Supplier == nil && req.Environment == nil && req.AuthType == nil &&
		req.SecretData == nil && req.AllowSelfRotation == nil {
		return apperrors.Validation("no fields to update")
	}
	if req.Supplier != nil && (*req.Supplier == "" || len(*req.Supplier) > maxSupplierLen) {
		return apperrors.Validation("supplier must be 1-%d characters", maxSupplierLen)
	}
	if req.Environment != nil && (*req.Environment == "" || len(*req.Environment) > maxEnvironmentLen) {
		return apperrors.Validation("environment must be 1-%d characters", maxEnvironmentLen)
	}
	return nil
}

func (rv *RequestValidator) ValidateAuditQuery(req *service.AuditQuery) error {
	if req.Limit < 0 || req.Limit > maxAuditLimit {
		return apperrors.Validation("limit must be between 0 and %d", maxAuditLimit)
	}
	return nil
}
