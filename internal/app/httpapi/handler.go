package httpapi

import (
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/nezasa/credstore/internal/domain"
	apperrors "github.com/nezasa/credstore/internal/errors"
	"github.com/nezasa/credstore/internal/service"
)

// Handler exposes the credential service over REST. Authentication has
// already happened in the middleware; the handler translates wire shapes
// and maps internal errors onto the response taxonomy.
type Handler struct {
	logger     *slog.Logger
	service    service.Service
	classifier *apperrors.ErrorClassifier
}

func NewHandler(logger *slog.Logger, svc service.Service) *Handler {
	return &Handler{
		logger:     logger,
		service:    svc,
		classifier: apperrors.NewErrorClassifier(logger),
	}
}

func (h *Handler) fail(c *fiber.Ctx, operation string, err error) error {
	status, message := h.classifier.LogAndSanitize(c.Context(), operation, err)
	return c.Status(status).JSON(fiber.Map{"error": message})
}

func (h *Handler) credentialID(c *fiber.Ctx) (domain.CredentialID, error) {
	id, err := domain.CredentialIDFromString(c.Params("id"))
	if err != nil {
		return domain.CredentialID{}, apperrors.Validation("invalid credential id %q", c.Params("id"))
	}
	return id, nil
}

func (h *Handler) CreateCredential(c *fiber.Ctx) error {
	var req service.CreateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed request body"})
	}

	cred, err := h.service.Create(c.Context(), principalFrom(c), req)
	if err != nil {
		return h.fail(c, "create_credential", err)
	}
	return c.Status(fiber.StatusCreated).JSON(toCredentialResponse(cred))
}

func (h *Handler) ListCredentials(c *fiber.Ctx) error {
	req := service.ListRequest{
		Supplier:    c.Query("supplier"),
		Environment: c.Query("environment"),
	}

	creds, err := h.service.List(c.Context(), principalFrom(c), req)
	if err != nil {
		return h.fail(c, "list_credentials", err)
	}

	out := make([]CredentialResponse, 0, len(creds))
	for _, cred := range creds {
		out = append(out, toCredentialResponse(cred.Mask()))
	}
	return c.JSON(ListCredentialsResponse{Total: len(out), Credentials: out})
}

// GetCredential answers masked by default regardless of role. With
// ?unmasked=true it records a view audit entry first and then returns
// plaintext for roles holding view_unmasked.
func (h *Handler) GetCredential(c *fiber.Ctx) error {
	id, err := h.credentialID(c)
	if err != nil {
		return h.fail(c, "get_credential", err)
	}
	p := principalFrom(c)

	unmasked := c.QueryBool("unmasked")
	if unmasked {
		if _, err := h.service.RecordView(c.Context(), p, id); err != nil {
			return h.fail(c, "get_credential", err)
		}
	}

	cred, err := h.service.Get(c.Context(), p, id)
	if err != nil {
		return h.fail(c, "get_credential", err)
	}
	if !unmasked {
		cred = cred.Mask()
	}
	return c.JSON(toCredentialResponse(cred))
}

func (h *Handler) UpdateCredential(c *fiber.Ctx) error {
	id, err := h.credentialID(c)
	if err != nil {
		return h.fail(c, "update_credential", err)
	}

	var req service.UpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed request body"})
	}
	req.ID = id

	cred, err := h.service.Update(c.Context(), principalFrom(c), req)
	if err != nil {
		return h.fail(c, "update_credential", err)
	}
	return c.JSON(toCredentialResponse(cred))
}

func (h *Handler) RotateCredential(c *fiber.Ctx) error {
	id, err := h.credentialID(c)
	if err != nil {
		return h.fail(c, "rotate_credential", err)
	}

	result, err := h.service.Rotate(c.Context(), principalFrom(c), id)
	if err != nil {
		return h.fail(c, "rotate_credential", err)
	}
	return c.JSON(RotateResponse{
		Message:   "Credential rotated successfully",
		NewData:   result.NewSecret.Fields(),
		RotatedAt: result.Credential.UpdatedAt,
	})
}

func (h *Handler) DeleteCredential(c *fiber.Ctx) error {
	id, err := h.credentialID(c)
	if err != nil {
		return h.fail(c, "delete_credential", err)
	}

	if err := h.service.Delete(c.Context(), principalFrom(c), id); err != nil {
		return h.fail(c, "delete_credential", err)
	}
	return c.JSON(fiber.Map{"message": "Credential deleted successfully"})
}

func (h *Handler) ListAuditLogs(c *fiber.Ctx) error {
	q := service.AuditQuery{
		Action: domain.Action(c.Query("action")),
		Actor:  c.Query("actor"),
	}
	if raw := c.Query("credential_id"); raw != "" {
		id, err := domain.CredentialIDFromString(raw)
		if err != nil {
			return h.fail(c, "list_audit_logs", apperrors.Validation("invalid credential_id %q", raw))
		}
		q.CredentialID = &id
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return h.fail(c, "list_audit_logs", apperrors.Validation("invalid limit %q", raw))
		}
		q.Limit = limit
	}

	entries, err := h.service.AuditLog(c.Context(), principalFrom(c), q)
	if err != nil {
		return h.fail(c, "list_audit_logs", err)
	}

	out := make([]AuditEntryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, toAuditEntryResponse(entry))
	}
	return c.JSON(AuditLogResponse{Total: len(out), Entries: out})
}
