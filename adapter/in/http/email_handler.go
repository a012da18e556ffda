package http

import (
	"smartmail_server/core/domain"
	"smartmail_server/core/port/in"
	"smartmail_server/core/service/email"
	"smartmail_server/pkg/apperr"

	"github.com/gofiber/fiber/v2"
)

// EmailHandler serves the mailbox listing and enrichment endpoints.
type EmailHandler struct {
	service in.EmailService
	poller  *email.Poller
}

func NewEmailHandler(service in.EmailService, poller *email.Poller) *EmailHandler {
	return &EmailHandler{service: service, poller: poller}
}

// RegisterRoutes registers email routes on the given router.
func (h *EmailHandler) RegisterRoutes(router fiber.Router) {
	group := router.Group("/emails")
	group.Get("/", h.List)
	group.Get("/categories", h.Categories)
	group.Get("/category/:category", h.ListByCategory)
	group.Get("/:id", h.Detail)
	group.Post("/save/:id", h.Save)
}

// List returns one page of the mailbox merged with enrichment data. The
// first authenticated listing also arms the background poller for this
// session.
func (h *EmailHandler) List(c *fiber.Ctx) error {
	session, err := GetSession(c)
	if err != nil {
		return err
	}

	h.poller.Arm(session)

	q := in.ListQuery{
		MaxResults: int64(c.QueryInt("max_results", 10)),
		PageToken:  c.Query("page_token"),
		Category:   c.Query("category"),
		SortBy:     domain.SortField(c.Query("sort_by", string(domain.SortByImportance))),
		SortOrder:  domain.SortOrder(c.Query("sort_order", string(domain.SortDesc))),
	}

	page, err := h.service.List(c.Context(), session, q)
	if err != nil {
		return err
	}

	return SuccessResponse(c, page)
}

// Categories returns the closed set of labels the classifier may assign.
func (h *EmailHandler) Categories(c *fiber.Ctx) error {
	if _, err := GetSession(c); err != nil {
		return err
	}

	return SuccessResponse(c, fiber.Map{
		"categories": domain.Categories,
	})
}

// ListByCategory returns stored records in one category.
func (h *EmailHandler) ListByCategory(c *fiber.Ctx) error {
	if _, err := GetSession(c); err != nil {
		return err
	}

	raw := c.Params("category")
	if raw == "" {
		return apperr.BadRequest("missing category")
	}
	category := domain.Category(raw)
	if !category.IsValid() && category != domain.CategoryUncategorized {
		return apperr.BadRequest("unknown category: " + raw)
	}

	sortBy := domain.SortField(c.Query("sort_by", string(domain.SortByImportance)))
	order := domain.SortOrder(c.Query("sort_order", string(domain.SortDesc)))
	limit := c.QueryInt("limit", 100)

	emails, err := h.service.ListByCategory(c.Context(), category, sortBy, order, limit)
	if err != nil {
		return err
	}

	return SuccessResponse(c, fiber.Map{
		"category": category,
		"emails":   emails,
		"count":    len(emails),
	})
}

// Detail returns the full message merged with its stored enrichment.
func (h *EmailHandler) Detail(c *fiber.Ctx) error {
	session, err := GetSession(c)
	if err != nil {
		return err
	}

	messageID := c.Params("id")
	if messageID == "" {
		return apperr.BadRequest("missing message id")
	}

	detail, err := h.service.Detail(c.Context(), session, messageID)
	if err != nil {
		return err
	}

	return SuccessResponse(c, detail)
}

// Save persists the raw message without running the model.
func (h *EmailHandler) Save(c *fiber.Ctx) error {
	session, err := GetSession(c)
	if err != nil {
		return err
	}

	messageID := c.Params("id")
	if messageID == "" {
		return apperr.BadRequest("missing message id")
	}

	record, err := h.service.SaveRaw(c.Context(), session, messageID)
	if err != nil {
		return err
	}

	return SuccessResponse(c, record)
}
