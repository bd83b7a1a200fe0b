package api

import (
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/scoutlink/backend/internal/domain"
	"github.com/scoutlink/backend/internal/middleware"
	"github.com/scoutlink/backend/pkg/response"
)

// ContactHandler serves the contact directory.
type ContactHandler struct {
	directory *domain.DirectoryService
	logger    *zap.Logger
}

func NewContactHandler(directory *domain.DirectoryService, logger *zap.Logger) *ContactHandler {
	return &ContactHandler{directory: directory, logger: logger}
}

// ListContacts builds the caller's directory, then applies the search and
// type filters. The build already excludes the caller and non-contactable
// account types.
func (h *ContactHandler) ListContacts(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	contacts, err := h.directory.BuildDirectory(r.Context(), userID, limit)
	if err != nil {
		if errors.Is(err, domain.ErrDirectoryUnavailable) {
			h.logger.Error("directory build failed", zap.Error(err))
			response.InternalError(w, "directory unavailable")
			return
		}
		h.logger.Error("failed to build directory", zap.Error(err))
		response.InternalError(w, "failed to build directory")
		return
	}

	filter := domain.ContactFilter{
		Search: r.URL.Query().Get("search"),
		Type:   domain.AccountType(r.URL.Query().Get("type")),
	}
	response.OK(w, domain.FilterContacts(contacts, filter))
}
