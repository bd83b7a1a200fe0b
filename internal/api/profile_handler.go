package api

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/scoutlink/backend/internal/middleware"
	"github.com/scoutlink/backend/internal/storage"
	"github.com/scoutlink/backend/pkg/response"
)

const maxAvatarSize = 5 << 20 // 5 MiB

// ProfileHandler serves profile media. Profile data itself lives in the
// identity platform; this service only owns the avatar objects it probes
// when resolving identities.
type ProfileHandler struct {
	avatars *storage.S3AvatarStore
	logger  *zap.Logger
}

func NewProfileHandler(avatars *storage.S3AvatarStore, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{avatars: avatars, logger: logger}
}

// UploadAvatar replaces the caller's stored avatar. Takes a multipart form
// with an "avatar" file part.
func (h *ProfileHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	if h.avatars == nil {
		response.Error(w, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "avatar storage is not configured")
		return
	}
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}
	accountType, ok := middleware.GetAccountType(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	if err := r.ParseMultipartForm(maxAvatarSize); err != nil {
		response.BadRequest(w, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("avatar")
	if err != nil {
		response.BadRequest(w, "missing avatar file")
		return
	}
	defer file.Close()

	url, err := h.avatars.SaveAvatar(r.Context(), userID, accountType, file, header.Header.Get("Content-Type"))
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedImageType) {
			response.BadRequest(w, "unsupported image type")
			return
		}
		h.logger.Error("avatar upload failed", zap.Error(err))
		response.InternalError(w, "failed to upload avatar")
		return
	}

	response.OK(w, map[string]string{"avatar_url": url})
}

// DeleteAvatar removes the caller's stored avatar. Identity resolution
// falls back to profile fields or the generated placeholder afterwards.
func (h *ProfileHandler) DeleteAvatar(w http.ResponseWriter, r *http.Request) {
	if h.avatars == nil {
		response.Error(w, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "avatar storage is not configured")
		return
	}
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}
	accountType, ok := middleware.GetAccountType(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	if err := h.avatars.DeleteAvatar(r.Context(), userID, accountType); err != nil {
		h.logger.Error("avatar delete failed", zap.Error(err))
		response.InternalError(w, "failed to delete avatar")
		return
	}

	response.NoContent(w)
}
