package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/legalease/internal/services"
	"github.com/yoockh/legalease/internal/utils"
)

type APIError struct {
	Code    utils.Code `json:"code"`
	Message string     `json:"message"`
}

func writeError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(utils.HTTPStatus(err), toAPIError(err))
}

// toAPIError keeps only the safe part of err.
func toAPIError(err error) APIError {
	var ae *utils.AppError
	if errors.As(err, &ae) {
		return APIError{Code: ae.Code, Message: ae.Message}
	}
	return APIError{
		Code:    utils.CodeInternal,
		Message: http.StatusText(utils.HTTPStatus(err)),
	}
}

func requireUserID(c *gin.Context) (string, bool) {
	if s := c.GetString("user_id"); s != "" {
		return s, true
	}

	writeError(c, utils.E(utils.CodeUnauthorized, "Auth", "unauthorized", nil))
	return "", false
}

// readUpload reads a multipart file field fully, refusing anything larger
// than maxBytes.
func readUpload(c *gin.Context, op, field string, maxBytes int64) (services.Upload, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return services.Upload{}, utils.E(utils.CodeInvalidArgument, op, "missing multipart field '"+field+"'", err)
	}
	if fh.Size <= 0 {
		return services.Upload{}, utils.E(utils.CodeInvalidArgument, op, "file is empty", nil)
	}
	if maxBytes > 0 && fh.Size > maxBytes {
		return services.Upload{}, utils.E(utils.CodeInvalidArgument, op, "file too large", nil)
	}

	f, err := fh.Open()
	if err != nil {
		return services.Upload{}, utils.E(utils.CodeInternal, op, "failed to open upload", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, fh.Size+1))
	if err != nil {
		return services.Upload{}, utils.E(utils.CodeInternal, op, "failed to read upload", err)
	}

	return services.Upload{
		FileName: fh.Filename,
		MimeType: fh.Header.Get("Content-Type"),
		Payload:  data,
	}, nil
}
