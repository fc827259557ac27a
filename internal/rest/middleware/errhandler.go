package middleware

import (
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	ierr "github.com/vidinfra/docvault/internal/errors"
	"github.com/vidinfra/docvault/internal/i18n"
	"github.com/vidinfra/docvault/internal/logger"
	"github.com/vidinfra/docvault/internal/types"
)

// ErrorHandler renders the last error a handler attached with c.Error. The
// message comes from the translator in the negotiated locale and falls back
// to the error's hint.
func ErrorHandler(translator *i18n.Translator, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		locale := types.GetLocale(c.Request.Context())
		status := ierr.HTTPStatusFromErr(err)

		display := translator.Translate(err, locale)
		if display == "" {
			display = getDisplayMessage(err)
		}

		details := getSafeDetails(err)
		for field, msg := range translator.TranslateValidation(err, locale) {
			details[field] = msg
		}

		if status >= 500 {
			log.Errorw("request failed",
				"error", err,
				"path", c.Request.URL.Path,
				"request_id", types.GetRequestID(c.Request.Context()),
			)
		}

		c.JSON(status, ierr.ErrorResponse{
			Success: false,
			Error: ierr.ErrorDetail{
				Code:    ierr.Code(err),
				Display: display,
				Details: details,
			},
		})
	}
}

func getDisplayMessage(err error) string {
	if hints := errors.GetAllHints(err); len(hints) > 0 {
		// GetAllHints is post-order; the first non-empty hint is the outermost one
		for _, hint := range hints {
			if hint = strings.TrimSpace(hint); hint != "" {
				return hint
			}
		}
	}

	return "An unexpected error occurred"
}

func getSafeDetails(err error) map[string]any {
	details := make(map[string]any)

	for _, sdp := range errors.GetAllSafeDetails(err) {
		for _, payload := range sdp.SafeDetails {
			jsonStr, ok := strings.CutPrefix(payload, "__json__:")
			if !ok {
				continue
			}
			var jsonDetails map[string]any
			if err := json.Unmarshal([]byte(jsonStr), &jsonDetails); err == nil {
				for k, v := range jsonDetails {
					details[k] = v
				}
			}
		}
	}

	return details
}
