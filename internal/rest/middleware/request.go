package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/vidinfra/docvault/internal/i18n"
	"github.com/vidinfra/docvault/internal/types"
)

func RequestIDMiddleware(c *gin.Context) {
	requestID := c.GetHeader(types.HeaderRequestID)
	if requestID == "" {
		requestID = uuid.New().String()
	}

	c.Request = c.Request.WithContext(types.SetRequestID(c.Request.Context(), requestID))
	c.Header(types.HeaderRequestID, requestID)

	c.Next()
}

// ActorMiddleware records the acting user from X-User-ID. Requests without
// the header are anonymous and their writes carry a null actor.
func ActorMiddleware(c *gin.Context) {
	if userID := strings.TrimSpace(c.GetHeader(types.HeaderUserID)); userID != "" {
		c.Request = c.Request.WithContext(types.SetUserID(c.Request.Context(), userID))
	}
	c.Next()
}

// LocaleMiddleware stores the best supported locale for Accept-Language
func LocaleMiddleware(translator *i18n.Translator) gin.HandlerFunc {
	return func(c *gin.Context) {
		locale := translator.Negotiate(c.GetHeader(types.HeaderAcceptLanguage))
		c.Request = c.Request.WithContext(types.SetLocale(c.Request.Context(), locale))
		c.Header("Content-Language", locale)
		c.Next()
	}
}
