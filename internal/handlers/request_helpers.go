package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"laundry/internal/apperr"
	"laundry/internal/middleware"
)

const requestTimeout = 5 * time.Second

// recovery turns a panic into a logged 500 with the standard envelope.
func recovery(log logrus.FieldLogger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.WithFields(logrus.Fields{
			"area":  "http",
			"path":  c.Request.URL.Path,
			"panic": fmt.Sprint(recovered),
		}).Error("panic recovered")
		c.AbortWithStatusJSON(http.StatusInternalServerError, apperr.Internal(nil).Body())
	})
}

// respondError writes err using the error envelope. Internal failures are
// logged with their cause; the client sees a generic message.
func respondError(c *gin.Context, log logrus.FieldLogger, err error) {
	appErr := apperr.As(err)
	if appErr.Kind == apperr.KindInternal {
		entry := log.WithField("path", c.FullPath())
		if appErr.Err != nil {
			entry = entry.WithError(appErr.Err)
		}
		if id := middleware.GetRequestID(c); id != "" {
			entry = entry.WithField("requestId", id)
		}
		entry.Error("request failed")
	}
	c.AbortWithStatusJSON(appErr.Status(), appErr.Body())
}

func respondOK(c *gin.Context, status int, body gin.H) {
	if body == nil {
		body = gin.H{}
	}
	body["success"] = true
	c.JSON(status, body)
}

func init() {
	binding.EnableDecoderDisallowUnknownFields = true
}

// bindJSON decodes the request body into dst, rejecting unknown fields.
func bindJSON(c *gin.Context, dst any) error {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return apperr.Validation("request body is required")
	}
	err := c.ShouldBindBodyWith(dst, binding.JSON)
	if err == nil {
		return nil
	}

	var (
		typeErr   *json.UnmarshalTypeError
		syntaxErr *json.SyntaxError
	)
	switch {
	case errors.Is(err, io.EOF):
		return apperr.Validation("request body is required")
	case errors.As(err, &typeErr) && typeErr.Field != "":
		return apperr.Validation(fmt.Sprintf("%s has the wrong type", typeErr.Field))
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return apperr.Validation("invalid JSON body")
	}

	if raw, ok := c.Get(gin.BodyBytesKey); ok {
		if body, ok := raw.([]byte); ok {
			if field := unknownField(dst, body); field != "" {
				return apperr.Validation(fmt.Sprintf("unknown field %q", field))
			}
		}
	}
	return apperr.Validation("invalid JSON body")
}

// unknownField returns the first top-level key of body that dst has no
// field for. Keys match json tags case-insensitively, like the decoder.
func unknownField(dst any, body []byte) string {
	t := reflect.TypeOf(dst)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return ""
	}

	known := make(map[string]struct{}, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			continue
		}
		if name == "" {
			name = field.Name
		}
		known[strings.ToLower(name)] = struct{}{}
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(body, &keys); err != nil {
		return ""
	}
	names := make([]string, 0, len(keys))
	for key := range keys {
		names = append(names, key)
	}
	sort.Strings(names)
	for _, key := range names {
		if _, ok := known[strings.ToLower(key)]; !ok {
			return key
		}
	}
	return ""
}

// objectIDParam parses a path parameter as an ObjectID. Malformed ids are
// reported as not found.
func objectIDParam(c *gin.Context, name, what string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(c.Param(name)))
	if err != nil {
		return primitive.NilObjectID, apperr.NotFound(what + " not found")
	}
	return id, nil
}

// currentUserID returns the authenticated caller. AuthGuard runs first on
// every route that uses it.
func currentUserID(c *gin.Context) (primitive.ObjectID, error) {
	id, ok := middleware.CurrentUserID(c)
	if !ok {
		return primitive.NilObjectID, apperr.Unauthorized(apperr.CodeInvalidToken, "invalid token")
	}
	return id, nil
}

func requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), requestTimeout)
}
