package handlers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"canteen-api/apperr"
	"canteen-api/idempotency"
	"canteen-api/middleware"
	"canteen-api/services"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Handler holds the services every route delegates to.
type Handler struct {
	Auth        *services.AuthService
	Catalog     *services.CatalogService
	Carts       *services.CartService
	Orders      *services.OrderService
	Ledger      *services.Ledger
	Idempotency idempotency.Store
	Log         *slog.Logger
}

func init() {
	// Report validation failures with the wire field names.
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
				if name != "" && name != "-" {
					return name
				}
			}
			return f.Name
		})
	}
}

type pageQuery struct {
	Page  int `form:"page"`
	Limit int `form:"limit"`
}

func (q pageQuery) toPage() services.Page {
	return services.Page{Page: q.Page, Limit: q.Limit}
}

func respond(c *gin.Context, status int, data any, message string) {
	body := gin.H{"success": true, "data": data}
	if message != "" {
		body["message"] = message
	}
	c.JSON(status, body)
}

func respondList(c *gin.Context, data any, page services.Page, total int64) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
		"page":    page.Page,
		"limit":   page.Limit,
		"total":   total,
	})
}

// respondError maps err to its status and logs it with the request context.
func (h *Handler) respondError(c *gin.Context, err error, attrs ...any) {
	kind := apperr.KindOf(err)
	status := kind.HTTPStatus()
	_ = c.Error(err)

	attrs = append(attrs,
		"request_id", middleware.GetRequestID(c),
		"user_id", middleware.GetUserID(c),
		"kind", kind,
		"error", err,
	)
	if status >= http.StatusInternalServerError {
		h.Log.Error("request failed", attrs...)
	} else {
		h.Log.Warn("request rejected", attrs...)
	}
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": apperr.PublicMessage(err)})
}

// bindJSON binds the body; an empty body is accepted when allowEmpty is set.
func bindJSON(c *gin.Context, dst any, allowEmpty bool) error {
	err := c.ShouldBindJSON(dst)
	if err == nil || (allowEmpty && errors.Is(err, io.EOF)) {
		return nil
	}
	return bindError(err)
}

func bindQuery(c *gin.Context, dst any) error {
	if err := c.ShouldBindQuery(dst); err != nil {
		return bindError(err)
	}
	return nil
}

func bindError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Wrap(apperr.KindValidation, err, "Invalid request body")
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return apperr.New(apperr.KindValidation, "%s", strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

func paramID(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.New(apperr.KindValidation, "Invalid %s", name)
	}
	return uint(id), nil
}
