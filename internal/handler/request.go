package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/mavi-pizzeria/api/internal/apperr"
	"github.com/shopspring/decimal"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	maxBodyBytes    = 1 << 20
)

var (
	errInvalidBody = apperr.Validation("invalid request body")
	errInvalidID   = apperr.Validation("invalid ID")

	validate = newValidator()
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON reads a JSON body into dst and runs its validate tags.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return errInvalidBody
	}
	return validateStruct(dst)
}

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return errInvalidBody
	}
	return apperr.Validation(validationMessage(verrs[0]))
}

func validationMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", field, fe.Param())
	case "uuid":
		return fmt.Sprintf("%s must be a valid UUID", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// --- Params ---

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, errInvalidID
	}
	return id, nil
}

// page holds parsed ?page=&limit= values.
type page struct {
	Page  int32
	Limit int32
}

func (p page) Offset() int32 { return (p.Page - 1) * p.Limit }

// pagination is the block returned next to list data.
type pagination struct {
	Page       int32 `json:"page"`
	Limit      int32 `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
}

func (p page) Result(total int64) pagination {
	pages := (total + int64(p.Limit) - 1) / int64(p.Limit)
	return pagination{Page: p.Page, Limit: p.Limit, Total: total, TotalPages: pages}
}

func parsePage(r *http.Request) page {
	p := page{Page: 1, Limit: defaultPageSize}
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		p.Page = int32(v)
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		p.Limit = int32(min(v, maxPageSize))
	}
	return p
}

// --- Money ---

func parseMoney(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return decimal.Zero, apperr.Validation("invalid price")
	}
	return d.Round(2), nil
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

var slugFold = strings.NewReplacer("ä", "a", "ö", "o", "å", "a", "é", "e", "ü", "u")

// slugify derives a URL slug from a display name.
func slugify(name string) string {
	s := slugFold.Replace(strings.ToLower(strings.TrimSpace(name)))
	return strings.Trim(slugStrip.ReplaceAllString(s, "-"), "-")
}
