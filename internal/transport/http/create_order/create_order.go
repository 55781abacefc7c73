package createorder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"regexp"
	"strings"

	"github.com/dunya-jewellery/shop/internal/service/models/order"
	"github.com/dunya-jewellery/shop/internal/service/models/size"
	"github.com/dunya-jewellery/shop/internal/transport/http/converters"
	"github.com/dunya-jewellery/shop/internal/transport/http/response"
	"github.com/go-playground/validator/v10"
)

const (
	// IdempotencyKeyHeader lets offline clients retry a submission safely.
	IdempotencyKeyHeader = "Idempotency-Key"

	maxBodyBytes         = 1 << 20
	maxIdempotencyKeyLen = 255
)

// service is an interface for the service layer.
type service interface {
	CreateOrder(ctx context.Context, model order.CreateOrderModel) (order.Order, error)
}

// customerInCreateOrderRequest represents the customer block of a create order request.
type customerInCreateOrderRequest struct {
	Name             string `json:"name"              validate:"required,max=255"`
	Phone            string `json:"phone"             validate:"required,max=50"`
	Address          string `json:"address"           validate:"required,max=255"`
	Comment          string `json:"comment"`
	TelegramUsername string `json:"telegram_username" validate:"max=255"`
}

// itemInCreateOrderRequest represents a cart line in a create order request.
type itemInCreateOrderRequest struct {
	ProductSlug  string          `json:"productSlug"  validate:"required,slug"`
	Qty          int             `json:"qty"          validate:"gt=0,lte=2147483647"`
	SelectedSize json.RawMessage `json:"selectedSize" validate:"required"`
}

// metaInCreateOrderRequest represents the storefront meta block.
type metaInCreateOrderRequest struct {
	Locale string `json:"locale" validate:"required,oneof=ru uz"`
	Theme  string `json:"theme"  validate:"required,oneof=light dark"`
}

// createOrderRequest represents a create order request.
type createOrderRequest struct {
	Customer customerInCreateOrderRequest `json:"customer"`
	Items    []itemInCreateOrderRequest   `json:"items"    validate:"min=1,dive"`
	Meta     metaInCreateOrderRequest     `json:"meta"`
}

// createOrderBody is the first decoding pass: nested blocks are kept raw so
// type mismatches can be reported per field.
type createOrderBody struct {
	Customer json.RawMessage   `json:"customer"`
	Items    []json.RawMessage `json:"items"`
	Meta     json.RawMessage   `json:"meta"`
}

var slugRegexp = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}

		return name
	})
	if err := v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugRegexp.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}

	return v
}

// decodeCreateOrderRequest decodes the body into req. Malformed JSON is returned as an error,
// values of the wrong type are returned as messages keyed by field.
func decodeCreateOrderRequest(body io.Reader, req *createOrderRequest) (map[string]string, error) {
	var raw createOrderBody
	fields := map[string]string{}

	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) || typeErr.Field == "" {
			return nil, err
		}
		fields[typeErr.Field] = typeMessage(typeErr)

		return fields, nil
	}

	decodeInto := func(prefix string, data json.RawMessage, dst any) error {
		if len(data) == 0 {
			return nil
		}
		err := json.Unmarshal(data, dst)
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			key := prefix
			if typeErr.Field != "" {
				key = prefix + "." + typeErr.Field
			}
			fields[key] = typeMessage(typeErr)

			return nil
		}

		return err
	}

	if err := decodeInto("customer", raw.Customer, &req.Customer); err != nil {
		return nil, err
	}
	if err := decodeInto("meta", raw.Meta, &req.Meta); err != nil {
		return nil, err
	}
	if raw.Items != nil {
		req.Items = make([]itemInCreateOrderRequest, len(raw.Items))
	}
	for i, item := range raw.Items {
		if err := decodeInto(fmt.Sprintf("items[%d]", i), item, &req.Items[i]); err != nil {
			return nil, err
		}
	}

	return fields, nil
}

func typeMessage(typeErr *json.UnmarshalTypeError) string {
	switch typeErr.Type.Kind() {
	case reflect.Int, reflect.Int64:
		return "A valid integer is required."
	case reflect.String:
		return "Not a valid string."
	default:
		return "Invalid data."
	}
}

// normalize trims the free text fields.
func (r *createOrderRequest) normalize() {
	r.Customer.Name = strings.TrimSpace(r.Customer.Name)
	r.Customer.Phone = strings.TrimSpace(r.Customer.Phone)
	r.Customer.Address = strings.TrimSpace(r.Customer.Address)
	r.Customer.Comment = strings.TrimSpace(r.Customer.Comment)
	r.Customer.TelegramUsername = strings.TrimSpace(r.Customer.TelegramUsername)
	for i := range r.Items {
		r.Items[i].ProductSlug = strings.TrimSpace(r.Items[i].ProductSlug)
	}
}

// Validate validates the create order request and returns messages keyed by field.
func (r *createOrderRequest) Validate() map[string]string {
	fields := map[string]string{}

	err := validate.Struct(r)
	var vErrs validator.ValidationErrors
	if errors.As(err, &vErrs) {
		for _, fe := range vErrs {
			key := fieldKey(fe)
			if _, ok := fields[key]; !ok {
				fields[key] = message(fe)
			}
		}
	}

	for i, item := range r.Items {
		if len(item.SelectedSize) == 0 {
			continue
		}
		var s size.Size
		if err := s.UnmarshalJSON(item.SelectedSize); err != nil {
			key := fmt.Sprintf("items[%d].selectedSize", i)
			if _, ok := fields[key]; !ok {
				fields[key] = "A valid size with at most one decimal place is required."
			}
		}
	}

	return fields
}

// toModel converts a validated request to order.CreateOrderModel.
func (r *createOrderRequest) toModel(idempotencyKey string) (order.CreateOrderModel, error) {
	lines := make([]order.Line, len(r.Items))
	for i, item := range r.Items {
		var s size.Size
		if err := s.UnmarshalJSON(item.SelectedSize); err != nil {
			return order.CreateOrderModel{}, err
		}
		lines[i] = order.Line{
			ProductSlug:  item.ProductSlug,
			Quantity:     item.Qty,
			SelectedSize: s,
		}
	}

	return order.CreateOrderModel{
		Customer: order.Customer{
			Name:             r.Customer.Name,
			Phone:            r.Customer.Phone,
			Address:          r.Customer.Address,
			Comment:          r.Customer.Comment,
			TelegramUsername: r.Customer.TelegramUsername,
		},
		Meta: order.Meta{
			Locale: order.Locale(r.Meta.Locale),
			Theme:  order.Theme(r.Meta.Theme),
		},
		Lines:          lines,
		IdempotencyKey: idempotencyKey,
	}, nil
}

// fieldKey strips the root struct name from the validator namespace,
// e.g. "createOrderRequest.items[0].qty" becomes "items[0].qty".
func fieldKey(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}

	return ns
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	case "oneof":
		return fmt.Sprintf("\"%v\" is not a valid choice.", fe.Value())
	case "slug":
		return "Enter a valid slug consisting of letters, numbers, underscores or hyphens."
	case "gt":
		return "Quantity must be a positive integer."
	case "lte":
		return fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
	case "min":
		if fe.Field() == "items" {
			return "At least one item is required."
		}

		return fmt.Sprintf("Ensure this field has at least %s elements.", fe.Param())
	default:
		return "Invalid value."
	}
}

// CreateOrder handles the order submission request.
func CreateOrder(w http.ResponseWriter, r *http.Request, service service) {
	idempotencyKey := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
	if len(idempotencyKey) > maxIdempotencyKeyLen {
		response.BadRequest(w, r, map[string]string{
			IdempotencyKeyHeader: fmt.Sprintf("Ensure this header has no more than %d characters.", maxIdempotencyKeyLen),
		})

		return
	}

	req := createOrderRequest{}
	typeFields, err := decodeCreateOrderRequest(http.MaxBytesReader(w, r.Body, maxBodyBytes), &req)
	if err != nil {
		slog.WarnContext(r.Context(), "Error decoding request body for create order", "error", err)
		response.JSON(w, r, http.StatusBadRequest, response.Detail{Detail: "JSON parse error."})

		return
	}
	if len(typeFields) > 0 {
		slog.InfoContext(r.Context(), "Create order request rejected", "fields", typeFields)
		response.BadRequest(w, r, typeFields)

		return
	}

	req.normalize()
	if fields := req.Validate(); len(fields) > 0 {
		slog.InfoContext(r.Context(), "Create order request rejected", "fields", fields)
		response.BadRequest(w, r, fields)

		return
	}

	model, err := req.toModel(idempotencyKey)
	if err != nil {
		response.Error(w, r, err)

		return
	}

	created, err := service.CreateOrder(r.Context(), model)
	if err != nil {
		response.Error(w, r, err)

		return
	}

	response.JSON(w, r, http.StatusCreated, converters.OrderToResponse(created))
}
