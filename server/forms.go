package server

import (
	"dealspot-web/api"
	"dealspot-web/format"
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("form"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// check validates a form struct and returns field errors keyed by form name.
func (s *Server) check(form any) map[string]string {
	err := s.validate.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"form": "Invalid form"}
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = fieldMessage(fe)
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("Must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("Must be at most %s", fe.Param())
	case "gte":
		return fmt.Sprintf("Must be %s or more", fe.Param())
	case "lte":
		return fmt.Sprintf("Must be %s or less", fe.Param())
	case "url", "http_url":
		return "Must be a valid URL"
	case "latitude":
		return "Must be a latitude between -90 and 90"
	case "longitude":
		return "Must be a longitude between -180 and 180"
	default:
		return "Invalid value"
	}
}

func formInt(v url.Values, key string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(v.Get(key)), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func formText(v url.Values, key string) string {
	return strings.TrimSpace(v.Get(key))
}

type sessionForm struct {
	Token string `form:"token" validate:"required,max=8192"`
}

type ratingForm struct {
	RatingID int64   `form:"rating_id" validate:"gte=0"`
	Score    int     `form:"score" validate:"required,min=1,max=5"`
	Comment  string  `form:"comment" validate:"max=1000"`
	TagIDs   []int64 `form:"tag" validate:"max=10,dive,gt=0"`
	NewTag   string  `form:"new_tag" validate:"omitempty,min=2,max=40"`
}

func bindRating(v url.Values) ratingForm {
	f := ratingForm{
		RatingID: formInt(v, "rating_id"),
		Score:    int(formInt(v, "score")),
		Comment:  formText(v, "comment"),
		NewTag:   formText(v, "new_tag"),
	}
	for _, raw := range v["tag"] {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			f.TagIDs = append(f.TagIDs, id)
		}
	}
	return f
}

func (f ratingForm) input() api.RatingInput {
	return api.RatingInput{Score: f.Score, Comment: f.Comment, TagIDs: f.TagIDs}
}

type reportForm struct {
	Reason string `form:"reason" validate:"required,min=3,max=500"`
}

type locationForm struct {
	Query string `form:"query" validate:"required,min=2,max=200"`
}

type coordinateForm struct {
	Lat string `form:"lat" validate:"required,latitude"`
	Lng string `form:"lng" validate:"required,longitude"`
}

type disputeForm struct {
	Message string `form:"message" validate:"required,min=10,max=2000"`
}

type banForm struct {
	UserID string `form:"user_id" validate:"required,max=128"`
	Reason string `form:"reason" validate:"required,min=3,max=500"`
}

type restaurantForm struct {
	Name        string `form:"name" validate:"required,max=120"`
	Description string `form:"description" validate:"max=2000"`
	Address     string `form:"address" validate:"required,max=300"`
	Phone       string `form:"phone" validate:"max=40"`
	ImageURL    string `form:"image_url" validate:"omitempty,http_url,max=500"`
	Latitude    string `form:"latitude" validate:"omitempty,latitude"`
	Longitude   string `form:"longitude" validate:"omitempty,longitude"`
}

func bindRestaurant(v url.Values) restaurantForm {
	return restaurantForm{
		Name:        formText(v, "name"),
		Description: formText(v, "description"),
		Address:     formText(v, "address"),
		Phone:       formText(v, "phone"),
		ImageURL:    formText(v, "image_url"),
		Latitude:    formText(v, "latitude"),
		Longitude:   formText(v, "longitude"),
	}
}

func (f restaurantForm) input() api.RestaurantInput {
	lat, _ := strconv.ParseFloat(f.Latitude, 64)
	lng, _ := strconv.ParseFloat(f.Longitude, 64)
	return api.RestaurantInput{
		Name:        f.Name,
		Description: f.Description,
		Address:     f.Address,
		Phone:       f.Phone,
		ImageURL:    f.ImageURL,
		Latitude:    lat,
		Longitude:   lng,
	}
}

type sectionForm struct {
	Name     string `form:"name" validate:"required,max=80"`
	Position int    `form:"position" validate:"gte=0,lte=1000"`
}

type itemForm struct {
	Name        string `form:"name" validate:"required,max=120"`
	Description string `form:"description" validate:"max=500"`
	Price       string `form:"price" validate:"required,max=20"`
}

// input converts the validated item form, adding a price error if needed.
func (f itemForm) input(errs map[string]string) (api.MenuItemInput, map[string]string) {
	cents, err := format.PriceToCents(f.Price)
	if err != nil {
		errs = addError(errs, "price", "Enter a price like 12.95")
	}
	return api.MenuItemInput{Name: f.Name, Description: f.Description, PriceCents: cents}, errs
}

type dealForm struct {
	Title         string `form:"title" validate:"required,max=120"`
	Description   string `form:"description" validate:"max=1000"`
	ImageURL      string `form:"image_url" validate:"omitempty,http_url,max=500"`
	Price         string `form:"price" validate:"required,max=20"`
	OriginalPrice string `form:"original_price" validate:"max=20"`
	StartsAt      string `form:"starts_at" validate:"required"`
	EndsAt        string `form:"ends_at" validate:"required"`
}

func bindDeal(v url.Values) dealForm {
	return dealForm{
		Title:         formText(v, "title"),
		Description:   formText(v, "description"),
		ImageURL:      formText(v, "image_url"),
		Price:         formText(v, "price"),
		OriginalPrice: formText(v, "original_price"),
		StartsAt:      formText(v, "starts_at"),
		EndsAt:        formText(v, "ends_at"),
	}
}

// input parses prices and the activation window of a validated deal form.
func (f dealForm) input(errs map[string]string, loc *time.Location) (api.DealInput, map[string]string) {
	in := api.DealInput{Title: f.Title, Description: f.Description, ImageURL: f.ImageURL}

	var err error
	if in.PriceCents, err = format.PriceToCents(f.Price); err != nil {
		errs = addError(errs, "price", "Enter a price like 12.95")
	}
	if f.OriginalPrice != "" {
		if in.OriginalPriceCents, err = format.PriceToCents(f.OriginalPrice); err != nil {
			errs = addError(errs, "original_price", "Enter a price like 19.95")
		} else if in.OriginalPriceCents <= in.PriceCents {
			errs = addError(errs, "original_price", "Must be more than the deal price")
		}
	}
	if in.StartsAt, err = format.ParseDateTimeInput(f.StartsAt, loc); err != nil {
		errs = addError(errs, "starts_at", "Enter a valid date")
	}
	if in.EndsAt, err = format.ParseDateTimeInput(f.EndsAt, loc); err != nil {
		errs = addError(errs, "ends_at", "Enter a valid date")
	} else if !in.StartsAt.IsZero() && in.EndsAt.Before(in.StartsAt) {
		errs = addError(errs, "ends_at", "Must not be before the start date")
	}
	return in, errs
}

func addError(errs map[string]string, field, msg string) map[string]string {
	if errs == nil {
		errs = make(map[string]string)
	}
	if _, ok := errs[field]; !ok {
		errs[field] = msg
	}
	return errs
}
