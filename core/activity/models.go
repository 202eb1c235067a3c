package activity

import (
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/rotinas-pei/backend/core"
)

type DayPeriod string

// Day periods
const (
	Morning   DayPeriod = "MORNING"
	Afternoon DayPeriod = "AFTERNOON"
	Evening   DayPeriod = "EVENING"
)

var (
	absoluteURLRegex = regexp.MustCompile(`(?i)^https?://`)
	unsafeFileRegex  = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
	errPositiveInt   = "this field must be a positive integer"

	ErrImageRequired = errors.New("the image is required")
	ErrImageTooLarge = errors.New("the image is too large")
	ErrNotFound      = errors.New("activity not found")
	ErrNotOwned      = errors.New("some activities are invalid for this teacher")
)

type Creator struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Activity is a virtual card of a teacher's library.
// Order ranks the card inside its creator's library.
type Activity struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	ImageURL      string    `json:"imageUrl"`
	EstimatedTime *int      `json:"estimatedTime"`
	TimeInSeconds *int      `json:"timeInSeconds"`
	DayPeriod     DayPeriod `json:"dayPeriod"`
	Order         *int      `json:"order"`
	Creator       Creator   `json:"creator"`
	CreatedAt     time.Time `json:"-"`
}

// NewActivity is the multipart form used to create an Activity.
type NewActivity struct {
	Title         string `form:"title" validate:"required,notblank"`
	EstimatedTime string `form:"estimatedTime"`
	TimeInSeconds string `form:"timeInSeconds"`
	DayPeriod     string `form:"dayPeriod" validate:"required,oneof=MORNING AFTERNOON EVENING"`

	estimatedTime *int
	timeInSeconds *int
}

// Image is an uploaded card image.
type Image struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

func (na *NewActivity) Validate(validate *validator.Validate) error {
	na.Title = core.CleanString(na.Title)
	na.DayPeriod = core.CleanString(na.DayPeriod)

	if err := validate.Struct(na); err != nil {
		return err
	}

	var fldErrs []core.FieldError
	var err error
	if na.estimatedTime, err = parsePositiveInt(na.EstimatedTime); err != nil {
		fldErrs = append(fldErrs, core.FieldError{Field: "estimatedTime", Error: errPositiveInt})
	}
	if na.timeInSeconds, err = parsePositiveInt(na.TimeInSeconds); err != nil {
		fldErrs = append(fldErrs, core.FieldError{Field: "timeInSeconds", Error: errPositiveInt})
	}
	if fldErrs != nil {
		return core.NewValidationError(nil, fldErrs...)
	}
	return nil
}

func (img Image) Validate(maxSize int64) error {
	if img.Body == nil || img.Size <= 0 {
		return core.NewValidationError(ErrImageRequired, core.FieldError{Field: "image", Error: ErrImageRequired.Error()})
	}
	if img.Size > maxSize {
		msg := "the image must be at most " + strconv.FormatInt(maxSize/(1024*1024), 10) + "MB"
		return core.NewValidationError(ErrImageTooLarge, core.FieldError{Field: "image", Error: msg})
	}
	return nil
}

// parsePositiveInt returns nil for blank values.
// Any numeric notation of a whole number is accepted, eg. "5", "5.0" or "1e2".
func parsePositiveInt(raw string) (*int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	if f != math.Trunc(f) || f < 1 || f > math.MaxInt32 {
		return nil, errors.Errorf("%s is not a positive integer", raw)
	}
	n := int(f)
	return &n, nil
}

func sanitizeFilename(name string) string {
	return unsafeFileRegex.ReplaceAllString(name, "_")
}

func isAbsoluteURL(s string) bool {
	return absoluteURLRegex.MatchString(s)
}
