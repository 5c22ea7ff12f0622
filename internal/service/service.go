package service

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"reflect"
	"strings"
	"time"

	"motoexpress/internal/apperr"
	"motoexpress/internal/repository"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report json field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// validateInput runs struct tags and maps failures to VALIDATION_ERROR.
func validateInput(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			return apperr.Validation(field + " is required")
		case "oneof":
			return apperr.Validation(fmt.Sprintf("%s must be one of [%s]", field, fe.Param()))
		default:
			return apperr.Validation(fmt.Sprintf("%s failed %s validation", field, fe.Tag()))
		}
	}
	return apperr.Validation(err.Error())
}

// dbErr maps a repository error, turning a missing record into NotFound(msg).
func dbErr(err error, msg string) error {
	if err == nil {
		return nil
	}
	if repository.IsNotFound(err) {
		return apperr.NotFound(msg)
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return apperr.Internal(err)
}

func encodeMetadata(m map[string]interface{}) string {
	if len(m) == 0 {
		return ""
	}
	b, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	return string(b)
}

func utcNow() time.Time { return time.Now().UTC() }

const (
	deliveryCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	deliveryCodeLength   = 8
	deliveryCodeAttempts = 10
)

// newDeliveryCode returns a random uppercase alphanumeric code.
func newDeliveryCode() (string, error) {
	max := big.NewInt(int64(len(deliveryCodeAlphabet)))
	b := make([]byte, deliveryCodeLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = deliveryCodeAlphabet[n.Int64()]
	}
	return string(b), nil
}

func clampPage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}
