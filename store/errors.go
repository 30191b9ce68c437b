package store

import (
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
)

var duplicateKeyErrorCodes = []int{11000, 11001, 12582}

// IsDuplicateKeyError reports whether err, or any error it wraps, is a unique index violation
func IsDuplicateKeyError(err error) bool {
	var serverErr mongo.ServerError
	if !errors.As(err, &serverErr) {
		return false
	}
	for _, code := range duplicateKeyErrorCodes {
		if serverErr.HasErrorCode(code) {
			return true
		}
	}
	return serverErr.HasErrorCodeWithMessage(16460, " E11000 ")
}
