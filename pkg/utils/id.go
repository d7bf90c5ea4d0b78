// Package utils holds small helpers with no home of their own.
package utils

import "github.com/google/uuid"

// NewUUID7 returns a time-ordered UUID, so snapshot ids sort by creation.
func NewUUID7() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}

	return id.String(), nil
}
