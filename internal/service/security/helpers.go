package security

import (
	"errors"

	"principal-registry/internal/domain"
)

func isNotFound(err error) bool {
	var nf *domain.NotFoundError
	return errors.As(err, &nf)
}
