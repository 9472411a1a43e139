package store

import (
	"github.com/pkg/errors"
)

// ErrVersionConflict is returned by UpdateUser when the stored document's
// version no longer matches the version the caller read. The caller raced a
// concurrent update and must re-read before retrying.
var ErrVersionConflict = errors.New("document version conflict")
