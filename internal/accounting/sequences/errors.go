package sequences

import (
	"errors"

	"github.com/Emran025/supermarket-system-sub001/internal/accounting/shared"
)

func isConcurrency(err error) bool {
	return errors.Is(err, shared.ErrConcurrency)
}
