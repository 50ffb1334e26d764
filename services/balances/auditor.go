package balances

import (
	"math"

	"github.com/bsv-blockchain/utxobalances/errors"

	safeconversion "github.com/bsv-blockchain/go-safe-conversion"
)

// LostValue returns subsidy + spent - created in signed arithmetic. A positive result is value the
// block could have paid out but that does not appear in any tracked output.
func LostValue(subsidy, spent, created uint64) (int64, error) {
	s, err := safeconversion.Uint64ToInt64(subsidy)
	if err != nil {
		return 0, errors.NewProcessingError("subsidy %d out of range", subsidy, err)
	}

	in, err := safeconversion.Uint64ToInt64(spent)
	if err != nil {
		return 0, errors.NewProcessingError("spent value %d out of range", spent, err)
	}

	out, err := safeconversion.Uint64ToInt64(created)
	if err != nil {
		return 0, errors.NewProcessingError("created value %d out of range", created, err)
	}

	if s > math.MaxInt64-in {
		return 0, errors.NewProcessingError("subsidy %d plus spent value %d overflows", subsidy, spent)
	}

	return s + in - out, nil
}
