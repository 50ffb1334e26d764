package errors

// ERR is the numeric code carried by every *Error.
type ERR int32

const (
	ERR_UNKNOWN            ERR = 0
	ERR_INVALID_ARGUMENT   ERR = 1
	ERR_THRESHOLD_EXCEEDED ERR = 2
	ERR_NOT_FOUND          ERR = 3
	ERR_PROCESSING         ERR = 4
	ERR_CONFIGURATION      ERR = 5
	ERR_CONTEXT            ERR = 6
	ERR_CONTEXT_CANCELED   ERR = 7
	ERR_ERROR              ERR = 9
	ERR_FATAL              ERR = 10

	// Block errors
	ERR_BLOCK_NOT_FOUND ERR = 10_10
	ERR_BLOCK_INVALID   ERR = 10_11
	ERR_BLOCK_ERROR     ERR = 10_19

	// Transaction errors
	ERR_TX_INVALID ERR = 30_01
	ERR_TX_ERROR   ERR = 30_09

	// Storage errors
	ERR_STORAGE_UNAVAILABLE ERR = 60_00
	ERR_STORAGE_NOT_STARTED ERR = 60_01
	ERR_STORAGE_ERROR       ERR = 60_09

	// Snapshot errors
	ERR_SNAPSHOT_EXISTS ERR = 70_00
)

var ERR_name = map[int32]string{
	0:     "UNKNOWN",
	1:     "INVALID_ARGUMENT",
	2:     "THRESHOLD_EXCEEDED",
	3:     "NOT_FOUND",
	4:     "PROCESSING",
	5:     "CONFIGURATION",
	6:     "CONTEXT",
	7:     "CONTEXT_CANCELED",
	9:     "ERROR",
	10:    "FATAL",
	10_10: "BLOCK_NOT_FOUND",
	10_11: "BLOCK_INVALID",
	10_19: "BLOCK_ERROR",
	30_01: "TX_INVALID",
	30_09: "TX_ERROR",
	60_00: "STORAGE_UNAVAILABLE",
	60_01: "STORAGE_NOT_STARTED",
	60_09: "STORAGE_ERROR",
	70_00: "SNAPSHOT_EXISTS",
}

func (x ERR) String() string {
	if name, ok := ERR_name[int32(x)]; ok {
		return name
	}

	return "UNKNOWN"
}
