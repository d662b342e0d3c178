package connectors

import "fmt"

// BinanceFuturesErrorCodes maps USDⓈ-M futures error codes to their names.
var BinanceFuturesErrorCodes = map[int]string{
	-1000: "UNKNOWN",                         // Unknown error while processing the request
	-1001: "DISCONNECTED",                    // Internal error; unable to process the request
	-1002: "UNAUTHORIZED",                    // Not authorized to execute this request
	-1003: "TOO_MANY_REQUESTS",               // Request weight exceeded
	-1006: "UNEXPECTED_RESP",                 // Unexpected response from the message bus
	-1007: "TIMEOUT",                         // Backend timeout; execution status unknown
	-1015: "TOO_MANY_ORDERS",                 // Order rate limit exceeded
	-1021: "INVALID_TIMESTAMP",               // Timestamp outside recvWindow or ahead of server time
	-1022: "INVALID_SIGNATURE",               // Signature for this request is not valid
	-1102: "MANDATORY_PARAM_EMPTY_OR_MALFORMED",
	-1111: "BAD_PRECISION",                   // Precision is over the maximum defined for this asset
	-1116: "INVALID_ORDER_TYPE",
	-1117: "INVALID_SIDE",
	-1121: "BAD_SYMBOL",
	-2010: "NEW_ORDER_REJECTED",
	-2011: "CANCEL_REJECTED",
	-2013: "NO_SUCH_ORDER",
	-2014: "BAD_API_KEY_FMT",
	-2015: "REJECTED_MBX_KEY",                // Invalid API key, IP, or permissions
	-2019: "MARGIN_NOT_SUFFICIENT",
	-2021: "ORDER_WOULD_IMMEDIATELY_TRIGGER", // Stop price would trigger immediately
	-2022: "REDUCE_ONLY_REJECT",
	-4003: "QUANTITY_LESS_THAN_ZERO",
	-4014: "PRICE_NOT_INCREASED_BY_TICK_SIZE",
	-4164: "MIN_NOTIONAL",                    // Order notional below the symbol minimum
}

// GetErrorMsg returns the name for a futures error code, or a generic name
// that still carries the code.
func GetErrorMsg(code int) string {
	if msg, ok := BinanceFuturesErrorCodes[code]; ok {
		return msg
	}
	return fmt.Sprintf("UNKNOWN_BINANCE_ERROR_%d", code)
}
