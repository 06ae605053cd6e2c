package domain

import "errors"

var (
	// ErrInvalidRange is returned when a block interval cannot be partitioned
	ErrInvalidRange = errors.New("invalid block range")

	// ErrTransientRPC is returned for network or provider failures that may succeed on retry
	ErrTransientRPC = errors.New("transient rpc error")

	// ErrRangeTooLarge is returned when the provider rejects a log query because the block span is too wide
	ErrRangeTooLarge = errors.New("block range too large")

	// ErrClassification is returned when the bytecode of an address could not be retrieved
	ErrClassification = errors.New("address classification failed")

	// ErrAggregation is returned when an account's batched reads could not be completed
	ErrAggregation = errors.New("account aggregation failed")

	// ErrCallFailed is returned when a call inside a multicall batch reports failure
	ErrCallFailed = errors.New("multicall call failed")

	// ErrUnknownNetwork is returned when the selected network has no configuration
	ErrUnknownNetwork = errors.New("unknown network")
)
