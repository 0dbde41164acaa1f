package ensemble

import "errors"

var (
	// ErrUnidentifiableIndex means the index pattern did not yield an integer.
	ErrUnidentifiableIndex = errors.New("invalid realization, unidentifiable index")
	// ErrMissingStatus means the realization directory has no STATUS file.
	ErrMissingStatus = errors.New("invalid realization, missing status marker")
	// ErrNoParametersFile means parameters.txt was never registered.
	ErrNoParametersFile = errors.New("no parameters file registered")
	// ErrNoSummaryReader means a summary file exists but nothing can decode it.
	ErrNoSummaryReader = errors.New("no summary reader configured")
	// ErrNoRealizations means an ensemble glob produced no valid realization.
	ErrNoRealizations = errors.New("no valid realizations found")
	// ErrUnknownBatchOp means a batch step named an operation that does not exist.
	ErrUnknownBatchOp = errors.New("unknown batch operation")
	// ErrInvalidBatchArgs means a batch step is missing or mistypes an argument.
	ErrInvalidBatchArgs = errors.New("invalid batch arguments")
	// ErrUnknownStatistic means an aggregation statistic is not supported.
	ErrUnknownStatistic = errors.New("unknown statistic")
	// ErrUnknownTimeIndex means a time index name is not supported.
	ErrUnknownTimeIndex = errors.New("unknown time index")
)
