package embedloader

import "errors"

var (
	// ErrScriptLoad reports that the shared provider script could not be
	// fetched. It feeds the per-descriptor retry counter like any other
	// attempt failure.
	ErrScriptLoad = errors.New("embed provider script load failed")

	// ErrMalformedPlaceholder reports a placeholder missing its permalink
	// or inner placeholder element. Configuration errors are logged and
	// never retried.
	ErrMalformedPlaceholder = errors.New("malformed embed placeholder")

	// ErrDuplicateNode reports a second descriptor registered for the
	// same placeholder node.
	ErrDuplicateNode = errors.New("descriptor already registered for node")
)
