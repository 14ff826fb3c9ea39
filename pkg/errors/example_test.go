package errors_test

import (
	"fmt"
	"io"

	"github.com/ajitpratap0/oganesson/pkg/errors"
)

// Example demonstrates basic error creation.
func Example() {
	err := errors.New(errors.ErrorTypeExhausted, "no free compressor").
		WithDetail("pool", "zstd").
		WithDetail("size", 4)

	fmt.Println(err.Error())

	// Output:
	// exhausted: no free compressor
}

// ExampleWrap shows how to wrap existing errors with context.
func ExampleWrap() {
	err := errors.Wrap(io.ErrUnexpectedEOF, errors.ErrorTypeCompression, "failed to decompress block").
		WithDetail("algorithm", "lz4")

	if errors.IsType(err, errors.ErrorTypeCompression) {
		fmt.Println("compression error")
	}
	fmt.Println(err)

	// Output:
	// compression error
	// compression: failed to decompress block: unexpected EOF
}

// ExampleIsRetryable shows how to check if an error is retryable.
func ExampleIsRetryable() {
	busy := errors.New(errors.ErrorTypeExhausted, "pool exhausted")
	bad := errors.Newf(errors.ErrorTypeConfig, "size must be >= 0, got %d", -1)

	fmt.Println(errors.IsRetryable(busy))
	fmt.Println(errors.IsRetryable(bad), bad)

	// Output:
	// true
	// false config: size must be >= 0, got -1
}

// Example_errorChain shows how contexts nest when errors are wrapped twice.
func Example_errorChain() {
	err := errors.Wrap(loadPool(), errors.ErrorTypeInternal, "benchmark setup failed")
	fmt.Println(err)

	// Output:
	// internal: benchmark setup failed: config: failed to load pool config: validation: unknown policy
}

func loadPool() error {
	cause := errors.New(errors.ErrorTypeValidation, "unknown policy")
	return errors.Wrap(cause, errors.ErrorTypeConfig, "failed to load pool config")
}
