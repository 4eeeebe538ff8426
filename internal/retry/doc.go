// Package retry provides exponential backoff retry for calls to the
// challenge key store backend.
//
// Attempts stop when the operation succeeds, when the error is not
// retryable, when the attempt budget is spent or when the context ends.
//
//	err := retry.Do(ctx, cfg, func(ctx context.Context) error {
//	    return rdb.Del(ctx, key).Err()
//	}, &retry.Options{ShouldRetry: retry.IsNetworkError})
package retry
