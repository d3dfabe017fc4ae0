// Package resilience retries transient failures with exponential backoff.
//
//	err := resilience.RetryFunc(ctx, resilience.DefaultRetryConfig(), func() error {
//	    return sub.Receive(ctx)
//	})
//
// AppErrors carry their own Retryable flag, which DefaultRetryIf honors.
package resilience
