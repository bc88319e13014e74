package errors

import (
	"fmt"
	"strings"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ClassifyRPC converts a gRPC call error into the bridge's error model. Codes
// that indicate the exchange never completed (server unreachable, deadline,
// cancellation) become TransportError; every other code means the remote side
// received the call and signaled a failure, which is a RemoteFault.
func ClassifyRPC(err error) error {
	if err == nil {
		return nil
	}

	st, ok := status.FromError(err)
	if !ok {
		// Not a gRPC status, fall back to generic classification
		return Classify("invoke", err)
	}

	switch st.Code() {
	case codes.Canceled:
		return &TransportError{Op: "invoke", Cancelled: true, Err: err}
	case codes.Unavailable, codes.DeadlineExceeded:
		return &TransportError{Op: "invoke", Err: err}
	}

	return &RemoteFault{
		Code:    st.Code().String(),
		Message: st.Message(),
		Details: formatStatusDetails(st),
		Err:     err,
	}
}

// formatStatusDetails extracts and formats rich error details from a gRPC status.
func formatStatusDetails(st *status.Status) string {
	details := st.Details()
	if len(details) == 0 {
		return ""
	}

	var sections []string

	for _, detail := range details {
		switch d := detail.(type) {
		case *errdetails.BadRequest:
			if fvs := d.GetFieldViolations(); len(fvs) > 0 {
				lines := []string{"Field Violations:"}
				for _, fv := range fvs {
					lines = append(lines, fmt.Sprintf("  %s: %s", fv.GetField(), fv.GetDescription()))
				}
				sections = append(sections, strings.Join(lines, "\n"))
			}

		case *errdetails.ErrorInfo:
			lines := []string{fmt.Sprintf("Error Info: %s", d.GetReason())}
			if d.GetDomain() != "" {
				lines = append(lines, fmt.Sprintf("  Domain: %s", d.GetDomain()))
			}
			for k, v := range d.GetMetadata() {
				lines = append(lines, fmt.Sprintf("  %s: %s", k, v))
			}
			sections = append(sections, strings.Join(lines, "\n"))

		case *errdetails.PreconditionFailure:
			if vs := d.GetViolations(); len(vs) > 0 {
				lines := []string{"Precondition Failures:"}
				for _, v := range vs {
					lines = append(lines, fmt.Sprintf("  [%s] %s: %s", v.GetType(), v.GetSubject(), v.GetDescription()))
				}
				sections = append(sections, strings.Join(lines, "\n"))
			}

		case *errdetails.RetryInfo:
			if delay := d.GetRetryDelay(); delay != nil {
				sections = append(sections, fmt.Sprintf("Retry after: %v", delay.AsDuration()))
			}

		case *errdetails.RequestInfo:
			sections = append(sections, fmt.Sprintf("Request ID: %s", d.GetRequestId()))

		default:
			sections = append(sections, fmt.Sprintf("Detail: %v", detail))
		}
	}

	return strings.Join(sections, "\n\n")
}
