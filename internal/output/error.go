package output

import (
	"fmt"
	"io"
	"sort"
	"strings"

	remiterr "github.com/mrz1836/remit/pkg/errors"
)

// ErrorOutput represents a structured error for JSON output.
type ErrorOutput struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error details. Message is the user-facing text;
// Cause carries the technical chain for logs and scripts.
type ErrorDetail struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Cause      string            `json:"cause,omitempty"`
	Details    map[string]string `json:"details,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`
	ExitCode   int               `json:"exit_code"`
}

// FormatError writes err for display. User cancellations write nothing.
func FormatError(w io.Writer, err error, format Format) error {
	if err == nil || remiterr.IsSilent(err) {
		return nil
	}

	detail := errorDetail(err)
	if format == FormatJSON {
		return PrintJSON(w, ErrorOutput{Error: detail})
	}
	return formatErrorText(w, detail)
}

func errorDetail(err error) ErrorDetail {
	detail := ErrorDetail{
		Code:     remiterr.Code(err),
		Message:  remiterr.UserMessage(err),
		ExitCode: remiterr.ExitCode(err),
	}

	var se *remiterr.RemitError
	if remiterr.As(err, &se) {
		detail.Details = se.Details
		detail.Suggestion = se.Suggestion
	}
	if raw := err.Error(); raw != detail.Message {
		detail.Cause = raw
	}
	return detail
}

func formatErrorText(w io.Writer, detail ErrorDetail) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Error: %s\n", detail.Message)

	if len(detail.Details) > 0 {
		keys := make([]string, 0, len(detail.Details))
		for k := range detail.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		sb.WriteString("\nDetails:\n")
		for _, k := range keys {
			fmt.Fprintf(&sb, "  %s: %s\n", k, detail.Details[k])
		}
	}

	if detail.Suggestion != "" {
		fmt.Fprintf(&sb, "\nSuggestion: %s\n", detail.Suggestion)
	}

	_, err := io.WriteString(w, sb.String())
	return err
}
