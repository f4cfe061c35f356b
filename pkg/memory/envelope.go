package memory

/*
Result is the uniform response envelope every store operation returns.
Expected failures are reported inside the envelope instead of as raised
errors, so the transport layer can marshal any Result to JSON as-is without
caring whether the operation succeeded.
*/
type Result map[string]any

// OK builds a success envelope with any caller-supplied fields merged in.
func OK(fields map[string]any) Result {
	res := Result{"success": true}

	for k, v := range fields {
		res[k] = v
	}

	return res
}

// Fail builds an error envelope from a StoreError, merging any extra fields.
func Fail(err *StoreError, fields ...map[string]any) Result {
	res := Result{
		"success": false,
		"error":   string(err.Kind),
		"message": err.Message,
	}

	if err.Details != "" {
		res["details"] = err.Details
	}

	for _, extra := range fields {
		for k, v := range extra {
			res[k] = v
		}
	}

	return res
}

// Ok reports whether the envelope is a success envelope.
func (r Result) Ok() bool {
	ok, _ := r["success"].(bool)
	return ok
}
