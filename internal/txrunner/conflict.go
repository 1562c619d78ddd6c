package txrunner

import "github.com/NineOwlsDevelopment/moodring-server-sub000/internal/apperr"

// conflictError converts an exhausted-retries serialization/deadlock error
// into the stable Conflict code callers are expected to handle.
func conflictError(cause error) error {
	return apperr.Wrap(apperr.Conflict, cause, "transaction could not be serialized after retrying")
}
