package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mrz1836/taskflow/internal/constants"
	"github.com/mrz1836/taskflow/internal/errors"
)

// dateLayout is the short form accepted for start and due dates.
const dateLayout = "2006-01-02"

// parseStatus accepts a status name in any case.
func parseStatus(raw string) (constants.TaskStatus, error) {
	status, ok := constants.ParseTaskStatus(raw)
	if !ok {
		return "", errors.NewExitCode2Error(fmt.Errorf("%w: %q (valid: %s)", errors.ErrInvalidStatus, raw, statusNames()))
	}
	return status, nil
}

func statusNames() string {
	names := make([]string, 0, len(constants.AllTaskStatuses()))
	for _, s := range constants.AllTaskStatuses() {
		names = append(names, string(s))
	}
	return strings.Join(names, ", ")
}

// parseDate accepts YYYY-MM-DD or RFC 3339. An empty value yields the zero
// time, which clears the date on update.
func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, errors.NewExitCode2Error(fmt.Errorf("%w: date %q must be YYYY-MM-DD or RFC 3339", errors.ErrInvalidArgument, raw))
	}
	return t.UTC(), nil
}

// parseOptionalDate returns nil for an empty value.
func parseOptionalDate(raw string) (*time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil //nolint:nilnil // absent date
	}
	t, err := parseDate(raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// parseDependencyType accepts "finish-to-start" as well as "finish_to_start".
func parseDependencyType(raw string) constants.DependencyType {
	return constants.DependencyType(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), "-", "_"))
}

// parseLimitPair parses "in_progress=3". A value of "none" or "-" clears the
// per-status ceiling.
func parseLimitPair(raw string) (string, *int, error) {
	status, value, ok := strings.Cut(raw, "=")
	if !ok || strings.TrimSpace(status) == "" {
		return "", nil, errors.NewExitCode2Error(fmt.Errorf("%w: limit %q must be status=N", errors.ErrInvalidArgument, raw))
	}
	status = strings.ToLower(strings.TrimSpace(status))
	value = strings.TrimSpace(value)
	if value == "none" || value == "-" {
		return status, nil, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return "", nil, errors.NewExitCode2Error(fmt.Errorf("%w: limit %q must be status=N", errors.ErrInvalidArgument, raw))
	}
	return status, &n, nil
}
