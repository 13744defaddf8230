package transform

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Ometra-Hela/Alize/internal/model"
)

// RangeSize returns the count of numbers covered by r, inclusive of both ends.
func RangeSize(r model.NumberRange) (int, error) {
	start, end, err := parseRange(r)
	if err != nil {
		return 0, err
	}

	return int(end-start) + 1, nil
}

// CountNumbers sums the sizes of all ranges.
func CountNumbers(ranges []model.NumberRange) (int, error) {
	total := 0

	for _, r := range ranges {
		size, err := RangeSize(r)
		if err != nil {
			return 0, err
		}

		total += size
	}

	return total, nil
}

// ExpandRanges lists every number of every range, keeping the zero padding of the range start.
func ExpandRanges(ranges []model.NumberRange) ([]string, error) {
	total, err := CountNumbers(ranges)
	if err != nil {
		return nil, err
	}

	numbers := make([]string, 0, total)

	for _, r := range ranges {
		start, end, _ := parseRange(r)
		width := len(strings.TrimSpace(r.Start))

		for n := start; n <= end; n++ {
			numbers = append(numbers, fmt.Sprintf("%0*d", width, n))
		}
	}

	return numbers, nil
}

// CompactNumbers folds consecutive numbers of equal width into ranges, preserving input order.
func CompactNumbers(numbers []string) []model.NumberRange {
	ranges := make([]model.NumberRange, 0, len(numbers))

	var (
		prev    uint64
		prevLen int
	)

	for _, raw := range numbers {
		number := strings.TrimSpace(raw)

		value, err := strconv.ParseUint(number, 10, 64)
		if err != nil {
			ranges = append(ranges, model.NumberRange{Start: number, End: number})
			prevLen = 0

			continue
		}

		last := len(ranges) - 1
		if last >= 0 && prevLen == len(number) && value == prev+1 {
			ranges[last].End = number
		} else {
			ranges = append(ranges, model.NumberRange{Start: number, End: number})
		}

		prev, prevLen = value, len(number)
	}

	return ranges
}

func SingleNumbers(numbers []string) []model.NumberRange {
	ranges := make([]model.NumberRange, 0, len(numbers))
	for _, n := range numbers {
		ranges = append(ranges, model.NumberRange{Start: n, End: n})
	}

	return ranges
}

func parseRange(r model.NumberRange) (uint64, uint64, error) {
	startRaw, endRaw := strings.TrimSpace(r.Start), strings.TrimSpace(r.End)

	if startRaw == "" || endRaw == "" {
		return 0, 0, model.NewValidationError("number range %q-%q has an empty bound", r.Start, r.End)
	}

	if len(startRaw) != len(endRaw) {
		return 0, 0, model.NewValidationError("number range %s-%s bounds differ in length", startRaw, endRaw)
	}

	start, err := strconv.ParseUint(startRaw, 10, 64)
	if err != nil {
		return 0, 0, model.NewValidationError("number range start %q is not numeric", startRaw)
	}

	end, err := strconv.ParseUint(endRaw, 10, 64)
	if err != nil {
		return 0, 0, model.NewValidationError("number range end %q is not numeric", endRaw)
	}

	if end < start {
		return 0, 0, model.NewValidationError("number range %s-%s ends before it starts", startRaw, endRaw)
	}

	return start, end, nil
}
