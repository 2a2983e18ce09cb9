// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package razor

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// field is one decoded header letter and its value.
type field struct {
	axis  Axis
	value float64
}

// decodeStrict decodes the header and comma separated body of a response.
// Every header letter must name an axis and own exactly one numeric field.
func decodeStrict(header, body string) ([]field, error) {
	if header == "" {
		return nil, fmt.Errorf("%w: empty header", ErrBadFrame)
	}
	values := strings.Split(body, ",")
	if len(values) < len(header) {
		return nil, fmt.Errorf("%w: header %q declares %d fields, got %d",
			ErrMissingField, header, len(header), len(values))
	}
	if len(values) > len(header) {
		return nil, fmt.Errorf("%w: header %q declares %d fields, got %d",
			ErrBadFrame, header, len(header), len(values))
	}

	out := make([]field, 0, len(header))
	for i := 0; i < len(header); i++ {
		axis, ok := AxisFromHeader(header[i])
		if !ok {
			return nil, fmt.Errorf("%w: %q at position %d", ErrUnknownAxis, header[i], i)
		}
		num := strings.TrimSpace(values[i])
		if decimalPrefix(num) != len(num) {
			return nil, fmt.Errorf("%w: %s field %q", ErrBadNumber, axis, values[i])
		}
		v, err := strconv.ParseFloat(num, 64)
		if err != nil || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: %s field %q", ErrBadNumber, axis, values[i])
		}
		out = append(out, field{axis: axis, value: v})
	}
	return out, nil
}

// decodeLenient mirrors the firmware library's permissive reader. Unknown
// letters are skipped without consuming a field, so later letters take
// earlier values. Unparsable numbers become 0 and letters without a field
// are left out.
func decodeLenient(header, body string) []field {
	values := strings.Split(body, ",")
	next := 0
	var out []field
	for i := 0; i < len(header); i++ {
		axis, ok := AxisFromHeader(header[i])
		if !ok {
			continue
		}
		if next >= len(values) {
			break
		}
		out = append(out, field{axis: axis, value: leadingFloat(values[next])})
		next++
	}
	return out
}

// decimalPrefix returns the length of the longest prefix of s shaped like
// [+-]digits[.digits], or 0 if s does not start with a number. NaN, Inf,
// exponents and hex floats are not numbers on this link.
func decimalPrefix(s string) int {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := 0
	for ; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		digits++
	}
	if i < len(s) && s[i] == '.' {
		j := i + 1
		frac := 0
		for ; j < len(s) && s[j] >= '0' && s[j] <= '9'; j++ {
			frac++
		}
		if digits+frac > 0 {
			digits += frac
			i = j
		}
	}
	if digits == 0 {
		return 0
	}
	return i
}

// leadingFloat parses the longest decimal prefix of s, or returns 0.
func leadingFloat(s string) float64 {
	s = strings.TrimSpace(s)
	n := decimalPrefix(s)
	if n == 0 {
		return 0
	}
	v, err := strconv.ParseFloat(s[:n], 64)
	if err != nil || math.IsInf(v, 0) {
		return 0
	}
	return v
}
