// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package frame

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// timeLayouts are the accepted textual timestamp formats, tried in
// order. Covers ISO forms and the Brazilian day-first form the product
// accepts in uploads.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006",
}

// truthyStrings are the constant-fill spellings accepted as true for
// boolean targets, matching the product UI (Portuguese included).
var truthyStrings = map[string]bool{
	"true": true, "1": true, "t": true, "sim": true, "s": true,
}

// Convert coerces v to the target kind.
//
// Description:
//
//	Explicit per-pair conversion. A conversion that cannot be
//	performed yields Null rather than an error or panic; this is the
//	retype policy — a type change always succeeds per column, with
//	unconvertible cells becoming missing values.
//
// Outputs:
//
//	Value - A value of kind target, or Null.
func Convert(v Value, target Kind) Value {
	if v.IsNull() || target == KindNull {
		return Null()
	}
	if v.Kind == target {
		return v
	}
	switch target {
	case KindFloat:
		return toFloat(v)
	case KindInt:
		return toInt(v)
	case KindString:
		return toString(v)
	case KindTime:
		return toTime(v)
	case KindBool:
		return toBool(v)
	default:
		return Null()
	}
}

func toFloat(v Value) Value {
	switch v.Kind {
	case KindInt:
		return Float(float64(v.Int))
	case KindBool:
		if v.Bool {
			return Float(1)
		}
		return Float(0)
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return Null()
		}
		return Float(f)
	default:
		return Null()
	}
}

func toInt(v Value) Value {
	switch v.Kind {
	case KindFloat:
		// Only exact integral floats cast; fractional cells go missing.
		i := int64(v.Float)
		if float64(i) != v.Float {
			return Null()
		}
		return Int(i)
	case KindBool:
		if v.Bool {
			return Int(1)
		}
		return Int(0)
	case KindString:
		s := strings.TrimSpace(v.Str)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return Int(i)
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return toInt(Float(f))
		}
		return Null()
	case KindTime:
		return Int(v.Time.Unix())
	default:
		return Null()
	}
}

func toString(v Value) Value {
	switch v.Kind {
	case KindBool:
		return String(strconv.FormatBool(v.Bool))
	case KindInt:
		return String(strconv.FormatInt(v.Int, 10))
	case KindFloat:
		return String(strconv.FormatFloat(v.Float, 'g', -1, 64))
	case KindTime:
		return String(v.Time.Format(time.RFC3339Nano))
	default:
		return Null()
	}
}

func toTime(v Value) Value {
	switch v.Kind {
	case KindString:
		s := strings.TrimSpace(v.Str)
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return Time(t)
			}
		}
		return Null()
	case KindInt:
		// Integers are Unix seconds.
		return Time(time.Unix(v.Int, 0).UTC())
	default:
		return Null()
	}
}

func toBool(v Value) Value {
	switch v.Kind {
	case KindInt:
		return Bool(v.Int != 0)
	case KindFloat:
		return Bool(v.Float != 0)
	case KindString:
		s := strings.ToLower(strings.TrimSpace(v.Str))
		if b, err := strconv.ParseBool(s); err == nil {
			return Bool(b)
		}
		if truthyStrings[s] {
			return Bool(true)
		}
		switch s {
		case "nao", "não", "n", "f":
			return Bool(false)
		}
		return Null()
	default:
		return Null()
	}
}

// CoerceConstant converts a raw constant-fill string to the target
// column type.
//
// Description:
//
//	Unlike Convert, constant-fill is strict: the operation must name
//	the incompatible value instead of silently inserting Null. Boolean
//	targets never fail — any spelling outside the truthy set is false,
//	matching the original fill behavior.
//
// Inputs:
//
//	raw - The constant as typed by the user.
//	target - The column type to coerce into.
//
// Outputs:
//
//	Value - A value of kind target.
//	error - Non-nil when raw cannot represent the target type.
func CoerceConstant(raw string, target Kind) (Value, error) {
	s := strings.TrimSpace(raw)
	switch target {
	case KindFloat:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Null(), fmt.Errorf("value %q is not numeric", raw)
		}
		return Float(f), nil
	case KindInt:
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return Int(i), nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			if v := toInt(Float(f)); !v.IsNull() {
				return v, nil
			}
		}
		return Null(), fmt.Errorf("value %q is not an integer", raw)
	case KindTime:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return Time(t), nil
			}
		}
		return Null(), fmt.Errorf("value %q is not a timestamp", raw)
	case KindBool:
		return Bool(truthyStrings[strings.ToLower(s)]), nil
	case KindString, KindNull:
		return String(raw), nil
	default:
		return Null(), fmt.Errorf("unsupported target type %s", target)
	}
}
