/*
 *	Copyright 2023 Jan Pfeifer
 *
 *	Licensed under the Apache License, Version 2.0 (the "License");
 *	you may not use this file except in compliance with the License.
 *	You may obtain a copy of the License at
 *
 *	http://www.apache.org/licenses/LICENSE-2.0
 *
 *	Unless required by applicable law or agreed to in writing, software
 *	distributed under the License is distributed on an "AS IS" BASIS,
 *	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *	See the License for the specific language governing permissions and
 *	limitations under the License.
 */

package shapes

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
)

// IsInteger returns whether dtype is a signed or unsigned integer. Bool is not an integer.
func IsInteger(dtype dtypes.DType) bool {
	return IsSignedInteger(dtype) || IsUnsigned(dtype)
}

// IsSignedInteger returns whether dtype is one of Int8, Int16, Int32 or Int64.
func IsSignedInteger(dtype dtypes.DType) bool {
	switch dtype {
	case dtypes.Int8, dtypes.Int16, dtypes.Int32, dtypes.Int64:
		return true
	}
	return false
}

// IsUnsigned returns whether dtype is one of Uint8, Uint16, Uint32 or Uint64.
func IsUnsigned(dtype dtypes.DType) bool {
	switch dtype {
	case dtypes.Uint8, dtypes.Uint16, dtypes.Uint32, dtypes.Uint64:
		return true
	}
	return false
}

// IsFloat returns whether dtype is a real floating point type, including the half-precision ones.
func IsFloat(dtype dtypes.DType) bool {
	switch dtype {
	case dtypes.Float16, dtypes.BFloat16, dtypes.Float32, dtypes.Float64:
		return true
	}
	return false
}

// IsHalfPrecision returns whether dtype is Float16 or BFloat16.
func IsHalfPrecision(dtype dtypes.DType) bool {
	return dtype == dtypes.Float16 || dtype == dtypes.BFloat16
}

// IsComplex returns whether dtype is Complex64 or Complex128.
func IsComplex(dtype dtypes.DType) bool {
	return dtype == dtypes.Complex64 || dtype == dtypes.Complex128
}

// IsNumeric returns whether dtype is an integer, float or complex type.
func IsNumeric(dtype dtypes.DType) bool {
	return IsInteger(dtype) || IsFloat(dtype) || IsComplex(dtype)
}

// IsRealNumeric returns whether dtype is an integer or float type.
func IsRealNumeric(dtype dtypes.DType) bool {
	return IsInteger(dtype) || IsFloat(dtype)
}

// BitWidth returns the number of bits used to store one element of dtype.
func BitWidth(dtype dtypes.DType) int {
	if dtype == dtypes.Bool {
		return 8
	}
	return int(dtype.Size()) * 8
}

// IntegerDType returns the signed (or unsigned) integer dtype with the given bit width.
// It panics for unsupported widths.
func IntegerDType(bits int, unsigned bool) dtypes.DType {
	switch {
	case bits == 8 && !unsigned:
		return dtypes.Int8
	case bits == 16 && !unsigned:
		return dtypes.Int16
	case bits == 32 && !unsigned:
		return dtypes.Int32
	case bits == 64 && !unsigned:
		return dtypes.Int64
	case bits == 8:
		return dtypes.Uint8
	case bits == 16:
		return dtypes.Uint16
	case bits == 32:
		return dtypes.Uint32
	case bits == 64:
		return dtypes.Uint64
	}
	exceptions.Panicf("no integer dtype with %d bits", bits)
	return dtypes.InvalidDType
}

// minFloatBitsForInteger is the smallest float width that represents every value of an integer
// of the given width, following the usual array promotion rules.
func minFloatBitsForInteger(intBits int) int {
	switch {
	case intBits <= 8:
		return 16
	case intBits <= 16:
		return 32
	}
	return 64
}

func floatDType(bits int) dtypes.DType {
	switch bits {
	case 16:
		return dtypes.Float16
	case 32:
		return dtypes.Float32
	}
	return dtypes.Float64
}

func complexDType(bits int) dtypes.DType {
	if bits <= 64 {
		return dtypes.Complex64
	}
	return dtypes.Complex128
}

// Upcast returns the smallest dtype to which both a and b can be converted without loss, using the
// usual array promotion rules: bool < integers < floats < complex; a signed and an unsigned integer
// of the same width promote to the next wider signed integer (Int64 and Uint64 promote to Float64);
// integers combined with floats promote to a float wide enough to hold the integer.
//
// Float16 and BFloat16 promote to Float32 when combined.
func Upcast(a, b dtypes.DType) dtypes.DType {
	if a == b {
		return a
	}
	if a == dtypes.Bool {
		return b
	}
	if b == dtypes.Bool {
		return a
	}
	if IsComplex(a) || IsComplex(b) {
		// Complex64 holds two float32, so its "float width" is 32.
		bits := 32
		for _, dtype := range []dtypes.DType{a, b} {
			switch {
			case dtype == dtypes.Complex128:
				bits = 64
			case IsFloat(dtype):
				bits = max(bits, BitWidth(dtype))
			case IsInteger(dtype):
				bits = max(bits, minFloatBitsForInteger(BitWidth(dtype)))
			}
		}
		return complexDType(bits * 2)
	}
	if IsFloat(a) || IsFloat(b) {
		if IsHalfPrecision(a) && IsHalfPrecision(b) {
			return dtypes.Float32
		}
		bits := 16
		for _, dtype := range []dtypes.DType{a, b} {
			switch {
			case IsFloat(dtype):
				bits = max(bits, BitWidth(dtype))
			case IsInteger(dtype):
				bits = max(bits, minFloatBitsForInteger(BitWidth(dtype)))
			}
		}
		if bits == 16 {
			// Only one of them is a half precision float: keep it.
			if IsHalfPrecision(a) {
				return a
			}
			return b
		}
		return floatDType(bits)
	}

	// Both integers.
	aBits, bBits := BitWidth(a), BitWidth(b)
	if IsUnsigned(a) == IsUnsigned(b) {
		return IntegerDType(max(aBits, bBits), IsUnsigned(a))
	}
	signedBits, unsignedBits := aBits, bBits
	if IsUnsigned(a) {
		signedBits, unsignedBits = bBits, aBits
	}
	if signedBits > unsignedBits {
		return IntegerDType(signedBits, false)
	}
	if unsignedBits == 64 {
		return dtypes.Float64
	}
	return IntegerDType(unsignedBits*2, false)
}
