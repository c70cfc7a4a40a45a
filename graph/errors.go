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

package graph

import (
	"github.com/pkg/errors"
)

// Sentinel errors thrown (with panic) while building a graph or its gradient. Callers can catch them with
// exceptions.TryCatch[error] and test them with errors.Is.
var (
	// ErrType is thrown when an operator receives an input of the wrong dtype, or a dtype not supported
	// on the target platform.
	ErrType = errors.New("type error")

	// ErrShape is thrown when an operator receives an input of the wrong rank or with incompatible dimensions.
	ErrShape = errors.New("shape error")

	// ErrGradientUndefined is thrown by Gradient when a required gradient is mathematically undefined.
	ErrGradientUndefined = errors.New("gradient undefined")

	// ErrGradientNotImplemented is thrown by Gradient when a required gradient is defined but not implemented.
	ErrGradientNotImplemented = errors.New("gradient not implemented")
)

func typeErrorf(format string, args ...any) {
	panic(errors.Wrapf(ErrType, format, args...))
}

func shapeErrorf(format string, args ...any) {
	panic(errors.Wrapf(ErrShape, format, args...))
}
