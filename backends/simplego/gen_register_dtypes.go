/***** File generated by ./internal/cmd/simplego_dispatcher. Don't edit it directly. *****/

package simplego

import (
	"github.com/gomlx/gopjrt/dtypes"
)

func init() {

	// DTypeDispatcher: dispatchBinary
	dispatchBinary.Register(dtypes.Int8, execBinaryGeneric[int8])
	dispatchBinary.Register(dtypes.Int16, execBinaryGeneric[int16])
	dispatchBinary.Register(dtypes.Int32, execBinaryGeneric[int32])
	dispatchBinary.Register(dtypes.Int64, execBinaryGeneric[int64])
	dispatchBinary.Register(dtypes.Uint8, execBinaryGeneric[uint8])
	dispatchBinary.Register(dtypes.Uint16, execBinaryGeneric[uint16])
	dispatchBinary.Register(dtypes.Uint32, execBinaryGeneric[uint32])
	dispatchBinary.Register(dtypes.Uint64, execBinaryGeneric[uint64])
	dispatchBinary.Register(dtypes.Float32, execBinaryGeneric[float32])
	dispatchBinary.Register(dtypes.Float64, execBinaryGeneric[float64])
	dispatchBinary.Register(dtypes.Float16, viaFloat32(execBinaryGeneric[float32]))
	dispatchBinary.Register(dtypes.BFloat16, viaFloat32(execBinaryGeneric[float32]))

	// DTypeDispatcher: dispatchBinary
	dispatchBinary.Register(dtypes.Complex64, execBinaryComplexGeneric[complex64])
	dispatchBinary.Register(dtypes.Complex128, execBinaryComplexGeneric[complex128])

	// DTypeDispatcher: dispatchLessThan
	dispatchLessThan.Register(dtypes.Int8, execLessThanGeneric[int8])
	dispatchLessThan.Register(dtypes.Int16, execLessThanGeneric[int16])
	dispatchLessThan.Register(dtypes.Int32, execLessThanGeneric[int32])
	dispatchLessThan.Register(dtypes.Int64, execLessThanGeneric[int64])
	dispatchLessThan.Register(dtypes.Uint8, execLessThanGeneric[uint8])
	dispatchLessThan.Register(dtypes.Uint16, execLessThanGeneric[uint16])
	dispatchLessThan.Register(dtypes.Uint32, execLessThanGeneric[uint32])
	dispatchLessThan.Register(dtypes.Uint64, execLessThanGeneric[uint64])
	dispatchLessThan.Register(dtypes.Float32, execLessThanGeneric[float32])
	dispatchLessThan.Register(dtypes.Float64, execLessThanGeneric[float64])
	dispatchLessThan.Register(dtypes.Float16, viaFloat32(execLessThanGeneric[float32]))
	dispatchLessThan.Register(dtypes.BFloat16, viaFloat32(execLessThanGeneric[float32]))

	// DTypeDispatcher: dispatchReduceSum
	dispatchReduceSum.Register(dtypes.Int8, execReduceSumGeneric[int8])
	dispatchReduceSum.Register(dtypes.Int16, execReduceSumGeneric[int16])
	dispatchReduceSum.Register(dtypes.Int32, execReduceSumGeneric[int32])
	dispatchReduceSum.Register(dtypes.Int64, execReduceSumGeneric[int64])
	dispatchReduceSum.Register(dtypes.Uint8, execReduceSumGeneric[uint8])
	dispatchReduceSum.Register(dtypes.Uint16, execReduceSumGeneric[uint16])
	dispatchReduceSum.Register(dtypes.Uint32, execReduceSumGeneric[uint32])
	dispatchReduceSum.Register(dtypes.Uint64, execReduceSumGeneric[uint64])
	dispatchReduceSum.Register(dtypes.Float32, execReduceSumGeneric[float32])
	dispatchReduceSum.Register(dtypes.Float64, execReduceSumGeneric[float64])
	dispatchReduceSum.Register(dtypes.Complex64, execReduceSumGeneric[complex64])
	dispatchReduceSum.Register(dtypes.Complex128, execReduceSumGeneric[complex128])
	dispatchReduceSum.Register(dtypes.Float16, viaFloat32(execReduceSumGeneric[float32]))
	dispatchReduceSum.Register(dtypes.BFloat16, viaFloat32(execReduceSumGeneric[float32]))

	// DTypeDispatcher: dispatchReduceMax
	dispatchReduceMax.Register(dtypes.Int8, execReduceMaxGeneric[int8])
	dispatchReduceMax.Register(dtypes.Int16, execReduceMaxGeneric[int16])
	dispatchReduceMax.Register(dtypes.Int32, execReduceMaxGeneric[int32])
	dispatchReduceMax.Register(dtypes.Int64, execReduceMaxGeneric[int64])
	dispatchReduceMax.Register(dtypes.Uint8, execReduceMaxGeneric[uint8])
	dispatchReduceMax.Register(dtypes.Uint16, execReduceMaxGeneric[uint16])
	dispatchReduceMax.Register(dtypes.Uint32, execReduceMaxGeneric[uint32])
	dispatchReduceMax.Register(dtypes.Uint64, execReduceMaxGeneric[uint64])
	dispatchReduceMax.Register(dtypes.Float32, execReduceMaxGeneric[float32])
	dispatchReduceMax.Register(dtypes.Float64, execReduceMaxGeneric[float64])
	dispatchReduceMax.Register(dtypes.Float16, viaFloat32(execReduceMaxGeneric[float32]))
	dispatchReduceMax.Register(dtypes.BFloat16, viaFloat32(execReduceMaxGeneric[float32]))

	// DTypeDispatcher: dispatchSearchsorted
	dispatchSearchsorted.Register(dtypes.Int8, execSearchsortedGeneric[int8])
	dispatchSearchsorted.Register(dtypes.Int16, execSearchsortedGeneric[int16])
	dispatchSearchsorted.Register(dtypes.Int32, execSearchsortedGeneric[int32])
	dispatchSearchsorted.Register(dtypes.Int64, execSearchsortedGeneric[int64])
	dispatchSearchsorted.Register(dtypes.Uint8, execSearchsortedGeneric[uint8])
	dispatchSearchsorted.Register(dtypes.Uint16, execSearchsortedGeneric[uint16])
	dispatchSearchsorted.Register(dtypes.Uint32, execSearchsortedGeneric[uint32])
	dispatchSearchsorted.Register(dtypes.Uint64, execSearchsortedGeneric[uint64])
	dispatchSearchsorted.Register(dtypes.Float32, execSearchsortedGeneric[float32])
	dispatchSearchsorted.Register(dtypes.Float64, execSearchsortedGeneric[float64])
	dispatchSearchsorted.Register(dtypes.Float16, viaFloat32(execSearchsortedGeneric[float32]))
	dispatchSearchsorted.Register(dtypes.BFloat16, viaFloat32(execSearchsortedGeneric[float32]))

	// DTypeDispatcher: dispatchCumulative
	dispatchCumulative.Register(dtypes.Int8, execCumulativeGeneric[int8])
	dispatchCumulative.Register(dtypes.Int16, execCumulativeGeneric[int16])
	dispatchCumulative.Register(dtypes.Int32, execCumulativeGeneric[int32])
	dispatchCumulative.Register(dtypes.Int64, execCumulativeGeneric[int64])
	dispatchCumulative.Register(dtypes.Uint8, execCumulativeGeneric[uint8])
	dispatchCumulative.Register(dtypes.Uint16, execCumulativeGeneric[uint16])
	dispatchCumulative.Register(dtypes.Uint32, execCumulativeGeneric[uint32])
	dispatchCumulative.Register(dtypes.Uint64, execCumulativeGeneric[uint64])
	dispatchCumulative.Register(dtypes.Float32, execCumulativeGeneric[float32])
	dispatchCumulative.Register(dtypes.Float64, execCumulativeGeneric[float64])
	dispatchCumulative.Register(dtypes.Complex64, execCumulativeGeneric[complex64])
	dispatchCumulative.Register(dtypes.Complex128, execCumulativeGeneric[complex128])
	dispatchCumulative.Register(dtypes.Float16, viaFloat32(execCumulativeGeneric[float32]))
	dispatchCumulative.Register(dtypes.BFloat16, viaFloat32(execCumulativeGeneric[float32]))

	// DTypeDispatcher: dispatchDiff
	dispatchDiff.Register(dtypes.Int8, execDiffGeneric[int8])
	dispatchDiff.Register(dtypes.Int16, execDiffGeneric[int16])
	dispatchDiff.Register(dtypes.Int32, execDiffGeneric[int32])
	dispatchDiff.Register(dtypes.Int64, execDiffGeneric[int64])
	dispatchDiff.Register(dtypes.Uint8, execDiffGeneric[uint8])
	dispatchDiff.Register(dtypes.Uint16, execDiffGeneric[uint16])
	dispatchDiff.Register(dtypes.Uint32, execDiffGeneric[uint32])
	dispatchDiff.Register(dtypes.Uint64, execDiffGeneric[uint64])
	dispatchDiff.Register(dtypes.Float32, execDiffGeneric[float32])
	dispatchDiff.Register(dtypes.Float64, execDiffGeneric[float64])
	dispatchDiff.Register(dtypes.Complex64, execDiffGeneric[complex64])
	dispatchDiff.Register(dtypes.Complex128, execDiffGeneric[complex128])
	dispatchDiff.Register(dtypes.Float16, viaFloat32(execDiffGeneric[float32]))
	dispatchDiff.Register(dtypes.BFloat16, viaFloat32(execDiffGeneric[float32]))
}
