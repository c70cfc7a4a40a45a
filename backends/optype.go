package backends

// OpType is an enum of all operators known to the graph and to the executors.
//
// Each OpType is the tag of one operator variant (see Op): the graph package keys its shape inference and
// gradient tables by it, and the executors key their kernels by it.
type OpType int

//go:generate go tool enumer -type=OpType -trimprefix=OpType -output=gen_optype_enumer.go optype.go

const (
	OpTypeInvalid OpType = iota
	OpTypeParameter
	OpTypeConstant
	OpTypeShapeOf
	OpTypeDimOf
	OpTypeStack
	OpTypeReshape
	OpTypeConvertDType
	OpTypeAdd
	OpTypeSub
	OpTypeMul
	OpTypeDiv
	OpTypeMaximum
	OpTypeLessThan
	OpTypeWhere
	OpTypeReduceSum
	OpTypeReduceMax
	OpTypeReverse
	OpTypeConcatenate
	OpTypeFill
	OpTypeDimShuffle
	OpTypeExtractDiagonal

	// Extra operators.

	OpTypeSearchsorted
	OpTypeCumsum
	OpTypeCumprod
	OpTypeDiff
	OpTypeBinCount
	OpTypeRepeat
	OpTypeBartlett
	OpTypeFillDiagonal

	// OpTypeLast should always be kept the last, it is used as a counter/marker for OpType.
	OpTypeLast
)
