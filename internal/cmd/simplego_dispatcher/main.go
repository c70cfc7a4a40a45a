// Command simplego_dispatcher writes gen_register_dtypes.go, which registers the instances of the generic
// executors of the simplego backend in their DTypeDispatcher, one per supported dtype.
//
// It is run by `go generate` from the backends/simplego directory.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path"
	"text/template"

	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"
)

// dtypeClass is a bit set of dtype families.
type dtypeClass int

const (
	signed dtypeClass = 1 << iota
	unsigned
	float
	complexNumber

	realNumber = signed | unsigned | float
	allDTypes  = realNumber | complexNumber
)

type goDType struct {
	DType, GoType string
	class         dtypeClass
}

var goDTypes = []goDType{
	{"Int8", "int8", signed},
	{"Int16", "int16", signed},
	{"Int32", "int32", signed},
	{"Int64", "int64", signed},
	{"Uint8", "uint8", unsigned},
	{"Uint16", "uint16", unsigned},
	{"Uint32", "uint32", unsigned},
	{"Uint64", "uint64", unsigned},
	{"Float32", "float32", float},
	{"Float64", "float64", float},
	{"Complex64", "complex64", complexNumber},
	{"Complex128", "complex128", complexNumber},
}

// registration of one generic executor in a dispatcher.
type registration struct {
	Dispatcher, Generic string
	DTypes              []goDType

	// HalfPrecision registers Float16 and BFloat16 with the float32 instance of Generic, converting inputs
	// and outputs.
	HalfPrecision bool
}

func register(dispatcher, generic string, classes dtypeClass, halfPrecision bool) registration {
	r := registration{Dispatcher: dispatcher, Generic: generic, HalfPrecision: halfPrecision}
	for _, dt := range goDTypes {
		if dt.class&classes != 0 {
			r.DTypes = append(r.DTypes, dt)
		}
	}
	return r
}

var registrations = []registration{
	register("dispatchBinary", "execBinaryGeneric", realNumber, true),
	register("dispatchBinary", "execBinaryComplexGeneric", complexNumber, false),
	register("dispatchLessThan", "execLessThanGeneric", realNumber, true),
	register("dispatchReduceSum", "execReduceSumGeneric", allDTypes, true),
	register("dispatchReduceMax", "execReduceMaxGeneric", realNumber, true),
	register("dispatchSearchsorted", "execSearchsortedGeneric", realNumber, true),
	register("dispatchCumulative", "execCumulativeGeneric", allDTypes, true),
	register("dispatchDiff", "execDiffGeneric", allDTypes, true),
}

const fileName = "gen_register_dtypes.go"

var registerTemplate = template.Must(template.New(fileName).Parse(
	`/***** File generated by ./internal/cmd/simplego_dispatcher. Don't edit it directly. *****/

package simplego

import (
	"github.com/gomlx/gopjrt/dtypes"
)

func init() {
{{- range .}}

	// DTypeDispatcher: {{.Dispatcher}}
{{- $dispatcher := .Dispatcher }}
{{- $generic := .Generic }}
{{- range .DTypes }}
	{{$dispatcher}}.Register(dtypes.{{.DType}}, {{$generic}}[{{.GoType}}])
{{- end }}
{{- if .HalfPrecision }}
	{{$dispatcher}}.Register(dtypes.Float16, viaFloat32({{$generic}}[float32]))
	{{$dispatcher}}.Register(dtypes.BFloat16, viaFloat32({{$generic}}[float32]))
{{- end }}
{{- end }}
}
`))

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	fullPath := path.Join(must.M1(os.Getwd()), fileName)
	f := must.M1(os.Create(fullPath))
	must.M(registerTemplate.Execute(f, registrations))
	must.M(f.Close())

	cmd := exec.Command("gofmt", "-w", fullPath)
	klog.V(1).Infof("running %s", cmd)
	must.M(cmd.Run())
	fmt.Printf("simplego_dispatcher: generated %s\n", fullPath)
}
