// extraops evaluates a small program of extra operations, given as a HCL file, and prints its outputs.
//
// Usage:
//
//	extraops -program=cumsum.hcl [-backend=go:native]
//
// See Program for the format of the program file. The backend defaults to $EXTRAOPS_BACKEND, or the first
// registered backend.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/gomlx/extraops/backends"
	_ "github.com/gomlx/extraops/backends/simplego"
	"k8s.io/klog/v2"
)

var (
	flagProgram = flag.String("program", "", "Path to the HCL program file to evaluate.")
	flagBackend = flag.String("backend", "", "Backend configuration, e.g. \"go\" or \"go:native\". "+
		"If empty, $"+backends.EnvBackend+" is used if set, or the first registered backend.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	if *flagProgram == "" {
		klog.Errorf("Missing program file. See 'extraops -help'.")
		os.Exit(1)
	}

	program, err := LoadProgram(*flagProgram)
	if err != nil {
		klog.Errorf("Failed to load program: %+v", err)
		os.Exit(1)
	}

	var backend backends.Backend
	if *flagBackend != "" {
		backend = backends.NewWithConfig(*flagBackend)
	} else {
		backend = backends.New()
	}
	defer backend.Finalize()
	klog.V(1).Infof("Backend: %s", backend.Description())

	results, err := program.Run(backend)
	if err != nil {
		klog.Errorf("Failed to run program: %+v", err)
		os.Exit(1)
	}
	for _, result := range results {
		fmt.Printf("%s: %s\n", result.Name, result.Tensor)
	}
}
