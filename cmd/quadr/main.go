// Copyright 2023 Google Inc. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS-IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command quadr remeshes a triangle mesh into a semi-regular quad mesh.
//
//	quadr [flags] input.obj output.obj
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/akhenakh/quadr/quadr"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("quadr: ")

	faces := flag.Int("faces", -1, "target quad count (default: source vertex count)")
	withScale := flag.Bool("with-scale", false, "use the anisotropic scale field")
	seed := flag.Int64("seed", 1, "seed for the randomized cut cancellation")
	snapshot := flag.String("snapshot", "", "write a debug snapshot to this path after the index map is computed")
	verbose := flag.Bool("v", false, "log recovered diagnostics")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: quadr [flags] input.obj output.obj\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(2)
	}
	input, output := flag.Arg(0), flag.Arg(1)

	field := quadr.NewParametrizer(quadr.Options{
		TargetFaces: *faces,
		WithScale:   *withScale,
		Seed:        *seed,
		Verbose:     *verbose,
	})

	in, err := os.Open(input)
	if err != nil {
		log.Fatal(err)
	}
	if err := field.Load(in); err != nil {
		in.Close()
		log.Fatal(err)
	}
	in.Close()

	log.Printf("loaded %s", input)
	if err := field.Initialize(); err != nil {
		log.Fatal(err)
	}

	log.Print("solving fields")
	field.BringUpFields(10)
	if *withScale {
		field.EstimateScale()
		field.Hierarchy.S = quadr.ScaleFieldFromCurvature(field.Hierarchy.K)
	}

	log.Print("solving index map")
	if err := field.ComputeIndexMap(); err != nil {
		log.Fatal(err)
	}
	if *snapshot != "" {
		if err := field.SaveSnapshotFile(*snapshot); err != nil {
			log.Fatal(err)
		}
	}

	if err := quadr.SaveObjFile(output, field.OCompact, field.FCompact, field.BadVertices); err != nil {
		log.Fatal(err)
	}
	log.Printf("wrote %d quads to %s", len(field.FCompact), output)
}
