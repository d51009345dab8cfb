/*

Command cubench benchmarks the compute-unit cost of order-book
program instructions across batch sizes and market variants, and
prints a comparison report.

Usage:

	cubench [-c config.toml] [--images DIR] [--programs LIST] [--json] [-v]

The program images directory is resolved from the --images flag, the
config file, or the CUBENCH_PROGRAM_IMAGES environment variable, in
that order. Each selected program needs a <name>.so image in that
directory.

Example:

	$ cubench --images ./images --programs manifest --json

The report lists total and per-item compute units for every measured
case. cubench exits nonzero if any case fails.

*/
package main
