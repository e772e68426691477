// Command arcc is the Core's driver: it reads a JSON-encoded typed
// program, runs monomorphization and lowering, and writes the resulting
// AArch64 assembly listing — the one entry point, besides pkg/objemit
// itself, that ever imports pkg/objemit (SPEC_FULL.md §4.7).
//
// Modeled on cmd/ralph-cc/main.go's package-level flag-var blocks and
// cobra.Command wiring, trimmed from that driver's eight intermediate-
// representation dump stages down to the one this pipeline dumps (SSA,
// via --dssa) plus the final assembly text.
package main

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/arclang/arcc/pkg/lower"
	"github.com/arclang/arcc/pkg/mono"
	"github.com/arclang/arcc/pkg/objemit"
	"github.com/arclang/arcc/pkg/runtimeabi"
	"github.com/arclang/arcc/pkg/ssa"
	"github.com/arclang/arcc/pkg/tast"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

// Runtime-configurable options spec.md §6 names, plus the output/target
// plumbing a runnable driver needs around them.
var (
	outputPath string
	scriptMode bool
	linkWith   []string
	targetName string
	dSSA       bool
	doLink     bool
)

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "arcc [file]",
		Short: "arcc compiles a typed program to AArch64 assembly",
		Long: `arcc is the Core of a reference-counted language's back end: it
monomorphizes generic functions, lowers the result through an ARC-aware
SSA builder, and emits AArch64 assembly text. It reads the typed tree a
front end would otherwise hand it in memory as JSON, since lexing,
parsing, and type checking are out of this repository's scope.`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return compile(args[0], out, errOut)
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "write assembly to this path instead of stdout")
	rootCmd.Flags().BoolVar(&scriptMode, "script-mode", false, "fold all top-level statements into one synthetic main, as a script")
	rootCmd.Flags().StringArrayVarP(&linkWith, "link", "l", nil, "static library or object to pass through to the link step")
	rootCmd.Flags().StringVar(&targetName, "target", "aarch64-linux", "target ISA: aarch64-linux, aarch64-darwin, x86_64-linux, x86_64-windows")
	rootCmd.Flags().BoolVar(&dSSA, "dssa", false, "dump the lowered SSA module before emitting assembly")
	rootCmd.Flags().BoolVar(&doLink, "link-exe", false, "best-effort: invoke cc on the emitted assembly to produce an executable")

	return rootCmd
}

func parseTarget(name string) (runtimeabi.TargetISA, error) {
	switch name {
	case "aarch64-linux":
		return runtimeabi.TargetAarch64Linux, nil
	case "aarch64-darwin":
		return runtimeabi.TargetAarch64Darwin, nil
	case "x86_64-linux":
		return runtimeabi.TargetX86_64Linux, nil
	case "x86_64-windows":
		return runtimeabi.TargetX86_64Windows, nil
	default:
		return 0, fmt.Errorf("arcc: unknown target %q", name)
	}
}

// compile runs the full pipeline over filename and writes the result,
// mirroring the teacher's parseFile-then-transform-then-print shape in
// cmd/ralph-cc/main.go's doAsm, collapsed to this pipeline's two stages.
func compile(filename string, out, errOut io.Writer) error {
	target, err := parseTarget(targetName)
	if err != nil {
		return err
	}

	f, err := os.Open(filename)
	if err != nil {
		fmt.Fprintf(errOut, "arcc: error reading %s: %v\n", filename, err)
		return err
	}
	defer f.Close()

	prog, err := tast.DecodeProgram(f)
	if err != nil {
		fmt.Fprintf(errOut, "arcc: %v\n", err)
		return err
	}

	if err := mono.New().Monomorphize(prog); err != nil {
		fmt.Fprintf(errOut, "arcc: monomorphization failed: %v\n", err)
		return err
	}

	eng := lower.New(target)
	mod, err := eng.LowerProgram(prog, scriptMode)
	if err != nil {
		fmt.Fprintf(errOut, "arcc: lowering failed: %v\n", err)
		return err
	}

	if dSSA {
		for _, fn := range mod.Functions {
			fmt.Fprint(errOut, ssa.Print(fn))
		}
	}

	asmProg, err := objemit.Emit(mod)
	if err != nil {
		fmt.Fprintf(errOut, "arcc: object emission failed: %v\n", err)
		return err
	}
	text := objemit.Print(asmProg)

	outFile := out
	if outputPath != "" {
		created, err := os.Create(outputPath)
		if err != nil {
			fmt.Fprintf(errOut, "arcc: error creating %s: %v\n", outputPath, err)
			return err
		}
		defer created.Close()
		outFile = created
	}
	fmt.Fprint(outFile, text)

	if doLink {
		return linkExecutable(filename, text, errOut)
	}
	return nil
}

// linkExecutable is an out-of-scope, best-effort convenience: it shells
// out to an external cc/clang the way the teacher's own driver looks for
// an external tool (findCompCert-style) rather than reimplementing a
// linker. linkWith values are passed through untouched; the Core never
// reads them itself.
func linkExecutable(sourceName, asmText string, errOut io.Writer) error {
	cc := findExternalCC()
	if cc == "" {
		fmt.Fprintln(errOut, "arcc: warning: no cc/clang found on $PATH, skipping --link-exe")
		return nil
	}

	asmPath := asmOutputFilename(sourceName)
	if err := os.WriteFile(asmPath, []byte(asmText), 0o644); err != nil {
		return err
	}

	exePath := strings.TrimSuffix(asmPath, ".s")
	args := append([]string{asmPath, "-o", exePath}, linkWith...)
	c := exec.Command(cc, args...)
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	if err := c.Run(); err != nil {
		fmt.Fprintf(errOut, "arcc: link step failed: %v\n", err)
		return err
	}
	return nil
}

// findExternalCC looks for a system C compiler on $PATH, preferring cc
// then falling back to clang, mirroring the teacher's external-tool
// discovery pattern for its own (CompCert) external dependency.
func findExternalCC() string {
	for _, name := range []string{"cc", "clang"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	return ""
}

func asmOutputFilename(filename string) string {
	ext := ".json"
	if strings.HasSuffix(filename, ext) {
		return filename[:len(filename)-len(ext)] + ".s"
	}
	return filename + ".s"
}
