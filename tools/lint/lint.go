// Command lint runs the repository checks: formatting, vet, staticcheck and
// the race-enabled test suite. Run it from the module root:
//
//	go run ./tools/lint [-fix]
package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

type step struct {
	name    string
	install string // "go install" target, empty when the tool ships with Go
	cmd     string
	args    []string
	// quietOnly fails the step when the command prints anything
	quietOnly bool
}

func run(s step) error {
	if s.install != "" {
		if err := exec.Command("go", "install", s.install).Run(); err != nil {
			return fmt.Errorf("install %s: %w", s.install, err)
		}
	}

	var out bytes.Buffer
	c := exec.Command(s.cmd, s.args...)
	c.Stdout = &out
	c.Stderr = os.Stderr
	err := c.Run()
	os.Stdout.Write(out.Bytes())
	if err != nil {
		return fmt.Errorf("%s %s: %w", s.cmd, strings.Join(s.args, " "), err)
	}
	if s.quietOnly && strings.TrimSpace(out.String()) != "" {
		return fmt.Errorf("%s reported files needing changes", s.cmd)
	}
	return nil
}

func main() {
	fix := flag.Bool("fix", false, "rewrite files instead of only listing unformatted ones")
	flag.Parse()

	fmtArgs := []string{"-l", "."}
	if *fix {
		fmtArgs = []string{"-l", "-w", "."}
	}

	steps := []step{
		{name: "gofumpt", install: "mvdan.cc/gofumpt@latest", cmd: "gofumpt", args: fmtArgs, quietOnly: !*fix},
		{name: "vet", cmd: "go", args: []string{"vet", "./..."}},
		{name: "staticcheck", install: "honnef.co/go/tools/cmd/staticcheck@latest", cmd: "staticcheck", args: []string{"./..."}},
		{name: "test", cmd: "go", args: []string{"test", "-race", "-count=1", "./..."}},
	}

	failed := 0
	for _, s := range steps {
		fmt.Printf("==> %s\n", s.name)
		if err := run(s); err != nil {
			fmt.Fprintln(os.Stderr, err)
			failed++
		}
	}
	if failed > 0 {
		fmt.Fprintf(os.Stderr, "%d check(s) failed\n", failed)
		os.Exit(1)
	}
	fmt.Println("all checks passed")
}
