package main

import (
	"fmt"
	"io"
)

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  vybe run [project-dir | vybe.yml | file.vb]")
	fmt.Fprintln(w, "  vybe <file.vb>")
	fmt.Fprintln(w, "  vybe check [project-dir | vybe.yml | file.vb]")
	fmt.Fprintln(w, "  vybe repl")
	fmt.Fprintln(w, "  vybe deps install [project-dir]")
	fmt.Fprintln(w, "  vybe deps update [project-dir]")
	fmt.Fprintln(w, "  vybe version")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  VYBE_HOME       dependency cache (default ~/.vybe)")
	fmt.Fprintln(w, "  VYBE_LOG_LEVEL  debug, info, warn or error")
	fmt.Fprintln(w, "  VYBE_PATH       extra module search directories")
	fmt.Fprintln(w, "  VYBE_HISTORY    REPL history file")
}
