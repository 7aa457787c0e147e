package main

import (
	"flag"
	"fmt"
	"os"

	"trainvoc/services"
)

func main() {
	dir := flag.String("dir", "./words", "directory holding word bank files")
	flag.Parse()

	files, err := services.FindWordFiles(*dir)
	if err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Printf("no word files found in %s\n", *dir)
		return
	}

	exitCode := 0
	for _, f := range files {
		wf, err := services.ParseWordFile(f)
		if err != nil {
			fmt.Printf("%s: %v\n", f, err)
			exitCode = 1
			continue
		}
		problems := wf.Problems()
		for _, p := range problems {
			fmt.Printf("%s: %s\n", f, p)
		}
		if len(problems) > 0 {
			exitCode = 1
			continue
		}
		fmt.Printf("%s: OK (%s, %d words)\n", f, wf.Level, len(wf.Words))
	}
	os.Exit(exitCode)
}
