package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/chzyer/readline"

	"github.com/portwally/Retro-Graphics-converter-sub001/disk"
)

var shellCommands = []string{"mount", "catalog", "info", "extract", "help", "quit"}

// RunShell is a small interactive browser: mount an image, list its
// catalog, pull files out.
func RunShell() {

	completer := readline.NewPrefixCompleter(
		readline.PcItem("mount"),
		readline.PcItem("catalog"),
		readline.PcItem("info"),
		readline.PcItem("extract"),
		readline.PcItem("help"),
		readline.PcItem("quit"),
	)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:       "retrodisk> ",
		AutoComplete: completer,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	defer rl.Close()

	var current *disk.DiskCatalog

	for {
		line, err := rl.Readline()
		if err != nil {
			return
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {

		case "mount":
			if len(fields) < 2 {
				fmt.Println("usage: mount <image>")
				continue
			}
			cat, err := catalogFile(fields[1])
			if err != nil {
				fmt.Println(err)
				continue
			}
			current = cat
			rl.SetPrompt(fmt.Sprintf("retrodisk:%s> ", cat.DiskName))
			fmt.Printf("%s: %s, %d files\n", cat.DiskName, cat.DiskFormatLabel, cat.FileCount())

		case "catalog":
			if current == nil {
				fmt.Println("no disk mounted")
				continue
			}
			reportCatalog(os.Stdout, current, false, false)

		case "info":
			if current == nil {
				fmt.Println("no disk mounted")
				continue
			}
			fmt.Printf("name:   %s\nformat: %s\nsize:   %d bytes\nfiles:  %d\n",
				current.DiskName, current.DiskFormatLabel, current.DiskSizeBytes, current.FileCount())

		case "extract":
			if current == nil {
				fmt.Println("no disk mounted")
				continue
			}
			dest := "."
			if len(fields) > 1 {
				dest = fields[1]
			}
			n, err := extractAll(current, dest)
			if err != nil {
				fmt.Println(err)
				continue
			}
			fmt.Printf("extracted %d files\n", n)

		case "help":
			fmt.Println(strings.Join(shellCommands, " "))

		case "quit", "exit":
			return

		default:
			fmt.Printf("unknown command: %s\n", fields[0])
		}
	}
}
