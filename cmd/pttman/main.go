package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/pttman/internal/app"
)

func main() {
	// ログは標準エラーへ出す。stdio モードでは標準出力がMCPのストリームになる。
	if err := app.Run(os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "pttman: %v\n", err)
		os.Exit(1)
	}
}
