// リレー運用CLIのエントリポイント。
package main

import (
	"os"

	"github.com/nao1215/tradegate/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
