package main

import (
	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{Use: "spendsense"}
	root.AddCommand(serveCMD(), migrateCMD(), reindexCMD())
	_ = root.Execute()
}
